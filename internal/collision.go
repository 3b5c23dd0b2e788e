package internal

// SettledBoard 落定盤面：格子座標 -> 落在該格的方塊形狀。
// 只增不減（目前沒有消行邏輯）。
type SettledBoard map[Pivot]ShapeID

// Bounds 盤面邊界
type Bounds struct {
	Width  int
	Height int
}

// CheckCollision 判定候選方塊的放置是否違規。
//
// 純函數，回傳 true 表示至少一個佔用格：
//   - 到達或超出盤面底部
//   - 超出左右邊界
//   - 與落定盤面的格子重疊
//
// 不檢查上邊界：方塊允許在可視盤面上方（y 為負）。
// 輸入處理與重力步驟共用同一套判定語義。
func CheckCollision(candidate PieceState, board SettledBoard, bounds Bounds) bool {
	for _, cell := range OccupiedCells(candidate.Shape, candidate.Rotation, candidate.Pivot) {
		if cell.Y >= bounds.Height {
			return true
		}
		if cell.X < 0 || cell.X >= bounds.Width {
			return true
		}
		if _, occupied := board[cell]; occupied {
			return true
		}
	}
	return false
}
