package internal

// ShapeID 方塊種類，[0,7) 共七種，指派給方塊後不再改變
type ShapeID uint8

const (
	ShapeI ShapeID = iota
	ShapeO
	ShapeT
	ShapeS
	ShapeZ
	ShapeJ
	ShapeL

	// ShapeCount 方塊種類數
	ShapeCount = 7
)

// 形狀表：每種方塊四個旋轉方向各一張局部網格，逐列以位元表示佔用格。
//
// 編碼約定：
//   - I 方塊使用 4×4 網格，其餘使用 3×3 網格
//   - 每列一個位元遮罩，最高有效位在最左（列字面值與圖形視覺一致）
//   - 錨點位於局部座標 (1,1)，絕對格子 = pivot + (lx-1, ly-1)
//
// 靜態資料，運行時只做查表，不做計算。
var shapeGrids = [ShapeCount][4][]uint8{
	ShapeI: {
		{0b0000, 0b1111, 0b0000, 0b0000},
		{0b0010, 0b0010, 0b0010, 0b0010},
		{0b0000, 0b0000, 0b1111, 0b0000},
		{0b0100, 0b0100, 0b0100, 0b0100},
	},
	ShapeO: {
		{0b110, 0b110, 0b000},
		{0b110, 0b110, 0b000},
		{0b110, 0b110, 0b000},
		{0b110, 0b110, 0b000},
	},
	ShapeT: {
		{0b010, 0b111, 0b000},
		{0b010, 0b011, 0b010},
		{0b000, 0b111, 0b010},
		{0b010, 0b110, 0b010},
	},
	ShapeS: {
		{0b011, 0b110, 0b000},
		{0b010, 0b011, 0b001},
		{0b000, 0b011, 0b110},
		{0b100, 0b110, 0b010},
	},
	ShapeZ: {
		{0b110, 0b011, 0b000},
		{0b001, 0b011, 0b010},
		{0b000, 0b110, 0b011},
		{0b010, 0b110, 0b100},
	},
	ShapeJ: {
		{0b100, 0b111, 0b000},
		{0b011, 0b010, 0b010},
		{0b000, 0b111, 0b001},
		{0b010, 0b010, 0b110},
	},
	ShapeL: {
		{0b001, 0b111, 0b000},
		{0b010, 0b010, 0b011},
		{0b000, 0b111, 0b100},
		{0b110, 0b010, 0b010},
	},
}

// GridSize 形狀局部網格的邊長（I 為 4，其餘為 3）
func (s ShapeID) GridSize() int {
	if s == ShapeI {
		return 4
	}
	return 3
}

// Valid 形狀編號是否在合法範圍內
func (s ShapeID) Valid() bool {
	return s < ShapeCount
}

// OccupiedCells 將方塊展開為其佔用的絕對格子集合。
//
// rotation 先縮減到 [0,4)，再查詢形狀表。每個方塊恆為四格。
func OccupiedCells(shape ShapeID, rotation int, pivot Pivot) []Pivot {
	size := shape.GridSize()
	grid := shapeGrids[shape][((rotation%4)+4)%4]

	cells := make([]Pivot, 0, 4)
	for ly := 0; ly < size; ly++ {
		row := grid[ly]
		for lx := 0; lx < size; lx++ {
			if row&(1<<(size-1-lx)) != 0 {
				cells = append(cells, Pivot{
					X: pivot.X + lx - 1,
					Y: pivot.Y + ly - 1,
				})
			}
		}
	}
	return cells
}
