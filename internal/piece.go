package internal

// Pivot 格子座標，既是方塊的錨點，也是落定盤面的鍵。
// 可比較型別，直接作為 map 鍵使用。
type Pivot struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// PieceState 一個玩家下落中的方塊。
//
// 由玩家註冊表獨佔持有，只在共享鎖內被修改：
//   - 輸入處理改 X 與 Rotation（以及軟降/硬降的 Y）
//   - 重力步驟改 Y
type PieceState struct {
	PlayerID int     `json:"player_id"`
	Shape    ShapeID `json:"shape"`
	Pivot    Pivot   `json:"pivot"`
	Rotation int     `json:"rotation"` // [0,4)
}

// Action 客戶端請求的操作
type Action string

const (
	ActionMoveLeft  Action = "move_left"
	ActionMoveRight Action = "move_right"
	ActionRotate    Action = "rotate"
	ActionSoftDrop  Action = "soft_drop"
	ActionHardDrop  Action = "hard_drop"
	ActionRespawn   Action = "respawn" // 方塊落定後請求新方塊
)

// KeyState 來自網路層的輸入事件。
//
// PlayerID 一律由服務器以連接身份覆寫，絕不信任客戶端負載，
// 防止客戶端操控別人的方塊。
type KeyState struct {
	PlayerID int    `json:"player_id"`
	Action   Action `json:"action"`
}

// FallenBlock 落定盤面中的一格
type FallenBlock struct {
	Position      Pivot   `json:"position"`
	OriginalShape ShapeID `json:"original_shape"`
}

// Snapshot 一幀的完整遊戲狀態，序列化後廣播給所有客戶端
type Snapshot struct {
	Type         string        `json:"type"` // 固定為 "gameState"
	PieceStates  []PieceState  `json:"piece_states"`
	FallenBlocks []FallenBlock `json:"fallen_blocks"`
}

// InitMessage 連接建立時回給單一客戶端的初始訊息
type InitMessage struct {
	Type      string  `json:"type"` // 固定為 "init"
	PlayerID  int     `json:"player_id"`
	PieceType ShapeID `json:"piece_type"`
}
