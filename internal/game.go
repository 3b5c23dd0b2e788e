package internal

import (
	"log/slog"
	"math/rand"
	"sort"
	"sync"
)

// 系統設計問題：
//   多個網路連接與一個背景模擬迴圈如何安全地共用同一份遊戲狀態？
//
// 核心挑戰：
//   1. 併發修改：每個連接的輸入處理與重力模擬同時讀寫註冊表與盤面
//   2. 原子性：重力步驟需要同時讀註冊表、寫盤面（落定），不可拆分
//   3. 迭代安全：落定會把方塊從註冊表移除，不能在迭代中修改成員
//   4. 活性：持鎖期間不得進行任何網路 I/O（否則慢客戶端拖垮模擬）
//
// 設計方案：
//   ✅ 單一 Mutex 保護整個聚合 - 註冊表與盤面永遠一起上鎖
//   ✅ 碰撞判定為純函數 - 輸入處理與重力共用同一套語義
//   ✅ 延遲移除 - 先完成整輪迭代，再套用落定
//   ✅ 快照後釋放鎖 - 序列化與廣播都在鎖外進行

// PieceProvider 下一個方塊的提供者（隨機選取策略對引擎不透明）
type PieceProvider func() ShapeID

// Game 共享遊戲狀態聚合。
//
// players 與 board 只在持有 mu 時讀寫。不要分拆這把鎖：
// 重力步驟必須原子地觀察兩者。
type Game struct {
	mu      sync.Mutex
	players map[int]*PieceState // 連接身份 -> 下落中的方塊
	board   SettledBoard        // 落定盤面（只增不減）

	bounds    Bounds
	spawn     Pivot
	nextPiece PieceProvider
	logger    *slog.Logger
}

// NewGame 創建遊戲狀態聚合。
// provider 為 nil 時使用均勻隨機選取（不做 bag 公平性保證）。
func NewGame(cfg *Config, logger *slog.Logger, provider PieceProvider) *Game {
	if provider == nil {
		provider = func() ShapeID {
			return ShapeID(rand.Intn(ShapeCount))
		}
	}
	return &Game{
		players:   make(map[int]*PieceState),
		board:     make(SettledBoard),
		bounds:    cfg.Bounds(),
		spawn:     cfg.SpawnPivot(),
		nextPiece: provider,
		logger:    logger,
	}
}

// Join 連接建立時呼叫。
//
// 同一身份已有方塊時視為重連，回傳原本的方塊類型（reconnected 為 true）；
// 否則在固定出生點配置一個新方塊並插入註冊表。
// 插入註冊表是方塊生命週期唯一的「誕生」事件。
func (g *Game) Join(playerID int) (shape ShapeID, reconnected bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if p, ok := g.players[playerID]; ok {
		return p.Shape, true
	}

	p := g.spawnLocked(playerID)
	return p.Shape, false
}

// spawnLocked 配置新方塊並插入註冊表（呼叫者必須持鎖）
func (g *Game) spawnLocked(playerID int) *PieceState {
	p := &PieceState{
		PlayerID: playerID,
		Shape:    g.nextPiece(),
		Pivot:    g.spawn,
		Rotation: 0,
	}
	g.players[playerID] = p

	g.logger.Info("配置新方塊",
		"player_id", playerID,
		"shape", p.Shape)
	return p
}

// HasPiece 該身份目前是否有下落中的方塊
func (g *Game) HasPiece(playerID int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.players[playerID]
	return ok
}

// ApplyInput 驗證並套用一個客戶端的輸入。
//
// 注意錯誤語義：非法移動是預期中的高頻事件，不是錯誤。
// 碰撞判定不通過就靜默丟棄，下一幀廣播自然反映未變的位置。
// 玩家沒有方塊時同樣是 no-op（方塊已落定或尚未加入）。
//
// 在共享鎖內執行，絕不在持鎖時做網路 I/O。
func (g *Game) ApplyInput(input KeyState) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.players[input.PlayerID]

	// 落定後的玩家以 respawn 明確請求新方塊（策略決定：
	// 落定不自動補發，也不要求重新連接）。
	// 出生位置被落定格擋住時靜默拒絕，與其他非法輸入的語義一致。
	if input.Action == ActionRespawn {
		if ok {
			return
		}
		candidate := PieceState{
			PlayerID: input.PlayerID,
			Shape:    g.nextPiece(),
			Pivot:    g.spawn,
		}
		if CheckCollision(candidate, g.board, g.bounds) {
			return
		}
		g.players[input.PlayerID] = &candidate

		g.logger.Info("配置新方塊",
			"player_id", input.PlayerID,
			"shape", candidate.Shape)
		return
	}

	if !ok {
		return
	}

	candidate := *p
	switch input.Action {
	case ActionMoveLeft:
		candidate.Pivot.X--
	case ActionMoveRight:
		candidate.Pivot.X++
	case ActionRotate:
		candidate.Rotation = (candidate.Rotation + 1) % 4
	case ActionSoftDrop:
		candidate.Pivot.Y++
	case ActionHardDrop:
		// 下探到最後一個合法位置；落定仍只由重力步驟執行
		for {
			next := candidate
			next.Pivot.Y++
			if CheckCollision(next, g.board, g.bounds) {
				break
			}
			candidate = next
		}
	default:
		g.logger.Debug("未知的輸入操作",
			"player_id", input.PlayerID,
			"action", input.Action)
		return
	}

	if !CheckCollision(candidate, g.board, g.bounds) {
		*p = candidate
	}
}

// StepGravity 執行一次重力步驟，回傳本次落定的玩家數。
//
// 每個方塊以 pivot.y+1 構造候選：碰撞則落定（展開當前位置寫入盤面、
// 從註冊表移除），否則下移一格。
//
// 順序性保證（與 map 迭代順序無關）：
//  1. 所有方塊先以步驟開始時的盤面判定，落定者先套用
//     （迭代結束後才修改註冊表成員）
//  2. 其餘方塊的下移對更新後的盤面複檢。複檢被擋住的方塊同樣在
//     本步原地落定：活動方塊允許彼此重疊（共用出生點），被同步驟
//     落定格擋住的方塊當前位置可能已與盤面重合，留在原地會讓一個
//     靜止的活動方塊與落定盤面重疊整整一個重力週期。落定又可能
//     擋住其他方塊，因此複檢迭代至不再有新的落定，剩餘方塊的下移
//     確定對最終盤面合法後才一併提交
func (g *Game) StepGravity() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	var landed, moved []int
	for id, p := range g.players {
		candidate := *p
		candidate.Pivot.Y++
		if CheckCollision(candidate, g.board, g.bounds) {
			landed = append(landed, id)
		} else {
			moved = append(moved, id)
		}
	}

	for _, id := range landed {
		g.settleLocked(id)
	}
	total := len(landed)

	// 複檢迭代至不動點
	queue := moved
	for len(queue) > 0 {
		var pending []int
		settledAny := false

		for _, id := range queue {
			p := g.players[id]
			candidate := *p
			candidate.Pivot.Y++
			if CheckCollision(candidate, g.board, g.bounds) {
				g.settleLocked(id)
				total++
				settledAny = true
			} else {
				pending = append(pending, id)
			}
		}

		if !settledAny {
			for _, id := range pending {
				g.players[id].Pivot.Y++
			}
			break
		}
		queue = pending
	}

	return total
}

// settleLocked 將方塊當前佔用格寫入落定盤面並移出註冊表（呼叫者必須持鎖）。
// 活動方塊彼此重疊後先後落定時，共用格保留最後落定者的形狀。
func (g *Game) settleLocked(id int) {
	p := g.players[id]
	for _, cell := range OccupiedCells(p.Shape, p.Rotation, p.Pivot) {
		g.board[cell] = p.Shape
	}
	delete(g.players, id)

	g.logger.Info("方塊落定",
		"player_id", id,
		"shape", p.Shape,
		"pivot_x", p.Pivot.X,
		"pivot_y", p.Pivot.Y)
}

// RemovePlayer 將玩家的方塊從註冊表移除。
//
// 這是連接終止（探測失敗、異常關閉）的清理路徑，
// 與重力迴圈的落定移除是兩個互相獨立的移除原因。
// 玩家不存在時為冪等 no-op。
func (g *Game) RemovePlayer(playerID int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.players[playerID]; !ok {
		return
	}
	delete(g.players, playerID)

	g.logger.Info("玩家已移出遊戲", "player_id", playerID)
}

// Snapshot 產生一幀可序列化的狀態快照。
//
// 在鎖內複製、鎖外序列化與廣播。輸出經過排序
// （方塊按玩家 ID、落定格按 (y,x)），讓廣播內容確定可測。
func (g *Game) Snapshot() Snapshot {
	g.mu.Lock()

	pieces := make([]PieceState, 0, len(g.players))
	for _, p := range g.players {
		pieces = append(pieces, *p)
	}

	blocks := make([]FallenBlock, 0, len(g.board))
	for pos, shape := range g.board {
		blocks = append(blocks, FallenBlock{Position: pos, OriginalShape: shape})
	}

	g.mu.Unlock()

	sort.Slice(pieces, func(i, j int) bool {
		return pieces[i].PlayerID < pieces[j].PlayerID
	})
	sort.Slice(blocks, func(i, j int) bool {
		if blocks[i].Position.Y != blocks[j].Position.Y {
			return blocks[i].Position.Y < blocks[j].Position.Y
		}
		return blocks[i].Position.X < blocks[j].Position.X
	})

	return Snapshot{
		Type:         "gameState",
		PieceStates:  pieces,
		FallenBlocks: blocks,
	}
}

// Stats 獲取統計資訊
func (g *Game) Stats() map[string]any {
	g.mu.Lock()
	defer g.mu.Unlock()

	return map[string]any{
		"live_pieces":   len(g.players),
		"settled_cells": len(g.board),
		"board_width":   g.bounds.Width,
		"board_height":  g.bounds.Height,
	}
}
