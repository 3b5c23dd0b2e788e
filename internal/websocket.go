package internal

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// 系統設計問題：
//   如何在客戶端隨時可能消失的前提下，維持每個連接的存活追蹤與清理？
//
// 核心挑戰：
//   1. 存活探測：客戶端異常斷線（網路故障、瀏覽器崩潰）服務器無法立即察覺
//   2. 計時器競態：每則訊息都要重排逾時，「取消已觸發的計時器」不能造成重複清理
//   3. 身份信任：輸入中的 player_id 必須以連接身份覆寫，客戶端不可冒充他人
//   4. 重連：同一身份在移除前重連，要取回原本的方塊而不是配新的
//
// 設計方案：
//   ✅ 每連接至多一個未觸發的計時器 - 先取消再重排（take-and-replace）
//   ✅ 逾時發送 Ping 探測 - 發送失敗即視為連接錯誤，走終止清理
//   ✅ 正常關閉只記錄 - 留一個探測週期作為重連窗口，再由探測失敗清理
//   ✅ 清理前核對連接身份 - 已被新連接取代的舊計時器不得誤刪玩家

// 寫入單則訊息或控制幀的期限
const writeWait = 10 * time.Second

// Hub WebSocket 連接中心。
//
// 集中管理所有玩家連接：註冊/註銷、逐幀廣播、連接身份分配。
// connections 由 hub 自己的讀寫鎖保護，與 Game 的模擬鎖無關，
// 兩把鎖永遠不會巢狀持有。
type Hub struct {
	game     *Game
	logger   *slog.Logger
	upgrader websocket.Upgrader

	connections map[int]*Connection // playerID -> Connection
	mu          sync.RWMutex

	nextID  atomic.Int64
	timeout time.Duration // 存活探測逾時
	buffer  int           // 每連接發送緩衝
}

// Connection 一個玩家的 WebSocket 連接
type Connection struct {
	PlayerID int
	Conn     *websocket.Conn
	Send     chan []byte
	Hub      *Hub

	mu        sync.Mutex  // 保護 timer
	timer     *time.Timer // 至多一個未觸發的存活計時器
	closeOnce sync.Once
}

// NewHub 創建 WebSocket Hub
func NewHub(game *Game, cfg *Config, logger *slog.Logger) *Hub {
	return &Hub{
		game:   game,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// 在生產環境應該檢查來源
				return true
			},
			ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
			WriteBufferSize: cfg.WebSocket.WriteBufferSize,
		},
		connections: make(map[int]*Connection),
		timeout:     cfg.WebSocket.LivenessTimeout,
		buffer:      cfg.WebSocket.SendBuffer,
	}
}

// ServeWS 處理 WebSocket 連接。
//
// 連接身份由服務器分配（遞增整數）；客戶端可在查詢參數帶上
// 先前拿到的 player_id，只有對應方塊仍然存活時才承認（重連），
// 否則一律分配新身份。
func (hub *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	playerID := 0
	if q := r.URL.Query().Get("player_id"); q != "" {
		if id, err := strconv.Atoi(q); err == nil && id > 0 && hub.game.HasPiece(id) {
			playerID = id
		}
	}
	if playerID == 0 {
		playerID = int(hub.nextID.Add(1))
	}

	conn, err := hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.Error("升級 WebSocket 失敗", "error", err)
		return
	}

	connection := &Connection{
		PlayerID: playerID,
		Conn:     conn,
		Send:     make(chan []byte, hub.buffer),
		Hub:      hub,
	}

	hub.register(connection)

	// 重連時取回原本的方塊類型，新玩家配置新方塊
	shape, reconnected := hub.game.Join(playerID)

	init, err := json.Marshal(InitMessage{
		Type:      "init",
		PlayerID:  playerID,
		PieceType: shape,
	})
	if err != nil {
		hub.logger.Error("序列化 init 訊息失敗", "error", err)
	} else {
		connection.enqueue(init)
	}

	connection.armTimer()

	go connection.writePump()
	go connection.readPump()

	hub.logger.Info("WebSocket 連接建立",
		"player_id", playerID,
		"reconnected", reconnected,
		"remote", r.RemoteAddr)
}

// register 註冊連接。同一身份的舊連接被新連接取代時直接關閉。
func (hub *Hub) register(conn *Connection) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	if old, exists := hub.connections[conn.PlayerID]; exists {
		old.cancelTimer()
		old.closeOnce.Do(func() {
			close(old.Send)
		})
		old.Conn.Close()
	}

	hub.connections[conn.PlayerID] = conn
}

// unregister 註銷連接。只有 map 中仍是這個連接時才移除，
// 避免誤刪已經取而代之的新連接。
func (hub *Hub) unregister(conn *Connection) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	if cur, exists := hub.connections[conn.PlayerID]; exists && cur == conn {
		delete(hub.connections, conn.PlayerID)
	}
	conn.closeOnce.Do(func() {
		close(conn.Send)
	})
}

// dropPlayer 終止清理：關閉連接並把玩家移出遊戲。
//
// 這是唯一呼叫 Game.RemovePlayer 的傳輸側路徑（探測失敗、異常關閉）。
// 若該身份已被另一個存活的連接持有（玩家已重連），跳過移除。
func (hub *Hub) dropPlayer(conn *Connection, reason string) {
	hub.mu.Lock()
	if cur, exists := hub.connections[conn.PlayerID]; exists && cur != conn {
		hub.mu.Unlock()
		return
	}
	delete(hub.connections, conn.PlayerID)
	hub.mu.Unlock()

	conn.cancelTimer()
	conn.closeOnce.Do(func() {
		close(conn.Send)
	})
	conn.Conn.Close()

	hub.game.RemovePlayer(conn.PlayerID)

	hub.logger.Info("連接已終止清理",
		"player_id", conn.PlayerID,
		"reason", reason)
}

// Broadcast 向所有連接廣播一則訊息。
//
// 非阻塞發送：慢客戶端的緩衝滿了就丟棄該幀（下一幀會帶上完整狀態），
// 不讓單一慢連接拖住整個廣播。
func (hub *Hub) Broadcast(message []byte) error {
	hub.mu.RLock()
	defer hub.mu.RUnlock()

	for _, conn := range hub.connections {
		select {
		case conn.Send <- message:
		default:
			hub.logger.Warn("連接緩衝區滿，丟棄本幀",
				"player_id", conn.PlayerID)
		}
	}
	return nil
}

// ConnectionCount 獲取當前連接數
func (hub *Hub) ConnectionCount() int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.connections)
}

// Stop 停止 Hub，關閉所有連接
func (hub *Hub) Stop() {
	hub.mu.Lock()
	for _, conn := range hub.connections {
		conn.cancelTimer()
		conn.closeOnce.Do(func() {
			close(conn.Send)
		})
		conn.Conn.Close()
	}
	hub.connections = make(map[int]*Connection)
	hub.mu.Unlock()

	hub.logger.Info("WebSocket Hub 已停止")
}

// enqueue 非阻塞排入待發送訊息
func (c *Connection) enqueue(message []byte) {
	select {
	case c.Send <- message:
	default:
		c.Hub.logger.Warn("連接緩衝區滿", "player_id", c.PlayerID)
	}
}

// armTimer 重排存活計時器：先取消任何未觸發的，再排一個新的。
// 每連接在任一時刻至多一個未觸發的計時器。
func (c *Connection) armTimer() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.Hub.timeout, c.onLivenessTimeout)
}

// cancelTimer 取消未觸發的計時器。對已觸發的計時器取消是冪等的：
// Stop 的回傳值不重要，觸發後的回呼自己會核對連接身份。
func (c *Connection) cancelTimer() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// onLivenessTimeout 計時器觸發：發送存活探測（Ping）。
//
// 探測發送失敗立即視為連接錯誤，走終止清理；
// 發送成功則重排計時器，等待下一次逾時或客戶端流量。
func (c *Connection) onLivenessTimeout() {
	err := c.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
	if err != nil {
		c.Hub.logger.Warn("存活探測失敗",
			"player_id", c.PlayerID,
			"error", err)
		c.Hub.dropPlayer(c, "存活探測失敗")
		return
	}
	c.armTimer()
}

// readPump 讀取客戶端訊息。
//
// 不設讀取期限：存活檢查由探測計時器負責。每則入站訊息
// （含 Pong）都重排計時器。
func (c *Connection) readPump() {
	defer func() {
		c.Hub.unregister(c)
		c.Conn.Close()
	}()

	if err := c.Conn.SetReadDeadline(time.Time{}); err != nil {
		c.Hub.logger.Error("清除讀取期限失敗", "error", err)
	}

	c.Conn.SetPongHandler(func(string) error {
		c.armTimer()
		return nil
	})

	for {
		messageType, message, err := c.Conn.ReadMessage()
		if err != nil {
			c.handleClose(err)
			return
		}

		c.armTimer()

		if messageType == websocket.TextMessage {
			c.handleMessage(message)
		}
	}
}

// handleClose 依關閉碼分流。
//
// 正常/離開：只記錄原因，方塊留在註冊表。已排定的存活探測
// 會對關閉的連接發送失敗，給玩家一個探測週期的重連窗口後才清理。
// 其他關閉碼（協議錯誤、異常斷線）：立即終止清理。
func (c *Connection) handleClose(err error) {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		c.Hub.logger.Info("客戶端正常離開",
			"player_id", c.PlayerID,
			"reason", err.Error())
		return
	}

	c.Hub.logger.Warn("連接異常關閉",
		"player_id", c.PlayerID,
		"error", err)
	c.Hub.dropPlayer(c, "連接異常關閉")
}

// handleMessage 處理一則入站輸入。
//
// 解析失敗只記錄並丟棄，連接保持開啟：格式錯誤不是會話層錯誤。
// 解析成功後以連接身份覆寫 player_id，再交給輸入處理。
func (c *Connection) handleMessage(message []byte) {
	var input KeyState
	if err := json.Unmarshal(message, &input); err != nil {
		c.Hub.logger.Warn("無法解析輸入訊息",
			"player_id", c.PlayerID,
			"error", err)
		return
	}

	// 不信任輸入，一律以連接身份重新標記
	input.PlayerID = c.PlayerID

	c.Hub.game.ApplyInput(input)
}

// writePump 把排隊的訊息寫給客戶端。
// Send channel 關閉時發送關閉幀後退出。
func (c *Connection) writePump() {
	defer c.Conn.Close()

	for message := range c.Send {
		if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			c.Hub.logger.Error("設置寫入期限失敗", "error", err)
		}
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}

		// 批量發送隊列中的訊息
		n := len(c.Send)
		for i := 0; i < n; i++ {
			next, ok := <-c.Send
			if !ok {
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, next); err != nil {
				return
			}
		}
	}

	// channel 已關閉，優雅關閉連接
	_ = c.Conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}
