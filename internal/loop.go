package internal

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Broadcaster 對模擬迴圈而言，傳輸層只是一個能廣播位元組的東西。
// 單次廣播失敗只記錄、不重試，也不會停下迴圈。
type Broadcaster interface {
	Broadcast(message []byte) error
}

// Loop 模擬迴圈：推進世界時間、套用重力、發出狀態快照。
//
// 兩個節拍是分離的：
//   - 幀節拍（約 16ms）：每幀產生快照並廣播
//   - 重力節拍（約 1s）：距上次重力步驟超過週期才推進一次下落
//
// 迴圈在自己的 goroutine 上運行，與所有連接處理互相獨立，
// 只透過 Game 的共享鎖與 Broadcaster 介面和外界協調。
type Loop struct {
	game        *Game
	broadcaster Broadcaster
	logger      *slog.Logger

	framePeriod   time.Duration
	gravityPeriod time.Duration

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewLoop 創建模擬迴圈（尚未啟動）
func NewLoop(game *Game, broadcaster Broadcaster, cfg *Config, logger *slog.Logger) *Loop {
	return &Loop{
		game:          game,
		broadcaster:   broadcaster,
		logger:        logger,
		framePeriod:   cfg.Game.FramePeriod,
		gravityPeriod: cfg.Game.GravityPeriod,
		stopCh:        make(chan struct{}),
	}
}

// Start 啟動模擬迴圈 goroutine
func (l *Loop) Start() {
	l.wg.Add(1)
	go l.run()

	l.logger.Info("模擬迴圈已啟動",
		"frame_period", l.framePeriod,
		"gravity_period", l.gravityPeriod)
}

// run 迴圈主體。服務器存活期間不會自行終止。
func (l *Loop) run() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.framePeriod)
	defer ticker.Stop()

	lastGravity := time.Now()

	for {
		select {
		case now := <-ticker.C:
			if now.Sub(lastGravity) >= l.gravityPeriod {
				l.game.StepGravity()
				lastGravity = now
			}
			l.Tick()
		case <-l.stopCh:
			return
		}
	}
}

// Tick 產生一幀快照並廣播。
//
// 快照在 Game 的鎖內複製完成後，序列化與廣播都在鎖外進行，
// 廣播絕不持有模擬鎖。廣播失敗只記錄，下一幀照常進行。
func (l *Loop) Tick() {
	snapshot := l.game.Snapshot()

	message, err := json.Marshal(snapshot)
	if err != nil {
		l.logger.Error("序列化遊戲狀態失敗", "error", err)
		return
	}

	if err := l.broadcaster.Broadcast(message); err != nil {
		l.logger.Error("廣播遊戲狀態失敗", "error", err)
	}
}

// Stop 停止模擬迴圈並等待其退出
func (l *Loop) Stop() {
	close(l.stopCh)
	l.wg.Wait()

	l.logger.Info("模擬迴圈已停止")
}
