// Package tetris 提供了一個多人即時俄羅斯方塊遊戲服務器。
//
// 實現了一個多個玩家共用同一遊戲盤面的權威服務器（authoritative server），
// 每個玩家控制自己的下落方塊，服務器以固定幀率廣播遊戲狀態。
//
// 遊戲狀態引擎
//
// 核心是一個併發安全的共享狀態聚合：
//   - 玩家註冊表：連接身份 -> 下落中的方塊
//   - 落定盤面：格子座標 -> 方塊形狀（只增不減）
//   - 碰撞引擎：純函數，判定方塊放置是否合法
//   - 重力模擬：獨立 goroutine 定期推進方塊下落與落定
//
// # WebSocket 通訊
//
// 實現了即時雙向通訊機制：
//   - 連接建立時發送 init 訊息（玩家 ID 與方塊類型）
//   - 每幀（約 60Hz）廣播完整遊戲狀態快照
//   - 存活探測（逾時發送 Ping，失敗即清理）
//   - 斷線重連（同一身份取回原本的方塊）
//
// 併發安全設計
//
// 採用單一互斥鎖保護共享聚合的策略：
//   - 註冊表與盤面由同一把鎖保護（重力步驟需要兩者原子性）
//   - 持鎖期間絕不進行網路 I/O
//   - 模擬迴圈與各連接的輸入處理互斥
//   - 持鎖時 panic 直接讓程序崩潰（fail-fast，不帶著可能損壞的狀態繼續）
//
// 使用範例
//
// 啟動服務器：
//
//	game := internal.NewGame(cfg, logger, nil)
//	hub := internal.NewHub(game, cfg, logger)
//	loop := internal.NewLoop(game, hub, cfg, logger)
//	loop.Start()
//
//	http.HandleFunc("/ws", hub.ServeWS)
//	log.Fatal(http.ListenAndServe(":3012", nil))
//
// 客戶端連接：
//
//	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:3012/ws", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ws.Close()
//
// 架構設計
//
// 系統採用分層架構設計：
//   - Hub 層：WebSocket 連接管理與存活探測
//   - Game 層：共享遊戲狀態與規則（鎖保護的聚合）
//   - Loop 層：模擬迴圈（重力節拍與廣播節拍分離）
//   - Handler 層：健康檢查與統計端點
//
// 配置選項
//
// 支援多種運行時配置：
//   - -config：YAML 配置檔路徑
//   - -port：服務監聽端口（預設 3012）
//   - -log-level：日誌級別（debug/info/warn/error）
//   - -log-format：日誌格式（text/json）
package tetris
