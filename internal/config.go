package internal

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 整個應用的配置
type Config struct {
	Server struct {
		Port         int           `yaml:"port"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
		IdleTimeout  time.Duration `yaml:"idle_timeout"`
	} `yaml:"server"`

	Game struct {
		BoardWidth    int           `yaml:"board_width"`
		BoardHeight   int           `yaml:"board_height"`
		SpawnX        int           `yaml:"spawn_x"`
		SpawnY        int           `yaml:"spawn_y"`
		FramePeriod   time.Duration `yaml:"frame_period"`   // 廣播節拍（約 60Hz）
		GravityPeriod time.Duration `yaml:"gravity_period"` // 重力節拍
	} `yaml:"game"`

	WebSocket struct {
		LivenessTimeout time.Duration `yaml:"liveness_timeout"` // 靜默多久後發送存活探測
		SendBuffer      int           `yaml:"send_buffer"`
		ReadBufferSize  int           `yaml:"read_buffer_size"`
		WriteBufferSize int           `yaml:"write_buffer_size"`
	} `yaml:"websocket"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// DefaultConfig 預設配置。
//
// 遊戲常數沿用原始設計：出生點 (5,5)、幀率 1000/60 毫秒、
// 存活逾時 3 秒、端口 3012。
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Port = 3012
	cfg.Server.ReadTimeout = 15 * time.Second
	cfg.Server.WriteTimeout = 15 * time.Second
	cfg.Server.IdleTimeout = 60 * time.Second

	cfg.Game.BoardWidth = 10
	cfg.Game.BoardHeight = 20
	cfg.Game.SpawnX = 5
	cfg.Game.SpawnY = 5
	cfg.Game.FramePeriod = 1000 / 60 * time.Millisecond
	cfg.Game.GravityPeriod = 1 * time.Second

	cfg.WebSocket.LivenessTimeout = 3 * time.Second
	cfg.WebSocket.SendBuffer = 256
	cfg.WebSocket.ReadBufferSize = 1024
	cfg.WebSocket.WriteBufferSize = 1024

	cfg.Log.Level = "info"
	cfg.Log.Format = "text"

	return cfg
}

// LoadConfig 從 YAML 檔案載入配置，檔案中未出現的欄位保留預設值。
// path 為空字串時直接回傳預設配置。
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("讀取配置檔失敗: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("解析配置檔失敗: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate 檢查配置的合法性
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("無效的端口: %d", c.Server.Port)
	}
	if c.Game.BoardWidth < 4 || c.Game.BoardHeight < 4 {
		return fmt.Errorf("盤面尺寸過小: %dx%d", c.Game.BoardWidth, c.Game.BoardHeight)
	}
	if c.Game.SpawnX < 0 || c.Game.SpawnX >= c.Game.BoardWidth {
		return fmt.Errorf("出生點 X 超出盤面: %d", c.Game.SpawnX)
	}
	if c.Game.FramePeriod <= 0 || c.Game.GravityPeriod <= 0 {
		return fmt.Errorf("節拍週期必須為正值")
	}
	if c.WebSocket.LivenessTimeout <= 0 {
		return fmt.Errorf("存活逾時必須為正值")
	}
	return nil
}

// Bounds 由配置導出的盤面邊界
func (c *Config) Bounds() Bounds {
	return Bounds{Width: c.Game.BoardWidth, Height: c.Game.BoardHeight}
}

// SpawnPivot 由配置導出的固定出生點
func (c *Config) SpawnPivot() Pivot {
	return Pivot{X: c.Game.SpawnX, Y: c.Game.SpawnY}
}
