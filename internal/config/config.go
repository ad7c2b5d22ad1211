package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	// MaxMessageBytes limits a single inbound WebSocket frame.
	MaxMessageBytes int64 `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	// OutboundQueueSize is the per-connection event buffer.
	OutboundQueueSize int `mapstructure:"outbound_queue_size" yaml:"outbound_queue_size"`
	// RoomInboxSize is the per-room command queue capacity.
	RoomInboxSize int `mapstructure:"room_inbox_size" yaml:"room_inbox_size"`

	InboundRate       float64 `mapstructure:"inbound_rate" yaml:"inbound_rate"`
	InboundBurst      int     `mapstructure:"inbound_burst" yaml:"inbound_burst"`
	MaxRateViolations int     `mapstructure:"max_rate_violations" yaml:"max_rate_violations"`

	// ChatHistoryLimit keeps only the newest N messages per room. Zero keeps everything.
	ChatHistoryLimit int `mapstructure:"chat_history_limit" yaml:"chat_history_limit"`
	MaxStrokePoints  int `mapstructure:"max_stroke_points" yaml:"max_stroke_points"`
	// RoomIdleTTL reaps rooms that stayed empty this long. Zero retains rooms until shutdown.
	RoomIdleTTL time.Duration `mapstructure:"room_idle_ttl" yaml:"room_idle_ttl"`

	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		MaxMessageBytes:   1 << 20,
		OutboundQueueSize: 256,
		RoomInboxSize:     128,
		InboundRate:       50,
		InboundBurst:      100,
		MaxRateViolations: 500,
		ChatHistoryLimit:  0,
		MaxStrokePoints:   10000,
		RoomIdleTTL:       0,
		AllowedOrigins:    []string{"*"},
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.MaxMessageBytes != 0 {
		c.MaxMessageBytes = other.MaxMessageBytes
	}
	if other.OutboundQueueSize != 0 {
		c.OutboundQueueSize = other.OutboundQueueSize
	}
	if other.RoomInboxSize != 0 {
		c.RoomInboxSize = other.RoomInboxSize
	}
	if other.InboundRate != 0 {
		c.InboundRate = other.InboundRate
	}
	if other.InboundBurst != 0 {
		c.InboundBurst = other.InboundBurst
	}
	if other.MaxRateViolations != 0 {
		c.MaxRateViolations = other.MaxRateViolations
	}
	if other.ChatHistoryLimit != 0 {
		c.ChatHistoryLimit = other.ChatHistoryLimit
	}
	if other.MaxStrokePoints != 0 {
		c.MaxStrokePoints = other.MaxStrokePoints
	}
	if other.RoomIdleTTL != 0 {
		c.RoomIdleTTL = other.RoomIdleTTL
	}
	if len(other.AllowedOrigins) > 0 {
		c.AllowedOrigins = append([]string(nil), other.AllowedOrigins...)
	}
}
