package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix = "WIREROOM"
	// envConfigDir points the default config.yaml at another directory.
	envConfigDir   = "WIREROOM_CONFIG_DEFAULT_PATH"
	configFileName = "config.yaml"
)

// Load resolves the server settings. Keys come from Default, then the YAML
// file, then WIREROOM_* variables (WIREROOM_ROOM_IDLE_TTL=30s and so on).
// Command-line flags are applied by the caller through UpdateFrom. A missing
// file is created with the defaults so operators have something to edit.
// The returned path is the file that was consulted.
func Load(logger *zerolog.Logger, explicitPath string) (Config, string, error) {
	cfg := Default()
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	v := viper.New()
	v.SetConfigType("yaml")
	for key, value := range settingDefaults(cfg) {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := configPath(explicitPath)
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return cfg, path, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := writeDefaults(path, cfg); err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("cannot create default config, using built-in defaults")
		} else {
			logger.Info().Str("path", path).Msg("wrote default config")
			if err := v.ReadInConfig(); err != nil {
				logger.Warn().Err(err).Str("path", path).Msg("cannot read freshly written config")
			}
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, path, fmt.Errorf("decode config: %w", err)
	}
	return cfg, path, nil
}

// settingDefaults registers every key with viper so env-only overrides are
// seen by Unmarshal.
func settingDefaults(cfg Config) map[string]any {
	return map[string]any{
		"addr":                cfg.Addr,
		"read_header_timeout": cfg.ReadHeaderTimeout,
		"shutdown_timeout":    cfg.ShutdownTimeout,
		"log_level":           cfg.LogLevel,
		"max_message_bytes":   cfg.MaxMessageBytes,
		"outbound_queue_size": cfg.OutboundQueueSize,
		"room_inbox_size":     cfg.RoomInboxSize,
		"inbound_rate":        cfg.InboundRate,
		"inbound_burst":       cfg.InboundBurst,
		"max_rate_violations": cfg.MaxRateViolations,
		"chat_history_limit":  cfg.ChatHistoryLimit,
		"max_stroke_points":   cfg.MaxStrokePoints,
		"room_idle_ttl":       cfg.RoomIdleTTL,
		"allowed_origins":     cfg.AllowedOrigins,
	}
}

// configPath picks --config, then $WIREROOM_CONFIG_DEFAULT_PATH/config.yaml,
// then ./config.yaml.
func configPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if dir := os.Getenv(envConfigDir); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err == nil {
			return filepath.Join(dir, configFileName)
		}
	}
	if cwd, err := os.Getwd(); err == nil {
		return filepath.Join(cwd, configFileName)
	}
	return configFileName
}

func writeDefaults(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
