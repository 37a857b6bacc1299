package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"depth-feed-go/infrastructure/logger"
)

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env     string        `yaml:"env"`
	Debug   bool          `yaml:"debug"`
	Feed    FeedConfig    `yaml:"feed"`
	HTTP    HTTPConfig    `yaml:"http"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     logger.Config `yaml:"log"`
}

// FeedConfig 上游深度行情；token/clientId 只透传。
type FeedConfig struct {
	Endpoint           string `yaml:"endpoint"`
	Token              string `yaml:"token"`
	ClientID           string `yaml:"clientId"`
	ExchangeSegment    string `yaml:"exchangeSegment"`
	SecurityID         string `yaml:"securityId"`
	ReconnectDelayMs   int    `yaml:"reconnectDelayMs"`   // 断线后固定等待
	MaxAttempts        int    `yaml:"maxAttempts"`        // 0 = 无限重连
	HandshakeTimeoutMs int    `yaml:"handshakeTimeoutMs"` // WS 握手超时
}

type HTTPConfig struct {
	Addr              string `yaml:"addr"`
	ExposeCredentials bool   `yaml:"exposeCredentials"` // 是否开放 /config
}

type MetricsConfig struct {
	Addr     string `yaml:"addr"`     // 留空使用 DefaultMetricsAddr
	Disabled bool   `yaml:"disabled"` // 关闭 /metrics 监听
}

// EnvFiles are loaded (if present) before env overrides are applied.
var EnvFiles = []string{".env"}

// Load reads YAML config from path, applies defaults and basic validation.
// An empty path yields the defaults.
func Load(path string) (AppConfig, error) {
	cfg, err := parse(path)
	if err != nil {
		return cfg, err
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config then overrides sensitive fields from env vars if present.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := parse(path)
	if err != nil {
		return cfg, err
	}
	if err := loadEnvFiles(); err != nil {
		return cfg, err
	}
	if v := os.Getenv("DHAN_TOKEN"); v != "" {
		cfg.Feed.Token = v
	}
	if v := os.Getenv("DHAN_CLIENT_ID"); v != "" {
		cfg.Feed.ClientID = v
	}
	if v := os.Getenv("DHAN_SECURITY_ID"); v != "" {
		cfg.Feed.SecurityID = v
	}
	if v, ok := os.LookupEnv("DEBUG_MODE"); ok {
		cfg.Debug = parseBool(v)
	}
	if cfg.Debug {
		cfg.Log.Level = "debug"
	}
	return cfg, Validate(cfg)
}

func parse(path string) (AppConfig, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func loadEnvFiles() error {
	for _, f := range EnvFiles {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load env file %s: %w", f, err)
		}
	}
	return nil
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "t":
		return true
	}
	return false
}

// ReconnectDelay 重连间隔
func (f FeedConfig) ReconnectDelay() time.Duration {
	return time.Duration(f.ReconnectDelayMs) * time.Millisecond
}

// HandshakeTimeout 握手超时
func (f FeedConfig) HandshakeTimeout() time.Duration {
	return time.Duration(f.HandshakeTimeoutMs) * time.Millisecond
}
