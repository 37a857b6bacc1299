package config

import "depth-feed-go/infrastructure/logger"

const (
	DefaultEndpoint         = "wss://depth-api-feed.dhan.co/twentydepth"
	DefaultExchangeSegment  = "NSE_EQ"
	DefaultSecurityID       = "2885"
	DefaultReconnectDelayMs = 5000
	DefaultHandshakeMs      = 10000
	DefaultHTTPAddr         = ":5000"
	DefaultMetricsAddr      = ":9100"
)

// Defaults 返回未读文件时的完整默认配置
func Defaults() AppConfig {
	cfg := AppConfig{Env: "dev"}
	applyDefaults(&cfg)
	return cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Env == "" {
		cfg.Env = "dev"
	}
	if cfg.Feed.Endpoint == "" {
		cfg.Feed.Endpoint = DefaultEndpoint
	}
	if cfg.Feed.ExchangeSegment == "" {
		cfg.Feed.ExchangeSegment = DefaultExchangeSegment
	}
	if cfg.Feed.SecurityID == "" {
		cfg.Feed.SecurityID = DefaultSecurityID
	}
	if cfg.Feed.ReconnectDelayMs == 0 {
		cfg.Feed.ReconnectDelayMs = DefaultReconnectDelayMs
	}
	if cfg.Feed.HandshakeTimeoutMs == 0 {
		cfg.Feed.HandshakeTimeoutMs = DefaultHandshakeMs
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = DefaultHTTPAddr
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = DefaultMetricsAddr
	}
	def := logger.DefaultConfig()
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Level
	}
	if len(cfg.Log.Outputs) == 0 {
		cfg.Log.Outputs = def.Outputs
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = def.Format
	}
}
