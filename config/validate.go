package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures required fields are present.
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return errors.New("env is required")
	}
	if cfg.Feed.Token == "" || cfg.Feed.ClientID == "" {
		return errors.New("feed.token/clientId is required (or DHAN_TOKEN/DHAN_CLIENT_ID)")
	}
	u, err := url.Parse(cfg.Feed.Endpoint)
	if err != nil {
		return fmt.Errorf("feed.endpoint invalid: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("feed.endpoint scheme must be ws or wss, got %q", u.Scheme)
	}
	if cfg.Feed.SecurityID == "" {
		return errors.New("feed.securityId is required")
	}
	if cfg.Feed.ReconnectDelayMs < 0 {
		return errors.New("feed.reconnectDelayMs must be >= 0")
	}
	if cfg.Feed.MaxAttempts < 0 {
		return errors.New("feed.maxAttempts must be >= 0")
	}
	if cfg.Feed.HandshakeTimeoutMs < 0 {
		return errors.New("feed.handshakeTimeoutMs must be >= 0")
	}
	if cfg.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}
	return nil
}
