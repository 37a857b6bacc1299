package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcherTriggersOnChange(t *testing.T) {
	noEnvFiles(t)
	unsetEnv(t, "DHAN_TOKEN", "DHAN_CLIENT_ID", "DHAN_SECURITY_ID", "DEBUG_MODE")
	path := writeTempConfig(t, `
env: dev
feed:
  token: old
  clientId: c1
`)
	w, err := NewWatcher(path, 10*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := make(chan AppConfig, 4)
	go func() {
		_ = w.Run(ctx, func(cfg AppConfig) { ch <- cfg })
	}()

	require.NoError(t, os.WriteFile(path, []byte("env: dev\nfeed:\n  token: new\n  clientId: c2\n"), 0o644))
	select {
	case cfg := <-ch:
		require.Equal(t, "new", cfg.Feed.Token)
		require.Equal(t, "c2", cfg.Feed.ClientID)
	case <-time.After(3 * time.Second):
		t.Fatalf("expected update callback")
	}
}

func TestWatcherReportsInvalidConfig(t *testing.T) {
	noEnvFiles(t)
	unsetEnv(t, "DHAN_TOKEN", "DHAN_CLIENT_ID", "DHAN_SECURITY_ID", "DEBUG_MODE")
	path := writeTempConfig(t, "env: dev\nfeed:\n  token: a\n  clientId: b\n")
	w, err := NewWatcher(path, 10*time.Millisecond)
	require.NoError(t, err)
	errs := make(chan error, 4)
	w.OnError = func(err error) { errs <- err }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates := make(chan AppConfig, 4)
	go func() {
		_ = w.Run(ctx, func(cfg AppConfig) { updates <- cfg })
	}()

	require.NoError(t, os.WriteFile(path, []byte("env: dev\nfeed:\n  token: \"\"\n"), 0o644))
	select {
	case err := <-errs:
		require.ErrorContains(t, err, "reload config")
	case cfg := <-updates:
		t.Fatalf("invalid config must not be applied: %+v", cfg)
	case <-time.After(3 * time.Second):
		t.Fatalf("expected reload error")
	}
}

func TestWatcherStopsOnCancel(t *testing.T) {
	path := writeTempConfig(t, "env: dev\n")
	w, err := NewWatcher(path, 0)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, w.Run(ctx, nil), context.Canceled)
}
