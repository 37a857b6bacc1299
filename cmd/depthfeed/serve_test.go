package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuperviseWaitsForCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		// 提前返回的任务不应让 supervise 结束
		done <- supervise(ctx, func(context.Context) error { return nil })
	}()

	select {
	case err := <-done:
		t.Fatalf("supervise returned before cancel: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("supervise did not return after cancel")
	}
}

func TestSuperviseStopsOnWorkerError(t *testing.T) {
	boom := errors.New("boom")
	stopped := make(chan struct{})
	err := supervise(context.Background(),
		func(context.Context) error { return boom },
		func(ctx context.Context) error {
			<-ctx.Done()
			close(stopped)
			return ctx.Err()
		},
	)
	require.ErrorIs(t, err, boom)
	<-stopped
}

func TestWatchdogDisabledWithoutSystemd(t *testing.T) {
	t.Setenv("WATCHDOG_USEC", "")
	t.Setenv("WATCHDOG_PID", "")
	assert.NoError(t, watchdog(context.Background(), nil))
}
