package exchange

import (
	"context"
	"time"
)

// ReconnectPolicy 固定间隔重连：无指数退避、无熔断。MaxAttempts<=0 表示无限。
type ReconnectPolicy struct {
	Delay       time.Duration
	MaxAttempts int
}

// DefaultReconnectPolicy 每 5 秒重连一次，永不放弃。
func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{Delay: 5 * time.Second}
}

// Allow 第 attempt 次（从 0 开始）是否允许拨号。
func (p ReconnectPolicy) Allow(attempt int) bool {
	return p.MaxAttempts <= 0 || attempt < p.MaxAttempts
}

// Sleeper 抽象等待，便于测试替换成假时钟。
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realSleeper struct{}

func (realSleeper) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RealSleeper 默认使用真实计时器。
var RealSleeper Sleeper = realSleeper{}
