package exchange

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"depth-feed-go/gateway"
	"depth-feed-go/infrastructure/logger"
	"depth-feed-go/metrics"
)

// Feed 单次连接的生命周期：建连、订阅、读到断开为止。
type Feed interface {
	Run(ctx context.Context) error
	Connected() bool
}

// DepthStream 在独立 goroutine 中驱动 Feed：断开后等待固定间隔再重连，直到 Stop。
type DepthStream struct {
	feed    Feed
	policy  ReconnectPolicy
	sleeper Sleeper
	log     *logger.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool

	attempts  atomic.Int64
	eventSink func(string, map[string]interface{})
}

func NewDepthStream(feed Feed, policy ReconnectPolicy, log *logger.Logger) *DepthStream {
	if log == nil {
		log = logger.NewNop()
	}
	return &DepthStream{
		feed:    feed,
		policy:  policy,
		sleeper: RealSleeper,
		log:     log,
	}
}

// SetSleeper 替换等待实现（测试用假时钟）
func (s *DepthStream) SetSleeper(sl Sleeper) {
	s.sleeper = sl
}

// SetEventSink 设置事件回调（例如记录连接状态）
func (s *DepthStream) SetEventSink(fn func(string, map[string]interface{})) {
	s.eventSink = fn
}

// Start 启动后台重连循环，立即返回。
func (s *DepthStream) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New("depth stream already started")
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.started = true
	go s.run(runCtx, s.done)
	return nil
}

// Stop 取消循环并等待当前连接退出。
func (s *DepthStream) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	cancel, done := s.cancel, s.done
	s.started = false
	s.mu.Unlock()

	cancel()
	select {
	case <-done:
		return nil
	case <-time.After(5 * time.Second):
		return errors.New("depth stream stop timeout")
	}
}

// Health 未连接时返回错误
func (s *DepthStream) Health() error {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return errors.New("depth stream not started")
	}
	if !s.feed.Connected() {
		return fmt.Errorf("depth feed not connected (attempts=%d)", s.attempts.Load())
	}
	return nil
}

// Attempts 已发起的连接次数
func (s *DepthStream) Attempts() int64 {
	return s.attempts.Load()
}

// Done 循环退出后关闭；未启动返回 nil。
func (s *DepthStream) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

func (s *DepthStream) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	for attempt := 0; ; attempt++ {
		if ctx.Err() != nil {
			return
		}
		if !s.policy.Allow(attempt) {
			s.log.LogFeed("feed_gave_up", map[string]interface{}{"attempts": attempt})
			return
		}
		s.attempts.Add(1)
		if attempt > 0 {
			metrics.FeedReconnects.Inc()
		}

		err := s.feed.Run(ctx)
		if ctx.Err() != nil {
			return
		}

		var connErr *gateway.ConnectError
		switch {
		case errors.As(err, &connErr):
			metrics.ConnectErrors.Inc()
			s.log.LogError(err, map[string]interface{}{"action": "connect", "attempt": attempt + 1})
		case errors.Is(err, gateway.ErrConnectionClosed):
			s.emit("ws_disconnected", map[string]interface{}{"reason": "closed"})
		case err != nil:
			s.emit("ws_disconnected", map[string]interface{}{"reason": err.Error()})
		}
		s.log.LogFeed("feed_reconnect_scheduled", map[string]interface{}{
			"delay_ms": s.policy.Delay.Milliseconds(),
			"attempt":  attempt + 1,
		})

		if err := s.sleeper.Sleep(ctx, s.policy.Delay); err != nil {
			return
		}
	}
}

func (s *DepthStream) emit(event string, fields map[string]interface{}) {
	if s.eventSink != nil {
		s.eventSink(event, fields)
	}
}
