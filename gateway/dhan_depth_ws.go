package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"depth-feed-go/infrastructure/logger"
	"depth-feed-go/market"
	"depth-feed-go/metrics"
)

const (
	// DhanDepthEndpoint 20 档深度行情地址
	DhanDepthEndpoint = "wss://depth-api-feed.dhan.co/twentydepth"

	RequestCodeSubscribe = 23
	DefaultSegment       = "NSE_EQ"
	DefaultSecurityID    = "2885"
)

// ErrConnectionClosed 对端关闭了连接
var ErrConnectionClosed = errors.New("feed connection closed")

// ConnectError 建连或发送订阅失败；由外层按固定间隔重试。
type ConnectError struct {
	Op  string
	Err error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("feed %s: %v", e.Op, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// Instrument 订阅的单个合约
type Instrument struct {
	ExchangeSegment string `json:"ExchangeSegment"`
	SecurityID      string `json:"SecurityId"`
}

// SubscribeRequest 连接后发送的 JSON 订阅请求
type SubscribeRequest struct {
	RequestCode     int          `json:"RequestCode"`
	InstrumentCount int          `json:"InstrumentCount"`
	InstrumentList  []Instrument `json:"InstrumentList"`
}

// NewSubscribeRequest 单合约订阅
func NewSubscribeRequest(segment, securityID string) SubscribeRequest {
	return SubscribeRequest{
		RequestCode:     RequestCodeSubscribe,
		InstrumentCount: 1,
		InstrumentList:  []Instrument{{ExchangeSegment: segment, SecurityID: securityID}},
	}
}

// DepthSink 接收解码后的整侧盘口
type DepthSink interface {
	UpdateSide(side market.Side, securityID int32, levels []market.DepthLevel)
}

// FeedConfig 行情连接参数；token/clientId 只透传不解析。
type FeedConfig struct {
	Endpoint         string
	Token            string
	ClientID         string
	ExchangeSegment  string
	SecurityID       string
	HandshakeTimeout time.Duration
}

// DepthFeed 维护对单个合约深度行情的订阅：连接、订阅、读取、解码。
// 重连不在这里做，见 internal/exchange.DepthStream。
type DepthFeed struct {
	mu        sync.RWMutex
	cfg       FeedConfig
	connected atomic.Bool
	sink      DepthSink
	log       *logger.Logger
	Dialer    *websocket.Dialer
}

func NewDepthFeed(cfg FeedConfig, sink DepthSink, log *logger.Logger) *DepthFeed {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DhanDepthEndpoint
	}
	if cfg.ExchangeSegment == "" {
		cfg.ExchangeSegment = DefaultSegment
	}
	if cfg.SecurityID == "" {
		cfg.SecurityID = DefaultSecurityID
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &DepthFeed{
		cfg:    cfg,
		sink:   sink,
		log:    log,
		Dialer: &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
	}
}

// SetCredentials 更新 token/clientId，下一次拨号生效。
func (f *DepthFeed) SetCredentials(token, clientID string) {
	f.mu.Lock()
	f.cfg.Token = token
	f.cfg.ClientID = clientID
	f.mu.Unlock()
}

// Credentials 当前 token/clientId
func (f *DepthFeed) Credentials() (token, clientID string) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.cfg.Token, f.cfg.ClientID
}

// Connected 当前是否处于已订阅的读取循环中
func (f *DepthFeed) Connected() bool {
	return f.connected.Load()
}

// URL 拼接 <endpoint>?token=T&clientId=C&authType=2
func (f *DepthFeed) URL() (string, error) {
	f.mu.RLock()
	cfg := f.cfg
	f.mu.RUnlock()
	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	u.RawQuery = "token=" + url.QueryEscape(cfg.Token) +
		"&clientId=" + url.QueryEscape(cfg.ClientID) +
		"&authType=2"
	return u.String(), nil
}

// Connect 拨号并立即发送订阅请求。失败返回 *ConnectError，不在内部重试。
func (f *DepthFeed) Connect(ctx context.Context) (*websocket.Conn, error) {
	wsURL, err := f.URL()
	if err != nil {
		return nil, &ConnectError{Op: "dial", Err: err}
	}
	conn, _, err := f.Dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, &ConnectError{Op: "dial", Err: err}
	}
	f.mu.RLock()
	req := NewSubscribeRequest(f.cfg.ExchangeSegment, f.cfg.SecurityID)
	f.mu.RUnlock()
	if err := conn.WriteJSON(req); err != nil {
		_ = conn.Close()
		return nil, &ConnectError{Op: "subscribe", Err: err}
	}
	return conn, nil
}

// Run 建连、订阅并阻塞读取，直到连接关闭或出错；返回终止原因。
func (f *DepthFeed) Run(ctx context.Context) (err error) {
	conn, err := f.Connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	connID := uuid.NewString()
	log := f.log.WithFields(map[string]interface{}{"conn_id": connID})
	_, clientID := f.Credentials()
	log.LogFeed("feed_connected", map[string]interface{}{
		"client_id":   clientID,
		"security_id": f.cfg.SecurityID,
	})
	f.connected.Store(true)
	metrics.WSConnected.Set(1)
	defer func() {
		f.connected.Store(false)
		metrics.WSConnected.Set(0)
	}()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("feed receive panic: %v", r)
			log.LogError(err, map[string]interface{}{"action": "receive"})
		}
	}()
	return f.ReceiveLoop(ctx, conn, log)
}

// ReceiveLoop 逐帧读取并交给 HandleFrame。
// 不设置读超时：挂死的连接只能等对端关闭才会恢复。
func (f *DepthFeed) ReceiveLoop(ctx context.Context, conn *websocket.Conn, log *logger.Logger) error {
	if log == nil {
		log = f.log
	}
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				log.LogFeed("feed_disconnected", map[string]interface{}{
					"code":   closeErr.Code,
					"reason": "Connection closed. Reconnecting...",
				})
				return fmt.Errorf("%w: %v", ErrConnectionClosed, err)
			}
			log.LogError(err, map[string]interface{}{"action": "receive"})
			return fmt.Errorf("receive frame: %w", err)
		}
		// 格式错误只丢弃当前帧，不断开连接
		_ = f.handleFrame(log, msg)
	}
}

// HandleFrame 解析单帧并更新盘口。
// 不足 12 字节：打印诊断并丢弃；41/51：解码 20 档整侧替换；其它 feed code 忽略。
func (f *DepthFeed) HandleFrame(frame []byte) error {
	return f.handleFrame(f.log, frame)
}

// handleFrame 诊断日志写到调用方给的 logger（读循环里带 conn_id）。
func (f *DepthFeed) handleFrame(log *logger.Logger, frame []byte) error {
	if len(frame) < HeaderSize {
		log.Warn("message too short - not subscribed", zap.Int("len", len(frame)))
		metrics.ObserveFrameDropped("too_short")
		return ErrFrameTooShort
	}
	h, err := DecodeHeader(frame)
	if err != nil {
		return err
	}
	metrics.FramesReceived.WithLabelValues(strconv.Itoa(int(h.FeedCode))).Inc()

	side, ok := SideForFeedCode(h.FeedCode)
	if !ok {
		return nil
	}
	levels, err := DecodeLevels(frame)
	if err != nil {
		log.LogFeed("frame_dropped", map[string]interface{}{
			"feed_code":   h.FeedCode,
			"security_id": h.SecurityID,
			"len":         len(frame),
			"error":       err.Error(),
		})
		metrics.ObserveFrameDropped("truncated_body")
		return err
	}
	if f.sink != nil {
		f.sink.UpdateSide(side, h.SecurityID, levels)
	}
	return nil
}
