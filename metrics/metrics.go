// Package metrics provides Prometheus metrics for the depth feed
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// WSConnected 上游 WS 是否在线（1/0）
	WSConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "depthfeed_ws_connected",
		Help: "Whether the upstream depth websocket is connected",
	})

	// FeedReconnects 重连次数（含首次之后的每次拨号）
	FeedReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "depthfeed_ws_reconnects_total",
		Help: "Number of reconnect attempts to the upstream feed",
	})

	// ConnectErrors 拨号/订阅失败次数
	ConnectErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "depthfeed_connect_errors_total",
		Help: "Number of failed connect or subscribe attempts",
	})

	// FramesReceived 按 feed code 统计收到的帧
	FramesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "depthfeed_frames_total",
		Help: "Binary frames received by feed code",
	}, []string{"feed_code"})

	// FramesDropped 按原因统计丢弃的帧
	FramesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "depthfeed_frames_dropped_total",
		Help: "Binary frames dropped by reason",
	}, []string{"reason"})

	// DepthUpdates 按方向统计整侧替换次数
	DepthUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "depthfeed_depth_updates_total",
		Help: "Whole-side depth replacements applied to the store",
	}, []string{"side"})

	// LastUpdateUnix 最近一次盘口更新时间（秒）
	LastUpdateUnix = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "depthfeed_last_update_timestamp_seconds",
		Help: "Unix time of the last applied depth update",
	})

	// BestPrice 第一档价格
	BestPrice = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "depthfeed_best_price",
		Help: "Top-of-book price per side",
	}, []string{"side"})

	// StreamSubscribers 本地 WS 推送订阅数
	StreamSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "depthfeed_stream_subscribers",
		Help: "Local websocket clients receiving depth pushes",
	})
)

// ObserveDepthUpdate 记录一次整侧替换
func ObserveDepthUpdate(side string, best float64, ts time.Time) {
	DepthUpdates.WithLabelValues(side).Inc()
	BestPrice.WithLabelValues(side).Set(best)
	LastUpdateUnix.Set(float64(ts.UnixNano()) / 1e9)
}

// ObserveFrameDropped 记录丢帧
func ObserveFrameDropped(reason string) {
	FramesDropped.WithLabelValues(reason).Inc()
}

// Handler 返回 /metrics 处理器
func Handler() http.Handler {
	return promhttp.Handler()
}
