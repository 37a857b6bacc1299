package container

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"depth-feed-go/config"
	"depth-feed-go/gateway"
	"depth-feed-go/market"
)

func bidFrame(price float64) []byte {
	lv := make([]market.DepthLevel, market.LevelsPerSide)
	for i := range lv {
		lv[i] = market.DepthLevel{Price: price - float64(i), Quantity: 100, Orders: 2}
	}
	return gateway.EncodeDepthFrame(gateway.FrameHeader{FeedCode: gateway.FeedCodeBid, ExchangeSegment: 1, SecurityID: 2885}, lv)
}

// upstream 推一帧买盘后保持连接，直到测试结束
func upstream(t *testing.T, tokens chan<- string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case tokens <- r.URL.Query().Get("token"):
		default:
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		var req gateway.SubscribeRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		_ = conn.WriteMessage(websocket.BinaryMessage, bidFrame(2500.5))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func testConfig(endpoint string) config.AppConfig {
	cfg := config.Defaults()
	cfg.Feed.Endpoint = endpoint
	cfg.Feed.Token = "tok"
	cfg.Feed.ClientID = "cid"
	cfg.Feed.ReconnectDelayMs = 20
	cfg.HTTP.Addr = "127.0.0.1:0"
	cfg.Metrics.Disabled = true
	cfg.Log.Level = "error"
	return cfg
}

func TestContainerServesLiveDepth(t *testing.T) {
	tokens := make(chan string, 4)
	up := upstream(t, tokens)
	defer up.Close()

	c := NewWithConfig(testConfig("ws"+strings.TrimPrefix(up.URL, "http")), "")
	require.NoError(t, c.Build())
	require.NoError(t, c.Start(context.Background()))
	defer c.Stop()

	require.Eventually(t, func() bool {
		return len(c.Store().Snapshot().Bids) == market.LevelsPerSide
	}, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, "tok", <-tokens)
	require.Eventually(t, func() bool { return c.HealthCheck() == nil }, 3*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + c.APIAddr() + "/get_market_depth")
	require.NoError(t, err)
	defer resp.Body.Close()
	var body struct {
		Bids   []market.DepthLevel `json:"bids"`
		Offers []market.DepthLevel `json:"offers"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Bids, market.LevelsPerSide)
	assert.Equal(t, 2500.5, body.Bids[0].Price)
	assert.Empty(t, body.Offers)
}

// 上游不可达时查询接口照常返回（空）快照
func TestContainerServesDuringOutage(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	endpoint := "ws" + strings.TrimPrefix(dead.URL, "http")
	dead.Close()

	c := NewWithConfig(testConfig(endpoint), "")
	require.NoError(t, c.Build())
	require.NoError(t, c.Start(context.Background()))
	defer c.Stop()

	resp, err := http.Get("http://" + c.APIAddr() + "/get_market_depth")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Error(t, c.HealthCheck())

	hz, err := http.Get("http://" + c.APIAddr() + "/healthz")
	require.NoError(t, err)
	hz.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, hz.StatusCode)
}

func TestContainerServesMetrics(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	endpoint := "ws" + strings.TrimPrefix(dead.URL, "http")
	dead.Close()

	cfg := testConfig(endpoint)
	cfg.Metrics.Disabled = false
	cfg.Metrics.Addr = "127.0.0.1:0"
	c := NewWithConfig(cfg, "")
	require.NoError(t, c.Build())
	require.NoError(t, c.Start(context.Background()))
	defer c.Stop()

	require.NotEmpty(t, c.MetricsAddr())
	resp, err := http.Get("http://" + c.MetricsAddr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "depthfeed_ws_connected")
}

func TestContainerMetricsDisabled(t *testing.T) {
	c := NewWithConfig(testConfig("ws://127.0.0.1:1/twentydepth"), "")
	require.NoError(t, c.Build())
	assert.Empty(t, c.MetricsAddr())
}

func TestContainerRotatesCredentials(t *testing.T) {
	orig := config.EnvFiles
	config.EnvFiles = nil
	defer func() { config.EnvFiles = orig }()
	for _, k := range []string{"DHAN_TOKEN", "DHAN_CLIENT_ID", "DHAN_SECURITY_ID", "DEBUG_MODE"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "depthfeed.yaml")
	write := func(token string) {
		content := "env: test\nfeed:\n  endpoint: ws://127.0.0.1:1/twentydepth\n  token: " + token +
			"\n  clientId: cid\n  reconnectDelayMs: 20\nhttp:\n  addr: 127.0.0.1:0\nmetrics:\n  disabled: true\nlog:\n  level: error\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	write("first")

	c, err := New(path)
	require.NoError(t, err)
	require.NoError(t, c.Build())
	require.NoError(t, c.Start(context.Background()))
	defer c.Stop()

	write("second")
	require.Eventually(t, func() bool {
		token, _ := c.feed.Credentials()
		return token == "second"
	}, 3*time.Second, 10*time.Millisecond)
}

func TestLifecycleRollsBackOnFailure(t *testing.T) {
	m := NewLifecycleManager()
	ok := &recordingComponent{}
	m.Register(ok)
	m.Register(&recordingComponent{startErr: assert.AnError})

	err := m.StartAll(context.Background())
	require.ErrorIs(t, err, assert.AnError)
	assert.True(t, ok.stopped)
}

type recordingComponent struct {
	startErr error
	stopped  bool
}

func (r *recordingComponent) Start(context.Context) error { return r.startErr }
func (r *recordingComponent) Stop() error                 { r.stopped = true; return nil }
func (r *recordingComponent) Health() error               { return nil }
