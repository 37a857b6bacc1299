package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveDepthUpdate(t *testing.T) {
	DepthUpdates.Reset()
	BestPrice.Reset()

	ts := time.Unix(1700000000, 0)
	ObserveDepthUpdate("bid", 2500.5, ts)
	ObserveDepthUpdate("bid", 2500.0, ts)

	if got := testutil.ToFloat64(DepthUpdates.WithLabelValues("bid")); got != 2 {
		t.Errorf("Expected DepthUpdates[bid] to be 2, got %f", got)
	}
	if got := testutil.ToFloat64(BestPrice.WithLabelValues("bid")); got != 2500.0 {
		t.Errorf("Expected BestPrice[bid] to be 2500, got %f", got)
	}
	if got := testutil.ToFloat64(LastUpdateUnix); got != 1700000000 {
		t.Errorf("Expected LastUpdateUnix to be 1700000000, got %f", got)
	}
}

func TestObserveFrameDropped(t *testing.T) {
	FramesDropped.Reset()

	ObserveFrameDropped("too_short")
	ObserveFrameDropped("too_short")
	ObserveFrameDropped("truncated_body")

	if got := testutil.ToFloat64(FramesDropped.WithLabelValues("too_short")); got != 2 {
		t.Errorf("Expected FramesDropped[too_short] to be 2, got %f", got)
	}
	if got := testutil.ToFloat64(FramesDropped.WithLabelValues("truncated_body")); got != 1 {
		t.Errorf("Expected FramesDropped[truncated_body] to be 1, got %f", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	WSConnected.Set(1)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "depthfeed_ws_connected 1") {
		t.Errorf("metrics output missing ws gauge")
	}
}
