package api

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"net/http"
	"time"

	"depth-feed-go/infrastructure/logger"
	"depth-feed-go/market"
)

//go:embed static/index.html
var indexHTML []byte

// Snapshotter 只读快照来源（internal/store.Store）
type Snapshotter interface {
	Snapshot() market.DepthSnapshot
}

// Options 服务层依赖；除 Store 外均可为空。
type Options struct {
	Store             Snapshotter
	Publisher         *market.Publisher
	Credentials       func() (token, clientID string)
	Health            func() error
	ExposeCredentials bool
	Logger            *logger.Logger
}

// Server 对外查询接口：读取共享快照，从不访问上游网络。
type Server struct {
	opts Options
	mux  *http.ServeMux
	log  *logger.Logger
}

func New(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}
	s := &Server{opts: opts, mux: http.NewServeMux(), log: log}
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /get_market_depth", s.handleDepth)
	s.mux.HandleFunc("GET /config", s.handleConfig)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	if opts.Publisher != nil {
		s.mux.HandleFunc("GET /ws/depth", s.handleStream)
	}
	return s
}

func (s *Server) Handler() http.Handler { return s.mux }

// depthResponse /get_market_depth 的返回体，空盘口也输出 []
type depthResponse struct {
	Bids   []market.DepthLevel `json:"bids"`
	Offers []market.DepthLevel `json:"offers"`
}

func toResponse(snap market.DepthSnapshot) depthResponse {
	resp := depthResponse{Bids: snap.Bids, Offers: snap.Offers}
	if resp.Bids == nil {
		resp.Bids = []market.DepthLevel{}
	}
	if resp.Offers == nil {
		resp.Offers = []market.DepthLevel{}
	}
	return resp
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

func (s *Server) handleDepth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, toResponse(s.opts.Store.Snapshot()))
}

// handleConfig 把凭证交给前端；默认关闭。
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if !s.opts.ExposeCredentials || s.opts.Credentials == nil {
		http.NotFound(w, r)
		return
	}
	token, clientID := s.opts.Credentials()
	s.writeJSON(w, http.StatusOK, map[string]string{
		"token":    token,
		"clientId": clientID,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.opts.Store.Snapshot()
	body := map[string]interface{}{"status": "ok"}
	if !snap.UpdatedAt.IsZero() {
		body["last_update"] = snap.UpdatedAt.UTC().Format(time.RFC3339Nano)
		body["age_ms"] = time.Since(snap.UpdatedAt).Milliseconds()
	}
	code := http.StatusOK
	if s.opts.Health != nil {
		if err := s.opts.Health(); err != nil {
			body["status"] = "degraded"
			body["error"] = err.Error()
			code = http.StatusServiceUnavailable
		}
	}
	s.writeJSON(w, code, body)
}

// writeJSON 先编码再写头，编码失败时返回 500 而不是空的 200。
func (s *Server) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		s.log.LogError(err, map[string]interface{}{"action": "encode_response"})
		http.Error(w, "encode response failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(buf.Bytes())
}
