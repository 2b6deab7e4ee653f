package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	hpprof "net/http/pprof"
	"strings"
	"sync"
	"time"

	logx "schedbot/pkg/logx"
)

// Config controls the operator listener. It is meant for loopback only and
// has no auth.
type Config struct {
	Enabled bool
	Addr    string
	Pprof   bool
}

// HealthFunc reports whatever should show on /healthz. It must be safe to
// call concurrently.
type HealthFunc func() any

type Service struct {
	mu     sync.Mutex
	log    logx.Logger
	health HealthFunc

	cfg  Config
	srv  *http.Server
	addr string
}

func New(health HealthFunc, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{health: health, log: log.With(logx.String("comp", "admin"))}
}

// Apply starts, stops or restarts the listener to match cfg. It is called
// at startup and on every config reload.
func (s *Service) Apply(ctx context.Context, cfg Config) {
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = "127.0.0.1:6061"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !cfg.Enabled {
		s.stopLocked(ctx)
		s.cfg = cfg
		return
	}
	if s.srv != nil && s.cfg == cfg {
		return
	}
	s.stopLocked(ctx)
	s.cfg = cfg
	s.startLocked()
}

// Handler is the admin mux for cfg.
func (s *Service) Handler(cfg Config) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		body := map[string]any{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)}
		if s.health != nil {
			body["runtime"] = s.health()
		}
		_ = json.NewEncoder(w).Encode(body)
	})
	if cfg.Pprof {
		mux.HandleFunc("/debug/pprof/", hpprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", hpprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", hpprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", hpprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", hpprof.Trace)
	}
	return mux
}

func (s *Service) startLocked() {
	cfg := s.cfg
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		s.log.Warn("admin listen failed", logx.String("addr", cfg.Addr), logx.Err(err))
		return
	}
	srv := &http.Server{
		Handler:           s.Handler(cfg),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.srv = srv
	s.addr = ln.Addr().String()

	addr := s.addr
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Warn("admin server error", logx.String("addr", addr), logx.Err(err))
		}
	}()
	s.log.Info("admin enabled", logx.String("addr", addr), logx.Bool("pprof", cfg.Pprof))
}

// Stop shuts the listener down if it is running.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked(ctx)
}

func (s *Service) stopLocked(ctx context.Context) {
	if s.srv == nil {
		return
	}
	srv, addr := s.srv, s.addr
	s.srv, s.addr = nil, ""

	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
	}
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Warn("admin shutdown error", logx.String("addr", addr), logx.Err(err))
	}
	s.log.Info("admin disabled", logx.String("addr", addr))
}

// Addr is the bound address, or "" when not running.
func (s *Service) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}
