package rpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"leasex/core"
	"leasex/core/events"
	"leasex/indexer"
)

const shutdownTimeout = 5 * time.Second

// Config controls authentication and admission of RPC calls.
type Config struct {
	// JWTSecret verifies HS256 bearer tokens. Empty disables every
	// authenticated method.
	JWTSecret         []byte
	RequestsPerMinute float64
	Burst             int
	// AllowedOrigins restricts websocket upgrades. Empty allows any origin.
	AllowedOrigins    []string
	// TrustedProxies lists the peers (IPs or CIDRs) whose X-Real-IP and
	// X-Forwarded-For headers identify the client. Empty trusts none.
	TrustedProxies    []string
	ReadHeaderTimeout time.Duration
}

// EventSource feeds the websocket stream.
type EventSource interface {
	Subscribe(types ...string) (events.SubscriberID, <-chan events.Event, func())
}

// EventLog answers events_recent.
type EventLog interface {
	Recent(ctx context.Context, q indexer.Query) ([]indexer.EventRecord, error)
}

// RequestObserver records per-call outcomes.
type RequestObserver interface {
	ObserveRequest(method string, code int, duration time.Duration)
	RecordThrottle(reason string)
}

// Server exposes the node over JSON-RPC and a websocket event stream.
type Server struct {
	node     *core.Node
	cfg      Config
	source   EventSource
	eventLog EventLog
	observer RequestObserver
	gatherer prometheus.Gatherer
	limiter  *rateLimiter
	proxies  []netip.Prefix
	logger   *slog.Logger
	methods  map[string]method
}

// Option customises a Server.
type Option func(*Server)

func WithEventSource(src EventSource) Option { return func(s *Server) { s.source = src } }

func WithEventLog(log EventLog) Option { return func(s *Server) { s.eventLog = log } }

func WithObserver(o RequestObserver) Option { return func(s *Server) { s.observer = o } }

// WithGatherer serves the gatherer's metrics on /metrics.
func WithGatherer(g prometheus.Gatherer) Option { return func(s *Server) { s.gatherer = g } }

func WithLogger(l *slog.Logger) Option { return func(s *Server) { s.logger = l } }

// NewServer builds a server over node.
func NewServer(node *core.Node, cfg Config, opts ...Option) (*Server, error) {
	if node == nil {
		return nil, errors.New("rpc: node must not be nil")
	}
	proxies, err := ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("rpc: %w", err)
	}
	s := &Server{
		node:    node,
		cfg:     cfg,
		limiter: newRateLimiter(cfg.RequestsPerMinute, cfg.Burst),
		proxies: proxies,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.logger = s.logger.With(slog.String("component", "rpc"))
	s.methods = s.methodTable()
	return s, nil
}

// Handler returns the instrumented router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)

	r.Post("/", s.handle)
	r.Get("/ws/events", s.handleEventsWS)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return otelhttp.NewHandler(r, "leasex-rpc")
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	timeout := s.cfg.ReadHeaderTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: timeout,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("JSON-RPC server listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("rpc: serve: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("rpc: shutdown: %w", err)
		}
		return nil
	}
}
