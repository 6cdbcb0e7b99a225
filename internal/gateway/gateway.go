// Package gateway is the HTTP boundary: webhook verification and intake,
// health, and the metrics endpoint. The webhook handler acknowledges
// synchronously and hands events to the engine; the channel retries
// deliveries that are not answered quickly.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Sdiabate1337/djula-com-sub000/internal/metrics"
	"github.com/Sdiabate1337/djula-com-sub000/internal/wa"
)

const (
	defaultAddr         = ":8080"
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 10 * time.Second
)

// Submitter accepts normalized inbound events for asynchronous
// processing.
type Submitter interface {
	Submit(ev wa.Event) error
}

// Config holds the gateway settings.
type Config struct {
	Addr        string
	VerifyToken string
	AppSecret   string
}

func (c *Config) defaults() {
	if c.Addr == "" {
		c.Addr = defaultAddr
	}
}

// Gateway serves the HTTP surface.
type Gateway struct {
	config   Config
	engine   Submitter
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	logger   *slog.Logger
	server   *http.Server
}

// New creates a Gateway. gatherer may be nil to disable /metrics.
func New(cfg Config, engine Submitter, m *metrics.Metrics, gatherer prometheus.Gatherer, logger *slog.Logger) *Gateway {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		config:   cfg,
		engine:   engine,
		metrics:  m,
		gatherer: gatherer,
		logger:   logger.With("component", "gateway"),
	}
}

// Start begins serving in a background goroutine. It returns once the
// listener is bound so callers can fail fast on port conflicts.
func (g *Gateway) Start() error {
	ln, err := net.Listen("tcp", g.config.Addr)
	if err != nil {
		return err
	}

	g.server = &http.Server{
		Handler:      g.Router(),
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
	}

	go func() {
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("http server failed", "error", err)
		}
	}()

	g.logger.Info("gateway listening", "addr", g.config.Addr)
	return nil
}

// Stop shuts the server down gracefully.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}
	return g.server.Shutdown(ctx)
}
