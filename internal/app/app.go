package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/codex-k8s/kvexec/internal/dsl"
	"github.com/codex-k8s/kvexec/internal/http/health"
)

// App controls the HTTP server lifecycle of the gateway.
type App struct {
	baseCtx         context.Context
	server          *http.Server
	health          *health.Handler
	logger          *slog.Logger
	shutdownTimeout time.Duration
}

// New initializes the HTTP server with the MCP handler and health endpoints.
// nodes reports the number of configured cluster nodes for readiness.
func New(baseCtx context.Context, serverCfg dsl.ServerConfig, handler http.Handler, nodes func() int, logger *slog.Logger, shutdownTimeout time.Duration) (*App, error) {
	if handler == nil {
		return nil, fmt.Errorf("handler is nil")
	}
	if baseCtx == nil {
		return nil, fmt.Errorf("base context is nil")
	}

	healthHandler := health.New(nodes)
	mux := http.NewServeMux()
	mux.Handle(serverCfg.HTTP.Path, handler)
	mux.HandleFunc("/healthz", healthHandler.Healthz)
	mux.HandleFunc("/readyz", healthHandler.Readyz)

	srv := &http.Server{
		Addr:         serverCfg.HTTP.Listen,
		Handler:      mux,
		ReadTimeout:  dsl.ParseDurationOrDefault(serverCfg.HTTP.ReadTimeout, 15*time.Second),
		WriteTimeout: dsl.ParseDurationOrDefault(serverCfg.HTTP.WriteTimeout, 15*time.Second),
		IdleTimeout:  dsl.ParseDurationOrDefault(serverCfg.HTTP.IdleTimeout, 60*time.Second),
	}

	if shutdownTimeout == 0 {
		shutdownTimeout = dsl.ParseDurationOrDefault(serverCfg.ShutdownTimeout, 10*time.Second)
	}

	return &App{
		baseCtx:         baseCtx,
		server:          srv,
		health:          healthHandler,
		logger:          logger,
		shutdownTimeout: shutdownTimeout,
	}, nil
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run listens on the configured address and blocks until shutdown.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return err
	}
	return a.Serve(ctx, ln)
}

// Serve serves on ln and blocks until ctx is done or the server fails.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		a.health.SetReady()
		if a.logger != nil {
			a.logger.Info("http server started", "addr", ln.Addr().String())
		}
		errCh <- a.server.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		if a.logger != nil {
			a.logger.Info("shutdown requested")
		}
		return a.shutdown()
	case err := <-errCh:
		a.health.SetNotReady()
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		if a.logger != nil {
			a.logger.Error("http server error", "error", err)
		}
		return err
	}
}

func (a *App) shutdown() error {
	a.health.SetNotReady()
	ctx, cancel := context.WithTimeout(a.baseCtx, a.shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
