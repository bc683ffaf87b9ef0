package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/codex-k8s/kvexec/configs"
	"github.com/codex-k8s/kvexec/internal/app"
	"github.com/codex-k8s/kvexec/internal/audit"
	"github.com/codex-k8s/kvexec/internal/config"
	"github.com/codex-k8s/kvexec/internal/constants"
	"github.com/codex-k8s/kvexec/internal/dsl"
	"github.com/codex-k8s/kvexec/internal/log"
	"github.com/codex-k8s/kvexec/internal/protocol"
	"github.com/codex-k8s/kvexec/internal/runtime"
)

const exitFailure = 2

func main() {
	embeddedConfig := flag.String("embedded-config", "", "Use embedded config from configs/ (filename)")
	execBody := flag.String("exec", "", "Execute one query, print the JSON result and exit")
	node := flag.Int64("node", -1, "Node id for -exec; the default node when negative")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := log.New(cfg.LogLevel)

	var rendered []byte
	if *embeddedConfig != "" {
		raw, err := configs.Load(*embeddedConfig)
		if err != nil {
			logger.Error("load embedded config failed", "error", err)
			os.Exit(1)
		}
		rendered, err = dsl.Render(*embeddedConfig, raw)
		if err != nil {
			logger.Error("render config failed", "error", err)
			os.Exit(1)
		}
	} else {
		rendered, err = dsl.RenderFile(cfg.ConfigPath)
		if err != nil {
			logger.Error("render config failed", "error", err)
			os.Exit(1)
		}
	}

	dslCfg, err := dsl.Load(rendered)
	if err != nil {
		logger.Error("parse config failed", "error", err)
		os.Exit(1)
	}
	cfg.ApplyOverrides(&dslCfg.Cluster)

	cluster, err := runtime.NewCluster(dslCfg.Cluster, nil, logger)
	if err != nil {
		logger.Error("build cluster failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := cluster.Close(); err != nil {
			logger.Warn("close cluster failed", "error", err)
		}
	}()

	builder := runtime.Builder{
		Logger:  logger,
		Audit:   audit.New(logger),
		Cluster: cluster,
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)
	go func() {
		sig := <-sigCh
		logger.Warn("shutdown requested", "signal", sig.String())
		cancel()
	}()

	if *execBody != "" {
		code := runOnce(baseCtx, builder, *execBody, *node, logger)
		_ = cluster.Close()
		os.Exit(code)
	}

	server, err := builder.Build(dslCfg.Server)
	if err != nil {
		logger.Error("build server failed", "error", err)
		os.Exit(1)
	}

	switch dslCfg.Server.Transport {
	case constants.TransportStdio:
		err = runStdio(baseCtx, server)
	default:
		err = runHTTP(baseCtx, cfg, dslCfg, server, cluster, logger)
	}
	if err != nil {
		logger.Error("runtime error", "error", err)
		cancel()
		_ = cluster.Close()
		os.Exit(1)
	}
}

func runOnce(ctx context.Context, builder runtime.Builder, body string, node int64, logger *slog.Logger) int {
	input := runtime.ExecuteInput{Body: body}
	if node >= 0 {
		id := uint64(node)
		input.Node = &id
	}
	resp, err := builder.Execute(ctx, input)
	if err != nil {
		logger.Error("execute rejected", "error", err)
		return 1
	}
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(resp); err != nil {
		logger.Error("encode result failed", "error", err)
		return 1
	}
	if resp.Status != protocol.StatusSuccess {
		return exitFailure
	}
	return 0
}

func runStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

func runHTTP(ctx context.Context, envCfg config.Config, dslCfg *dsl.Config, server *mcp.Server, cluster *runtime.Cluster, logger *slog.Logger) error {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, &mcp.StreamableHTTPOptions{
		Stateless: dslCfg.Server.HTTP.Stateless,
	})

	application, err := app.New(ctx, dslCfg.Server, handler, cluster.Len, logger, envCfg.ShutdownTimeout)
	if err != nil {
		return err
	}

	return application.Run(ctx)
}
