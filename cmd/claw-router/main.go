// Command claw-router runs the policy-driven LLM routing gateway:
// POST /v1/chat/completions plus the admin/observability surface
// (/v1/models, /api/config, /api/stats, /api/logs, /healthz, /metrics,
// /api/logs/stream). Bootstrap composition is grounded on the
// teacher's cmd/agentflow/main.go + server.go (load config, build
// state, wire handlers, start internal/server.Manager, wait for
// shutdown), trimmed to a single bind address since this gateway has
// no separate metrics port in the original_source design.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/claw-router/claw-router/internal/api"
	"github.com/claw-router/claw-router/internal/health"
	"github.com/claw-router/claw-router/internal/metrics"
	"github.com/claw-router/claw-router/internal/orchestrator"
	"github.com/claw-router/claw-router/internal/server"
	"github.com/claw-router/claw-router/internal/state"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the gateway's config.json")
	addr := flag.String("addr", "127.0.0.1:3000", "HTTP bind address")
	logFormat := flag.String("log-format", "console", "log format: console or json")
	flag.Parse()

	logger := initLogger(*logFormat)
	defer logger.Sync()

	logger.Info("starting claw-router",
		zap.String("version", Version), zap.String("build_time", BuildTime), zap.String("git_commit", GitCommit))

	store := state.New(*configPath, logger)

	orch := orchestrator.New(store, logger)

	prober := health.New(store, logger)
	ctx, cancelProber := context.WithCancel(context.Background())
	prober.Start(ctx)
	orch.Health = prober
	orch.Metrics = metrics.NewCollector("claw_router")

	adminSrv := api.New(store, logger)
	adminSrv.Health = prober

	mux := http.NewServeMux()
	adminSrv.Routes(mux)
	mux.Handle("POST /v1/chat/completions", orch)

	handler := Chain(mux,
		Recovery(logger),
		RequestLogger(logger),
		CORS(nil),
	)

	srvCfg := server.DefaultConfig()
	srvCfg.Addr = *addr
	manager := server.NewManager(handler, srvCfg, logger)

	if err := manager.Start(); err != nil {
		logger.Fatal("failed to start HTTP server", zap.Error(err))
	}

	manager.WaitForShutdown()
	cancelProber()
}

func initLogger(format string) *zap.Logger {
	var encoderConfig zapcore.EncoderConfig
	if format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapcore.InfoLevel),
		Development:      format == "console",
		Encoding:         format,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zapConfig.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}
