package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mixmatch/contract"
	"mixmatch/infrastructure/question"
	"mixmatch/infrastructure/ws"
	"mixmatch/internal"
	"mixmatch/moderation"
	"mixmatch/observability"
	"mixmatch/repositories"
	"mixmatch/runtime"
	"mixmatch/runtime/workers"
	"mixmatch/services"
	"mixmatch/sink"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/database"
	grpc3 "github.com/mama165/sdk-go/grpc"
	"github.com/mama165/sdk-go/logs"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component and blocks until a signal or a server failure.
// Returning instead of exiting lets the deferred cleanups run.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}
	logger := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Database (BadgerDB)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()
	if logger.Enabled(ctx, slog.LevelDebug) {
		endpoint := "/inspect"
		logger.Info("Debug Badger inspector available", "url", fmt.Sprintf("http://localhost:%d%s", config.DebugPort, endpoint))
		database.StartDebugServer(db, config.DebugPort, endpoint, SummaryMapper)
	}

	// 3. Moderation & catalog
	censored, err := moderation.LoadEmbedded()
	if err != nil {
		return exitConfig, fmt.Errorf("censored words: %w", err)
	}
	moderator, err := moderation.NewModerator(censored.Words, charReplacement, logger)
	if err != nil {
		return exitConfig, fmt.Errorf("moderator: %w", err)
	}
	logger.Info("Moderation ready", "languages", censored.Languages, "words", len(censored.Words))

	catalog, err := runtime.LoadCatalog()
	if err != nil {
		return exitConfig, err
	}

	var provider contract.QuestionProvider
	if config.QuestionProviderURL != "" {
		provider = question.NewClient(config.QuestionProviderURL, logger, nil)
	} else {
		logger.Warn("QUESTION_PROVIDER_URL not set, every question uses the fallback")
	}

	// 4. Supervision & Orchestration
	metrics := observability.NewMetrics()
	summaryRepository := repositories.NewSummaryRepository(db, logger)
	registry := runtime.NewRegistry()
	fanout := workers.NewEventFanout(logger, registry, config.SinkTimeout).
		Add(sink.NewSummarySink(summaryRepository, logger), metrics)
	supervisor := workers.NewSupervisor(logger)
	orchestrator := runtime.NewOrchestrator(logger, supervisor, registry, fanout, provider, catalog, runtime.OrchestratorConfig{
		InboxSize:       config.InboxSize,
		QuestionTimeout: config.QuestionTimeout,
		CatalogSize:     catalog.Size(),
	})
	supervisor.Add(workers.NewProcessMonitorWorker(logger, metrics, orchestrator.Rooms, config.MetricInterval))

	errChan := make(chan error, 3)
	go func() {
		logger.Info("Starting orchestrator...")
		if err := orchestrator.Start(ctx); err != nil {
			errChan <- fmt.Errorf("orchestrator error: %w", err)
		}
	}()

	// 5. Websocket gateway & HTTP
	gameService := services.NewGameService(logger, orchestrator, registry, moderator)
	router := ws.NewRouter(logger, gameService, metrics)
	gateway := ws.NewServer(logger, gameService, router, metrics, ws.Config{
		BufferSize:     config.ConnectionBufferSize,
		RateLimit:      config.RateLimit,
		RateBurst:      config.RateBurst,
		PingInterval:   config.PingInterval,
		AllowedOrigins: config.Origins(),
	})
	mux := http.NewServeMux()
	mux.Handle("/ws", gateway)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	httpServer := &http.Server{Addr: config.HTTPAddr(), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("Starting HTTP server", "address", httpServer.Addr, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// 6. gRPC health
	listener, err := net.Listen("tcp", config.GrpcAddr())
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to listen on %s: %w", config.GrpcAddr(), err)
	}
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(grpc3.UnaryLoggingInterceptor(logger)))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(s, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	go func() {
		logger.Info("Starting gRPC health server", "address", config.GrpcAddr())
		if err := s.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errChan <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	code := exitOK
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case runErr = <-errChan:
		code = exitRuntime
	}

	// 8. Final Cleanup (Graceful Shutdown)
	logger.Info("Shutting down gracefully...")
	healthServer.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}
	s.GracefulStop()
	stop()
	orchestrator.Stop()
	logger.Info("Program stopped cleanly")

	return code, runErr
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)
	if logger.Enabled(ctx, slog.LevelDebug) {
		return options.WithLoggingLevel(badger.DEBUG)
	}
	return options.WithLoggingLevel(badger.WARNING)
}

// SummaryMapper renders a stored game for the badger inspector.
func SummaryMapper(key string, val []byte) database.InspectRow {
	row := database.DefaultMapper(key, val)
	summary, err := repositories.DecodeSummary(val)
	if err != nil {
		row.Detail = "Error: unmarshal failed"
		return row
	}
	row.Type = "GAME"
	row.Detail = fmt.Sprintf("room %s, %d rounds, %d players", summary.Code, summary.TotalRounds, len(summary.Players))
	return row
}
