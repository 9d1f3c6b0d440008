// Package app wires configuration, persistence, the generation backend
// and the conductor into a runnable application.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/firebase/genkit/go/core/tracing"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/keelanv/parley/db"
	"github.com/keelanv/parley/internal/chat"
	"github.com/keelanv/parley/internal/config"
	"github.com/keelanv/parley/internal/llm"
	"github.com/keelanv/parley/internal/session"
)

// ErrConfigNil indicates Setup was called without a configuration.
var ErrConfigNil = errors.New("config cannot be nil")

// App holds the assembled application and its cleanup state.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	DBPool    *pgxpool.Pool
	Store     *session.Store
	LLM       *llm.Client
	Conductor *chat.Conductor

	otelCleanup func()
}

// Setup creates and initializes the application. Call Close to release
// everything it acquired.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{Config: cfg, Logger: logger}

	// On error, release everything already initialized.
	defer func() {
		if retErr != nil {
			a.Close()
		}
	}()

	a.otelCleanup = provideOtelShutdown(ctx, cfg, logger)

	pool, err := provideDBPool(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.DBPool = pool

	store, err := session.NewStore(pool, logger)
	if err != nil {
		return nil, fmt.Errorf("create session store: %w", err)
	}
	a.Store = store

	client, err := llm.New(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create llm client: %w", err)
	}
	a.LLM = client

	conductor, err := chat.New(chat.Config{
		Store:         store,
		Generator:     client,
		Model:         cfg.FullModelName(),
		HistoryLimit:  cfg.MaxHistoryMessages,
		TitlesEnabled: cfg.TitlesEnabled,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create conductor: %w", err)
	}
	a.Conductor = conductor

	return a, nil
}

// Close releases resources in reverse initialization order. Safe to
// call on a partially initialized App.
func (a *App) Close() {
	if a.Conductor != nil {
		a.Conductor.Close()
	}
	if a.DBPool != nil {
		a.DBPool.Close()
	}
	if a.otelCleanup != nil {
		a.otelCleanup()
	}
}

// provideDBPool connects to PostgreSQL and applies pending schema
// migrations before handing the pool out.
func provideDBPool(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL(), logger); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// provideOtelShutdown registers an OTLP span processor with Genkit's
// tracer provider when tracing is enabled. Must run before llm.New so
// the provider is ready when Genkit initializes.
func provideOtelShutdown(ctx context.Context, cfg *config.Config, logger *slog.Logger) func() {
	tc := cfg.Tracing
	if !tc.Enabled {
		return func() {}
	}

	agentHost := tc.AgentHost
	if agentHost == "" {
		agentHost = "localhost:4318"
	}

	// Genkit's TracerProvider reads these at init. Startup runs this
	// exactly once before any goroutines, so Setenv is safe here.
	if tc.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", tc.ServiceName)
	}
	if tc.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+tc.Environment)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(agentHost),
		otlptracehttp.WithInsecure(), // local agent, no TLS
	)
	if err != nil {
		logger.Warn("creating trace exporter, tracing disabled", "error", err)
		return func() {}
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	logger.Debug("tracing enabled",
		"agent", agentHost, "service", tc.ServiceName, "environment", tc.Environment)

	shutdown := tracing.TracerProvider().Shutdown
	//nolint:contextcheck // Independent context: shutdown runs during teardown when parent is canceled
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}
