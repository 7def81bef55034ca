package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"scorekeeper/adapters/flatfile"
	mem "scorekeeper/adapters/memory"
	sqlxAdapter "scorekeeper/adapters/sqlx"
	"scorekeeper/api/httpapi"
	"scorekeeper/board"
	"scorekeeper/config"
	"scorekeeper/integrations/webhook"
	"scorekeeper/ratelimit"
	"scorekeeper/realtime"
)

// App aggregates the assembled server components.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Hub     *realtime.Hub
	Service *board.Service
	Handler http.Handler
	Server  *http.Server
}

func provideConfig(_ context.Context) (*config.Config, error) {
	if path := os.Getenv("SCOREKEEPER_CONFIG_FILE"); path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func provideLogger(cfg *config.Config) *slog.Logger {
	return setupLogging(cfg)
}

func provideHub() *realtime.Hub {
	return realtime.NewHub()
}

func provideStorage(ctx context.Context, cfg *config.Config) (board.Storage, error) {
	return setupStorage(ctx, cfg)
}

func provideService(cfg *config.Config, hub *realtime.Hub, storage board.Storage) *board.Service {
	svc := board.New(
		board.WithRealtime(hub),
		board.WithStorage(storage),
		board.WithDispatchMode(board.DispatchAsync),
	)
	if len(cfg.Webhooks) > 0 {
		sink := webhook.New(cfg.Webhooks)
		svc.Subscribe(sink.OnUpdate)
	}
	return svc
}

func provideHandler(svc *board.Service, hub *realtime.Hub, cfg *config.Config) (http.Handler, error) {
	limiter, err := setupLimiter(cfg)
	if err != nil {
		return nil, err
	}
	return httpapi.NewRouter(svc, hub, httpapi.Options{
		PathPrefix:      cfg.Server.PathPrefix,
		AllowCORSOrigin: cfg.Server.CORSOrigin,
		MaxBodyBytes:    cfg.Server.MaxBodyBytes,
		Limiter:         limiter,
	}), nil
}

func provideServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
}

// setupLogging configures the logger based on configuration.
func setupLogging(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Logging.Level),
	}

	out := os.Stdout
	if cfg.Logging.Output == "stderr" {
		out = os.Stderr
	}

	switch cfg.Logging.Format {
	case "text":
		handler = slog.NewTextHandler(out, opts)
	case "json":
		handler = slog.NewJSONHandler(out, opts)
	default:
		handler = slog.NewJSONHandler(out, opts)
	}

	if len(cfg.Logging.Attributes) > 0 {
		handler = handler.WithAttrs(convertAttributes(cfg.Logging.Attributes))
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// convertAttributes converts map[string]string to []slog.Attr.
func convertAttributes(attrs map[string]string) []slog.Attr {
	var result []slog.Attr
	for k, v := range attrs {
		result = append(result, slog.String(k, v))
	}
	return result
}

// setupStorage creates the appropriate storage adapter based on configuration.
func setupStorage(ctx context.Context, cfg *config.Config) (board.Storage, error) {
	switch cfg.Storage.Adapter {
	case "file":
		return flatfile.New(cfg.Storage.File.Path)
	case "memory":
		return mem.New(), nil
	case "sql":
		store, err := sqlxAdapter.New(cfg.Storage.SQL)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage adapter: %s", cfg.Storage.Adapter)
	}
}

// setupLimiter builds the submission rate limiter, or nil when disabled.
func setupLimiter(cfg *config.Config) (*ratelimit.Limiter, error) {
	if !cfg.RateLimit.Enabled {
		return nil, nil
	}

	var store ratelimit.Store
	switch cfg.RateLimit.Store {
	case "memory":
		store = ratelimit.NewMemoryStore()
	case "redis":
		rs, err := ratelimit.NewRedisStore(cfg.RateLimit.Redis)
		if err != nil {
			return nil, err
		}
		store = rs
	default:
		return nil, fmt.Errorf("unknown rate limit store: %s", cfg.RateLimit.Store)
	}

	return ratelimit.New(store, cfg.RateLimit.Window, cfg.RateLimit.MaxPerWindow,
		ratelimit.WithFailOpen(cfg.RateLimit.FailOpen)), nil
}
