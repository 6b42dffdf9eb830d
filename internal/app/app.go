package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"chatbox/web/internal/api"
	"chatbox/web/internal/backend"
	"chatbox/web/internal/config"
	"chatbox/web/internal/database"
	"chatbox/web/internal/repository"
	"chatbox/web/internal/service"
	"chatbox/web/internal/session"
)

const (
	sweepInterval   = time.Minute
	shutdownTimeout = 15 * time.Second
	probeAttempts   = 5
	probeDelay      = 3 * time.Second
)

// App is the wired web server: session database, workspace registry and
// HTTP server.
type App struct {
	Config   *config.Config
	DB       *sql.DB
	Repo     repository.SessionRepository
	Registry *service.WorkspaceRegistry
	Server   *http.Server
}

// NewBackendDeps builds the backend clients shared by every workspace.
func NewBackendDeps(cfg *config.Config, logger *slog.Logger) service.WorkspaceDeps {
	client := backend.NewClient(cfg.BackendURL, backend.WithTimeout(cfg.RequestTimeout))
	return service.WorkspaceDeps{
		Chat:          backend.NewChatClient(client),
		Conversations: backend.NewConversationClient(client),
		Auth:          backend.NewAuthClient(client),
		Greeting:      cfg.Greeting,
		Logger:        logger,
	}
}

// NewApp opens the session database and wires the HTTP server around it.
func NewApp(cfg *config.Config) (*App, error) {
	db, err := database.InitDB(cfg.SessionDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	slog.Info("Successfully connected to SQLite session database.", "path", cfg.SessionDBPath)

	repo := repository.NewSQLiteRepository(db)
	deps := NewBackendDeps(cfg, slog.Default())

	registry := service.NewWorkspaceRegistry(func(ctx context.Context, sessionID string) (*service.Workspace, error) {
		store, err := session.OpenPersistentStore(ctx, repo, sessionID)
		if err != nil {
			return nil, err
		}
		return service.NewWorkspace(ctx, sessionID, store, deps, nil)
	}, cfg.SessionTTL)

	router := api.NewRouter(registry, api.NewHandlers(), api.RouterOptions{
		AllowedOrigins: cfg.AllowedOrigins,
		SendRateLimit:  cfg.SendRateLimit,
		SendRateBurst:  cfg.SendRateBurst,
		StaticDir:      cfg.StaticDir,
		SecureCookies:  strings.HasPrefix(strings.ToLower(firstOrEmpty(cfg.AllowedOrigins)), "https://"),
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.AppPort),
		Handler:           router,
		ReadHeaderTimeout: 20 * time.Second,
		WriteTimeout:      0, // ?wait=true submits hold the connection until the reply
		IdleTimeout:       120 * time.Second,
	}

	return &App{Config: cfg, DB: db, Repo: repo, Registry: registry, Server: server}, nil
}

// Serve runs the HTTP server and the idle-session sweeper until ctx is done,
// then shuts both down.
func (a *App) Serve(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Starting server", "addr", a.Server.Addr)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				a.sweep(ctx)
			}
		}
	})

	g.Go(func() error {
		<-ctx.Done()
		slog.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		err := a.Server.Shutdown(shutdownCtx)
		a.Registry.Close()
		return err
	})

	return g.Wait()
}

// sweep evicts idle workspaces and deletes their stored sessions.
func (a *App) sweep(ctx context.Context) {
	a.Registry.Sweep()
	n, err := a.Repo.DeleteIdleSessions(ctx, time.Now().Add(-a.Config.SessionTTL))
	if err != nil {
		slog.Warn("Failed to delete idle sessions", "error", err)
		return
	}
	if n > 0 {
		slog.Info("Deleted idle sessions", "count", n)
	}
}

// Close releases the database.
func (a *App) Close() {
	if err := a.DB.Close(); err != nil {
		slog.Error("Failed to close database connection", "error", err)
	}
}

// Run loads the configuration from the environment and serves until SIGINT or
// SIGTERM. It returns the process exit code.
func Run() int {
	cfg, err := config.LoadConfig()
	if err != nil {
		// slog is not yet configured, so use the default logger for this critical error.
		slog.Error("Failed to load configuration", "error", err)
		return 1
	}
	return RunWithConfig(cfg)
}

// RunWithConfig is Run for a configuration the caller already resolved.
func RunWithConfig(cfg *config.Config) int {
	SetupLogger(cfg.LogLevel, os.Stdout)
	logConfigSource()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	waitForBackend(ctx, cfg.BackendURL)

	a, err := NewApp(cfg)
	if err != nil {
		slog.Error("Failed to initialize application", "error", err)
		return 1
	}
	defer a.Close()

	if err := a.Serve(ctx); err != nil {
		slog.Error("Server stopped with error", "error", err)
		return 1
	}
	return 0
}

func logConfigSource() {
	configFileUsed := viper.ConfigFileUsed()
	if configFileUsed != "" {
		slog.Info("Successfully loaded configuration from file.", "file", configFileUsed)
	} else {
		slog.Info("Configuration file not found. Using environment variables and defaults.")
	}
}

// SetupLogger installs a JSON slog handler writing to w as the default logger.
func SetupLogger(logLevel string, w io.Writer) {
	var level slog.Level
	switch strings.ToUpper(logLevel) {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}

// waitForBackend probes the chat backend a few times before serving. Any HTTP
// answer counts as reachable; the server starts either way.
func waitForBackend(ctx context.Context, backendURL string) {
	slog.Info("Waiting for chat backend...", "url", backendURL)
	client := &http.Client{Timeout: 2 * time.Second}
	for attempt := 1; attempt <= probeAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, backendURL, nil)
		if err != nil {
			slog.Warn("Invalid backend URL, skipping readiness probe", "url", backendURL, "error", err)
			return
		}
		resp, err := client.Do(req)
		if err == nil {
			if bErr := resp.Body.Close(); bErr != nil {
				slog.Warn("Failed to close response body in backend probe", "error", bErr)
			}
			slog.Info("Chat backend is reachable.", "status", resp.StatusCode)
			return
		}
		slog.Debug("Chat backend not reachable yet, retrying...", "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(probeDelay):
		}
	}
	slog.Warn("Chat backend did not answer, starting anyway", "url", backendURL)
}

func firstOrEmpty(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}
