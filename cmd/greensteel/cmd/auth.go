package cmd

import (
	"context"
	"log/slog"
	"net/http"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/greensteel/gateway/internal/adapter/inbound/authapi"
	"github.com/greensteel/gateway/internal/adapter/inbound/web"
	"github.com/greensteel/gateway/internal/adapter/outbound/memory"
	"github.com/greensteel/gateway/internal/adapter/outbound/sqlite"
	"github.com/greensteel/gateway/internal/config"
	"github.com/greensteel/gateway/internal/service"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Start the auth service",
	Long: `Start the GreenSteel auth service.

The auth service manages accounts and sessions: signup, login, logout,
and session verification. Sessions have a fixed lifetime and are
carried in the session_id cookie. It also accepts usage records from
the gateway on /logs/data.

Storage:
  With auth.database set, accounts and sessions persist in a SQLite
  file. Without it, an in-memory store is used and everything is lost
  on restart.

Examples:
  # Start with in-memory storage
  greensteel auth

  # Start with SQLite persistence
  GREENSTEEL_AUTH_DATABASE=/var/lib/greensteel/auth.db greensteel auth

  # Development mode (insecure cookies for plain-HTTP frontends)
  greensteel auth --dev`,
	RunE: runAuth,
}

func init() {
	authCmd.Flags().BoolVar(&devMode, "dev", false, "Enable development mode (verbose logging, insecure cookies)")
	rootCmd.AddCommand(authCmd)
}

func runAuth(cmd *cobra.Command, args []string) error {
	cfg, err := loadServeConfig()
	if err != nil {
		return err
	}

	// stop() restores default signal handling so a second Ctrl+C does a hard kill.
	ctx, stop := signal.NotifyContext(context.Background(), gracefulSignals()...)
	go func() {
		<-ctx.Done()
		stop()
	}()

	logger := newLogger(cfg)

	if err := serveAuth(ctx, cfg, logger); err != nil {
		return err
	}

	logger.Info("auth service stopped")
	return nil
}

// serveAuth wires the auth service components together and runs the server.
func serveAuth(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	registry := web.NewRegistry()
	metrics := web.NewMetrics(registry)

	handlerOpts := []authapi.HandlerOption{
		authapi.WithCookieSecure(cfg.Auth.CookieSecure),
		authapi.WithMetrics(metrics),
	}

	auth, cleanup, err := buildAuthService(ctx, cfg, logger, &handlerOpts)
	if err != nil {
		return err
	}
	defer cleanup()

	handler := authapi.NewHandler(auth, cfg.SessionTTL(), logger, handlerOpts...)

	var chained http.Handler = handler
	chained = web.RealIPMiddleware(chained)
	chained = web.RequestIDMiddleware(logger)(chained)
	chained = web.MetricsMiddleware(metrics, "auth")(chained)

	mux := http.NewServeMux()
	mux.Handle("/metrics", web.MetricsHandler(registry))
	mux.Handle("/", chained)

	server := web.NewServer(cfg.Auth.HTTPAddr, mux, logger)
	return server.Start(ctx)
}

// buildAuthService selects the storage backend and constructs the auth
// service. A SQLite open failure falls back to in-memory storage so the
// service still comes up; the failure is logged.
func buildAuthService(ctx context.Context, cfg *config.Config, logger *slog.Logger, handlerOpts *[]authapi.HandlerOption) (*service.AuthService, func(), error) {
	if cfg.Auth.Database != "" {
		store, err := sqlite.OpenWithConfig(cfg.Auth.Database, cfg.CleanupInterval())
		if err == nil {
			store.StartCleanup(ctx)
			logger.Info("using SQLite storage", "path", cfg.Auth.Database)
			*handlerOpts = append(*handlerOpts, authapi.WithStoragePinger(store))
			auth := service.NewAuthService(store.Accounts(), store.Sessions(), cfg.SessionTTL(), logger)
			cleanup := func() {
				store.Stop()
				if closeErr := store.Close(); closeErr != nil {
					logger.Warn("failed to close SQLite store", "error", closeErr)
				}
			}
			return auth, cleanup, nil
		}
		logger.Error("failed to open SQLite store, falling back to in-memory storage",
			"path", cfg.Auth.Database,
			"error", err,
		)
	}

	sessions := memory.NewSessionStoreWithConfig(cfg.CleanupInterval())
	sessions.StartCleanup(ctx)
	accounts := memory.NewAccountStore()
	logger.Info("using in-memory storage (data lost on restart)")

	auth := service.NewAuthService(accounts, sessions, cfg.SessionTTL(), logger)
	return auth, sessions.Stop, nil
}
