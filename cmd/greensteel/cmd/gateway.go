package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/greensteel/gateway/internal/adapter/inbound/gateway"
	"github.com/greensteel/gateway/internal/adapter/inbound/web"
	"github.com/greensteel/gateway/internal/config"
	"github.com/greensteel/gateway/internal/domain/cors"
	"github.com/greensteel/gateway/internal/domain/route"
	"github.com/greensteel/gateway/internal/service"
)

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Start the gateway server",
	Long: `Start the GreenSteel gateway server.

The gateway accepts frontend requests on /api/v1/{service}/{path},
resolves the target backend from the routing table, and forwards the
request with headers, cookies, query parameters, and multipart bodies
preserved. CORS headers on responses are always the gateway's own.

Examples:
  # Start with config file settings
  greensteel gateway

  # Start with a specific config file
  greensteel --config /path/to/greensteel.yaml gateway

  # Development mode (debug logging, plain-HTTP cookies)
  greensteel gateway --dev`,
	RunE: runGateway,
}

func init() {
	gatewayCmd.Flags().BoolVar(&devMode, "dev", false, "Enable development mode (verbose logging, insecure cookies)")
	rootCmd.AddCommand(gatewayCmd)
}

func runGateway(cmd *cobra.Command, args []string) error {
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

	if err := serveGateway(ctx, cfg, logger); err != nil {
		return err
	}

	logger.Info("gateway stopped")
	return nil
}

// serveGateway wires the gateway components together and runs the server.
func serveGateway(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	table, err := route.NewTable(cfg.Services.Overrides())
	if err != nil {
		return fmt.Errorf("failed to build routing table: %w", err)
	}

	policy, err := cors.New(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedOriginRegex, cfg.CORS.MaxAge)
	if err != nil {
		return fmt.Errorf("failed to build CORS policy: %w", err)
	}
	logger.Info("CORS policy configured",
		"allowed_origins", cfg.CORS.AllowedOrigins,
		"origin_regex", cfg.CORS.AllowedOriginRegex,
	)

	registry := web.NewRegistry()
	metrics := web.NewMetrics(registry)

	forwarder := gateway.NewForwarder(table, cfg.ProxyTimeout(), logger)

	handlerOpts := []gateway.HandlerOption{gateway.WithMetrics(metrics)}

	// Usage reporting runs in the background; records beyond the queue
	// capacity are dropped rather than blocking requests.
	if cfg.Proxy.UsageLog.Enabled {
		authTarget, err := table.Resolve(string(route.ServiceAuth))
		if err != nil {
			return fmt.Errorf("failed to resolve auth service for usage reporting: %w", err)
		}
		usage := service.NewUsageService(authTarget.BaseURL, logger,
			service.WithUsageQueueSize(cfg.Proxy.UsageLog.QueueSize),
			service.WithUsageDropHook(metrics.UsageDropsTotal.Inc),
		)
		usage.Start(ctx)
		defer usage.Stop()
		handlerOpts = append(handlerOpts, gateway.WithUsageReporter(usage))
		logger.Info("usage reporting enabled",
			"endpoint", authTarget.BaseURL+"/logs/data",
			"queue_size", cfg.Proxy.UsageLog.QueueSize,
		)
	}

	handler := gateway.NewHandler(forwarder, policy, logger, handlerOpts...)

	// Middleware chain: metrics outermost, then request ID, then client IP.
	var chained http.Handler = handler
	chained = web.RealIPMiddleware(chained)
	chained = web.RequestIDMiddleware(logger)(chained)
	chained = web.MetricsMiddleware(metrics, "")(chained)

	mux := http.NewServeMux()
	mux.Handle("/metrics", web.MetricsHandler(registry))
	mux.Handle("/", chained)

	server := web.NewServer(cfg.Server.HTTPAddr, mux, logger)
	return server.Start(ctx)
}
