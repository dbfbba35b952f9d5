// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Courier Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/courierchat/courier/internal/auth"
	authpg "github.com/courierchat/courier/internal/auth/postgres"
	"github.com/courierchat/courier/internal/config"
	"github.com/courierchat/courier/internal/httpapi"
	"github.com/courierchat/courier/internal/logging"
	"github.com/courierchat/courier/internal/messaging"
	messagingpg "github.com/courierchat/courier/internal/messaging/postgres"
	"github.com/courierchat/courier/internal/observability"
	"github.com/courierchat/courier/internal/store"
)

// pruneInterval is how often expired sessions are swept from storage.
const pruneInterval = time.Hour

// APIServer abstracts the HTTP API server for testing.
type APIServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}

// ObservabilityServer abstracts the metrics/health server for testing.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

// ServeDeps allows tests to inject fakes for external dependencies.
type ServeDeps struct {
	PoolFactory                func(ctx context.Context, databaseURL string) (*pgxpool.Pool, error)
	APIServerFactory           func(authSvc httpapi.AuthService, messageSvc httpapi.MessageService, opts httpapi.Options) (APIServer, error)
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the courier API server",
		Long: `Start the HTTP API server which handles registration, login,
user search, and direct messaging.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			return runServeWithDeps(cmd.Context(), cfg, cmd, nil)
		},
	}

	cmd.Flags().String("listen-addr", config.DefaultListenAddr, "API listen address")
	cmd.Flags().String("metrics-addr", config.DefaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("database-url", "", "PostgreSQL connection URL (default: DATABASE_URL)")
	cmd.Flags().Duration("session-ttl", config.DefaultSessionTTL, "session lifetime")
	cmd.Flags().String("cookie-name", config.DefaultCookieName, "session cookie name")
	cmd.Flags().Bool("cookie-secure", false, "set the Secure attribute on session cookies")
	cmd.Flags().StringSlice("cors-origins", nil, "allowed CORS origins")
	cmd.Flags().String("log-format", config.DefaultLogFormat, "log format (json or text)")

	return cmd
}

// runServeWithDeps starts the server with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cfg *config.Config, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.PoolFactory == nil {
		deps.PoolFactory = store.Connect
	}
	if deps.APIServerFactory == nil {
		deps.APIServerFactory = func(authSvc httpapi.AuthService, messageSvc httpapi.MessageService, opts httpapi.Options) (APIServer, error) {
			return httpapi.NewServer(authSvc, messageSvc, opts)
		}
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logging.SetDefault("courier", version, cfg.LogFormat)
	logger := slog.Default()

	logger.Info("starting courier server",
		"listen_addr", cfg.ListenAddr,
		"log_format", cfg.LogFormat,
	)

	pool, err := deps.PoolFactory(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	logger.Info("connected to database")

	userRepo := authpg.NewUserRepository(pool)
	sessionRepo := authpg.NewSessionRepository(pool)
	messageRepo := messagingpg.NewMessageRepository(pool)

	authSvc, err := auth.NewServiceWithLogger(userRepo, sessionRepo, auth.NewBcryptHasher(), cfg.SessionTTL, logger)
	if err != nil {
		return fmt.Errorf("failed to create auth service: %w", err)
	}
	messageSvc, err := messaging.NewServiceWithLogger(messageRepo, userRepo, logger)
	if err != nil {
		return fmt.Errorf("failed to create message service: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Start observability server if configured
	var obsServer ObservabilityServer
	var metrics *observability.Metrics
	if cfg.MetricsAddr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.MetricsAddr, func() bool {
			return pool.Ping(ctx) == nil
		})
		obsErrChan, obsErr := obsServer.Start()
		if obsErr != nil {
			return fmt.Errorf("failed to start observability server: %w", obsErr)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		metrics = obsServer.Metrics()
		logger.Info("observability server started", "addr", obsServer.Addr())
	}

	apiServer, err := deps.APIServerFactory(authSvc, messageSvc, httpapi.Options{
		Addr:         cfg.ListenAddr,
		CookieName:   cfg.CookieName,
		CookieSecure: cfg.CookieSecure,
		CORSOrigins:  cfg.CORSOrigins,
		Metrics:      metrics,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create api server: %w", err)
	}

	apiErrChan, err := apiServer.Start()
	if err != nil {
		return fmt.Errorf("failed to start api server: %w", err)
	}
	go monitorServerErrors(ctx, cancel, apiErrChan, "api")

	// Sweep expired sessions in the background
	go runSessionPruner(ctx, authSvc, metrics, logger)

	cmd.Println("Courier server started")
	logger.Info("courier server ready", "addr", apiServer.Addr())

	// Wait for shutdown signal or server failure
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Warn("error stopping api server", "error", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

// sessionPruner is the subset of the auth service the pruner needs.
type sessionPruner interface {
	PruneExpired(ctx context.Context) (int64, error)
}

// runSessionPruner deletes expired sessions on a fixed interval until the
// context is cancelled.
func runSessionPruner(ctx context.Context, pruner sessionPruner, metrics *observability.Metrics, logger *slog.Logger) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruned, err := pruner.PruneExpired(ctx)
			if err != nil {
				logger.Warn("session prune failed", "error", err)
				continue
			}
			if metrics != nil && pruned > 0 {
				metrics.SessionsPruned.Add(float64(pruned))
			}
		}
	}
}

// monitorServerErrors watches a server error channel and cancels the
// process context when the server fails.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok && err != nil {
			slog.Error("server failed", "server", serverName, "error", err)
			cancel()
		}
	}
}
