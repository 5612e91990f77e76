package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat_playground/internal/config"
	"chat_playground/internal/handlers"
	"chat_playground/internal/logger"
	"chat_playground/internal/repository"
	"chat_playground/internal/repository/db"
	"chat_playground/internal/server"
	"chat_playground/internal/service"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

// app is the wired dependency graph shared by all subcommands.
type app struct {
	cfg      config.Config
	log      *logger.Logger
	db       *sql.DB
	services *service.Service
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log := logger.Get(cfg.LogLevel, logger.FormatFor(cfg.Env))

	conn, err := db.InitDB(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("init sqlite: %w", err)
	}

	repos := repository.NewRepository(conn)
	services := service.NewService(repos, service.Options{
		JWTSecret:      cfg.JWTSecret,
		TokenTTL:       cfg.JWTTTL,
		UserRateLimit:  cfg.DefaultRateLimit,
		AdminRateLimit: cfg.AdminRateLimit,
		HistoryWindow:  cfg.ChatHistoryWindow,
	})
	return &app{cfg: cfg, log: log, db: conn, services: services}, nil
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		a.log.Errorw("failed to close sqlite", "err", err)
	}
	_ = a.log.Sync()
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if a.cfg.JWTSecret == config.DefaultJWTSecret {
		a.log.Warnw("using the development jwt secret; set APP_JWT_SECRET")
	}
	if a.cfg.AdminPassword != "" {
		created, err := a.services.EnsureAdmin(cmd.Context(), a.cfg.AdminEmail, a.cfg.AdminPassword)
		if err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		if created {
			a.log.Infow("admin_account_created", "email", a.cfg.AdminEmail)
		}
	}

	apiHandler := handlers.NewHandler(a.services, a.log, handlers.Options{
		Production:        a.cfg.IsProduction(),
		StreamDelay:       a.cfg.ChatStreamDelay,
		AuthRatePerMinute: a.cfg.AuthIPRatePerMinute,
		AuthBurst:         a.cfg.AuthIPBurst,
		CORSOrigins:       a.cfg.CORSAllowedOrigins,
		TrustedProxies:    a.cfg.TrustedProxies,
	})

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go a.services.Limiter.Run(ctx, a.cfg.LimiterPrune)
	go apiHandler.RunPruner(ctx, a.cfg.LimiterPrune)

	srv := &server.Server{WriteTimeout: a.cfg.WriteTimeout}
	errCh := runHTTPServer(srv, a.cfg.Port, apiHandler, a.log)

	return waitForShutdown(cancel, srv, errCh, a.log)
}

// runHTTPServer runs the HTTP server in a separate goroutine. The channel
// receives the error if the listener fails for any reason other than Shutdown.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		log.Infow("http_server_started", "port", port)
		if err := srv.Run(port, handler.InitRoutes()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	return errCh
}

// waitForShutdown blocks until a termination signal or a server failure, then
// stops background goroutines and drains in-flight requests.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, errCh <-chan error, log *logger.Logger) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Infow("shutting down server...")
	case err := <-errCh:
		cancel()
		return fmt.Errorf("http server: %w", err)
	}

	// stop background goroutines
	cancel()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
