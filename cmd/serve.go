package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"UsersAPI/internal/auth"
	"UsersAPI/internal/db"
	"UsersAPI/internal/handler"
	"UsersAPI/internal/logger"
	"UsersAPI/internal/model"
	"UsersAPI/internal/resolver"
	"UsersAPI/internal/router"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.InitPostgres(ctx, cfg.PostgresDSN, cfg.PostgresPool); err != nil {
		return fmt.Errorf("postgres init failed: %w", err)
	}
	defer db.ClosePostgres()

	db.InitRedis(cfg.RedisAddr)
	defer db.CloseRedis()
	if err := db.PingRedis(ctx); err != nil {
		logger.Warn("redis_unreachable", map[string]any{"error": err.Error()})
	}

	model.SetMaxIncludeDepth(cfg.MaxIncludeDepth)
	if err := model.InitRegistry(cfg.ModelsDir); err != nil {
		return fmt.Errorf("registry init failed: %w", err)
	}
	resolver.SetCountCacheTTL(cfg.CountCache.TTL)

	var validator *auth.JWTValidator
	if cfg.Auth.Enabled {
		validator, err = auth.NewJWTValidator(cfg.Auth.JWT)
		if err != nil {
			return fmt.Errorf("auth init failed: %w", err)
		}
	}

	users := handler.NewUsers(handler.UsersConfig{
		DefaultLimit: cfg.Filters.DefaultLimit,
		LimitMax:     cfg.Filters.LimitMax,
		AuthEnabled:  cfg.Auth.Enabled,
		RolesClaim:   cfg.Auth.JWT.RolesClaim,
		AdminRole:    cfg.Auth.AdminRole,
	}, handler.ResolverStore{})

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: router.NewRouter(cfg, router.Deps{
			Users:  users,
			Auth:   validator,
			Health: db.Ping,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_start", map[string]any{"port": cfg.Port, "auth": cfg.Auth.Enabled})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("server_shutdown", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
