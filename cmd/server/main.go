package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/registry/internal/config"
	"github.com/JonMunkholm/registry/internal/core"
	"github.com/JonMunkholm/registry/internal/database"
	"github.com/JonMunkholm/registry/internal/logging"
	"github.com/JonMunkholm/registry/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_max_conns", cfg.Database.MaxConns,
		"upload_max_concurrent", cfg.Storage.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)
	slog.Debug("effective configuration", "config", cfg.String())

	if err := run(cfg); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}

	if cfg.Database.Migrate {
		if err := database.Migrate(ctx, pool); err != nil {
			return err
		}
	}
	if v, err := database.Version(ctx, pool); err == nil {
		slog.Info("schema version", "version", v)
	}

	files, err := core.NewDiskFileStore(cfg.Storage.Dir)
	if err != nil {
		return err
	}

	service := core.NewService(core.NewPGStore(pool), files,
		core.WithBcryptCost(cfg.Auth.BcryptCost),
		core.WithSessionTTL(cfg.Auth.SessionTTL),
		core.WithServiceLogger(slog.Default().With("component", "service")),
	)

	created, err := service.EnsureAdmin(ctx, core.Bootstrap{
		Name:     cfg.Auth.AdminName,
		Email:    cfg.Auth.AdminEmail,
		Password: cfg.Auth.AdminPassword,
		RoleID:   int32(cfg.Auth.AdminRoleID),
	})
	if err != nil {
		return err
	}
	if created {
		slog.Info("bootstrap admin created", "email", cfg.Auth.AdminEmail)
	}

	uploads := core.NewUploadLimiter(cfg.Storage.MaxConcurrent, cfg.Storage.MaxWait)
	server := web.NewServer(service, uploads, cfg)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		purgeSessions(gctx, service, cfg.Auth.SessionCleanupInterval)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if n := uploads.ActiveCount(); n > 0 {
			slog.Info("waiting for uploads to complete", "active", n)
			if err := uploads.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("uploads did not complete in time", "error", err)
			} else {
				slog.Info("all uploads completed")
			}
		}
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// purgeSessions deletes expired sessions every interval until ctx ends.
func purgeSessions(ctx context.Context, service *core.Service, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := service.PurgeSessions(ctx)
			if err != nil {
				slog.Warn("session purge failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("expired sessions purged", "count", n)
			}
		}
	}
}
