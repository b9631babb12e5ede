// Command server runs the VisionFit API: organization auth, product
// catalog and the virtual try-on session pipeline.
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

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	app "github.com/visionfit/backend/internal/app"
	"github.com/visionfit/backend/internal/app/httpapi"
	"github.com/visionfit/backend/internal/app/metrics"
	"github.com/visionfit/backend/internal/app/services/auth"
	"github.com/visionfit/backend/internal/app/storage/postgres"
	"github.com/visionfit/backend/internal/config"
	"github.com/visionfit/backend/internal/middleware"
	"github.com/visionfit/backend/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Best effort; production deployments configure the environment
	// directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.LoggingConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}).WithComponent("server")

	stores := app.Stores{}
	databaseDriver := "memory"
	var db *sql.DB
	if cfg.Database.DSN != "" {
		db, err = openDatabase(cfg.Database)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		store := postgres.New(db)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err = store.EnsureSchema(ctx)
		cancel()
		if err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}

		stores = app.Stores{
			Organizations: store,
			Users:         store,
			ApiKeys:       store,
			Products:      store,
			Sessions:      store,
		}
		databaseDriver = cfg.Database.Driver
	} else {
		log.Warnf("DATABASE_DSN not set; using in-memory storage")
	}

	application, err := app.New(app.Config{
		Auth: auth.Config{
			JWTSecret: []byte(cfg.Auth.JWTSecret),
			TokenTTL:  cfg.Auth.TokenTTL,
		},
		Live:             cfg.TryOn.Live,
		ProviderEndpoint: cfg.TryOn.ProviderURL,
		ProviderKey:      cfg.TryOn.ProviderKey,
	}, stores, log)
	if err != nil {
		return fmt.Errorf("build application: %w", err)
	}

	if cfg.SeedPath != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err = application.Products.LoadSeed(ctx, cfg.SeedPath)
		cancel()
		if err != nil {
			log.WithError(err).Warnf("catalog seed failed")
		}
	}

	handler := httpapi.NewHandler(application, httpapi.Options{
		RequireAPIKey:  cfg.TryOn.RequireAPIKey,
		Live:           cfg.TryOn.Live,
		DatabaseDriver: databaseDriver,
	})

	limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst, log)
	limiter.StartCleanup(10 * time.Minute)
	cors := middleware.NewCORSMiddleware(cfg.HTTP.CORSAllowedOrigins)

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           cors.Handler(limiter.Handler(metrics.InstrumentHandler(handler))),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("listening on %s (live=%v)", srv.Addr, cfg.TryOn.Live)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Infof("received %s; shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func openDatabase(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
