package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/UkralStul/geoposts-service/internal/api"
	"github.com/UkralStul/geoposts-service/internal/auth"
	"github.com/UkralStul/geoposts-service/internal/config"
	"github.com/UkralStul/geoposts-service/internal/feed"
	"github.com/UkralStul/geoposts-service/internal/logging"
	"github.com/UkralStul/geoposts-service/internal/service"
	"github.com/UkralStul/geoposts-service/internal/storage"
	"github.com/UkralStul/geoposts-service/internal/storage/inmemory"
	"github.com/UkralStul/geoposts-service/internal/storage/mongo"
	"github.com/UkralStul/geoposts-service/internal/storage/postgres"
)

func main() {
	driver := flag.String("storage", "", "Storage type (memory, mongo or postgres), overrides config")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	if *driver != "" {
		cfg.Storage.Driver = *driver
		if err := cfg.Validate(); err != nil {
			logging.Fatal().Err(err).Msg("invalid storage flag")
		}
	}

	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("storage", cfg.Storage.Driver).Msg("starting server")
	store, err := openStorage(ctx, cfg)
	if err != nil {
		logging.Fatal().Err(err).Str("storage", cfg.Storage.Driver).Msg("failed to open storage")
	}

	manager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create token manager")
	}

	observer := feed.NewCommentObserver()
	posts := service.NewPosts(store)
	comments := service.NewComments(store, observer)

	if mem, ok := store.(*inmemory.Store); ok && cfg.Storage.Seed {
		fillWithMockData(ctx, mem, posts, comments)
	}

	router := api.NewRouter(api.Deps{
		Store:    store,
		Posts:    posts,
		Comments: comments,
		Feed:     observer,
		Auth:     manager,
	}, api.Options{
		APIPrefix:       cfg.Server.APIPrefix,
		CORSOrigins:     cfg.Security.CORSOrigins,
		RateLimitReqs:   cfg.Security.RateLimitReqs,
		RateLimitWindow: cfg.Security.RateLimitWindow,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logging.Info().Str("addr", srv.Addr).Str("api_prefix", cfg.Server.APIPrefix).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	<-ctx.Done()
	logging.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("graceful shutdown failed")
	}
	if err := store.Close(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("failed to close storage")
	}
	logging.Info().Msg("server stopped")
}

func openStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	switch cfg.Storage.Driver {
	case config.DriverMongo:
		store, err := mongo.New(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Timeout)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = store.Close(ctx)
			return nil, err
		}
		return store, nil
	case config.DriverPostgres:
		store, err := postgres.New(cfg.Postgres.DSN, cfg.Postgres.Debug)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return inmemory.New(), nil
	}
}
