package main

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/Cheertaboi/coupon-studio/internal/cache"
	"github.com/Cheertaboi/coupon-studio/internal/config"
	"github.com/Cheertaboi/coupon-studio/internal/docstore"
	"github.com/Cheertaboi/coupon-studio/internal/platform/logger"
	"github.com/Cheertaboi/coupon-studio/internal/presence"
	"github.com/Cheertaboi/coupon-studio/internal/repository"
	"github.com/Cheertaboi/coupon-studio/pkg/db"
)

// app holds the backends shared by every command.
type app struct {
	cfg      *config.Config
	store    docstore.Store
	rdb      *redis.Client
	feed     presence.Feed
	presence *presence.Service
}

func loadConfig() (*config.Config, error) {
	logger.New(serviceName, os.Getenv("LOG_LEVEL"))
	cfg, err := config.New()
	if err != nil {
		return nil, err
	}
	logger.New(serviceName, cfg.LogLevel)
	return cfg, nil
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, store: store}

	if cfg.RedisURL != "" {
		a.rdb, err = db.NewRedisClient(cfg.RedisURL)
		if err != nil {
			a.close()
			return nil, err
		}
		a.feed, err = presence.NewRedisFeed(ctx, a.rdb)
		if err != nil {
			a.close()
			return nil, err
		}
	} else {
		log.Warn().Msg("REDIS_URL not set, presence changes stay in this process")
		a.feed = presence.NewMemoryFeed()
	}

	a.presence = presence.NewService(
		repository.NewLocationRepo(store),
		repository.NewProfileRepo(store),
		cache.NewProfileCache(cfg.ProfileCacheTTL),
		a.feed,
		cfg.StaleAfter,
	)
	return a, nil
}

func openStore(ctx context.Context, cfg *config.Config) (docstore.Store, error) {
	switch cfg.StoreDriver {
	case "postgres":
		conn, err := db.NewPostgresConnection(cfg.PostgresConfig)
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		s := docstore.NewPostgresStore(conn)
		if err := s.EnsureSchema(ctx); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		log.Info().Str("host", cfg.Host).Str("database", cfg.DBName).Msg("using postgres document store")
		return s, nil
	case "mongo":
		client, err := db.NewMongoClient(cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		log.Info().Str("database", cfg.MongoDatabase).Msg("using mongo document store")
		return docstore.NewMongoStore(client.Database(cfg.MongoDatabase)), nil
	default:
		log.Warn().Msg("using in-memory document store, data is lost on restart")
		return docstore.NewMemoryStore(), nil
	}
}

func (a *app) close() {
	if a.feed != nil {
		if err := a.feed.Close(); err != nil {
			log.Warn().Err(err).Msg("close presence feed")
		}
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if err := a.store.Close(); err != nil {
		log.Warn().Err(err).Msg("close document store")
	}
}
