package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/moodlens/moodlens/backend/session-service/internal/config"
	"github.com/moodlens/moodlens/backend/session-service/internal/database"
	"github.com/moodlens/moodlens/backend/session-service/internal/sessions"
	"github.com/moodlens/moodlens/backend/session-service/pkg/logger"
)

const (
	connectAttempts = 5
	connectBackoff  = time.Second
)

// backend is the opened session repository plus the shared clients other
// components (rate limiter) may reuse.
type backend struct {
	repo  sessions.Repository
	redis *redis.Client
	close func()
}

// openBackend connects the repository selected by SESSION_STORE, retrying
// with exponential backoff to tolerate startup races.
func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	b := &backend{close: func() {}}
	switch cfg.Session.Store {
	case config.StoreMongo:
		client, err := database.Retry(ctx, "MongoDB", connectAttempts, connectBackoff, func(ctx context.Context) (*mongo.Client, error) {
			return database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
		})
		if err != nil {
			return nil, fmt.Errorf("could not connect to MongoDB after %d attempts: %w", connectAttempts, err)
		}
		repo := sessions.NewMongoRepository(client.Database(cfg.MongoDB.Database).Collection(cfg.MongoDB.Collection))
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("ensure session indexes: %w", err)
		}
		b.repo = repo
		b.close = func() { _ = client.Disconnect(context.Background()) }
		logger.Infof("Using MongoDB for session storage (db=%s collection=%s)", cfg.MongoDB.Database, cfg.MongoDB.Collection)
	case config.StoreRedis:
		client, err := connectRedis(ctx, cfg)
		if err != nil {
			return nil, err
		}
		b.repo = sessions.NewRedisRepository(client, cfg.Redis.KeyPrefix)
		b.redis = client
		b.close = func() { _ = client.Close() }
		logger.Infof("Using Redis for session storage (%s)", cfg.Redis.Addr())
	case config.StorePostgres:
		pool, err := database.Retry(ctx, "Postgres", connectAttempts, connectBackoff, func(ctx context.Context) (*pgxpool.Pool, error) {
			return database.ConnectPostgres(ctx, cfg.Postgres.URL, cfg.Postgres.Timeout)
		})
		if err != nil {
			return nil, fmt.Errorf("could not connect to Postgres after %d attempts: %w", connectAttempts, err)
		}
		b.repo = sessions.NewPostgresRepository(pool)
		b.close = pool.Close
		logger.Infof("Using Postgres for session storage (run cmd/migrate -target=postgres to create the schema)")
	case config.StoreMemory:
		b.repo = sessions.NewMemoryRepository()
		logger.Warnf("Using in-memory session storage: sessions are lost on restart and not shared between replicas")
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.Session.Store)
	}

	// the distributed rate limiter shares Redis even when sessions live elsewhere
	if b.redis == nil && cfg.RateLimit.UseRedis {
		client, err := connectRedis(ctx, cfg)
		if err != nil {
			b.close()
			return nil, err
		}
		prev := b.close
		b.redis = client
		b.close = func() { prev(); _ = client.Close() }
	}
	return b, nil
}

func connectRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	opts := database.RedisOptions{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password, DB: cfg.Redis.DB}
	client, err := database.Retry(ctx, "Redis", connectAttempts, connectBackoff, func(ctx context.Context) (*redis.Client, error) {
		return database.ConnectRedis(ctx, opts, 5*time.Second)
	})
	if err != nil {
		return nil, fmt.Errorf("could not connect to Redis after %d attempts: %w", connectAttempts, err)
	}
	return client, nil
}
