package store

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"enquirydesk/internal/config"
	"enquirydesk/internal/database"
)

// Open builds the configured backend, wrapped with metrics. The returned
// close function releases its connections.
func Open(ctx context.Context, cfg *config.StoreConfig, log *zap.Logger) (KV, func() error, error) {
	noop := func() error { return nil }
	log = log.Named("store")

	switch cfg.Backend {
	case config.BackendSQL:
		db, err := database.Open(ctx, cfg, log)
		if err != nil {
			return nil, nil, err
		}
		s := NewSQLStore(db)
		if err := s.Migrate(ctx); err != nil {
			_ = database.Close(db)
			return nil, nil, err
		}
		log.Info("key/value store ready", zap.String("backend", cfg.Backend))
		return NewInstrumented(s, cfg.Backend), func() error { return database.Close(db) }, nil

	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		s := NewRedisStore(client)
		if err := s.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ping failed: %w", err)
		}
		log.Info("key/value store ready", zap.String("backend", cfg.Backend), zap.String("addr", cfg.Redis.Addr))
		return NewInstrumented(s, cfg.Backend), client.Close, nil

	case config.BackendDynamoDB:
		client, err := NewDynamoClient(ctx, cfg.Dynamo)
		if err != nil {
			return nil, nil, err
		}
		log.Info("key/value store ready",
			zap.String("backend", cfg.Backend),
			zap.String("table", cfg.Dynamo.Table),
			zap.String("region", cfg.Dynamo.Region))
		return NewInstrumented(NewDynamoStore(client, cfg.Dynamo.Table), cfg.Backend), noop, nil

	case config.BackendMemory:
		log.Warn("using in-memory store; data is lost on restart")
		return NewInstrumented(NewMemoryStore(), cfg.Backend), noop, nil
	}

	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}
