package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendMongo    = "mongo"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

type Config struct {
	Backend        string
	KeyPrefix      string
	TTL            time.Duration
	RedisAddr      string
	RedisPassword  string
	MongoURI       string
	MongoDBName    string
	SQLitePath     string
	Postgres       Credentials
	MigrationsPath string
}

// Open connects the configured backend and prepares its schema.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case BackendMemory, "":
		return NewMemoryStore(), nil

	case BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis connection failed: %w", err)
		}
		return NewRedisStore(client, cfg.KeyPrefix, cfg.TTL), nil

	case BackendMongo:
		db, err := ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, err
		}
		store := NewMongoStore(db, cfg.TTL)
		if err := store.CreateIndexes(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		return store, nil

	case BackendSQLite:
		store, err := NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := store.RunMigrations(cfg.MigrationsPath); err != nil {
			_ = store.Close()
			return nil, err
		}
		return store, nil

	case BackendPostgres:
		store, err := NewPostgresStore(&cfg.Postgres)
		if err != nil {
			return nil, err
		}
		if err := store.RunMigrations(cfg.MigrationsPath); err != nil {
			_ = store.Close()
			return nil, err
		}
		return store, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}
