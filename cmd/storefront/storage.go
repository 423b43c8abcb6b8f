package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/example/caprieux-storefront/internal/config"
	"github.com/example/caprieux-storefront/internal/infrastructure/kafka"
	"github.com/example/caprieux-storefront/internal/infrastructure/storage"
	"github.com/example/caprieux-storefront/internal/infrastructure/store"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// backend is the opened state storage. db is set for the postgres driver so
// the journal can share the connection.
type backend struct {
	kv     storage.KeyValueStore
	db     *sql.DB
	closer io.Closer
}

// openStorage connects the configured driver and wraps it in a sealed store
// when a passphrase is set.
func openStorage(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (*backend, error) {
	var (
		kv     storage.KeyValueStore
		db     *sql.DB
		closer io.Closer = closerFunc(func() error { return nil })
	)

	switch cfg.Driver {
	case config.DriverMemory:
		kv = storage.NewMemoryStore()
	case config.DriverFile:
		fs, err := storage.NewFileStore(cfg.Dir)
		if err != nil {
			return nil, err
		}
		kv = fs
	case config.DriverRedis:
		client, err := storage.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		kv = storage.NewRedisStore(client, "caprieux:"+cfg.Namespace+":")
		closer = client
	case config.DriverPostgres:
		conn, err := storage.ConnectPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		pg := storage.NewPostgresStore(conn, cfg.Namespace)
		if err := pg.EnsureSchema(ctx); err != nil {
			conn.Close()
			return nil, fmt.Errorf("postgres schema: %w", err)
		}
		kv = pg
		db = conn
		closer = conn
	case config.DriverDynamoDB:
		client, err := storage.NewDynamoClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("dynamodb client: %w", err)
		}
		kv = storage.NewDynamoStore(client, cfg.DynamoTable, cfg.Namespace)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownDriver, cfg.Driver)
	}
	logger.Debug("storage opened", zap.String("driver", cfg.Driver))

	if cfg.Passphrase != "" {
		sealed, err := storage.NewSealedStore(ctx, kv, cfg.Passphrase)
		if err != nil {
			closer.Close()
			return nil, fmt.Errorf("seal storage: %w", err)
		}
		kv = sealed
	}
	return &backend{kv: kv, db: db, closer: closer}, nil
}

// openJournal returns the activity journal, publishing to Kafka when brokers
// are configured. Events are kept in postgres when the state lives there and
// in memory otherwise.
func openJournal(ctx context.Context, cfg *config.Config, db *sql.DB, logger *zap.Logger) (store.Journal, io.Closer, error) {
	var (
		publisher store.Publisher
		closer    io.Closer = closerFunc(func() error { return nil })
	)
	if cfg.Kafka.Enabled() {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		logger.Info("publishing storefront events",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
		publisher = producer
		closer = producer
	}

	if db == nil {
		return store.NewMemoryJournal(publisher), closer, nil
	}
	journal := store.NewPostgresJournal(db, cfg.Storage.Namespace, publisher)
	if err := journal.EnsureSchema(ctx); err != nil {
		closer.Close()
		return nil, nil, fmt.Errorf("journal schema: %w", err)
	}
	return journal, closer, nil
}
