package dbclient

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"linkbio/internal/config"
	"linkbio/internal/domain"
	"linkbio/internal/logging"
	"linkbio/internal/secret"
	"linkbio/internal/storage"
)

// Open returns the document store selected by cfg.Driver. The sqlite
// driver with no host or dsn reuses the application database local; every
// other store owns its connection and is released by Close.
func Open(ctx context.Context, cfg config.StoreConfig, local *storage.DB, secrets secret.SecretStore, logger *zap.Logger) (domain.DocumentStore, error) {
	logger = logging.OrNop(logger).Named("store")

	password, err := lookupPassword(cfg, secrets)
	if err != nil {
		return nil, err
	}

	logger.Info("opening document store", zap.String("driver", cfg.Driver))
	switch cfg.Driver {
	case "", "sqlite":
		if cfg.Host == "" && cfg.DSN == "" {
			if local == nil {
				return nil, fmt.Errorf("sqlite store: no database configured")
			}
			return storage.NewDocumentStore(local), nil
		}
		return openSQLiteStore(ctx, cfg)
	case "postgres":
		return openSQLStore(ctx, "postgres", buildPostgresDSN(cfg, password), postgresDialect)
	case "mysql":
		return openSQLStore(ctx, "mysql", buildMySQLDSN(cfg, password), mysqlDialect)
	case "mongodb":
		return openMongoStore(ctx, cfg, password, logger)
	case "redis":
		return openRedisStore(ctx, cfg, password)
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}
}

func lookupPassword(cfg config.StoreConfig, secrets secret.SecretStore) (string, error) {
	if cfg.PasswordSecret == "" || secrets == nil {
		return "", nil
	}
	v, err := secrets.Get(cfg.PasswordSecret)
	if err != nil {
		return "", fmt.Errorf("read store password %s: %w", cfg.PasswordSecret, err)
	}
	return string(v), nil
}
