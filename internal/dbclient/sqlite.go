package dbclient

import (
	"context"

	"linkbio/internal/config"
	"linkbio/internal/storage"

	_ "modernc.org/sqlite"
)

// openSQLiteStore opens a document store in a separate SQLite file.
// Opens in WAL mode with busy timeout for concurrent access.
func openSQLiteStore(ctx context.Context, cfg config.StoreConfig) (*storage.DocumentStore, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = cfg.Host + "?_journal_mode=WAL&_busy_timeout=5000"
	}
	return openSQLStore(ctx, "sqlite", dsn, sqliteFileDialect)
}
