package dbclient

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"linkbio/internal/storage"
)

var postgresDialect = storage.Dialect{
	Name:     "postgres",
	Numbered: true,
	Schema: `CREATE TABLE IF NOT EXISTS documents (
		path TEXT PRIMARY KEY,
		value_json TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	Upsert: `INSERT INTO documents (path, value_json, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (path) DO UPDATE SET value_json = EXCLUDED.value_json, updated_at = EXCLUDED.updated_at`,
	LockClause: " FOR UPDATE",
}

var mysqlDialect = storage.Dialect{
	Name: "mysql",
	Schema: `CREATE TABLE IF NOT EXISTS documents (
		path VARCHAR(255) PRIMARY KEY,
		value_json LONGTEXT NOT NULL,
		updated_at DATETIME(3) NOT NULL
	)`,
	Upsert: `INSERT INTO documents (path, value_json, updated_at) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE value_json = VALUES(value_json), updated_at = VALUES(updated_at)`,
	LockClause: " FOR UPDATE",
}

var sqliteFileDialect = storage.Dialect{
	Name: "sqlite",
	Schema: `CREATE TABLE IF NOT EXISTS documents (
		path TEXT PRIMARY KEY,
		value_json TEXT NOT NULL DEFAULT '{}',
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	Upsert: storage.SQLiteDialect.Upsert,
}

// openSQLStore opens a pooled connection, checks it and wraps it as a
// document store.
func openSQLStore(ctx context.Context, driverName, dsn string, d storage.Dialect) (*storage.DocumentStore, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driverName, err)
	}
	db.SetMaxOpenConns(10)
	if driverName == "sqlite" {
		db.SetMaxOpenConns(1)
	}
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driverName, err)
	}

	store, err := storage.OpenSQLDocumentStore(ctx, db, d)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}
