package storage

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"linkbio/internal/domain"
)

// Dialect captures the SQL differences between the document-store backends.
type Dialect struct {
	Name string
	// Numbered turns ? placeholders into $1, $2, ...
	Numbered bool
	// Schema creates the documents table when missing.
	Schema string
	// Upsert writes (path, value_json, updated_at).
	Upsert string
	// LockClause is appended to the read inside Update.
	LockClause string
}

var SQLiteDialect = Dialect{
	Name: "sqlite",
	Upsert: `INSERT INTO documents (path, value_json, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET value_json = excluded.value_json, updated_at = excluded.updated_at`,
}

// DocumentStore implements domain.DocumentStore on a SQL table holding one
// JSON object per path.
type DocumentStore struct {
	conn    *sql.DB
	dialect Dialect
	owned   bool
}

// NewDocumentStore returns the SQLite-backed store of db. Closing it leaves
// db open.
func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{conn: db.Conn(), dialect: SQLiteDialect}
}

// OpenSQLDocumentStore wraps an already opened connection of another SQL
// engine, creating the table if needed. The store owns conn.
func OpenSQLDocumentStore(ctx context.Context, conn *sql.DB, d Dialect) (*DocumentStore, error) {
	if d.Schema != "" {
		if _, err := conn.ExecContext(ctx, d.Schema); err != nil {
			return nil, fmt.Errorf("%s: create documents table: %w", d.Name, err)
		}
	}
	return &DocumentStore{conn: conn, dialect: d, owned: true}, nil
}

func (s *DocumentStore) q(query string) string {
	if !s.dialect.Numbered {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func (s *DocumentStore) Get(ctx context.Context, path string) (json.RawMessage, error) {
	var value string
	err := s.conn.QueryRowContext(ctx, s.q(`SELECT value_json FROM documents WHERE path = ?`), path).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %s: %w", path, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	return json.RawMessage(value), nil
}

func (s *DocumentStore) Set(ctx context.Context, path string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("set %s: marshal: %w", path, err)
	}
	if _, err := s.conn.ExecContext(ctx, s.q(s.dialect.Upsert), path, string(data), time.Now().UTC()); err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	return nil
}

func (s *DocumentStore) Update(ctx context.Context, path string, fields map[string]any) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update %s: begin: %w", path, err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx, s.q(`SELECT value_json FROM documents WHERE path = ?`+s.dialect.LockClause), path).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update %s: read: %w", path, err)
	}
	merged, err := MergeJSON([]byte(current), fields)
	if err != nil {
		return fmt.Errorf("update %s: %w", path, err)
	}
	if _, err := tx.ExecContext(ctx, s.q(s.dialect.Upsert), path, string(merged), time.Now().UTC()); err != nil {
		return fmt.Errorf("update %s: write: %w", path, err)
	}
	return tx.Commit()
}

// Increment adds delta to a numeric top-level field inside one transaction.
func (s *DocumentStore) Increment(ctx context.Context, path, field string, delta int64) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("increment %s: begin: %w", path, err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx, s.q(`SELECT value_json FROM documents WHERE path = ?`+s.dialect.LockClause), path).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("increment %s: read: %w", path, err)
	}
	next, err := IncrementJSON([]byte(current), field, delta)
	if err != nil {
		return fmt.Errorf("increment %s: %w", path, err)
	}
	if _, err := tx.ExecContext(ctx, s.q(s.dialect.Upsert), path, string(next), time.Now().UTC()); err != nil {
		return fmt.Errorf("increment %s: write: %w", path, err)
	}
	return tx.Commit()
}

// Close closes the connection when the store opened it.
func (s *DocumentStore) Close() error {
	if s.owned {
		return s.conn.Close()
	}
	return nil
}

// MergeJSON sets fields on the JSON object in current (empty means {}).
func MergeJSON(current []byte, fields map[string]any) ([]byte, error) {
	obj := map[string]any{}
	if len(bytes.TrimSpace(current)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(current))
		dec.UseNumber()
		if err := dec.Decode(&obj); err != nil {
			return nil, fmt.Errorf("decode existing value: %w", err)
		}
		if obj == nil {
			obj = map[string]any{}
		}
	}
	for k, v := range fields {
		obj[k] = v
	}
	out, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("encode merged value: %w", err)
	}
	return out, nil
}

// IncrementJSON adds delta to the integer field of the JSON object in
// current. A missing or non-numeric field counts as zero.
func IncrementJSON(current []byte, field string, delta int64) ([]byte, error) {
	var n int64
	if len(bytes.TrimSpace(current)) > 0 {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(current, &obj); err != nil {
			return nil, fmt.Errorf("decode existing value: %w", err)
		}
		if raw, ok := obj[field]; ok {
			if v, err := strconv.ParseInt(string(raw), 10, 64); err == nil {
				n = v
			}
		}
	}
	return MergeJSON(current, map[string]any{field: n + delta})
}
