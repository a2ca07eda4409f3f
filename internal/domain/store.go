package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// DocumentStore is a path-addressed key-value store holding JSON objects.
// Get returns ErrNotFound for a missing path. Update merges the given
// top-level fields into the object at path, creating it when absent.
type DocumentStore interface {
	Get(ctx context.Context, path string) (json.RawMessage, error)
	Set(ctx context.Context, path string, value any) error
	Update(ctx context.Context, path string, fields map[string]any) error
	Close() error
}

// GetInto reads path and decodes it into dst.
func GetInto(ctx context.Context, s DocumentStore, path string, dst any) error {
	raw, err := s.Get(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// ProgressFunc reports bytes written out of total for one upload.
type ProgressFunc func(written, total int64)

// ObjectStore persists binaries and returns a permanent fetchable URL.
type ObjectStore interface {
	Upload(ctx context.Context, path string, r io.Reader, size int64, progress ProgressFunc) (string, error)
}

// Incrementer is implemented by stores that can add to a numeric field
// atomically. Increment creates the field (and the record) when absent.
type Incrementer interface {
	Increment(ctx context.Context, path, field string, delta int64) error
}

// Increment adds delta to field at path, atomically when s supports it and
// by read-then-update otherwise.
func Increment(ctx context.Context, s DocumentStore, path, field string, delta int64) error {
	if inc, ok := s.(Incrementer); ok {
		return inc.Increment(ctx, path, field, delta)
	}
	var current map[string]any
	if err := GetInto(ctx, s, path, &current); err != nil {
		return err
	}
	n, _ := current[field].(float64)
	return s.Update(ctx, path, map[string]any{field: int64(n) + delta})
}
