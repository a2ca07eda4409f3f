package dbclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"linkbio/internal/config"
	"linkbio/internal/domain"
	"linkbio/internal/storage"
)

const redisMaxRetries = 8

// redisStore keeps each document as a JSON string under {prefix}:{path}.
type redisStore struct {
	rdb    *redis.Client
	prefix string
}

func redisOptions(cfg config.StoreConfig, password string) (*redis.Options, error) {
	if cfg.DSN != "" {
		opts, err := redis.ParseURL(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return opts, nil
	}
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 6379
	}
	opts := &redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Username: cfg.Username,
		Password: password,
	}
	if cfg.Database != "" {
		n, err := strconv.Atoi(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("redis database must be a number: %q", cfg.Database)
		}
		opts.DB = n
	}
	return opts, nil
}

func openRedisStore(ctx context.Context, cfg config.StoreConfig, password string) (*redisStore, error) {
	opts, err := redisOptions(cfg, password)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	prefix := cfg.Collection
	if prefix == "" {
		prefix = "linkbio"
	}
	return &redisStore{rdb: rdb, prefix: prefix}, nil
}

func (r *redisStore) key(path string) string {
	return r.prefix + ":" + path
}

func (r *redisStore) Get(ctx context.Context, path string) (json.RawMessage, error) {
	data, err := r.rdb.Get(ctx, r.key(path)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get %s: %w", path, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	return json.RawMessage(data), nil
}

func (r *redisStore) Set(ctx context.Context, path string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("set %s: marshal: %w", path, err)
	}
	if err := r.rdb.Set(ctx, r.key(path), data, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	return nil
}

// Update merges fields under WATCH so a concurrent writer forces a retry.
func (r *redisStore) Update(ctx context.Context, path string, fields map[string]any) error {
	err := r.rewrite(ctx, path, func(current []byte) ([]byte, error) {
		return storage.MergeJSON(current, fields)
	})
	if err != nil {
		return fmt.Errorf("update %s: %w", path, err)
	}
	return nil
}

func (r *redisStore) Increment(ctx context.Context, path, field string, delta int64) error {
	err := r.rewrite(ctx, path, func(current []byte) ([]byte, error) {
		return storage.IncrementJSON(current, field, delta)
	})
	if err != nil {
		return fmt.Errorf("increment %s: %w", path, err)
	}
	return nil
}

// rewrite replaces the value at path with fn(current) in a WATCH/MULTI
// transaction, retrying when another client wrote the key meanwhile.
func (r *redisStore) rewrite(ctx context.Context, path string, fn func([]byte) ([]byte, error)) error {
	key := r.key(path)
	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		next, err := fn(current)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, 0)
			return nil
		})
		return err
	}

	for i := 0; i < redisMaxRetries; i++ {
		err := r.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("too many concurrent writers")
}

func (r *redisStore) Close() error {
	return r.rdb.Close()
}
