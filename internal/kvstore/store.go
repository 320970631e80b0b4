// Package kvstore is the coordination store consumed by data-join workers:
// a flat key-value namespace addressed by the paths derived in package
// keyspace.
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrKeyNotFound is returned by Get when a key has never been set.
var ErrKeyNotFound = errors.New("key not found")

// ErrCASUnsupported is returned by AsCAS callers when a backend cannot
// compare-and-swap.
var ErrCASUnsupported = errors.New("compare-and-swap not supported by backend")

// Store is the minimal get/set contract. Implementations must be safe for
// concurrent use. A stored empty value is distinct from an absent key.
type Store interface {
	// Get returns the value at key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set writes value at key, overwriting unconditionally.
	Set(ctx context.Context, key string, value []byte) error

	// Close releases any resources.
	Close() error
}

// CASStore extends Store with a single-key compare-and-swap.
type CASStore interface {
	Store

	// CompareAndSwap writes value at key only if the current value equals
	// old. A nil old means the key must be absent. It reports whether the
	// write happened.
	CompareAndSwap(ctx context.Context, key string, old, value []byte) (bool, error)
}

// AsCAS attempts to cast a Store to CASStore.
// Returns nil if the store doesn't support compare-and-swap.
func AsCAS(store Store) CASStore {
	if cas, ok := store.(CASStore); ok {
		return cas
	}
	return nil
}

// Config configures the coordination store backend.
type Config struct {
	Backend string `yaml:"backend"` // "memory" | "blob" | "etcd" | "postgres"

	// Prefix is prepended to every key, letting several pipelines share
	// one store.
	Prefix string `yaml:"prefix"`

	// Blob (gocloud.dev URL: mem://, file:///dir, gs://bucket, s3://bucket)
	BlobURL  string `yaml:"blob_url"`
	Compress bool   `yaml:"compress"`

	// etcd
	EtcdEndpoints   []string      `yaml:"etcd_endpoints"`
	EtcdDialTimeout time.Duration `yaml:"etcd_dial_timeout"`

	// PostgreSQL
	PostgresDSN string `yaml:"postgres_dsn"`
}

// Open creates a store backend based on configuration.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "memory", "":
		return NewMemoryStore(), nil
	case "blob":
		if cfg.BlobURL == "" {
			return nil, fmt.Errorf("BlobURL required for blob backend")
		}
		return NewBlobStore(ctx, cfg.BlobURL, cfg.Prefix, cfg.Compress)
	case "etcd":
		if len(cfg.EtcdEndpoints) == 0 {
			return nil, fmt.Errorf("EtcdEndpoints required for etcd backend")
		}
		return NewEtcdStore(cfg.EtcdEndpoints, cfg.EtcdDialTimeout, cfg.Prefix)
	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("PostgresDSN required for postgres backend")
		}
		return NewPostgresStore(ctx, cfg.PostgresDSN, cfg.Prefix)
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Backend)
	}
}

func joinPrefix(prefix, key string) string {
	if prefix == "" {
		return key
	}
	if prefix[len(prefix)-1] == '/' {
		return prefix + key
	}
	return prefix + "/" + key
}
