// Package anchor persists, per partition, the last example id a worker
// has dumped, so a restarted worker resumes where it stopped.
package anchor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/withObsrvr/obsrvr-datajoin/internal/blockid"
	"github.com/withObsrvr/obsrvr-datajoin/internal/keyspace"
	"github.com/withObsrvr/obsrvr-datajoin/internal/kvstore"
	"github.com/withObsrvr/obsrvr-datajoin/internal/metrics"
)

var (
	// ErrNoAnchor is returned when no anchor exists for a partition.
	ErrNoAnchor = errors.New("no example id anchor found")
)

// Anchor is the dump progress of one partition.
type Anchor struct {
	PartitionID int       `json:"partition_id" yaml:"partition_id"`
	ExampleID   string    `json:"example_id" yaml:"example_id"`
	EventTime   int64     `json:"event_time" yaml:"event_time"`
	Index       int64     `json:"index" yaml:"index"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"updated_at"`
}

// Manager handles anchor persistence and retrieval.
type Manager interface {
	// Load reads the anchor of a partition.
	Load(ctx context.Context, partitionID int) (*Anchor, error)

	// Save persists the anchor, replacing the previous one.
	Save(ctx context.Context, a *Anchor) error
}

// Config configures the anchor manager.
type Config struct {
	Enabled    bool
	DataSource string
	Store      kvstore.Store
	Metrics    *metrics.Metrics
}

// NewManager creates an anchor manager based on configuration.
func NewManager(cfg Config) (Manager, error) {
	if !cfg.Enabled {
		return &noopManager{}, nil
	}
	if cfg.DataSource == "" {
		return nil, fmt.Errorf("anchor manager requires a data source name")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("anchor manager requires a store")
	}

	return &storeManager{
		dataSource: cfg.DataSource,
		store:      cfg.Store,
		metrics:    cfg.Metrics,
		log:        slog.With("component", "anchor", "data_source", cfg.DataSource),
	}, nil
}

// storeManager keeps anchors in the coordination store.
type storeManager struct {
	dataSource string
	store      kvstore.Store
	metrics    *metrics.Metrics
	log        *slog.Logger
}

func (m *storeManager) Load(ctx context.Context, partitionID int) (*Anchor, error) {
	key := keyspace.ExampleIDAnchorKey(m.dataSource, partitionID)

	data, err := m.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			m.metrics.IncAnchorOp("load", "not_found")
			return nil, ErrNoAnchor
		}
		m.metrics.IncAnchorOp("load", "error")
		return nil, fmt.Errorf("read anchor %s: %w", key, err)
	}

	var a Anchor
	if err := json.Unmarshal(data, &a); err != nil {
		m.metrics.IncAnchorOp("load", "error")
		return nil, fmt.Errorf("parse anchor %s: %w", key, err)
	}

	m.metrics.IncAnchorOp("load", "ok")
	return &a, nil
}

func (m *storeManager) Save(ctx context.Context, a *Anchor) error {
	key := keyspace.ExampleIDAnchorKey(m.dataSource, a.PartitionID)

	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal anchor: %w", err)
	}

	if err := m.store.Set(ctx, key, data); err != nil {
		m.metrics.IncAnchorOp("save", "error")
		return fmt.Errorf("write anchor %s: %w", key, err)
	}

	m.metrics.IncAnchorOp("save", "ok")
	m.log.Debug("saved anchor",
		"partition", blockid.PartitionRepr(a.PartitionID), "example_id", a.ExampleID, "index", a.Index)
	return nil
}

// noopManager is used when anchoring is disabled.
type noopManager struct{}

func (m *noopManager) Load(ctx context.Context, partitionID int) (*Anchor, error) {
	return nil, ErrNoAnchor
}

func (m *noopManager) Save(ctx context.Context, a *Anchor) error {
	return nil
}
