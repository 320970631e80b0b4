// Package registry stores data source descriptors in the coordination
// store at keyspace.DataSourceBase.
//
// Commit is last-writer-wins. Callers that need exclusive ownership of a
// data source must arrange it elsewhere.
package registry

import (
	"context"
	"errors"
	"log/slog"

	"github.com/withObsrvr/obsrvr-datajoin/internal/keyspace"
	"github.com/withObsrvr/obsrvr-datajoin/internal/kvstore"
	"github.com/withObsrvr/obsrvr-datajoin/internal/metrics"
)

// ErrEmptyName is returned by Commit for a descriptor without a name.
var ErrEmptyName = errors.New("data source name is empty")

// Registry reads and writes data source descriptors.
type Registry struct {
	store   kvstore.Store
	metrics *metrics.Metrics
	log     *slog.Logger
}

// New creates a registry over store. m may be nil.
func New(store kvstore.Store, m *metrics.Metrics) *Registry {
	return &Registry{
		store:   store,
		metrics: m,
		log:     slog.With("component", "registry"),
	}
}

// Commit writes ds at its data source key, replacing any previous value.
func (r *Registry) Commit(ctx context.Context, ds *DataSource) error {
	if ds.Meta.Name == "" {
		r.metrics.IncRegistryOp("commit", "invalid")
		return ErrEmptyName
	}
	key := keyspace.DataSourceBase(ds.Meta.Name)

	data, err := ds.CanonicalText()
	if err != nil {
		r.metrics.IncRegistryOp("commit", "error")
		return err
	}

	if err := r.store.Set(ctx, key, data); err != nil {
		r.metrics.IncRegistryOp("commit", "error")
		return err
	}

	r.metrics.IncRegistryOp("commit", "ok")
	r.log.Debug("committed data source", "data_source", ds.Meta.Name, "key", key, "state", ds.State)
	return nil
}

// Retrieve reads the descriptor of the named data source.
func (r *Registry) Retrieve(ctx context.Context, name string) (*DataSource, error) {
	key := keyspace.DataSourceBase(name)

	data, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			r.metrics.IncRegistryOp("retrieve", "not_found")
			return nil, &NotFoundError{Name: name, Key: key}
		}
		r.metrics.IncRegistryOp("retrieve", "error")
		return nil, err
	}

	ds, err := ParseText(data)
	if err != nil {
		r.metrics.IncRegistryOp("retrieve", "parse_error")
		return nil, &ParseError{Name: name, Key: key, Err: err}
	}

	r.metrics.IncRegistryOp("retrieve", "ok")
	return ds, nil
}
