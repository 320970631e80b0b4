package kvstore

import (
	"context"
	"fmt"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

const defaultEtcdDialTimeout = 5 * time.Second

// EtcdStore keeps coordination values in etcd.
type EtcdStore struct {
	client *clientv3.Client
	prefix string
	owned  bool
}

// NewEtcdStore dials the etcd cluster at endpoints.
func NewEtcdStore(endpoints []string, dialTimeout time.Duration, prefix string) (*EtcdStore, error) {
	if dialTimeout <= 0 {
		dialTimeout = defaultEtcdDialTimeout
	}

	client, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: dialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("connect etcd %v: %w", endpoints, err)
	}

	s := NewEtcdStoreFromClient(client, prefix)
	s.owned = true
	return s, nil
}

// NewEtcdStoreFromClient wraps an existing client. Close leaves the client
// open.
func NewEtcdStoreFromClient(client *clientv3.Client, prefix string) *EtcdStore {
	return &EtcdStore{client: client, prefix: prefix}
}

func (s *EtcdStore) Get(ctx context.Context, key string) ([]byte, error) {
	k := joinPrefix(s.prefix, key)

	resp, err := s.client.Get(ctx, k)
	if err != nil {
		return nil, fmt.Errorf("etcd get %s: %w", k, err)
	}
	if len(resp.Kvs) == 0 {
		return nil, ErrKeyNotFound
	}
	value := resp.Kvs[0].Value
	if value == nil {
		value = []byte{}
	}
	return value, nil
}

func (s *EtcdStore) Set(ctx context.Context, key string, value []byte) error {
	k := joinPrefix(s.prefix, key)

	if _, err := s.client.Put(ctx, k, string(value)); err != nil {
		return fmt.Errorf("etcd put %s: %w", k, err)
	}
	return nil
}

// CompareAndSwap runs a single etcd transaction guarded on the key's create
// revision (old == nil) or current value.
func (s *EtcdStore) CompareAndSwap(ctx context.Context, key string, old, value []byte) (bool, error) {
	k := joinPrefix(s.prefix, key)

	var cmp clientv3.Cmp
	if old == nil {
		cmp = clientv3.Compare(clientv3.CreateRevision(k), "=", 0)
	} else {
		cmp = clientv3.Compare(clientv3.Value(k), "=", string(old))
	}

	resp, err := s.client.Txn(ctx).
		If(cmp).
		Then(clientv3.OpPut(k, string(value))).
		Commit()
	if err != nil {
		return false, fmt.Errorf("etcd cas %s: %w", k, err)
	}
	return resp.Succeeded, nil
}

// Close closes the client if this store dialed it.
func (s *EtcdStore) Close() error {
	if s.owned && s.client != nil {
		return s.client.Close()
	}
	return nil
}

var _ CASStore = (*EtcdStore)(nil)
