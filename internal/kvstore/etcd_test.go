package kvstore

import (
	"context"
	"testing"

	clientv3 "go.etcd.io/etcd/client/v3"
)

func TestEtcdStoreFromClientLeavesClientOpen(t *testing.T) {
	client := clientv3.NewCtxClient(context.Background())
	defer client.Close()

	store := NewEtcdStoreFromClient(client, "coord")
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := client.Ctx().Err(); err != nil {
		t.Errorf("borrowed client was closed: %v", err)
	}
}

func TestEtcdStoreOwnedClientIsClosed(t *testing.T) {
	client := clientv3.NewCtxClient(context.Background())

	store := NewEtcdStoreFromClient(client, "coord")
	store.owned = true
	store.Close()

	if client.Ctx().Err() == nil {
		t.Error("owned client should be closed with the store")
	}
}
