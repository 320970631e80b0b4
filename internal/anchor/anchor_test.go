package anchor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/withObsrvr/obsrvr-datajoin/internal/kvstore"
)

func TestStoreManagerSaveLoad(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()

	mgr, err := NewManager(Config{Enabled: true, DataSource: "ds1", Store: store})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	if _, err := mgr.Load(ctx, 3); !errors.Is(err, ErrNoAnchor) {
		t.Fatalf("Load before Save: got %v, want ErrNoAnchor", err)
	}

	a := &Anchor{
		PartitionID: 3,
		ExampleID:   "example-000123",
		EventTime:   1600000000,
		Index:       123,
		UpdatedAt:   time.Date(2024, 6, 7, 15, 0, 0, 0, time.UTC),
	}
	if err := mgr.Save(ctx, a); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Stored at the partition's anchor key
	if _, err := store.Get(ctx, "data_source/ds1/dumped_example_id_anchor/partition_0003"); err != nil {
		t.Fatalf("anchor not at expected key: %v", err)
	}

	got, err := mgr.Load(ctx, 3)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.ExampleID != a.ExampleID || got.Index != a.Index || got.EventTime != a.EventTime {
		t.Errorf("Load = %+v, want %+v", got, a)
	}
	if !got.UpdatedAt.Equal(a.UpdatedAt) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, a.UpdatedAt)
	}

	// Other partitions are untouched
	if _, err := mgr.Load(ctx, 4); !errors.Is(err, ErrNoAnchor) {
		t.Errorf("Load(4): got %v, want ErrNoAnchor", err)
	}
}

func TestStoreManagerStampsUpdatedAt(t *testing.T) {
	ctx := context.Background()
	mgr, err := NewManager(Config{Enabled: true, DataSource: "ds1", Store: kvstore.NewMemoryStore()})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	a := &Anchor{PartitionID: 0, ExampleID: "e1"}
	if err := mgr.Save(ctx, a); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if a.UpdatedAt.IsZero() {
		t.Error("Save should stamp UpdatedAt")
	}
}

func TestStoreManagerCorruptAnchor(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	if err := store.Set(ctx, "data_source/ds1/dumped_example_id_anchor/partition_0000", []byte("{not json")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	mgr, _ := NewManager(Config{Enabled: true, DataSource: "ds1", Store: store})
	_, err := mgr.Load(ctx, 0)
	if err == nil || errors.Is(err, ErrNoAnchor) {
		t.Errorf("Load of corrupt anchor: got %v, want parse error", err)
	}
}

func TestNewManagerValidation(t *testing.T) {
	if _, err := NewManager(Config{Enabled: true, Store: kvstore.NewMemoryStore()}); err == nil {
		t.Error("missing data source should fail")
	}
	if _, err := NewManager(Config{Enabled: true, DataSource: "ds1"}); err == nil {
		t.Error("missing store should fail")
	}
}

func TestNoopManager(t *testing.T) {
	mgr, err := NewManager(Config{Enabled: false})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	if err := mgr.Save(context.Background(), &Anchor{}); err != nil {
		t.Errorf("noop Save failed: %v", err)
	}
	if _, err := mgr.Load(context.Background(), 0); !errors.Is(err, ErrNoAnchor) {
		t.Errorf("noop Load: got %v, want ErrNoAnchor", err)
	}
}
