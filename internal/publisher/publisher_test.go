package publisher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/withObsrvr/obsrvr-datajoin/internal/kvstore"
)

func allExist(context.Context, string) (bool, error) { return true, nil }

func newTestPublisher(t *testing.T, store kvstore.CASStore) *Publisher {
	t.Helper()
	p, err := New(Config{Store: store, PubDir: "pub/ds1", Exists: allExist})
	require.NoError(t, err)
	return p
}

func TestNewValidates(t *testing.T) {
	_, err := New(Config{PubDir: "pub"})
	assert.Error(t, err)

	_, err = New(Config{Store: kvstore.NewMemoryStore()})
	assert.Error(t, err)
}

func TestPublishAppendsInOrder(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	p := newTestPublisher(t, store)

	require.NoError(t, p.Publish(ctx, 1, []string{"/raw/a.rd", "/raw/b.rd"}, nil))
	require.NoError(t, p.Publish(ctx, 1, []string{"/raw/c.rd"}, nil))

	assert.Equal(t, []string{
		"pub/ds1/partition_0001/00000000.pub",
		"pub/ds1/partition_0001/00000001.pub",
		"pub/ds1/partition_0001/00000002.pub",
	}, store.Keys("pub/ds1/partition_0001/"))

	entries, err := p.Entries(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, want := range []string{"/raw/a.rd", "/raw/b.rd", "/raw/c.rd"} {
		require.NotNil(t, entries[i].RawDataMeta)
		assert.Equal(t, want, entries[i].RawDataMeta.FilePath)
		assert.Equal(t, int64(-1), entries[i].RawDataMeta.StartIndex)
		assert.Nil(t, entries[i].RawDataMeta.Timestamp)
		assert.False(t, entries[i].Finished())
	}
}

func TestPublishPartitionsAreIndependent(t *testing.T) {
	ctx := context.Background()
	p := newTestPublisher(t, kvstore.NewMemoryStore())

	require.NoError(t, p.Publish(ctx, 0, []string{"/raw/a.rd"}, nil))
	require.NoError(t, p.Publish(ctx, 1, []string{"/raw/b.rd", "/raw/c.rd"}, nil))

	e0, err := p.Entries(ctx, 0)
	require.NoError(t, err)
	e1, err := p.Entries(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, e0, 1)
	assert.Len(t, e1, 2)
}

func TestPublishWithTimestamps(t *testing.T) {
	ctx := context.Background()
	p := newTestPublisher(t, kvstore.NewMemoryStore())

	ts := time.Date(2024, 6, 7, 15, 0, 0, 0, time.UTC)
	require.NoError(t, p.Publish(ctx, 2, []string{"/raw/a.rd"}, []time.Time{ts}))

	entries, err := p.Entries(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].RawDataMeta.Timestamp)
	assert.True(t, ts.Equal(*entries[0].RawDataMeta.Timestamp))
}

func TestPublishTimestampMismatch(t *testing.T) {
	store := kvstore.NewMemoryStore()
	p := newTestPublisher(t, store)

	err := p.Publish(context.Background(), 1, []string{"/raw/a.rd", "/raw/b.rd"}, []time.Time{time.Now()})
	assert.ErrorIs(t, err, ErrTimestampMismatch)
	assert.Empty(t, store.Keys(""))
}

func TestPublishNothing(t *testing.T) {
	store := kvstore.NewMemoryStore()
	p := newTestPublisher(t, store)

	require.NoError(t, p.Publish(context.Background(), 1, nil, nil))
	assert.Empty(t, store.Keys(""))
}

func TestPublishMissingFile(t *testing.T) {
	tmpDir := t.TempDir()
	present := filepath.Join(tmpDir, "present.rd")
	require.NoError(t, os.WriteFile(present, []byte("x"), 0644))

	store := kvstore.NewMemoryStore()
	p, err := New(Config{Store: store, PubDir: "pub/ds1"})
	require.NoError(t, err)

	err = p.Publish(context.Background(), 1, []string{present, filepath.Join(tmpDir, "absent.rd")}, nil)
	assert.ErrorIs(t, err, ErrFileNotFound)
	// Nothing is published when any file is missing
	assert.Empty(t, store.Keys(""))

	require.NoError(t, p.Publish(context.Background(), 1, []string{present}, nil))
	assert.Len(t, store.Keys(""), 1)
}

func TestFinish(t *testing.T) {
	ctx := context.Background()
	p := newTestPublisher(t, kvstore.NewMemoryStore())

	require.NoError(t, p.Publish(ctx, 1, []string{"/raw/a.rd"}, nil))
	require.NoError(t, p.Finish(ctx, 1))

	entries, err := p.Entries(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.False(t, entries[0].Finished())
	assert.True(t, entries[1].Finished())
	assert.Nil(t, entries[1].RawDataMeta)
}

func TestForwardIndexBinarySearch(t *testing.T) {
	ctx := context.Background()
	p := newTestPublisher(t, kvstore.NewMemoryStore())

	for _, n := range []int{0, 1, 2, 7, 100} {
		store := kvstore.NewMemoryStore()
		p.store = store
		for i := 0; i < n; i++ {
			key := fmt.Sprintf("pub/ds1/partition_0003/%08d.pub", i)
			require.NoError(t, store.Set(ctx, key, []byte("raw_data_finished: true\n")))
		}
		index, err := p.forwardIndex(ctx, 3, -1)
		require.NoError(t, err)
		assert.Equal(t, int64(n), index, "with %d entries", n)
	}
}

// racingStore loses the CAS on the listed keys, as if another publisher
// claimed them just before us.
type racingStore struct {
	*kvstore.MemoryStore
	mu   sync.Mutex
	lose map[string]bool
}

func (r *racingStore) CompareAndSwap(ctx context.Context, key string, old, value []byte) (bool, error) {
	r.mu.Lock()
	lose := r.lose[key]
	delete(r.lose, key)
	r.mu.Unlock()
	if lose {
		if err := r.MemoryStore.Set(ctx, key, []byte("raw_data_meta:\n  file_path: /raw/other.rd\n  start_index: -1\n")); err != nil {
			return false, err
		}
		return false, nil
	}
	return r.MemoryStore.CompareAndSwap(ctx, key, old, value)
}

func TestPublishSkipsSlotsLostToOthers(t *testing.T) {
	ctx := context.Background()
	store := &racingStore{
		MemoryStore: kvstore.NewMemoryStore(),
		lose: map[string]bool{
			"pub/ds1/partition_0001/00000000.pub": true,
			"pub/ds1/partition_0001/00000002.pub": true,
		},
	}
	p := newTestPublisher(t, store)

	require.NoError(t, p.Publish(ctx, 1, []string{"/raw/a.rd", "/raw/b.rd"}, nil))

	entries, err := p.Entries(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, "/raw/other.rd", entries[0].RawDataMeta.FilePath)
	assert.Equal(t, "/raw/a.rd", entries[1].RawDataMeta.FilePath)
	assert.Equal(t, "/raw/other.rd", entries[2].RawDataMeta.FilePath)
	assert.Equal(t, "/raw/b.rd", entries[3].RawDataMeta.FilePath)
}

func TestConcurrentPublishersNeverCollide(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()

	const workers, perWorker = 4, 10
	pubs := make([]*Publisher, workers)
	for w := range pubs {
		pubs[w] = newTestPublisher(t, store)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			p := pubs[w]
			for i := 0; i < perWorker; i++ {
				if err := p.Publish(ctx, 5, []string{fmt.Sprintf("/raw/w%d-%d.rd", w, i)}, nil); err != nil {
					t.Errorf("Publish failed: %v", err)
				}
			}
		}(w)
	}
	wg.Wait()

	entries, err := newTestPublisher(t, store).Entries(ctx, 5)
	require.NoError(t, err)
	require.Len(t, entries, workers*perWorker)

	var paths []string
	for _, e := range entries {
		paths = append(paths, e.RawDataMeta.FilePath)
	}
	sort.Strings(paths)
	for i := 1; i < len(paths); i++ {
		assert.NotEqual(t, paths[i-1], paths[i])
	}
}

// brokenStore fails every read.
type brokenStore struct {
	*kvstore.MemoryStore
}

func (brokenStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("etcd unavailable")
}

func TestPublishPropagatesStoreErrors(t *testing.T) {
	p := newTestPublisher(t, brokenStore{kvstore.NewMemoryStore()})
	err := p.Publish(context.Background(), 1, []string{"/raw/a.rd"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "etcd unavailable")
}
