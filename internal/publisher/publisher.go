// Package publisher appends raw data files to a partition's publication
// list in the coordination store.
//
// Entries live at keyspace.RawDataPubKey(pubDir, partition, n) for
// n = 0, 1, 2, ... with no gaps. Several publishers may append to the same
// partition; each slot is claimed with a compare-and-swap that only
// succeeds if the slot is empty.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/withObsrvr/obsrvr-datajoin/internal/keyspace"
	"github.com/withObsrvr/obsrvr-datajoin/internal/kvstore"
	"github.com/withObsrvr/obsrvr-datajoin/internal/metrics"
)

var (
	// ErrTimestampMismatch is returned when timestamps are given but do not
	// pair up with the file paths.
	ErrTimestampMismatch = errors.New("the number of raw data files and timestamps mismatch")

	// ErrFileNotFound is returned when a file to publish does not exist.
	ErrFileNotFound = errors.New("raw data file does not exist")
)

// ExistsFunc reports whether a raw data file exists.
type ExistsFunc func(ctx context.Context, path string) (bool, error)

// LocalExists checks the local filesystem.
func LocalExists(_ context.Context, path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// Config configures a Publisher.
type Config struct {
	Store   kvstore.CASStore
	PubDir  string
	Exists  ExistsFunc // defaults to LocalExists
	Metrics *metrics.Metrics
}

// Publisher appends publication entries for one publication directory.
type Publisher struct {
	store   kvstore.CASStore
	pubDir  string
	exists  ExistsFunc
	metrics *metrics.Metrics
	log     *slog.Logger
}

// New creates a publisher.
func New(cfg Config) (*Publisher, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("publisher requires a compare-and-swap store")
	}
	if cfg.PubDir == "" {
		return nil, fmt.Errorf("publisher requires a publication directory")
	}
	exists := cfg.Exists
	if exists == nil {
		exists = LocalExists
	}
	return &Publisher{
		store:   cfg.Store,
		pubDir:  cfg.PubDir,
		exists:  exists,
		metrics: cfg.Metrics,
		log:     slog.With("component", "publisher", "pub_dir", cfg.PubDir),
	}, nil
}

// Publish appends one entry per file, in order. timestamps may be nil;
// otherwise it must have one element per path.
func (p *Publisher) Publish(ctx context.Context, partitionID int, fpaths []string, timestamps []time.Time) error {
	if len(fpaths) == 0 {
		p.log.Warn("no raw data will be published", "partition_id", partitionID)
		return nil
	}
	if timestamps != nil && len(fpaths) != len(timestamps) {
		return fmt.Errorf("%w: %d files, %d timestamps", ErrTimestampMismatch, len(fpaths), len(timestamps))
	}

	values := make([][]byte, 0, len(fpaths))
	for i, fpath := range fpaths {
		ok, err := p.exists(ctx, fpath)
		if err != nil {
			return fmt.Errorf("check %s: %w", fpath, err)
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrFileNotFound, fpath)
		}

		pub := RawDataPub{RawDataMeta: &RawDataMeta{FilePath: fpath, StartIndex: -1}}
		if timestamps != nil {
			ts := timestamps[i].UTC()
			pub.RawDataMeta.Timestamp = &ts
		}
		data, err := encodePub(pub)
		if err != nil {
			return err
		}
		values = append(values, data)
	}

	next := int64(-1)
	for i := 0; i < len(values); {
		index, err := p.forwardIndex(ctx, partitionID, next)
		if err != nil {
			return err
		}
		claimed, err := p.claim(ctx, partitionID, index, values[i])
		if err != nil {
			return err
		}
		if !claimed {
			next = index
			continue
		}
		p.metrics.IncPublished("raw_data")
		p.log.Info("published raw data",
			"partition_id", partitionID, "index", index, "file_path", fpaths[i])
		next = index + 1
		i++
	}
	return nil
}

// Finish appends the finished marker for a partition.
func (p *Publisher) Finish(ctx context.Context, partitionID int) error {
	data, err := encodePub(RawDataPub{RawDataFinished: true})
	if err != nil {
		return err
	}

	next := int64(-1)
	for {
		index, err := p.forwardIndex(ctx, partitionID, next)
		if err != nil {
			return err
		}
		claimed, err := p.claim(ctx, partitionID, index, data)
		if err != nil {
			return err
		}
		if claimed {
			p.metrics.IncPublished("finished")
			p.log.Info("finished raw data", "partition_id", partitionID, "index", index)
			return nil
		}
		next = index
	}
}

// Entries reads the publication list of a partition up to the first gap.
func (p *Publisher) Entries(ctx context.Context, partitionID int) ([]RawDataPub, error) {
	var pubs []RawDataPub
	for index := int64(0); ; index++ {
		key := keyspace.RawDataPubKey(p.pubDir, partitionID, index)
		data, err := p.store.Get(ctx, key)
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			return pubs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", key, err)
		}
		pub, err := decodePub(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		pubs = append(pubs, pub)
	}
}

func (p *Publisher) claim(ctx context.Context, partitionID int, index int64, data []byte) (bool, error) {
	key := keyspace.RawDataPubKey(p.pubDir, partitionID, index)
	ok, err := p.store.CompareAndSwap(ctx, key, nil, data)
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	if !ok {
		p.metrics.IncPublishConflict()
		p.log.Debug("publication slot taken", "partition_id", partitionID, "index", index)
	}
	return ok, nil
}

// forwardIndex returns the first free slot at or after next. With no hint
// (next < 0) it binary searches the whole index range, relying on the list
// having no gaps.
func (p *Publisher) forwardIndex(ctx context.Context, partitionID int, next int64) (int64, error) {
	if next < 0 {
		left, right := int64(0), int64(math.MaxInt64)
		for left <= right {
			mid := left + (right-left)/2
			taken, err := p.taken(ctx, partitionID, mid)
			if err != nil {
				return 0, err
			}
			if taken {
				left = mid + 1
			} else {
				right = mid - 1
			}
		}
		return right + 1, nil
	}

	for {
		taken, err := p.taken(ctx, partitionID, next)
		if err != nil {
			return 0, err
		}
		if !taken {
			return next, nil
		}
		next++
	}
}

func (p *Publisher) taken(ctx context.Context, partitionID int, index int64) (bool, error) {
	key := keyspace.RawDataPubKey(p.pubDir, partitionID, index)
	_, err := p.store.Get(ctx, key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, kvstore.ErrKeyNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("read %s: %w", key, err)
}
