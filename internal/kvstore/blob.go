package kvstore

import (
	"bytes"
	"context"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // file:// driver
	_ "gocloud.dev/blob/gcsblob"  // GCS driver
	_ "gocloud.dev/blob/memblob"  // mem:// driver
	_ "gocloud.dev/blob/s3blob"   // S3 driver
	"gocloud.dev/gcerrors"
)

// objectSuffix is appended to every object name so that a key and the keys
// nested below it (data_source/ds1 and data_source/ds1/raw_data_dir/...)
// can coexist on backends that map names onto a directory tree.
const objectSuffix = ".kv"

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// BlobStore keeps coordination values as objects in a gocloud.dev bucket.
// It has no compare-and-swap.
type BlobStore struct {
	bucket    *blob.Bucket
	bucketURL string
	prefix    string

	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewBlobStore opens the bucket at bucketURL. Works with mem://, file://,
// gs:// and s3:// URLs. If compress is set, values are written zstd
// compressed and decoded on read. Otherwise values are stored and returned
// byte for byte.
func NewBlobStore(ctx context.Context, bucketURL, prefix string, compress bool) (*BlobStore, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", bucketURL, err)
	}
	return newBlobStore(bucket, bucketURL, prefix, compress)
}

func newBlobStore(bucket *blob.Bucket, bucketURL, prefix string, compress bool) (*BlobStore, error) {
	s := &BlobStore{
		bucket:    bucket,
		bucketURL: bucketURL,
		prefix:    prefix,
	}
	if !compress {
		return s, nil
	}

	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		bucket.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		dec.Close()
		bucket.Close()
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	s.encoder = enc
	s.decoder = dec

	return s, nil
}

func (s *BlobStore) objectKey(key string) string {
	return joinPrefix(s.prefix, key) + objectSuffix
}

// Get reads the object for key.
func (s *BlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	path := s.objectKey(key)

	data, err := s.bucket.ReadAll(ctx, path)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	// Values written before compression was switched on are stored raw.
	if s.decoder != nil && bytes.HasPrefix(data, zstdMagic) {
		raw, err := s.decoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd decompress %s: %w", path, err)
		}
		return raw, nil
	}
	return data, nil
}

// Set writes the object for key, replacing any previous value.
func (s *BlobStore) Set(ctx context.Context, key string, value []byte) error {
	path := s.objectKey(key)

	data := value
	if s.encoder != nil {
		data = s.encoder.EncodeAll(value, nil)
	}

	w, err := s.bucket.NewWriter(ctx, path, nil)
	if err != nil {
		return fmt.Errorf("create writer for %s: %w", path, err)
	}

	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("write data to %s: %w", path, err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("close writer for %s: %w", path, err)
	}

	return nil
}

// Close releases the bucket connection.
func (s *BlobStore) Close() error {
	if s.encoder != nil {
		s.encoder.Close()
	}
	if s.decoder != nil {
		s.decoder.Close()
	}
	if s.bucket != nil {
		return s.bucket.Close()
	}
	return nil
}

var _ Store = (*BlobStore)(nil)
