package cache

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/valyala/bytebufferpool"
	bolt "go.etcd.io/bbolt"

	"github.com/premierstats/fpl-mcp/internal/platform/resilience"
)

// TTL sentinels accepted by Get and GetOrLoad.
const (
	// TTLDefault applies the store-wide default.
	TTLDefault time.Duration = 0
	// TTLIndefinite marks an entry valid forever. Used for data that cannot
	// change anymore, such as picks of a finished gameweek.
	TTLIndefinite time.Duration = -1
)

const bucketName = "entries"

// Store is a disk-backed TTL cache. Entries persist across restarts so a cold
// start does not replay every upstream request against the rate-limited API.
// Expiry is enforced at read time: each entry carries its fetch timestamp and
// the reader decides how stale is acceptable.
type Store struct {
	db         *bolt.DB
	defaultTTL time.Duration
	flight     resilience.SingleFlight
	now        func() time.Time
}

func NewStore(path string, defaultTTL time.Duration) (*Store, error) {
	if defaultTTL <= 0 {
		defaultTTL = time.Hour
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open cache db %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init cache bucket: %w", err)
	}

	return &Store{
		db:         db,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the payload for key if it was fetched within ttl.
// Expired entries are dropped, not merged.
func (s *Store) Get(_ context.Context, key string, ttl time.Duration) ([]byte, bool) {
	if key == "" {
		return nil, false
	}

	var payload []byte
	var fetchedAt time.Time
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(bucketName)).Get([]byte(key))
		if raw == nil {
			return nil
		}
		var ok bool
		fetchedAt, payload, ok = decodeEntry(raw)
		if !ok {
			payload = nil
		}
		return nil
	})
	if err != nil || payload == nil {
		return nil, false
	}

	if !s.valid(fetchedAt, ttl) {
		_ = s.Clear(context.Background(), key)
		return nil, false
	}

	return payload, true
}

func (s *Store) Set(_ context.Context, key string, payload []byte) error {
	if key == "" {
		return fmt.Errorf("cache key is required")
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	encodeEntry(buf, s.now(), payload)

	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(key), buf.Bytes())
	})
	if err != nil {
		return fmt.Errorf("cache put %s: %w", key, err)
	}
	return nil
}

// GetOrLoad returns the cached payload for key, or invokes loader and caches
// its result. At most one loader runs per key at a time; concurrent callers
// for the same key share the first call's result or its failure. Nothing is
// cached on failure, so the key stays eligible for an immediate retry.
func (s *Store) GetOrLoad(ctx context.Context, key string, loader func(context.Context) ([]byte, error), ttl time.Duration) ([]byte, error) {
	if loader == nil {
		return nil, fmt.Errorf("loader is required")
	}
	if key == "" {
		return loader(ctx)
	}

	if payload, ok := s.Get(ctx, key, ttl); ok {
		return payload, nil
	}

	value, err, _ := s.flight.Do(key, func() (any, error) {
		// Another caller may have populated the entry while this one waited
		// on the flight lock.
		if cached, ok := s.Get(ctx, key, ttl); ok {
			return cached, nil
		}

		loaded, loadErr := loader(ctx)
		if loadErr != nil {
			return nil, loadErr
		}
		if setErr := s.Set(ctx, key, loaded); setErr != nil {
			return nil, setErr
		}
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}

	payload, _ := value.([]byte)
	return payload, nil
}

// Clear removes one entry.
func (s *Store) Clear(_ context.Context, key string) error {
	if key == "" {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Delete([]byte(key))
	})
}

// ClearAll drops every entry.
func (s *Store) ClearAll(_ context.Context) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(bucketName)); err != nil {
			return err
		}
		_, err := tx.CreateBucket([]byte(bucketName))
		return err
	})
}

// Len reports the number of stored entries, expired or not.
func (s *Store) Len() int {
	count := 0
	_ = s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket([]byte(bucketName)).Stats().KeyN
		return nil
	})
	return count
}

func (s *Store) valid(fetchedAt time.Time, ttl time.Duration) bool {
	switch {
	case ttl == TTLIndefinite:
		return true
	case ttl == TTLDefault:
		ttl = s.defaultTTL
	}
	return s.now().Sub(fetchedAt) < ttl
}

// Entry layout: 8-byte big-endian unix-nano fetch timestamp, then payload.
func encodeEntry(buf *bytebufferpool.ByteBuffer, fetchedAt time.Time, payload []byte) {
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(fetchedAt.UnixNano()))
	_, _ = buf.Write(ts[:])
	_, _ = buf.Write(payload)
}

func decodeEntry(raw []byte) (time.Time, []byte, bool) {
	if len(raw) < 8 {
		return time.Time{}, nil, false
	}
	nanos := int64(binary.BigEndian.Uint64(raw[:8]))
	payload := make([]byte, len(raw)-8)
	copy(payload, raw[8:])
	return time.Unix(0, nanos), payload, true
}
