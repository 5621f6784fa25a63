package market

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// ErrCacheMiss is returned when no entry exists for a key.
var ErrCacheMiss = errors.New("market score not cached")

const cacheKeyPrefix = "market:"

// Entry is one cached market score. Only measured values are ever stored;
// fallback values never enter the cache, so a later successful lookup can
// supersede a fallback-era result.
type Entry struct {
	Score      float64   `json:"score"`
	ComputedAt time.Time `json:"computed_at"`
}

// CacheKey derives the content-addressed key for a subject: a hex SHA-256 of
// its name and description. Editing either produces a fresh key, so the cache
// never needs explicit invalidation.
func CacheKey(name, description string) string {
	h := sha256.New()
	h.Write([]byte(name))
	h.Write([]byte{0})
	h.Write([]byte(description))
	return hex.EncodeToString(h.Sum(nil))
}

// Cache is the Badger-backed market score cache. Badger transactions make
// per-key read/insert atomic, so concurrent requests never observe a
// partially written entry.
type Cache struct {
	db *badger.DB
}

// OpenCache opens (or creates) the cache at dir.
func OpenCache(dir string) (*Cache, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open market cache: %w", err)
	}
	return &Cache{db: db}, nil
}

// NewCache wraps an already-open Badger DB.
func NewCache(db *badger.DB) *Cache {
	return &Cache{db: db}
}

// Get returns the cached entry for a key, or ErrCacheMiss.
func (c *Cache) Get(key string) (Entry, error) {
	var entry Entry

	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(cacheKeyPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrCacheMiss
		}
		if err != nil {
			return fmt.Errorf("get market score: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// Put stores a measured entry under the key. Last writer wins on the same
// key, which is safe: values are idempotent content-derived scores.
func (c *Cache) Put(key string, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal market score: %w", err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(cacheKeyPrefix+key), data)
	})
}

// Close releases the underlying Badger DB.
func (c *Cache) Close() error {
	return c.db.Close()
}
