package httputil

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/matzehuels/stacklicense/pkg/cache"
)

// ErrExpired is returned by [Cache.Get] when an entry exists but is older
// than the TTL. The stale file stays on disk until the next [Cache.Set].
var ErrExpired = errors.New("cache entry expired")

// Cache stores JSON-encoded values in one file per key.
//
// File names are a hash of the namespaced key. A Cache is not safe for
// concurrent use, but several instances may share a directory since each
// write replaces its file atomically.
type Cache struct {
	dir    string
	ttl    time.Duration
	prefix string
}

// NewCache creates a Cache in dir, creating the directory if needed. An
// empty dir means <cache.DefaultDir()>/http. A ttl of 0 never expires.
func NewCache(dir string, ttl time.Duration) (*Cache, error) {
	if dir == "" {
		base, err := cache.DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(base, "http")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir, ttl: ttl}, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string { return c.dir }

// TTL returns the entry lifetime. 0 means entries never expire.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Get decodes the entry for key into v. It returns (true, nil) on a hit,
// (false, nil) on a miss and (false, ErrExpired) for a stale entry.
// Other errors come from reading or decoding the file.
func (c *Cache) Get(key string, v any) (bool, error) {
	path := c.keyPath(key)
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if c.ttl > 0 && time.Since(info.ModTime()) > c.ttl {
		return false, ErrExpired
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, err
	}
	return true, nil
}

// Set stores v under key, replacing any previous entry and resetting its
// age.
func (c *Cache) Set(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return cache.WriteFileAtomic(c.keyPath(key), data)
}

// Namespace returns a view of the cache whose keys are prefixed with
// prefix. Views share directory and TTL; prefixes nest.
func (c *Cache) Namespace(prefix string) *Cache {
	return &Cache{dir: c.dir, ttl: c.ttl, prefix: c.prefix + prefix}
}

// Clear removes every entry in the directory, across namespaces.
func (c *Cache) Clear() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.Type().IsRegular() && filepath.Ext(e.Name()) == ".json" {
			if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Cache) keyPath(key string) string {
	sum := xxhash.Sum64String(c.prefix + key)
	return filepath.Join(c.dir, strconv.FormatUint(sum, 16)+".json")
}
