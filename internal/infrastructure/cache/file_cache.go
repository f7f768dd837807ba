package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"

	"github.com/doeshing/spechealth/internal/domain"
	"github.com/doeshing/spechealth/internal/pkg/filesystem"
	"github.com/doeshing/spechealth/internal/ports"
)

// FileCache stores URL probe outcomes as JSON blobs addressed by hash key.
type FileCache struct {
	fs         afero.Fs
	dir        string
	mu         sync.Mutex
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
}

// Option tweaks a FileCache.
type Option func(*FileCache)

// WithFs swaps the backing filesystem, e.g. for an in-memory one in tests.
func WithFs(fs afero.Fs) Option {
	return func(c *FileCache) { c.fs = fs }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *FileCache) { c.now = now }
}

// NewFileCache returns a cache rooted under ~/.spechealth/cache/probes.
func NewFileCache(settings domain.CacheSettings, opts ...Option) *FileCache {
	c := &FileCache{
		fs:         afero.NewOsFs(),
		dir:        DefaultDir(),
		maxEntries: settings.MaxEntries,
		ttl:        settings.TTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DefaultDir is where probe outcomes live unless configured otherwise.
func DefaultDir() string {
	return filesystem.AppPath("cache", "probes")
}

// Key derives the cache key of a URL.
func Key(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

// Get retrieves a cache entry. Expired entries are removed and reported missing.
func (c *FileCache) Get(key string) (domain.CacheEntry, bool, error) {
	if key == "" {
		return domain.CacheEntry{}, false, nil
	}
	path := c.pathFor(key)
	data, err := afero.ReadFile(c.fs, path)
	if err != nil {
		if os.IsNotExist(err) || errors.Is(err, os.ErrNotExist) {
			return domain.CacheEntry{}, false, nil
		}
		return domain.CacheEntry{}, false, errors.Wrapf(err, "read cache entry %s", key)
	}
	var entry domain.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		_ = c.fs.Remove(path)
		return domain.CacheEntry{}, false, nil
	}
	if c.ttl > 0 && c.now().Sub(entry.CreatedAt) > c.ttl {
		_ = c.fs.Remove(path)
		return domain.CacheEntry{}, false, nil
	}
	return entry, true, nil
}

// Set stores a cache entry, stamping CreatedAt when unset.
func (c *FileCache) Set(entry domain.CacheEntry) error {
	if entry.Key == "" {
		return nil
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = c.now().UTC()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fs.MkdirAll(c.dir, domain.DirectoryPermissions); err != nil {
		return errors.Wrap(err, "create cache directory")
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, "encode cache entry")
	}
	if err := afero.WriteFile(c.fs, c.pathFor(entry.Key), data, domain.SecureFilePermissions); err != nil {
		return errors.Wrap(err, "write cache entry")
	}
	return c.evictIfNeeded()
}

// Dir exposes the cache directory path.
func (c *FileCache) Dir() string {
	return c.dir
}

// Clear removes all cached entries.
func (c *FileCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fs.RemoveAll(c.dir)
}

// Entries lists cache entries oldest first (best-effort).
func (c *FileCache) Entries() ([]domain.CacheEntry, error) {
	files, err := afero.ReadDir(c.fs, c.dir)
	if err != nil {
		if os.IsNotExist(err) || errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var entries []domain.CacheEntry
	for _, f := range files {
		if f.IsDir() || filepath.Ext(f.Name()) != ".json" {
			continue
		}
		data, err := afero.ReadFile(c.fs, filepath.Join(c.dir, f.Name()))
		if err != nil {
			continue
		}
		var entry domain.CacheEntry
		if err := json.Unmarshal(data, &entry); err == nil {
			entries = append(entries, entry)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].CreatedAt.Before(entries[j].CreatedAt) })
	return entries, nil
}

func (c *FileCache) pathFor(key string) string {
	return filepath.Join(c.dir, key+".json")
}

// evictIfNeeded drops the oldest entries beyond maxEntries. Callers hold mu.
func (c *FileCache) evictIfNeeded() error {
	if c.maxEntries <= 0 {
		return nil
	}
	entries, err := c.Entries()
	if err != nil {
		return err
	}
	for len(entries) > c.maxEntries {
		_ = c.fs.Remove(c.pathFor(entries[0].Key))
		entries = entries[1:]
	}
	return nil
}

var _ ports.CacheRepository = (*FileCache)(nil)
