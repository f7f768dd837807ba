package cache

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/spechealth/internal/domain"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestCache(t *testing.T, settings domain.CacheSettings) (*FileCache, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	return NewFileCache(settings, WithFs(afero.NewMemMapFs()), WithClock(clock.now)), clock
}

func TestFileCacheRoundTripAndExpiry(t *testing.T) {
	c, clock := newTestCache(t, domain.CacheSettings{Enabled: true, TTL: time.Hour})
	key := Key("https://example.org")

	_, ok, err := c.Get(key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(domain.CacheEntry{Key: key, URL: "https://example.org", StatusCode: 200, Reachable: true}))
	entry, ok, err := c.Get(key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 200, entry.StatusCode)
	assert.True(t, clock.t.Equal(entry.CreatedAt))

	clock.t = clock.t.Add(2 * time.Hour)
	_, ok, err = c.Get(key)
	require.NoError(t, err)
	assert.False(t, ok, "expired entries are dropped")

	entries, err := c.Entries()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFileCacheEvictsOldest(t *testing.T) {
	c, clock := newTestCache(t, domain.CacheSettings{Enabled: true, MaxEntries: 2})
	for _, u := range []string{"https://a", "https://b", "https://c"} {
		require.NoError(t, c.Set(domain.CacheEntry{Key: Key(u), URL: u}))
		clock.t = clock.t.Add(time.Minute)
	}

	entries, err := c.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "https://b", entries[0].URL)
	assert.Equal(t, "https://c", entries[1].URL)
}

func TestFileCacheClear(t *testing.T) {
	c, _ := newTestCache(t, domain.CacheSettings{Enabled: true})
	require.NoError(t, c.Set(domain.CacheEntry{Key: Key("https://a"), URL: "https://a"}))
	require.NoError(t, c.Clear())

	entries, err := c.Entries()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestKeyIsStable(t *testing.T) {
	assert.Equal(t, Key("https://example.org"), Key("https://example.org"))
	assert.NotEqual(t, Key("https://example.org"), Key("https://example.com"))
	assert.Len(t, Key("x"), 64)
}
