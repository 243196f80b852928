package fetchcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestCache(t *testing.T, ttl time.Duration) *Cache {
	t.Helper()
	cache, err := Open(Options{Path: t.TempDir(), TTL: ttl})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func TestCache_SetGet(t *testing.T) {
	cache := openTestCache(t, time.Minute)

	url := "https://kitsu.app/api/edge/anime?page[offset]=0"
	require.NoError(t, cache.Set(url, []byte(`{"data":[]}`)))

	body, ok := cache.Get(url)
	require.True(t, ok)
	assert.Equal(t, `{"data":[]}`, string(body))
}

func TestCache_MissOnAbsentKey(t *testing.T) {
	cache := openTestCache(t, time.Minute)

	body, ok := cache.Get("https://example.com/never-stored")
	assert.False(t, ok)
	assert.Nil(t, body)
}

func TestCache_ExpiredEntryMisses(t *testing.T) {
	cache := openTestCache(t, time.Second)

	require.NoError(t, cache.Set("key", []byte("value")))
	_, ok := cache.Get("key")
	require.True(t, ok)

	time.Sleep(1100 * time.Millisecond)

	_, ok = cache.Get("key")
	assert.False(t, ok)
}

func TestCache_OverwriteReplacesBody(t *testing.T) {
	cache := openTestCache(t, time.Minute)

	require.NoError(t, cache.Set("key", []byte("first")))
	require.NoError(t, cache.Set("key", []byte("second")))

	body, ok := cache.Get("key")
	require.True(t, ok)
	assert.Equal(t, "second", string(body))
}

func TestCache_Len(t *testing.T) {
	cache := openTestCache(t, time.Minute)

	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, cache.Set(key, []byte("x")))
	}

	n, err := cache.Len()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestCache_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	cache, err := Open(Options{Path: dir, TTL: time.Hour})
	require.NoError(t, err)
	require.NoError(t, cache.Set("persistent", []byte("payload")))
	require.NoError(t, cache.Close())

	reopened, err := Open(Options{Path: dir, TTL: time.Hour})
	require.NoError(t, err)
	defer reopened.Close()

	body, ok := reopened.Get("persistent")
	require.True(t, ok)
	assert.Equal(t, "payload", string(body))
}
