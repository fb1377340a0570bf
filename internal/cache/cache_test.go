package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a settable Clock.
type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func TestCacheRoundTrip(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	c := New(NewMemoryStore(), 2*time.Hour, WithClock(clock))

	type payload struct {
		URL string `json:"url"`
	}

	require.NoError(t, c.Set("k", payload{URL: "https://cdn/x.m3u8"}))

	var got payload
	require.True(t, c.Get("k", &got))
	assert.Equal(t, "https://cdn/x.m3u8", got.URL)
}

func TestCacheExpiryEvictsLazily(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	store := NewMemoryStore()
	c := New(store, 2*time.Hour, WithClock(clock))

	require.NoError(t, c.Set("k", "v"))

	// Just before expiry the entry is served.
	clock.now = clock.now.Add(2*time.Hour - time.Millisecond)
	var out string
	assert.True(t, c.Get("k", &out))

	// At expiry it is a miss and the entry is removed from the store.
	clock.now = clock.now.Add(time.Millisecond)
	assert.False(t, c.Get("k", &out))

	_, ok, err := store.Get("k")
	require.NoError(t, err)
	assert.False(t, ok, "expired entry must be deleted from the store")
}

func TestCacheCorruptEntryIsMissAndDiscarded(t *testing.T) {
	store := NewMemoryStore()
	c := New(store, time.Hour)

	require.NoError(t, store.Set("bad", "{not json"))

	var out string
	assert.False(t, c.Get("bad", &out))

	_, ok, err := store.Get("bad")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	store, err := OpenSQLite(path)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Set("a", "1"))
	require.NoError(t, store.Set("b", "2"))
	require.NoError(t, store.Set("a", "3")) // upsert

	v, ok, err := store.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "3", v)

	keys, err := store.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)

	require.NoError(t, store.Delete("a"))
	_, ok, err = store.Get("a")
	require.NoError(t, err)
	assert.False(t, ok)
}
