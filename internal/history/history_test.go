package history

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"cinestream/internal/media"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	s, err := Open(db)
	require.NoError(t, err)
	return s
}

func entry(id, season, episode int, pos, dur float64) media.HistoryEntry {
	return media.HistoryEntry{
		ID:       id,
		Title:    fmt.Sprintf("Item %d", id),
		Type:     media.Series,
		Season:   season,
		Episode:  episode,
		Position: pos,
		Duration: dur,
	}
}

func TestSaveAndResume(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Save(entry(1399, 1, 1, 600, 3600)))

	pos, err := s.Resume(1399, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 600.0, pos)

	// Same episode again moves the position, not the row count.
	require.NoError(t, s.Save(entry(1399, 1, 1, 900, 3600)))
	pos, err = s.Resume(1399, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 900.0, pos)

	recent, err := s.Recent(0)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, media.Series, recent[0].Type)
}

func TestEpisodesTrackedSeparately(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Save(entry(1399, 1, 1, 600, 3600)))
	require.NoError(t, s.Save(entry(1399, 1, 2, 300, 3600)))

	pos, err := s.Resume(1399, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 600.0, pos)
	pos, err = s.Resume(1399, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 300.0, pos)
}

func TestInsignificantProgressNotSaved(t *testing.T) {
	s := newTestStore(t)

	// 2% watched: too early to matter.
	require.NoError(t, s.Save(entry(603, 0, 0, 72, 3600)))
	pos, err := s.Resume(603, 0, 0)
	require.NoError(t, err)
	assert.Zero(t, pos)
}

func TestFinishedEntryRemoved(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Save(entry(603, 0, 0, 1800, 3600)))

	// 97% watched: finished, resume offer goes away.
	require.NoError(t, s.Save(entry(603, 0, 0, 3492, 3600)))
	pos, err := s.Resume(603, 0, 0)
	require.NoError(t, err)
	assert.Zero(t, pos)
}

func TestRecentOrderAndCap(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < maxEntries+5; i++ {
		require.NoError(t, s.Save(entry(1000+i, 0, 0, 600, 3600)))
	}

	recent, err := s.Recent(0)
	require.NoError(t, err)
	require.Len(t, recent, maxEntries)
	// Newest first.
	assert.Equal(t, 1000+maxEntries+4, recent[0].ID)
}

func TestClear(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save(entry(1, 0, 0, 600, 3600)))
	require.NoError(t, s.Clear())
	recent, err := s.Recent(0)
	require.NoError(t, err)
	assert.Empty(t, recent)
}
