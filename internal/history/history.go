// Package history persists watch progress so playback can resume where it
// left off. Entries are keyed per episode for series and per item for
// movies; the list is most-recent-first and capped.
package history

import (
	"database/sql"
	"fmt"
	"time"

	"cinestream/internal/media"
)

// maxEntries bounds how many history rows are kept.
const maxEntries = 20

// Progress below the lower bound is noise, above the upper bound the item
// is effectively finished. Both skip persistence.
const (
	minProgressPct = 5.0
	maxProgressPct = 95.0
)

// Store is a watch-history store over an sqlite handle. The handle is
// shared with the stream cache; the store owns only its own table.
type Store struct {
	db *sql.DB
}

// Open prepares the history table on db.
func Open(db *sql.DB) (*Store, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS watch_history (
		item_id    INTEGER NOT NULL,
		type       TEXT NOT NULL,
		season     INTEGER NOT NULL DEFAULT 0,
		episode    INTEGER NOT NULL DEFAULT 0,
		title      TEXT NOT NULL,
		position   REAL NOT NULL,
		duration   REAL NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (item_id, season, episode)
	)`)
	if err != nil {
		return nil, fmt.Errorf("creating watch_history table: %w", err)
	}
	return &Store{db: db}, nil
}

// Save upserts progress for an entry. Progress outside the meaningful band
// is not recorded; past the upper bound any existing row is removed so a
// finished item stops offering resume.
func (s *Store) Save(e media.HistoryEntry) error {
	if e.Duration <= 0 || e.Position <= 0 {
		return nil
	}
	pct := e.Position / e.Duration * 100
	if pct <= minProgressPct {
		return nil
	}
	if pct >= maxProgressPct {
		return s.Remove(e.ID, e.Season, e.Episode)
	}

	_, err := s.db.Exec(`INSERT INTO watch_history
		(item_id, type, season, episode, title, position, duration, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(item_id, season, episode) DO UPDATE SET
			title = excluded.title,
			position = excluded.position,
			duration = excluded.duration,
			updated_at = excluded.updated_at`,
		e.ID, e.Type.String(), e.Season, e.Episode, e.Title, e.Position, e.Duration,
		time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("saving history entry: %w", err)
	}
	return s.trim()
}

// trim drops the oldest rows beyond the cap.
func (s *Store) trim() error {
	_, err := s.db.Exec(`DELETE FROM watch_history WHERE (item_id, season, episode) NOT IN (
		SELECT item_id, season, episode FROM watch_history
		ORDER BY updated_at DESC, rowid DESC LIMIT ?
	)`, maxEntries)
	if err != nil {
		return fmt.Errorf("trimming history: %w", err)
	}
	return nil
}

// Resume returns the saved position for an entry, or 0 when none exists.
func (s *Store) Resume(itemID, season, episode int) (float64, error) {
	var pos float64
	err := s.db.QueryRow(`SELECT position FROM watch_history
		WHERE item_id = ? AND season = ? AND episode = ?`,
		itemID, season, episode).Scan(&pos)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading resume position: %w", err)
	}
	return pos, nil
}

// Recent returns history entries, most recently watched first.
func (s *Store) Recent(limit int) ([]media.HistoryEntry, error) {
	if limit <= 0 || limit > maxEntries {
		limit = maxEntries
	}
	rows, err := s.db.Query(`SELECT item_id, type, season, episode, title, position, duration
		FROM watch_history ORDER BY updated_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	defer rows.Close()

	var out []media.HistoryEntry
	for rows.Next() {
		var e media.HistoryEntry
		var typ string
		if err := rows.Scan(&e.ID, &typ, &e.Season, &e.Episode, &e.Title, &e.Position, &e.Duration); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		e.Type = media.ParseType(typ)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Remove deletes one entry.
func (s *Store) Remove(itemID, season, episode int) error {
	_, err := s.db.Exec(`DELETE FROM watch_history WHERE item_id = ? AND season = ? AND episode = ?`,
		itemID, season, episode)
	if err != nil {
		return fmt.Errorf("removing history entry: %w", err)
	}
	return nil
}

// Clear wipes the whole history.
func (s *Store) Clear() error {
	_, err := s.db.Exec(`DELETE FROM watch_history`)
	if err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	return nil
}
