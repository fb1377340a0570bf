package subtitle

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"cinestream/internal/httputil"
	"cinestream/internal/log"
	"cinestream/internal/media"
)

// maxRawSize bounds how much raw subtitle content is fetched per track.
const maxRawSize = 10 * 1024 * 1024

// Track is a converted, playable subtitle track backed by an ephemeral file.
// The file must be released explicitly once the track is no longer in use.
type Track struct {
	Language string // short code ("en", "ar", ...)
	Label    string // human-readable display label
	Source   string // raw-format source URL
	Path     string // converted playable file

	released bool
}

// Release frees the converted resource. Safe to call more than once.
func (t *Track) Release() {
	if t.released || t.Path == "" {
		return
	}
	t.released = true
	if err := os.Remove(t.Path); err != nil && !os.IsNotExist(err) {
		logger := log.WithComponent("subtitle")
		logger.Warn().Str("path", t.Path).Err(err).Msg("releasing track failed")
	}
}

// Set owns the converted track list for one playback session. Loading a new
// track set releases every previously converted track.
type Set struct {
	client   *http.Client
	dir      string
	userLang string // interface language used for one-shot auto-select

	tracks     []*Track
	active     string // selected language code; empty means off
	userChosen bool
}

// NewSet creates a track set converting into a private temp directory.
func NewSet(userLang string) (*Set, error) {
	dir, err := os.MkdirTemp("", "cinestream-subs-*")
	if err != nil {
		return nil, fmt.Errorf("creating subtitle temp dir: %w", err)
	}
	return &Set{
		client:   httputil.NewClient(15 * time.Second),
		dir:      dir,
		userLang: userLang,
	}, nil
}

// FetchRaw downloads raw subtitle content from url, bounded in size.
func (s *Set) FetchRaw(ctx context.Context, url string) (string, error) {
	text, err := httputil.GetText(ctx, s.client, url, nil)
	if err != nil {
		return "", fmt.Errorf("fetching subtitle: %w", err)
	}
	if len(text) > maxRawSize {
		text = text[:maxRawSize]
	}
	return text, nil
}

// Load fetches and converts each referenced track, replacing (and releasing)
// the current track list. A track that fails to fetch or convert is logged
// and skipped; the rest of the set is unaffected.
func (s *Set) Load(ctx context.Context, refs []media.SubtitleRef) {
	s.releaseAll()

	logger := log.WithComponent("subtitle")
	for i, ref := range refs {
		raw, err := s.FetchRaw(ctx, ref.URL)
		if err != nil {
			logger.Warn().Str("label", ref.Display).Err(err).Msg("skipping subtitle track")
			continue
		}

		path := filepath.Join(s.dir, fmt.Sprintf("track-%d-%s.vtt", i, httputil.SanitizeFilename(ref.Language)))
		if err := os.WriteFile(path, []byte(ToVTT(raw)), 0o600); err != nil {
			logger.Warn().Str("label", ref.Display).Err(err).Msg("writing converted track failed")
			continue
		}

		s.tracks = append(s.tracks, &Track{
			Language: ref.Language,
			Label:    ref.Display,
			Source:   ref.URL,
			Path:     path,
		})
	}

	s.autoSelect()
}

// autoSelect picks the track matching the user's interface language, once per
// track-set change, unless the user already made an explicit choice.
func (s *Set) autoSelect() {
	if s.userChosen {
		// An explicit choice always wins; keep it if the language survived
		// the track-set change, otherwise fall back to off.
		if s.active != "" && s.byLanguage(s.active) == nil {
			s.active = ""
		}
		return
	}
	s.active = ""
	if s.userLang != "" && s.byLanguage(s.userLang) != nil {
		s.active = s.userLang
	}
}

func (s *Set) byLanguage(lang string) *Track {
	for _, t := range s.tracks {
		if t.Language == lang {
			return t
		}
	}
	return nil
}

// Select records an explicit user choice. Empty lang turns subtitles off.
// Unknown languages are ignored.
func (s *Set) Select(lang string) {
	s.userChosen = true
	if lang == "" {
		s.active = ""
		return
	}
	if s.byLanguage(lang) != nil {
		s.active = lang
	}
}

// Active returns the selected track, or nil when subtitles are off.
func (s *Set) Active() *Track {
	if s.active == "" {
		return nil
	}
	return s.byLanguage(s.active)
}

// ActiveLanguage returns the selected language code, empty when off.
func (s *Set) ActiveLanguage() string { return s.active }

// Tracks returns the converted track list.
func (s *Set) Tracks() []*Track { return s.tracks }

func (s *Set) releaseAll() {
	for _, t := range s.tracks {
		t.Release()
	}
	s.tracks = nil
}

// Close releases every track and removes the temp directory. Idempotent.
func (s *Set) Close() {
	s.releaseAll()
	if s.dir != "" {
		os.RemoveAll(s.dir)
		s.dir = ""
	}
}
