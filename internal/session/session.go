// Package session owns the playback state machine: one Session drives one
// media surface through resolve, load, quality switches, and teardown.
// Overlapping loads are serialized by a generation counter so a slow resolve
// can never clobber a newer one.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"cinestream/internal/log"
	"cinestream/internal/media"
	"cinestream/internal/resolver"
	"cinestream/internal/surface"
)

// ErrSuperseded is returned by Load and SwitchQuality when a newer request
// started while this one was in flight. The newer request wins; the caller
// should discard the result silently.
var ErrSuperseded = errors.New("superseded by a newer request")

// ErrNoPlayableLink is returned when a resolution carries no usable link.
var ErrNoPlayableLink = errors.New("resolution has no playable link")

// State is the playback lifecycle phase.
type State int

const (
	StateIdle State = iota
	StateLoading
	StatePlaying
	StatePaused
	StateBuffering
	StateEnded
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateBuffering:
		return "buffering"
	case StateEnded:
		return "ended"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Snapshot is a point-in-time copy of session state, safe to hand across
// goroutines.
type Snapshot struct {
	ID        string
	State     State
	Time      float64
	Duration  float64
	Buffered  float64 // high-water mark of buffered time
	Rate      float64
	Quality   string
	StreamURL string
	Provider  string
	Err       error
}

// StreamSource resolves playback requests to stream links.
type StreamSource interface {
	Resolve(ctx context.Context, req resolver.Request) (*media.Resolution, error)
}

// Callbacks are invoked from the session's event pump goroutine. They must
// not call back into the session synchronously except for Snapshot and the
// surface control methods.
type Callbacks struct {
	OnTime  func(t, duration float64)
	OnSeek  func(pos float64)
	OnEnded func()
	OnError func(err error)
}

// Session is a single playback session over one surface.
type Session struct {
	id     string
	surf   surface.Surface
	source StreamSource
	cb     Callbacks
	logger zerolog.Logger

	// loadMu serializes surface loads with their state commit, so the
	// surface always ends up on the URL the state records.
	loadMu sync.Mutex

	mu         sync.Mutex
	gen        uint64
	state      State
	resolution *media.Resolution
	quality    string
	activeURL  string
	time       float64
	duration   float64
	buffered   float64
	rate       float64
	err        error

	pumpDone chan struct{}
}

// New creates a session over surf, resolving streams through source, and
// starts its event pump.
func New(surf surface.Surface, source StreamSource, cb Callbacks) *Session {
	id := uuid.NewString()
	s := &Session{
		id:       id,
		surf:     surf,
		source:   source,
		cb:       cb,
		logger:   log.WithComponent("session").With().Str("session", id).Logger(),
		state:    StateIdle,
		rate:     1.0,
		pumpDone: make(chan struct{}),
	}
	go s.pump()
	return s
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// Load resolves req and attaches the surface to the best link, resuming at
// startAt seconds. If another Load starts while this one is resolving, this
// one is abandoned and ErrSuperseded is returned.
func (s *Session) Load(ctx context.Context, req resolver.Request, startAt float64) error {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.state = StateLoading
	s.err = nil
	s.mu.Unlock()

	res, err := s.source.Resolve(ctx, req)

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		s.logger.Debug().Uint64("generation", gen).Msg("discarding stale resolve")
		return ErrSuperseded
	}
	if err != nil {
		s.state = StateError
		s.err = err
		s.mu.Unlock()
		return fmt.Errorf("resolving stream: %w", err)
	}
	if len(res.Links) == 0 {
		s.state = StateError
		s.err = ErrNoPlayableLink
		s.mu.Unlock()
		return ErrNoPlayableLink
	}
	link := res.Links[0]
	s.mu.Unlock()

	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return ErrSuperseded
	}
	s.mu.Unlock()

	if err := s.surf.Load(link.URL, startAt); err != nil {
		s.mu.Lock()
		if gen == s.gen {
			s.state = StateError
			s.err = err
		}
		s.mu.Unlock()
		return fmt.Errorf("loading stream: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return ErrSuperseded
	}
	s.resolution = res
	s.quality = link.Quality
	s.activeURL = link.URL
	s.time = startAt
	s.buffered = 0
	s.logger.Info().
		Str("provider", res.Provider).
		Str("quality", link.Quality).
		Float64("start_at", startAt).
		Msg("stream loaded")
	return nil
}

// SwitchQuality moves playback to another quality of the current resolution,
// preserving the playback position. If the active stream changes underneath
// the switch, the switch is discarded.
func (s *Session) SwitchQuality(quality string) error {
	s.mu.Lock()
	if s.resolution == nil {
		s.mu.Unlock()
		return fmt.Errorf("no stream loaded")
	}
	if quality == s.quality {
		s.mu.Unlock()
		return nil
	}
	link := s.resolution.LinkFor(quality)
	if link == nil {
		s.mu.Unlock()
		return fmt.Errorf("quality %q not available", quality)
	}
	gen := s.gen
	triggerURL := s.activeURL
	s.mu.Unlock()

	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	s.mu.Lock()
	if gen != s.gen || triggerURL != s.activeURL {
		s.mu.Unlock()
		return ErrSuperseded
	}
	s.mu.Unlock()

	pos := s.surf.Position()

	if err := s.surf.Load(link.URL, pos); err != nil {
		return fmt.Errorf("switching quality: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || triggerURL != s.activeURL {
		return ErrSuperseded
	}
	s.quality = quality
	s.activeURL = link.URL
	s.time = pos
	s.buffered = 0
	s.logger.Info().Str("quality", quality).Float64("resume_at", pos).Msg("quality switched")
	return nil
}

// Resolution returns the active resolution, or nil when nothing is loaded.
func (s *Session) Resolution() *media.Resolution {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolution
}

func (s *Session) Play() error  { return s.surf.Play() }
func (s *Session) Pause() error { return s.surf.Pause() }

// Seek moves playback to pos and notifies the seek callback so overlays can
// invalidate scheduled work.
func (s *Session) Seek(pos float64) error {
	if err := s.surf.Seek(pos); err != nil {
		return err
	}
	if s.cb.OnSeek != nil {
		s.cb.OnSeek(pos)
	}
	return nil
}

// SetRate changes the playback rate for the session.
func (s *Session) SetRate(rate float64) {
	s.mu.Lock()
	s.rate = rate
	s.mu.Unlock()
	s.surf.SetRate(rate)
}

// Snapshot returns a copy of the current session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		ID:        s.id,
		State:     s.state,
		Time:      s.time,
		Duration:  s.duration,
		Buffered:  s.buffered,
		Rate:      s.rate,
		Quality:   s.quality,
		StreamURL: s.activeURL,
		Err:       s.err,
	}
	if s.resolution != nil {
		snap.Provider = s.resolution.Provider
	}
	return snap
}

// Close tears the session down. The surface is closed, which ends the event
// pump.
func (s *Session) Close() error {
	err := s.surf.Close()
	<-s.pumpDone
	return err
}

// pump translates surface events into session state.
func (s *Session) pump() {
	defer close(s.pumpDone)
	for ev := range s.surf.Events() {
		s.apply(ev)
	}
}

func (s *Session) apply(ev surface.Event) {
	s.mu.Lock()
	switch ev.Kind {
	case surface.EventPlay:
		s.state = StatePlaying
	case surface.EventPause:
		s.state = StatePaused
	case surface.EventWaiting:
		s.state = StateBuffering
	case surface.EventPlaying:
		if s.state == StateBuffering || s.state == StateLoading {
			s.state = StatePlaying
		}
	case surface.EventTimeUpdate:
		s.time = ev.Time
	case surface.EventDurationChange:
		s.duration = ev.Duration
	case surface.EventProgress:
		if ev.Buffered > s.buffered {
			s.buffered = ev.Buffered
		}
	case surface.EventEnded:
		s.state = StateEnded
	case surface.EventError:
		s.state = StateError
		s.err = ev.Err
	}
	t, d := s.time, s.duration
	s.mu.Unlock()

	switch ev.Kind {
	case surface.EventTimeUpdate:
		if s.cb.OnTime != nil {
			s.cb.OnTime(t, d)
		}
	case surface.EventSeeking:
		if s.cb.OnSeek != nil {
			s.cb.OnSeek(ev.Time)
		}
	case surface.EventEnded:
		if s.cb.OnEnded != nil {
			s.cb.OnEnded()
		}
	case surface.EventError:
		if s.cb.OnError != nil {
			s.cb.OnError(ev.Err)
		}
	}
}
