package subtitle

import (
	"sync"

	"cinestream/internal/media"
)

// SkipState is the skip-button activation state.
type SkipState int

const (
	SkipNone SkipState = iota
	SkipIntro
	SkipOutro
)

func (s SkipState) String() string {
	switch s {
	case SkipIntro:
		return "intro-active"
	case SkipOutro:
		return "outro-active"
	default:
		return "none"
	}
}

// SkipTracker derives the skip-button state from the current playback time.
// It is driven purely by time-update ticks, not timers: segment start is
// inclusive, segment end exclusive. Safe for concurrent use; analysis
// installs segments from another goroutine while ticks keep arriving.
type SkipTracker struct {
	mu       sync.Mutex
	segments media.SkipSegments
	state    SkipState
}

// NewSkipTracker creates a tracker with no segments.
func NewSkipTracker() *SkipTracker {
	return &SkipTracker{}
}

// SetSegments installs the analysis result, resetting state. Segments that
// violate start < end are dropped.
func (tr *SkipTracker) SetSegments(segs media.SkipSegments) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if segs.Intro != nil && segs.Intro.Start >= segs.Intro.End {
		segs.Intro = nil
	}
	if segs.Outro != nil && segs.Outro.Start >= segs.Outro.End {
		segs.Outro = nil
	}
	tr.segments = segs
	tr.state = SkipNone
}

// Segments returns the installed segments.
func (tr *SkipTracker) Segments() media.SkipSegments {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.segments
}

// Update recomputes the state for the given playback time. The outro window
// only activates once the duration is known.
func (tr *SkipTracker) Update(t, duration float64) SkipState {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	intro, outro := tr.segments.Intro, tr.segments.Outro
	switch {
	case intro != nil && t >= intro.Start && t < intro.End:
		tr.state = SkipIntro
	case outro != nil && duration > 0 && t >= outro.Start && t < outro.End:
		tr.state = SkipOutro
	default:
		tr.state = SkipNone
	}
	return tr.state
}

// State returns the last computed state.
func (tr *SkipTracker) State() SkipState {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.state
}

// Skip returns the jump target (the active segment's end) and resets the
// state to none. ok is false when no segment is active.
func (tr *SkipTracker) Skip() (target float64, ok bool) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	var seg *media.SkipSegment
	switch tr.state {
	case SkipIntro:
		seg = tr.segments.Intro
	case SkipOutro:
		seg = tr.segments.Outro
	}
	if seg == nil {
		return 0, false
	}
	tr.state = SkipNone
	return seg.End, true
}
