// Package pip hands a playback session off to a miniature overlay and back.
// At most one handoff exists at a time: entering a new one displaces
// whatever was miniaturized before.
package pip

import (
	"sync"

	"github.com/rs/zerolog"

	"cinestream/internal/log"
)

// Anchor is where the miniature surface is pinned, in screen-fraction
// coordinates.
type Anchor struct {
	Top    float64
	Left   float64
	Width  float64
	Height float64
}

// Handoff carries everything needed to resume full playback later: the item
// identity, the live position, and the stream URL already resolved for it.
type Handoff struct {
	SessionID   string
	ItemID      int
	Title       string
	Type        string
	Season      int
	Episode     int
	CurrentTime float64
	IsPlaying   bool
	StreamURL   string
	Anchor      Anchor
}

// PositionSource reports the live playback position of a miniaturized
// session.
type PositionSource interface {
	Position() float64
}

// Manager owns the single miniaturized session.
type Manager struct {
	mu      sync.Mutex
	current *Handoff
	pos     PositionSource
	logger  zerolog.Logger
}

func NewManager() *Manager {
	return &Manager{logger: log.WithComponent("pip")}
}

// Enter miniaturizes a session. Any previous handoff is discarded; its
// state is returned so the caller can release the displaced session.
func (m *Manager) Enter(h Handoff, pos PositionSource) (displaced *Handoff) {
	m.mu.Lock()
	defer m.mu.Unlock()
	displaced = m.current
	if displaced != nil {
		m.logger.Info().Str("session", displaced.SessionID).Str("title", displaced.Title).Msg("displacing miniaturized session")
	}
	m.current = &h
	m.pos = pos
	return displaced
}

// Active reports whether a miniaturized session exists.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil
}

// Current returns a copy of the handoff state with the position refreshed
// from the live session, or nil when nothing is miniaturized.
func (m *Manager) Current() *Handoff {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	h := *m.current
	if m.pos != nil {
		h.CurrentTime = m.pos.Position()
	}
	return &h
}

// Promote takes the miniaturized session back to full playback: the handoff
// is returned with its position read at promotion time, and the manager
// empties.
func (m *Manager) Promote() (*Handoff, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil, false
	}
	h := *m.current
	if m.pos != nil {
		h.CurrentTime = m.pos.Position()
	}
	m.current = nil
	m.pos = nil
	return &h, true
}

// Close discards the miniaturized session, if any.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = nil
	m.pos = nil
}
