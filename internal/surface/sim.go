package surface

import (
	"sync"
)

// Sim is a scriptable in-memory surface. Tests drive it by hand: Advance
// moves the clock and emits time updates, and loads complete only when the
// test calls FinishLoad. Nothing runs on its own.
type Sim struct {
	mu       sync.Mutex
	events   chan Event
	url      string
	position float64
	duration float64
	rate     float64
	volume   float64
	muted    bool
	playing  bool
	closed   bool

	loadErr error
}

func NewSim() *Sim {
	return &Sim{
		events: make(chan Event, 256),
		rate:   1.0,
		volume: 1.0,
	}
}

// FailLoads makes subsequent Load calls return err.
func (s *Sim) FailLoads(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadErr = err
}

func (s *Sim) Load(url string, startAt float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return s.loadErr
	}
	s.url = url
	s.position = startAt
	s.playing = false
	return nil
}

// FinishLoad simulates metadata arrival: duration becomes known and playback
// starts at the position Load requested.
func (s *Sim) FinishLoad(duration float64) {
	s.mu.Lock()
	s.duration = duration
	s.playing = true
	pos := s.position
	s.mu.Unlock()

	s.emit(Event{Kind: EventDurationChange, Duration: duration})
	s.emit(Event{Kind: EventPlay})
	s.emit(Event{Kind: EventTimeUpdate, Time: pos})
}

// Advance moves playback forward by dt seconds and emits a time update.
func (s *Sim) Advance(dt float64) {
	s.mu.Lock()
	if !s.playing {
		s.mu.Unlock()
		return
	}
	s.position += dt * s.rate
	pos := s.position
	s.mu.Unlock()

	s.emit(Event{Kind: EventTimeUpdate, Time: pos})
}

// Stall emits a buffering event; Resume clears it.
func (s *Sim) Stall()  { s.emit(Event{Kind: EventWaiting}) }
func (s *Sim) Resume() { s.emit(Event{Kind: EventPlaying}) }

// Buffer reports buffered media up to pos.
func (s *Sim) Buffer(pos float64) {
	s.emit(Event{Kind: EventProgress, Buffered: pos})
}

// End emits the ended event.
func (s *Sim) End() {
	s.mu.Lock()
	s.playing = false
	s.mu.Unlock()
	s.emit(Event{Kind: EventEnded})
}

func (s *Sim) Play() error {
	s.mu.Lock()
	s.playing = true
	s.mu.Unlock()
	s.emit(Event{Kind: EventPlay})
	return nil
}

func (s *Sim) Pause() error {
	s.mu.Lock()
	s.playing = false
	s.mu.Unlock()
	s.emit(Event{Kind: EventPause})
	return nil
}

func (s *Sim) Seek(pos float64) error {
	s.mu.Lock()
	s.position = pos
	s.mu.Unlock()
	s.emit(Event{Kind: EventSeeking, Time: pos})
	s.emit(Event{Kind: EventTimeUpdate, Time: pos})
	return nil
}

func (s *Sim) Position() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

// URL reports the source given to the last Load.
func (s *Sim) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

func (s *Sim) SetRate(rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rate = rate
}

func (s *Sim) Rate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rate
}

func (s *Sim) SetVolume(vol float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = vol
}

func (s *Sim) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

func (s *Sim) SetMuted(muted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.muted = muted
}

func (s *Sim) Muted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}

func (s *Sim) Events() <-chan Event { return s.events }

func (s *Sim) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.events)
	return nil
}

// emit holds the lock through the send so Close can never slip in between
// the check and the send. The channel buffer is large enough that scripted
// tests never fill it.
func (s *Sim) emit(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.events <- ev
}
