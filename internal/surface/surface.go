// Package surface abstracts the media surface a playback session drives.
// The production implementation controls an mpv process over its IPC socket;
// tests use a scriptable in-memory surface.
package surface

// EventKind identifies a media-surface event.
type EventKind int

const (
	EventPlay EventKind = iota
	EventPause
	EventTimeUpdate
	EventDurationChange
	EventWaiting  // playback stalled, buffering
	EventPlaying  // playback resumed after load/stall
	EventProgress // buffered-range report
	EventSeeking
	EventEnded
	EventError
)

// Event is a media-surface state notification.
type Event struct {
	Kind     EventKind
	Time     float64 // current position, seconds (TimeUpdate)
	Duration float64 // total duration, seconds (DurationChange)
	Buffered float64 // furthest buffered time, seconds (Progress)
	Err      error   // fatal media error (Error)
}

// Surface is a single-owner media surface. No two sessions may drive the
// same surface concurrently; switching media implies a full Load which tears
// down the previous attachment.
type Surface interface {
	// Load attaches the surface to a stream URL and resumes at startAt
	// seconds. Any previous attachment is destroyed first.
	Load(url string, startAt float64) error

	Play() error
	Pause() error
	Seek(pos float64) error

	// Position returns the current playback position in seconds.
	Position() float64

	SetRate(rate float64)
	SetVolume(vol float64) // 0.0 .. 1.0
	SetMuted(muted bool)

	// Events delivers surface events until Close.
	Events() <-chan Event

	Close() error
}
