package dub

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"cinestream/internal/log"
)

const (
	// tickInterval is how often the scheduler compares clip windows against
	// the playback clock.
	tickInterval = 250 * time.Millisecond
	// lookahead is how far ahead of the playback clock a clip may be
	// scheduled, absorbing process-spawn latency in the sink.
	lookahead = 1.5
	// maxClipRate caps the speed-up applied to clips longer than their
	// target window.
	maxClipRate = 1.5

	minAudioBytes = 256
	maxAudioBytes = 8 * 1024 * 1024
)

// Source is one prepared audio clip, playable once.
type Source interface {
	// Duration is the clip length in seconds.
	Duration() float64
	// Play starts the clip at the given rate. It returns immediately.
	Play(rate float64) error
	// Stop cancels the clip if it is still playing. Idempotent.
	Stop()
}

// Sink turns raw audio bytes into playable sources.
type Sink interface {
	Prepare(data []byte) (Source, error)
	Close() error
}

// AudioControl is the slice of the media surface the engine ducks.
type AudioControl interface {
	SetVolume(vol float64)
	SetMuted(muted bool)
}

// clip tracks one segment through its lifecycle. A scheduled clip has a
// pending start timer; a started clip has been handed to the sink.
type clip struct {
	seg       Segment
	source    Source
	timer     *time.Timer
	scheduled bool
	started   bool
}

// Engine schedules dubbed clips against the playback clock. While any clip
// window covers the current position, the surface's own audio is ducked to
// silence.
type Engine struct {
	client *Client
	sink   Sink
	audio  AudioControl
	logger zerolog.Logger

	// OnProgress receives the backend's free-text generation progress.
	OnProgress func(string)

	mu     sync.Mutex
	clips  map[string]*clip
	ducked bool
	closed bool

	tickerStop chan struct{}
}

// NewEngine creates a dub engine over the given backend client, audio sink,
// and surface audio controls.
func NewEngine(client *Client, sink Sink, audio AudioControl) *Engine {
	return &Engine{
		client:     client,
		sink:       sink,
		audio:      audio,
		logger:     log.WithComponent("dub"),
		clips:      make(map[string]*clip),
		tickerStop: make(chan struct{}),
	}
}

// Run starts the dub overlay for the subtitle file at srtURL: the surface is
// unmuted and silenced, segment batches are ingested as they stream in, and
// the scheduler ticks against the position func until Close. Run returns
// once the backend finishes streaming.
func (e *Engine) Run(ctx context.Context, srtURL string, position func() float64, paused func() bool) error {
	e.audio.SetMuted(false)
	e.audio.SetVolume(0)
	e.mu.Lock()
	e.ducked = true
	e.mu.Unlock()

	go e.tickLoop(position, paused)

	return e.client.Stream(ctx, srtURL, func(b Batch) {
		e.ingest(ctx, b)
	})
}

// ingest dedupes, fetches, and prepares the segments of one batch. Failed
// segments are logged and dropped; the rest of the batch still lands.
func (e *Engine) ingest(ctx context.Context, b Batch) {
	if b.Progress != "" && e.OnProgress != nil {
		e.OnProgress(b.Progress)
	}
	for _, seg := range b.Batch {
		id := seg.ID()
		e.mu.Lock()
		_, seen := e.clips[id]
		closed := e.closed
		e.mu.Unlock()
		if seen || closed {
			continue
		}

		data, err := e.client.FetchAudio(ctx, seg.AudioURL)
		if err != nil {
			e.logger.Warn().Err(err).Str("segment", id).Msg("segment audio rejected")
			continue
		}
		src, err := e.sink.Prepare(data)
		if err != nil {
			e.logger.Warn().Err(err).Str("segment", id).Msg("preparing segment failed")
			continue
		}

		e.mu.Lock()
		if e.closed {
			e.mu.Unlock()
			src.Stop()
			return
		}
		e.clips[id] = &clip{seg: seg, source: src}
		e.mu.Unlock()
	}
}

func (e *Engine) tickLoop(position func() float64, paused func() bool) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-e.tickerStop:
			return
		case <-ticker.C:
			if paused != nil && paused() {
				continue
			}
			e.Tick(position())
		}
	}
}

// Tick runs one scheduler pass at playback position now (seconds): clips
// whose window opens within the lookahead are armed, and the surface volume
// follows whether now sits inside any clip window.
func (e *Engine) Tick(now float64) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}

	inside := false
	for _, c := range e.clips {
		start := float64(c.seg.StartMS) / 1000
		end := float64(c.seg.EndMS) / 1000

		if now >= start && now < end {
			inside = true
		}
		if !c.scheduled && start >= now && start < now+lookahead {
			e.arm(c, start-now)
		}
	}

	duck := inside
	changed := duck != e.ducked
	e.ducked = duck
	e.mu.Unlock()

	if changed {
		if duck {
			e.audio.SetVolume(0)
		} else {
			e.audio.SetVolume(1.0)
		}
	}
}

// arm schedules a clip to start after delay. Caller holds e.mu.
func (e *Engine) arm(c *clip, delay float64) {
	rate := 1.0
	window := float64(c.seg.EndMS-c.seg.StartMS) / 1000
	if dur := c.source.Duration(); window > 0 && dur > window {
		rate = dur / window
		if rate > maxClipRate {
			rate = maxClipRate
		}
	}
	if delay < 0 {
		delay = 0
	}

	c.scheduled = true
	id := c.seg.ID()
	c.timer = time.AfterFunc(time.Duration(delay*float64(time.Second)), func() {
		e.mu.Lock()
		if e.closed || !c.scheduled {
			e.mu.Unlock()
			return
		}
		c.started = true
		e.mu.Unlock()
		if err := c.source.Play(rate); err != nil {
			e.logger.Warn().Err(err).Str("segment", id).Msg("playing segment failed")
		}
	})
}

// InvalidateSeek cancels all armed and playing clips so the scheduler can
// re-arm them against the new position. Wire this to the session's seek
// callback.
func (e *Engine) InvalidateSeek() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, c := range e.clips {
		if !c.scheduled {
			continue
		}
		if c.timer != nil {
			c.timer.Stop()
			c.timer = nil
		}
		c.source.Stop()
		c.scheduled = false
		c.started = false
	}
}

// SegmentCount reports how many clips are prepared.
func (e *Engine) SegmentCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.clips)
}

// Close tears the overlay down and restores the surface audio. Idempotent.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	for _, c := range e.clips {
		if c.timer != nil {
			c.timer.Stop()
		}
		c.source.Stop()
	}
	e.clips = make(map[string]*clip)
	e.mu.Unlock()

	close(e.tickerStop)
	e.audio.SetVolume(1.0)
	e.audio.SetMuted(false)
	return e.sink.Close()
}
