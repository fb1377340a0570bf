package surface

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"cinestream/internal/log"
)

// MPV drives an mpv process over its JSON IPC socket. mpv is launched with
// exec.Command and explicit argument slices; the IPC socket lives at a
// randomized temp path.
type MPV struct {
	mu        sync.Mutex
	cmd       *exec.Cmd
	conn      net.Conn
	socketDir string
	events    chan Event
	position  float64
	closed    bool
	spawned   bool
	loops     sync.WaitGroup
	logger    zerolog.Logger

	title string
}

// NewMPV creates an unattached mpv surface.
func NewMPV(title string) *MPV {
	return &MPV{
		events: make(chan Event, 64),
		logger: log.WithComponent("mpv"),
		title:  title,
	}
}

// Available checks if the mpv binary exists in PATH.
func (m *MPV) Available() bool {
	_, err := exec.LookPath("mpv")
	return err == nil
}

// Load attaches mpv to url, resuming at startAt seconds. A running instance
// is told to replace its current file; otherwise a new process is spawned.
func (m *MPV) Load(url string, startAt float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("surface is closed")
	}

	if m.conn != nil {
		// Replace the playing file in the existing instance. mpv tears down
		// the old demuxer itself.
		opts := fmt.Sprintf("start=+%.3f", startAt)
		return m.command("loadfile", url, "replace", opts)
	}

	return m.spawn(url, startAt)
}

// spawn launches mpv and connects to its IPC socket. Caller holds m.mu.
func (m *MPV) spawn(url string, startAt float64) error {
	socketDir, err := os.MkdirTemp("", "cinestream-mpv-*")
	if err != nil {
		return fmt.Errorf("creating temp dir for mpv socket: %w", err)
	}
	socketPath := filepath.Join(socketDir, "socket")

	args := []string{
		url,
		"--input-ipc-server=" + socketPath,
		"--really-quiet",
		"--force-window=yes",
	}
	if m.title != "" {
		args = append(args, "--force-media-title="+m.title)
	}
	if startAt > 0 {
		args = append(args, fmt.Sprintf("--start=+%.3f", startAt))
	}

	cmd := exec.Command("mpv", args...)
	if err := cmd.Start(); err != nil {
		os.RemoveAll(socketDir)
		return fmt.Errorf("starting mpv: %w", err)
	}

	conn, err := waitForSocket(socketPath, 5*time.Second)
	if err != nil {
		_ = cmd.Process.Kill()
		os.RemoveAll(socketDir)
		return fmt.Errorf("connecting to mpv socket: %w", err)
	}

	m.cmd = cmd
	m.conn = conn
	m.socketDir = socketDir

	if err := m.observeProperties(); err != nil {
		m.logger.Warn().Err(err).Msg("observing mpv properties failed")
	}

	// The events channel closes only after both loops are done emitting.
	m.loops.Add(2)
	m.spawned = true
	go func() { defer m.loops.Done(); m.readLoop(conn) }()
	go func() { defer m.loops.Done(); m.reapLoop(cmd) }()
	go func() {
		m.loops.Wait()
		close(m.events)
	}()

	return nil
}

func waitForSocket(path string, timeout time.Duration) (net.Conn, error) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if conn, err := net.Dial("unix", path); err == nil {
			return conn, nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return nil, fmt.Errorf("socket %s not ready within %s", path, timeout)
}

// observed property ids.
const (
	propTimePos = 1 + iota
	propDuration
	propPause
	propPausedForCache
	propDemuxerCacheTime
	propEOF
)

func (m *MPV) observeProperties() error {
	observed := map[int]string{
		propTimePos:          "time-pos",
		propDuration:         "duration",
		propPause:            "pause",
		propPausedForCache:   "paused-for-cache",
		propDemuxerCacheTime: "demuxer-cache-time",
		propEOF:              "eof-reached",
	}
	for id, name := range observed {
		if err := m.command("observe_property", id, name); err != nil {
			return err
		}
	}
	return nil
}

// command sends a single IPC command. Caller holds m.mu.
func (m *MPV) command(args ...any) error {
	if m.conn == nil {
		return fmt.Errorf("mpv not attached")
	}
	payload, err := json.Marshal(map[string]any{"command": args})
	if err != nil {
		return fmt.Errorf("encoding mpv command: %w", err)
	}
	payload = append(payload, '\n')
	if _, err := m.conn.Write(payload); err != nil {
		return fmt.Errorf("writing mpv command: %w", err)
	}
	return nil
}

// lockedCommand sends an IPC command taking the mutex.
func (m *MPV) lockedCommand(args ...any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.command(args...)
}

// ipcEvent is one line from the IPC socket.
type ipcEvent struct {
	Event string          `json:"event"`
	Name  string          `json:"name"`
	Data  json.RawMessage `json:"data"`
}

// readLoop translates mpv property changes into surface events.
func (m *MPV) readLoop(conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var ev ipcEvent
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			continue
		}

		switch {
		case ev.Event == "property-change":
			m.handleProperty(ev)
		case ev.Event == "seek":
			m.emit(Event{Kind: EventSeeking})
		case ev.Event == "playback-restart":
			m.emit(Event{Kind: EventPlaying})
		}
	}
}

func (m *MPV) handleProperty(ev ipcEvent) {
	switch ev.Name {
	case "time-pos":
		var t float64
		if json.Unmarshal(ev.Data, &t) == nil {
			m.mu.Lock()
			m.position = t
			m.mu.Unlock()
			m.emit(Event{Kind: EventTimeUpdate, Time: t})
		}
	case "duration":
		var d float64
		if json.Unmarshal(ev.Data, &d) == nil && d > 0 {
			m.emit(Event{Kind: EventDurationChange, Duration: d})
		}
	case "pause":
		var paused bool
		if json.Unmarshal(ev.Data, &paused) == nil {
			if paused {
				m.emit(Event{Kind: EventPause})
			} else {
				m.emit(Event{Kind: EventPlay})
			}
		}
	case "paused-for-cache":
		var stalled bool
		if json.Unmarshal(ev.Data, &stalled) == nil {
			if stalled {
				m.emit(Event{Kind: EventWaiting})
			} else {
				m.emit(Event{Kind: EventPlaying})
			}
		}
	case "demuxer-cache-time":
		var buffered float64
		if json.Unmarshal(ev.Data, &buffered) == nil {
			m.emit(Event{Kind: EventProgress, Buffered: buffered})
		}
	case "eof-reached":
		var eof bool
		if json.Unmarshal(ev.Data, &eof) == nil && eof {
			m.emit(Event{Kind: EventEnded})
		}
	}
}

// reapLoop waits for mpv to exit and surfaces an abnormal exit as an error.
func (m *MPV) reapLoop(cmd *exec.Cmd) {
	err := cmd.Wait()
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return
	}
	if err != nil {
		// mpv exits non-zero on user quit, which is normal.
		if exitErr, ok := err.(*exec.ExitError); !ok || exitErr.ExitCode() != 4 {
			m.emit(Event{Kind: EventError, Err: fmt.Errorf("mpv exited: %w", err)})
			return
		}
	}
	m.emit(Event{Kind: EventEnded})
}

func (m *MPV) emit(ev Event) {
	select {
	case m.events <- ev:
	default:
		// Drop rather than block the IPC reader on a slow consumer.
	}
}

func (m *MPV) Play() error  { return m.lockedCommand("set_property", "pause", false) }
func (m *MPV) Pause() error { return m.lockedCommand("set_property", "pause", true) }

func (m *MPV) Seek(pos float64) error {
	return m.lockedCommand("set_property", "time-pos", pos)
}

func (m *MPV) Position() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *MPV) SetRate(rate float64) {
	if err := m.lockedCommand("set_property", "speed", rate); err != nil {
		m.logger.Warn().Err(err).Msg("setting playback rate failed")
	}
}

func (m *MPV) SetVolume(vol float64) {
	if err := m.lockedCommand("set_property", "volume", vol*100); err != nil {
		m.logger.Warn().Err(err).Msg("setting volume failed")
	}
}

func (m *MPV) SetMuted(muted bool) {
	if err := m.lockedCommand("set_property", "mute", muted); err != nil {
		m.logger.Warn().Err(err).Msg("setting mute failed")
	}
}

// AddSubtitle side-loads a converted subtitle file into the running instance.
func (m *MPV) AddSubtitle(path string) error {
	return m.lockedCommand("sub-add", path, "select")
}

func (m *MPV) Events() <-chan Event { return m.events }

// Close quits mpv and releases the IPC socket. Idempotent.
func (m *MPV) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	if m.conn != nil {
		_ = m.command("quit")
		m.conn.Close()
		m.conn = nil
	}
	if m.cmd != nil && m.cmd.Process != nil {
		// quit above usually suffices; kill covers a wedged instance.
		_ = m.cmd.Process.Kill()
	}
	if m.socketDir != "" {
		os.RemoveAll(m.socketDir)
		m.socketDir = ""
	}
	// With a spawned instance the loops close the channel once the IPC
	// connection drains; without one nobody else will.
	if !m.spawned {
		close(m.events)
	}
	return nil
}
