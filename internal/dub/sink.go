package dub

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// ExecSink plays clips through ffplay. Each prepared clip lands in a temp
// file; ffprobe reports its duration up front so the scheduler can compute
// the rate cap before playback.
type ExecSink struct {
	mu     sync.Mutex
	dir    string
	seq    int
	closed bool
}

// NewExecSink creates an ffplay-backed sink. It fails when ffplay or
// ffprobe is not installed.
func NewExecSink() (*ExecSink, error) {
	for _, bin := range []string{"ffplay", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			return nil, fmt.Errorf("%s not found in PATH: %w", bin, err)
		}
	}
	dir, err := os.MkdirTemp("", "cinestream-dub-*")
	if err != nil {
		return nil, fmt.Errorf("creating clip dir: %w", err)
	}
	return &ExecSink{dir: dir}, nil
}

func (s *ExecSink) Prepare(data []byte) (Source, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, fmt.Errorf("sink is closed")
	}
	s.seq++
	path := filepath.Join(s.dir, fmt.Sprintf("clip-%04d.audio", s.seq))
	s.mu.Unlock()

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, fmt.Errorf("writing clip: %w", err)
	}
	dur, err := probeDuration(path)
	if err != nil {
		os.Remove(path)
		return nil, err
	}
	return &execSource{player: "ffplay", path: path, duration: dur}, nil
}

func (s *ExecSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return os.RemoveAll(s.dir)
}

func probeDuration(path string) (float64, error) {
	out, err := exec.Command("ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	).Output()
	if err != nil {
		return 0, fmt.Errorf("probing clip duration: %w", err)
	}
	dur, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("parsing clip duration %q: %w", out, err)
	}
	return dur, nil
}

// execSource plays one clip file. A source stays replayable across stops:
// every Play spawns a fresh process, so a clip stopped by a seek can play
// again when the scheduler re-enters its window.
type execSource struct {
	mu       sync.Mutex
	player   string
	path     string
	duration float64
	cmd      *exec.Cmd
}

func (s *execSource) Duration() float64 { return s.duration }

func (s *execSource) Play(rate float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd != nil {
		return nil
	}

	args := []string{"-nodisp", "-autoexit", "-loglevel", "quiet"}
	if rate > 1.0 {
		// atempo keeps pitch while compressing the clip into its window.
		args = append(args, "-af", fmt.Sprintf("atempo=%.3f", rate))
	}
	args = append(args, s.path)

	cmd := exec.Command(s.player, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", s.player, err)
	}
	s.cmd = cmd
	go func() {
		_ = cmd.Wait()
		s.mu.Lock()
		if s.cmd == cmd {
			s.cmd = nil
		}
		s.mu.Unlock()
	}()
	return nil
}

func (s *execSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	s.cmd = nil
}
