package dub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecSourceReplaysAfterStop(t *testing.T) {
	// "true" exits immediately and ignores the player arguments, so the
	// source exercises the real spawn path without audio output.
	src := &execSource{player: "true", path: "clip.audio", duration: 1}

	// A stop before any playback must not latch the source off; the
	// scheduler stops pending clips on every seek and re-arms them later.
	src.Stop()
	require.NoError(t, src.Play(1.0))

	src.Stop()
	require.NoError(t, src.Play(1.5))
}

func TestExecSourcePlayAttemptsSpawnAfterStop(t *testing.T) {
	src := &execSource{player: "cinestream-no-such-player", path: "clip.audio", duration: 1}

	src.Stop()
	err := src.Play(1.0)
	assert.Error(t, err, "a stopped-then-replayed source must reach the spawn path")
}
