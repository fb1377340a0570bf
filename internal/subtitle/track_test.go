package subtitle

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cinestream/internal/media"
)

const sampleSRT = "1\n00:00:01,000 --> 00:00:02,000\nHello\n"

func newSubtitleServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken" {
			http.Error(w, "gone", http.StatusNotFound)
			return
		}
		fmt.Fprint(w, sampleSRT)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLoadConvertsAndSkipsFailures(t *testing.T) {
	srv := newSubtitleServer(t)

	set, err := NewSet("")
	require.NoError(t, err)
	defer set.Close()

	set.Load(context.Background(), []media.SubtitleRef{
		{Display: "English", Language: "en", URL: srv.URL + "/en.srt"},
		{Display: "Arabic", Language: "ar", URL: srv.URL + "/broken"},
	})

	tracks := set.Tracks()
	require.Len(t, tracks, 1, "failed track is skipped, not fatal")

	data, err := os.ReadFile(tracks[0].Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "WEBVTT")
	assert.Contains(t, string(data), "00:00:01.000 --> 00:00:02.000")
}

func TestAutoSelectOncePerTrackSet(t *testing.T) {
	srv := newSubtitleServer(t)

	set, err := NewSet("ar")
	require.NoError(t, err)
	defer set.Close()

	refs := []media.SubtitleRef{
		{Display: "English", Language: "en", URL: srv.URL + "/en.srt"},
		{Display: "Arabic", Language: "ar", URL: srv.URL + "/ar.srt"},
	}

	set.Load(context.Background(), refs)
	assert.Equal(t, "ar", set.ActiveLanguage(), "interface language auto-selected")

	// An explicit choice wins and survives later track-set changes.
	set.Select("en")
	set.Load(context.Background(), refs)
	assert.Equal(t, "en", set.ActiveLanguage(), "explicit choice is never overridden")

	set.Select("")
	set.Load(context.Background(), refs)
	assert.Empty(t, set.ActiveLanguage(), "explicit off stays off")
}

func TestLoadReleasesSupersededTracks(t *testing.T) {
	srv := newSubtitleServer(t)

	set, err := NewSet("")
	require.NoError(t, err)
	defer set.Close()

	refs := []media.SubtitleRef{{Display: "English", Language: "en", URL: srv.URL + "/en.srt"}}
	set.Load(context.Background(), refs)
	oldPath := set.Tracks()[0].Path

	set.Load(context.Background(), refs)

	_, statErr := os.Stat(oldPath)
	assert.True(t, os.IsNotExist(statErr), "superseded converted track must be released")
}

func TestTrackReleaseIdempotent(t *testing.T) {
	srv := newSubtitleServer(t)

	set, err := NewSet("")
	require.NoError(t, err)
	defer set.Close()

	set.Load(context.Background(), []media.SubtitleRef{{Display: "English", Language: "en", URL: srv.URL + "/en.srt"}})
	track := set.Tracks()[0]

	track.Release()
	track.Release() // second release is a no-op
	_, statErr := os.Stat(track.Path)
	assert.True(t, os.IsNotExist(statErr))
}
