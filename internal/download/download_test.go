package download

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cinestream/internal/httputil"
	"cinestream/internal/log"
)

func testDownloader(segment int64) *Downloader {
	return &Downloader{
		client:  httputil.NewStreamingClient(),
		logger:  log.WithComponent("download"),
		segment: segment,
	}
}

// rangeHandler serves body honoring single-range requests.
func rangeHandler(body []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rng := r.Header.Get("Range")
		if rng == "" {
			w.Header().Set("Content-Length", strconv.Itoa(len(body)))
			w.Write(body)
			return
		}
		var start, end int
		if _, err := fmt.Sscanf(strings.TrimPrefix(rng, "bytes="), "%d-%d", &start, &end); err != nil {
			http.Error(w, "bad range", http.StatusBadRequest)
			return
		}
		if end >= len(body) {
			end = len(body) - 1
		}
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, len(body)))
		w.WriteHeader(http.StatusPartialContent)
		w.Write(body[start : end+1])
	}
}

func TestSegmentedDownload(t *testing.T) {
	body := bytes.Repeat([]byte("segmented-payload-"), 1000)
	server := httptest.NewServer(rangeHandler(body))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "out.mp4")
	var lastReceived, lastTotal int64
	err := testDownloader(4096).Fetch(context.Background(), server.URL, dest, Options{
		OnProgress: func(received, total int64) {
			lastReceived, lastTotal = received, total
		},
	})
	require.NoError(t, err)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, body, got)
	assert.Equal(t, int64(len(body)), lastReceived)
	assert.Equal(t, int64(len(body)), lastTotal)
}

func TestURLRenewalMidTransfer(t *testing.T) {
	body := bytes.Repeat([]byte("x"), 10000)

	// The first link dies after one segment; the renewed link keeps serving.
	var served atomic.Int64
	dead := func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Range") == "bytes=0-0" || served.Add(1) <= 1 {
			rangeHandler(body)(w, r)
			return
		}
		http.Error(w, "link expired", http.StatusForbidden)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/expired", dead)
	mux.HandleFunc("/fresh", rangeHandler(body))
	server := httptest.NewServer(mux)
	defer server.Close()

	var renewals int
	dest := filepath.Join(t.TempDir(), "out.mp4")
	err := testDownloader(4096).Fetch(context.Background(), server.URL+"/expired", dest, Options{
		RenewURL: func(ctx context.Context) (string, error) {
			renewals++
			return server.URL + "/fresh", nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, renewals)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, body, got)
}

func TestFallbackWhenRangesUnsupported(t *testing.T) {
	body := bytes.Repeat([]byte("plain"), 2000)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Range headers ignored entirely.
		w.Write(body)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "out.mp4")
	err := testDownloader(4096).Fetch(context.Background(), server.URL, dest, Options{})
	require.NoError(t, err)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, body, got)
}

func TestSegmentExhaustionFails(t *testing.T) {
	body := bytes.Repeat([]byte("y"), 10000)
	var served atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Range") == "bytes=0-0" || served.Add(1) <= 1 {
			rangeHandler(body)(w, r)
			return
		}
		http.Error(w, "gone", http.StatusGone)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "out.mp4")
	err := testDownloader(4096).Fetch(context.Background(), server.URL, dest, Options{})
	require.Error(t, err)

	// No partial file left behind.
	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(dest + ".part")
	assert.True(t, os.IsNotExist(statErr))
}
