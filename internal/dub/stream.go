// Package dub overlays AI-dubbed audio on a playback session. Segment audio
// arrives incrementally over an NDJSON stream; an engine schedules each clip
// against the playback clock and ducks the original audio while a clip plays.
package dub

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cinestream/internal/httputil"
)

// Segment is one dubbed utterance: a clip URL and the window it covers,
// in stream milliseconds.
type Segment struct {
	AudioURL string `json:"audio_url"`
	StartMS  int64  `json:"start_ms"`
	EndMS    int64  `json:"end_ms"`
	Text     string `json:"text"`
}

// ID keys the segment for deduplication across retried batches.
func (s Segment) ID() string {
	return fmt.Sprintf("%d-%d", s.StartMS, s.EndMS)
}

// Batch is one NDJSON line from the dubbing service.
type Batch struct {
	Batch    []Segment `json:"batch"`
	Progress string    `json:"progress"`
}

// Client streams dubbed segments from the dubbing backend.
type Client struct {
	endpoint     string
	bypassHeader string
	bypassValue  string
	client       *http.Client
}

// NewClient creates a dubbing client. The backend takes the subtitle file to
// dub and answers with an NDJSON stream of segment batches.
func NewClient(endpoint, bypassHeader, bypassValue string) *Client {
	return &Client{
		endpoint:     endpoint,
		bypassHeader: bypassHeader,
		bypassValue:  bypassValue,
		// Dub generation runs as long as the stream stays open, so the
		// client carries no overall deadline.
		client: httputil.NewStreamingClient(),
	}
}

// Stream opens the dubbing stream for the subtitle at srtURL and calls fn
// for every parsed batch. Lines that fail to parse are skipped. Stream
// returns when the backend closes the stream, fn is never called after.
func (c *Client) Stream(ctx context.Context, srtURL string, fn func(Batch)) error {
	full := c.endpoint + "?url=" + url.QueryEscape(srtURL)

	headers := map[string]string{}
	if c.bypassHeader != "" {
		headers[c.bypassHeader] = c.bypassValue
	}
	resp, err := httputil.Get(ctx, c.client, full, headers)
	if err != nil {
		return fmt.Errorf("opening dubbing stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("dubbing service returned %d: %s", resp.StatusCode, body)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var batch Batch
		if err := json.Unmarshal(line, &batch); err != nil {
			continue
		}
		fn(batch)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading dubbing stream: %w", err)
	}
	return nil
}

// FetchAudio downloads one segment clip and validates it is plausibly audio:
// an audio content type and at least minAudioBytes of payload.
func (c *Client) FetchAudio(ctx context.Context, audioURL string) ([]byte, error) {
	headers := map[string]string{}
	if c.bypassHeader != "" {
		headers[c.bypassHeader] = c.bypassValue
	}
	fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := httputil.Get(fetchCtx, c.client, audioURL, headers)
	if err != nil {
		return nil, fmt.Errorf("fetching segment audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("segment audio returned %d", resp.StatusCode)
	}
	if err := validateAudioResponse(resp); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return nil, fmt.Errorf("reading segment audio: %w", err)
	}
	if len(data) < minAudioBytes {
		return nil, fmt.Errorf("segment audio too small: %d bytes", len(data))
	}
	return data, nil
}

func validateAudioResponse(resp *http.Response) error {
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "audio/") {
		return fmt.Errorf("unexpected content type %q for segment audio", ct)
	}
	return nil
}
