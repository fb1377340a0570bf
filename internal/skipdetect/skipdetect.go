// Package skipdetect asks the AI analysis collaborator to locate intro and
// outro sequences in raw subtitle text. The collaborator is a best-effort
// oracle: its failures disable the skip button for a title, nothing else.
package skipdetect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"cinestream/internal/media"
)

// maxChars bounds how much subtitle text is sent per analysis request.
const maxChars = 40000

// instruction tells the collaborator what to look for: sustained dialogue
// gaps near the start and end consistent with typical intro/outro durations.
const instruction = "Analyze the SRT content and identify intro and outro sequences. " +
	"The primary signal is a lack of spoken words for a sustained period (30-90 seconds) " +
	"near the beginning (intro) or before the very end (outro). Musical note markers can " +
	"also be an indicator. Return JSON with intro and outro objects holding start and end " +
	"times in seconds, or null when not detected."

// Client calls the analysis collaborator.
type Client struct {
	endpoint string
	client   *http.Client
}

// New creates an analysis client.
func New(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type request struct {
	Instruction string `json:"instruction"`
	Subtitles   string `json:"subtitles"`
}

type response struct {
	Intro *media.SkipSegment `json:"intro"`
	Outro *media.SkipSegment `json:"outro"`
}

// Analyze submits bounded subtitle text and returns validated skip segments.
// Both segments may legitimately be absent.
func (c *Client) Analyze(ctx context.Context, srtText string) (media.SkipSegments, error) {
	if len(srtText) > maxChars {
		srtText = srtText[:maxChars]
	}

	payload, err := json.Marshal(request{Instruction: instruction, Subtitles: srtText})
	if err != nil {
		return media.SkipSegments{}, fmt.Errorf("encoding analysis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return media.SkipSegments{}, fmt.Errorf("creating analysis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return media.SkipSegments{}, fmt.Errorf("analysis request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return media.SkipSegments{}, fmt.Errorf("analysis service returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return media.SkipSegments{}, fmt.Errorf("reading analysis response: %w", err)
	}

	var parsed response
	if err := json.Unmarshal(body, &parsed); err != nil {
		return media.SkipSegments{}, fmt.Errorf("parsing analysis response: %w", err)
	}

	return media.SkipSegments{
		Intro: validate(parsed.Intro),
		Outro: validate(parsed.Outro),
	}, nil
}

// validate enforces the output contract: non-negative times, start < end.
// Anything else is treated as "not detected".
func validate(seg *media.SkipSegment) *media.SkipSegment {
	if seg == nil {
		return nil
	}
	if seg.Start < 0 || seg.End < 0 || seg.Start >= seg.End {
		return nil
	}
	return seg
}
