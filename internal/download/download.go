// Package download saves resolved streams to disk. Servers that honor range
// requests get a segmented transfer that survives link expiry through URL
// renewal; everything else falls back to one streaming fetch.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strconv"

	"github.com/rs/zerolog"

	"cinestream/internal/httputil"
	"cinestream/internal/log"
)

const (
	segmentSize     = 5 * 1024 * 1024
	segmentAttempts = 3
)

var contentRangeRe = regexp.MustCompile(`bytes \d+-\d+/(\d+)`)

// Progress is called as bytes land. total is 0 when the size is unknown.
type Progress func(received, total int64)

// RenewFunc re-resolves the stream and returns a fresh URL for the same
// media. Stream links expire; a renewal mid-download keeps long transfers
// alive.
type RenewFunc func(ctx context.Context) (string, error)

// Options tune one transfer.
type Options struct {
	OnProgress Progress
	RenewURL   RenewFunc
}

// Downloader fetches stream URLs to local files.
type Downloader struct {
	client  *http.Client
	logger  zerolog.Logger
	segment int64
}

func New() *Downloader {
	return &Downloader{
		client:  httputil.NewStreamingClient(),
		logger:  log.WithComponent("download"),
		segment: segmentSize,
	}
}

// Fetch downloads url to dest. The destination is written through a .part
// file and renamed only on success.
func (d *Downloader) Fetch(ctx context.Context, url, dest string, opts Options) error {
	part := dest + ".part"
	f, err := os.Create(part)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()

	if err := d.fetchInto(ctx, url, f, opts); err != nil {
		os.Remove(part)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(part)
		return fmt.Errorf("flushing output file: %w", err)
	}
	if err := os.Rename(part, dest); err != nil {
		os.Remove(part)
		return fmt.Errorf("finalizing output file: %w", err)
	}
	return nil
}

func (d *Downloader) fetchInto(ctx context.Context, url string, f *os.File, opts Options) error {
	total := d.probe(ctx, url)
	if total <= 0 {
		d.logger.Debug().Str("url", url).Msg("size unknown, falling back to single fetch")
		return d.fetchWhole(ctx, url, f, opts)
	}
	return d.fetchSegmented(ctx, url, f, total, opts)
}

// probe asks for the first byte to learn the total size and whether the
// server honors ranges. 0 means unknown.
func (d *Downloader) probe(ctx context.Context, url string) int64 {
	resp, err := httputil.Get(ctx, d.client, url, map[string]string{"Range": "bytes=0-0"})
	if err != nil {
		return 0
	}
	defer func() {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusPartialContent {
		if m := contentRangeRe.FindStringSubmatch(resp.Header.Get("Content-Range")); m != nil {
			if total, err := strconv.ParseInt(m[1], 10, 64); err == nil {
				return total
			}
		}
	}
	// Server ignored the range; Content-Length still tells us the size but
	// segmented transfer is off the table.
	return 0
}

func (d *Downloader) fetchWhole(ctx context.Context, url string, w io.Writer, opts Options) error {
	resp, err := httputil.Get(ctx, d.client, url, nil)
	if err != nil {
		return fmt.Errorf("downloading: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status %d", resp.StatusCode)
	}
	total := resp.ContentLength
	if total < 0 {
		total = 0
	}
	return copyWithProgress(w, resp.Body, 0, total, opts.OnProgress)
}

// fetchSegmented pulls fixed-size ranges and writes each at its own offset,
// so a failed attempt can be retried without corrupting what already landed.
func (d *Downloader) fetchSegmented(ctx context.Context, url string, w io.WriterAt, total int64, opts Options) error {
	var received int64
	for received < total {
		start := received
		end := start + d.segment - 1
		if end > total-1 {
			end = total - 1
		}

		var lastErr error
		ok := false
		for attempt := 1; attempt <= segmentAttempts && !ok; attempt++ {
			n, err := d.fetchSegment(ctx, url, w, start, end)
			if err == nil {
				received += n
				if opts.OnProgress != nil {
					opts.OnProgress(received, total)
				}
				ok = true
				break
			}
			lastErr = err
			d.logger.Warn().Err(err).
				Int64("start", start).
				Int64("end", end).
				Int("attempt", attempt).
				Msg("segment fetch failed")

			if opts.RenewURL != nil {
				if fresh, renewErr := opts.RenewURL(ctx); renewErr == nil && fresh != "" {
					url = fresh
				}
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
		if !ok {
			return fmt.Errorf("segment %d-%d failed after %d attempts: %w", start, end, segmentAttempts, lastErr)
		}
	}
	return nil
}

func (d *Downloader) fetchSegment(ctx context.Context, url string, w io.WriterAt, start, end int64) (int64, error) {
	headers := map[string]string{"Range": fmt.Sprintf("bytes=%d-%d", start, end)}
	resp, err := httputil.Get(ctx, d.client, url, headers)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPartialContent {
		return 0, fmt.Errorf("unexpected status %d for range %d-%d", resp.StatusCode, start, end)
	}
	want := end - start + 1
	buf, err := io.ReadAll(io.LimitReader(resp.Body, want))
	if err != nil {
		return 0, fmt.Errorf("reading segment body: %w", err)
	}
	if int64(len(buf)) != want {
		return 0, fmt.Errorf("short segment: got %d of %d bytes", len(buf), want)
	}
	if _, err := w.WriteAt(buf, start); err != nil {
		return 0, fmt.Errorf("writing segment: %w", err)
	}
	return want, nil
}

func copyWithProgress(w io.Writer, r io.Reader, offset, total int64, progress Progress) error {
	_, err := io.Copy(w, newProgressReader(r, offset, total, progress))
	if err != nil {
		return fmt.Errorf("reading download body: %w", err)
	}
	return nil
}

type progressReader struct {
	r        io.Reader
	received int64
	total    int64
	fn       Progress
}

func newProgressReader(r io.Reader, offset, total int64, fn Progress) io.Reader {
	if fn == nil {
		return r
	}
	return &progressReader{r: r, received: offset, total: total, fn: fn}
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.received += int64(n)
		p.fn(p.received, p.total)
	}
	return n, err
}
