// Package httputil provides a hardened HTTP client and input sanitization
// utilities shared by the resolver, subtitle, and dubbing clients.
package httputil

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/121.0"

// maxBody bounds how much of any upstream response body is read.
const maxBody = 10 * 1024 * 1024

// NewClient creates a hardened HTTP client with secure defaults.
// Provider calls are network-bound and slow; the generous timeout matches
// what the scraper backend needs for a cold title lookup.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
			ForceAttemptHTTP2:   true,
			MaxIdleConns:        10,
			IdleConnTimeout:     30 * time.Second,
			MaxIdleConnsPerHost: 5,
		},
	}
}

// NewStreamingClient creates a hardened client without an overall request
// deadline, for long-lived NDJSON streams. The caller bounds the request
// through its context.
func NewStreamingClient() *http.Client {
	c := NewClient(30 * time.Second)
	c.Timeout = 0
	return c
}

// Get performs a GET request with browser-like headers plus any extras.
// Callers own the response body.
func Get(ctx context.Context, client *http.Client, url string, extra map[string]string) (*http.Response, error) {
	if err := ValidateURL(url); err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	for k, v := range extra {
		req.Header.Set(k, v)
	}

	return client.Do(req)
}

// GetJSON performs a GET request expecting a JSON body and returns the raw bytes.
func GetJSON(ctx context.Context, client *http.Client, url string, extra map[string]string) ([]byte, error) {
	headers := map[string]string{"Accept": "application/json"}
	for k, v := range extra {
		headers[k] = v
	}

	resp, err := Get(ctx, client, url, headers)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	return body, nil
}

// GetText performs a GET request and returns the body as a bounded string.
func GetText(ctx context.Context, client *http.Client, url string, extra map[string]string) (string, error) {
	resp, err := Get(ctx, client, url, extra)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	return string(body), nil
}
