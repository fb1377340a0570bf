// Package catalog is a thin client for the read-only metadata service.
// The resolver needs item titles in two locales because different stream
// providers key their search by differently-localized title text.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"cinestream/internal/httputil"
	"cinestream/internal/media"
)

// Locale codes used by the title prefetch.
const (
	LocaleEnglish = "en-US"
	LocaleArabic  = "ar-SA"
)

// Client queries the catalog service.
type Client struct {
	base   string
	apiKey string
	client *http.Client
}

// New creates a catalog client.
func New(base, apiKey string) *Client {
	return &Client{
		base:   base,
		apiKey: apiKey,
		client: httputil.NewClient(15 * time.Second),
	}
}

// details is the subset of the catalog detail payload we consume.
type details struct {
	Title         string `json:"title"`
	Name          string `json:"name"`
	OriginalTitle string `json:"original_title"`
}

func (d details) displayTitle() string {
	if d.Title != "" {
		return d.Title
	}
	return d.Name
}

// wireType maps the domain type to the catalog's path segment.
func wireType(t media.Type) string {
	if t == media.Series {
		return "tv"
	}
	return "movie"
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	endpoint := fmt.Sprintf("%s%s?%s", c.base, path, params.Encode())
	return httputil.GetJSON(ctx, c.client, endpoint, nil)
}

// title fetches the item's display title in one locale.
func (c *Client) title(ctx context.Context, t media.Type, id int, locale string) (string, error) {
	params := url.Values{}
	params.Set("language", locale)

	body, err := c.get(ctx, fmt.Sprintf("/%s/%d", wireType(t), id), params)
	if err != nil {
		return "", err
	}

	var d details
	if err := json.Unmarshal(body, &d); err != nil {
		return "", fmt.Errorf("parsing catalog details: %w", err)
	}
	return d.displayTitle(), nil
}

// TitlePair holds the item's title in the two locales providers expect.
type TitlePair struct {
	English string
	Arabic  string
}

// Titles fetches the item's display title in both locales concurrently.
// Failure is tolerated: the caller falls back to titles already on the item.
func (c *Client) Titles(ctx context.Context, t media.Type, id int) (TitlePair, error) {
	var pair TitlePair

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		title, err := c.title(ctx, t, id, LocaleEnglish)
		if err != nil {
			return fmt.Errorf("english title: %w", err)
		}
		pair.English = title
		return nil
	})
	g.Go(func() error {
		title, err := c.title(ctx, t, id, LocaleArabic)
		if err != nil {
			return fmt.Errorf("arabic title: %w", err)
		}
		pair.Arabic = title
		return nil
	})

	if err := g.Wait(); err != nil {
		return TitlePair{}, err
	}
	return pair, nil
}

// FallbackTitles derives a best-effort pair from the item itself, used when
// the prefetch fails. The localized title cannot be recovered this way.
func FallbackTitles(item media.Item) TitlePair {
	title := item.Title
	if title == "" {
		title = item.Name
	}
	if title == "" {
		title = item.OriginalTitle
	}
	return TitlePair{English: title}
}

// Recommendations fetches related items. Best-effort; callers treat an error
// as an empty shelf.
func (c *Client) Recommendations(ctx context.Context, t media.Type, id int) ([]media.Item, error) {
	body, err := c.get(ctx, fmt.Sprintf("/%s/%d/recommendations", wireType(t), id), nil)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Results []struct {
			ID           int    `json:"id"`
			Title        string `json:"title"`
			Name         string `json:"name"`
			BackdropPath string `json:"backdrop_path"`
			PosterPath   string `json:"poster_path"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parsing recommendations: %w", err)
	}

	items := make([]media.Item, 0, len(payload.Results))
	for _, r := range payload.Results {
		if r.BackdropPath == "" {
			continue
		}
		items = append(items, media.Item{
			ID:           r.ID,
			Title:        r.Title,
			Name:         r.Name,
			BackdropPath: r.BackdropPath,
			PosterPath:   r.PosterPath,
		})
	}
	return items, nil
}
