package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"cinestream/internal/cache"
	"cinestream/internal/catalog"
	"cinestream/internal/httputil"
	"cinestream/internal/log"
	"cinestream/internal/media"
)

var (
	// ErrAllProvidersFailed is returned when every provider in the attempt
	// list errored or returned zero links.
	ErrAllProvidersFailed = errors.New("no provider produced a playable stream")

	// ErrUnknownProvider is returned when a caller requests a provider that
	// is not in the fixed list.
	ErrUnknownProvider = errors.New("unknown provider")
)

// TitleSource supplies localized item titles. Satisfied by catalog.Client.
type TitleSource interface {
	Titles(ctx context.Context, t media.Type, id int) (catalog.TitlePair, error)
}

// Request describes one stream resolution.
type Request struct {
	Item        media.Item
	Type        media.Type
	Sel         media.Selector
	Provider    string   // resolve through this provider only; empty means auto
	Preferences []string // provider ids moved to the front of the attempt list
	DubLang     string   // optional dubbed-audio language hint ("ar", "fr")
}

// Resolver resolves stream links through the scraper backend.
type Resolver struct {
	scraperURL   string
	bypassHeader string
	bypassValue  string
	client       *http.Client
	cache        *cache.Cache
	titles       TitleSource
	proxyURL     string
	hostRanks    []string
	logger       zerolog.Logger
}

// Options configures a Resolver.
type Options struct {
	ScraperURL   string
	BypassHeader string // header the scraper's hosting proxy requires
	BypassValue  string
	Timeout      time.Duration
	Cache        *cache.Cache
	Titles       TitleSource
	ProxyURL     string
	HostRanks    []string
}

// New creates a Resolver.
func New(opts Options) *Resolver {
	return &Resolver{
		scraperURL:   opts.ScraperURL,
		bypassHeader: opts.BypassHeader,
		bypassValue:  opts.BypassValue,
		client:       httputil.NewClient(opts.Timeout),
		cache:        opts.Cache,
		titles:       opts.Titles,
		proxyURL:     opts.ProxyURL,
		hostRanks:    opts.HostRanks,
		logger:       log.WithComponent("resolver"),
	}
}

// scraperResponse is the scraper's wire format. Any status other than
// "success", or an empty link list, counts as provider failure.
type scraperResponse struct {
	Status    string             `json:"status"`
	Links     []media.StreamLink `json:"links"`
	Subtitles []wireSubtitle     `json:"subtitles"`
	Message   string             `json:"message"`
}

// Resolve returns stream links for the request, serving from cache when a
// non-expired entry exists. Providers are attempted strictly sequentially;
// individual provider failures are logged and swallowed, and only total
// exhaustion surfaces as an error.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*media.Resolution, error) {
	key := CacheKey(req)
	if r.cache != nil {
		var cached media.Resolution
		if r.cache.Get(key, &cached) {
			r.logger.Debug().Str("key", key).Str("provider", cached.Provider).Msg("resolution served from cache")
			return &cached, nil
		}
	}

	attempts, err := r.attempts(req)
	if err != nil {
		return nil, err
	}

	titles := r.prefetchTitles(ctx, req)

	for _, p := range attempts {
		if reason, skipped := skip(p, req.Type, titles); skipped {
			r.logger.Debug().Str("provider", p.ID).Str("reason", reason).Msg("skipping provider")
			continue
		}

		result, err := r.tryProvider(ctx, p, req, titles)
		if err != nil {
			r.logger.Warn().Str("provider", p.Name).Err(err).Msg("provider failed")
			continue
		}

		if r.cache != nil {
			if err := r.cache.Set(key, result); err != nil {
				r.logger.Warn().Str("key", key).Err(err).Msg("caching resolution failed")
			}
		}
		return result, nil
	}

	return nil, fmt.Errorf("%w for %q", ErrAllProvidersFailed, req.Item.DisplayTitle())
}

// attempts computes the ordered provider attempt list for the request.
func (r *Resolver) attempts(req Request) ([]Descriptor, error) {
	if req.Provider != "" {
		p, ok := lookup(req.Provider)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, req.Provider)
		}
		return []Descriptor{p}, nil
	}
	return attemptOrder(req.Preferences), nil
}

// prefetchTitles fetches the item's title in both locales once, before the
// provider loop. Failure falls back to whatever title the item already has.
func (r *Resolver) prefetchTitles(ctx context.Context, req Request) catalog.TitlePair {
	if r.titles == nil {
		return catalog.FallbackTitles(req.Item)
	}
	pair, err := r.titles.Titles(ctx, req.Type, req.Item.ID)
	if err != nil {
		r.logger.Warn().Err(err).Msg("title prefetch failed, using item title")
		return catalog.FallbackTitles(req.Item)
	}
	return pair
}

// tryProvider issues one provider query and normalizes a successful response.
func (r *Resolver) tryProvider(ctx context.Context, p Descriptor, req Request, titles catalog.TitlePair) (*media.Resolution, error) {
	query, err := r.buildQuery(p, req, titles)
	if err != nil {
		return nil, err
	}

	headers := map[string]string{}
	if r.bypassHeader != "" {
		headers[r.bypassHeader] = r.bypassValue
	}

	body, err := httputil.GetJSON(ctx, r.client, r.scraperURL+"?"+query.Encode(), headers)
	if err != nil {
		return nil, err
	}

	var resp scraperResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing scraper response: %w", err)
	}

	if resp.Status != "success" || len(resp.Links) == 0 {
		if resp.Message != "" {
			return nil, fmt.Errorf("provider reported failure: %s", resp.Message)
		}
		return nil, fmt.Errorf("provider %s returned no links", p.Name)
	}

	links := resp.Links
	if normalize, ok := normalizers[p.ID]; ok {
		links = normalize(r, links)
	}

	return &media.Resolution{
		Links:     links,
		Subtitles: normalizeSubtitles(resp.Subtitles),
		Provider:  p.Name,
	}, nil
}

// buildQuery assembles the provider-specific scraper query.
func (r *Resolver) buildQuery(p Descriptor, req Request, titles catalog.TitlePair) (url.Values, error) {
	q := url.Values{}
	q.Set("provider", wireID(p.ID))
	q.Set("type", req.Type.String())

	if usesCatalogID(p.ID) {
		q.Set("tmdb_id", strconv.Itoa(req.Item.ID))
	} else {
		title := titles.English
		if p.ID == "arabic-toons" {
			title = titles.Arabic
		}
		if title == "" {
			return nil, fmt.Errorf("no usable title for provider %s", p.Name)
		}
		q.Set("title", title+dubSuffix(p.ID, req.DubLang))
	}

	if req.Type == media.Series {
		if req.Sel.Season > 0 {
			q.Set("season", strconv.Itoa(req.Sel.Season))
		}
		if req.Sel.Episode > 0 {
			q.Set("episode", strconv.Itoa(req.Sel.Episode))
		}
	}
	return q, nil
}
