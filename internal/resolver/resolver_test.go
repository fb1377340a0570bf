package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cinestream/internal/cache"
	"cinestream/internal/catalog"
	"cinestream/internal/media"
)

// staticTitles is a TitleSource returning fixed titles.
type staticTitles struct {
	pair catalog.TitlePair
	err  error
}

func (s staticTitles) Titles(ctx context.Context, t media.Type, id int) (catalog.TitlePair, error) {
	return s.pair, s.err
}

func newTestResolver(t *testing.T, handler http.HandlerFunc, titles TitleSource) (*Resolver, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	r := New(Options{
		ScraperURL:   srv.URL,
		BypassHeader: "ngrok-skip-browser-warning",
		BypassValue:  "true",
		Timeout:      5 * time.Second,
		Cache:        cache.New(cache.NewMemoryStore(), 2*time.Hour),
		Titles:       titles,
	})
	return r, srv
}

func successBody(quality, url string) string {
	return fmt.Sprintf(`{"status":"success","links":[{"quality":%q,"url":%q}]}`, quality, url)
}

func TestResolveFallsBackThroughProvidersInOrder(t *testing.T) {
	var tried []string
	handler := func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Query().Get("provider")
		tried = append(tried, p)
		// Everything fails until the aliased last provider.
		if p == "tmdb" {
			fmt.Fprint(w, successBody("1080p", "https://cdn/last.m3u8"))
			return
		}
		fmt.Fprint(w, `{"status":"error","message":"not found"}`)
	}

	r, _ := newTestResolver(t, handler, staticTitles{pair: catalog.TitlePair{English: "Dune", Arabic: "كثيب"}})

	res, err := r.Resolve(context.Background(), Request{
		Item: media.Item{ID: 438631, Title: "Dune"},
		Type: media.Movie,
	})
	require.NoError(t, err)
	assert.Equal(t, "TD", res.Provider)
	// ristoanime is skipped for non-episodic content; every other provider is
	// tried exactly once, in the fixed order, with td aliased to tmdb.
	assert.Equal(t, []string{"moviebox", "veloratv", "akwam", "aflam", "arabic-toons", "tmdb"}, tried)
}

func TestResolveAllProvidersExhausted(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"error"}`)
	}
	r, _ := newTestResolver(t, handler, staticTitles{pair: catalog.TitlePair{English: "Dune"}})

	_, err := r.Resolve(context.Background(), Request{Item: media.Item{ID: 1, Title: "Dune"}, Type: media.Movie})
	assert.ErrorIs(t, err, ErrAllProvidersFailed)
}

func TestResolveUnknownSpecificProvider(t *testing.T) {
	r, _ := newTestResolver(t, func(w http.ResponseWriter, r *http.Request) {}, staticTitles{})

	_, err := r.Resolve(context.Background(), Request{
		Item:     media.Item{ID: 1},
		Type:     media.Movie,
		Provider: "nosuch",
	})
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestResolveCacheIdempotence(t *testing.T) {
	var calls int
	handler := func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, successBody("720p", "https://cdn/a.m3u8"))
	}
	r, _ := newTestResolver(t, handler, staticTitles{pair: catalog.TitlePair{English: "Dune"}})

	req := Request{Item: media.Item{ID: 42, Title: "Dune"}, Type: media.Movie}

	first, err := r.Resolve(context.Background(), req)
	require.NoError(t, err)
	callsAfterFirst := calls

	second, err := r.Resolve(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, callsAfterFirst, calls, "second resolve must make zero network requests")
}

func TestResolveStaleRequestsUseDistinctKeys(t *testing.T) {
	a := CacheKey(Request{Item: media.Item{ID: 7}, Type: media.Series, Sel: media.Selector{Season: 1, Episode: 1}})
	b := CacheKey(Request{Item: media.Item{ID: 7}, Type: media.Series, Sel: media.Selector{Season: 1, Episode: 2}})
	assert.NotEqual(t, a, b)
}

func TestResolveSeriesQueryCarriesSelector(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "series", q.Get("type"))
		assert.Equal(t, "2", q.Get("season"))
		assert.Equal(t, "5", q.Get("episode"))
		assert.Equal(t, "true", r.Header.Get("ngrok-skip-browser-warning"))
		fmt.Fprint(w, successBody("1080p", "https://cdn/e.m3u8"))
	}
	r, _ := newTestResolver(t, handler, staticTitles{pair: catalog.TitlePair{English: "Dark"}})

	_, err := r.Resolve(context.Background(), Request{
		Item:     media.Item{ID: 70523, Name: "Dark"},
		Type:     media.Series,
		Sel:      media.Selector{Season: 2, Episode: 5},
		Provider: "akwam",
	})
	require.NoError(t, err)
}

func TestResolveTitlePrefetchFailureFallsBack(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Fallback Title", r.URL.Query().Get("title"))
		fmt.Fprint(w, successBody("1080p", "https://cdn/f.m3u8"))
	}
	r, _ := newTestResolver(t, handler, staticTitles{err: fmt.Errorf("catalog down")})

	_, err := r.Resolve(context.Background(), Request{
		Item:     media.Item{ID: 9, Title: "Fallback Title"},
		Type:     media.Movie,
		Provider: "akwam",
	})
	require.NoError(t, err)
}

func TestResolvePreferenceReordering(t *testing.T) {
	order := attemptOrder([]string{"td", "akwam"})
	ids := make([]string, len(order))
	for i, p := range order {
		ids[i] = p.ID
	}
	assert.Equal(t, []string{"td", "akwam", "moviebox", "veloratv", "aflam", "arabic-toons", "ristoanime"}, ids)
}

func TestResolveDubLanguageSuffix(t *testing.T) {
	var title string
	handler := func(w http.ResponseWriter, r *http.Request) {
		title = r.URL.Query().Get("title")
		fmt.Fprint(w, successBody("1080p", "https://cdn/d.mp4"))
	}
	r, _ := newTestResolver(t, handler, staticTitles{pair: catalog.TitlePair{English: "Cars"}})

	_, err := r.Resolve(context.Background(), Request{
		Item:     media.Item{ID: 920, Title: "Cars"},
		Type:     media.Movie,
		Provider: "moviebox",
		DubLang:  "ar",
	})
	require.NoError(t, err)
	assert.Equal(t, "Cars [Arabic]", title)
}

func TestCacheKeyFormat(t *testing.T) {
	key := CacheKey(Request{
		Item:     media.Item{ID: 1399},
		Type:     media.Series,
		Sel:      media.Selector{Season: 3, Episode: 9},
		Provider: "akwam",
		DubLang:  "fr",
	})
	assert.Equal(t, "stream_cache_v4_series_1399_s3_e9_pakwam_dfr", key)

	auto := CacheKey(Request{Item: media.Item{ID: 603}, Type: media.Movie})
	assert.Equal(t, "stream_cache_v4_movie_603_p_auto", auto)
}

func TestScraperResponseDecodes(t *testing.T) {
	raw := `{"status":"success","links":[{"quality":"1080p","url":"u"}],"subtitles":[{"lang":"Arabic","url":"s"}],"message":""}`
	var resp scraperResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &resp))
	assert.Len(t, resp.Links, 1)
	assert.Len(t, resp.Subtitles, 1)
}
