package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cinestream/internal/media"
)

func TestTitlesFetchesBothLocales(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/movie/603", r.URL.Path)
		switch r.URL.Query().Get("language") {
		case LocaleEnglish:
			fmt.Fprint(w, `{"title":"The Matrix"}`)
		case LocaleArabic:
			fmt.Fprint(w, `{"title":"المصفوفة"}`)
		default:
			http.Error(w, "unexpected locale", http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key")
	pair, err := c.Titles(context.Background(), media.Movie, 603)
	require.NoError(t, err)
	assert.Equal(t, "The Matrix", pair.English)
	assert.Equal(t, "المصفوفة", pair.Arabic)
}

func TestTitlesErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key")
	_, err := c.Titles(context.Background(), media.Series, 1399)
	assert.Error(t, err)
}

func TestFallbackTitles(t *testing.T) {
	pair := FallbackTitles(media.Item{Name: "Dark"})
	assert.Equal(t, "Dark", pair.English)
	assert.Empty(t, pair.Arabic)

	pair = FallbackTitles(media.Item{OriginalTitle: "Le Samouraï"})
	assert.Equal(t, "Le Samouraï", pair.English)
}

func TestRecommendationsFiltersMissingArtwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/tv/1399/recommendations", r.URL.Path)
		fmt.Fprint(w, `{"results":[
			{"id":1,"name":"With Art","backdrop_path":"/a.jpg"},
			{"id":2,"name":"No Art","backdrop_path":""}
		]}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key")
	items, err := c.Recommendations(context.Background(), media.Series, 1399)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "With Art", items[0].Name)
}
