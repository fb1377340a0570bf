// Package media defines shared types for the cinestream application.
package media

// Type represents whether content is a movie or an episodic series.
type Type int

const (
	Movie Type = iota
	Series
)

func (t Type) String() string {
	switch t {
	case Movie:
		return "movie"
	case Series:
		return "series"
	default:
		return "unknown"
	}
}

// ParseType maps a wire/config string to a Type. Unknown values default to Movie.
func ParseType(s string) Type {
	switch s {
	case "series", "tv":
		return Series
	default:
		return Movie
	}
}

// Item is a catalog media item. Immutable once fetched; the resolver and
// session only ever read it.
type Item struct {
	ID            int    // Catalog (TMDB-style) identifier
	Title         string // Primary display title
	Name          string // Alternate display name (series use Name)
	OriginalTitle string // Original-language title
	PosterPath    string
	BackdropPath  string
}

// DisplayTitle returns the best available title for the item.
func (it Item) DisplayTitle() string {
	if it.Title != "" {
		return it.Title
	}
	if it.Name != "" {
		return it.Name
	}
	return it.OriginalTitle
}

// Selector narrows a series down to one episode. Zero values mean "not set"
// and are only meaningful for Series items.
type Selector struct {
	Season  int
	Episode int
}

// StreamLink is a resolved playable URL with its quality label. Link URLs are
// opaque and expire; the cache TTL bounds how long one may be reused.
type StreamLink struct {
	Quality string `json:"quality"`
	URL     string `json:"url"`
}

// SubtitleRef is a raw subtitle track as returned by a provider: free-text
// display label, derived short language code, and the source URL.
type SubtitleRef struct {
	Display  string `json:"display"`
	Language string `json:"language"`
	URL      string `json:"url"`
}

// Resolution is the result of a successful stream resolution: the links the
// winning provider returned, its subtitle tracks, and the provider's name.
type Resolution struct {
	Links     []StreamLink  `json:"links"`
	Subtitles []SubtitleRef `json:"subtitles,omitempty"`
	Provider  string        `json:"provider"`
}

// Qualities returns the quality labels of the resolution's links, in order.
func (r *Resolution) Qualities() []string {
	out := make([]string, 0, len(r.Links))
	for _, l := range r.Links {
		out = append(out, l.Quality)
	}
	return out
}

// LinkFor returns the link carrying the given quality label, or nil.
func (r *Resolution) LinkFor(quality string) *StreamLink {
	for i := range r.Links {
		if r.Links[i].Quality == quality {
			return &r.Links[i]
		}
	}
	return nil
}

// SkipSegment is a time range (seconds) tagged as intro or outro content.
// Invariant: Start < End.
type SkipSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// SkipSegments holds the per-title analysis result. Either field may be nil;
// not every title has detectable segments.
type SkipSegments struct {
	Intro *SkipSegment `json:"intro"`
	Outro *SkipSegment `json:"outro"`
}

// HistoryEntry records a watch position for resume.
type HistoryEntry struct {
	ID       int
	Title    string
	Type     Type
	Season   int // 0 for movies
	Episode  int // 0 for movies
	Position float64
	Duration float64
}
