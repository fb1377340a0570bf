package resolver

import (
	"net/url"
	"sort"
	"strings"

	"cinestream/internal/media"
)

// wireSubtitle is a raw subtitle entry as the scraper returns it.
type wireSubtitle struct {
	Lang string `json:"lang"`
	URL  string `json:"url"`
}

// langMap maps free-text language names (lowercased, substring match) to
// short codes. Unmapped languages fall back to "unknown".
var langMap = map[string]string{
	"اَلْعَرَبِيَّةُ": "ar",
	"arabic":          "ar",
	"english":         "en",
	"français":        "fr",
	"french":          "fr",
	"中文":              "zh",
	"chinese":         "zh",
	"português":       "pt",
	"portuguese":      "pt",
	"indonesian":      "id",
	"filipino":        "tl",
	"اُردُو":          "ur",
	"urdu":            "ur",
	"বাংলা":           "bn",
	"bengali":         "bn",
}

// languageCode maps a free-text subtitle language name to a short code.
func languageCode(display string) string {
	normalized := strings.ToLower(display)
	for name, code := range langMap {
		if strings.Contains(normalized, name) {
			return code
		}
	}
	return "unknown"
}

// normalizeSubtitles deduplicates subtitle entries by display label (first
// occurrence wins, preserving order) and derives short language codes.
func normalizeSubtitles(subs []wireSubtitle) []media.SubtitleRef {
	if len(subs) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(subs))
	out := make([]media.SubtitleRef, 0, len(subs))
	for _, s := range subs {
		if seen[s.Lang] {
			continue
		}
		seen[s.Lang] = true
		out = append(out, media.SubtitleRef{
			Display:  s.Lang,
			Language: languageCode(s.Lang),
			URL:      s.URL,
		})
	}
	return out
}

// normalizeFunc applies provider-specific post-processing to a structurally
// successful link list. Selected via the normalizers table, one per provider
// id that needs it; providers without an entry keep links untouched.
type normalizeFunc func(r *Resolver, links []media.StreamLink) []media.StreamLink

var normalizers = map[string]normalizeFunc{
	"moviebox": normalizeMoviebox,
}

// normalizeMoviebox prefers MP4 links over HLS when both are present, routes
// every link through the CORS proxy, and ranks links by hosting domain
// reliability. Rank rules and proxy URL are configuration, not logic.
func normalizeMoviebox(r *Resolver, links []media.StreamLink) []media.StreamLink {
	mp4s := make([]media.StreamLink, 0, len(links))
	for _, l := range links {
		if strings.Contains(strings.ToLower(l.URL), ".mp4") ||
			strings.Contains(strings.ToLower(l.Quality), "mp4") {
			mp4s = append(mp4s, l)
		}
	}
	if len(mp4s) > 0 {
		links = mp4s
	}

	out := make([]media.StreamLink, len(links))
	copy(out, links)

	if r.proxyURL != "" {
		for i := range out {
			out[i].URL = r.proxyURL + "/proxy?url=" + url.QueryEscape(out[i].URL)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return r.hostRank(out[i].URL) < r.hostRank(out[j].URL)
	})
	return out
}

// hostRank scores a link URL by its hosting domain: the earlier a configured
// substring matches, the more reliable the host. Unmatched hosts rank after
// all configured ones; unparseable URLs rank last.
func (r *Resolver) hostRank(rawURL string) int {
	target := rawURL
	if r.proxyURL != "" && strings.HasPrefix(rawURL, r.proxyURL) {
		if u, err := url.Parse(rawURL); err == nil {
			if inner := u.Query().Get("url"); inner != "" {
				target = inner
			}
		}
	}

	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return len(r.hostRanks) + 1
	}
	for i, sub := range r.hostRanks {
		if strings.Contains(u.Hostname(), sub) {
			return i
		}
	}
	return len(r.hostRanks)
}
