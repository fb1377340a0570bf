// Package resolver turns a media item plus episode selector into playable
// stream links, trying a prioritized list of upstream providers in order and
// caching successful resolutions.
package resolver

import (
	"cinestream/internal/catalog"
	"cinestream/internal/media"
)

// Descriptor identifies an upstream stream provider.
type Descriptor struct {
	ID   string
	Name string
}

// providers is the fixed, ordered provider list. Preference ordering moves
// entries to the front at resolution time but never adds or removes any.
var providers = []Descriptor{
	{ID: "moviebox", Name: "MovieBox"},
	{ID: "veloratv", Name: "VeloraTV"},
	{ID: "akwam", Name: "Akwam"},
	{ID: "aflam", Name: "Aflam"},
	{ID: "arabic-toons", Name: "Arabic Toons"},
	{ID: "ristoanime", Name: "RistoAnime"},
	{ID: "td", Name: "TD"},
}

// Providers returns a copy of the fixed provider list.
func Providers() []Descriptor {
	out := make([]Descriptor, len(providers))
	copy(out, providers)
	return out
}

// lookup finds a provider by id or display name.
func lookup(idOrName string) (Descriptor, bool) {
	for _, p := range providers {
		if p.ID == idOrName || p.Name == idOrName {
			return p, true
		}
	}
	return Descriptor{}, false
}

// attemptOrder builds the ordered attempt list: providers named in the
// preference order move to the front preserving their relative order, the
// rest keep the default order.
func attemptOrder(preferences []string) []Descriptor {
	if len(preferences) == 0 {
		return Providers()
	}

	preferred := make([]Descriptor, 0, len(preferences))
	seen := make(map[string]bool, len(preferences))
	for _, id := range preferences {
		if p, ok := lookup(id); ok && !seen[p.ID] {
			preferred = append(preferred, p)
			seen[p.ID] = true
		}
	}

	rest := make([]Descriptor, 0, len(providers))
	for _, p := range providers {
		if !seen[p.ID] {
			rest = append(rest, p)
		}
	}
	return append(preferred, rest...)
}

// wireID maps a provider id to the value the scraper expects. One provider
// id is aliased to a different wire value.
func wireID(id string) string {
	if id == "td" {
		return "tmdb"
	}
	return id
}

// usesCatalogID reports whether the provider keys its lookup by catalog id
// rather than by title text.
func usesCatalogID(id string) bool {
	return id == "veloratv" || id == "td"
}

// skip reports whether a provider is structurally inapplicable to the
// request, with a reason for the debug log.
func skip(p Descriptor, t media.Type, titles catalog.TitlePair) (string, bool) {
	switch {
	case p.ID == "ristoanime" && t != media.Series:
		return "anime provider requires episodic content", true
	case p.ID == "arabic-toons" && titles.Arabic == "":
		return "localized title unavailable", true
	case !usesCatalogID(p.ID) && p.ID != "arabic-toons" && titles.English == "":
		return "title unavailable for title-based provider", true
	}
	return "", false
}

// dubSuffix returns the bracketed token appended to a title-based query when
// a dubbed audio language was requested. Only one provider understands these.
func dubSuffix(providerID, dubLang string) string {
	if providerID != "moviebox" {
		return ""
	}
	switch dubLang {
	case "ar":
		return " [Arabic]"
	case "fr":
		return " [Version française]"
	}
	return ""
}
