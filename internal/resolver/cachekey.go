package resolver

import (
	"fmt"
	"strings"
)

// cacheVersion bumps when the cached payload shape changes.
const cacheVersion = 4

// CacheKey derives the cache key for a resolution request:
// stream_cache_v{N}_{type}_{id}[_s{season}][_e{episode}][_p{provider}|_p_auto][_d{dubLang}].
func CacheKey(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "stream_cache_v%d_%s_%d", cacheVersion, req.Type, req.Item.ID)
	if req.Sel.Season > 0 {
		fmt.Fprintf(&b, "_s%d", req.Sel.Season)
	}
	if req.Sel.Episode > 0 {
		fmt.Fprintf(&b, "_e%d", req.Sel.Episode)
	}
	if req.Provider != "" {
		fmt.Fprintf(&b, "_p%s", req.Provider)
	} else {
		b.WriteString("_p_auto")
	}
	if req.DubLang != "" {
		fmt.Fprintf(&b, "_d%s", req.DubLang)
	}
	return b.String()
}
