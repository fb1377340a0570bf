// Package subtitle fetches raw subtitle tracks, converts them to a playable
// format, and tracks the skip-segment (intro/outro) activation state.
package subtitle

import (
	"regexp"
	"strings"
)

// cueTimingRe matches an SRT cue-timing line. Input tolerates either comma or
// period as the millisecond separator.
var cueTimingRe = regexp.MustCompile(`(\d{2}:\d{2}:\d{2})[,.](\d{3})\s*-->\s*(\d{2}:\d{2}:\d{2})[,.](\d{3})`)

// ToVTT converts SRT content to WebVTT: a fixed header plus cue-timing lines
// normalized to the HH:MM:SS.mmm --> HH:MM:SS.mmm form.
func ToVTT(srt string) string {
	body := strings.ReplaceAll(srt, "\r", "")
	body = cueTimingRe.ReplaceAllString(body, "$1.$2 --> $3.$4")
	return "WEBVTT\n\n" + body
}
