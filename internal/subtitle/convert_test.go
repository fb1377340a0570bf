package subtitle

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToVTTNormalizesSeparators(t *testing.T) {
	comma := "1\n00:01:02,500 --> 00:01:04,000\nHello\n"
	period := "1\n00:01:02.500 --> 00:01:04.000\nHello\n"

	want := "WEBVTT\n\n1\n00:01:02.500 --> 00:01:04.000\nHello\n"
	assert.Equal(t, want, ToVTT(comma))
	assert.Equal(t, want, ToVTT(period), "comma and period input must produce identical output")
}

func TestToVTTStripsCarriageReturns(t *testing.T) {
	srt := "1\r\n00:00:01,000 --> 00:00:02,000\r\nLine\r\n"
	out := ToVTT(srt)
	assert.False(t, strings.Contains(out, "\r"))
	assert.True(t, strings.HasPrefix(out, "WEBVTT\n\n"))
}

func TestToVTTHandlesLooseArrowSpacing(t *testing.T) {
	srt := "1\n00:00:01,000-->00:00:02,000\nLine\n"
	assert.Contains(t, ToVTT(srt), "00:00:01.000 --> 00:00:02.000")
}
