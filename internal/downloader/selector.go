package downloader

import (
	"strconv"
	"strings"

	"konbata/internal/consts"
	"konbata/internal/entity"
)

// mp4AudioExt is the audio container paired with mp4 video streams so the
// merged file stays mp4-native without re-encoding.
const mp4AudioExt = "m4a"

// StreamSpec is one stream request with its constraint filters, e.g.
// bestvideo[height<=720][ext=mp4].
type StreamSpec struct {
	Selector string   // bestvideo, bestaudio, best
	Filters  []string // height<=720, ext=mp4, abr>=192
}

// String renders the stream request in yt-dlp format-selector syntax.
func (s StreamSpec) String() string {
	var b strings.Builder
	b.WriteString(s.Selector)

	for _, f := range s.Filters {
		b.WriteByte('[')
		b.WriteString(f)
		b.WriteByte(']')
	}

	return b.String()
}

// Alternative is one candidate of a fallback chain: one or more streams
// merged together (joined with "+").
type Alternative []StreamSpec

// String renders the alternative in yt-dlp format-selector syntax.
func (a Alternative) String() string {
	parts := make([]string, 0, len(a))
	for _, s := range a {
		parts = append(parts, s.String())
	}

	return strings.Join(parts, "+")
}

// Chain is an ordered list of alternatives evaluated top-down: yt-dlp
// takes the first alternative the extractor can satisfy. Building the
// fallback logic as data instead of string concatenation keeps each rung
// individually testable.
type Chain []Alternative

// String renders the chain in yt-dlp format-selector syntax
// (alternatives joined with "/").
func (c Chain) String() string {
	parts := make([]string, 0, len(c))
	for _, a := range c {
		parts = append(parts, a.String())
	}

	return strings.Join(parts, "/")
}

// BuildChain constructs the format fallback chain for the requested output
// kind, container and quality selector.
//
// Audio: best audio stream, constrained to abr>=N when a minimum bitrate
// quality like "192k" was requested, falling back to unconstrained best
// audio and finally plain best.
//
// Video into mp4: an mp4 video stream merged with an m4a audio stream,
// height-capped when a quality like "720p" was requested, falling back
// through constrained-mp4, any-mp4 and unconstrained best.
//
// Video into any other container: the same height-capped chain without the
// mp4 codec constraint.
//
// "best" (or an unparseable quality) always means no constraint.
func BuildChain(kind entity.OutputKind, container, quality string) Chain {
	q := strings.ToLower(strings.TrimSpace(quality))
	if q == "" {
		q = consts.DefaultQuality
	}

	if kind == entity.KindAudio {
		return buildAudioChain(q)
	}

	return buildVideoChain(container, q)
}

func buildAudioChain(quality string) Chain {
	if abr, ok := parseABR(quality); ok {
		return Chain{
			{StreamSpec{Selector: "bestaudio", Filters: []string{"abr>=" + strconv.Itoa(abr)}}},
			{StreamSpec{Selector: "bestaudio"}},
			{StreamSpec{Selector: "best"}},
		}
	}

	return Chain{
		{StreamSpec{Selector: "bestaudio"}},
		{StreamSpec{Selector: "best"}},
	}
}

func buildVideoChain(container, quality string) Chain {
	height, constrained := parseHeight(quality)
	heightFilter := "height<=" + strconv.Itoa(height)

	if strings.EqualFold(container, "mp4") {
		if constrained {
			return Chain{
				{
					StreamSpec{Selector: "bestvideo", Filters: []string{heightFilter, "ext=mp4"}},
					StreamSpec{Selector: "bestaudio", Filters: []string{"ext=" + mp4AudioExt}},
				},
				{StreamSpec{Selector: "best", Filters: []string{heightFilter, "ext=mp4"}}},
				{StreamSpec{Selector: "best", Filters: []string{"ext=mp4"}}},
				{StreamSpec{Selector: "best"}},
			}
		}

		return Chain{
			{
				StreamSpec{Selector: "bestvideo", Filters: []string{"ext=mp4"}},
				StreamSpec{Selector: "bestaudio", Filters: []string{"ext=" + mp4AudioExt}},
			},
			{StreamSpec{Selector: "best", Filters: []string{"ext=mp4"}}},
			{StreamSpec{Selector: "best"}},
		}
	}

	if constrained {
		return Chain{
			{
				StreamSpec{Selector: "bestvideo", Filters: []string{heightFilter}},
				StreamSpec{Selector: "bestaudio"},
			},
			{StreamSpec{Selector: "best", Filters: []string{heightFilter}}},
			{StreamSpec{Selector: "best"}},
		}
	}

	return Chain{
		{
			StreamSpec{Selector: "bestvideo"},
			StreamSpec{Selector: "bestaudio"},
		},
		{StreamSpec{Selector: "best"}},
	}
}

// parseHeight extracts the maximum height from a quality selector like
// "720p". Returns false for "best" or anything unparseable.
func parseHeight(quality string) (int, bool) {
	if quality == consts.DefaultQuality {
		return 0, false
	}

	h, err := strconv.Atoi(strings.TrimSuffix(quality, "p"))
	if err != nil || h <= 0 {
		return 0, false
	}

	return h, true
}

// parseABR extracts the minimum audio bitrate from a quality selector like
// "192k". Returns false for "best" or anything unparseable.
func parseABR(quality string) (int, bool) {
	if quality == consts.DefaultQuality {
		return 0, false
	}

	abr, err := strconv.Atoi(strings.TrimSuffix(quality, "k"))
	if err != nil || abr <= 0 {
		return 0, false
	}

	return abr, true
}
