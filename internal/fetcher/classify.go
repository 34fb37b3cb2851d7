// Package fetcher resolves URLs and search expressions into media records
// by invoking the yt-dlp extractor.
package fetcher

import (
	"net/url"
	"strings"

	"konbata/pkg/urls"
)

// Class is the result of classifying a submitted locator. Classification is
// pure string parsing: no network access, same input always yields the same
// class.
type Class string

const (
	// ClassSingle is a direct video reference.
	ClassSingle Class = "single"
	// ClassPlaylist is a real playlist reference.
	ClassPlaylist Class = "playlist"
	// ClassRadio is an auto-generated radio/mix pseudo-playlist. Unsupported.
	ClassRadio Class = "radio"
	// ClassSearch is a search expression (ytsearch pseudo-URL or free text).
	ClassSearch Class = "search"
)

// searchPrefix marks yt-dlp search pseudo-URLs, e.g. "ytsearch20:query".
const searchPrefix = "ytsearch"

// radioListPrefix marks auto-mix playlist identifiers.
const radioListPrefix = "RD"

// incidental query parameters stripped from single-video URLs.
var incidentalParams = []string{"list", "index", "start_radio"}

// Classify determines what kind of locator the input is and returns the
// cleaned locator to hand to the extractor. Single-video URLs have
// incidental playlist parameters stripped; search expressions are returned
// verbatim (the fetcher adds the ytsearch prefix and limit).
func Classify(raw string) (Class, string) {
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, searchPrefix) {
		return ClassSearch, raw
	}

	if !urls.IsURLValid(raw) {
		return ClassSearch, raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ClassSearch, raw
	}

	query := u.Query()
	list := query.Get("list")

	if strings.HasPrefix(list, radioListPrefix) || query.Has("start_radio") {
		return ClassRadio, raw
	}

	if list != "" || strings.Contains(u.Path, "/playlist") {
		return ClassPlaylist, raw
	}

	changed := false

	for _, param := range incidentalParams {
		if query.Has(param) {
			query.Del(param)

			changed = true
		}
	}

	if changed {
		u.RawQuery = query.Encode()
		raw = u.String()
	}

	return ClassSingle, raw
}
