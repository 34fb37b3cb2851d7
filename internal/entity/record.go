// Package entity defines the core entities used in the application.
package entity

import (
	"log/slog"
	"slices"
)

// Format describes one stream variant reported by the extractor.
type Format struct {
	ID     string  `json:"id,omitempty"`
	Height int     `json:"height,omitempty"` // vertical resolution, 0 for audio-only
	ABR    float64 `json:"abr,omitempty"`    // audio bitrate in kbps
	VCodec string  `json:"vcodec,omitempty"`
	ACodec string  `json:"acodec,omitempty"`
	Ext    string  `json:"ext,omitempty"`
}

// HasVideo reports whether the format carries a video stream.
func (f Format) HasVideo() bool {
	return f.VCodec != "" && f.VCodec != "none"
}

// HasAudio reports whether the format carries an audio stream.
func (f Format) HasAudio() bool {
	return f.ACodec != "" && f.ACodec != "none"
}

// MediaRecord describes one addressable piece of downloadable content.
// A record created from a bare URL or a flat playlist entry is unresolved;
// the metadata fetcher fills in the remaining fields.
type MediaRecord struct {
	SourceURL    string        `json:"sourceUrl"`
	Title        string        `json:"title,omitempty"`
	Identifier   string        `json:"identifier,omitempty"`
	Extractor    string        `json:"extractor,omitempty"`
	Duration     float64       `json:"duration,omitempty"` // seconds
	ThumbnailURL string        `json:"thumbnailUrl,omitempty"`
	Formats      []Format      `json:"formats,omitempty"`
	FormatsKnown bool          `json:"formatsKnown,omitempty"` // extractor explicitly reported formats (possibly none)
	IsPlaylist   bool          `json:"isPlaylist,omitempty"`
	Children     []MediaRecord `json:"children,omitempty"`
}

// Resolved reports whether the record carries enough metadata to be
// downloadable without another fetch: an identifier, duration or extractor
// plus a thumbnail, or an explicit formats acknowledgment from the extractor.
func (r MediaRecord) Resolved() bool {
	if r.FormatsKnown {
		return true
	}

	hasCore := r.Identifier != "" || r.Duration > 0 || r.Extractor != ""

	return hasCore && r.ThumbnailURL != ""
}

// Merge overlays src onto r: every non-zero field of src overwrites r's
// value, zero fields of src leave r untouched. Merging an empty record is
// a no-op. The merge is never applied in the reverse direction.
func (r *MediaRecord) Merge(src MediaRecord) {
	if src.SourceURL != "" {
		r.SourceURL = src.SourceURL
	}
	if src.Title != "" {
		r.Title = src.Title
	}
	if src.Identifier != "" {
		r.Identifier = src.Identifier
	}
	if src.Extractor != "" {
		r.Extractor = src.Extractor
	}
	if src.Duration > 0 {
		r.Duration = src.Duration
	}
	if src.ThumbnailURL != "" {
		r.ThumbnailURL = src.ThumbnailURL
	}
	if len(src.Formats) > 0 || src.FormatsKnown {
		r.Formats = slices.Clone(src.Formats)
		r.FormatsKnown = src.FormatsKnown || len(src.Formats) > 0
	}
	if src.IsPlaylist {
		r.IsPlaylist = true
	}
	if len(src.Children) > 0 {
		r.Children = cloneChildren(src.Children)
	}
}

// Clone returns a deep copy of the record.
func (r MediaRecord) Clone() MediaRecord {
	out := r
	out.Formats = slices.Clone(r.Formats)
	out.Children = cloneChildren(r.Children)

	return out
}

func cloneChildren(children []MediaRecord) []MediaRecord {
	if children == nil {
		return nil
	}

	out := make([]MediaRecord, len(children))
	for i, child := range children {
		out[i] = child.Clone()
	}

	return out
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (r MediaRecord) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("source_url", r.SourceURL),
		slog.String("title", r.Title),
		slog.String("identifier", r.Identifier),
		slog.Float64("duration", r.Duration),
		slog.Bool("is_playlist", r.IsPlaylist),
		slog.Bool("resolved", r.Resolved()),
		slog.Int("formats", len(r.Formats)),
		slog.Int("children", len(r.Children)),
	)
}
