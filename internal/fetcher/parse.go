package fetcher

import (
	"encoding/json"
	"fmt"

	"konbata/internal/entity"
	"konbata/internal/errs"
)

// youtubeWatchURL rebuilds a watch URL for flat entries that only carry an id.
const youtubeWatchURL = "https://www.youtube.com/watch?v="

// infoJSON mirrors the subset of yt-dlp -J output the core consumes. The
// schema is treated as open: unknown fields are ignored.
type infoJSON struct {
	Type         string       `json:"_type"`
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	AltTitle     string       `json:"alt_title"`
	Duration     float64      `json:"duration"`
	WebpageURL   string       `json:"webpage_url"`
	URL          string       `json:"url"`
	Extractor    string       `json:"extractor"`
	ExtractorKey string       `json:"extractor_key"`
	Thumbnail    string       `json:"thumbnail"`
	Thumbnails   []thumbJSON  `json:"thumbnails"`
	Formats      []formatJSON `json:"formats"`
	Entries      []infoJSON   `json:"entries"`
}

type thumbJSON struct {
	URL string `json:"url"`
}

type formatJSON struct {
	FormatID string  `json:"format_id"`
	Height   int     `json:"height"`
	ABR      float64 `json:"abr"`
	VCodec   string  `json:"vcodec"`
	ACodec   string  `json:"acodec"`
	Ext      string  `json:"ext"`
}

// ParseInfo converts the extractor's single-JSON output into a MediaRecord.
// sourceURL is the locator the fetch was issued for; it backs records whose
// metadata lacks a webpage URL. A record is never returned half-parsed: any
// decode error surfaces as a discrete failure.
func ParseInfo(data []byte, sourceURL string) (*entity.MediaRecord, error) {
	if len(data) == 0 {
		return nil, errs.ErrEmptyMetadata
	}

	var info infoJSON
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("unmarshal extractor json: %w", err)
	}

	if info.ID == "" && info.Title == "" && len(info.Entries) == 0 {
		return nil, errs.ErrEmptyMetadata
	}

	record := info.toRecord(sourceURL)

	return &record, nil
}

func (in infoJSON) toRecord(fallbackURL string) entity.MediaRecord {
	rec := entity.MediaRecord{
		SourceURL:    in.sourceURL(fallbackURL),
		Title:        in.title(),
		Identifier:   in.ID,
		Extractor:    in.Extractor,
		Duration:     in.Duration,
		ThumbnailURL: in.thumbnail(),
	}

	if in.Formats != nil {
		rec.Formats = make([]entity.Format, 0, len(in.Formats))
		for _, f := range in.Formats {
			rec.Formats = append(rec.Formats, entity.Format{
				ID:     f.FormatID,
				Height: f.Height,
				ABR:    f.ABR,
				VCodec: f.VCodec,
				ACodec: f.ACodec,
				Ext:    f.Ext,
			})
		}

		rec.FormatsKnown = true
	}

	if in.Type == "playlist" || in.Entries != nil {
		rec.IsPlaylist = true
		rec.Children = make([]entity.MediaRecord, 0, len(in.Entries))

		for _, entry := range in.Entries {
			child := entry.toRecord("")
			if child.SourceURL == "" {
				continue
			}

			rec.Children = append(rec.Children, child)
		}
	}

	return rec
}

func (in infoJSON) sourceURL(fallback string) string {
	switch {
	case in.WebpageURL != "":
		return in.WebpageURL
	case in.URL != "":
		return in.URL
	case in.ID != "" && fallback == "":
		// flat playlist/search entries often carry only the video id
		return youtubeWatchURL + in.ID
	default:
		return fallback
	}
}

func (in infoJSON) title() string {
	if in.Title != "" {
		return in.Title
	}

	return in.AltTitle
}

func (in infoJSON) thumbnail() string {
	if in.Thumbnail != "" {
		return in.Thumbnail
	}

	if len(in.Thumbnails) > 0 {
		// the last entry is the highest resolution variant
		return in.Thumbnails[len(in.Thumbnails)-1].URL
	}

	return ""
}
