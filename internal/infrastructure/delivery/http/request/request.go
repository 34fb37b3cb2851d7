package request

import (
	"strings"

	"konbata/internal/entity"
	"konbata/internal/errs"
)

// Resolve asks the server to fetch metadata for one locator and add the
// result to the selection. Input is a URL, a playlist URL or free text
// treated as a search expression.
type Resolve struct {
	Input string `json:"input"`
}

func (r *Resolve) Validate() error {
	if strings.TrimSpace(r.Input) == "" {
		return errs.ErrInvalidURL
	}

	return nil
}

// Run starts a download run over the current selection.
type Run struct {
	OutputDir string `json:"outputDir,omitempty"`
	Kind      string `json:"kind"`                // "audio" or "video"
	Container string `json:"container,omitempty"` // e.g. "mp4", "mkv", "mp3"
	Quality   string `json:"quality,omitempty"`   // "best", "720p", "192k"
}

func (r *Run) Validate() error {
	switch entity.OutputKind(r.Kind) {
	case entity.KindAudio, entity.KindVideo:
		return nil
	default:
		return errs.ErrInvalidKind
	}
}

// Options converts the request into run options.
func (r *Run) Options() entity.RunOptions {
	return entity.RunOptions{
		OutputDir: r.OutputDir,
		Kind:      entity.OutputKind(r.Kind),
		Container: r.Container,
		Quality:   r.Quality,
	}
}
