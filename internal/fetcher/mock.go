package fetcher

import (
	"context"

	"konbata/internal/entity"
)

// Mock is a scriptable fetcher for tests. FetchFn is invoked for every
// Fetch call; a nil FetchFn returns a minimal resolved record.
type Mock struct {
	FetchFn func(ctx context.Context, input string) (*entity.MediaRecord, error)
}

var _ Fetcher = (*Mock)(nil)

// Fetch runs the scripted function.
func (m *Mock) Fetch(ctx context.Context, input string) (*entity.MediaRecord, error) {
	if m.FetchFn != nil {
		return m.FetchFn(ctx, input)
	}

	return &entity.MediaRecord{
		SourceURL:    input,
		Title:        "mock",
		Identifier:   "mock",
		Duration:     1,
		ThumbnailURL: "https://example.com/mock.jpg",
		FormatsKnown: true,
	}, nil
}
