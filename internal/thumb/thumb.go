// Package thumb fetches small preview images for media records.
// Thumbnails are cosmetic: every failure is swallowed into an error the
// caller is free to ignore, and no fetch ever blocks beyond its timeout.
package thumb

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"konbata/internal/observability"
)

// maxThumbnailSize caps one image read at 2 MiB.
const maxThumbnailSize = 2 * 1024 * 1024

// Loader fetches thumbnail images over HTTP.
type Loader struct {
	log     *slog.Logger
	client  *http.Client
	timeout time.Duration
	metrics *observability.Metrics
}

// New creates a thumbnail loader with the given per-fetch timeout.
func New(log *slog.Logger, timeout time.Duration, metrics *observability.Metrics) *Loader {
	return &Loader{
		log:     log.With(slog.String("package", "thumb")),
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
		metrics: metrics,
	}
}

// Load fetches the image at url. Best effort: any transport or status
// failure is returned as an error and nothing is retried.
func (l *Loader) Load(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty thumbnail url")
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		l.metrics.RecordThumbnail("error")

		return nil, fmt.Errorf("build thumbnail request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		l.metrics.RecordThumbnail("error")

		return nil, fmt.Errorf("fetch thumbnail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		l.metrics.RecordThumbnail("error")

		return nil, fmt.Errorf("fetch thumbnail: status %d", resp.StatusCode)
	}

	img, err := io.ReadAll(io.LimitReader(resp.Body, maxThumbnailSize))
	if err != nil {
		l.metrics.RecordThumbnail("error")

		return nil, fmt.Errorf("read thumbnail body: %w", err)
	}

	l.metrics.RecordThumbnail("ok")
	l.log.DebugContext(ctx, "thumbnail fetched", slog.String("url", url), slog.Int("bytes", len(img)))

	return img, nil
}
