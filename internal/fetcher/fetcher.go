package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"konbata/internal/config"
	"konbata/internal/depmanager"
	"konbata/internal/entity"
	"konbata/internal/errs"
	"konbata/internal/observability"
	"konbata/internal/proxy"

	"github.com/lrstanley/go-ytdlp"
)

// Fetcher resolves a locator (URL, playlist URL or search expression) into a
// media record. Implementations block the calling goroutine; callers needing
// asynchrony run Fetch on their own goroutine.
type Fetcher interface {
	Fetch(ctx context.Context, input string) (*entity.MediaRecord, error)
}

// YTdlp fetches metadata through the yt-dlp extractor without downloading.
type YTdlp struct {
	log      *slog.Logger
	cfg      *config.Config
	bins     *depmanager.Manager
	proxyMgr *proxy.Manager
	metrics  *observability.Metrics
}

var _ Fetcher = (*YTdlp)(nil)

// New creates a yt-dlp backed metadata fetcher. bins may be nil to rely on
// the system PATH.
func New(log *slog.Logger, cfg *config.Config, bins *depmanager.Manager, proxyMgr *proxy.Manager, metrics *observability.Metrics) *YTdlp {
	return &YTdlp{
		log:      log.With(slog.String("package", "fetcher")),
		cfg:      cfg,
		bins:     bins,
		proxyMgr: proxyMgr,
		metrics:  metrics,
	}
}

// Fetch classifies the input, invokes the extractor and parses its JSON
// output. Radio pseudo-playlists fail immediately without any extractor
// call. The fetch is bounded by the configured timeout; a fetch that never
// returns surfaces as a resolution failure, never a hang.
func (f *YTdlp) Fetch(ctx context.Context, input string) (*entity.MediaRecord, error) {
	class, cleaned := Classify(input)

	log := f.log.With(slog.String("class", string(class)), slog.String("url", cleaned))

	if class == ClassRadio {
		return nil, errs.ErrRadioUnsupported
	}

	if class == ClassSearch {
		cleaned = SearchQuery(cleaned, f.cfg.Fetch.SearchLimit)
	}

	ctx, cancel := context.WithTimeout(ctx, f.cfg.Fetch.Timeout)
	defer cancel()

	flat := class == ClassSearch || class == ClassPlaylist

	command := ytdlp.New().
		DumpSingleJSON().
		SkipDownload().
		NoWarnings().
		IgnoreConfig().
		NoCacheDir()

	if flat {
		command = command.FlatPlaylist()
	}

	if f.bins != nil {
		if path := f.bins.GetInstalledPath(depmanager.BinaryYTdlp); path != "" {
			command.SetExecutable(path)
		}
	}

	if f.proxyMgr != nil && f.proxyMgr.Count() > 0 {
		proxyURL, err := f.proxyMgr.GetProxy(ctx)
		if err != nil {
			log.WarnContext(ctx, "failed to get healthy proxy", slog.Any("error", err))
		} else if proxyURL != "" {
			command = command.Proxy(proxyURL)
		}
	}

	started := time.Now()

	fetchDone := f.metrics.FetchStarted()
	defer fetchDone()

	res, err := command.Run(ctx, cleaned)
	if err != nil {
		f.metrics.RecordFetch(string(class), "error")

		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s: %s", errs.ErrFetchTimeout, f.cfg.Fetch.Timeout, cleaned)
		}

		return nil, fmt.Errorf("ytdlp extract: %w", err)
	}

	record, err := ParseInfo([]byte(res.Stdout), cleaned)
	if err != nil {
		f.metrics.RecordFetch(string(class), "parse_error")

		return nil, fmt.Errorf("parse extractor output: %w", err)
	}

	f.metrics.RecordFetch(string(class), "ok")
	f.metrics.ObserveFetchDuration(time.Since(started))

	log.DebugContext(ctx, "metadata fetched", "record", *record)

	return record, nil
}

// SearchQuery turns a free-text expression into a yt-dlp search pseudo-URL
// requesting up to limit flat results. Expressions already carrying the
// ytsearch prefix pass through unchanged.
func SearchQuery(query string, limit int) string {
	if len(query) >= len(searchPrefix) && query[:len(searchPrefix)] == searchPrefix {
		return query
	}

	if limit <= 0 {
		limit = 1
	}

	return fmt.Sprintf("%s%d:%s", searchPrefix, limit, query)
}
