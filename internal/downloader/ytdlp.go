package downloader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"konbata/internal/config"
	"konbata/internal/consts"
	"konbata/internal/depmanager"
	"konbata/internal/entity"
	"konbata/internal/errs"
	"konbata/internal/observability"
	"konbata/internal/proxy"
	"konbata/pkg/calc"
	"konbata/pkg/maths"
	"konbata/pkg/ptr"
	"konbata/pkg/shellquote"

	"github.com/lrstanley/go-ytdlp"
)

const fullProgress = 100

// YTdlp executes downloads through the yt-dlp collaborator.
type YTdlp struct {
	log      *slog.Logger
	cfg      *config.Config
	bins     *depmanager.Manager
	proxyMgr *proxy.Manager
	metrics  *observability.Metrics
}

var _ Downloader = (*YTdlp)(nil)

// NewYTdlp creates a new yt-dlp execution unit. bins may be nil to rely on
// the system PATH.
func NewYTdlp(log *slog.Logger, cfg *config.Config, bins *depmanager.Manager, proxyMgr *proxy.Manager, metrics *observability.Metrics) *YTdlp {
	return &YTdlp{
		log:      log.With(slog.String("package", "downloader"), slog.String("downloader", consts.DownloaderYTdlp)),
		cfg:      cfg,
		bins:     bins,
		proxyMgr: proxyMgr,
		metrics:  metrics,
	}
}

// Process downloads one ready job. The gate is consulted on every progress
// callback from the collaborator: a pause blocks right there inside the
// callback, a stop cancels the collaborator context and surfaces as
// errs.ErrRunStopped.
func (d *YTdlp) Process(ctx context.Context, job *entity.DownloadJob, opt Options, gate Gate, emit EmitFunc) error {
	if job == nil {
		return fmt.Errorf("job is nil")
	}

	log := d.log.With("job", *job)

	dctx, cancel := context.WithCancel(ctx)
	defer cancel()

	emit(entity.StatusEvent(job.Index, consts.StatusStarting))

	started := time.Now()
	lastBytes := 0

	progressFn := func(prog ytdlp.ProgressUpdate) {
		// safe suspension point: block here while paused
		if err := gate.Wait(dctx); err != nil {
			return
		}

		if gate.Stopped() {
			cancel()

			return
		}

		switch string(prog.Status) {
		case "downloading":
			eta := -1
			if prog.TotalBytes > 0 && prog.DownloadedBytes > 0 {
				eta = maths.RoundFloat64ToInt(calc.ETA(prog.DownloadedBytes, prog.TotalBytes, started).Seconds())
			}

			emit(entity.ProgressEvent(job.Index,
				calc.Percent(prog.DownloadedBytes, prog.TotalBytes),
				calc.Speed(prog.DownloadedBytes, started),
				eta))

			d.metrics.AddDownloadBytes(prog.DownloadedBytes - lastBytes)
			lastBytes = prog.DownloadedBytes
		case "finished", "postprocessing":
			emit(entity.StatusEvent(job.Index, consts.StatusProcessing))
		}
	}

	chain := BuildChain(opt.Kind, opt.Container, opt.Quality)

	command := ytdlp.New().
		CacheDir(d.cfg.Dir.Cache).
		Format(chain.String()).
		NoPlaylist().
		NoCheckCertificates().
		Output(filepath.Join(opt.OutputDir, opt.FilenameTemplate)).
		ProgressFunc(defaultProgressFreq, progressFn)

	if opt.Kind == entity.KindAudio {
		command = command.ExtractAudio().AudioFormat(opt.Container).AudioQuality("0")
	} else {
		command = command.MergeOutputFormat(opt.Container)
	}

	if d.bins != nil {
		if path := d.bins.GetInstalledPath(depmanager.BinaryYTdlp); path != "" {
			command.SetExecutable(path)
		}

		if ffmpeg := d.bins.GetInstalledPath(depmanager.BinaryFFmpeg); ffmpeg != "" {
			command = command.FFmpegLocation(filepath.Dir(ffmpeg))
		}
	}

	if d.proxyMgr != nil && d.proxyMgr.Count() > 0 {
		proxyURL, err := d.proxyMgr.GetProxy(dctx)
		if err != nil {
			log.WarnContext(ctx, "failed to get healthy proxy", slog.Any("error", err))
		} else if proxyURL != "" {
			log.InfoContext(ctx, "using proxy for download", slog.String("proxy", proxyURL))
			command = command.Proxy(proxyURL)
		}
	}

	res, err := command.Run(dctx, job.Record.SourceURL)
	if err != nil {
		if gate.Stopped() || errors.Is(dctx.Err(), context.Canceled) {
			log.InfoContext(ctx, "download stopped by user")

			return errs.ErrRunStopped
		}

		log.ErrorContext(ctx, "ytdlp run",
			slog.Any("error", err),
			slog.String("error_type", classifyProcessingError(err)),
			slog.Any("result", Result{res}))

		return fmt.Errorf("%w: %s", errs.ErrDownloadFailed, err)
	}

	d.metrics.ObserveDownloadDuration(time.Since(started))

	// collaborators do not always emit a final 100% tick
	emit(entity.ProgressEvent(job.Index, fullProgress, 0, 0))

	if info, infoErr := res.GetExtractedInfo(); infoErr == nil && len(info) > 0 {
		log.InfoContext(ctx, "download finished",
			slog.String("title", ptr.Deref(info[0].Title)),
			slog.String("filename", ptr.Deref(info[0].Filename)),
			slog.Int("duration_seconds", maths.RoundFloat64ToInt(ptr.Deref(info[0].Duration))))
	}

	log.DebugContext(ctx, "download done", "result", Result{res})

	return nil
}

// Result wraps ytdlp.Result for custom logging.
type Result struct {
	*ytdlp.Result
}

// LogValue implements the slog.LogValuer interface for custom logging of Result.
func (r Result) LogValue() slog.Value {
	if r.Result == nil {
		return slog.GroupValue(slog.String("error", "nil result"))
	}

	return slog.GroupValue(
		slog.String("command", shellquote.Join(r.Executable, r.Args)),
		slog.String("stderr", r.Stderr),
	)
}
