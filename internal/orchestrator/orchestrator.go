// Package orchestrator runs the download queue: it resolves metadata for
// every job concurrently while downloading strictly one job at a time, in
// submission order, with cooperative pause, resume and stop.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"konbata/internal/config"
	"konbata/internal/consts"
	"konbata/internal/downloader"
	"konbata/internal/entity"
	"konbata/internal/errs"
	"konbata/internal/fetcher"
	"konbata/internal/observability"
	"konbata/internal/thumb"
	"konbata/pkg/gen"
)

const eventBufferSize = 1024

// runLevel tags events that belong to the run, not to one job.
const runLevel = -1

var containersByKind = map[entity.OutputKind]map[string]bool{
	entity.KindAudio: {"mp3": true, "m4a": true, "opus": true, "flac": true, "wav": true, "aac": true},
	entity.KindVideo: {"mp4": true, "mkv": true, "webm": true},
}

var defaultContainer = map[entity.OutputKind]string{
	entity.KindAudio: "mp3",
	entity.KindVideo: "mp4",
}

type resolveResult struct {
	idx int
	rec *entity.MediaRecord
	err error
}

type downloadResult struct {
	idx int
	err error
}

// Orchestrator owns one run at a time. All job state lives behind its
// mutex; the run loop goroutine is the only writer of job states while a
// run is active.
type Orchestrator struct {
	log     *slog.Logger
	cfg     *config.Config
	fetch   fetcher.Fetcher
	dl      downloader.Downloader
	thumbs  *thumb.Loader
	metrics *observability.Metrics

	mu      sync.RWMutex
	jobs    []*entity.DownloadJob
	opts    entity.RunOptions
	active  bool
	started bool

	gate      *gate
	cancelRun context.CancelFunc
	ctrl      chan struct{}
	events    chan entity.Event
}

// New creates an orchestrator. The thumbnail loader may be nil to disable
// thumbnail prefetch.
func New(log *slog.Logger, cfg *config.Config, fetch fetcher.Fetcher, dl downloader.Downloader, thumbs *thumb.Loader, metrics *observability.Metrics) *Orchestrator {
	return &Orchestrator{
		log:     log.With(slog.String("package", "orchestrator")),
		cfg:     cfg,
		fetch:   fetch,
		dl:      dl,
		thumbs:  thumbs,
		metrics: metrics,
		ctrl:    make(chan struct{}, 1),
		events:  make(chan entity.Event, eventBufferSize),
	}
}

// Events returns the orchestrator's event stream. The channel is never
// closed; it outlives individual runs.
func (o *Orchestrator) Events() <-chan entity.Event {
	return o.events
}

// Start validates the run options, builds the job list from the given
// records (playlists expand into their children) and launches the run
// loop. It fails without side effects when a run is already active, the
// record list is empty, the options are invalid or the output directory
// cannot be created.
func (o *Orchestrator) Start(ctx context.Context, records []*entity.MediaRecord, opts entity.RunOptions) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.active {
		return errs.ErrRunActive
	}

	if opts.Kind != entity.KindAudio && opts.Kind != entity.KindVideo {
		return fmt.Errorf("%w: %q", errs.ErrInvalidKind, opts.Kind)
	}

	if opts.Container == "" {
		opts.Container = defaultContainer[opts.Kind]
	}

	if !containersByKind[opts.Kind][opts.Container] {
		return fmt.Errorf("%w: %q for %s output", errs.ErrInvalidContainer, opts.Container, opts.Kind)
	}

	if opts.Quality == "" {
		opts.Quality = consts.DefaultQuality
	}

	if opts.OutputDir == "" {
		opts.OutputDir = o.cfg.Dir.Downloads
	}

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return fmt.Errorf("%w: %s", errs.ErrOutputDir, err)
	}

	jobs := buildJobs(records, opts.Kind)
	if len(jobs) == 0 {
		return errs.ErrNoJobs
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	o.jobs = jobs
	o.opts = opts
	o.active = true
	o.started = true
	o.gate = newGate()
	o.cancelRun = cancel

	// drain any stale poke from a previous run
	select {
	case <-o.ctrl:
	default:
	}

	o.metrics.RecordRunStarted()
	o.log.InfoContext(ctx, "run started", slog.Int("jobs", len(jobs)), slog.Any("options", opts))

	go o.run(runCtx)

	return nil
}

// buildJobs flattens records into the job list. A playlist contributes one
// job per child, in playlist order; everything else contributes itself.
func buildJobs(records []*entity.MediaRecord, kind entity.OutputKind) []*entity.DownloadJob {
	now := time.Now()
	jobs := make([]*entity.DownloadJob, 0, len(records))

	add := func(rec *entity.MediaRecord) {
		jobs = append(jobs, &entity.DownloadJob{
			ID:         gen.UUIDv5(rec.SourceURL, string(kind)),
			Index:      len(jobs),
			Record:     rec.Clone(),
			State:      entity.JobStatePending,
			ETASeconds: -1,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}

	for _, rec := range records {
		if rec == nil || rec.SourceURL == "" {
			continue
		}

		if rec.IsPlaylist {
			for _, child := range rec.Children {
				if child.SourceURL != "" {
					add(&child)
				}
			}

			continue
		}

		add(rec)
	}

	return jobs
}

// Pause closes the gate so the in-flight download suspends at its next
// progress callback and no new download starts. Pausing an already paused
// run is a no-op.
func (o *Orchestrator) Pause(ctx context.Context) error {
	g, ok := o.activeGate()
	if !ok {
		return errs.ErrNoRun
	}

	if g.Pause() {
		o.emit(entity.StatusEvent(runLevel, consts.StatusPaused))
		o.log.InfoContext(ctx, "run paused")
	}

	return nil
}

// Resume reopens the gate. Resuming a run that is not paused is a no-op.
func (o *Orchestrator) Resume(ctx context.Context) error {
	g, ok := o.activeGate()
	if !ok {
		return errs.ErrNoRun
	}

	if g.Resume() {
		o.emit(entity.StatusEvent(runLevel, consts.StatusResuming))
		o.log.InfoContext(ctx, "run resumed")
	}

	o.poke()

	return nil
}

// Stop latches the stop flag, cancels the run context and wakes everything
// waiting on the gate. Queued jobs finish as stopped without their
// downloads ever starting; the in-flight download aborts at its next
// progress callback.
func (o *Orchestrator) Stop(ctx context.Context) error {
	g, ok := o.activeGate()
	if !ok {
		return errs.ErrNoRun
	}

	o.mu.RLock()
	cancel := o.cancelRun
	o.mu.RUnlock()

	if g.Stop() {
		cancel()
		o.emit(entity.StatusEvent(runLevel, consts.StatusStopped))
		o.log.InfoContext(ctx, "run stop requested")
	}

	o.poke()

	return nil
}

// Active reports whether a run is in progress.
func (o *Orchestrator) Active() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return o.active
}

func (o *Orchestrator) activeGate() (*gate, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if !o.active {
		return nil, false
	}

	return o.gate, true
}

// Jobs returns a snapshot of the current or most recent run's jobs.
func (o *Orchestrator) Jobs(ctx context.Context) ([]entity.DownloadJob, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if !o.started {
		return nil, errs.ErrNoRun
	}

	jobs := make([]entity.DownloadJob, 0, len(o.jobs))
	for _, job := range o.jobs {
		jobs = append(jobs, *job)
	}

	return jobs, nil
}

// Summary aggregates the current or most recent run's outcome.
func (o *Orchestrator) Summary(ctx context.Context) (entity.RunSummary, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if !o.started {
		return entity.RunSummary{}, errs.ErrNoRun
	}

	return o.summaryLocked(), nil
}

func (o *Orchestrator) summaryLocked() entity.RunSummary {
	s := entity.RunSummary{Total: len(o.jobs), Finished: !o.active}

	if o.gate != nil {
		s.Paused = o.gate.Paused()
	}

	for _, job := range o.jobs {
		switch job.State {
		case entity.JobStateCompleted:
			s.Completed++
		case entity.JobStateFailed:
			s.Failed++
		case entity.JobStateStopped:
			s.Stopped++
		}
	}

	return s
}

// run is the loop that owns the lifecycle of one run. It dispatches
// metadata resolution eagerly, starts at most one download at a time in
// strict index order and exits once every job is terminal.
func (o *Orchestrator) run(ctx context.Context) {
	stopTimer := o.metrics.RunTimer()
	defer stopTimer()

	o.mu.RLock()
	total := len(o.jobs)
	o.mu.RUnlock()

	resolveCh := make(chan resolveResult, total)
	downloadDone := make(chan downloadResult, 1)

	var sem chan struct{}
	if o.cfg.Fetch.Concurrency > 0 {
		sem = make(chan struct{}, o.cfg.Fetch.Concurrency)
	}

	for i := range total {
		if o.jobRecord(i).Resolved() {
			o.setState(ctx, i, entity.JobStateReady, "")
			o.prefetchThumbnail(ctx, i)

			continue
		}

		go o.resolve(ctx, i, sem, resolveCh)
	}

	downloading := runLevel

	for {
		switch {
		case o.gate.Stopped():
			o.finalizeStopped(ctx)
		case downloading == runLevel && !o.gate.Paused():
			if idx, ok := o.nextReady(); ok {
				downloading = idx
				go o.download(ctx, idx, downloadDone)
			}
		}

		if downloading == runLevel && o.allTerminal() {
			break
		}

		select {
		case r := <-resolveCh:
			o.handleResolve(ctx, r)
		case r := <-downloadDone:
			downloading = runLevel
			o.handleDownload(ctx, r)
		case <-o.ctrl:
		}
	}

	o.finish(ctx)
}

// resolve fetches metadata for one pending job and reports on ch. The
// semaphore, when non-nil, bounds in-flight fetches.
func (o *Orchestrator) resolve(ctx context.Context, idx int, sem chan struct{}, ch chan<- resolveResult) {
	if sem != nil {
		select {
		case sem <- struct{}{}:
			defer func() { <-sem }()
		case <-ctx.Done():
			ch <- resolveResult{idx: idx, err: ctx.Err()}

			return
		}
	}

	o.setState(ctx, idx, entity.JobStateResolving, "")
	o.emit(entity.StatusEvent(idx, consts.StatusFetchingMetadata))

	rec, err := o.fetch.Fetch(ctx, o.jobRecord(idx).SourceURL)

	ch <- resolveResult{idx: idx, rec: rec, err: err}
}

func (o *Orchestrator) handleResolve(ctx context.Context, r resolveResult) {
	if o.gate.Stopped() {
		o.setState(ctx, r.idx, entity.JobStateStopped, "")

		return
	}

	if r.err != nil {
		o.log.WarnContext(ctx, "metadata resolution failed",
			slog.Int("job_index", r.idx), slog.Any("error", r.err))
		o.setState(ctx, r.idx, entity.JobStateFailed, r.err.Error())

		return
	}

	if r.rec.IsPlaylist {
		o.setState(ctx, r.idx, entity.JobStateFailed, "resolved to a playlist, expand it before running")

		return
	}

	o.mu.Lock()
	o.jobs[r.idx].Record.Merge(*r.rec)
	o.mu.Unlock()

	o.setState(ctx, r.idx, entity.JobStateReady, "")
	o.emit(entity.StatusEvent(r.idx, consts.StatusMetadataReady))
	o.prefetchThumbnail(ctx, r.idx)
}

// nextReady returns the index of the next job to download. Downloads are
// strictly ordered: the candidate is the first non-terminal job, and it
// only qualifies once it is ready. An earlier job still resolving blocks
// every later one even if those are already ready.
func (o *Orchestrator) nextReady() (int, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	for _, job := range o.jobs {
		if job.State.Terminal() {
			continue
		}

		return job.Index, job.State == entity.JobStateReady
	}

	return 0, false
}

func (o *Orchestrator) download(ctx context.Context, idx int, done chan<- downloadResult) {
	o.setState(ctx, idx, entity.JobStateDownloading, "")

	o.mu.RLock()
	job := *o.jobs[idx]
	opt := downloader.Options{
		OutputDir:        o.opts.OutputDir,
		FilenameTemplate: o.cfg.Dir.FilenameTemplate,
		Kind:             o.opts.Kind,
		Container:        o.opts.Container,
		Quality:          o.opts.Quality,
	}
	o.mu.RUnlock()

	err := o.dl.Process(ctx, &job, opt, o.gate, o.emit)

	done <- downloadResult{idx: idx, err: err}
}

func (o *Orchestrator) handleDownload(ctx context.Context, r downloadResult) {
	switch {
	case r.err == nil:
		o.emit(entity.StatusEvent(r.idx, consts.StatusDone))
		o.setState(ctx, r.idx, entity.JobStateCompleted, "")
	case errors.Is(r.err, errs.ErrRunStopped), o.gate.Stopped():
		o.setState(ctx, r.idx, entity.JobStateStopped, "")
	default:
		o.log.WarnContext(ctx, "download failed",
			slog.Int("job_index", r.idx), slog.Any("error", r.err))
		o.setState(ctx, r.idx, entity.JobStateFailed, r.err.Error())
	}

	o.poke()
}

// finalizeStopped marks every job that has not begun resolving or
// downloading as stopped. Jobs with work in flight keep their state until
// that work reports back.
func (o *Orchestrator) finalizeStopped(ctx context.Context) {
	o.mu.RLock()
	var idle []int

	for _, job := range o.jobs {
		if job.State == entity.JobStatePending || job.State == entity.JobStateReady {
			idle = append(idle, job.Index)
		}
	}
	o.mu.RUnlock()

	for _, idx := range idle {
		o.setState(ctx, idx, entity.JobStateStopped, "")
	}
}

func (o *Orchestrator) allTerminal() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()

	for _, job := range o.jobs {
		if !job.State.Terminal() {
			return false
		}
	}

	return true
}

// finish closes out the run and emits the single run_finished event. The
// run context is cancelled so leftover goroutines, thumbnail prefetches in
// particular, do not outlive the run.
func (o *Orchestrator) finish(ctx context.Context) {
	o.mu.Lock()
	o.active = false
	summary := o.summaryLocked()
	cancel := o.cancelRun
	o.mu.Unlock()

	cancel()

	o.metrics.RecordRunFinished(summary.Stopped > 0)
	o.log.InfoContext(ctx, "run finished", slog.Any("summary", summary))
	o.emit(entity.RunFinishedEvent(summary))
}

// prefetchThumbnail loads the job's thumbnail on its own goroutine and
// emits it as an event. Failures are logged and otherwise ignored.
func (o *Orchestrator) prefetchThumbnail(ctx context.Context, idx int) {
	if o.thumbs == nil {
		return
	}

	url := o.jobRecord(idx).ThumbnailURL
	if url == "" {
		return
	}

	go func() {
		img, err := o.thumbs.Load(ctx, url)
		if err != nil {
			o.log.DebugContext(ctx, "thumbnail prefetch failed",
				slog.Int("job_index", idx), slog.Any("error", err))

			return
		}

		o.emit(entity.ThumbnailEvent(idx, img))
	}()
}

// setState transitions one job and emits the state event. Terminal states
// are counted per outcome.
func (o *Orchestrator) setState(ctx context.Context, idx int, state entity.JobState, errMsg string) {
	o.mu.Lock()
	job := o.jobs[idx]

	// terminal states are final, late reports from in-flight work are dropped
	if job.State.Terminal() {
		o.mu.Unlock()

		return
	}

	job.State = state
	job.UpdatedAt = time.Now()

	if errMsg != "" {
		job.Error = errMsg
	}

	if state == entity.JobStateCompleted {
		job.Progress = 100
		job.ETASeconds = 0
	}
	o.mu.Unlock()

	if state.Terminal() {
		o.metrics.RecordJobOutcome(string(state))
	}

	o.emit(entity.StateEvent(idx, state, errMsg))
}

// emit mirrors job-scoped progress and status into the job record, then
// publishes the event. The stream never blocks the run: when the buffer is
// full the event is dropped with a warning. Job-scoped events whose index
// no longer exists are discarded entirely, they come from goroutines of an
// earlier run that had more jobs than the current one.
func (o *Orchestrator) emit(event entity.Event) {
	if event.JobIndex != runLevel {
		o.mu.Lock()
		if event.JobIndex < 0 || event.JobIndex >= len(o.jobs) {
			o.mu.Unlock()
			o.log.Warn("dropping event for unknown job", slog.Any("event", event))

			return
		}
		job := o.jobs[event.JobIndex]

		switch event.Kind {
		case entity.EventProgress:
			job.Progress = event.Progress
			job.Speed = event.Speed
			job.ETASeconds = event.ETASeconds
			job.UpdatedAt = time.Now()
		case entity.EventStatus:
			job.Status = event.Status
			job.UpdatedAt = time.Now()
		}
		o.mu.Unlock()
	}

	o.metrics.RecordEvent(string(event.Kind))

	select {
	case o.events <- event:
	default:
		o.log.Warn("event buffer full, dropping event", slog.Any("event", event))
	}
}

func (o *Orchestrator) jobRecord(idx int) entity.MediaRecord {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return o.jobs[idx].Record
}

func (o *Orchestrator) poke() {
	select {
	case o.ctrl <- struct{}{}:
	default:
	}
}
