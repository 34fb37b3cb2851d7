// Package downloader defines the download execution unit and related models.
package downloader

import (
	"context"
	"errors"
	"time"

	"konbata/internal/entity"
)

const (
	defaultProgressFreq = 200 * time.Millisecond
)

// Gate is the cooperative pause/stop control the orchestrator hands to an
// execution unit. The unit calls Wait at every progress callback: Wait
// blocks while the run is paused and returns once resumed, or with an error
// when the context is done. Stopped reports whether the run was stopped;
// the unit must abort promptly once it returns true.
type Gate interface {
	Wait(ctx context.Context) error
	Stopped() bool
}

// EmitFunc receives the execution unit's events: status lines and progress
// updates. Terminal state events are the orchestrator's business, not the
// unit's.
type EmitFunc func(event entity.Event)

// Options carries the run-level settings an execution unit needs.
type Options struct {
	OutputDir        string
	FilenameTemplate string
	Kind             entity.OutputKind
	Container        string
	Quality          string
}

// Downloader executes the download phase of one ready job. A nil error
// means the job completed; errs.ErrRunStopped means a user stop was
// observed mid-transfer; any other error is a download failure scoped to
// this job.
type Downloader interface {
	Process(ctx context.Context, job *entity.DownloadJob, opt Options, gate Gate, emit EmitFunc) error
}

func classifyProcessingError(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "process"
	}
}
