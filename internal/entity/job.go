package entity

import (
	"log/slog"
	"time"
)

// OutputKind selects what the run produces for every job.
type OutputKind string

// Output kinds.
const (
	// KindAudio extracts the audio stream and transcodes it to the target codec.
	KindAudio OutputKind = "audio"
	// KindVideo downloads video plus audio merged into the target container.
	KindVideo OutputKind = "video"
)

// JobState represents the lifecycle state of a download job.
type JobState string

const (
	// JobStatePending indicates that the job is accepted but not yet examined.
	JobStatePending JobState = "pending"
	// JobStateResolving indicates that a metadata fetch is in flight for the job.
	JobStateResolving JobState = "resolving_metadata"
	// JobStateReady indicates that the job has full metadata and awaits its download slot.
	JobStateReady JobState = "ready_to_download"
	// JobStateDownloading indicates that the job's download is in progress.
	JobStateDownloading JobState = "downloading"
	// JobStateCompleted indicates that the job finished successfully.
	JobStateCompleted JobState = "completed"
	// JobStateFailed indicates that the job's resolution or download failed.
	JobStateFailed JobState = "failed"
	// JobStateStopped indicates that the job was stopped by the user.
	JobStateStopped JobState = "stopped"
)

// Terminal reports whether the state is final for the job.
func (s JobState) Terminal() bool {
	switch s {
	case JobStateCompleted, JobStateFailed, JobStateStopped:
		return true
	default:
		return false
	}
}

// RunOptions holds the shared settings of one orchestrator run.
type RunOptions struct {
	OutputDir string     `json:"outputDir"`
	Kind      OutputKind `json:"kind"`
	Container string     `json:"container"` // e.g. "mp4", "mkv", "mp3", "m4a"
	Quality   string     `json:"quality"`   // "best", "720p", "192k"
}

// DownloadJob is one orchestrator-tracked unit of work wrapping a
// MediaRecord plus the run's output preferences. Index is the submission
// position at run start; downloads happen strictly in Index order.
type DownloadJob struct {
	ID         string      `json:"id"`
	Index      int         `json:"index"`
	Record     MediaRecord `json:"record"`
	State      JobState    `json:"state"`
	Progress   float64     `json:"progress"` // 0..100
	Speed      float64     `json:"speed"`    // bytes per second
	ETASeconds int         `json:"etaSeconds"`
	Status     string      `json:"status,omitempty"` // last human-readable status line
	Error      string      `json:"error,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (j DownloadJob) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", j.ID),
		slog.Int("index", j.Index),
		slog.String("url", j.Record.SourceURL),
		slog.String("state", string(j.State)),
		slog.Float64("progress", j.Progress),
		slog.String("error", j.Error),
	)
}

// RunSummary aggregates the outcome of a run.
type RunSummary struct {
	Total     int  `json:"total"`
	Completed int  `json:"completed"`
	Failed    int  `json:"failed"`
	Stopped   int  `json:"stopped"`
	Finished  bool `json:"finished"`
	Paused    bool `json:"paused"`
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (s RunSummary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("total", s.Total),
		slog.Int("completed", s.Completed),
		slog.Int("failed", s.Failed),
		slog.Int("stopped", s.Stopped),
		slog.Bool("finished", s.Finished),
		slog.Bool("paused", s.Paused),
	)
}
