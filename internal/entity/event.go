package entity

import "log/slog"

// EventKind discriminates orchestrator events. The set is closed: consumers
// switch over it exhaustively instead of inspecting loose payload maps.
type EventKind string

const (
	// EventStatus carries a human-readable status line for one job.
	EventStatus EventKind = "status"
	// EventProgress carries download progress for one job.
	EventProgress EventKind = "progress"
	// EventThumbnail carries a best-effort thumbnail image for one job.
	EventThumbnail EventKind = "thumbnail"
	// EventState signals a job state transition.
	EventState EventKind = "state"
	// EventRunFinished signals that every job reached a terminal state.
	// Emitted exactly once per run.
	EventRunFinished EventKind = "run_finished"
)

// Event is one orchestrator notification. JobIndex is -1 for run-level
// events. For a given job the delivery order is: zero or more status events
// interleaved with progress events, then exactly one terminal state event.
type Event struct {
	Kind     EventKind `json:"kind"`
	JobIndex int       `json:"jobIndex"`

	// EventStatus
	Status string `json:"status,omitempty"`

	// EventProgress
	Progress   float64 `json:"progress,omitempty"`   // 0..100
	Speed      float64 `json:"speed,omitempty"`      // bytes per second
	ETASeconds int     `json:"etaSeconds,omitempty"` // -1 when unknown

	// EventThumbnail
	Thumbnail []byte `json:"thumbnail,omitempty"`

	// EventState
	State JobState `json:"state,omitempty"`
	Error string   `json:"error,omitempty"`

	// EventRunFinished
	Summary *RunSummary `json:"summary,omitempty"`
}

// StatusEvent builds a status event for one job.
func StatusEvent(idx int, status string) Event {
	return Event{Kind: EventStatus, JobIndex: idx, Status: status}
}

// ProgressEvent builds a progress event for one job.
func ProgressEvent(idx int, progress, speed float64, etaSeconds int) Event {
	return Event{Kind: EventProgress, JobIndex: idx, Progress: progress, Speed: speed, ETASeconds: etaSeconds}
}

// ThumbnailEvent builds a thumbnail event for one job.
func ThumbnailEvent(idx int, img []byte) Event {
	return Event{Kind: EventThumbnail, JobIndex: idx, Thumbnail: img}
}

// StateEvent builds a state transition event for one job.
func StateEvent(idx int, state JobState, errMsg string) Event {
	return Event{Kind: EventState, JobIndex: idx, State: state, Error: errMsg}
}

// RunFinishedEvent builds the terminal run event.
func RunFinishedEvent(summary RunSummary) Event {
	return Event{Kind: EventRunFinished, JobIndex: -1, Summary: &summary}
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (e Event) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("kind", string(e.Kind)),
		slog.Int("job_index", e.JobIndex),
	}

	switch e.Kind {
	case EventStatus:
		attrs = append(attrs, slog.String("status", e.Status))
	case EventProgress:
		attrs = append(attrs, slog.Float64("progress", e.Progress), slog.Float64("speed", e.Speed), slog.Int("eta_seconds", e.ETASeconds))
	case EventThumbnail:
		attrs = append(attrs, slog.Int("thumbnail_bytes", len(e.Thumbnail)))
	case EventState:
		attrs = append(attrs, slog.String("state", string(e.State)), slog.String("error", e.Error))
	case EventRunFinished:
		if e.Summary != nil {
			attrs = append(attrs, slog.Any("summary", *e.Summary))
		}
	}

	return slog.GroupValue(attrs...)
}
