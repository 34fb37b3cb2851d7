package downloader

import (
	"context"
	"time"

	"konbata/internal/consts"
	"konbata/internal/entity"
	"konbata/internal/errs"
)

const mockProgressSteps = 4

// Mock is a scriptable execution unit for tests. When ProcessFn is set it
// is called directly; otherwise the mock simulates a short download that
// honors the gate the same way the real unit does.
type Mock struct {
	ProcessFn    func(ctx context.Context, job *entity.DownloadJob, opt Options, gate Gate, emit EmitFunc) error
	SimulateTime time.Duration
}

var _ Downloader = (*Mock)(nil)

// NewMock creates a new mock execution unit.
func NewMock() *Mock {
	return &Mock{SimulateTime: consts.DefaultSimulateTime}
}

// Process implements the Downloader interface.
func (m *Mock) Process(ctx context.Context, job *entity.DownloadJob, opt Options, gate Gate, emit EmitFunc) error {
	if m.ProcessFn != nil {
		return m.ProcessFn(ctx, job, opt, gate, emit)
	}

	emit(entity.StatusEvent(job.Index, consts.StatusStarting))

	step := m.SimulateTime / mockProgressSteps

	for i := 1; i <= mockProgressSteps; i++ {
		if err := gate.Wait(ctx); err != nil {
			return err
		}

		if gate.Stopped() {
			return errs.ErrRunStopped
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(step):
		}

		emit(entity.ProgressEvent(job.Index, float64(i)/mockProgressSteps*100, 0, 0))
	}

	return nil
}
