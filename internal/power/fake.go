package power

import (
	"context"

	"github.com/sweeney/contact-sensor/internal/logic"
)

// FakeController records suspend calls.
type FakeController struct {
	Plans []SleepPlan

	// Cause is written to Recorder on every Suspend, if both are set.
	Cause    logic.WakeCause
	Recorder CauseRecorder

	SuspendError error
}

// Suspend records plan and returns immediately.
func (f *FakeController) Suspend(ctx context.Context, plan SleepPlan) error {
	f.Plans = append(f.Plans, plan)
	if f.Recorder != nil && f.Cause != logic.WakeUndefined {
		if err := f.Recorder.SetWakeCause(f.Cause); err != nil {
			return err
		}
	}
	return f.SuspendError
}

// Suspended reports how many times Suspend was called.
func (f *FakeController) Suspended() int {
	return len(f.Plans)
}
