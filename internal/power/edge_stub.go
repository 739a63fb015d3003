//go:build !linux

package power

import (
	"context"
	"errors"
)

// EdgeController is not available on non-Linux platforms.
type EdgeController struct {
	Chip     string
	Pin      int
	Recorder CauseRecorder
}

// Suspend is not implemented on non-Linux platforms.
func (c *EdgeController) Suspend(ctx context.Context, plan SleepPlan) error {
	return errors.New("power: edge wake not supported on this platform (requires Linux)")
}
