//go:build linux

package power

import (
	"context"
	"fmt"
	"log"

	"github.com/warthog618/go-gpiocdev"
)

// EdgeController emulates deep sleep on a Linux host: it watches the sensor
// line for the wake edge and arms a timer, blocking until either fires.
// The sensor reader must have released the line before Suspend is called.
type EdgeController struct {
	Chip     string
	Pin      int
	Recorder CauseRecorder
}

// Suspend blocks until the wake edge, the timer, or ctx cancellation.
func (c *EdgeController) Suspend(ctx context.Context, plan SleepPlan) error {
	edge := gpiocdev.WithFallingEdge
	if plan.WakeLevel {
		edge = gpiocdev.WithRisingEdge
	}

	woken := make(chan struct{}, 1)
	line, err := gpiocdev.RequestLine(c.Chip, c.Pin,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithConsumer("contact-sensor"),
		edge,
		gpiocdev.WithEventHandler(func(gpiocdev.LineEvent) {
			select {
			case woken <- struct{}{}:
			default:
			}
		}))
	if err != nil {
		return fmt.Errorf("arm wake edge on pin %d: %w", c.Pin, err)
	}
	defer line.Close()

	log.Printf("power: going to sleep now (%s)", plan)

	cause, err := awaitWake(ctx, plan, func() (bool, error) {
		v, err := line.Value()
		return v == 1, err
	}, woken)
	if err != nil {
		return err
	}

	log.Printf("power: woken (cause %d)", cause)
	if c.Recorder != nil {
		if err := c.Recorder.SetWakeCause(cause); err != nil {
			return fmt.Errorf("record wake cause: %w", err)
		}
	}
	return nil
}
