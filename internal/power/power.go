// Package power decides how long the node sleeps and what wakes it.
package power

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sweeney/contact-sensor/internal/logic"
)

// Sleep presets used when the config leaves them unset.
const (
	DefaultNormal  = 24 * time.Hour
	DefaultBackoff = 10 * time.Minute
)

// SleepPlan is computed immediately before suspension and consumed once.
type SleepPlan struct {
	Duration time.Duration
	// WakeLevel is the line level that wakes the node: the negation of the
	// level seen just before sleeping, so the next transition in either
	// direction is caught.
	WakeLevel bool
}

func (p SleepPlan) String() string {
	edge := "falling"
	if p.WakeLevel {
		edge = "rising"
	}
	return fmt.Sprintf("sleep %v or until %s edge", p.Duration, edge)
}

// ComputeSleepPlan builds the plan from the current line level.
func ComputeSleepPlan(level bool, d time.Duration) SleepPlan {
	return SleepPlan{Duration: d, WakeLevel: !level}
}

// Controller suspends the node.
type Controller interface {
	// Suspend powers down according to plan. On a microcontroller it never
	// returns; on a host it returns once the node has been woken, and the
	// caller starts a fresh cycle.
	Suspend(ctx context.Context, plan SleepPlan) error
}

// CauseRecorder receives the cause of a wake so the next boot can classify it.
type CauseRecorder interface {
	SetWakeCause(logic.WakeCause) error
}

// awaitWake blocks until the wake edge, the timer, or ctx cancellation.
// level is read once after the edge watch is armed: a line already at the
// wake level changed before the watch existed and would never raise an edge.
func awaitWake(ctx context.Context, plan SleepPlan, level func() (bool, error), edge <-chan struct{}) (logic.WakeCause, error) {
	v, err := level()
	if err != nil {
		log.Printf("power: read line after arming: %v", err)
	} else if v == plan.WakeLevel {
		log.Printf("power: line already at wake level, not sleeping")
		return logic.WakeExt0, nil
	}

	timer := time.NewTimer(plan.Duration)
	defer timer.Stop()

	select {
	case <-edge:
		return logic.WakeExt0, nil
	case <-timer.C:
		return logic.WakeTimer, nil
	case <-ctx.Done():
		return logic.WakeUndefined, ctx.Err()
	}
}
