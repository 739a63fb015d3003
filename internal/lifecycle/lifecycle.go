// Package lifecycle runs one wake cycle of the node:
//
//	Booting -> Associating -> ConnectingBroker -> Publishing ->
//	AwaitingFinalAck -> TearingDown -> Sleeping(normal)
//
// with a backoff exit to Sleeping from any waiting state when the network
// or broker cannot be reached. All transitions happen on the goroutine
// that calls Run, driven by events from a single queue.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sweeney/contact-sensor/internal/config"
	"github.com/sweeney/contact-sensor/internal/event"
	"github.com/sweeney/contact-sensor/internal/gpio"
	"github.com/sweeney/contact-sensor/internal/logic"
	"github.com/sweeney/contact-sensor/internal/mqtt"
	"github.com/sweeney/contact-sensor/internal/network"
	"github.com/sweeney/contact-sensor/internal/power"
	"github.com/sweeney/contact-sensor/internal/retain"
	"github.com/sweeney/contact-sensor/internal/status"
)

// State is a lifecycle state.
type State string

const (
	StateBooting          State = "BOOTING"
	StateAssociating      State = "ASSOCIATING"
	StateConnectingBroker State = "CONNECTING_BROKER"
	StatePublishing       State = "PUBLISHING"
	StateAwaitingFinalAck State = "AWAITING_FINAL_ACK"
	StateTearingDown      State = "TEARING_DOWN"
	StateSleeping         State = "SLEEPING"
)

// Exit is the path by which a cycle reached Sleeping.
type Exit string

const (
	ExitNormal  Exit = "NORMAL"
	ExitBackoff Exit = "BACKOFF"
	// ExitAborted means the process was told to stop; nothing was suspended.
	ExitAborted Exit = "ABORTED"
)

// BootContext is fixed once Booting completes.
type BootContext struct {
	Count       int
	Cause       logic.WakeCause
	Reason      string
	Kind        logic.WakeKind
	SensorLevel bool
	SensorState logic.State
	Time        time.Time
}

// Config holds the values the orchestrator needs from the node config.
type Config struct {
	Identity     config.Identity
	Credentials  network.Credentials
	Firmware     string
	NormalSleep  time.Duration
	BackoffSleep time.Duration
	AwakeBudget  time.Duration
	TimeOffset   time.Duration
}

// TimeFetcher is the best-effort time service.
type TimeFetcher interface {
	Fetch(ctx context.Context) (time.Time, error)
}

// Deps are the collaborators for one cycle.
type Deps struct {
	Reader  gpio.Reader
	Store   retain.Store
	Network *network.Session
	Broker  *mqtt.Session
	Clock   TimeFetcher
	Power   power.Controller
	Events  <-chan event.Event

	// Tracker is optional.
	Tracker *status.Tracker

	// Now defaults to time.Now.
	Now func() time.Time
}

// Result summarises a finished cycle.
type Result struct {
	Exit      Exit
	Plan      power.SleepPlan
	Boot      BootContext
	Published int
}

// Orchestrator drives a single cycle. Create a new one per cycle.
type Orchestrator struct {
	cfg Config
	d   Deps

	state    State
	boot     BootContext
	finalID  uint16
	finalSet bool

	exit       Exit
	plan       power.SleepPlan
	suspendErr error
}

// New creates an orchestrator.
func New(cfg Config, d Deps) *Orchestrator {
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Orchestrator{cfg: cfg, d: d}
}

// State returns the current state.
func (o *Orchestrator) State() State { return o.state }

// Run executes the cycle until Sleeping is reached, the context is
// cancelled, or booting fails. The power controller is invoked exactly
// once when Sleeping is reached.
func (o *Orchestrator) Run(ctx context.Context) (Result, error) {
	if o.state != "" {
		return Result{}, errors.New("lifecycle: Run called twice")
	}

	if err := o.bootUp(ctx); err != nil {
		return o.result(), err
	}

	budget := time.NewTimer(o.cfg.AwakeBudget)
	defer budget.Stop()

	for o.state != StateSleeping {
		select {
		case <-ctx.Done():
			o.abort()
			return o.result(), ctx.Err()

		case <-budget.C:
			// A slow step such as the time fetch can outlast the budget while
			// the acks it waited on are already queued.
			o.drain(ctx)
			o.backoff(ctx, fmt.Sprintf("awake budget of %v exhausted in %s", o.cfg.AwakeBudget, o.state))

		case ev := <-o.d.Events:
			o.dispatch(ctx, ev)
		}
	}

	return o.result(), o.suspendErr
}

func (o *Orchestrator) bootUp(ctx context.Context) error {
	o.setState(StateBooting)
	now := o.d.Now()

	count, err := o.d.Store.IncrementBootCount()
	if err != nil {
		return fmt.Errorf("boot count: %w", err)
	}

	cause, err := o.d.Store.WakeCause()
	if err != nil {
		log.Printf("lifecycle: read wake cause: %v", err)
		cause = logic.WakeUndefined
	}

	level, err := o.d.Reader.Read()
	sensor := logic.ReadState(o.cfg.Identity.Sensor, o.cfg.Identity.Polarity, level)
	if err != nil {
		log.Printf("lifecycle: read sensor at boot: %v", err)
		sensor = logic.StateUndefined
	}

	o.boot = BootContext{
		Count:       count,
		Cause:       cause,
		Reason:      logic.ClassifyWake(count, cause),
		Kind:        logic.KindOf(count, cause),
		SensorLevel: level,
		SensorState: sensor,
		Time:        now,
	}
	log.Printf("lifecycle: boot #%d: %s, sensor %s", count, o.boot.Reason, sensor)

	if o.d.Tracker != nil {
		o.d.Tracker.BeginCycle(status.Boot{
			Count:       count,
			Reason:      o.boot.Reason,
			Kind:        o.boot.Kind,
			SensorState: sensor,
			Time:        now,
		})
	}

	o.setState(StateAssociating)
	err = o.d.Network.Associate(ctx, o.cfg.Credentials, o.cfg.Identity.Hostname)
	o.trackNetwork()
	if err != nil {
		o.backoff(ctx, err.Error())
	}
	return nil
}

func (o *Orchestrator) dispatch(ctx context.Context, ev event.Event) {
	if o.state == StateSleeping {
		return
	}

	switch ev.Kind {
	case event.KindAssociated, event.KindDisassociated:
		out := o.d.Network.Handle(ev)
		o.trackNetwork()
		switch out {
		case network.OutcomeProceed:
			if o.state == StateAssociating {
				o.connectBroker(ctx)
			}
		case network.OutcomeEscalate:
			o.backoff(ctx, "wireless network unavailable")
		}

	case event.KindConnected, event.KindDisconnected, event.KindAcknowledged, event.KindSubscribeAcked:
		out := o.d.Broker.Handle(ev)
		o.trackBroker()
		switch out {
		case mqtt.OutcomeProceed:
			if o.state == StateConnectingBroker {
				o.publish(ctx)
			}
		case mqtt.OutcomeEscalate:
			switch o.state {
			case StateConnectingBroker, StatePublishing, StateAwaitingFinalAck:
				o.backoff(ctx, "broker unreachable")
			}
		case mqtt.OutcomeAck:
			o.acknowledged(ctx, ev.ID)
		}

	default:
		log.Printf("lifecycle: ignoring unknown event %s", ev)
	}
}

// drain dispatches the events already queued without waiting for more.
func (o *Orchestrator) drain(ctx context.Context) {
	for o.state != StateSleeping {
		select {
		case ev, ok := <-o.d.Events:
			if !ok {
				return
			}
			o.dispatch(ctx, ev)
		default:
			return
		}
	}
}

func (o *Orchestrator) connectBroker(ctx context.Context) {
	o.setState(StateConnectingBroker)
	err := o.d.Broker.Connect()
	o.trackBroker()
	if err != nil {
		o.backoff(ctx, err.Error())
	}
}

func (o *Orchestrator) publish(ctx context.Context) {
	o.setState(StatePublishing)

	for _, r := range o.telemetry(ctx) {
		id, err := o.d.Broker.Publish(r)
		o.trackBroker()
		if err != nil {
			o.backoff(ctx, err.Error())
			return
		}
		o.finalID = id
	}
	o.finalSet = true
	log.Printf("lifecycle: %d records published, waiting for ack of id %d", o.d.Broker.Published(), o.finalID)
	o.setState(StateAwaitingFinalAck)
}

func (o *Orchestrator) acknowledged(ctx context.Context, id uint16) {
	if o.state != StateAwaitingFinalAck || !o.finalSet || id != o.finalID {
		return
	}
	o.teardown(ctx)
}

func (o *Orchestrator) teardown(ctx context.Context) {
	o.setState(StateTearingDown)
	o.disconnectAll()
	o.sleep(ctx, ExitNormal, o.cfg.NormalSleep)
}

// backoff abandons the cycle. Whatever session state exists is torn down
// with the manual flag so its disconnect events are not escalated again.
func (o *Orchestrator) backoff(ctx context.Context, reason string) {
	if o.state == StateSleeping {
		return
	}
	log.Printf("lifecycle: backing off from %s: %s", o.state, reason)
	o.disconnectAll()
	o.sleep(ctx, ExitBackoff, o.cfg.BackoffSleep)
}

func (o *Orchestrator) abort() {
	log.Printf("lifecycle: stopping in %s", o.state)
	o.disconnectAll()
	o.exit = ExitAborted
	o.setState(StateSleeping)
	if o.d.Tracker != nil {
		o.d.Tracker.EndCycle(status.Sleep{Exit: string(ExitAborted)})
	}
}

func (o *Orchestrator) disconnectAll() {
	if err := o.d.Broker.Disconnect(true); err != nil {
		log.Printf("lifecycle: %v", err)
	}
	o.trackBroker()
	if err := o.d.Network.Disassociate(true); err != nil {
		log.Printf("lifecycle: %v", err)
	}
	o.trackNetwork()
}

// sleep computes the plan from the level seen right now and suspends.
func (o *Orchestrator) sleep(ctx context.Context, exit Exit, d time.Duration) {
	level, err := o.d.Reader.Read()
	if err != nil {
		log.Printf("lifecycle: read sensor before sleep: %v", err)
		level = o.boot.SensorLevel
	}
	if err := o.d.Reader.Close(); err != nil {
		log.Printf("lifecycle: release sensor: %v", err)
	}

	o.plan = power.ComputeSleepPlan(level, d)
	o.exit = exit
	o.setState(StateSleeping)

	if o.d.Tracker != nil {
		o.d.Tracker.EndCycle(status.Sleep{
			Exit:      string(exit),
			Duration:  d,
			WakeLevel: o.plan.WakeLevel,
			Until:     o.d.Now().Add(d),
		})
		log.Printf("lifecycle: %s", status.FormatCycleEvent(o.d.Tracker.Snapshot(), "SLEEP"))
	}
	log.Printf("lifecycle: %s exit, %s", exit, o.plan)

	o.suspendErr = o.d.Power.Suspend(ctx, o.plan)
}

func (o *Orchestrator) result() Result {
	return Result{
		Exit:      o.exit,
		Plan:      o.plan,
		Boot:      o.boot,
		Published: o.d.Broker.Published(),
	}
}

func (o *Orchestrator) setState(s State) {
	if o.state != s && o.state != "" {
		log.Printf("lifecycle: %s -> %s", o.state, s)
	}
	o.state = s
	if o.d.Tracker != nil {
		o.d.Tracker.SetState(string(s))
	}
}

func (o *Orchestrator) trackNetwork() {
	if o.d.Tracker == nil {
		return
	}
	ip := ""
	if addr, err := o.d.Network.Addr(); err == nil {
		ip = addr.String()
	}
	o.d.Tracker.SetNetwork(string(o.d.Network.Phase()), o.d.Network.Failures(), ip)
}

func (o *Orchestrator) trackBroker() {
	if o.d.Tracker == nil {
		return
	}
	o.d.Tracker.SetBroker(string(o.d.Broker.Phase()), o.d.Broker.IsConnected(), o.d.Broker.Published())
}
