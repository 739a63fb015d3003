// Package status provides a thread-safe status tracker for the contact-sensor node.
// It is written by the lifecycle loop and read by the HTTP page and the
// end-of-cycle report.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/contact-sensor/internal/logic"
)

// Config contains node configuration for display.
type Config struct {
	SensorType     string
	Polarity       string
	Hostname       string
	TopicRoot      string
	Broker         string
	HTTPAddr       string
	NormalSleepMs  int64
	BackoffSleepMs int64
	AwakeBudgetMs  int64
}

// Boot describes the current cycle's boot context.
type Boot struct {
	Count       int
	Reason      string
	Kind        logic.WakeKind
	SensorState logic.State
	Time        time.Time
}

// Sleep describes how the last cycle ended.
type Sleep struct {
	Exit      string // NORMAL, BACKOFF, ABORTED
	Duration  time.Duration
	WakeLevel bool
	Until     time.Time
}

// Snapshot is a point-in-time view of node state.
// It is a value type and stays valid after the lock is released.
type Snapshot struct {
	State           string
	Boot            Boot
	Sensor          logic.State
	NetworkPhase    string
	NetworkFailures int
	IP              string
	BrokerPhase     string
	MQTTConnected   bool
	Published       int
	Cycles          int
	LastSleep       *Sleep
	StartTime       time.Time
	Now             time.Time
	Config          Config
}

// Uptime returns the duration since the process started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Awake returns how long the current cycle has been running.
func (s Snapshot) Awake() time.Duration {
	if s.Boot.Time.IsZero() {
		return 0
	}
	return s.Now.Sub(s.Boot.Time)
}

// Tracker holds mutable node state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// BeginCycle resets per-cycle fields and records the boot context.
func (t *Tracker) BeginCycle(boot Boot) {
	t.mu.Lock()
	t.snap.Cycles++
	t.snap.Boot = boot
	t.snap.Sensor = boot.SensorState
	t.snap.NetworkPhase = ""
	t.snap.NetworkFailures = 0
	t.snap.IP = ""
	t.snap.BrokerPhase = ""
	t.snap.MQTTConnected = false
	t.snap.Published = 0
	t.mu.Unlock()
}

// SetState records the lifecycle state.
func (t *Tracker) SetState(state string) {
	t.mu.Lock()
	t.snap.State = state
	t.mu.Unlock()
}

// SetNetwork records the association state.
func (t *Tracker) SetNetwork(phase string, failures int, ip string) {
	t.mu.Lock()
	t.snap.NetworkPhase = phase
	t.snap.NetworkFailures = failures
	t.snap.IP = ip
	t.mu.Unlock()
}

// SetBroker records the broker session state.
func (t *Tracker) SetBroker(phase string, connected bool, published int) {
	t.mu.Lock()
	t.snap.BrokerPhase = phase
	t.snap.MQTTConnected = connected
	t.snap.Published = published
	t.mu.Unlock()
}

// SetSensor records the latest sensor reading.
func (t *Tracker) SetSensor(s logic.State) {
	t.mu.Lock()
	t.snap.Sensor = s
	t.mu.Unlock()
}

// EndCycle records how the cycle ended.
func (t *Tracker) EndCycle(sl Sleep) {
	t.mu.Lock()
	t.snap.LastSleep = &sl
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the node state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	if s.LastSleep != nil {
		sl := *s.LastSleep
		s.LastSleep = &sl
	}
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
