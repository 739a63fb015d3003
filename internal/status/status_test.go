package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/contact-sensor/internal/logic"
)

func testConfig() Config {
	return Config{
		SensorType:     "door",
		Polarity:       "NC",
		Hostname:       "ESPNOW_1_DOOR_A1B2C3",
		TopicRoot:      "ESPNOW/1/door-246F28A1B2C3",
		Broker:         "tcp://localhost:1883",
		NormalSleepMs:  86400000,
		BackoffSleepMs: 600000,
		AwakeBudgetMs:  60000,
	}
}

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := NewTracker(start, testConfig())

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config.Hostname != "ESPNOW_1_DOOR_A1B2C3" {
		t.Errorf("Config.Hostname: got %q", snap.Config.Hostname)
	}
	if snap.Cycles != 0 {
		t.Errorf("Cycles: got %d, want 0", snap.Cycles)
	}
	if snap.LastSleep != nil {
		t.Error("expected nil LastSleep initially")
	}
}

func TestBeginCycleResetsPerCycleFields(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.BeginCycle(Boot{Count: 1, Reason: logic.FirstBoot, Kind: logic.WakeKindColdBoot, SensorState: logic.StateClosed})
	tr.SetNetwork("ASSOCIATED", 2, "192.168.0.50")
	tr.SetBroker("CONNECTED", true, 9)

	tr.BeginCycle(Boot{Count: 2, Reason: "Wakeup caused by timer", Kind: logic.WakeKindTimer, SensorState: logic.StateOpen})

	snap := tr.Snapshot()
	if snap.Cycles != 2 {
		t.Errorf("Cycles: got %d, want 2", snap.Cycles)
	}
	if snap.Boot.Count != 2 {
		t.Errorf("Boot.Count: got %d", snap.Boot.Count)
	}
	if snap.Sensor != logic.StateOpen {
		t.Errorf("Sensor: got %q, want boot snapshot", snap.Sensor)
	}
	if snap.IP != "" || snap.NetworkFailures != 0 || snap.NetworkPhase != "" {
		t.Errorf("network fields not reset: %+v", snap)
	}
	if snap.MQTTConnected || snap.Published != 0 {
		t.Errorf("broker fields not reset: %+v", snap)
	}
}

func TestSetters(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.SetState("PUBLISHING")
	tr.SetNetwork("ASSOCIATED", 0, "10.0.0.2")
	tr.SetBroker("CONNECTED", true, 4)
	tr.SetSensor(logic.StateWet)

	snap := tr.Snapshot()
	if snap.State != "PUBLISHING" {
		t.Errorf("State: got %q", snap.State)
	}
	if snap.IP != "10.0.0.2" {
		t.Errorf("IP: got %q", snap.IP)
	}
	if !snap.MQTTConnected || snap.Published != 4 {
		t.Errorf("broker: got connected=%v published=%d", snap.MQTTConnected, snap.Published)
	}
	if snap.Sensor != logic.StateWet {
		t.Errorf("Sensor: got %q", snap.Sensor)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.EndCycle(Sleep{Exit: "NORMAL", Duration: time.Hour})

	snap1 := tr.Snapshot()
	tr.EndCycle(Sleep{Exit: "BACKOFF", Duration: time.Minute})

	if snap1.LastSleep.Exit != "NORMAL" {
		t.Error("snapshot should be a copy; LastSleep was modified")
	}
}

func TestSnapshotUptimeAndAwake(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		StartTime: start,
		Boot:      Boot{Time: start.Add(10 * time.Minute)},
		Now:       start.Add(15 * time.Minute),
	}

	if snap.Uptime() != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", snap.Uptime())
	}
	if snap.Awake() != 5*time.Minute {
		t.Errorf("Awake: got %v, want 5m", snap.Awake())
	}
	if (Snapshot{}).Awake() != 0 {
		t.Error("Awake without a boot time should be 0")
	}
}

func TestSnapshotNowIsSet(t *testing.T) {
	tr := NewTracker(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Config{})
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tr.now = func() time.Time { return fixed }

	if snap := tr.Snapshot(); !snap.Now.Equal(fixed) {
		t.Errorf("Now: got %v, want %v", snap.Now, fixed)
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			tr.SetState("PUBLISHING")
			tr.SetBroker("CONNECTED", true, i)
			tr.EndCycle(Sleep{Exit: "NORMAL"})
		}(i)
		go func() {
			defer wg.Done()
			_ = FormatJSON(tr.Snapshot())
		}()
	}
	wg.Wait()
}

func TestFormatJSON(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		State:         "SLEEPING",
		Boot:          Boot{Count: 3, Reason: "Wakeup caused by timer", Kind: logic.WakeKindTimer, SensorState: logic.StateClosed, Time: start.Add(14 * time.Minute)},
		Sensor:        logic.StateOpen,
		NetworkPhase:  "IDLE",
		BrokerPhase:   "IDLE",
		Published:     9,
		Cycles:        3,
		LastSleep:     &Sleep{Exit: "NORMAL", Duration: 24 * time.Hour, WakeLevel: true, Until: start.Add(24*time.Hour + 15*time.Minute)},
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: false,
		Config:        testConfig(),
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	s := parsed.Status
	if s.State != "SLEEPING" {
		t.Errorf("State: got %q", s.State)
	}
	if s.Sensor != "open" {
		t.Errorf("Sensor: got %q", s.Sensor)
	}
	if s.Boot.Count != 3 || s.Boot.Kind != "TIMER" || s.Boot.State != "closed" {
		t.Errorf("Boot: got %+v", s.Boot)
	}
	if s.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", s.UptimeSeconds)
	}
	if s.AwakeMs != 60000 {
		t.Errorf("AwakeMs: got %d, want 60000", s.AwakeMs)
	}
	if s.MQTT.Published != 9 {
		t.Errorf("MQTT.Published: got %d", s.MQTT.Published)
	}
	if s.LastSleep == nil {
		t.Fatal("expected last_sleep")
	}
	if s.LastSleep.Exit != "NORMAL" || s.LastSleep.DurationMs != 86400000 || !s.LastSleep.WakeLevel {
		t.Errorf("LastSleep: got %+v", s.LastSleep)
	}
	if s.LastSleep.Until != "2026-01-02T00:15:00Z" {
		t.Errorf("LastSleep.Until: got %q", s.LastSleep.Until)
	}
	if s.Event != "" {
		t.Errorf("expected empty Event for web format, got %q", s.Event)
	}
}

func TestFormatJSONUnknownState(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	var parsed StatusJSON
	json.Unmarshal(FormatJSON(snap), &parsed)

	if parsed.Status.State != "UNKNOWN" {
		t.Errorf("State: got %q, want UNKNOWN", parsed.Status.State)
	}
	if parsed.Status.Sensor != "UNKNOWN" {
		t.Errorf("Sensor: got %q, want UNKNOWN", parsed.Status.Sensor)
	}
	if parsed.Status.LastSleep != nil {
		t.Error("expected last_sleep omitted")
	}
}

func TestFormatCycleEvent(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		State:     "SLEEPING",
		StartTime: start,
		Now:       start.Add(time.Second),
		LastSleep: &Sleep{Exit: "BACKOFF", Duration: 10 * time.Minute},
	}

	data := FormatCycleEvent(snap, "CYCLE_END")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Event != "CYCLE_END" {
		t.Errorf("Event: got %q", parsed.Status.Event)
	}
	if parsed.Status.LastSleep.Exit != "BACKOFF" {
		t.Errorf("LastSleep.Exit: got %q", parsed.Status.LastSleep.Exit)
	}
	for _, b := range data {
		if b == '\n' {
			t.Fatal("cycle event should be a single line")
		}
	}
}
