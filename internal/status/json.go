package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string      `json:"event,omitempty"`
	State         string      `json:"state"`
	Sensor        string      `json:"sensor"`
	Cycles        int         `json:"cycles"`
	UptimeSeconds int64       `json:"uptime_seconds"`
	AwakeMs       int64       `json:"awake_ms"`
	StartTime     string      `json:"start_time"`
	Timestamp     string      `json:"timestamp"`
	Boot          BootJSON    `json:"boot"`
	Network       NetworkJSON `json:"network"`
	MQTT          MQTTStatus  `json:"mqtt"`
	LastSleep     *SleepJSON  `json:"last_sleep,omitempty"`
	Config        ConfigJSON  `json:"config"`
}

// BootJSON is the JSON representation of the boot context.
type BootJSON struct {
	Count  int    `json:"count"`
	Reason string `json:"reason"`
	Kind   string `json:"kind"`
	State  string `json:"state"`
}

// NetworkJSON is the JSON representation of the association state.
type NetworkJSON struct {
	Phase    string `json:"phase"`
	Failures int    `json:"failures"`
	IP       string `json:"ip,omitempty"`
}

// MQTTStatus reports broker session state.
type MQTTStatus struct {
	Phase     string `json:"phase"`
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
	Published int    `json:"published"`
}

// SleepJSON describes the last sleep plan.
type SleepJSON struct {
	Exit       string `json:"exit"`
	DurationMs int64  `json:"duration_ms"`
	WakeLevel  bool   `json:"wake_level"`
	Until      string `json:"until,omitempty"`
}

// ConfigJSON is the JSON representation of node config.
type ConfigJSON struct {
	SensorType     string `json:"sensor_type"`
	Polarity       string `json:"polarity"`
	Hostname       string `json:"hostname"`
	TopicRoot      string `json:"topic_root"`
	HTTPAddr       string `json:"http_addr,omitempty"`
	NormalSleepMs  int64  `json:"normal_sleep_ms"`
	BackoffSleepMs int64  `json:"backoff_sleep_ms"`
	AwakeBudgetMs  int64  `json:"awake_budget_ms"`
}

func orUnknown(s string) string {
	if s == "" {
		return "UNKNOWN"
	}
	return s
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		State:         orUnknown(snap.State),
		Sensor:        orUnknown(string(snap.Sensor)),
		Cycles:        snap.Cycles,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		AwakeMs:       snap.Awake().Milliseconds(),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Boot: BootJSON{
			Count:  snap.Boot.Count,
			Reason: snap.Boot.Reason,
			Kind:   string(snap.Boot.Kind),
			State:  orUnknown(string(snap.Boot.SensorState)),
		},
		Network: NetworkJSON{
			Phase:    orUnknown(snap.NetworkPhase),
			Failures: snap.NetworkFailures,
			IP:       snap.IP,
		},
		MQTT: MQTTStatus{
			Phase:     orUnknown(snap.BrokerPhase),
			Connected: snap.MQTTConnected,
			Broker:    snap.Config.Broker,
			Published: snap.Published,
		},
		Config: ConfigJSON{
			SensorType:     snap.Config.SensorType,
			Polarity:       snap.Config.Polarity,
			Hostname:       snap.Config.Hostname,
			TopicRoot:      snap.Config.TopicRoot,
			HTTPAddr:       snap.Config.HTTPAddr,
			NormalSleepMs:  snap.Config.NormalSleepMs,
			BackoffSleepMs: snap.Config.BackoffSleepMs,
			AwakeBudgetMs:  snap.Config.AwakeBudgetMs,
		},
	}

	if snap.LastSleep != nil {
		sj := &SleepJSON{
			Exit:       snap.LastSleep.Exit,
			DurationMs: snap.LastSleep.Duration.Milliseconds(),
			WakeLevel:  snap.LastSleep.WakeLevel,
		}
		if !snap.LastSleep.Until.IsZero() {
			sj.Until = snap.LastSleep.Until.UTC().Format(time.RFC3339)
		}
		inner.LastSleep = sj
	}
	return inner
}

// FormatJSON returns the indented JSON status for the web endpoint.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatCycleEvent returns a compact JSON status tagged with event,
// logged when a cycle ends.
func FormatCycleEvent(snap Snapshot, event string) []byte {
	inner := buildInner(snap)
	inner.Event = event

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
