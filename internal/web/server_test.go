package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/contact-sensor/internal/logic"
	"github.com/sweeney/contact-sensor/internal/status"
)

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		SensorType:     "door",
		Polarity:       "nc",
		Hostname:       "ESPNOW_1_DOOR_A1B2C3",
		TopicRoot:      "ESPNOW/1/door-246F28A1B2C3",
		Broker:         "tcp://192.168.0.103:1883",
		HTTPAddr:       ":8080",
		NormalSleepMs:  86400000,
		BackoffSleepMs: 600000,
		AwakeBudgetMs:  60000,
	}
	tr := status.NewTracker(start, cfg)
	srv := New(":0", tr)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, tr
}

func getJSON(t *testing.T, url string) status.StatusJSON {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return sj
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.BeginCycle(status.Boot{Count: 3, Reason: "Wakeup caused by timer", Kind: logic.WakeKindTimer, SensorState: logic.StateClosed})
	tr.SetState("AWAITING_FINAL_ACK")
	tr.SetNetwork("ASSOCIATED", 0, "192.168.0.42")
	tr.SetBroker("CONNECTED", true, 9)

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}

	if sj.Status.State != "AWAITING_FINAL_ACK" {
		t.Errorf("State: got %q", sj.Status.State)
	}
	if sj.Status.Sensor != "closed" {
		t.Errorf("Sensor: got %q, want closed", sj.Status.Sensor)
	}
	if sj.Status.Boot.Count != 3 {
		t.Errorf("Boot.Count: got %d, want 3", sj.Status.Boot.Count)
	}
	if sj.Status.Network.IP != "192.168.0.42" {
		t.Errorf("Network.IP: got %q", sj.Status.Network.IP)
	}
	if !sj.Status.MQTT.Connected || sj.Status.MQTT.Published != 9 {
		t.Errorf("MQTT: got %+v", sj.Status.MQTT)
	}
	if sj.Status.MQTT.Broker != "tcp://192.168.0.103:1883" {
		t.Errorf("MQTT.Broker: got %q", sj.Status.MQTT.Broker)
	}
	if sj.Status.Config.TopicRoot != "ESPNOW/1/door-246F28A1B2C3" {
		t.Errorf("Config.TopicRoot: got %q", sj.Status.Config.TopicRoot)
	}
}

func TestJSONUnknownBeforeFirstCycle(t *testing.T) {
	ts, _ := newTestServer(t)

	sj := getJSON(t, ts.URL+"/index.json")
	if sj.Status.State != "UNKNOWN" {
		t.Errorf("State: got %q, want UNKNOWN", sj.Status.State)
	}
	if sj.Status.Sensor != "UNKNOWN" {
		t.Errorf("Sensor: got %q, want UNKNOWN", sj.Status.Sensor)
	}
	if sj.Status.LastSleep != nil {
		t.Errorf("LastSleep: got %+v, want nil", sj.Status.LastSleep)
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.BeginCycle(status.Boot{Count: 1, Reason: logic.FirstBoot, Kind: logic.WakeKindColdBoot, SensorState: logic.StateOpen})
	tr.EndCycle(status.Sleep{Exit: "NORMAL", Duration: 24 * time.Hour, WakeLevel: true})

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	page := string(body)
	for _, want := range []string{"ESPNOW_1_DOOR_A1B2C3", "First boot", `class="alert">open`, "1d 0h 0m 0s or rising edge"} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestHTMLEndpointIndexHTML(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/index.html")
	if err != nil {
		t.Fatalf("GET /index.html: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nonexistent")
	if err != nil {
		t.Fatalf("GET /nonexistent: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestCycleChangesReflectedInResponse(t *testing.T) {
	ts, tr := newTestServer(t)

	tr.BeginCycle(status.Boot{Count: 1, SensorState: logic.StateDry})
	sj1 := getJSON(t, ts.URL+"/index.json")
	if sj1.Status.Cycles != 1 {
		t.Errorf("Cycles: got %d, want 1", sj1.Status.Cycles)
	}

	tr.SetSensor(logic.StateWet)
	tr.EndCycle(status.Sleep{Exit: "BACKOFF", Duration: 10 * time.Minute})
	tr.BeginCycle(status.Boot{Count: 2, SensorState: logic.StateWet})

	sj2 := getJSON(t, ts.URL+"/index.json")
	if sj2.Status.Cycles != 2 {
		t.Errorf("Cycles: got %d, want 2", sj2.Status.Cycles)
	}
	if sj2.Status.Sensor != "wet" {
		t.Errorf("Sensor: got %q, want wet", sj2.Status.Sensor)
	}
	if sj2.Status.LastSleep == nil || sj2.Status.LastSleep.Exit != "BACKOFF" {
		t.Errorf("LastSleep: got %+v", sj2.Status.LastSleep)
	}
}
