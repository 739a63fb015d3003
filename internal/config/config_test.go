package config

import (
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/contact-sensor/internal/logic"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestDefaultStatePathIsVolatile(t *testing.T) {
	// The boot counter must reset on power loss like RTC memory.
	if got := Default().StatePath; got != "/run/contact-sensor/retain.db" {
		t.Errorf("StatePath: got %q, want a path under /run", got)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	t.Setenv("TEST_MQTT_PASSWORD", "s3cret")
	path := writeConfig(t, `
sensor:
  type: flood
  polarity: no
  pin: 4
wifi:
  ssid: home
  retries: 5
mqtt:
  broker: tcp://broker.local:1883
  password: ${TEST_MQTT_PASSWORD}
sleep:
  backoff: 5m
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Sensor.Type != "flood" {
		t.Errorf("Sensor.Type: got %q", cfg.Sensor.Type)
	}
	if cfg.Sensor.Pin != 4 {
		t.Errorf("Sensor.Pin: got %d", cfg.Sensor.Pin)
	}
	if cfg.WiFi.Retries != 5 {
		t.Errorf("WiFi.Retries: got %d", cfg.WiFi.Retries)
	}
	if cfg.MQTT.Password != "s3cret" {
		t.Errorf("MQTT.Password: env not expanded, got %q", cfg.MQTT.Password)
	}
	if cfg.Sleep.Backoff != 5*time.Minute {
		t.Errorf("Sleep.Backoff: got %v", cfg.Sleep.Backoff)
	}
	// Untouched fields keep their defaults.
	if cfg.Sleep.Normal != 24*time.Hour {
		t.Errorf("Sleep.Normal: got %v, want default 24h", cfg.Sleep.Normal)
	}
	if cfg.NTP.Server != "pool.ntp.org" {
		t.Errorf("NTP.Server: got %q", cfg.NTP.Server)
	}

	pol, _ := cfg.Polarity()
	if pol != logic.NormallyOpen {
		t.Errorf("Polarity: got %v", pol)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := writeConfig(t, `
sensor:
  type: garage
wifi:
  retries: 0
`)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "garage") {
		t.Errorf("error should name the bad sensor type: %v", err)
	}
	if !strings.Contains(err.Error(), "wifi.retries") {
		t.Errorf("error should name wifi.retries: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestNewIdentity(t *testing.T) {
	cfg := Default()
	mac, _ := net.ParseMAC("24:6f:28:a1:b2:c3")

	id, err := NewIdentity(cfg, HardwareIDFromMAC(mac))
	if err != nil {
		t.Fatalf("NewIdentity: %v", err)
	}
	if id.HardwareID != "246F28A1B2C3" {
		t.Errorf("HardwareID: got %q", id.HardwareID)
	}
	if id.Hostname != "ESPNOW_1_DOOR_A1B2C3" {
		t.Errorf("Hostname: got %q", id.Hostname)
	}
	if id.TopicRoot != "ESPNOW/1/door-246F28A1B2C3" {
		t.Errorf("TopicRoot: got %q", id.TopicRoot)
	}
	if id.Sensor != logic.SensorDoorWindow {
		t.Errorf("Sensor: got %v", id.Sensor)
	}
}

func TestNewIdentityShortID(t *testing.T) {
	cfg := Default()
	cfg.Sensor.Type = "mailbox"
	cfg.MQTT.Topic = "home/"

	id, err := NewIdentity(cfg, "abc")
	if err != nil {
		t.Fatalf("NewIdentity: %v", err)
	}
	if id.Hostname != "ESPNOW_1_MAILBOX_ABC" {
		t.Errorf("Hostname: got %q", id.Hostname)
	}
	if id.TopicRoot != "home/mailbox-ABC" {
		t.Errorf("TopicRoot: got %q", id.TopicRoot)
	}
}
