// Package config loads the node configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/contact-sensor/internal/logic"
)

// Config holds everything the node needs for one cycle.
type Config struct {
	Sensor    SensorConfig `yaml:"sensor"`
	WiFi      WiFiConfig   `yaml:"wifi"`
	MQTT      MQTTConfig   `yaml:"mqtt"`
	NTP       NTPConfig    `yaml:"ntp"`
	Sleep     SleepConfig  `yaml:"sleep"`
	Timing    TimingConfig `yaml:"timing"`
	HTTP      string       `yaml:"http"`
	Firmware  string       `yaml:"firmware_version"`

	// StatePath holds the boot counter and wake cause. It belongs on tmpfs
	// so a power cycle clears it and the next boot reports "First boot".
	StatePath string `yaml:"state_path"`
}

// SensorConfig describes the contact input.
type SensorConfig struct {
	Type     string `yaml:"type"`     // door, flood, rain, mailbox
	Polarity string `yaml:"polarity"` // nc, no
	Chip     string `yaml:"chip"`
	Pin      int    `yaml:"pin"`
}

// WiFiConfig holds association settings.
type WiFiConfig struct {
	Interface string `yaml:"interface"`
	SSID      string `yaml:"ssid"`
	Password  string `yaml:"password"`
	Hostname  string `yaml:"hostname"` // prefix; type and MAC are appended
	Retries   int    `yaml:"retries"`

	// ManageLink lets the node bring the interface up and down itself.
	ManageLink bool `yaml:"manage_link"`
}

// MQTTConfig holds broker settings.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Topic    string `yaml:"topic"`
}

// NTPConfig holds time service settings.
type NTPConfig struct {
	Server         string        `yaml:"server"`
	Offset         time.Duration `yaml:"offset"`
	DaylightOffset time.Duration `yaml:"daylight_offset"`
}

// SleepConfig holds the two sleep presets.
type SleepConfig struct {
	Normal  time.Duration `yaml:"normal"`
	Backoff time.Duration `yaml:"backoff"`
}

// TimingConfig bounds the awake phase.
type TimingConfig struct {
	AwakeBudget time.Duration `yaml:"awake_budget"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Sensor: SensorConfig{
			Type:     "door",
			Polarity: "nc",
			Chip:     "gpiochip0",
			Pin:      15,
		},
		WiFi: WiFiConfig{
			Interface: "wlan0",
			Hostname:  "ESPNOW_1",
			Retries:   10,
		},
		MQTT: MQTTConfig{
			Broker: "tcp://192.168.0.103:1883",
			Topic:  "ESPNOW/1",
		},
		NTP: NTPConfig{
			Server: "pool.ntp.org",
		},
		Sleep: SleepConfig{
			Normal:  24 * time.Hour,
			Backoff: 10 * time.Minute,
		},
		Timing: TimingConfig{
			AwakeBudget: 60 * time.Second,
		},
		StatePath: "/run/contact-sensor/retain.db",
		Firmware:  "1.0.5",
	}
}

// Load reads configuration from a YAML file on top of Default.
// Environment variables in the file are expanded, so secrets can stay out of it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail deep inside a cycle.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.SensorType(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Polarity(); err != nil {
		errs = append(errs, err)
	}
	if c.Sensor.Pin < 0 {
		errs = append(errs, fmt.Errorf("sensor.pin must be >= 0, got %d", c.Sensor.Pin))
	}
	if c.WiFi.Retries < 1 {
		errs = append(errs, fmt.Errorf("wifi.retries must be >= 1, got %d", c.WiFi.Retries))
	}
	if c.MQTT.Broker == "" {
		errs = append(errs, errors.New("mqtt.broker is required"))
	}
	if c.Sleep.Normal <= 0 || c.Sleep.Backoff <= 0 {
		errs = append(errs, errors.New("sleep.normal and sleep.backoff must be positive"))
	}
	if c.Timing.AwakeBudget <= 0 {
		errs = append(errs, errors.New("timing.awake_budget must be positive"))
	}
	return errors.Join(errs...)
}

// SensorType parses Sensor.Type.
func (c *Config) SensorType() (logic.SensorType, error) {
	return logic.ParseSensorType(c.Sensor.Type)
}

// Polarity parses Sensor.Polarity.
func (c *Config) Polarity() (logic.Polarity, error) {
	return logic.ParsePolarity(c.Sensor.Polarity)
}
