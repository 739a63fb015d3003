package config

import (
	"net"
	"strings"

	"github.com/sweeney/contact-sensor/internal/logic"
)

// Identity is the device identity derived from config and the hardware id.
type Identity struct {
	Sensor     logic.SensorType
	Polarity   logic.Polarity
	HardwareID string // 12 upper-case hex digits, no separators
	Hostname   string
	TopicRoot  string // <topic>/<type>-<hardware id>
}

// NewIdentity derives hostname and topic prefix.
//
//	hostname: <prefix>_<TYPE>_<last 6 hex digits>
//	topic:    <root>/<type>-<hardware id>
func NewIdentity(cfg *Config, hardwareID string) (Identity, error) {
	st, err := cfg.SensorType()
	if err != nil {
		return Identity{}, err
	}
	pol, err := cfg.Polarity()
	if err != nil {
		return Identity{}, err
	}

	id := strings.ToUpper(strings.NewReplacer(":", "", "-", "").Replace(hardwareID))
	short := id
	if len(short) > 6 {
		short = short[len(short)-6:]
	}

	return Identity{
		Sensor:     st,
		Polarity:   pol,
		HardwareID: id,
		Hostname:   cfg.WiFi.Hostname + "_" + strings.ToUpper(st.Name()) + "_" + short,
		TopicRoot:  strings.TrimSuffix(cfg.MQTT.Topic, "/") + "/" + st.Name() + "-" + id,
	}, nil
}

// HardwareIDFromMAC formats a MAC address as a hardware id.
func HardwareIDFromMAC(mac net.HardwareAddr) string {
	return strings.ToUpper(strings.ReplaceAll(mac.String(), ":", ""))
}
