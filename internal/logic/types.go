// Package logic contains pure domain logic for the contact sensor node.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
package logic

import (
	"fmt"
	"strings"
)

// State is the domain reading of the contact input.
type State string

const (
	StateOpen      State = "open"
	StateClosed    State = "closed"
	StateDry       State = "dry"
	StateWet       State = "wet"
	StateUndefined State = "undefined"
)

// SensorType selects how the contact level is interpreted.
type SensorType int

const (
	SensorUnknown SensorType = iota
	SensorDoorWindow
	SensorFlood
	SensorRain
	SensorMailbox
)

// Name returns the short name used in topics and hostnames.
func (t SensorType) Name() string {
	switch t {
	case SensorDoorWindow:
		return "door"
	case SensorFlood:
		return "flood"
	case SensorRain:
		return "rain"
	case SensorMailbox:
		return "mailbox"
	default:
		return "unknown"
	}
}

func (t SensorType) String() string { return t.Name() }

// ParseSensorType accepts the short names plus a few aliases.
func ParseSensorType(s string) (SensorType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "door", "dw", "window", "door_window":
		return SensorDoorWindow, nil
	case "flood":
		return SensorFlood, nil
	case "rain":
		return SensorRain, nil
	case "mailbox":
		return SensorMailbox, nil
	}
	return SensorUnknown, fmt.Errorf("unknown sensor type %q", s)
}

// Polarity describes how the switch is wired.
type Polarity int

const (
	NormallyClosed Polarity = iota
	NormallyOpen
)

func (p Polarity) String() string {
	if p == NormallyOpen {
		return "NO"
	}
	return "NC"
}

// ParsePolarity accepts "nc"/"no" and the long forms.
func ParsePolarity(s string) (Polarity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "nc", "normally_closed", "normally-closed", "":
		return NormallyClosed, nil
	case "no", "normally_open", "normally-open":
		return NormallyOpen, nil
	}
	return NormallyClosed, fmt.Errorf("unknown switch polarity %q", s)
}
