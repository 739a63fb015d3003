// Package mqtt manages the broker session for one wake cycle, with an
// abstraction over the client library for testing.
package mqtt

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/sweeney/contact-sensor/internal/event"
)

// All telemetry is published exactly-once and retained, so a dashboard
// subscribing while the node sleeps still sees the last cycle.
const (
	QoS      byte = 2
	Retained bool = true
)

// ErrInvalidState is returned by Publish when the session is not connected.
var ErrInvalidState = errors.New("broker session not connected")

// Transport is the broker client below the session.
// Implementations report progress by pushing events into their sink.
type Transport interface {
	// Connect starts connecting; the result arrives as Connected or Disconnected.
	Connect() error

	// Disconnect closes the connection.
	Disconnect() error

	// Publish queues a message and returns its packet id. The
	// acknowledgment arrives later as an Acknowledged event.
	Publish(topic string, qos byte, retained bool, payload string) (uint16, error)
}

// ConnectionStatus reports whether the broker connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Record is one telemetry value, published under <root>/<suffix>.
type Record struct {
	Suffix string
	Value  string
}

// Topic joins the device topic root and a record suffix.
func Topic(root, suffix string) string {
	return strings.TrimSuffix(root, "/") + "/" + suffix
}

// Phase is the broker session phase.
type Phase string

const (
	PhaseIdle          Phase = "IDLE"
	PhaseConnecting    Phase = "CONNECTING"
	PhaseConnected     Phase = "CONNECTED"
	PhaseDisconnecting Phase = "DISCONNECTING"
)

// Outcome tells the lifecycle what an event means for it.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeProceed
	OutcomeEscalate
	OutcomeAck
)

// Session tracks the broker connection and the last issued publish.
// Owned by the lifecycle goroutine. Not safe for concurrent use.
type Session struct {
	transport Transport
	root      string

	phase     Phase
	manual    bool
	lastID    uint16
	lastAcked bool
	published int
}

// NewSession creates a session publishing under root.
func NewSession(t Transport, root string) *Session {
	return &Session{transport: t, root: root, phase: PhaseIdle}
}

// Connect starts the broker connection. The manual flag from a previous
// teardown is cleared.
func (s *Session) Connect() error {
	log.Printf("mqtt: connecting")
	s.manual = false
	s.phase = PhaseConnecting
	if err := s.transport.Connect(); err != nil {
		s.phase = PhaseIdle
		return fmt.Errorf("connect: %w", err)
	}
	return nil
}

// Disconnect closes the connection. With manual set, the resulting
// Disconnected event is swallowed whatever its reason.
func (s *Session) Disconnect(manual bool) error {
	if s.phase == PhaseIdle {
		return nil
	}
	log.Printf("mqtt: disconnecting (manual=%v)", manual)
	s.manual = manual
	s.phase = PhaseDisconnecting
	if err := s.transport.Disconnect(); err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	return nil
}

// Publish sends one record and makes it the outstanding publish.
func (s *Session) Publish(r Record) (uint16, error) {
	if s.phase != PhaseConnected {
		return 0, fmt.Errorf("publish %s: %w (phase %s)", r.Suffix, ErrInvalidState, s.phase)
	}
	topic := Topic(s.root, r.Suffix)
	id, err := s.transport.Publish(topic, QoS, Retained, r.Value)
	if err != nil {
		return 0, fmt.Errorf("publish %s: %w", r.Suffix, err)
	}
	log.Printf("mqtt: published %s = %q (id %d)", topic, r.Value, id)
	s.lastID = id
	s.lastAcked = false
	s.published++
	return id, nil
}

// Handle applies a broker event and reports what the caller should do.
func (s *Session) Handle(ev event.Event) Outcome {
	switch ev.Kind {
	case event.KindConnected:
		if s.phase != PhaseConnecting {
			return OutcomeNone
		}
		s.phase = PhaseConnected
		log.Printf("mqtt: connected (session present: %v)", ev.SessionPresent)
		return OutcomeProceed

	case event.KindDisconnected:
		wasManual := s.manual
		s.phase = PhaseIdle
		if wasManual {
			return OutcomeNone
		}
		if ev.Reason == event.ReasonTransportFailure {
			log.Printf("mqtt: can't connect to broker: %v", ev.Err)
			return OutcomeEscalate
		}
		log.Printf("mqtt: disconnected: %s (code %d)", ev.Reason, ev.Code)
		return OutcomeNone

	case event.KindAcknowledged:
		log.Printf("mqtt: publish acknowledged (id %d)", ev.ID)
		if ev.ID == s.lastID {
			s.lastAcked = true
		}
		return OutcomeAck

	case event.KindSubscribeAcked:
		log.Printf("mqtt: subscribe acknowledged (id %d, qos %d)", ev.ID, ev.QoS)
	}
	return OutcomeNone
}

// Phase returns the current phase.
func (s *Session) Phase() Phase { return s.phase }

// IsConnected implements ConnectionStatus.
func (s *Session) IsConnected() bool { return s.phase == PhaseConnected }

// Manual reports whether the last disconnect was requested by the node.
func (s *Session) Manual() bool { return s.manual }

// LastPublishID returns the id of the most recent publish.
func (s *Session) LastPublishID() uint16 { return s.lastID }

// LastAcked reports whether the most recent publish has been acknowledged.
func (s *Session) LastAcked() bool { return s.lastAcked }

// Published returns the number of publishes issued.
func (s *Session) Published() int { return s.published }
