// Package network tracks the wireless association for one wake cycle.
//
// The Session does not retry on its own. Drivers are expected to keep
// re-associating in the background; the Session only counts consecutive
// failures and tells the caller when to give up.
package network

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"

	"github.com/sweeney/contact-sensor/internal/event"
)

// DefaultRetries is the number of consecutive failed associations
// before the cycle is abandoned.
const DefaultRetries = 10

// ErrNotAssociated is returned by operations that need an address.
var ErrNotAssociated = errors.New("network not associated")

// Phase is the association phase.
type Phase string

const (
	PhaseIdle          Phase = "IDLE"
	PhaseAssociating   Phase = "ASSOCIATING"
	PhaseAssociated    Phase = "ASSOCIATED"
	PhaseDisconnecting Phase = "DISCONNECTING"
)

// Outcome tells the lifecycle what an event means for it.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeProceed
	OutcomeEscalate
)

// Credentials for the access point.
type Credentials struct {
	SSID     string
	Password string
}

// Driver performs association below the event interface.
// Drivers report progress by pushing events into the sink they were built with.
type Driver interface {
	Associate(ctx context.Context, creds Credentials, hostname string) error
	Disassociate() error
	HardwareAddr() (net.HardwareAddr, error)
}

// Session is owned by the lifecycle goroutine. Not safe for concurrent use.
type Session struct {
	driver    Driver
	threshold int

	phase    Phase
	manual   bool
	failures int
	addr     net.IP
}

// NewSession creates a Session that escalates after threshold failures.
func NewSession(d Driver, threshold int) *Session {
	if threshold < 1 {
		threshold = DefaultRetries
	}
	return &Session{driver: d, threshold: threshold, phase: PhaseIdle}
}

// Associate starts association. The manual flag from a previous teardown is cleared.
func (s *Session) Associate(ctx context.Context, creds Credentials, hostname string) error {
	log.Printf("network: connecting to %q as %s", creds.SSID, hostname)
	s.manual = false
	s.phase = PhaseAssociating
	if err := s.driver.Associate(ctx, creds, hostname); err != nil {
		s.phase = PhaseIdle
		return fmt.Errorf("associate: %w", err)
	}
	return nil
}

// Disassociate tears the association down. With manual set, the resulting
// Disassociated event is swallowed instead of counted.
func (s *Session) Disassociate(manual bool) error {
	if s.phase == PhaseIdle {
		return nil
	}
	log.Printf("network: disconnecting (manual=%v)", manual)
	s.manual = manual
	s.phase = PhaseDisconnecting
	if err := s.driver.Disassociate(); err != nil {
		return fmt.Errorf("disassociate: %w", err)
	}
	return nil
}

// Handle applies an association event and reports what the caller should do.
// Events of other kinds are ignored.
func (s *Session) Handle(ev event.Event) Outcome {
	switch ev.Kind {
	case event.KindAssociated:
		if s.phase == PhaseDisconnecting || s.phase == PhaseIdle {
			return OutcomeNone
		}
		s.failures = 0
		s.addr = ev.Addr
		s.phase = PhaseAssociated
		log.Printf("network: connected, address %s", ev.Addr)
		return OutcomeProceed

	case event.KindDisassociated:
		if s.manual {
			s.phase = PhaseIdle
			s.addr = nil
			return OutcomeNone
		}
		s.failures++
		s.addr = nil
		if s.phase == PhaseAssociated {
			s.phase = PhaseAssociating
		}
		log.Printf("network: disconnected (%d/%d)", s.failures, s.threshold)
		// Fires once per run of failures; further failures only count.
		if s.failures == s.threshold {
			log.Printf("network: can't connect to the wireless network")
			return OutcomeEscalate
		}
		return OutcomeNone
	}
	return OutcomeNone
}

// Phase returns the current phase.
func (s *Session) Phase() Phase { return s.phase }

// Failures returns the consecutive failure count.
func (s *Session) Failures() int { return s.failures }

// Manual reports whether the last disconnect was requested by the node.
func (s *Session) Manual() bool { return s.manual }

// Addr returns the current address.
func (s *Session) Addr() (net.IP, error) {
	if s.phase != PhaseAssociated || s.addr == nil {
		return nil, ErrNotAssociated
	}
	return s.addr, nil
}

// HardwareAddr returns the interface MAC.
func (s *Session) HardwareAddr() (net.HardwareAddr, error) {
	return s.driver.HardwareAddr()
}
