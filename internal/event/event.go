// Package event defines the messages that network and broker drivers push
// into the lifecycle loop. Drivers may emit from any goroutine; the loop
// consumes them one at a time.
package event

import (
	"fmt"
	"net"
	"sync"
)

// Kind tags an Event.
type Kind string

const (
	KindAssociated     Kind = "ASSOCIATED"
	KindDisassociated  Kind = "DISASSOCIATED"
	KindConnected      Kind = "CONNECTED"
	KindDisconnected   Kind = "DISCONNECTED"
	KindAcknowledged   Kind = "ACKNOWLEDGED"
	KindSubscribeAcked Kind = "SUBSCRIBE_ACKED"
)

// DisconnectReason classifies a broker disconnection.
type DisconnectReason int

const (
	// ReasonNormal is a disconnect the node requested.
	ReasonNormal DisconnectReason = iota
	// ReasonTransportFailure means the TCP/TLS connection was lost or never came up.
	ReasonTransportFailure
	// ReasonProtocolRejected means the broker refused the session (CONNACK != 0).
	ReasonProtocolRejected
)

func (r DisconnectReason) String() string {
	switch r {
	case ReasonNormal:
		return "normal"
	case ReasonTransportFailure:
		return "transport failure"
	case ReasonProtocolRejected:
		return "protocol rejected"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

// Event is a tagged variant; only the fields for Kind are meaningful.
type Event struct {
	Kind Kind

	// Associated
	Addr net.IP

	// Connected
	SessionPresent bool

	// Disconnected
	Reason DisconnectReason
	Code   byte // broker return code for ReasonProtocolRejected
	Err    error

	// Acknowledged, SubscribeAcked
	ID  uint16
	QoS byte
}

// Sink receives events. Implementations must not block for long.
type Sink func(Event)

// Queue is the single ordered stream the lifecycle loop reads from.
type Queue struct {
	ch     chan Event
	closed chan struct{}
	once   sync.Once
}

// NewQueue creates a queue buffering up to size events.
func NewQueue(size int) *Queue {
	return &Queue{ch: make(chan Event, size), closed: make(chan struct{})}
}

// Push enqueues e. After Close, pushes are dropped so driver goroutines
// never block on a cycle that has already ended.
func (q *Queue) Push(e Event) {
	select {
	case <-q.closed:
		return
	default:
	}
	select {
	case q.ch <- e:
	case <-q.closed:
	}
}

// C returns the receive side.
func (q *Queue) C() <-chan Event { return q.ch }

// Close stops accepting events.
func (q *Queue) Close() {
	q.once.Do(func() { close(q.closed) })
}

func Associated(addr net.IP) Event { return Event{Kind: KindAssociated, Addr: addr} }

func Disassociated() Event { return Event{Kind: KindDisassociated} }

func Connected(sessionPresent bool) Event {
	return Event{Kind: KindConnected, SessionPresent: sessionPresent}
}

func Disconnected(reason DisconnectReason, err error) Event {
	return Event{Kind: KindDisconnected, Reason: reason, Err: err}
}

func Rejected(code byte, err error) Event {
	return Event{Kind: KindDisconnected, Reason: ReasonProtocolRejected, Code: code, Err: err}
}

func Acknowledged(id uint16) Event { return Event{Kind: KindAcknowledged, ID: id} }

func SubscribeAcked(id uint16, qos byte) Event {
	return Event{Kind: KindSubscribeAcked, ID: id, QoS: qos}
}

func (e Event) String() string {
	switch e.Kind {
	case KindAssociated:
		return fmt.Sprintf("%s(%s)", e.Kind, e.Addr)
	case KindConnected:
		return fmt.Sprintf("%s(session_present=%v)", e.Kind, e.SessionPresent)
	case KindDisconnected:
		if e.Err != nil {
			return fmt.Sprintf("%s(%s: %v)", e.Kind, e.Reason, e.Err)
		}
		return fmt.Sprintf("%s(%s)", e.Kind, e.Reason)
	case KindAcknowledged:
		return fmt.Sprintf("%s(%d)", e.Kind, e.ID)
	case KindSubscribeAcked:
		return fmt.Sprintf("%s(%d, qos=%d)", e.Kind, e.ID, e.QoS)
	default:
		return string(e.Kind)
	}
}
