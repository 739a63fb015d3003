package mqtt

import (
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/eclipse/paho.mqtt.golang/packets"

	"github.com/sweeney/contact-sensor/internal/event"
)

// PahoOptions configures PahoTransport.
type PahoOptions struct {
	Broker         string
	ClientID       string
	Username       string
	Password       string
	ConnectTimeout time.Duration
}

// PahoTransport connects to a real broker. Token completions are turned
// into events on the sink; callbacks run on paho's goroutines.
type PahoTransport struct {
	client paho.Client
	sink   event.Sink
}

// NewPahoTransport builds a client without connecting.
// Auto-reconnect is off: a lost connection ends the cycle instead.
func NewPahoTransport(o PahoOptions, sink event.Sink) *PahoTransport {
	timeout := o.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	t := &PahoTransport{sink: sink}
	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetUsername(o.Username).
		SetPassword(o.Password).
		SetCleanSession(true).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetConnectTimeout(timeout).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			t.sink(event.Disconnected(event.ReasonTransportFailure, err))
		})

	t.client = paho.NewClient(opts)
	return t
}

// Connect starts the connection and reports the result asynchronously.
func (t *PahoTransport) Connect() error {
	token := t.client.Connect()
	go func() {
		<-token.Done()
		ct, _ := token.(*paho.ConnectToken)
		if err := token.Error(); err != nil {
			if ct != nil && refused(ct.ReturnCode()) {
				t.sink(event.Rejected(ct.ReturnCode(), err))
				return
			}
			t.sink(event.Disconnected(event.ReasonTransportFailure, err))
			return
		}
		present := false
		if ct != nil {
			present = ct.SessionPresent()
		}
		t.sink(event.Connected(present))
	}()
	return nil
}

// refused reports whether rc is a CONNACK refusal from the broker. paho
// also uses return codes for its own network errors (0xFE, 0xFF); those are
// transport failures.
func refused(rc byte) bool {
	return rc >= packets.ErrRefusedBadProtocolVersion && rc <= packets.ErrRefusedNotAuthorised
}

// Disconnect closes the connection, allowing 250ms for in-flight work.
// paho does not call the connection-lost handler for a requested
// disconnect, so the event is emitted here.
func (t *PahoTransport) Disconnect() error {
	t.client.Disconnect(250)
	t.sink(event.Disconnected(event.ReasonNormal, nil))
	return nil
}

// Publish hands the message to paho and returns its packet id.
func (t *PahoTransport) Publish(topic string, qos byte, retained bool, payload string) (uint16, error) {
	token := t.client.Publish(topic, qos, retained, payload)

	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return 0, fmt.Errorf("publish: %w", err)
		}
	default:
	}

	pt, ok := token.(*paho.PublishToken)
	if !ok {
		return 0, errors.New("publish: unexpected token type")
	}
	id := pt.MessageID()

	go func() {
		<-token.Done()
		if token.Error() != nil {
			// Connection loss is reported by the connection-lost handler.
			return
		}
		t.sink(event.Acknowledged(id))
	}()
	return id, nil
}
