package mqtt

import (
	"github.com/sweeney/contact-sensor/internal/event"
)

// Message is one message handed to FakeTransport.
type Message struct {
	ID       uint16
	Topic    string
	QoS      byte
	Retained bool
	Payload  string
}

// FakeTransport records publishes for test assertions.
type FakeTransport struct {
	// Sink receives events the fake generates.
	Sink event.Sink

	// AutoConnect emits Connected(SessionPresent) on Connect.
	AutoConnect    bool
	SessionPresent bool

	// AutoAck emits Acknowledged for every publish, in order.
	AutoAck bool

	// EmitOnDisconnect emits Disconnected(normal) on Disconnect.
	EmitOnDisconnect bool

	// Messages contains every published message.
	Messages []Message

	// ConnectError, if set, will be returned by Connect.
	ConnectError error

	// PublishError, if set, will be returned by Publish.
	PublishError error

	Connects    int
	Disconnects int

	nextID uint16
}

// NewFakeTransport creates a fake that connects and acknowledges automatically.
func NewFakeTransport(sink event.Sink) *FakeTransport {
	return &FakeTransport{
		Sink:             sink,
		AutoConnect:      true,
		AutoAck:          true,
		EmitOnDisconnect: true,
	}
}

func (f *FakeTransport) Connect() error {
	f.Connects++
	if f.ConnectError != nil {
		return f.ConnectError
	}
	if f.AutoConnect {
		f.emit(event.Connected(f.SessionPresent))
	}
	return nil
}

func (f *FakeTransport) Disconnect() error {
	f.Disconnects++
	if f.EmitOnDisconnect {
		f.emit(event.Disconnected(event.ReasonNormal, nil))
	}
	return nil
}

// Publish records the message and allocates ids 1, 2, 3, ...
func (f *FakeTransport) Publish(topic string, qos byte, retained bool, payload string) (uint16, error) {
	if f.PublishError != nil {
		return 0, f.PublishError
	}
	f.nextID++
	id := f.nextID
	f.Messages = append(f.Messages, Message{
		ID:       id,
		Topic:    topic,
		QoS:      qos,
		Retained: retained,
		Payload:  payload,
	})
	if f.AutoAck {
		f.emit(event.Acknowledged(id))
	}
	return id, nil
}

// Topics returns the published topics in order.
func (f *FakeTransport) Topics() []string {
	out := make([]string, len(f.Messages))
	for i, m := range f.Messages {
		out[i] = m.Topic
	}
	return out
}

// Reset clears recorded messages.
func (f *FakeTransport) Reset() {
	f.Messages = nil
	f.Connects = 0
	f.Disconnects = 0
	f.ConnectError = nil
	f.PublishError = nil
	f.nextID = 0
}

func (f *FakeTransport) emit(ev event.Event) {
	if f.Sink != nil {
		f.Sink(ev)
	}
}
