package network

import (
	"context"
	"net"

	"github.com/sweeney/contact-sensor/internal/event"
)

// FakeDriver records calls and replays scripted events.
type FakeDriver struct {
	// Sink receives scripted events.
	Sink event.Sink

	// OnAssociate is emitted, in order, when Associate is called.
	OnAssociate []event.Event

	// EmitOnDisassociate controls whether Disassociate pushes a
	// Disassociated event, like a real driver does.
	EmitOnDisassociate bool

	MAC net.HardwareAddr

	AssociateError    error
	DisassociateError error
	MACError          error

	Associations    int
	Disassociations int
	LastCreds       Credentials
	LastHostname    string
}

// NewFakeDriver returns a driver that emits into sink.
func NewFakeDriver(sink event.Sink, onAssociate ...event.Event) *FakeDriver {
	return &FakeDriver{
		Sink:               sink,
		OnAssociate:        onAssociate,
		EmitOnDisassociate: true,
		MAC:                net.HardwareAddr{0x24, 0x6f, 0x28, 0xa1, 0xb2, 0xc3},
	}
}

func (f *FakeDriver) Associate(ctx context.Context, creds Credentials, hostname string) error {
	f.Associations++
	f.LastCreds = creds
	f.LastHostname = hostname
	if f.AssociateError != nil {
		return f.AssociateError
	}
	for _, ev := range f.OnAssociate {
		f.emit(ev)
	}
	return nil
}

func (f *FakeDriver) Disassociate() error {
	f.Disassociations++
	if f.DisassociateError != nil {
		return f.DisassociateError
	}
	if f.EmitOnDisassociate {
		f.emit(event.Disassociated())
	}
	return nil
}

func (f *FakeDriver) HardwareAddr() (net.HardwareAddr, error) {
	if f.MACError != nil {
		return nil, f.MACError
	}
	return f.MAC, nil
}

func (f *FakeDriver) emit(ev event.Event) {
	if f.Sink != nil {
		f.Sink(ev)
	}
}
