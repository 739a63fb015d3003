//go:build !linux

package network

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/sweeney/contact-sensor/internal/event"
)

// DefaultRetryInterval is how long an attempt may take before it counts as failed.
const DefaultRetryInterval = 3 * time.Second

// LinkDriver is not available on non-Linux platforms.
type LinkDriver struct {
	Interface     string
	ManageLink    bool
	RetryInterval time.Duration
}

// NewLinkDriver returns a driver whose methods all fail.
func NewLinkDriver(iface string, sink event.Sink) *LinkDriver {
	return &LinkDriver{Interface: iface}
}

var errUnsupported = errors.New("network: netlink not supported on this platform (requires Linux)")

func (d *LinkDriver) Associate(ctx context.Context, creds Credentials, hostname string) error {
	return errUnsupported
}

func (d *LinkDriver) Disassociate() error { return errUnsupported }

func (d *LinkDriver) HardwareAddr() (net.HardwareAddr, error) { return nil, errUnsupported }
