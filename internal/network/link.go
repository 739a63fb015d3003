//go:build linux

package network

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/vishvananda/netlink"

	"github.com/sweeney/contact-sensor/internal/event"
)

// DefaultRetryInterval is how long an attempt may take before it counts as failed.
const DefaultRetryInterval = 3 * time.Second

// LinkDriver watches a Linux interface through netlink. The SSID and
// password are handled by the system supplicant; the driver reports when
// the interface gains or loses an IPv4 address.
type LinkDriver struct {
	Interface string
	// ManageLink brings the interface up on Associate and down on
	// Disassociate. Leave off when the interface is shared with other services.
	ManageLink    bool
	RetryInterval time.Duration

	sink event.Sink

	mu         sync.Mutex
	done       chan struct{}
	associated bool
}

// NewLinkDriver creates a driver for iface.
func NewLinkDriver(iface string, sink event.Sink) *LinkDriver {
	return &LinkDriver{
		Interface:     iface,
		RetryInterval: DefaultRetryInterval,
		sink:          sink,
	}
}

// HardwareAddr returns the interface MAC.
func (d *LinkDriver) HardwareAddr() (net.HardwareAddr, error) {
	link, err := netlink.LinkByName(d.Interface)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", d.Interface, err)
	}
	return link.Attrs().HardwareAddr, nil
}

// Associate subscribes to link and address updates and returns immediately.
func (d *LinkDriver) Associate(ctx context.Context, creds Credentials, hostname string) error {
	link, err := netlink.LinkByName(d.Interface)
	if err != nil {
		return fmt.Errorf("lookup %s: %w", d.Interface, err)
	}
	idx := link.Attrs().Index

	done := make(chan struct{})
	addrCh := make(chan netlink.AddrUpdate, 16)
	linkCh := make(chan netlink.LinkUpdate, 16)
	if err := netlink.AddrSubscribe(addrCh, done); err != nil {
		close(done)
		return fmt.Errorf("subscribe to address updates: %w", err)
	}
	if err := netlink.LinkSubscribe(linkCh, done); err != nil {
		close(done)
		return fmt.Errorf("subscribe to link updates: %w", err)
	}

	d.mu.Lock()
	d.done = done
	d.associated = false
	d.mu.Unlock()

	if d.ManageLink {
		if err := netlink.LinkSetUp(link); err != nil {
			log.Printf("network: bring %s up: %v", d.Interface, err)
		}
	}

	go d.watch(ctx, idx, addrCh, linkCh, done)

	addrs, err := netlink.AddrList(link, netlink.FAMILY_V4)
	if err != nil {
		log.Printf("network: list addresses on %s: %v", d.Interface, err)
	}
	for _, a := range addrs {
		if ip := a.IP.To4(); ip != nil && !ip.IsLinkLocalUnicast() {
			d.setAssociated(true, ip)
			break
		}
	}
	return nil
}

// Disassociate stops watching and, with ManageLink, takes the interface down.
func (d *LinkDriver) Disassociate() error {
	d.mu.Lock()
	done := d.done
	d.done = nil
	d.mu.Unlock()

	if done != nil {
		close(done)
	}

	if d.ManageLink {
		link, err := netlink.LinkByName(d.Interface)
		if err != nil {
			return fmt.Errorf("lookup %s: %w", d.Interface, err)
		}
		if err := netlink.LinkSetDown(link); err != nil {
			return fmt.Errorf("bring %s down: %w", d.Interface, err)
		}
	}

	d.mu.Lock()
	d.associated = false
	d.mu.Unlock()
	d.sink(event.Disassociated())
	return nil
}

func (d *LinkDriver) watch(ctx context.Context, idx int, addrCh <-chan netlink.AddrUpdate, linkCh <-chan netlink.LinkUpdate, done <-chan struct{}) {
	interval := d.RetryInterval
	if interval <= 0 {
		interval = DefaultRetryInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return

		case u, ok := <-addrCh:
			if !ok {
				return
			}
			if u.LinkIndex != idx {
				continue
			}
			ip := u.LinkAddress.IP.To4()
			if ip == nil || ip.IsLinkLocalUnicast() {
				continue
			}
			d.setAssociated(u.NewAddr, ip)

		case u, ok := <-linkCh:
			if !ok {
				return
			}
			if u.Attrs().Index != idx {
				continue
			}
			if u.Attrs().OperState == netlink.OperDown {
				d.setAssociated(false, nil)
			}

		case <-ticker.C:
			// Each interval without an address is one failed attempt, the
			// way the radio reports a failed join while it keeps retrying.
			d.mu.Lock()
			up := d.associated
			d.mu.Unlock()
			if !up {
				d.sink(event.Disassociated())
			}
		}
	}
}

func (d *LinkDriver) setAssociated(up bool, ip net.IP) {
	d.mu.Lock()
	changed := d.associated != up
	d.associated = up
	d.mu.Unlock()

	if !changed {
		return
	}
	if up {
		d.sink(event.Associated(ip))
	} else {
		d.sink(event.Disassociated())
	}
}
