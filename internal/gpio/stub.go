//go:build !linux

package gpio

import (
	"errors"
	"fmt"
)

// RealReader needs the Linux GPIO character device. Use -print-state on
// the target board, or FakeReader elsewhere.
type RealReader struct{}

// NewRealReader always fails off Linux.
func NewRealReader(chip string, pin int) (*RealReader, error) {
	return nil, fmt.Errorf("gpio: %s line %d: character device requires Linux", chip, pin)
}

func (r *RealReader) Read() (bool, error) { return false, errUnsupported }

func (r *RealReader) Close() error { return nil }

var errUnsupported = errors.New("gpio: not supported on this platform")
