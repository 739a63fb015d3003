//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealReader reads the contact line using the Linux GPIO character device.
type RealReader struct {
	line *gpiocdev.Line
}

// NewRealReader requests the line as an input with pull-up bias, so an open
// contact reads high and a contact closed to ground reads low.
func NewRealReader(chip string, pin int) (*RealReader, error) {
	line, err := gpiocdev.RequestLine(chip, pin, gpiocdev.AsInput, gpiocdev.WithPullUp,
		gpiocdev.WithConsumer("contact-sensor"))
	if err != nil {
		return nil, fmt.Errorf("request pin %d on %s: %w", pin, chip, err)
	}
	return &RealReader{line: line}, nil
}

// Read returns the raw line level.
func (r *RealReader) Read() (bool, error) {
	v, err := r.line.Value()
	if err != nil {
		return false, fmt.Errorf("read pin: %w", err)
	}
	return v == 1, nil
}

// Close releases the line. The edge watcher in internal/power needs the line
// free before it can request it with edge detection.
func (r *RealReader) Close() error {
	if r.line == nil {
		return nil
	}
	if err := r.line.Close(); err != nil {
		return fmt.Errorf("close pin: %w", err)
	}
	r.line = nil
	return nil
}
