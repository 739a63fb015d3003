// Package gpio provides the contact input with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Reader reads the contact input.
type Reader interface {
	// Read returns the raw level of the contact line (true = high).
	// Polarity interpretation happens in logic.ReadState.
	Read() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Default line settings (BCM numbering on a Raspberry Pi header).
const (
	DefaultChip = "gpiochip0"
	DefaultPin  = 15
)
