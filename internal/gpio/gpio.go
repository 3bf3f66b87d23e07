// Package gpio provides GPIO output with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Writer drives GPIO output lines.
type Writer interface {
	// Write sets the logical level of pin. high = relay energised.
	Write(pin int, high bool) error

	// Close releases GPIO resources.
	Close() error
}

// Default chip and pin (BCM numbering)
const (
	DefaultChip           = "gpiochip0"
	DefaultPinRearDefrost = 23
)
