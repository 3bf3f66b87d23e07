// Package canbus connects the climate controller to a CAN bus with
// abstraction for testing.
package canbus

import (
	"github.com/sweeney/climate-can/internal/logic"
)

// Bus sends and receives CAN frames.
type Bus interface {
	// Publish writes a frame to the bus.
	Publish(f logic.Frame) error

	// Subscribe registers fn to be called for every received frame. fn runs
	// on the bus reader goroutine.
	Subscribe(fn func(logic.Frame))

	// Run reads frames until the bus is closed.
	Run() error

	// Close disconnects from the bus.
	Close() error
}
