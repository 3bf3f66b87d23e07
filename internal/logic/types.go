// Package logic contains the climate controller: pure frame translation
// between the vehicle's proprietary climate messages and the canonical status
// and command frames.
// This package has NO external dependencies (no CAN socket, GPIO, MQTT or OS).
// Time and the relay output are injected as capabilities.
package logic

import (
	"fmt"
	"time"
)

// Frame is a CAN message as received or emitted. It is a value type; the
// controller copies what it needs and never retains a caller's frame.
type Frame struct {
	ID   uint32
	Len  uint8
	Data [8]byte
}

// String formats the frame as "ID#DATA" like candump.
func (f Frame) String() string {
	n := int(f.Len)
	if n > len(f.Data) {
		n = len(f.Data)
	}
	return fmt.Sprintf("%03X#%X", f.ID, f.Data[:n])
}

// Clock reports monotonic elapsed milliseconds. Values wrap at 2^32; all
// comparisons use unsigned subtraction so wraparound is harmless.
type Clock interface {
	Millis() uint32
}

// Output drives a digital output line.
type Output interface {
	Write(pin int, high bool) error
}

// OperatingState is the canonical climate state derived from the secondary
// status frame.
type OperatingState string

const (
	StateOff        OperatingState = "OFF"
	StateAuto       OperatingState = "AUTO"
	StateManual     OperatingState = "MANUAL"
	StateHalfManual OperatingState = "HALF_MANUAL"
	StateDefrost    OperatingState = "DEFROST"
)

// Mode is the airflow mode byte reported by the vehicle.
type Mode uint8

const (
	ModeOff            Mode = 0x00
	ModeFace           Mode = 0x04
	ModeFaceFeet       Mode = 0x08
	ModeFeet           Mode = 0x0C
	ModeFeetWindshield Mode = 0x10
	ModeWindshield     Mode = 0x34
	ModeAutoFace       Mode = 0x84
	ModeAutoFaceFeet   Mode = 0x88
	ModeAutoFeet       Mode = 0x8C
)

// Config holds frame identifiers and timing for a Controller.
type Config struct {
	PrimaryStatusID   uint32
	SecondaryStatusID uint32
	AuxID             uint32
	ControlID         uint32

	StatusID   uint32
	CommandAID uint32
	CommandBID uint32

	StatusHeartbeat      time.Duration
	CommandInitHeartbeat time.Duration
	CommandHeartbeat     time.Duration
	CommandInitExpire    time.Duration

	RearDefrostPin   int
	RearDefrostPulse time.Duration
}

// DefaultConfig returns the identifiers and timing used by the R51 body
// modules.
func DefaultConfig() Config {
	return Config{
		PrimaryStatusID:      0x54A,
		SecondaryStatusID:    0x54B,
		AuxID:                0x625,
		ControlID:            0x5401,
		StatusID:             0x5400,
		CommandAID:           0x540,
		CommandBID:           0x541,
		StatusHeartbeat:      500 * time.Millisecond,
		CommandInitHeartbeat: 100 * time.Millisecond,
		CommandHeartbeat:     200 * time.Millisecond,
		CommandInitExpire:    800 * time.Millisecond,
		RearDefrostPin:       23,
		RearDefrostPulse:     200 * time.Millisecond,
	}
}

// Counts tracks controller activity since startup.
type Counts struct {
	FramesHandled     int
	FramesDropped     int
	ActionsExecuted   int
	ActionsSuppressed int
	StatusEmitted     int
	CommandEmitted    int
	OutputErrors      int
}

func millis(d time.Duration) uint32 {
	return uint32(d.Milliseconds())
}
