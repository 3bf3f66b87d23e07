package canbus

import (
	"log"
	"sync/atomic"

	"github.com/sweeney/climate-can/internal/logic"
)

// DefaultQueueSize is the number of accepted frames buffered between the bus
// reader and the run loop.
const DefaultQueueSize = 64

// Dispatcher routes bus traffic to a single consumer. Frames rejected by the
// filter are discarded on the reader goroutine; accepted frames are queued on
// a channel so the consumer handles them one at a time.
type Dispatcher struct {
	bus    Bus
	filter func(id uint32) bool
	frames chan logic.Frame

	accepted   atomic.Int64
	rejected   atomic.Int64
	overflowed atomic.Int64
	sent       atomic.Int64
	sendErrors atomic.Int64
}

// Stats counts frames seen by a Dispatcher.
type Stats struct {
	Accepted   int64
	Rejected   int64
	Overflowed int64
	Sent       int64
	SendErrors int64
}

// NewDispatcher subscribes to bus. filter is called on the bus reader
// goroutine and must not touch state the consumer mutates.
func NewDispatcher(bus Bus, filter func(id uint32) bool, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	d := &Dispatcher{
		bus:    bus,
		filter: filter,
		frames: make(chan logic.Frame, queueSize),
	}
	bus.Subscribe(d.receive)
	return d
}

func (d *Dispatcher) receive(f logic.Frame) {
	if !d.filter(f.ID) {
		d.rejected.Add(1)
		return
	}
	select {
	case d.frames <- f:
		d.accepted.Add(1)
	default:
		if n := d.overflowed.Add(1); n == 1 || n%1000 == 0 {
			log.Printf("canbus: queue full (%d frames), dropped %d so far", cap(d.frames), n)
		}
	}
}

// Frames returns the channel of accepted frames.
func (d *Dispatcher) Frames() <-chan logic.Frame {
	return d.frames
}

// Send publishes an emitted frame. Failures are logged, never returned: a
// missed frame is recovered by the next heartbeat.
func (d *Dispatcher) Send(f logic.Frame) {
	if err := d.bus.Publish(f); err != nil {
		if n := d.sendErrors.Add(1); n == 1 || n%1000 == 0 {
			log.Printf("canbus: send error (%d total): %v", n, err)
		}
		return
	}
	d.sent.Add(1)
}

// Stats returns a snapshot of the dispatch counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Accepted:   d.accepted.Load(),
		Rejected:   d.rejected.Load(),
		Overflowed: d.overflowed.Load(),
		Sent:       d.sent.Load(),
		SendErrors: d.sendErrors.Load(),
	}
}
