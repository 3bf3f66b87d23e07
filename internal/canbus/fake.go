package canbus

import (
	"sync"

	"github.com/sweeney/climate-can/internal/logic"
)

// FakeBus records published frames and lets tests inject received frames.
type FakeBus struct {
	mu          sync.Mutex
	subscribers []func(logic.Frame)

	// Published contains all frames written to the bus.
	Published []logic.Frame

	// PublishError, if set, will be returned by Publish.
	PublishError error

	// Closed tracks if Close was called.
	Closed bool

	done chan struct{}
}

// NewFakeBus creates a FakeBus.
func NewFakeBus() *FakeBus {
	return &FakeBus{done: make(chan struct{})}
}

// Publish records the frame.
func (b *FakeBus) Publish(f logic.Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.PublishError != nil {
		return b.PublishError
	}
	b.Published = append(b.Published, f)
	return nil
}

// Subscribe registers fn for injected frames.
func (b *FakeBus) Subscribe(fn func(logic.Frame)) {
	b.mu.Lock()
	b.subscribers = append(b.subscribers, fn)
	b.mu.Unlock()
}

// Deliver passes f to every subscriber, as the bus reader would.
func (b *FakeBus) Deliver(f logic.Frame) {
	b.mu.Lock()
	subs := append([]func(logic.Frame){}, b.subscribers...)
	b.mu.Unlock()
	for _, fn := range subs {
		fn(f)
	}
}

// Frames returns a copy of the published frames.
func (b *FakeBus) Frames() []logic.Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]logic.Frame(nil), b.Published...)
}

// Run blocks until Close.
func (b *FakeBus) Run() error {
	<-b.done
	return nil
}

// Close unblocks Run.
func (b *FakeBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.Closed {
		b.Closed = true
		close(b.done)
	}
	return nil
}
