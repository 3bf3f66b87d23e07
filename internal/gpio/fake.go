package gpio

// FakeWriter is a test double that records output writes.
type FakeWriter struct {
	// Levels holds the last level written per pin.
	Levels map[int]bool

	// Writes records every write in order.
	Writes []Sample

	// Closed tracks if Close was called
	Closed bool

	// WriteError, if set, will be returned by Write()
	WriteError error
}

// Sample is a single recorded write.
type Sample struct {
	Pin  int
	High bool
}

// NewFakeWriter creates an empty FakeWriter.
func NewFakeWriter() *FakeWriter {
	return &FakeWriter{Levels: make(map[int]bool)}
}

// Write records the level for pin.
func (f *FakeWriter) Write(pin int, high bool) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	f.Levels[pin] = high
	f.Writes = append(f.Writes, Sample{Pin: pin, High: high})
	return nil
}

// High reports the last level written to pin (false if never written).
func (f *FakeWriter) High(pin int) bool {
	return f.Levels[pin]
}

// Close marks the writer as closed.
func (f *FakeWriter) Close() error {
	f.Closed = true
	return nil
}

// Reset clears recorded writes.
func (f *FakeWriter) Reset() {
	f.Levels = make(map[int]bool)
	f.Writes = nil
	f.Closed = false
}
