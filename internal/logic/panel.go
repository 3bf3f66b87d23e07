package logic

// ControlPanel builds control-intent frames. Each press flips the action's
// bit so the controller sees exactly one edge.
type ControlPanel struct {
	id     uint32
	vector [8]byte
}

// NewControlPanel creates a panel emitting frames with the given identifier.
func NewControlPanel(id uint32) *ControlPanel {
	return &ControlPanel{id: id}
}

// Press toggles the action's bit and returns the resulting frame.
func (p *ControlPanel) Press(a Action) (Frame, bool) {
	b, ok := lookupControlBit(a)
	if !ok {
		return Frame{}, false
	}
	toggleBit(p.vector[:], b.offset, b.bit)
	return p.Frame(), true
}

// Frame returns the current intent vector as a frame.
func (p *ControlPanel) Frame() Frame {
	return Frame{ID: p.id, Len: 8, Data: p.vector}
}
