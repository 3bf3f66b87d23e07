package logic

// heartbeat fires when its interval has elapsed since the last reset.
type heartbeat struct {
	interval uint32
	last     uint32
}

func (h *heartbeat) due(now uint32) bool {
	return now-h.last >= h.interval
}

func (h *heartbeat) reset(now uint32) {
	h.last = now
}

// deadline is a one-shot timer. expire reports true exactly once, on the
// first call at or after the deadline.
type deadline struct {
	start   uint32
	after   uint32
	expired bool
}

func (d *deadline) expire(now uint32) bool {
	if d.expired || now-d.start < d.after {
		return false
	}
	d.expired = true
	return true
}
