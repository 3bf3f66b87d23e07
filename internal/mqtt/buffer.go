package mqtt

import "log"

// outbound is a serialized message held for replay after reconnection.
type outbound struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer is a fixed-capacity FIFO of messages that could not be sent.
// When full the oldest message is overwritten. Not safe for concurrent use.
type ringBuffer struct {
	buf      []outbound
	head     int // next write position
	count    int
	dropped  int  // total overwritten since creation
	overflow bool // logged since last drain
}

func newRingBuffer(capacity int) *ringBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &ringBuffer{buf: make([]outbound, capacity)}
}

func (r *ringBuffer) push(msg outbound) {
	r.buf[r.head] = msg
	r.head = (r.head + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
		return
	}
	// Head was pointing at the oldest message, which is now gone.
	r.dropped++
	if !r.overflow {
		log.Printf("mqtt: buffer full (%d messages), dropping oldest", len(r.buf))
		r.overflow = true
	}
}

// drain removes and returns all messages, oldest first.
func (r *ringBuffer) drain() []outbound {
	if r.count == 0 {
		return nil
	}
	out := make([]outbound, r.count)
	start := (r.head - r.count + len(r.buf)) % len(r.buf)
	for i := range out {
		out[i] = r.buf[(start+i)%len(r.buf)]
		r.buf[(start+i)%len(r.buf)] = outbound{}
	}
	r.count = 0
	r.head = 0
	r.overflow = false
	return out
}

func (r *ringBuffer) len() int {
	return r.count
}
