package logic

// PulseActuator asserts an output line for a fixed duration after each
// trigger. A trigger while asserted restarts the measurement: Update always
// measures from the most recent Trigger call, and pulses never accumulate.
type PulseActuator struct {
	pin      int
	duration uint32
	clock    Clock
	out      Output

	asserted bool
	start    uint32
	errors   int
}

// NewPulseActuator creates an actuator for pin. The line is not touched until
// the first Trigger.
func NewPulseActuator(pin int, durationMs uint32, clock Clock, out Output) *PulseActuator {
	return &PulseActuator{
		pin:      pin,
		duration: durationMs,
		clock:    clock,
		out:      out,
	}
}

// Trigger records the current time and asserts the line.
func (p *PulseActuator) Trigger() {
	p.start = p.clock.Millis()
	p.asserted = true
	p.write(true)
}

// Update deasserts the line once the duration has elapsed since the last
// Trigger. It is a no-op while the line is not asserted.
func (p *PulseActuator) Update() {
	if !p.asserted {
		return
	}
	if p.clock.Millis()-p.start <= p.duration {
		return
	}
	p.asserted = false
	p.write(false)
}

// Asserted reports whether the line is currently driven high.
func (p *PulseActuator) Asserted() bool {
	return p.asserted
}

// Errors returns the number of failed output writes.
func (p *PulseActuator) Errors() int {
	return p.errors
}

func (p *PulseActuator) write(high bool) {
	if p.out == nil {
		return
	}
	if err := p.out.Write(p.pin, high); err != nil {
		p.errors++
	}
}
