package logic

// Bits of the initialized mask, one per required status input.
const (
	initPrimary   = 0x01
	initSecondary = 0x02
	initAll       = initPrimary | initSecondary
)

// Controller translates vehicle climate frames into the canonical status
// frame, and canonical control intents into OEM control panel toggles.
//
// Controller is not safe for concurrent use. Handle and Emit must be called
// from a single goroutine, or serialized by the caller.
type Controller struct {
	cfg   Config
	clock Clock

	state OperatingState

	status      Frame
	statusInit  uint8
	statusDirty bool
	statusHB    heartbeat

	commandA     Frame
	commandB     Frame
	commandDirty bool
	commandHB    heartbeat
	commandInit  deadline
	steadyHB     uint32

	control [8]byte

	rearDefrost *PulseActuator
	counts      Counts
}

// NewController creates a controller. out drives the rear-defrost relay and
// may be nil when no relay is fitted.
func NewController(cfg Config, clock Clock, out Output) *Controller {
	now := clock.Millis()
	c := &Controller{
		cfg:   cfg,
		clock: clock,
		state: StateOff,

		status:   Frame{ID: cfg.StatusID, Len: 8},
		statusHB: heartbeat{interval: millis(cfg.StatusHeartbeat)},

		commandA:     Frame{ID: cfg.CommandAID, Len: 8},
		commandB:     Frame{ID: cfg.CommandBID, Len: 8},
		commandDirty: true,
		commandHB:    heartbeat{interval: millis(cfg.CommandInitHeartbeat)},
		commandInit:  deadline{start: now, after: millis(cfg.CommandInitExpire)},
		steadyHB:     millis(cfg.CommandHeartbeat),

		rearDefrost: NewPulseActuator(cfg.RearDefrostPin, millis(cfg.RearDefrostPulse), clock, out),
	}
	c.commandA.Data[0] = 0x80
	c.commandB.Data[0] = 0x80
	return c
}

// Filter reports whether the controller consumes frames with the given
// identifier.
func (c *Controller) Filter(id uint32) bool {
	switch id {
	case c.cfg.PrimaryStatusID, c.cfg.SecondaryStatusID, c.cfg.AuxID, c.cfg.ControlID:
		return true
	}
	return false
}

// Handle processes a single frame. It returns the control actions executed
// as a result, which is only ever non-empty for control-intent frames.
// Frames with an unexpected length are dropped without touching any state.
func (c *Controller) Handle(f Frame) []Action {
	var ok bool
	var fired []Action
	switch f.ID {
	case c.cfg.PrimaryStatusID:
		ok = c.handlePrimary(f)
	case c.cfg.SecondaryStatusID:
		ok = c.handleSecondary(f)
	case c.cfg.AuxID:
		ok = c.handleAux(f)
	case c.cfg.ControlID:
		fired, ok = c.handleControl(f)
	default:
		return nil
	}
	if ok {
		c.counts.FramesHandled++
	} else {
		c.counts.FramesDropped++
	}
	return fired
}

// Emit runs the periodic tick: it updates the rear-defrost pulse, completes
// the command init handshake once its deadline passes, and pushes due frames
// to sink. Command frames are always emitted as a pair, before the status
// frame.
func (c *Controller) Emit(sink func(Frame)) {
	c.rearDefrost.Update()
	now := c.clock.Millis()

	if c.commandInit.expire(now) {
		c.commandA.Data[0] = 0x60
		c.commandA.Data[1] = 0x40
		c.commandA.Data[6] = 0x04
		c.commandB.Data[0] = 0x00
		c.commandHB.interval = c.steadyHB
		c.commandDirty = true
	}

	if c.commandDirty || c.commandHB.due(now) {
		c.commandDirty = false
		c.commandHB.reset(now)
		c.counts.CommandEmitted++
		sink(c.commandA)
		sink(c.commandB)
	}

	if c.statusInit != initAll {
		return
	}
	if c.statusDirty || c.statusHB.due(now) {
		c.statusDirty = false
		c.statusHB.reset(now)
		c.counts.StatusEmitted++
		sink(c.status)
	}
}

// State returns the operating state derived from the last secondary status
// frame.
func (c *Controller) State() OperatingState {
	return c.state
}

// Status returns the decoded outgoing status payload.
func (c *Controller) Status() ClimateStatus {
	return DecodeStatus(c.status.Data)
}

// StatusFrame returns a copy of the outgoing status frame.
func (c *Controller) StatusFrame() Frame {
	return c.status
}

// CommandFrames returns copies of both outgoing command frames.
func (c *Controller) CommandFrames() (Frame, Frame) {
	return c.commandA, c.commandB
}

// Initialized reports whether both status inputs have been seen.
func (c *Controller) Initialized() bool {
	return c.statusInit == initAll
}

// HandshakeComplete reports whether the command init deadline has passed.
func (c *Controller) HandshakeComplete() bool {
	return c.commandInit.expired
}

// RearDefrostActive reports whether the rear-defrost relay is asserted.
func (c *Controller) RearDefrostActive() bool {
	return c.rearDefrost.Asserted()
}

// Counts returns a copy of the activity counters.
func (c *Controller) Counts() Counts {
	counts := c.counts
	counts.OutputErrors = c.rearDefrost.Errors()
	return counts
}

func (c *Controller) handlePrimary(f Frame) bool {
	if f.Len != 8 {
		return false
	}
	c.statusInit |= initPrimary
	c.setByte(statusDriverByte, f.Data[4])
	c.setByte(statusPassengerByte, f.Data[5])
	c.setByte(statusOutsideByte, f.Data[7])
	return true
}

func (c *Controller) handleSecondary(f Frame) bool {
	if f.Len != 8 {
		return false
	}
	c.statusInit |= initSecondary

	d := f.Data[:]
	ac := getBit(d, 0, 3)
	recirculate := getBit(d, 3, 4)
	dual := getBit(d, 3, 7)
	fanSpeed := uint8((int(f.Data[2]) + 1) / 2)
	mode := Mode(f.Data[1])

	c.state = DeriveState(mode, getBit(d, 0, 7), getBit(d, 0, 0), fanSpeed)

	switch c.state {
	case StateOff:
		c.setFlag(statusActiveBit, false)
		c.setFlag(statusAutoBit, false)
		c.setFlag(statusACBit, false)
		c.setFlag(statusDualBit, false)
		c.setFlag(statusRecirculateBit, false)
		c.setByte(statusFanByte, 0)
		c.setByte(statusDriverByte, 0)
		c.setByte(statusPassengerByte, 0)
		c.setMode(ModeOff)
	case StateAuto, StateManual, StateHalfManual:
		c.setFlag(statusActiveBit, true)
		c.setFlag(statusAutoBit, c.state == StateAuto)
		c.setFlag(statusACBit, ac)
		c.setFlag(statusDualBit, dual)
		c.setFlag(statusRecirculateBit, recirculate)
		c.setByte(statusFanByte, fanSpeed)
		c.setMode(mode)
	case StateDefrost:
		c.setFlag(statusActiveBit, true)
		c.setFlag(statusAutoBit, false)
		c.setFlag(statusACBit, ac)
		c.setFlag(statusDualBit, false)
		c.setFlag(statusRecirculateBit, false)
		c.setByte(statusFanByte, fanSpeed)
		c.setMode(ModeWindshield)
	}
	return true
}

func (c *Controller) handleAux(f Frame) bool {
	if f.Len == 0 {
		return false
	}
	if setBit(c.status.Data[:], statusRearByte, statusRearDefrostBit, getBit(f.Data[:], 0, 0)) {
		c.statusDirty = true
	}
	return true
}

// DeriveState maps decoded secondary status fields to an operating state.
// The checks are ordered: windshield mode wins over the all-off bit, which
// wins over auto, which wins over a zero fan speed.
func DeriveState(mode Mode, allOff, auto bool, fanSpeed uint8) OperatingState {
	switch {
	case mode == ModeWindshield:
		return StateDefrost
	case allOff:
		return StateOff
	case auto:
		return StateAuto
	case fanSpeed == 0:
		return StateHalfManual
	default:
		return StateManual
	}
}

// Vents returns the face, feet and windshield routing for an airflow mode.
// Unknown modes route nowhere.
func Vents(mode Mode) (face, feet, windshield bool) {
	switch mode {
	case ModeFace, ModeAutoFace:
		return true, false, false
	case ModeFaceFeet, ModeAutoFaceFeet:
		return true, true, false
	case ModeFeet, ModeAutoFeet:
		return false, true, false
	case ModeFeetWindshield:
		return false, true, true
	case ModeWindshield:
		return false, false, true
	default:
		return false, false, false
	}
}

// setMode writes the vent routing. It is the only writer of the front-defrost
// flag so a repeated frame never flips the bit twice.
func (c *Controller) setMode(mode Mode) {
	face, feet, windshield := Vents(mode)
	c.setFlag(statusFaceBit, face)
	c.setFlag(statusFeetBit, feet)
	c.setFlag(statusFrontDefrostBit, windshield)
}

func (c *Controller) setFlag(bit int, value bool) {
	if setBit(c.status.Data[:], statusFlagsByte, bit, value) {
		c.statusDirty = true
	}
}

func (c *Controller) setByte(offset int, value byte) {
	if c.status.Data[offset] != value {
		c.status.Data[offset] = value
		c.statusDirty = true
	}
}
