package logic

import (
	"fmt"
	"strings"
)

// Action is a logical control panel button.
type Action string

const (
	ActionOff               Action = "OFF"
	ActionAuto              Action = "AUTO"
	ActionAC                Action = "AC"
	ActionDual              Action = "DUAL"
	ActionMode              Action = "MODE"
	ActionFrontDefrost      Action = "FRONT_DEFROST"
	ActionRecirculate       Action = "RECIRCULATE"
	ActionFanUp             Action = "FAN_UP"
	ActionFanDown           Action = "FAN_DOWN"
	ActionDriverTempUp      Action = "DRIVER_TEMP_UP"
	ActionDriverTempDown    Action = "DRIVER_TEMP_DOWN"
	ActionPassengerTempUp   Action = "PASSENGER_TEMP_UP"
	ActionPassengerTempDown Action = "PASSENGER_TEMP_DOWN"
	ActionRearDefrost       Action = "REAR_DEFROST"
)

// controlBit locates an action's bit in the control-intent vector.
type controlBit struct {
	action Action
	offset int
	bit    int
}

// controlBits is evaluated in order; one action fires per flipped bit.
var controlBits = []controlBit{
	{ActionOff, 0, 0},
	{ActionAuto, 0, 1},
	{ActionAC, 0, 2},
	{ActionDual, 0, 3},
	{ActionMode, 0, 4},
	{ActionFrontDefrost, 0, 6},
	{ActionRecirculate, 0, 7},
	{ActionFanUp, 1, 0},
	{ActionFanDown, 1, 1},
	{ActionDriverTempUp, 1, 2},
	{ActionDriverTempDown, 1, 3},
	{ActionPassengerTempUp, 1, 4},
	{ActionPassengerTempDown, 1, 5},
	{ActionRearDefrost, 4, 0},
}

// Actions returns every action in control-intent bit order.
func Actions() []Action {
	out := make([]Action, len(controlBits))
	for i, b := range controlBits {
		out[i] = b.action
	}
	return out
}

// ParseAction parses an action name, ignoring case and surrounding space.
func ParseAction(s string) (Action, error) {
	name := Action(strings.ToUpper(strings.TrimSpace(s)))
	for _, b := range controlBits {
		if b.action == name {
			return name, nil
		}
	}
	return "", fmt.Errorf("unknown action %q", s)
}

func lookupControlBit(a Action) (controlBit, bool) {
	for _, b := range controlBits {
		if b.action == a {
			return b, true
		}
	}
	return controlBit{}, false
}

// handleControl diffs the intent vector against the stored snapshot and runs
// one action per flipped bit. The snapshot is replaced even when actions are
// suppressed so the same edge never fires twice.
func (c *Controller) handleControl(f Frame) ([]Action, bool) {
	if f.Len != 8 {
		return nil, false
	}

	var fired []Action
	for _, b := range controlBits {
		if !xorBit(c.control[:], f.Data[:], b.offset, b.bit) {
			continue
		}
		if c.execute(b.action) {
			c.counts.ActionsExecuted++
			fired = append(fired, b.action)
		} else {
			c.counts.ActionsSuppressed++
		}
	}

	c.control = f.Data
	return fired, true
}

// Execute runs a single action from a source other than the bus, such as a
// remote command. The control-intent snapshot is left alone, so the bus
// panel's next frame is still diffed against what the bus last sent. It
// reports whether the action ran; suppressed actions are counted as such.
func (c *Controller) Execute(a Action) (bool, error) {
	if _, ok := lookupControlBit(a); !ok {
		return false, fmt.Errorf("unknown action %q", a)
	}
	if !c.execute(a) {
		c.counts.ActionsSuppressed++
		return false, nil
	}
	c.counts.ActionsExecuted++
	return true, nil
}

// execute applies a single action to the command frames. It returns false
// when the action is suppressed because the climate system is off.
func (c *Controller) execute(a Action) bool {
	if c.state == StateOff && a != ActionOff && a != ActionRearDefrost {
		return false
	}

	cmdA := c.commandA.Data[:]
	cmdB := c.commandB.Data[:]
	switch a {
	case ActionOff:
		toggleBit(cmdA, 6, 7)
	case ActionAuto:
		toggleBit(cmdA, 6, 5)
	case ActionAC:
		toggleBit(cmdA, 5, 3)
	case ActionDual:
		toggleBit(cmdA, 6, 3)
	case ActionMode:
		toggleBit(cmdA, 6, 0)
	case ActionFrontDefrost:
		toggleBit(cmdA, 6, 1)
	case ActionRecirculate:
		toggleBit(cmdB, 1, 6)
	case ActionFanUp:
		toggleBit(cmdB, 0, 5)
	case ActionFanDown:
		toggleBit(cmdB, 0, 4)
	// Temperature bytes wrap like the vehicle firmware does.
	case ActionDriverTempUp:
		toggleBit(cmdA, 5, 5)
		cmdA[3]++
	case ActionDriverTempDown:
		toggleBit(cmdA, 5, 5)
		cmdA[3]--
	case ActionPassengerTempUp:
		toggleBit(cmdA, 5, 5)
		cmdA[4]++
	case ActionPassengerTempDown:
		toggleBit(cmdA, 5, 5)
		cmdA[4]--
	case ActionRearDefrost:
		c.rearDefrost.Trigger()
	default:
		return false
	}
	c.commandDirty = true
	return true
}
