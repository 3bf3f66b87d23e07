package canbus

import (
	"fmt"

	"github.com/brutella/can"

	"github.com/sweeney/climate-can/internal/logic"
)

// RealBus is a SocketCAN bus.
type RealBus struct {
	bus *can.Bus
}

// NewRealBus opens the named SocketCAN interface (e.g. "can0").
func NewRealBus(iface string) (*RealBus, error) {
	bus, err := can.NewBusForInterfaceWithName(iface)
	if err != nil {
		return nil, fmt.Errorf("open can interface %s: %w", iface, err)
	}
	return &RealBus{bus: bus}, nil
}

// Publish writes a frame to the bus.
func (b *RealBus) Publish(f logic.Frame) error {
	if err := b.bus.Publish(toCAN(f)); err != nil {
		return fmt.Errorf("publish %s: %w", f, err)
	}
	return nil
}

// Subscribe registers fn for every received frame.
func (b *RealBus) Subscribe(fn func(logic.Frame)) {
	b.bus.SubscribeFunc(func(frm can.Frame) {
		if f, ok := fromCAN(frm); ok {
			fn(f)
		}
	})
}

// Run reads frames and dispatches them to subscribers until Close.
func (b *RealBus) Run() error {
	return b.bus.ConnectAndPublish()
}

// Close disconnects from the bus.
func (b *RealBus) Close() error {
	return b.bus.Disconnect()
}

// toCAN sets the extended-frame flag for identifiers that do not fit in 11
// bits.
func toCAN(f logic.Frame) can.Frame {
	id := f.ID
	if id > can.MaskIDSff {
		id = (id & can.MaskIDEff) | can.MaskEff
	}
	return can.Frame{
		ID:     id,
		Length: f.Len,
		Data:   f.Data,
	}
}

// fromCAN strips the SocketCAN flag bits from the identifier. Error and
// remote-request frames carry no payload for the controller and are dropped.
func fromCAN(frm can.Frame) (logic.Frame, bool) {
	if frm.ID&(can.MaskErr|can.MaskRtr) != 0 {
		return logic.Frame{}, false
	}
	id := frm.ID & can.MaskIDSff
	if frm.ID&can.MaskEff != 0 {
		id = frm.ID & can.MaskIDEff
	}
	return logic.Frame{
		ID:   id,
		Len:  frm.Length,
		Data: frm.Data,
	}, true
}
