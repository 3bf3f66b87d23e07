package main

import (
	"log"
	"os"
	"syscall"
	"time"

	"github.com/sweeney/climate-can/internal/canbus"
	"github.com/sweeney/climate-can/internal/logic"
	"github.com/sweeney/climate-can/internal/mqtt"
	"github.com/sweeney/climate-can/internal/status"
)

// frameBus is the part of canbus.Dispatcher the run loop uses.
type frameBus interface {
	Frames() <-chan logic.Frame
	Send(f logic.Frame)
	Stats() canbus.Stats
}

// daemon owns the controller. Everything that touches it runs on the
// runLoop goroutine.
type daemon struct {
	ctl        *logic.Controller
	bus        frameBus
	publisher  mqtt.Publisher        // nil when MQTT is disabled
	mqttStatus mqtt.ConnectionStatus // nil when MQTT is disabled
	tracker    *status.Tracker
	now        func() time.Time

	statusID  uint32
	tickAt    time.Time // start of the tick being processed
	published bool
	lastState [8]byte
}

func newDaemon(ctl *logic.Controller, bus frameBus, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, now func() time.Time) *daemon {
	return &daemon{
		ctl:        ctl,
		bus:        bus,
		publisher:  publisher,
		mqttStatus: mqttStatus,
		tracker:    tracker,
		now:        now,
		statusID:   ctl.StatusFrame().ID,
	}
}

// runLoop serializes bus frames, remote commands and ticks onto the
// controller until a signal arrives.
func (d *daemon) runLoop(tick, heartbeat <-chan time.Time, sig <-chan os.Signal) error {
	var commands <-chan logic.Action
	if d.publisher != nil {
		commands = d.publisher.Commands()
	}

	for {
		select {
		case s := <-sig:
			d.shutdown(s)
			return nil

		case f := <-d.bus.Frames():
			d.handleFrame(f)

		case a := <-commands:
			d.handleCommand(a)

		case <-tick:
			d.tickAt = d.now()
			// Anything already queued is handled before the tick so emitted
			// frames reflect the latest input.
			d.drain(commands)
			d.ctl.Emit(d.emit)
			d.updateTracker()

		case <-heartbeat:
			d.publishHeartbeat()
		}
	}
}

func (d *daemon) drain(commands <-chan logic.Action) {
	for {
		select {
		case f := <-d.bus.Frames():
			d.handleFrame(f)
		case a := <-commands:
			d.handleCommand(a)
		default:
			return
		}
	}
}

func (d *daemon) handleFrame(f logic.Frame) {
	fired := d.ctl.Handle(f)
	for _, a := range fired {
		log.Printf("action: %s (state=%s)", a, d.ctl.State())
	}
}

// handleCommand runs a remote button press. It bypasses the bus intent
// snapshot so a physical panel's next frame is not misread as an edge.
func (d *daemon) handleCommand(a logic.Action) {
	ran, err := d.ctl.Execute(a)
	if err != nil {
		log.Printf("command: %v", err)
		return
	}
	if ran {
		log.Printf("command: %s (state=%s)", a, d.ctl.State())
	} else {
		log.Printf("command: %s suppressed (state=%s)", a, d.ctl.State())
	}
	if d.tracker != nil {
		d.tracker.RecordCommand(a, d.now())
	}
}

// emit is the controller's output sink.
func (d *daemon) emit(f logic.Frame) {
	d.bus.Send(f)
	if f.ID != d.statusID || d.publisher == nil {
		return
	}
	if d.published && f.Data == d.lastState {
		return
	}
	event := mqtt.StateEvent{
		Timestamp: d.tickAt,
		State:     d.ctl.State(),
		Status:    logic.DecodeStatus(f.Data),
	}
	if err := d.publisher.PublishState(event); err != nil {
		log.Printf("publish error: %v", err)
		// Don't crash on publish failure; retry on the next emission.
		return
	}
	d.published = true
	d.lastState = f.Data
	log.Printf("state: %s %s", event.State, f)
}

func (d *daemon) updateTracker() {
	if d.tracker == nil {
		return
	}
	d.tracker.Update(climateView(d.ctl))
	d.tracker.SetBus(status.BusStats(d.bus.Stats()))
	if d.mqttStatus != nil {
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	}
}

func climateView(ctl *logic.Controller) status.Climate {
	return status.Climate{
		State:             ctl.State(),
		Status:            ctl.Status(),
		Payload:           ctl.StatusFrame().Data,
		Initialized:       ctl.Initialized(),
		HandshakeComplete: ctl.HandshakeComplete(),
		Counts:            ctl.Counts(),
	}
}

func (d *daemon) publishHeartbeat() {
	if d.publisher == nil {
		return
	}
	c := d.ctl.Counts()
	log.Printf("heartbeat: state=%s frames=%d dropped=%d actions=%d suppressed=%d",
		d.ctl.State(), c.FramesHandled, c.FramesDropped, c.ActionsExecuted, c.ActionsSuppressed)

	event := mqtt.SystemEvent{
		Timestamp: d.now(),
		Event:     "HEARTBEAT",
	}
	if d.tracker != nil {
		d.updateTracker()
		event.RawPayload = status.FormatStatusEvent(d.tracker.Snapshot(), "HEARTBEAT", "")
	}
	if err := d.publisher.PublishSystem(event); err != nil {
		log.Printf("heartbeat publish error: %v", err)
	}
}

func (d *daemon) shutdown(s os.Signal) {
	log.Printf("received %v, shutting down", s)
	if d.publisher == nil {
		return
	}
	signalName := "UNKNOWN"
	if s == syscall.SIGINT {
		signalName = "SIGINT"
	} else if s == syscall.SIGTERM {
		signalName = "SIGTERM"
	}
	event := mqtt.SystemEvent{
		Timestamp: d.now(),
		Event:     "SHUTDOWN",
		Reason:    signalName,
		Retained:  true,
	}
	if d.tracker != nil {
		d.updateTracker()
		event.RawPayload = status.FormatStatusEvent(d.tracker.Snapshot(), "SHUTDOWN", signalName)
	}
	if err := d.publisher.PublishSystem(event); err != nil {
		log.Printf("failed to publish shutdown event: %v", err)
	} else {
		log.Printf("published shutdown event")
	}
}
