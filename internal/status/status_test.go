package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/climate-can/internal/logic"
)

func autoClimate() Climate {
	return Climate{
		State: logic.StateAuto,
		Status: logic.ClimateStatus{
			Active: true, Auto: true, AC: true, Face: true, Feet: true,
			FanSpeed: 3, DriverTemp: 0x49, PassengerTemp: 0x49, OutsideTemp: 0x2C,
		},
		Payload:           [8]byte{0x37, 0x03, 0x49, 0x49, 0x00, 0x00, 0x00, 0x2C},
		Initialized:       true,
		HandshakeComplete: true,
		Counts:            logic.Counts{FramesHandled: 12, StatusEmitted: 4, CommandEmitted: 9},
	}
}

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{Interface: "can0", Broker: "tcp://localhost:1883", HTTPAddr: ":8080"}
	tr := NewTracker(start, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config.Interface != "can0" {
		t.Errorf("Config.Interface: got %q, want can0", snap.Config.Interface)
	}
	if snap.Climate.Initialized {
		t.Error("expected Initialized=false initially")
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
	if snap.Version != 0 {
		t.Errorf("Version: got %d, want 0", snap.Version)
	}
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.Update(autoClimate())

	snap := tr.Snapshot()
	if snap.Climate.State != logic.StateAuto {
		t.Errorf("State: got %q, want AUTO", snap.Climate.State)
	}
	if snap.Climate.Status.FanSpeed != 3 {
		t.Errorf("FanSpeed: got %d, want 3", snap.Climate.Status.FanSpeed)
	}
	if snap.Climate.Counts.FramesHandled != 12 {
		t.Errorf("FramesHandled: got %d, want 12", snap.Climate.Counts.FramesHandled)
	}
}

func TestVersionTracksChanges(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	c := autoClimate()

	tr.Update(c)
	if v := tr.Version(); v != 1 {
		t.Fatalf("first update: version %d, want 1", v)
	}

	// Counters alone are not a change.
	c.Counts.FramesHandled++
	tr.Update(c)
	if v := tr.Version(); v != 1 {
		t.Errorf("counter update bumped version to %d", v)
	}

	c.Payload[1] = 0x04
	tr.Update(c)
	if v := tr.Version(); v != 2 {
		t.Errorf("payload change: version %d, want 2", v)
	}

	c.State = logic.StateManual
	tr.Update(c)
	if v := tr.Version(); v != 3 {
		t.Errorf("state change: version %d, want 3", v)
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}

	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestSetBusAndRecordCommand(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	at := time.Date(2026, 1, 1, 0, 0, 5, 0, time.UTC)

	tr.SetBus(BusStats{Accepted: 10, Rejected: 4, Sent: 7})
	tr.RecordCommand(logic.ActionFanUp, at)

	snap := tr.Snapshot()
	if snap.Bus.Accepted != 10 || snap.Bus.Rejected != 4 || snap.Bus.Sent != 7 {
		t.Errorf("Bus: got %+v", snap.Bus)
	}
	if snap.LastCommand != logic.ActionFanUp || !snap.LastCommandAt.Equal(at) {
		t.Errorf("LastCommand: got %s at %v", snap.LastCommand, snap.LastCommandAt)
	}
}

func TestSnapshotUptime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		StartTime: start,
		Now:       start.Add(15 * time.Minute),
	}

	if snap.Uptime() != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", snap.Uptime())
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.Update(autoClimate())

	snap1 := tr.Snapshot()

	c := autoClimate()
	c.State = logic.StateOff
	tr.Update(c)

	if snap1.Climate.State != logic.StateAuto {
		t.Error("snapshot should be a copy; State was modified")
	}
}

func TestFormatJSON(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Climate:       autoClimate(),
		Bus:           BusStats{Accepted: 20, Sent: 15},
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config:        Config{Interface: "can0", Broker: "tcp://localhost:1883", HTTPAddr: ":8080", StatusHeartbeatMs: 500},
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.State != "AUTO" {
		t.Errorf("State: got %q, want AUTO", parsed.Status.State)
	}
	if !parsed.Status.Ready || !parsed.Status.Handshake {
		t.Error("expected Ready and Handshake")
	}
	if parsed.Status.Payload != "370349490000002C" {
		t.Errorf("Payload: got %q", parsed.Status.Payload)
	}
	if !parsed.Status.Climate.Auto || parsed.Status.Climate.DriverTemp != 0x49 {
		t.Errorf("Climate: got %+v", parsed.Status.Climate)
	}
	if parsed.Status.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", parsed.Status.UptimeSeconds)
	}
	if !parsed.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if parsed.Status.Counts.StatusEmitted != 4 {
		t.Errorf("Counts.StatusEmitted: got %d, want 4", parsed.Status.Counts.StatusEmitted)
	}
	if parsed.Status.Bus.Accepted != 20 || parsed.Status.Bus.Sent != 15 {
		t.Errorf("Bus: got %+v", parsed.Status.Bus)
	}
	if parsed.Status.Config.StatusHeartbeatMs != 500 {
		t.Errorf("Config.StatusHeartbeatMs: got %d", parsed.Status.Config.StatusHeartbeatMs)
	}
	if parsed.Status.LastCommand != nil {
		t.Error("LastCommand should be omitted when no command was received")
	}
	if parsed.Status.Event != "" || parsed.Status.Reason != "" {
		t.Errorf("expected no event/reason for web format, got %q/%q", parsed.Status.Event, parsed.Status.Reason)
	}
}

func TestFormatJSONUnknownState(t *testing.T) {
	snap := Snapshot{
		Climate:   Climate{State: logic.StateOff},
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	var parsed StatusJSON
	json.Unmarshal(FormatJSON(snap), &parsed)

	if parsed.Status.State != "UNKNOWN" {
		t.Errorf("State before initialization: got %q, want UNKNOWN", parsed.Status.State)
	}
	if parsed.Status.Ready {
		t.Error("expected Ready=false")
	}
}

func TestFormatJSONLastCommand(t *testing.T) {
	snap := Snapshot{
		Climate:       autoClimate(),
		LastCommand:   logic.ActionRearDefrost,
		LastCommandAt: time.Date(2026, 1, 1, 0, 0, 30, 0, time.UTC),
		StartTime:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:           time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC),
	}

	var parsed StatusJSON
	json.Unmarshal(FormatJSON(snap), &parsed)

	if parsed.Status.LastCommand == nil {
		t.Fatal("expected LastCommand")
	}
	if parsed.Status.LastCommand.Button != "REAR_DEFROST" {
		t.Errorf("Button: got %q", parsed.Status.LastCommand.Button)
	}
	if parsed.Status.LastCommand.Timestamp != "2026-01-01T00:00:30Z" {
		t.Errorf("Timestamp: got %q", parsed.Status.LastCommand.Timestamp)
	}
}

func TestFormatStatusEvent(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Climate:   autoClimate(),
		StartTime: start,
		Now:       start.Add(15 * time.Minute),
		Config:    Config{Broker: "tcp://localhost:1883"},
	}

	data := FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Event != "SHUTDOWN" {
		t.Errorf("Event: got %q, want SHUTDOWN", parsed.Status.Event)
	}
	if parsed.Status.Reason != "SIGTERM" {
		t.Errorf("Reason: got %q, want SIGTERM", parsed.Status.Reason)
	}
	if parsed.Status.State != "AUTO" {
		t.Errorf("State: got %q, want AUTO", parsed.Status.State)
	}
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	data := FormatStatusEvent(snap, "STARTUP", "")

	var raw map[string]interface{}
	json.Unmarshal(data, &raw)
	status := raw["status"].(map[string]interface{})
	if _, exists := status["reason"]; exists {
		t.Error("reason should be omitted when empty")
	}
	if status["event"] != "STARTUP" {
		t.Errorf("event: got %v, want STARTUP", status["event"])
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		c := autoClimate()
		for i := 0; i < 1000; i++ {
			c.Counts.FramesHandled = i
			c.Payload[2] = byte(i)
			tr.Update(c)
			tr.SetMQTTConnected(i%2 == 0)
			tr.SetBus(BusStats{Accepted: int64(i)})
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = snap.Uptime()
			_ = tr.Version()
		}
	}()

	wg.Wait()
}
