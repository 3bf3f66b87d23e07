package status

import (
	"encoding/json"
	"fmt"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	State         string       `json:"state"`
	Ready         bool         `json:"ready"`
	Handshake     bool         `json:"handshake_complete"`
	Climate       ClimateJSON  `json:"climate"`
	Payload       string       `json:"payload"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"counts"`
	Bus           BusJSON      `json:"bus"`
	LastCommand   *CommandJSON `json:"last_command,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// ClimateJSON is the decoded outgoing status payload.
type ClimateJSON struct {
	Active        bool  `json:"active"`
	Auto          bool  `json:"auto"`
	AC            bool  `json:"ac"`
	Dual          bool  `json:"dual"`
	Face          bool  `json:"face"`
	Feet          bool  `json:"feet"`
	FrontDefrost  bool  `json:"front_defrost"`
	Recirculate   bool  `json:"recirculate"`
	RearDefrost   bool  `json:"rear_defrost"`
	FanSpeed      uint8 `json:"fan_speed"`
	DriverTemp    uint8 `json:"driver_temp"`
	PassengerTemp uint8 `json:"passenger_temp"`
	OutsideTemp   uint8 `json:"outside_temp"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of controller counters.
type CountsJSON struct {
	FramesHandled     int `json:"frames_handled"`
	FramesDropped     int `json:"frames_dropped"`
	ActionsExecuted   int `json:"actions_executed"`
	ActionsSuppressed int `json:"actions_suppressed"`
	StatusEmitted     int `json:"status_emitted"`
	CommandEmitted    int `json:"command_emitted"`
	OutputErrors      int `json:"output_errors"`
}

// BusJSON is the JSON representation of dispatcher counters.
type BusJSON struct {
	Accepted   int64 `json:"accepted"`
	Rejected   int64 `json:"rejected"`
	Overflowed int64 `json:"overflowed"`
	Sent       int64 `json:"sent"`
	SendErrors int64 `json:"send_errors"`
}

// CommandJSON is the last remote button press.
type CommandJSON struct {
	Button    string `json:"button"`
	Timestamp string `json:"timestamp"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Interface          string `json:"interface"`
	Broker             string `json:"broker"`
	TopicPrefix        string `json:"topic_prefix,omitempty"`
	HTTPAddr           string `json:"http_addr"`
	StatusHeartbeatMs  int64  `json:"status_heartbeat_ms"`
	CommandHeartbeatMs int64  `json:"command_heartbeat_ms"`
	InitExpireMs       int64  `json:"command_init_expire_ms"`
	PulseMs            int64  `json:"rear_defrost_pulse_ms"`
	SystemHeartbeatMs  int64  `json:"system_heartbeat_ms"`
	RearDefrostPin     int    `json:"rear_defrost_pin"`
}

func buildInner(snap Snapshot) StatusInner {
	c := snap.Climate
	state := string(c.State)
	if !c.Initialized || state == "" {
		state = "UNKNOWN"
	}

	inner := StatusInner{
		State:     state,
		Ready:     c.Initialized,
		Handshake: c.HandshakeComplete,
		Climate: ClimateJSON{
			Active:        c.Status.Active,
			Auto:          c.Status.Auto,
			AC:            c.Status.AC,
			Dual:          c.Status.Dual,
			Face:          c.Status.Face,
			Feet:          c.Status.Feet,
			FrontDefrost:  c.Status.FrontDefrost,
			Recirculate:   c.Status.Recirculate,
			RearDefrost:   c.Status.RearDefrost,
			FanSpeed:      c.Status.FanSpeed,
			DriverTemp:    c.Status.DriverTemp,
			PassengerTemp: c.Status.PassengerTemp,
			OutsideTemp:   c.Status.OutsideTemp,
		},
		Payload:       fmt.Sprintf("%X", c.Payload[:]),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			FramesHandled:     c.Counts.FramesHandled,
			FramesDropped:     c.Counts.FramesDropped,
			ActionsExecuted:   c.Counts.ActionsExecuted,
			ActionsSuppressed: c.Counts.ActionsSuppressed,
			StatusEmitted:     c.Counts.StatusEmitted,
			CommandEmitted:    c.Counts.CommandEmitted,
			OutputErrors:      c.Counts.OutputErrors,
		},
		Bus: BusJSON(snap.Bus),
		Config: ConfigJSON{
			Interface:          snap.Config.Interface,
			Broker:             snap.Config.Broker,
			TopicPrefix:        snap.Config.TopicPrefix,
			HTTPAddr:           snap.Config.HTTPAddr,
			StatusHeartbeatMs:  snap.Config.StatusHeartbeatMs,
			CommandHeartbeatMs: snap.Config.CommandHeartbeatMs,
			InitExpireMs:       snap.Config.InitExpireMs,
			PulseMs:            snap.Config.PulseMs,
			SystemHeartbeatMs:  snap.Config.SystemHeartbeatMs,
			RearDefrostPin:     snap.Config.RearDefrostPin,
		},
	}
	if snap.LastCommand != "" {
		inner.LastCommand = &CommandJSON{
			Button:    string(snap.LastCommand),
			Timestamp: snap.LastCommandAt.UTC().Format(time.RFC3339),
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
