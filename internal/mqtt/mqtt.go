// Package mqtt bridges the climate controller to an MQTT broker.
package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sweeney/climate-can/internal/logic"
)

// DefaultTopicPrefix is used when no prefix is configured.
const DefaultTopicPrefix = "vehicle/climate"

// Topics holds the topics used by the bridge.
type Topics struct {
	State   string // decoded climate status
	System  string // lifecycle events
	Command string // button presses, subscribed
}

// NewTopics derives the bridge topics from a prefix.
func NewTopics(prefix string) Topics {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{
		State:   prefix + "/state",
		System:  prefix + "/system",
		Command: prefix + "/cmd",
	}
}

// Publisher publishes climate and system events and delivers button commands.
type Publisher interface {
	// PublishState sends the decoded climate status.
	// Returns error if publishing fails (should not crash the process).
	PublishState(event StateEvent) error

	// PublishSystem sends a system lifecycle event.
	PublishSystem(event SystemEvent) error

	// Commands delivers buttons received on the command topic.
	Commands() <-chan logic.Action

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// StateEvent is a snapshot of the outgoing climate status.
type StateEvent struct {
	Timestamp time.Time
	State     logic.OperatingState
	Status    logic.ClimateStatus
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool
}

// Payload is the state topic message.
type Payload struct {
	Climate ClimatePayload `json:"climate"`
}

// ClimatePayload contains the decoded status fields.
type ClimatePayload struct {
	Timestamp     string `json:"timestamp"`
	State         string `json:"state"`
	Active        bool   `json:"active"`
	Auto          bool   `json:"auto"`
	AC            bool   `json:"ac"`
	Dual          bool   `json:"dual"`
	Face          bool   `json:"face"`
	Feet          bool   `json:"feet"`
	FrontDefrost  bool   `json:"front_defrost"`
	Recirculate   bool   `json:"recirculate"`
	RearDefrost   bool   `json:"rear_defrost"`
	FanSpeed      uint8  `json:"fan_speed"`
	DriverTemp    uint8  `json:"driver_temp"`
	PassengerTemp uint8  `json:"passenger_temp"`
	OutsideTemp   uint8  `json:"outside_temp"`
}

// FormatPayload creates the JSON payload for a state event.
func FormatPayload(event StateEvent) ([]byte, error) {
	s := event.Status
	payload := Payload{
		Climate: ClimatePayload{
			Timestamp:     event.Timestamp.UTC().Format(time.RFC3339),
			State:         string(event.State),
			Active:        s.Active,
			Auto:          s.Auto,
			AC:            s.AC,
			Dual:          s.Dual,
			Face:          s.Face,
			Feet:          s.Feet,
			FrontDefrost:  s.FrontDefrost,
			Recirculate:   s.Recirculate,
			RearDefrost:   s.RearDefrost,
			FanSpeed:      s.FanSpeed,
			DriverTemp:    s.DriverTemp,
			PassengerTemp: s.PassengerTemp,
			OutsideTemp:   s.OutsideTemp,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// willPayload is the retained message the broker publishes if the daemon
// disappears without a clean shutdown.
func willPayload(now time.Time) []byte {
	payload, _ := FormatSystemPayload(SystemEvent{
		Timestamp: now,
		Event:     "OFFLINE",
		Reason:    "CONNECTION_LOST",
	})
	return payload
}

// ParseCommand decodes a command topic payload into a button. The payload is
// either a bare button name or a JSON object {"button": "<name>"}.
func ParseCommand(payload []byte) (logic.Action, error) {
	text := strings.TrimSpace(string(payload))
	if strings.HasPrefix(text, "{") {
		var cmd struct {
			Button string `json:"button"`
		}
		if err := json.Unmarshal([]byte(text), &cmd); err != nil {
			return "", fmt.Errorf("parse command: %w", err)
		}
		text = cmd.Button
	}
	return logic.ParseAction(text)
}
