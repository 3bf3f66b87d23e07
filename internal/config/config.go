// Package config loads daemon configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/climate-can/internal/gpio"
	"github.com/sweeney/climate-can/internal/logic"
)

// Config holds all daemon configuration.
type Config struct {
	CAN    CANConfig    `yaml:"can"`
	Frames FramesConfig `yaml:"frames"`
	Timing TimingConfig `yaml:"timing"`
	GPIO   GPIOConfig   `yaml:"gpio"`
	MQTT   MQTTConfig   `yaml:"mqtt"`
	HTTP   HTTPConfig   `yaml:"http"`
}

// CANConfig selects the SocketCAN interface and the inbound queue depth.
type CANConfig struct {
	Interface string `yaml:"interface"` // e.g. can0, vcan0
	QueueSize int    `yaml:"queue_size"`
}

// FramesConfig holds CAN identifiers. YAML accepts hex (0x54A).
type FramesConfig struct {
	PrimaryStatus   uint32 `yaml:"primary_status"`
	SecondaryStatus uint32 `yaml:"secondary_status"`
	Aux             uint32 `yaml:"aux"`
	ControlIntent   uint32 `yaml:"control_intent"`
	OutgoingStatus  uint32 `yaml:"outgoing_status"`
	CommandA        uint32 `yaml:"command_a"`
	CommandB        uint32 `yaml:"command_b"`
}

// TimingConfig values are milliseconds.
type TimingConfig struct {
	TickMs                 int `yaml:"tick_ms"`
	StatusHeartbeatMs      int `yaml:"status_heartbeat_ms"`
	CommandInitHeartbeatMs int `yaml:"command_init_heartbeat_ms"`
	CommandHeartbeatMs     int `yaml:"command_heartbeat_ms"`
	CommandInitExpireMs    int `yaml:"command_init_expire_ms"`
	RearDefrostPulseMs     int `yaml:"rear_defrost_pulse_ms"`
	SystemHeartbeatMs      int `yaml:"system_heartbeat_ms"` // 0 disables
}

// GPIOConfig configures the rear-defrost relay output.
type GPIOConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Chip           string `yaml:"chip"`
	RearDefrostPin int    `yaml:"rear_defrost_pin"`
}

// MQTTConfig configures the MQTT bridge.
type MQTTConfig struct {
	Broker      string `yaml:"broker"` // empty disables the bridge
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
	BufferSize  int    `yaml:"buffer_size"`
}

// HTTPConfig configures the HTTP status server.
type HTTPConfig struct {
	Addr string `yaml:"addr"` // empty disables the status server
}

// Default returns a config with the R51 identifiers and timing.
func Default() *Config {
	lc := logic.DefaultConfig()
	return &Config{
		CAN: CANConfig{
			Interface: "can0",
			QueueSize: 64,
		},
		Frames: FramesConfig{
			PrimaryStatus:   lc.PrimaryStatusID,
			SecondaryStatus: lc.SecondaryStatusID,
			Aux:             lc.AuxID,
			ControlIntent:   lc.ControlID,
			OutgoingStatus:  lc.StatusID,
			CommandA:        lc.CommandAID,
			CommandB:        lc.CommandBID,
		},
		Timing: TimingConfig{
			TickMs:                 10,
			StatusHeartbeatMs:      int(lc.StatusHeartbeat.Milliseconds()),
			CommandInitHeartbeatMs: int(lc.CommandInitHeartbeat.Milliseconds()),
			CommandHeartbeatMs:     int(lc.CommandHeartbeat.Milliseconds()),
			CommandInitExpireMs:    int(lc.CommandInitExpire.Milliseconds()),
			RearDefrostPulseMs:     int(lc.RearDefrostPulse.Milliseconds()),
			SystemHeartbeatMs:      int((15 * time.Minute).Milliseconds()),
		},
		GPIO: GPIOConfig{
			Enabled:        true,
			Chip:           gpio.DefaultChip,
			RearDefrostPin: gpio.DefaultPinRearDefrost,
		},
		MQTT: MQTTConfig{
			ClientID:    "climate-can",
			TopicPrefix: "vehicle/climate",
			BufferSize:  100,
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
	}
}

// Load reads a YAML file over the defaults. Fields absent from the file keep
// their default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// maxExtendedID is the largest 29-bit CAN identifier.
const maxExtendedID = 0x1FFFFFFF

// Validate checks identifiers and timing.
func (c *Config) Validate() error {
	var errs []error

	ids := []struct {
		name string
		id   uint32
	}{
		{"primary_status", c.Frames.PrimaryStatus},
		{"secondary_status", c.Frames.SecondaryStatus},
		{"aux", c.Frames.Aux},
		{"control_intent", c.Frames.ControlIntent},
		{"outgoing_status", c.Frames.OutgoingStatus},
		{"command_a", c.Frames.CommandA},
		{"command_b", c.Frames.CommandB},
	}
	seen := make(map[uint32]string, len(ids))
	for _, f := range ids {
		if f.id > maxExtendedID {
			errs = append(errs, fmt.Errorf("frames.%s: 0x%X exceeds 29 bits", f.name, f.id))
		}
		if other, dup := seen[f.id]; dup {
			errs = append(errs, fmt.Errorf("frames.%s: 0x%X already used by %s", f.name, f.id, other))
		}
		seen[f.id] = f.name
	}

	positive := []struct {
		name string
		ms   int
	}{
		{"tick_ms", c.Timing.TickMs},
		{"status_heartbeat_ms", c.Timing.StatusHeartbeatMs},
		{"command_init_heartbeat_ms", c.Timing.CommandInitHeartbeatMs},
		{"command_heartbeat_ms", c.Timing.CommandHeartbeatMs},
		{"rear_defrost_pulse_ms", c.Timing.RearDefrostPulseMs},
	}
	for _, p := range positive {
		if p.ms <= 0 {
			errs = append(errs, fmt.Errorf("timing.%s: must be positive, got %d", p.name, p.ms))
		}
	}
	if c.Timing.CommandInitExpireMs < 0 {
		errs = append(errs, fmt.Errorf("timing.command_init_expire_ms: must not be negative, got %d", c.Timing.CommandInitExpireMs))
	}
	if c.Timing.SystemHeartbeatMs < 0 {
		errs = append(errs, fmt.Errorf("timing.system_heartbeat_ms: must not be negative, got %d", c.Timing.SystemHeartbeatMs))
	}
	if c.CAN.Interface == "" {
		errs = append(errs, errors.New("can.interface: required"))
	}
	if c.MQTT.Broker != "" && c.MQTT.TopicPrefix == "" {
		errs = append(errs, errors.New("mqtt.topic_prefix: required when broker is set"))
	}

	return errors.Join(errs...)
}

// Controller returns the controller configuration.
func (c *Config) Controller() logic.Config {
	return logic.Config{
		PrimaryStatusID:      c.Frames.PrimaryStatus,
		SecondaryStatusID:    c.Frames.SecondaryStatus,
		AuxID:                c.Frames.Aux,
		ControlID:            c.Frames.ControlIntent,
		StatusID:             c.Frames.OutgoingStatus,
		CommandAID:           c.Frames.CommandA,
		CommandBID:           c.Frames.CommandB,
		StatusHeartbeat:      ms(c.Timing.StatusHeartbeatMs),
		CommandInitHeartbeat: ms(c.Timing.CommandInitHeartbeatMs),
		CommandHeartbeat:     ms(c.Timing.CommandHeartbeatMs),
		CommandInitExpire:    ms(c.Timing.CommandInitExpireMs),
		RearDefrostPin:       c.GPIO.RearDefrostPin,
		RearDefrostPulse:     ms(c.Timing.RearDefrostPulseMs),
	}
}

// Tick returns the run loop tick interval.
func (c *Config) Tick() time.Duration {
	return ms(c.Timing.TickMs)
}

// SystemHeartbeat returns the MQTT lifecycle heartbeat interval.
func (c *Config) SystemHeartbeat() time.Duration {
	return ms(c.Timing.SystemHeartbeatMs)
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}
