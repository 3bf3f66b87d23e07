// Command climate-can translates between a vehicle climate control unit and a
// canonical CAN status/control protocol.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweeney/climate-can/internal/canbus"
	"github.com/sweeney/climate-can/internal/config"
	"github.com/sweeney/climate-can/internal/gpio"
	"github.com/sweeney/climate-can/internal/logic"
	"github.com/sweeney/climate-can/internal/mqtt"
	"github.com/sweeney/climate-can/internal/status"
	"github.com/sweeney/climate-can/internal/web"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// flags holds command-line overrides for the config file.
type flags struct {
	configPath string
	iface      string
	broker     string
	httpAddr   string
	noGPIO     bool
}

func newRootCmd() *cobra.Command {
	var f flags

	root := &cobra.Command{
		Use:   "climate-can",
		Short: "Climate control CAN translator",
		Long: `climate-can reads the vehicle climate control unit's status frames, republishes
them as a canonical status frame, and turns canonical control intents into the
OEM control panel's command frames.

Without a subcommand it runs the daemon.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDaemon(cmd, f)
		},
	}
	root.PersistentFlags().StringVarP(&f.configPath, "config", "c", "", "YAML config file (defaults are used when empty)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the translator daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDaemon(cmd, f)
		},
	}
	for _, c := range []*cobra.Command{root, runCmd} {
		c.Flags().StringVar(&f.iface, "can", "", "CAN interface (overrides can.interface)")
		c.Flags().StringVar(&f.broker, "broker", "", "MQTT broker URL (overrides mqtt.broker)")
		c.Flags().StringVar(&f.httpAddr, "http", "", `HTTP status address (overrides http.addr, "off" disables)`)
		c.Flags().BoolVar(&f.noGPIO, "no-gpio", false, "Do not drive the rear-defrost relay")
	}

	root.AddCommand(runCmd, newDecodeCmd(&f))
	return root
}

// loadConfig reads the config file if one is named and applies flag overrides.
func loadConfig(cmd *cobra.Command, f flags) (*config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		var err error
		if cfg, err = config.Load(f.configPath); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("can") {
		cfg.CAN.Interface = f.iface
	}
	if cmd.Flags().Changed("broker") {
		cfg.MQTT.Broker = f.broker
	}
	if cmd.Flags().Changed("http") {
		cfg.HTTP.Addr = f.httpAddr
		if f.httpAddr == "off" {
			cfg.HTTP.Addr = ""
		}
	}
	if f.noGPIO {
		cfg.GPIO.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func runDaemon(cmd *cobra.Command, f flags) error {
	cfg, err := loadConfig(cmd, f)
	if err != nil {
		return err
	}
	if err := run(cfg); err != nil {
		log.Printf("fatal: %v", err)
		return err
	}
	return nil
}

func run(cfg *config.Config) error {
	lc := cfg.Controller()

	// Rear-defrost relay
	var out logic.Output
	if cfg.GPIO.Enabled {
		w, err := gpio.NewRealWriter(cfg.GPIO.Chip, cfg.GPIO.RearDefrostPin)
		if err != nil {
			return fmt.Errorf("init gpio: %w", err)
		}
		defer w.Close()
		out = w
	}

	// CAN bus
	bus, err := canbus.NewRealBus(cfg.CAN.Interface)
	if err != nil {
		return fmt.Errorf("init can: %w", err)
	}
	defer bus.Close()

	ctl := logic.NewController(lc, logic.NewSystemClock(), out)
	dispatcher := canbus.NewDispatcher(bus, ctl.Filter, cfg.CAN.QueueSize)
	go func() {
		if err := bus.Run(); err != nil {
			log.Printf("can: reader stopped: %v", err)
		}
	}()

	// Status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		Interface:          cfg.CAN.Interface,
		Broker:             cfg.MQTT.Broker,
		TopicPrefix:        cfg.MQTT.TopicPrefix,
		HTTPAddr:           cfg.HTTP.Addr,
		StatusHeartbeatMs:  int64(cfg.Timing.StatusHeartbeatMs),
		CommandHeartbeatMs: int64(cfg.Timing.CommandHeartbeatMs),
		InitExpireMs:       int64(cfg.Timing.CommandInitExpireMs),
		PulseMs:            int64(cfg.Timing.RearDefrostPulseMs),
		SystemHeartbeatMs:  int64(cfg.Timing.SystemHeartbeatMs),
		RearDefrostPin:     cfg.GPIO.RearDefrostPin,
	})

	// MQTT bridge
	var publisher mqtt.Publisher
	var mqttStatus mqtt.ConnectionStatus
	if cfg.MQTT.Broker != "" {
		p, err := mqtt.NewRealPublisher(mqtt.Options{
			Broker:     cfg.MQTT.Broker,
			ClientID:   cfg.MQTT.ClientID,
			Username:   cfg.MQTT.Username,
			Password:   cfg.MQTT.Password,
			Topics:     mqtt.NewTopics(cfg.MQTT.TopicPrefix),
			BufferSize: cfg.MQTT.BufferSize,
		})
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer p.Close()
		publisher, mqttStatus = p, p
		tracker.SetMQTTConnected(p.IsConnected())

		snap := tracker.Snapshot()
		startup := mqtt.SystemEvent{
			Timestamp:  snap.Now,
			Event:      "STARTUP",
			Retained:   true,
			RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
		}
		if err := publisher.PublishSystem(startup); err != nil {
			log.Printf("failed to publish startup event: %v", err)
		} else {
			log.Printf("published startup event")
		}
	}

	// HTTP status server
	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	log.Printf("started: can=%s status=0x%X command=0x%X/0x%X broker=%q tick=%v",
		cfg.CAN.Interface, lc.StatusID, lc.CommandAID, lc.CommandBID, cfg.MQTT.Broker, cfg.Tick())

	ticker := time.NewTicker(cfg.Tick())
	defer ticker.Stop()

	var heartbeat <-chan time.Time
	if hb := cfg.SystemHeartbeat(); hb > 0 && publisher != nil {
		t := time.NewTicker(hb)
		defer t.Stop()
		heartbeat = t.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	d := newDaemon(ctl, dispatcher, publisher, mqttStatus, tracker, time.Now)
	return d.runLoop(ticker.C, heartbeat, sigCh)
}
