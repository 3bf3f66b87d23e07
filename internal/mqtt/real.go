package mqtt

import (
	"fmt"
	"log"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/climate-can/internal/logic"
)

// Options configures a RealPublisher.
type Options struct {
	Broker     string
	ClientID   string
	Username   string
	Password   string
	Topics     Topics
	BufferSize int
}

// DefaultBufferSize is the number of messages held while disconnected.
const DefaultBufferSize = 100

// RealPublisher publishes to an actual MQTT broker.
type RealPublisher struct {
	client   paho.Client
	topics   Topics
	sender   *sender
	commands chan logic.Action
}

// NewRealPublisher creates a publisher connected to the given broker and
// subscribed to the command topic.
func NewRealPublisher(o Options) (*RealPublisher, error) {
	if o.ClientID == "" {
		o.ClientID = "climate-can"
	}
	if o.BufferSize <= 0 {
		o.BufferSize = DefaultBufferSize
	}
	if o.Topics == (Topics{}) {
		o.Topics = NewTopics(DefaultTopicPrefix)
	}

	p := &RealPublisher{
		topics:   o.Topics,
		commands: make(chan logic.Action, 16),
	}

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(o.Topics.System, string(willPayload(time.Now())), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})
	if o.Username != "" {
		opts.SetUsername(o.Username)
		opts.SetPassword(o.Password)
	}

	p.client = paho.NewClient(opts)
	p.sender = newSender(p.client, o.BufferSize, 5*time.Second)

	// With connect retry the token only completes once a connection is made,
	// so a timeout just means the broker is not reachable yet.
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		log.Printf("mqtt: %s not reachable yet, retrying in background", o.Broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

// onConnect runs on every (re)connection: subscribe and replay.
func (p *RealPublisher) onConnect(c paho.Client) {
	token := c.Subscribe(p.topics.Command, 1, p.onCommand)
	if token.WaitTimeout(5*time.Second) && token.Error() != nil {
		log.Printf("mqtt: subscribe %s: %v", p.topics.Command, token.Error())
	}
	if n := p.sender.flush(); n > 0 {
		log.Printf("mqtt: replayed %d buffered messages", n)
	}
}

func (p *RealPublisher) onCommand(_ paho.Client, msg paho.Message) {
	action, err := ParseCommand(msg.Payload())
	if err != nil {
		log.Printf("mqtt: ignoring command on %s: %v", msg.Topic(), err)
		return
	}
	select {
	case p.commands <- action:
	default:
		log.Printf("mqtt: command queue full, dropping %s", action)
	}
}

// PublishState sends the decoded climate status, retained so new
// subscribers see the current state.
func (p *RealPublisher) PublishState(event StateEvent) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	return p.sender.send(outbound{topic: p.topics.State, payload: payload, retained: true})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) - lifecycle events should arrive
	return p.sender.send(outbound{topic: p.topics.System, payload: payload, qos: 1, retained: event.Retained})
}

// Commands delivers buttons received on the command topic.
func (p *RealPublisher) Commands() <-chan logic.Action {
	return p.commands
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Buffered returns the number of messages waiting for the connection and
// the number dropped because the buffer was full.
func (p *RealPublisher) Buffered() (pending, dropped int) {
	return p.sender.buffered()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
