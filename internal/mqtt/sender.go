package mqtt

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// pahoClient is the subset of paho.Client used to send messages.
type pahoClient interface {
	IsConnectionOpen() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

var errPublishTimeout = errors.New("publish timeout")

// sender publishes through a paho client, holding messages in a ring buffer
// while the connection is down.
type sender struct {
	client  pahoClient
	timeout time.Duration

	mu  sync.Mutex
	buf *ringBuffer
}

func newSender(client pahoClient, capacity int, timeout time.Duration) *sender {
	return &sender{
		client:  client,
		timeout: timeout,
		buf:     newRingBuffer(capacity),
	}
}

// send publishes msg, or buffers it when the connection is not open. A
// message that fails to publish is buffered and the error returned.
func (s *sender) send(msg outbound) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.client.IsConnectionOpen() {
		s.buf.push(msg)
		return nil
	}
	// Earlier messages go first.
	if s.buf.len() > 0 {
		s.flushLocked()
		if s.buf.len() > 0 {
			s.buf.push(msg)
			return nil
		}
	}
	if err := s.publish(msg); err != nil {
		s.buf.push(msg)
		return err
	}
	return nil
}

// flush replays buffered messages in order and returns how many were sent.
func (s *sender) flush() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *sender) flushLocked() int {
	pending := s.buf.drain()
	for i, msg := range pending {
		if err := s.publish(msg); err != nil {
			log.Printf("mqtt: replay stopped after %d of %d messages: %v", i, len(pending), err)
			for _, rest := range pending[i:] {
				s.buf.push(rest)
			}
			return i
		}
	}
	return len(pending)
}

func (s *sender) publish(msg outbound) error {
	token := s.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(s.timeout) {
		return fmt.Errorf("%s: %w", msg.topic, errPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.topic, err)
	}
	return nil
}

// buffered returns the number of messages waiting and the total dropped.
func (s *sender) buffered() (pending, dropped int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.len(), s.buf.dropped
}
