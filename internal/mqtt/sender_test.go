package mqtt

import (
	"errors"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// fakeToken is a paho.Token that has already completed.
type fakeToken struct {
	err     error
	timeout bool
}

func (t *fakeToken) Wait() bool                     { return !t.timeout }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.timeout }
func (t *fakeToken) Error() error                   { return t.err }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type fakeClient struct {
	open    bool
	err     error
	timeout bool
	sent    []outbound
}

func (c *fakeClient) IsConnectionOpen() bool { return c.open }

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	if c.err != nil || c.timeout {
		return &fakeToken{err: c.err, timeout: c.timeout}
	}
	c.sent = append(c.sent, outbound{topic: topic, qos: qos, retained: retained, payload: payload.([]byte)})
	return &fakeToken{}
}

func msg(n byte) outbound {
	return outbound{topic: "vehicle/climate/state", payload: []byte{n}}
}

func TestSenderPublishesWhenConnected(t *testing.T) {
	client := &fakeClient{open: true}
	s := newSender(client, 10, time.Second)

	if err := s.send(msg(1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(client.sent) != 1 {
		t.Fatalf("expected 1 publish, got %d", len(client.sent))
	}
	if pending, _ := s.buffered(); pending != 0 {
		t.Errorf("pending: got %d, want 0", pending)
	}
}

func TestSenderBuffersWhileDisconnected(t *testing.T) {
	client := &fakeClient{}
	s := newSender(client, 10, time.Second)

	for i := byte(0); i < 3; i++ {
		if err := s.send(msg(i)); err != nil {
			t.Fatalf("send while offline should not error: %v", err)
		}
	}
	if len(client.sent) != 0 {
		t.Fatalf("nothing should be published while offline, got %d", len(client.sent))
	}
	if pending, _ := s.buffered(); pending != 3 {
		t.Fatalf("pending: got %d, want 3", pending)
	}

	client.open = true
	if n := s.flush(); n != 3 {
		t.Errorf("flush: got %d, want 3", n)
	}
	for i, m := range client.sent {
		if m.payload[0] != byte(i) {
			t.Errorf("replay %d: got payload %d", i, m.payload[0])
		}
	}
}

func TestSenderReplaysBeforeNewMessage(t *testing.T) {
	client := &fakeClient{}
	s := newSender(client, 10, time.Second)
	s.send(msg(1))
	s.send(msg(2))

	client.open = true
	if err := s.send(msg(3)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(client.sent) != 3 {
		t.Fatalf("expected 3 publishes, got %d", len(client.sent))
	}
	for i, m := range client.sent {
		if m.payload[0] != byte(i+1) {
			t.Errorf("publish %d: got payload %d, want %d", i, m.payload[0], i+1)
		}
	}
}

func TestSenderBuffersFailedPublish(t *testing.T) {
	client := &fakeClient{open: true, err: errors.New("broker said no")}
	s := newSender(client, 10, time.Second)

	if err := s.send(msg(1)); err == nil {
		t.Fatal("expected publish error")
	}
	if pending, _ := s.buffered(); pending != 1 {
		t.Errorf("failed message should be buffered, pending %d", pending)
	}

	client.err = nil
	if n := s.flush(); n != 1 {
		t.Errorf("flush: got %d, want 1", n)
	}
}

func TestSenderTimeout(t *testing.T) {
	client := &fakeClient{open: true, timeout: true}
	s := newSender(client, 10, time.Millisecond)

	err := s.send(msg(1))
	if !errors.Is(err, errPublishTimeout) {
		t.Errorf("expected timeout error, got %v", err)
	}
}

func TestSenderFlushStopsOnError(t *testing.T) {
	client := &fakeClient{}
	s := newSender(client, 10, time.Second)
	s.send(msg(1))
	s.send(msg(2))

	client.open = true
	client.err = errors.New("gone again")
	if n := s.flush(); n != 0 {
		t.Errorf("flush: got %d, want 0", n)
	}
	if pending, _ := s.buffered(); pending != 2 {
		t.Errorf("messages should be kept after failed replay, pending %d", pending)
	}
}

func TestSenderDroppedCount(t *testing.T) {
	client := &fakeClient{}
	s := newSender(client, 2, time.Second)
	for i := byte(0); i < 5; i++ {
		s.send(msg(i))
	}
	pending, dropped := s.buffered()
	if pending != 2 || dropped != 3 {
		t.Errorf("buffered: got pending=%d dropped=%d, want 2/3", pending, dropped)
	}
}
