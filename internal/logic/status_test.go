package logic

import (
	"testing"
	"time"
)

func TestDecodeStatus(t *testing.T) {
	got := DecodeStatus([8]byte{0xBD, 0x01, 0x4E, 0x50, 0x01, 0x00, 0x00, 0x20})
	want := ClimateStatus{
		Active:        true,
		AC:            true,
		Dual:          true,
		Face:          true,
		Feet:          true,
		Recirculate:   true,
		RearDefrost:   true,
		FanSpeed:      1,
		DriverTemp:    0x4E,
		PassengerTemp: 0x50,
		OutsideTemp:   0x20,
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestDecodeStatusEmpty(t *testing.T) {
	if got := DecodeStatus([8]byte{}); got != (ClimateStatus{}) {
		t.Errorf("got %+v, want zero value", got)
	}
}

func TestFakeClockDelay(t *testing.T) {
	c := &FakeClock{}
	c.Delay(1500 * time.Millisecond)
	if c.Millis() != 1500 {
		t.Errorf("got %d, want 1500", c.Millis())
	}
}

func TestSystemClockMonotonic(t *testing.T) {
	c := NewSystemClock()
	a := c.Millis()
	time.Sleep(5 * time.Millisecond)
	b := c.Millis()
	if b < a+5 {
		t.Errorf("clock advanced %dms, want at least 5ms", b-a)
	}
}
