package logic

import "testing"

func TestControlPanelPress(t *testing.T) {
	p := NewControlPanel(0x5401)

	f, ok := p.Press(ActionFanUp)
	if !ok {
		t.Fatal("Press returned false for a known action")
	}
	if f.ID != 0x5401 || f.Len != 8 {
		t.Errorf("frame header: got ID 0x%X len %d", f.ID, f.Len)
	}
	if f.Data != [8]byte{0x00, 0x01} {
		t.Errorf("after first press: got % X", f.Data)
	}

	f, _ = p.Press(ActionFanUp)
	if f.Data != [8]byte{} {
		t.Errorf("second press should clear the bit, got % X", f.Data)
	}

	if _, ok := p.Press(Action("HEAT")); ok {
		t.Error("Press should reject unknown actions")
	}
}

func TestControlPanelRoundTrip(t *testing.T) {
	for _, a := range Actions() {
		t.Run(string(a), func(t *testing.T) {
			c, _, _ := activeController(t)
			p := NewControlPanel(0x5401)

			for i := 0; i < 2; i++ {
				f, _ := p.Press(a)
				fired := c.Handle(f)
				if len(fired) != 1 || fired[0] != a {
					t.Fatalf("press %d: fired %v, want [%s]", i, fired, a)
				}
			}
		})
	}
}
