package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sweeney/climate-can/internal/logic"
)

func newDecodeCmd(f *flags) *cobra.Command {
	var primary, secondary, aux string
	var presses []string

	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Translate captured status frames without touching the bus",
		Example: `  climate-can decode --primary 3C3E7F804949002C --secondary 598C052400000002
  climate-can decode --primary "3C 3E 7F 80 49 49 00 2C" --secondary 59:8C:05:24:00:00:00:02 --aux 01
  climate-can decode --primary 3C3E7F804949002C --secondary 598C052400000002 --press ac --press fan_up`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, *f)
			if err != nil {
				return err
			}
			lc := cfg.Controller()

			frames := []logic.Frame{}
			for _, in := range []struct {
				id       uint32
				name     string
				value    string
				required bool
			}{
				{lc.PrimaryStatusID, "primary", primary, true},
				{lc.SecondaryStatusID, "secondary", secondary, true},
				{lc.AuxID, "aux", aux, false},
			} {
				if in.value == "" {
					if in.required {
						return fmt.Errorf("--%s is required", in.name)
					}
					continue
				}
				frm, err := parseFrame(in.id, in.value)
				if err != nil {
					return fmt.Errorf("--%s: %w", in.name, err)
				}
				frames = append(frames, frm)
			}
			panel := logic.NewControlPanel(lc.ControlID)
			for _, name := range presses {
				a, err := logic.ParseAction(name)
				if err != nil {
					return fmt.Errorf("--press: %w", err)
				}
				frm, _ := panel.Press(a)
				frames = append(frames, frm)
			}
			return decode(cmd.OutOrStdout(), lc, frames)
		},
	}
	cmd.Flags().StringVar(&primary, "primary", "", "primary status payload (hex, 8 bytes)")
	cmd.Flags().StringVar(&secondary, "secondary", "", "secondary status payload (hex, 8 bytes)")
	cmd.Flags().StringVar(&aux, "aux", "", "auxiliary payload (hex, 1 to 8 bytes)")
	cmd.Flags().StringSliceVar(&presses, "press", nil, "button to press after the status frames (repeatable)")
	return cmd
}

// parseFrame reads a payload written as hex with optional space, colon or
// dot separators.
func parseFrame(id uint32, s string) (logic.Frame, error) {
	clean := strings.NewReplacer(" ", "", ":", "", ".", "", "0x", "", "0X", "").Replace(strings.TrimSpace(s))
	data, err := hex.DecodeString(clean)
	if err != nil {
		return logic.Frame{}, fmt.Errorf("parse hex %q: %w", s, err)
	}
	if len(data) == 0 || len(data) > 8 {
		return logic.Frame{}, fmt.Errorf("payload %q has %d bytes, want 1 to 8", s, len(data))
	}
	frm := logic.Frame{ID: id, Len: uint8(len(data))}
	copy(frm.Data[:], data)
	return frm, nil
}

// decode runs the frames through a fresh controller and prints the resulting
// status frame. When control intents are among the frames it also prints the
// actions they fired and the command frames that would follow.
func decode(w io.Writer, cfg logic.Config, frames []logic.Frame) error {
	clock := &logic.FakeClock{}
	ctl := logic.NewController(cfg, clock, nil)

	var pressed bool
	var fired []string
	for _, frm := range frames {
		if frm.ID == cfg.ControlID {
			pressed = true
		}
		for _, a := range ctl.Handle(frm) {
			fired = append(fired, string(a))
		}
	}
	if dropped := ctl.Counts().FramesDropped; dropped > 0 {
		return fmt.Errorf("%d frame(s) rejected: status frames must carry 8 bytes", dropped)
	}

	var out, cmdA, cmdB logic.Frame
	ctl.Emit(func(f logic.Frame) {
		switch f.ID {
		case cfg.StatusID:
			out = f
		case cfg.CommandAID:
			cmdA = f
		case cfg.CommandBID:
			cmdB = f
		}
	})

	s := ctl.Status()
	fmt.Fprintf(w, "frame:     %s\n", out)
	fmt.Fprintf(w, "state:     %s\n", ctl.State())
	fmt.Fprintf(w, "flags:     active=%s auto=%s ac=%s dual=%s recirculate=%s\n",
		onOff(s.Active), onOff(s.Auto), onOff(s.AC), onOff(s.Dual), onOff(s.Recirculate))
	fmt.Fprintf(w, "vents:     face=%s feet=%s front_defrost=%s rear_defrost=%s\n",
		onOff(s.Face), onOff(s.Feet), onOff(s.FrontDefrost), onOff(s.RearDefrost))
	fmt.Fprintf(w, "fan:       %d\n", s.FanSpeed)
	fmt.Fprintf(w, "temps:     driver=0x%02X passenger=0x%02X outside=0x%02X\n",
		s.DriverTemp, s.PassengerTemp, s.OutsideTemp)
	if pressed {
		if len(fired) == 0 {
			fired = []string{"none"}
		}
		fmt.Fprintf(w, "actions:   %s\n", strings.Join(fired, " "))
		fmt.Fprintf(w, "commands:  %s %s\n", cmdA, cmdB)
	}
	return nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
