package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/climate-can/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"stateClass": func(s string) string {
		switch s {
		case "OFF":
			return "off"
		case "UNKNOWN":
			return "unknown"
		}
		return "on"
	},
	"onOff": func(b bool) string {
		if b {
			return "on"
		}
		return "off"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Climate Controller</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Climate Controller<span id="live-dot" class="live-dot pending" title="connecting"></span></h1>

<h2>State</h2>
<table>
<tr><th>Mode</th><td id="state" class="{{stateClass .State}}">{{.State}}</td></tr>
<tr><th>Ready</th><td id="ready">{{if .Climate.Initialized}}yes{{else}}no{{end}}</td></tr>
<tr><th>Handshake</th><td>{{if .Climate.HandshakeComplete}}complete{{else}}pending{{end}}</td></tr>
<tr><th>Payload</th><td id="payload">{{printf "% X" .Climate.Payload}}</td></tr>
</table>

<h2>Climate</h2>
<table>
<tr><th>Fan</th><td id="fan_speed">{{.Climate.Status.FanSpeed}}</td></tr>
<tr><th>Driver</th><td id="driver_temp">{{.Climate.Status.DriverTemp}}</td></tr>
<tr><th>Passenger</th><td id="passenger_temp">{{.Climate.Status.PassengerTemp}}</td></tr>
<tr><th>Outside</th><td id="outside_temp">{{.Climate.Status.OutsideTemp}}</td></tr>
<tr><th>A/C</th><td id="ac">{{onOff .Climate.Status.AC}}</td></tr>
<tr><th>Dual</th><td id="dual">{{onOff .Climate.Status.Dual}}</td></tr>
<tr><th>Recirculate</th><td id="recirculate">{{onOff .Climate.Status.Recirculate}}</td></tr>
<tr><th>Face</th><td id="face">{{onOff .Climate.Status.Face}}</td></tr>
<tr><th>Feet</th><td id="feet">{{onOff .Climate.Status.Feet}}</td></tr>
<tr><th>Front Defrost</th><td id="front_defrost">{{onOff .Climate.Status.FrontDefrost}}</td></tr>
<tr><th>Rear Defrost</th><td id="rear_defrost">{{onOff .Climate.Status.RearDefrost}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>CAN</th><td>{{.Config.Interface}}</td></tr>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
{{if .LastCommand}}<tr><th>Last command</th><td>{{.LastCommand}} at {{.LastCommandAt.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>{{end}}
</table>

<h2>Counters</h2>
<table>
<tr><th>Frames handled</th><td>{{.Climate.Counts.FramesHandled}}</td></tr>
<tr><th>Frames dropped</th><td>{{.Climate.Counts.FramesDropped}}</td></tr>
<tr><th>Actions executed</th><td>{{.Climate.Counts.ActionsExecuted}}</td></tr>
<tr><th>Actions suppressed</th><td>{{.Climate.Counts.ActionsSuppressed}}</td></tr>
<tr><th>Status frames</th><td>{{.Climate.Counts.StatusEmitted}}</td></tr>
<tr><th>Command pairs</th><td>{{.Climate.Counts.CommandEmitted}}</td></tr>
<tr><th>Bus rejected</th><td>{{.Bus.Rejected}}</td></tr>
<tr><th>Bus overflowed</th><td>{{.Bus.Overflowed}}</td></tr>
<tr><th>Send errors</th><td>{{.Bus.SendErrors}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Status heartbeat</th><td>{{.Config.StatusHeartbeatMs}}ms</td></tr>
<tr><th>Command heartbeat</th><td>{{.Config.CommandHeartbeatMs}}ms</td></tr>
<tr><th>Init deadline</th><td>{{.Config.InitExpireMs}}ms</td></tr>
<tr><th>Rear defrost</th><td>pin {{.Config.RearDefrostPin}}, {{.Config.PulseMs}}ms</td></tr>
<tr><th>System heartbeat</th><td>{{if eq .Config.SystemHeartbeatMs 0}}disabled{{else}}{{.Config.SystemHeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
<script>
(function() {
  var dot = document.getElementById("live-dot");
  var fields = ["fan_speed", "driver_temp", "passenger_temp", "outside_temp"];
  var flags = ["ac", "dual", "recirculate", "face", "feet", "front_defrost", "rear_defrost"];

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  function apply(s) {
    var el = document.getElementById("state");
    el.textContent = s.state;
    el.className = s.state === "OFF" ? "off" : s.state === "UNKNOWN" ? "unknown" : "on";
    document.getElementById("ready").textContent = s.ready ? "yes" : "no";
    document.getElementById("payload").textContent = s.payload.replace(/(..)(?!$)/g, "$1 ");
    fields.forEach(function(f) { document.getElementById(f).textContent = s.climate[f]; });
    flags.forEach(function(f) { document.getElementById(f).textContent = s.climate[f] ? "on" : "off"; });
  }

  function connect() {
    var ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
    ws.onopen = function() { setDot("ok", "live"); };
    ws.onmessage = function(ev) {
      try { apply(JSON.parse(ev.data).status); } catch (e) {}
    };
    ws.onclose = function() {
      setDot("err", "offline");
      setTimeout(connect, 5000);
    };
  }
  connect();
})();
</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		State  string
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		State:    displayState(snap),
	}
	indexTmpl.Execute(w, data)
}

func displayState(snap status.Snapshot) string {
	if !snap.Climate.Initialized || snap.Climate.State == "" {
		return "UNKNOWN"
	}
	return string(snap.Climate.State)
}
