package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/contact-sensor/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"duration": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		switch {
		case days > 0:
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		case h > 0:
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		case m > 0:
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"ms": func(n int64) time.Duration { return time.Duration(n) * time.Millisecond },
	"orUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
	"sensorClass": func(s string) string {
		switch s {
		case "closed", "dry":
			return "quiet"
		case "open", "wet":
			return "alert"
		}
		return "unknown"
	},
	"edge": func(level bool) string {
		if level {
			return "rising"
		}
		return "falling"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{orUnknown .Config.Hostname}}</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.quiet { color: green; font-weight: bold; }
.alert { color: red; font-weight: bold; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: #888; }
</style>
</head>
<body>
<h1>{{orUnknown .Config.Hostname}}</h1>

<h2>Sensor</h2>
<table>
<tr><th>Type</th><td>{{.Config.SensorType}} ({{.Config.Polarity}})</td></tr>
<tr><th>State</th><td id="sensor-state" class="{{sensorClass (printf "%s" .Sensor)}}">{{orUnknown (printf "%s" .Sensor)}}</td></tr>
<tr><th>At boot</th><td>{{orUnknown (printf "%s" .Boot.SensorState)}}</td></tr>
</table>

<h2>Cycle</h2>
<table>
<tr><th>State</th><td id="lifecycle-state">{{orUnknown .State}}</td></tr>
<tr><th>Boot</th><td>#{{.Boot.Count}}</td></tr>
<tr><th>Reason</th><td>{{.Boot.Reason}}</td></tr>
<tr><th>Awake</th><td>{{duration .Awake}}</td></tr>
{{with .LastSleep}}<tr><th>Last exit</th><td>{{.Exit}}</td></tr>
<tr><th>Sleep</th><td>{{duration .Duration}} or {{edge .WakeLevel}} edge</td></tr>
{{if not .Until.IsZero}}<tr><th>Next wake</th><td>{{.Until.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>{{end}}{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>Network</th><td>{{orUnknown .NetworkPhase}}{{if .NetworkFailures}} ({{.NetworkFailures}} failures){{end}}</td></tr>
<tr><th>IP</th><td>{{.IP}}</td></tr>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{orUnknown .BrokerPhase}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Topic</th><td>{{.Config.TopicRoot}}</td></tr>
<tr><th>Published</th><td>{{.Published}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{duration .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Cycles</th><td>{{.Cycles}}</td></tr>
<tr><th>Normal sleep</th><td>{{duration (ms .Config.NormalSleepMs)}}</td></tr>
<tr><th>Backoff sleep</th><td>{{duration (ms .Config.BackoffSleepMs)}}</td></tr>
<tr><th>Awake budget</th><td>{{duration (ms .Config.AwakeBudgetMs)}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Uptime and Awake are methods on Snapshot; the template wants fields.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Awake  time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Awake:    snap.Awake(),
	}
	return indexTmpl.Execute(w, data)
}
