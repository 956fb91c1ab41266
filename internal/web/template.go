package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/edge-sensors/internal/status"
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
	"outcomeClass": func(o string) string {
		switch o {
		case "READING":
			return "reading"
		case "FAULT":
			return "fault"
		}
		return "empty"
	},
	"deref": func(f *float64) float64 { return *f },
	"pin": func(p int) string {
		if p < 0 {
			return "disabled"
		}
		return fmt.Sprintf("%d", p)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Edge Sensors</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.reading { color: green; font-weight: bold; }
.empty { color: #888; }
.fault { color: red; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Edge Sensors</h1>

<h2>Sensors</h2>
{{range .Sensors}}
<table id="sensor-{{.Name}}">
<tr><th>{{.Name}}</th><td class="{{outcomeClass .Outcome}}">{{or .Outcome "PENDING"}}</td></tr>
{{if .Raw}}<tr><th>Value</th><td>{{.Raw}}</td></tr>{{end}}
{{if .Hz}}<tr><th>Frequency</th><td>{{.Hz}} Hz</td></tr>{{end}}
{{if .Humidity}}<tr><th>Humidity</th><td>{{printf "%.1f" (deref .Humidity)}}%</td></tr>{{end}}
{{if .Temperature}}<tr><th>Temperature</th><td>{{printf "%.1f" (deref .Temperature)}}&deg;C</td></tr>{{end}}
{{if .ReadAt}}<tr><th>Read at</th><td>{{.ReadAt}}</td></tr>{{end}}
{{if .Error}}<tr><th>Error</th><td class="fault">{{.Error}}</td></tr>{{end}}
<tr><th>Readings / empty / faults</th><td>{{.Readings}} / {{.Empty}} / {{.Faults}}</td></tr>
</table>
{{else}}
<p>No sensors polled yet.</p>
{{end}}
<table>
<tr><th>Ready</th><td>{{if .Ready}}yes{{else}}no{{end}}</td></tr>
{{with .Calibration}}<tr><th>HH10D calibration</th><td>sens={{.Sensitivity}} offset={{.Offset}}</td></tr>{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTT.Connected}}connected{{else}}disconnected{{end}}">{{if .MQTT.Connected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.MQTT.Broker}}</td></tr>
{{with .Network}}<tr><th>Network</th><td>{{.Status}} ({{.Type}}{{if .SSID}}, {{.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime}}</td></tr>
<tr><th>Chip</th><td>{{.Config.Chip}}</td></tr>
<tr><th>Frequency pin</th><td>{{pin .Config.FreqPin}}</td></tr>
<tr><th>RHT03 pin</th><td>{{pin .Config.RHT03Pin}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

// renderHTML renders from the JSON view so the page and /index.json agree.
func renderHTML(w io.Writer, snap status.Snapshot) {
	data := struct {
		status.StatusInner
		Uptime time.Duration
	}{
		StatusInner: status.View(snap),
		Uptime:      snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
