package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/x728-supervisor/internal/status"
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
	"orUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>X728 UPS</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.ok { color: green; font-weight: bold; }
.warn { color: red; font-weight: bold; }
.off { color: #888; }
.unknown { color: orange; }
</style>
</head>
<body>
<h1>X728 UPS</h1>

<h2>Power</h2>
<table>
<tr><th>Mains</th><td id="power" class="{{if eq (orUnknown (printf "%s" .Power)) "AC_PRESENT"}}ok{{else if eq (orUnknown (printf "%s" .Power)) "AC_ABSENT"}}warn{{else}}unknown{{end}}">{{orUnknown (printf "%s" .Power)}}</td></tr>
{{if .Battery}}<tr><th>Battery voltage</th><td>{{printf "%.2f" .Battery.Voltage}}V</td></tr>
<tr><th>Battery capacity</th><td>{{printf "%.0f" .Battery.Capacity}}%</td></tr>{{else}}<tr><th>Battery</th><td class="unknown">not read yet</td></tr>{{end}}
<tr><th>Button</th><td>{{if .Measuring}}held{{else}}idle{{end}}</td></tr>
</table>

<h2>Thermal</h2>
<table>
<tr><th>CPU temperature</th><td>{{.TempC}}C</td></tr>
<tr><th>Fan</th><td class="{{if eq (printf "%s" .Fan) "ON"}}ok{{else}}off{{end}}">{{if .Config.FanEnabled}}{{orUnknown (printf "%s" .Fan)}}{{else}}disabled{{end}}</td></tr>
<tr><th>Thresholds</th><td>on &gt; {{.Config.FanOnC}}C, off &lt; {{.Config.FanOffC}}C</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}ok{{else}}warn{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Event Counts</h2>
<table>
<tr><th>AC lost</th><td>{{.Counts.ACLost}}</td></tr>
<tr><th>AC restored</th><td>{{.Counts.ACRestored}}</td></tr>
<tr><th>Fan on</th><td>{{.Counts.FanOn}}</td></tr>
<tr><th>Fan off</th><td>{{.Counts.FanOff}}</td></tr>
<tr><th>Battery low</th><td>{{.Counts.BatteryLow}}</td></tr>
<tr><th>Button reboot</th><td>{{.Counts.ButtonReboot}}</td></tr>
<tr><th>Button shutdown</th><td>{{.Counts.ButtonShutdown}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Interval</th><td>{{.Config.IntervalMs}}ms</td></tr>
<tr><th>Battery low</th><td>{{.Config.BatteryLowPercent}}%</td></tr>
<tr><th>Reboot pulse</th><td>{{.Config.RebootMinMs}}-{{.Config.RebootMaxMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
