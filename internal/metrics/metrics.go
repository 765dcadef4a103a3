// Package metrics records server activity in a private Prometheus registry.
// Every method is safe to call on a nil *Collector.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector owns the registry and the server's collectors.
type Collector struct {
	Registry *prometheus.Registry

	connections      prometheus.Gauge
	connectionsTotal *prometheus.CounterVec
	commands         *prometheus.CounterVec
	replies          *prometheus.CounterVec
	linesSent        prometheus.Counter
	overflows        prometheus.Counter
	channels         prometheus.Gauge
}

// New registers all collectors on a fresh registry.
func New() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		Registry: reg,
		connections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ircd_connections",
			Help: "Number of open client connections",
		}),
		connectionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ircd_connections_total",
			Help: "Accepted client connections by transport",
		}, []string{"transport"}),
		commands: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ircd_commands_total",
			Help: "Parsed inbound commands",
		}, []string{"command"}),
		replies: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ircd_replies_total",
			Help: "Numeric replies sent by code",
		}, []string{"code"}),
		linesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "ircd_lines_sent_total",
			Help: "Lines written to client transports",
		}),
		overflows: factory.NewCounter(prometheus.CounterOpts{
			Name: "ircd_send_queue_overflows_total",
			Help: "Clients disconnected because their outbound queue was full",
		}),
		channels: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ircd_channels",
			Help: "Number of existing channels",
		}),
	}
}

// ConnectionOpened counts a new session on the named transport.
func (c *Collector) ConnectionOpened(transport string) {
	if c == nil {
		return
	}
	c.connections.Inc()
	c.connectionsTotal.WithLabelValues(transport).Inc()
}

// ConnectionClosed decrements the live connection gauge.
func (c *Collector) ConnectionClosed() {
	if c == nil {
		return
	}
	c.connections.Dec()
}

// Command counts one inbound command by name.
func (c *Collector) Command(name string) {
	if c == nil {
		return
	}
	c.commands.WithLabelValues(name).Inc()
}

// Reply counts one numeric reply by its three-digit code.
func (c *Collector) Reply(code string) {
	if c == nil {
		return
	}
	c.replies.WithLabelValues(code).Inc()
}

// LineSent counts a line written to a transport.
func (c *Collector) LineSent() {
	if c == nil {
		return
	}
	c.linesSent.Inc()
}

// SendQueueOverflow counts a recipient dropped for a full queue.
func (c *Collector) SendQueueOverflow() {
	if c == nil {
		return
	}
	c.overflows.Inc()
}

// SetChannels records the current number of channels.
func (c *Collector) SetChannels(n int) {
	if c == nil {
		return
	}
	c.channels.Set(float64(n))
}
