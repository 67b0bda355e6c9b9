package sbbprotocol

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Result labels for the commands_total counter.
const (
	resultOK              = "ok"
	resultConnectionError = "connection_error"
	resultProtocolError   = "protocol_error"
	resultTimeout         = "timeout"
	resultOther           = "error"
)

// Metrics records client-side exchange statistics. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	commands  *prometheus.CounterVec
	duration  prometheus.Histogram
	connects  prometheus.Counter
	connected prometheus.Gauge
}

// NewMetrics creates the client metrics and registers them with reg.
// Passing a nil registerer creates unregistered metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sbb",
			Subsystem: "client",
			Name:      "commands_total",
			Help:      "Commands sent to the console, by result",
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sbb",
			Subsystem: "client",
			Name:      "command_duration_seconds",
			Help:      "Time from writing a command to reading its full reply",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		connects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sbb",
			Subsystem: "client",
			Name:      "connects_total",
			Help:      "Successful connections to the console",
		}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sbb",
			Subsystem: "client",
			Name:      "connected",
			Help:      "1 while a connection to the console is open",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.commands, m.duration, m.connects, m.connected)
	}
	return m
}

func (m *Metrics) observeCommand(start time.Time, err error) {
	if m == nil {
		return
	}
	m.duration.Observe(time.Since(start).Seconds())
	m.commands.WithLabelValues(resultLabel(err)).Inc()
}

func (m *Metrics) setConnected(up bool) {
	if m == nil {
		return
	}
	if up {
		m.connects.Inc()
		m.connected.Set(1)
		return
	}
	m.connected.Set(0)
}

func resultLabel(err error) string {
	var ce *ConnectionError
	var pe *ProtocolError
	switch {
	case err == nil:
		return resultOK
	case errors.Is(err, ErrTimeout):
		return resultTimeout
	case errors.As(err, &ce):
		return resultConnectionError
	case errors.As(err, &pe):
		return resultProtocolError
	default:
		return resultOther
	}
}
