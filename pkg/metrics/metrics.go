// Package metrics exposes Prometheus collectors for pushline connections.
//
// A nil *Metrics is valid and records nothing, so components can take an
// optional *Metrics from their config without guarding every call.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pushline"

// Rejection reasons used as label values.
const (
	ReasonPendingFull = "pending_full"
	ReasonReadyFull   = "ready_full"
	ReasonClosed      = "closed"
)

// Metrics holds the collectors for one process.
type Metrics struct {
	framesReceived  prometheus.Counter
	framesImmediate prometheus.Counter
	framesDelivered prometheus.Counter
	framesBuffered  prometheus.Counter
	framesStale     prometheus.Counter
	framesDuplicate prometheus.Counter
	framesRejected  *prometheus.CounterVec
	parseErrors     prometheus.Counter
	acksSent        prometheus.Counter
	ackFailures     prometheus.Counter
	pingsSent       prometheus.Counter
	pingFailures    prometheus.Counter
	pongsReceived   prometheus.Counter
	controlReceived *prometheus.CounterVec
	pendingFrames   prometheus.Gauge
	readyFrames     prometheus.Gauge
	connections     prometheus.Gauge
}

// New creates the collectors and registers them on reg.
// A nil reg leaves the collectors unregistered.
func New(reg prometheus.Registerer) *Metrics {
	counter := func(subsystem, name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		})
	}
	gauge := func(subsystem, name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		})
	}

	m := &Metrics{
		framesReceived:  counter("frames", "received_total", "Total inbound frames handled."),
		framesImmediate: counter("frames", "immediate_total", "Total unsequenced frames delivered immediately."),
		framesDelivered: counter("frames", "delivered_total", "Total frames handed to the consumer."),
		framesBuffered:  counter("frames", "buffered_total", "Total sequenced frames parked in the pending set."),
		framesStale:     counter("frames", "stale_total", "Total sequenced frames below the threshold (dropped)."),
		framesDuplicate: counter("frames", "duplicate_total", "Total sequenced frames already pending."),
		framesRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "frames",
				Name:      "rejected_total",
				Help:      "Total sequenced frames refused by the re-order buffer.",
			},
			[]string{"reason"},
		),
		parseErrors:   counter("frames", "parse_errors_total", "Total frames discarded for malformed content."),
		acksSent:      counter("control", "acks_sent_total", "Total acknowledgements sent."),
		ackFailures:   counter("control", "ack_failures_total", "Total acknowledgements that failed to send."),
		pingsSent:     counter("control", "pings_sent_total", "Total keepalive pings sent."),
		pingFailures:  counter("control", "ping_failures_total", "Total keepalive pings that failed to send."),
		pongsReceived: counter("control", "pongs_received_total", "Total pong payloads received."),
		controlReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "control",
				Name:      "received_total",
				Help:      "Total inbound ack and ping frames consumed by the handler.",
			},
			[]string{"type"},
		),
		pendingFrames: gauge("buffer", "pending_frames", "Frames waiting for a gap to fill."),
		readyFrames:   gauge("buffer", "ready_frames", "Frames released and waiting for the consumer."),
		connections:   gauge("transport", "connections", "Currently connected channels."),
	}

	if reg != nil {
		reg.MustRegister(
			m.framesReceived, m.framesImmediate, m.framesDelivered,
			m.framesBuffered, m.framesStale, m.framesDuplicate, m.framesRejected,
			m.parseErrors,
			m.acksSent, m.ackFailures, m.pingsSent, m.pingFailures, m.pongsReceived, m.controlReceived,
			m.pendingFrames, m.readyFrames, m.connections,
		)
	}
	return m
}

// FrameReceived counts an inbound frame.
func (m *Metrics) FrameReceived() {
	if m == nil {
		return
	}
	m.framesReceived.Inc()
}

// FrameImmediate counts an unsequenced frame delivered without buffering.
func (m *Metrics) FrameImmediate() {
	if m == nil {
		return
	}
	m.framesImmediate.Inc()
}

// FramesDelivered counts n frames handed to the consumer.
func (m *Metrics) FramesDelivered(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.framesDelivered.Add(float64(n))
}

// FrameBuffered counts a frame parked in the pending set.
func (m *Metrics) FrameBuffered() {
	if m == nil {
		return
	}
	m.framesBuffered.Inc()
}

// FrameStale counts a frame dropped for being below the threshold.
func (m *Metrics) FrameStale() {
	if m == nil {
		return
	}
	m.framesStale.Inc()
}

// FrameDuplicate counts a frame whose sequence number was already pending.
func (m *Metrics) FrameDuplicate() {
	if m == nil {
		return
	}
	m.framesDuplicate.Inc()
}

// FrameRejected counts a frame refused by the buffer.
func (m *Metrics) FrameRejected(reason string) {
	if m == nil {
		return
	}
	m.framesRejected.WithLabelValues(reason).Inc()
}

// ParseError counts a frame discarded for malformed content.
func (m *Metrics) ParseError() {
	if m == nil {
		return
	}
	m.parseErrors.Inc()
}

// AckSent records an acknowledgement send attempt.
func (m *Metrics) AckSent(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.ackFailures.Inc()
		return
	}
	m.acksSent.Inc()
}

// PingSent records a keepalive ping send attempt.
func (m *Metrics) PingSent(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.pingFailures.Inc()
		return
	}
	m.pingsSent.Inc()
}

// PongReceived counts a pong payload.
func (m *Metrics) PongReceived() {
	if m == nil {
		return
	}
	m.pongsReceived.Inc()
}

// ControlReceived counts an inbound control frame of the given type.
func (m *Metrics) ControlReceived(typ string) {
	if m == nil {
		return
	}
	m.controlReceived.WithLabelValues(typ).Inc()
}

// SetBufferDepth records the current pending and ready sizes.
func (m *Metrics) SetBufferDepth(pending, ready int) {
	if m == nil {
		return
	}
	m.pendingFrames.Set(float64(pending))
	m.readyFrames.Set(float64(ready))
}

// ConnectionOpened increments the connected channels gauge.
func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
}

// ConnectionClosed decrements the connected channels gauge.
func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.connections.Dec()
}
