// Package metrics exports signal registry and stream statistics to
// Prometheus.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dshills/slotwire/internal/signal"
)

const namespace = "slotwire"

// RegistrySource is the view of a signal registry the collector needs.
type RegistrySource interface {
	Stats() signal.Stats
}

// StreamSource is the view of a stream the collector needs.
type StreamSource interface {
	Stats() signal.StreamStats
}

// Collector implements prometheus.Collector over registry and stream
// statistics. Values are read at scrape time.
type Collector struct {
	source RegistrySource

	mu      sync.RWMutex
	streams map[string]StreamSource

	senders          *prometheus.Desc
	receivers        *prometheus.Desc
	connections      *prometheus.Desc
	deadConnections  *prometheus.Desc
	blockedSenders   *prometheus.Desc
	emissions        *prometheus.Desc
	blockedEmissions *prometheus.Desc
	slotCalls        *prometheus.Desc
	slotErrors       *prometheus.Desc
	slotPanics       *prometheus.Desc
	compactions      *prometheus.Desc

	streamPending   *prometheus.Desc
	streamDelivered *prometheus.Desc
	streamDropped   *prometheus.Desc
}

// NewCollector creates a collector for source.
func NewCollector(source RegistrySource) *Collector {
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, labels, nil)
	}

	return &Collector{
		source:  source,
		streams: make(map[string]StreamSource),

		senders:          desc("senders", "Senders with at least one live connection"),
		receivers:        desc("receivers", "Distinct receiver anchors"),
		connections:      desc("connections", "Live connections"),
		deadConnections:  desc("dead_connections", "Disconnected entries awaiting compaction"),
		blockedSenders:   desc("blocked_senders", "Senders inside BlockAll"),
		emissions:        desc("emissions_total", "Emissions that reached the slot pass"),
		blockedEmissions: desc("blocked_emissions_total", "Emissions suppressed by blocking"),
		slotCalls:        desc("slot_calls_total", "Slot invocations"),
		slotErrors:       desc("slot_errors_total", "Slots that returned an error"),
		slotPanics:       desc("slot_panics_total", "Slots that panicked"),
		compactions:      desc("compactions_total", "Connection list compactions"),

		streamPending:   desc("stream_pending", "Values buffered in a stream", "stream"),
		streamDelivered: desc("stream_delivered_total", "Values pulled from a stream", "stream"),
		streamDropped:   desc("stream_dropped_total", "Values dropped by a stream", "stream"),
	}
}

// AddStream reports s under the given stream label.
func (c *Collector) AddStream(name string, s StreamSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.streams[name] = s
}

// RemoveStream stops reporting the named stream.
func (c *Collector) RemoveStream(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.streams, name)
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.senders, c.receivers, c.connections, c.deadConnections, c.blockedSenders,
		c.emissions, c.blockedEmissions, c.slotCalls, c.slotErrors, c.slotPanics,
		c.compactions, c.streamPending, c.streamDelivered, c.streamDropped,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.source.Stats()

	gauge := func(d *prometheus.Desc, v int, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, float64(v), labels...)
	}
	counter := func(d *prometheus.Desc, v uint64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}

	gauge(c.senders, s.Senders)
	gauge(c.receivers, s.Receivers)
	gauge(c.connections, s.Connections)
	gauge(c.deadConnections, s.DeadConnections)
	gauge(c.blockedSenders, s.BlockedSenders)
	counter(c.emissions, s.Emissions)
	counter(c.blockedEmissions, s.BlockedEmissions)
	counter(c.slotCalls, s.SlotCalls)
	counter(c.slotErrors, s.SlotErrors)
	counter(c.slotPanics, s.SlotPanics)
	counter(c.compactions, s.Compactions)

	c.mu.RLock()
	defer c.mu.RUnlock()
	for name, stream := range c.streams {
		st := stream.Stats()
		gauge(c.streamPending, st.Pending, name)
		counter(c.streamDelivered, st.Delivered, name)
		counter(c.streamDropped, st.Dropped, name)
	}
}

// Prom bundles a dedicated Prometheus registry with a Collector.
type Prom struct {
	reg       *prometheus.Registry
	Collector *Collector
}

// NewProm creates a Prometheus registry exporting source.
func NewProm(source RegistrySource) *Prom {
	reg := prometheus.NewRegistry()
	c := NewCollector(source)
	reg.MustRegister(c)
	return &Prom{reg: reg, Collector: c}
}

// Gatherer returns the underlying Prometheus registry.
func (p *Prom) Gatherer() prometheus.Gatherer { return p.reg }

// Handler serves the metrics in the Prometheus exposition format.
func (p *Prom) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{})
}
