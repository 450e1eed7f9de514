// Package observability exposes the engine's prometheus metrics.
package observability

import (
	"context"
	"net/http"

	"mixmatch/domain/event"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mixmatch"

// Metrics owns its own registry so that several instances (tests) never collide.
type Metrics struct {
	registry *prometheus.Registry

	events      *prometheus.CounterVec
	commands    *prometheus.CounterVec
	games       prometheus.Counter
	fallbacks   prometheus.Counter
	rooms       prometheus.Gauge
	connections prometheus.Gauge
	rss         prometheus.Gauge
	cpu         prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Room events emitted, by type.",
		}, []string{"type"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Inbound commands handled by the gateway, by type and result.",
		}, []string{"type", "result"}),
		games: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_finished_total",
			Help:      "Games that reached game over.",
		}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "question_fallbacks_total",
			Help:      "Questions replaced by the built-in fallback after a provider failure.",
		}),
		rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms_active",
			Help:      "Rooms currently open.",
		}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Websocket connections currently open.",
		}),
		rss: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "process_rss_bytes",
			Help:      "Resident memory of the server process.",
		}),
		cpu: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "process_cpu_percent",
			Help:      "CPU usage of the server process.",
		}),
	}
	m.registry.MustRegister(
		m.events, m.commands, m.games, m.fallbacks,
		m.rooms, m.connections, m.rss, m.cpu,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) Name() string { return "metrics" }

// Consume counts every event going through the fan-out.
func (m *Metrics) Consume(_ context.Context, e event.Event) error {
	m.events.WithLabelValues(string(e.Type)).Inc()
	switch e.Type {
	case event.GameFinished:
		m.games.Inc()
	case event.QuestionFallback:
		m.fallbacks.Inc()
	}
	return nil
}

// Command records the outcome of one inbound command. result is "ok" or an error kind.
func (m *Metrics) Command(typ, result string) {
	m.commands.WithLabelValues(typ, result).Inc()
}

func (m *Metrics) ConnectionOpened() { m.connections.Inc() }
func (m *Metrics) ConnectionClosed() { m.connections.Dec() }

func (m *Metrics) SetRooms(n int) { m.rooms.Set(float64(n)) }

// SetProcess records the latest process sample.
func (m *Metrics) SetProcess(rssBytes uint64, cpuPercent float64) {
	m.rss.Set(float64(rssBytes))
	m.cpu.Set(cpuPercent)
}

// Handler exposes the metrics at /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
