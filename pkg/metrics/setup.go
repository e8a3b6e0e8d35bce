package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors the assistant records into. A nil *Metrics is
// valid and records nothing, so components can take it as an optional dependency.
type Metrics struct {
	Registry *prometheus.Registry

	Turns          *prometheus.CounterVec
	TurnDuration   *prometheus.HistogramVec
	ModelCalls     *prometheus.CounterVec
	ToolCalls      *prometheus.CounterVec
	ToolDuration   *prometheus.HistogramVec
	Retrievals     *prometheus.CounterVec
	LLMCostUSD     prometheus.Counter
	Appointments   prometheus.Counter
	IndexedRecords *prometheus.CounterVec
}

func NewMetrics(cfg Config) *Metrics {
	registry := prometheus.NewRegistry()
	reg := prometheus.WrapRegistererWith(prometheus.Labels{"service": cfg.ServiceName}, registry)

	if cfg.EnableDefaultCollectors {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	ns := cfg.Namespace
	m := &Metrics{
		Registry:     registry,
		Turns:        createCounterVec(ns, "turns_total", "Conversation turns by outcome.", []string{"status"}),
		TurnDuration: createHistogramVec(ns, "turn_duration_seconds", "End-to-end turn latency.", []string{"status"}, prometheus.ExponentialBuckets(0.25, 2, 8)),
		ModelCalls:   createCounterVec(ns, "model_calls_total", "Chat model invocations by graph node and outcome.", []string{"node", "status"}),
		ToolCalls:    createCounterVec(ns, "tool_calls_total", "Tool invocations by tool and outcome.", []string{"tool", "status"}),
		ToolDuration: createHistogramVec(ns, "tool_duration_seconds", "Tool execution latency.", []string{"tool"}, prometheus.DefBuckets),
		Retrievals:   createCounterVec(ns, "retrievals_total", "Vector searches by outcome.", []string{"status"}),
		LLMCostUSD: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "llm_cost_usd_total",
			Help:      "Accumulated LLM spend in USD.",
		}),
		Appointments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "appointments_saved_total",
			Help:      "Appointments persisted by the booking tool.",
		}),
		IndexedRecords: createCounterVec(ns, "indexed_records_total", "Indexing results by kind (added, skipped, deleted).", []string{"kind"}),
	}

	reg.MustRegister(
		m.Turns, m.TurnDuration, m.ModelCalls, m.ToolCalls, m.ToolDuration,
		m.Retrievals, m.LLMCostUSD, m.Appointments, m.IndexedRecords,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveTurn(start time.Time, err error) {
	if m == nil {
		return
	}
	s := status(err)
	m.Turns.WithLabelValues(s).Inc()
	m.TurnDuration.WithLabelValues(s).Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveModelCall(node string, err error) {
	if m == nil {
		return
	}
	m.ModelCalls.WithLabelValues(node, status(err)).Inc()
}

func (m *Metrics) ObserveToolCall(tool string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.ToolCalls.WithLabelValues(tool, status(err)).Inc()
	m.ToolDuration.WithLabelValues(tool).Observe(d.Seconds())
}

func (m *Metrics) ObserveRetrieval(err error) {
	if m == nil {
		return
	}
	m.Retrievals.WithLabelValues(status(err)).Inc()
}

func (m *Metrics) AddCost(usd float64) {
	if m == nil || usd <= 0 {
		return
	}
	m.LLMCostUSD.Add(usd)
}

func (m *Metrics) IncAppointments() {
	if m == nil {
		return
	}
	m.Appointments.Inc()
}

func (m *Metrics) AddIndexed(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.IndexedRecords.WithLabelValues(kind).Add(float64(n))
}
