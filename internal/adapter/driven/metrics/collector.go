package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/diillson/aws-cost-monitor-go/internal/domain/entity"
	"github.com/diillson/aws-cost-monitor-go/internal/shared/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "aws_cost_monitor"

// Collector agrupa as métricas do modo watch.
//
// Metrics:
//   - aws_cost_monitor_evaluations_total{status}
//   - aws_cost_monitor_evaluation_duration_seconds
//   - aws_cost_monitor_findings_total{severity}
//   - aws_cost_monitor_dispatch_decisions_total{reason}
//   - aws_cost_monitor_window_cost_dollars{window}
//   - aws_cost_monitor_window_unavailable{window}
//   - aws_cost_monitor_last_evaluation_timestamp_seconds
type Collector struct {
	registry *prometheus.Registry

	evaluations       *prometheus.CounterVec
	duration          prometheus.Histogram
	findings          *prometheus.CounterVec
	decisions         *prometheus.CounterVec
	windowCost        *prometheus.GaugeVec
	windowUnavailable *prometheus.GaugeVec
	lastEvaluation    prometheus.Gauge
}

// NewCollector registers every metric in registry; nil creates a private registry.
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		registry: registry,
		evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "evaluations_total",
				Help:      "Evaluations run, by outcome",
			},
			[]string{"status"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "evaluation_duration_seconds",
				Help:      "Wall time of one evaluation",
				// Cost Explorer responde em segundos; paginação longa chega a minutos
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		),
		findings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "findings_total",
				Help:      "Anomaly findings, by severity",
			},
			[]string{"severity"},
		),
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dispatch_decisions_total",
				Help:      "Per-recipient dispatch decisions, by reason",
			},
			[]string{"reason"},
		),
		windowCost: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "window_cost_dollars",
				Help:      "Total cost of each window in the last evaluation",
			},
			[]string{"window"},
		),
		windowUnavailable: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "window_unavailable",
				Help:      "1 when the last evaluation had no upstream data for the window",
			},
			[]string{"window"},
		),
		lastEvaluation: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_evaluation_timestamp_seconds",
				Help:      "Unix time of the last finished evaluation",
			},
		),
	}

	registry.MustRegister(
		c.evaluations,
		c.duration,
		c.findings,
		c.decisions,
		c.windowCost,
		c.windowUnavailable,
		c.lastEvaluation,
	)
	return c
}

// RecordEvaluation records one Evaluate call. eval may be nil when the run failed early.
func (c *Collector) RecordEvaluation(eval *entity.Evaluation, duration time.Duration, err error) {
	c.evaluations.WithLabelValues(statusOf(err)).Inc()
	c.duration.Observe(duration.Seconds())

	if eval == nil {
		return
	}
	c.lastEvaluation.Set(float64(eval.EvaluatedAt.Unix()))

	for _, f := range eval.Findings {
		c.findings.WithLabelValues(string(f.Severity)).Inc()
	}
	for _, d := range eval.Decisions {
		c.decisions.WithLabelValues(string(d.Reason)).Inc()
	}
	for _, s := range eval.Summaries {
		label := string(s.Window.Label)
		if !s.Available {
			c.windowUnavailable.WithLabelValues(label).Set(1)
			continue
		}
		c.windowUnavailable.WithLabelValues(label).Set(0)
		total, _ := s.Total.Float64()
		c.windowCost.WithLabelValues(label).Set(total)
	}
}

func statusOf(err error) string {
	var cfgErr *types.ConfigurationError
	var transportErr *types.TransportError
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &cfgErr):
		return "config_error"
	case errors.As(err, &transportErr):
		return "transport_error"
	default:
		return "error"
	}
}

// Handler expõe o registry no formato Prometheus.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
