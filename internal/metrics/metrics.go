package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"online-quiz/internal/domain"
)

const namespace = "online_quiz"

// Metrics holds Prometheus collectors for the event log and the HTTP API.
type Metrics struct {
	EventsAppended  *prometheus.CounterVec
	AppendErrors    *prometheus.CounterVec
	Scans           *prometheus.CounterVec
	ScanDuration    *prometheus.HistogramVec
	ReplayedEvents  prometheus.Histogram
	RequestCounter  *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics registers all collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EventsAppended: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "eventlog",
				Name:      "appended_total",
				Help:      "Events appended to quiz logs",
			},
			[]string{"backend", "kind"},
		),
		AppendErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "eventlog",
				Name:      "append_errors_total",
				Help:      "Failed appends",
			},
			[]string{"backend", "kind"},
		),
		Scans: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "eventlog",
				Name:      "scans_total",
				Help:      "Quiz log scans by result",
			},
			[]string{"backend", "result"},
		),
		ScanDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "eventlog",
				Name:      "scan_duration_seconds",
				Help:      "Time to read a full quiz log",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"backend"},
		),
		ReplayedEvents: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "eventlog",
				Name:      "scanned_records",
				Help:      "Records returned per scan",
				Buckets:   prometheus.ExponentialBuckets(8, 2, 10),
			},
		),
		RequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// EventLog mirrors app.EventLog so the decorator can wrap any backend.
type EventLog interface {
	Append(ctx context.Context, ev domain.Event) (domain.Record, error)
	Scan(ctx context.Context, quizID string) ([]domain.Record, error)
	Exists(ctx context.Context, quizID string) (bool, error)
}

// InstrumentedLog records metrics around another EventLog.
type InstrumentedLog struct {
	next    EventLog
	backend string
	metrics *Metrics
}

func Instrument(next EventLog, backend string, m *Metrics) *InstrumentedLog {
	return &InstrumentedLog{next: next, backend: backend, metrics: m}
}

func (l *InstrumentedLog) Append(ctx context.Context, ev domain.Event) (domain.Record, error) {
	rec, err := l.next.Append(ctx, ev)
	kind := string(ev.Kind())
	if err != nil {
		l.metrics.AppendErrors.WithLabelValues(l.backend, kind).Inc()
		return rec, err
	}
	l.metrics.EventsAppended.WithLabelValues(l.backend, kind).Inc()
	return rec, nil
}

func (l *InstrumentedLog) Scan(ctx context.Context, quizID string) ([]domain.Record, error) {
	start := time.Now()
	recs, err := l.next.Scan(ctx, quizID)
	l.metrics.ScanDuration.WithLabelValues(l.backend).Observe(time.Since(start).Seconds())
	if err != nil {
		l.metrics.Scans.WithLabelValues(l.backend, "error").Inc()
		return recs, err
	}
	l.metrics.Scans.WithLabelValues(l.backend, "ok").Inc()
	l.metrics.ReplayedEvents.Observe(float64(len(recs)))
	return recs, nil
}

func (l *InstrumentedLog) Exists(ctx context.Context, quizID string) (bool, error) {
	return l.next.Exists(ctx, quizID)
}
