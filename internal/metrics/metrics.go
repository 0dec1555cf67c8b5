// Package metrics counts ingestions, validations and submissions. The CLI
// is short-lived, so the collected values are pushed to a Prometheus
// pushgateway at the end of a run instead of being scraped.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const metricPrefix = "batchupload_"

// Result label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultValid   = "valid"
	ResultInvalid = "invalid"
	ResultDryRun  = "dry_run"
)

// Metrics bundles the run metrics on a private registry. A nil *Metrics
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	IngestTotal          *prometheus.CounterVec
	HeadersIngested      prometheus.Counter
	ItemsIngested        prometheus.Counter
	ValidationTotal      *prometheus.CounterVec
	ValidationFieldError *prometheus.CounterVec
	SubmitTotal          *prometheus.CounterVec
	SubmitDuration       prometheus.Histogram
}

// New constructs and registers the metrics.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		IngestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_total",
				Help: "Spreadsheet ingestions by result",
			},
			[]string{"result"},
		),
		HeadersIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "headers_ingested_total",
			Help: "Header drafts built from spreadsheets",
		}),
		ItemsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "items_ingested_total",
			Help: "Item drafts built from spreadsheets",
		}),
		ValidationTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "validation_total",
				Help: "Validation passes by result",
			},
			[]string{"result"},
		),
		ValidationFieldError: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "validation_field_errors_total",
				Help: "Fields marked Error by scope (header or item)",
			},
			[]string{"scope"},
		),
		SubmitTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "submit_total",
				Help: "Submissions by result",
			},
			[]string{"result"},
		),
		SubmitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    metricPrefix + "submit_duration_seconds",
			Help:    "Duration of the create call in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
	m.registry.MustRegister(
		m.IngestTotal,
		m.HeadersIngested,
		m.ItemsIngested,
		m.ValidationTotal,
		m.ValidationFieldError,
		m.SubmitTotal,
		m.SubmitDuration,
	)
	return m
}

// Registry exposes the private registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveIngest records one ingestion attempt.
func (m *Metrics) ObserveIngest(err error, headers, items int) {
	if m == nil {
		return
	}
	if err != nil {
		m.IngestTotal.WithLabelValues(ResultFailure).Inc()
		return
	}
	m.IngestTotal.WithLabelValues(ResultSuccess).Inc()
	m.HeadersIngested.Add(float64(headers))
	m.ItemsIngested.Add(float64(items))
}

// ObserveValidation records one validation pass.
func (m *Metrics) ObserveValidation(valid bool, headerErrors, itemErrors int) {
	if m == nil {
		return
	}
	result := ResultValid
	if !valid {
		result = ResultInvalid
	}
	m.ValidationTotal.WithLabelValues(result).Inc()
	m.ValidationFieldError.WithLabelValues("header").Add(float64(headerErrors))
	m.ValidationFieldError.WithLabelValues("item").Add(float64(itemErrors))
}

// ObserveSubmit records one create call.
func (m *Metrics) ObserveSubmit(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.SubmitTotal.WithLabelValues(result).Inc()
	if result != ResultDryRun {
		m.SubmitDuration.Observe(elapsed.Seconds())
	}
}

// Push sends every collected metric to the pushgateway at url under job.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if m == nil || url == "" {
		return nil
	}
	if err := push.New(url, job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	return nil
}
