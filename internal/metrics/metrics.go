// Package metrics exposes Prometheus instruments for the summarization
// pipeline. A nil *Metrics is valid and records nothing.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"docsum/internal/domain"
)

const namespace = "docsum"

// Section outcomes.
const (
	OutcomeOK     = "ok"
	OutcomeEmpty  = "empty"
	OutcomeFailed = "failed"
)

type Metrics struct {
	registry        *prometheus.Registry
	sections        *prometheus.CounterVec
	documents       *prometheus.CounterVec
	sectionDuration prometheus.Histogram
}

// New registers the pipeline instruments on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sections_total",
			Help:      "Generated sections by outcome.",
		}, []string{"outcome"}),
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Documents that reached a terminal status.",
		}, []string{"status"}),
		sectionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "section_duration_seconds",
			Help:      "Time spent retrieving and generating one section.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
	}
	m.registry.MustRegister(m.sections, m.documents, m.sectionDuration)
	return m
}

// ObserveSection records one generated section.
func (m *Metrics) ObserveSection(r domain.SectionResult) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	switch {
	case r.Failed():
		outcome = OutcomeFailed
	case r.Text == "":
		outcome = OutcomeEmpty
	}
	m.sections.WithLabelValues(outcome).Inc()
	m.sectionDuration.Observe(r.Elapsed.Seconds())
}

// ObserveDocument records a terminal document status.
func (m *Metrics) ObserveDocument(status domain.Status) {
	if m == nil {
		return
	}
	m.documents.WithLabelValues(string(status)).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
