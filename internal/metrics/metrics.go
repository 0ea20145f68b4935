// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics holds the Prometheus instruments of an ingest run.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pdiddy/wikiplace/pkg/types"
)

const namespace = "wikiplace"

// Pipeline holds the counters updated while a dump is processed. A nil
// *Pipeline is valid and records nothing.
type Pipeline struct {
	linesRead       prometheus.Counter
	facts           *prometheus.CounterVec
	recordErrors    prometheus.Counter
	sendFailures    prometheus.Counter
	inFlight        prometheus.Gauge
	inputBytes      *prometheus.GaugeVec
	extractDuration prometheus.Histogram
}

// NewPipeline creates the pipeline instruments and registers them with reg.
func NewPipeline(reg prometheus.Registerer) (*Pipeline, error) {
	m := &Pipeline{
		linesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_read_total",
			Help:      "Dump lines read from the source.",
		}),
		facts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "facts_total",
			Help:      "Facts handed to the store, by kind.",
		}, []string{"kind"}),
		recordErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "record_errors_total",
			Help:      "Lines that could not be parsed.",
		}),
		sendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_failures_total",
			Help:      "Facts dropped because the store writer had stopped.",
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records_in_flight",
			Help:      "Records admitted to the worker pool and not yet finished.",
		}),
		inputBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "input_bytes",
			Help:      "Bytes consumed from the source, by stream.",
		}, []string{"stream"}),
		extractDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extract_duration_seconds",
			Help:      "Time to parse and extract one record.",
			Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}),
	}

	for _, c := range []prometheus.Collector{
		m.linesRead, m.facts, m.recordErrors, m.sendFailures,
		m.inFlight, m.inputBytes, m.extractDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Pipeline) LineRead() {
	if m == nil {
		return
	}
	m.linesRead.Inc()
}

func (m *Pipeline) FactWritten(kind types.FactKind) {
	if m == nil {
		return
	}
	m.facts.WithLabelValues(string(kind)).Inc()
}

func (m *Pipeline) RecordError() {
	if m == nil {
		return
	}
	m.recordErrors.Inc()
}

func (m *Pipeline) SendFailure() {
	if m == nil {
		return
	}
	m.sendFailures.Inc()
}

// Started and Finished bracket the processing of one record.
func (m *Pipeline) Started() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

func (m *Pipeline) Finished(d time.Duration) {
	if m == nil {
		return
	}
	m.inFlight.Dec()
	m.extractDuration.Observe(d.Seconds())
}

// InputBytes publishes the source byte counters.
func (m *Pipeline) InputBytes(compressed, decompressed int64) {
	if m == nil {
		return
	}
	m.inputBytes.WithLabelValues("compressed").Set(float64(compressed))
	m.inputBytes.WithLabelValues("decompressed").Set(float64(decompressed))
}

// Serve exposes the registry on addr at /metrics until ctx is done.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
