// Copyright 2025 The Minima Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package minima

import (
	"bufio"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ObservabilityRecorder hooks into request start/end around the whole
// pipeline, called directly by App.ServeHTTP (it wraps the ResponseWriter
// before the Context exists, so it is not a $rootMiddleware), without
// coupling the pipeline itself to any particular metrics or tracing backend.
type ObservabilityRecorder interface {
	OnRequestStart(r *http.Request)
	WrapResponseWriter(w http.ResponseWriter) http.ResponseWriter
	OnRequestEnd(r *http.Request, w http.ResponseWriter)
}

type noopRecorder struct{}

func (noopRecorder) OnRequestStart(*http.Request)                                 {}
func (noopRecorder) WrapResponseWriter(w http.ResponseWriter) http.ResponseWriter { return w }
func (noopRecorder) OnRequestEnd(*http.Request, http.ResponseWriter)              {}

// responseWriter captures status and size for metrics, matching
// router/router.go's responseWriter wrapper.
type responseWriter struct {
	http.ResponseWriter
	status      int
	size        int
	wroteHeader bool
}

func (w *responseWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.status = code
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.size += n
	return n, err
}

// Hijack forwards to the wrapped ResponseWriter so Context.Hijack still
// works when metrics or tracing is enabled; without it, wrapping the
// writer here would silently break every AsyncSequence streaming response.
func (w *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errHijackUnsupported
	}
	return hj.Hijack()
}

// metricsRecorder implements ObservabilityRecorder with Prometheus
// counters/histograms, grounded on rivaas.dev/metrics + router/router.go.
type metricsRecorder struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	tracer   trace.Tracer

	starts sync.Map // *http.Request -> time.Time
	spans  sync.Map // *http.Request -> trace.Span
}

func newMetricsRecorder(serviceName string, tracingEnabled bool) *metricsRecorder {
	r := &metricsRecorder{
		requests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "minima",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		}, []string{"method", "path", "status"}),
		duration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "minima",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
		}, []string{"method", "path"}),
	}
	if tracingEnabled {
		r.tracer = otel.Tracer(serviceName)
	}
	return r
}

func (m *metricsRecorder) OnRequestStart(r *http.Request) {
	m.starts.Store(r, time.Now())
	if m.tracer != nil {
		_, span := m.tracer.Start(r.Context(), r.Method+" "+r.URL.Path)
		span.SetAttributes(attribute.String("http.method", r.Method), attribute.String("http.path", r.URL.Path))
		m.spans.Store(r, span)
	}
}

func (m *metricsRecorder) WrapResponseWriter(w http.ResponseWriter) http.ResponseWriter {
	return &responseWriter{ResponseWriter: w, status: http.StatusOK}
}

func (m *metricsRecorder) OnRequestEnd(r *http.Request, w http.ResponseWriter) {
	status := http.StatusOK
	if rw, ok := w.(*responseWriter); ok {
		status = rw.status
	}
	m.requests.WithLabelValues(r.Method, r.URL.Path, http.StatusText(status)).Inc()
	if start, ok := m.starts.LoadAndDelete(r); ok {
		m.duration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start.(time.Time)).Seconds())
	}
	if v, ok := m.spans.LoadAndDelete(r); ok {
		span := v.(trace.Span)
		span.SetAttributes(attribute.Int("http.status_code", status))
		span.End()
	}
}

func newObservabilityRecorder(cfg *config) ObservabilityRecorder {
	if cfg.enableMetrics || cfg.enableTracing {
		return newMetricsRecorder(cfg.serviceName, cfg.enableTracing)
	}
	return noopRecorder{}
}

// MetricsHandler exposes the Prometheus scrape endpoint, matching
// app/app.go's GetMetricsHandler.
func (a *App) MetricsHandler() http.Handler {
	return promhttp.Handler()
}
