package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const namespace = "marketintel"

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	SourceRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "source_requests_total", Help: "Outbound source fetches."},
		[]string{"source", "method", "status"},
	)
	SourceLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace, Name: "source_request_duration_seconds",
			Help:    "Outbound source fetch duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source", "method"},
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "cache_events_total", Help: "Cache hits/misses/sets/dels."},
		[]string{"cache", "event"}, // event: hit|miss|set|del
	)
	MemoEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "memo_events_total", Help: "Source memo hits/misses."},
		[]string{"source", "event"},
	)
	RowsLoaded = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Namespace: namespace, Name: "rows_loaded", Help: "Rows in the last load of each source."},
		[]string{"source"},
	)
	UnmappedCodes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Namespace: namespace, Name: "unmapped_codes", Help: "Survey codes without a display name."},
		[]string{"kind"}, // kind: market|manager
	)
	SkippedCoordinates = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: namespace, Name: "skipped_coordinates", Help: "Properties left out of tiling for invalid coordinates."},
	)
	IngestRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "ingest_runs_total", Help: "Ingest attempts."},
		[]string{"result"}, // result: stored|skipped|failed
	)
)

// Serve exposes h on addr in the background. An empty addr disables it.
func Serve(addr string, h http.Handler) {
	if addr == "" {
		return // disabled
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		HTTPRequests, HTTPLatency,
		SourceRequests, SourceLatency,
		CacheEvents, MemoEvents,
		RowsLoaded, UnmappedCodes, SkippedCoordinates, IngestRuns,
	)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

// ObserveSource records one outbound fetch. status 0 means the request never
// got a response.
func ObserveSource(source, method string, status int, dur time.Duration) {
	SourceRequests.WithLabelValues(source, method, strconv.Itoa(status)).Inc()
	SourceLatency.WithLabelValues(source, method).Observe(dur.Seconds())
}

func ObserveCache(cache, event string) { // event: hit|miss|set|del
	CacheEvents.WithLabelValues(cache, event).Inc()
}

// Pipeline reports derivation events to the collectors above.
type Pipeline struct{}

func (Pipeline) MemoEvent(source, event string) { MemoEvents.WithLabelValues(source, event).Inc() }
func (Pipeline) RowsLoaded(source string, n int) { RowsLoaded.WithLabelValues(source).Set(float64(n)) }
func (Pipeline) Unmapped(kind string, n int)     { UnmappedCodes.WithLabelValues(kind).Set(float64(n)) }
func (Pipeline) SkippedCoordinates(n int)        { SkippedCoordinates.Set(float64(n)) }
func (Pipeline) IngestRun(result string)         { IngestRuns.WithLabelValues(result).Inc() }
