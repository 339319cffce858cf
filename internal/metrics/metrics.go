// Package metrics holds the Prometheus collectors exported by the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var HttpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "keytune_http_requests_total",
}, []string{"action", "method"})
var HttpResponses = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "keytune_http_responses_total",
}, []string{"action", "method", "statusCode"})
var HttpResponseTime = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Name: "keytune_http_response_time_seconds",
}, []string{"action", "method"})
var AnalysisDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "keytune_processing_seconds",
	Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
}, []string{"operation"})
var AudioSeconds = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "keytune_audio_seconds_total",
}, []string{"operation"})
var DetectedKeys = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "keytune_detected_keys_total",
}, []string{"key"})
var SessionsStored = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "keytune_sessions_stored_total",
}, []string{"backend"})
var SessionEvictions = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "keytune_session_evictions_total",
}, []string{"backend"})
var SessionNumItems = prometheus.NewGaugeVec(prometheus.GaugeOpts{
	Name: "keytune_session_num_items",
}, []string{"backend"})
var WorkerQueueLength = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "keytune_worker_queue_length",
})

func init() {
	prometheus.MustRegister(HttpRequests)
	prometheus.MustRegister(HttpResponses)
	prometheus.MustRegister(HttpResponseTime)
	prometheus.MustRegister(AnalysisDuration)
	prometheus.MustRegister(AudioSeconds)
	prometheus.MustRegister(DetectedKeys)
	prometheus.MustRegister(SessionsStored)
	prometheus.MustRegister(SessionEvictions)
	prometheus.MustRegister(SessionNumItems)
	prometheus.MustRegister(WorkerQueueLength)
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
