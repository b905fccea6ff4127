// Package monitor exposes acquisition counters for Prometheus. The ratio of
// invalid to valid readings and the resync rate describe serial link quality.
package monitor

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FramesRead = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dmm_frames_read_total",
		Help: "Frames that passed the position nibble check",
	})

	Resyncs = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dmm_resyncs_total",
		Help: "Frame resynchronizations",
	})

	InvalidSyncBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dmm_invalid_sync_bytes_total",
		Help: "Bytes with position nibble 0 or 15 seen while synchronizing",
	})

	ReadFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dmm_read_failures_total",
		Help: "Frame reads that exhausted the retry budget",
	})

	Readings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dmm_readings_total",
			Help: "Readings produced, by validity",
		},
		[]string{"valid"},
	)

	ReadRetries = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dmm_read_retries",
		Help:    "Synchronization attempts needed per frame",
		Buckets: []float64{0, 1, 2, 3, 5, 10},
	})

	WebSocketClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dmm_websocket_clients",
		Help: "Connected websocket clients",
	})
)

var registerOnce sync.Once

// Register adds all collectors to the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			FramesRead,
			Resyncs,
			InvalidSyncBytes,
			ReadFailures,
			Readings,
			ReadRetries,
			WebSocketClients,
		)
	})
}

// ObserveReading records a produced reading.
func ObserveReading(valid bool, retries int) {
	label := "false"
	if valid {
		label = "true"
	}
	Readings.WithLabelValues(label).Inc()
	ReadRetries.Observe(float64(retries))
}

func Handler() http.Handler {
	return promhttp.Handler()
}
