package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metricsRegistry struct {
	registry           *prometheus.Registry
	walletEventsTotal  *prometheus.CounterVec
	submissionsTotal   *prometheus.CounterVec
	submissionDuration *prometheus.HistogramVec
	walletConnected    prometheus.Gauge
}

func newMetricsRegistry() *metricsRegistry {
	wallet := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "streamfi_wallet_events_total",
		Help: "Wallet connect and disconnect attempts",
	}, []string{"event", "result"})

	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "streamfi_submissions_total",
		Help: "Application call submissions by kind and outcome",
	}, []string{"kind", "result"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "streamfi_submission_duration_seconds",
		Help:    "Time from submission request to node acceptance, including wallet approval",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"kind"})

	connected := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "streamfi_wallet_connected",
		Help: "1 when a wallet account is connected",
	})

	r := prometheus.NewRegistry()
	r.MustRegister(wallet, submissions, duration, connected)

	return &metricsRegistry{
		registry:           r,
		walletEventsTotal:  wallet,
		submissionsTotal:   submissions,
		submissionDuration: duration,
		walletConnected:    connected,
	}
}

func (m *metricsRegistry) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *metricsRegistry) incWallet(event, result string) {
	m.walletEventsTotal.WithLabelValues(event, result).Inc()
}

func (m *metricsRegistry) incSubmission(kind, result string) {
	m.submissionsTotal.WithLabelValues(kind, result).Inc()
}

func (m *metricsRegistry) observeSubmission(kind string, since time.Time) {
	m.submissionDuration.WithLabelValues(kind).Observe(time.Since(since).Seconds())
}

func (m *metricsRegistry) setConnected(connected bool) {
	if connected {
		m.walletConnected.Set(1)
		return
	}
	m.walletConnected.Set(0)
}
