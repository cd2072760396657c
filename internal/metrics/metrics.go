package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CommitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reserva_commits_total",
			Help: "Commit attempts by outcome",
		},
		[]string{"outcome"}, // committed|conflicted|failed
	)

	CommitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reserva_commit_duration_seconds",
			Help:    "Duration of single-unit ledger commits",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(CommitsTotal)
	prometheus.MustRegister(CommitDuration)
}

func Register(mux *http.ServeMux) {
	mux.Handle("/metrics", promhttp.Handler())
}
