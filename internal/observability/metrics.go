package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OffersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dispatch", Name: "offers_created_total", Help: "Total ride offers created"})
	OffersAcceptedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dispatch", Name: "offers_accepted_total", Help: "Total ride offers accepted"})
	OffersDeclinedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dispatch", Name: "offers_declined_total", Help: "Total ride offers declined"})
	OffersExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dispatch", Name: "offers_expired_total", Help: "Total ride offers expired by the sweeper"})
	MatchRoundsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dispatch", Name: "match_rounds_total", Help: "Total matching rounds run"})
	MatchNoDriversTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dispatch", Name: "match_no_drivers_total", Help: "Matching rounds that found no eligible driver"})
	SweepRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dispatch", Name: "sweep_runs_total", Help: "Sweeper invocations by operation"},
		[]string{"operation"})
	SettlementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dispatch", Name: "settlements_total", Help: "Settlement outcomes by status"},
		[]string{"status"})

	MatchLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "dispatch",
		Name:      "match_latency_seconds",
		Help:      "Latency of a full matching round",
		Buckets:   prometheus.DefBuckets,
	})
)
