package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TypingResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "typehub",
		Name:      "typing_results_total",
		Help:      "Number of stored typing test results.",
	}, []string{"kind"})

	BadgesAwarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "typehub",
		Name:      "badges_awarded_total",
		Help:      "Number of badges awarded.",
	}, []string{"badge"})

	LeaderboardRebuild = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "typehub",
		Name:      "leaderboard_rebuild_seconds",
		Help:      "Duration of leaderboard snapshot rebuilds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"type", "period"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "typehub",
		Name:      "http_requests_total",
		Help:      "Number of handled HTTP requests.",
	}, []string{"method", "route", "status"})
)
