// Package metrics holds the Prometheus collectors shared by the social service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// EngagementToggles counts toggle outcomes by relation kind and resulting state.
	EngagementToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pentagram_engagement_toggles_total",
		Help: "Engagement toggles by kind and resulting state",
	}, []string{"kind", "state"})

	// EngagementConflicts counts duplicate toggles absorbed by the uniqueness constraint.
	EngagementConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pentagram_engagement_conflicts_total",
		Help: "Duplicate toggles resolved as no-ops",
	}, []string{"kind", "op"})

	// TrendingCandidates records how many posts were scored per explore request.
	TrendingCandidates = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pentagram_trending_candidates",
		Help:    "Posts scored per trending computation",
		Buckets: []float64{0, 5, 10, 25, 50, 100},
	})

	// CommentOrphansDropped counts replies dropped because their parent was missing.
	CommentOrphansDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pentagram_comment_orphans_dropped_total",
		Help: "Replies dropped from comment trees because the parent was not in the batch",
	})

	// CacheRequests counts read-path cache lookups by result (hit, miss, error, fenced).
	CacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pentagram_cache_requests_total",
		Help: "Aggregate view cache lookups by result",
	}, []string{"result"})
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
