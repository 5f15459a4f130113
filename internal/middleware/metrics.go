package middleware

import (
	"sync"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PostsCreated counts successfully created daily posts.
	PostsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "onesong_posts_created_total",
		Help: "Total number of daily posts created",
	})

	// ExchangesMatched counts exchanges resolved with a received post.
	ExchangesMatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "onesong_exchanges_matched_total",
		Help: "Total number of exchanges matched with a pool entry",
	})

	// ExchangesWaiting counts exchanges created without an immediate match.
	ExchangesWaiting = promauto.NewCounter(prometheus.CounterOpts{
		Name: "onesong_exchanges_waiting_total",
		Help: "Total number of exchanges left waiting for a match",
	})

	// PoolConsumeConflicts counts lost races on pool entry consumption.
	PoolConsumeConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "onesong_pool_consume_conflicts_total",
		Help: "Total number of pool entries lost to a concurrent consumer",
	})

	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "onesong_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})
)

var (
	promOnce sync.Once
	promMw   *fiberprometheus.FiberPrometheus
)

// InitMetrics creates the Prometheus middleware for the given service name.
// The HTTP collectors register globally, so repeated calls return the same
// instance.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		promMw = fiberprometheus.New(serviceName)
	})
	return promMw
}

// MetricsMiddleware returns the Fiber handler that records HTTP metrics.
func MetricsMiddleware(prom *fiberprometheus.FiberPrometheus) fiber.Handler {
	return prom.Middleware
}
