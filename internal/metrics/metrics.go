package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "relief"

// Metrics - метрики Prometheus. Все методы работают на nil-получателе,
// поэтому компоненты могут жить без метрик.
type Metrics struct {
	registry          *prometheus.Registry
	searchDuration    prometheus.Histogram
	searchResults     prometheus.Histogram
	searchCacheHits   prometheus.Counter
	capacityUpdates   *prometheus.CounterVec
	webhookDeliveries *prometheus.CounterVec
	alertsExpired     prometheus.Counter
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// New регистрирует коллекторы в отдельном реестре
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		searchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Duration of nearby searches.",
			Buckets:   prometheus.DefBuckets,
		}),
		searchResults: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_results",
			Help:      "Number of resources returned by nearby searches.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250},
		}),
		searchCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_cache_hits_total",
			Help:      "Nearby searches served from the snapshot cache.",
		}),
		capacityUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capacity_updates_total",
			Help:      "Capacity update attempts by result.",
		}, []string{"result"}),
		webhookDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_deliveries_total",
			Help:      "Webhook delivery outcomes.",
		}, []string{"outcome"}),
		alertsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_expired_total",
			Help:      "Alerts deactivated by the expiry sweep.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.searchDuration,
		m.searchResults,
		m.searchCacheHits,
		m.capacityUpdates,
		m.webhookDeliveries,
		m.alertsExpired,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

func (m *Metrics) ObserveSearch(d time.Duration, results int, cached bool) {
	if m == nil {
		return
	}
	m.searchDuration.Observe(d.Seconds())
	m.searchResults.Observe(float64(results))
	if cached {
		m.searchCacheHits.Inc()
	}
}

// CapacityUpdate считает одну попытку обновления, result - "ok" или код ошибки
func (m *Metrics) CapacityUpdate(result string) {
	if m == nil {
		return
	}
	m.capacityUpdates.WithLabelValues(result).Inc()
}

func (m *Metrics) WebhookDelivery(outcome string) {
	if m == nil {
		return
	}
	m.webhookDeliveries.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AlertsExpired(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.alertsExpired.Add(float64(n))
}

// Middleware считает запросы и задержку по каждому маршруту
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequests.WithLabelValues(c.Request.Method, route, statusLabel(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler отдаёт реестр в текстовом формате Prometheus
func (m *Metrics) Handler() gin.HandlerFunc {
	if m == nil {
		return gin.WrapH(promhttp.Handler())
	}
	return gin.WrapH(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func statusLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
