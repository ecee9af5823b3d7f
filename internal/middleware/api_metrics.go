package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Исходы запроса к API мира
const (
	OutcomeOK       = "ok"       // 1xx-3xx
	OutcomeRejected = "rejected" // 4xx: запрос отклонён до обращения к миру или миром
	OutcomeFailed   = "failed"   // 5xx
)

// Маршрут запросов, не совпавших ни с одним обработчиком
const unmatchedRoute = "unmatched"

// APIMetrics считает обращения к API мира по маршрутам.
//
// Метрики (с префиксом namespace):
//   - api_request_duration_seconds{route,outcome}: histogram
//   - api_requests_in_flight: gauge
//   - api_responses_total{route,outcome}: counter
type APIMetrics struct {
	duration  *prometheus.HistogramVec
	inFlight  prometheus.Gauge
	responses *prometheus.CounterVec
}

// NewAPIMetrics создаёт метрики и регистрирует их в reg
func NewAPIMetrics(namespace string, reg prometheus.Registerer) *APIMetrics {
	am := &APIMetrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "Длительность запросов к API мира.",
			// Операции над миром выполняются в памяти, основная масса укладывается в миллисекунды
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"route", "outcome"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "api_requests_in_flight",
			Help:      "Запросы к API мира, обрабатываемые сейчас.",
		}),
		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_responses_total",
			Help:      "Ответы API мира по маршрутам и исходам.",
		}, []string{"route", "outcome"}),
	}

	reg.MustRegister(am.duration, am.inFlight, am.responses)
	return am
}

// Outcome сводит HTTP-статус к исходу запроса
func Outcome(status int) string {
	switch {
	case status >= 500:
		return OutcomeFailed
	case status >= 400:
		return OutcomeRejected
	default:
		return OutcomeOK
	}
}

// Handler возвращает middleware для router.Use()
func (am *APIMetrics) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		am.inFlight.Inc()
		defer am.inFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		outcome := Outcome(c.Writer.Status())

		am.duration.WithLabelValues(route, outcome).Observe(time.Since(start).Seconds())
		am.responses.WithLabelValues(route, outcome).Inc()
	}
}

// Mount добавляет GET /metrics, отдающий метрики из g
func (am *APIMetrics) Mount(r *gin.Engine, g prometheus.Gatherer) {
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(g, promhttp.HandlerOpts{})))
}
