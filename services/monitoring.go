package services

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const (
	MONITORING_SVC          = "monitoring_svc"
	SERVICE_NAME            = "fitquest_api"
	DEFAULT_PROMETHEUS_PORT = 2112
)

// HTTP metrics
var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"endpoint", "method", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint", "method", "status"},
	)

	httpRequestsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_requests_active",
			Help: "Number of active concurrent HTTP requests",
		},
		[]string{"endpoint", "method"},
	)
)

// Domain metrics
var (
	challengesCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "challenges_completed_total",
			Help: "Total challenges completed, by category",
		},
		[]string{"category"},
	)

	badgesAwardedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "badges_awarded_total",
			Help: "Total badges awarded",
		},
	)

	levelUpsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "level_ups_total",
			Help: "Total level-up events",
		},
	)
)

// System metrics
var (
	heapAllocBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "heap_alloc_bytes",
			Help: "Heap memory allocated in bytes",
		},
	)

	gcTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gc_total",
			Help: "Total number of garbage collections",
		},
	)
)

func RecordChallengeCompleted(category string) {
	challengesCompletedTotal.WithLabelValues(category).Inc()
}

func RecordBadgesAwarded(count int) {
	if count > 0 {
		badgesAwardedTotal.Add(float64(count))
	}
}

func RecordLevelUp() {
	levelUpsTotal.Inc()
}

type MonitoringService struct {
	appContext.DefaultService

	port     int
	register *prometheus.Registry

	closed      chan struct{}
	server      *fiber.App
	lastGCCount uint32
}

func (svc *MonitoringService) Id() string {
	return MONITORING_SVC
}

func (svc *MonitoringService) Start() error {
	svc.closed = make(chan struct{}, 1)

	portStr := os.Getenv("PROMETHEUS_PORT")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		port = DEFAULT_PROMETHEUS_PORT
	}
	svc.port = port

	reg := prometheus.NewRegistry()

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	reg.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		httpRequestsActive,
		challengesCompletedTotal,
		badgesAwardedTotal,
		levelUpsTotal,
		heapAllocBytes,
		gcTotal,
	)

	svc.register = reg

	go svc.updateMemoryMetrics()

	svc.server = fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusInternalServerError).SendString("Internal Server Error")
		},
	})
	svc.server.Use(recover.New())

	svc.server.Get("/metrics", svc.metricsHandler)
	svc.server.Get("/health", svc.healthHandler)

	log.Info().Int("port", svc.port).Msg("Prometheus metrics server started")
	return svc.server.Listen(fmt.Sprintf(":%v", svc.port))
}

func (svc *MonitoringService) Shutdown() {
	svc.closed <- struct{}{}
	if svc.server != nil {
		_ = svc.server.Shutdown()
	}
}

func (svc *MonitoringService) metricsHandler(c *fiber.Ctx) error {
	handler := promhttp.HandlerFor(svc.register, promhttp.HandlerOpts{})
	return adaptor.HTTPHandler(handler)(c)
}

func (svc *MonitoringService) healthHandler(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":    "healthy",
		"service":   SERVICE_NAME,
		"timestamp": time.Now().Unix(),
	})
}

// updateMemoryMetrics refreshes runtime gauges every 15 seconds.
func (svc *MonitoringService) updateMemoryMetrics() {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			var m runtime.MemStats
			runtime.ReadMemStats(&m)

			heapAllocBytes.Set(float64(m.Alloc))

			if m.NumGC > svc.lastGCCount {
				gcTotal.Add(float64(m.NumGC - svc.lastGCCount))
				svc.lastGCCount = m.NumGC
			}

		case <-svc.closed:
			return
		}
	}
}

// MonitoringMiddleware records request metrics on the main fiber app.
func MonitoringMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		endpoint := c.Route().Path
		method := c.Method()

		httpRequestsActive.WithLabelValues(endpoint, method).Inc()
		defer httpRequestsActive.WithLabelValues(endpoint, method).Dec()

		err := c.Next()

		duration := time.Since(start)
		status := strconv.Itoa(c.Response().StatusCode())

		httpRequestsTotal.WithLabelValues(endpoint, method, status).Inc()
		httpRequestDurationSeconds.WithLabelValues(endpoint, method, status).Observe(duration.Seconds())

		return err
	}
}
