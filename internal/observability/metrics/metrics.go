package metrics

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type Outcome string

const (
	Success                  Outcome       = "success"
	Error                    Outcome       = "error"
	MetricRequestTimeout     time.Duration = 5 * time.Second
	MetricRequestIdleTimeout time.Duration = 10 * time.Second
)

func (o Outcome) String() string {
	return string(o)
}

var (
	once                      sync.Once
	metricsRouter             *chi.Mux
	operationDuration         *prometheus.HistogramVec
	clientLatency             *prometheus.HistogramVec
	dbLatency                 *prometheus.HistogramVec
	queuePublishErrorCounter  prometheus.Counter
	vaultTotalAssetsGauge     prometheus.Gauge
	vaultTotalSharesGauge     prometheus.Gauge
	oracleFreshGauge          *prometheus.GaugeVec
	pendingRequestsGauge      *prometheus.GaugeVec
	fulfillmentCounter        *prometheus.CounterVec
	oracleFallbackHitsCounter prometheus.Counter
)

// Init initializes the metrics package.
func Init(metricsPort int) {
	once.Do(func() {
		initMetricsRouter(metricsPort)
		registerMetrics()
	})
}

// initMetricsRouter initializes the metrics router.
func initMetricsRouter(metricsPort int) {
	metricsRouter = chi.NewRouter()
	metricsRouter.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})
	metricsAddr := fmt.Sprintf(":%d", metricsPort)
	server := &http.Server{
		Addr:         metricsAddr,
		Handler:      metricsRouter,
		ReadTimeout:  MetricRequestTimeout,
		WriteTimeout: MetricRequestTimeout,
		IdleTimeout:  MetricRequestIdleTimeout,
	}

	go func() {
		log.Info().Msgf("Starting metrics server on %s", metricsAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msgf("Error starting metrics server on %s", metricsAddr)
		}
	}()
}

// registerMetrics initializes and registers the Prometheus metrics.
func registerMetrics() {
	defaultHistogramBucketsSeconds := []float64{0.1, 0.5, 1, 2.5, 5, 10, 30}

	operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_operation_duration_seconds",
			Help:    "Histogram of ledger operation durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"operation", "outcome"},
	)

	clientLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "collaborator_client_latency_seconds",
			Help:    "Histogram of collaborator client call durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"client", "method", "status"},
	)

	dbLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_latency_seconds",
			Help:    "Histogram of db query durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"method", "status"},
	)

	queuePublishErrorCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "queue_publish_error_count",
			Help: "The total number of errors when publishing settlement events",
		},
	)

	vaultTotalAssetsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vault_total_assets",
			Help: "Current vault total assets in base units",
		},
	)

	vaultTotalSharesGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vault_total_shares",
			Help: "Current vault total shares",
		},
	)

	oracleFreshGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "oracle_source_fresh",
			Help: "Whether the oracle source currently holds a fresh reading (1) or not (0)",
		},
		[]string{"source"},
	)

	pendingRequestsGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pending_requests",
			Help: "Number of unprocessed requests per book",
		},
		[]string{"kind"},
	)

	fulfillmentCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fulfillment_total",
			Help: "The total number of fulfilled requests per book and outcome",
		},
		[]string{"kind", "outcome"},
	)

	oracleFallbackHitsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "oracle_fallback_hits_total",
			Help: "The total number of reads served by the fallback oracle source",
		},
	)

	prometheus.MustRegister(
		operationDuration,
		clientLatency,
		dbLatency,
		queuePublishErrorCounter,
		vaultTotalAssetsGauge,
		vaultTotalSharesGauge,
		oracleFreshGauge,
		pendingRequestsGauge,
		fulfillmentCounter,
		oracleFallbackHitsCounter,
	)
}

func ObserveOperationDuration(operation string, outcome Outcome, duration time.Duration) {
	if operationDuration == nil {
		return
	}
	operationDuration.WithLabelValues(operation, outcome.String()).Observe(duration.Seconds())
}

func ObserveClientLatency(client, method string, outcome Outcome, duration time.Duration) {
	if clientLatency == nil {
		return
	}
	clientLatency.WithLabelValues(client, method, outcome.String()).Observe(duration.Seconds())
}

func ObserveDbLatency(method string, outcome Outcome, duration time.Duration) {
	if dbLatency == nil {
		return
	}
	dbLatency.WithLabelValues(method, outcome.String()).Observe(duration.Seconds())
}

func RecordQueuePublishError() {
	if queuePublishErrorCounter == nil {
		return
	}
	queuePublishErrorCounter.Inc()
}

func RecordVaultTotals(totalAssets, totalShares float64) {
	if vaultTotalAssetsGauge == nil || vaultTotalSharesGauge == nil {
		return
	}
	vaultTotalAssetsGauge.Set(totalAssets)
	vaultTotalSharesGauge.Set(totalShares)
}

func RecordOracleFreshness(source string, fresh bool) {
	if oracleFreshGauge == nil {
		return
	}
	v := 0.0
	if fresh {
		v = 1.0
	}
	oracleFreshGauge.WithLabelValues(source).Set(v)
}

func RecordPendingRequests(kind string, count float64) {
	if pendingRequestsGauge == nil {
		return
	}
	pendingRequestsGauge.WithLabelValues(kind).Set(count)
}

func RecordFulfillment(kind string, outcome Outcome) {
	if fulfillmentCounter == nil {
		return
	}
	fulfillmentCounter.WithLabelValues(kind, outcome.String()).Inc()
}

func RecordOracleFallbackHit() {
	if oracleFallbackHitsCounter == nil {
		return
	}
	oracleFallbackHitsCounter.Inc()
}
