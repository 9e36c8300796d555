// Package metrics exposes Prometheus collectors for detection rounds.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sells-group/langid/internal/model"
)

const namespace = "langid"

// Provider metrics (observed once per invocation by the orchestrator).
var (
	ProviderInvocationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_invocations_total",
		Help:      "Provider invocations by outcome status.",
	}, []string{"provider", "status"})

	ProviderDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "provider_duration_seconds",
		Help:      "Provider invocation latency in seconds.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms → ~20s
	}, []string{"provider"})

	ProviderCostUSD = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_cost_usd_total",
		Help:      "Accumulated provider cost in USD.",
	}, []string{"provider"})

	ProviderTokensTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_tokens_total",
		Help:      "Accumulated provider token usage.",
	}, []string{"provider"})

	ProviderCircuitState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "provider_circuit_state",
		Help:      "Circuit breaker state per provider (0=closed, 1=open, 2=half-open).",
	}, []string{"provider"})
)

// Round metrics.
var (
	RoundsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rounds_total",
		Help:      "Detection rounds by result (decided, undecided, fatal).",
	}, []string{"result"})

	RoundDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "round_duration_seconds",
		Help:      "Wall-clock duration of a full detection round.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	SecondaryInvocationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "secondary_invocations_total",
		Help:      "Text-detector invocations triggered by a transcript.",
	})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests processed.",
	}, []string{"method", "path", "status_code"})
)

func init() {
	prometheus.MustRegister(
		ProviderInvocationsTotal,
		ProviderDuration,
		ProviderCostUSD,
		ProviderTokensTotal,
		ProviderCircuitState,
		RoundsTotal,
		RoundDuration,
		SecondaryInvocationsTotal,
		HTTPRequestsTotal,
	)
}

// ObserveOutcome records one provider invocation.
func ObserveOutcome(o model.Outcome) {
	ProviderInvocationsTotal.WithLabelValues(o.Provider, string(o.Status)).Inc()
	ProviderDuration.WithLabelValues(o.Provider).Observe(o.TimeTaken)
	if o.Cost.USD > 0 {
		ProviderCostUSD.WithLabelValues(o.Provider).Add(o.Cost.USD)
	}
	if o.Cost.Tokens > 0 {
		ProviderTokensTotal.WithLabelValues(o.Provider).Add(float64(o.Cost.Tokens))
	}
}

// SetCircuitState records a breaker transition. state follows the
// resilience.CircuitState numbering.
func SetCircuitState(provider string, state int) {
	ProviderCircuitState.WithLabelValues(provider).Set(float64(state))
}

// ObserveRound records a completed round. A nil result counts as fatal.
func ObserveRound(res *model.RoundResult, elapsed time.Duration) {
	RoundDuration.Observe(elapsed.Seconds())
	switch {
	case res == nil:
		RoundsTotal.WithLabelValues("fatal").Inc()
	case res.Ensemble.FinalLanguage == nil:
		RoundsTotal.WithLabelValues("undecided").Inc()
	default:
		RoundsTotal.WithLabelValues("decided").Inc()
	}
}

// Handler serves the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// InstrumentHandler returns middleware that counts HTTP requests by path.
func InstrumentHandler(path string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(sw.status)).Inc()
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Unwrap supports http.ResponseController.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
