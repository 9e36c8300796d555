package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/langid/internal/model"
)

func TestObserveOutcome(t *testing.T) {
	before := testutil.ToFloat64(ProviderInvocationsTotal.WithLabelValues("metrics_test_ok", "success"))
	o := model.Success("metrics_test_ok", 50*time.Millisecond, model.Cost{Tokens: 100, USD: 0.002}, model.WithLanguage("hi"))
	ObserveOutcome(o)

	assert.InDelta(t, before+1, testutil.ToFloat64(ProviderInvocationsTotal.WithLabelValues("metrics_test_ok", "success")), 1e-9)
	assert.InDelta(t, 100, testutil.ToFloat64(ProviderTokensTotal.WithLabelValues("metrics_test_ok")), 1e-9)
	assert.InDelta(t, 0.002, testutil.ToFloat64(ProviderCostUSD.WithLabelValues("metrics_test_ok")), 1e-12)
}

func TestObserveOutcome_Failure(t *testing.T) {
	ObserveOutcome(model.Failure("metrics_test_err", time.Millisecond, errors.New("x")))
	assert.InDelta(t, 1, testutil.ToFloat64(ProviderInvocationsTotal.WithLabelValues("metrics_test_err", "error")), 1e-9)
}

func TestObserveRound(t *testing.T) {
	fatal := testutil.ToFloat64(RoundsTotal.WithLabelValues("fatal"))
	undecided := testutil.ToFloat64(RoundsTotal.WithLabelValues("undecided"))
	decided := testutil.ToFloat64(RoundsTotal.WithLabelValues("decided"))

	lang := "en"
	ObserveRound(nil, time.Millisecond)
	ObserveRound(&model.RoundResult{}, time.Millisecond)
	ObserveRound(&model.RoundResult{Ensemble: model.EnsembleResult{FinalLanguage: &lang}}, time.Millisecond)

	assert.InDelta(t, fatal+1, testutil.ToFloat64(RoundsTotal.WithLabelValues("fatal")), 1e-9)
	assert.InDelta(t, undecided+1, testutil.ToFloat64(RoundsTotal.WithLabelValues("undecided")), 1e-9)
	assert.InDelta(t, decided+1, testutil.ToFloat64(RoundsTotal.WithLabelValues("decided")), 1e-9)
}

func TestInstrumentHandler(t *testing.T) {
	h := InstrumentHandler("/teapot", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/teapot", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.InDelta(t, 1, testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/teapot", "418")), 1e-9)
}

func TestHandler_ExposesCollectors(t *testing.T) {
	ObserveOutcome(model.Success("metrics_test_scrape", time.Millisecond, model.Cost{}))

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "langid_provider_invocations_total"))
}

func TestSetCircuitState(t *testing.T) {
	SetCircuitState("metrics_test_cb", 1)
	assert.InDelta(t, 1, testutil.ToFloat64(ProviderCircuitState.WithLabelValues("metrics_test_cb")), 1e-9)
	SetCircuitState("metrics_test_cb", 0)
	assert.InDelta(t, 0, testutil.ToFloat64(ProviderCircuitState.WithLabelValues("metrics_test_cb")), 1e-9)
}
