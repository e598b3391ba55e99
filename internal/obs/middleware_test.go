package obs_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/Valiantic/purehealth-api/internal/obs"
)

func serveObserved(t *testing.T, metrics *obs.HTTPMetrics, req *http.Request, status int) {
	t.Helper()
	handler := obs.HTTPObs{Metrics: metrics}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, status, rr.Code)
}

func TestHTTPObsLabelsByRoutePattern(t *testing.T) {
	metrics := obs.NewHTTPMetrics("purehealth", []float64{1, 10}, prometheus.NewRegistry())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions/abc", nil)
	req = req.WithContext(obs.WithRoutePattern(req.Context(), "/api/v1/transactions/{id}"))
	serveObserved(t, metrics, req, http.StatusOK)

	total := testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodGet, "/api/v1/transactions/{id}", "200"))
	require.Equal(t, float64(1), total)
	require.NotZero(t, testutil.CollectAndCount(metrics.ReqDur))
	require.Equal(t, float64(0), testutil.ToFloat64(metrics.InFlight))
}

func TestHTTPObsUnmatchedRouteFallsBackToUnknown(t *testing.T) {
	metrics := obs.NewHTTPMetrics("purehealth", nil, prometheus.NewRegistry())

	serveObserved(t, metrics, httptest.NewRequest(http.MethodGet, "/nope", nil), http.StatusNotFound)

	total := testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodGet, "unknown", "404"))
	require.Equal(t, float64(1), total)
}
