package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"KOLStats/internal/domain/models"
	domrepo "KOLStats/internal/domain/repository"
	"KOLStats/internal/services/resolver"
	"KOLStats/internal/usecase"
	xhttp "KOLStats/pkg/http"
	xlogger "KOLStats/pkg/logger"
)

const statsJSON = `{
  "channel_id": "chan-1",
  "overall": {
    "Yearly": {"2024": {"30_days": {"price_true_count": 7, "price_false_count": 3, "price_probablity_of_winning_percentage": 70, "probablity_weighted_returns_percentage": 12.5}}},
    "Quarterly": {}
  },
  "hyperactive": {"Yearly": {"2024": {"30_days": {"price_true_count": 5, "price_false_count": 1}}}, "Quarterly": {}},
  "normal": {"Yearly": {}, "Quarterly": {}}
}`

type stubSource struct {
	stats *models.ChannelStats
	err   error
}

func (s stubSource) FetchChannelStats(context.Context, string) (*models.ChannelStats, error) {
	return s.stats, s.err
}

type observed struct {
	calls  map[string]int
	failed map[string]int
}

func (o *observed) ObserveAPI(endpoint string, _ float64, failed bool) {
	o.calls[endpoint]++
	if failed {
		o.failed[endpoint]++
	}
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T, src domrepo.StatsSource) (*echo.Echo, *observed) {
	t.Helper()
	obs := &observed{calls: map[string]int{}, failed: map[string]int{}}
	h := NewChannelMetricsHandler(xlogger.Nop(), usecase.NewChannelMetricsUseCase(src, resolver.New()), obs)
	e := echo.New()
	h.RegisterRoutes(e)
	return e, obs
}

func loadStats(t *testing.T) *models.ChannelStats {
	t.Helper()
	var s models.ChannelStats
	require.NoError(t, json.Unmarshal([]byte(statsJSON), &s))
	return &s
}

func do(t *testing.T, e *echo.Echo, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestMetricsEndpoint(t *testing.T) {
	e, obs := newTestServer(t, stubSource{stats: loadStats(t)})

	rec, env := do(t, e, "/api/channels/chan-1/metrics?period=2024&timeframe=30&travel=600")
	require.Equal(t, http.StatusOK, rec.Code)

	var res models.Resolution
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "chan-1", res.ChannelID)
	assert.Equal(t, models.TF30Days, res.Timeframe)
	require.NotNil(t, res.Overall)
	assert.Equal(t, int64(10), res.Overall.TotalRecommendations)
	require.NotNil(t, res.Bar)
	assert.InDelta(t, 112.5, res.Bar.Offset, 1e-9)
	assert.Equal(t, "70.00%", res.Display.WinPercentage)
	assert.Equal(t, 1, obs.calls["metrics"])
	assert.Zero(t, obs.failed["metrics"])
}

func TestMetricsEndpointDefaultsAndFallback(t *testing.T) {
	e, _ := newTestServer(t, stubSource{stats: loadStats(t)})

	_, env := do(t, e, "/api/channels/chan-1/metrics?period=2024")
	var res models.Resolution
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, models.TF30Days, res.Timeframe)
	assert.False(t, res.TimeframeFallback)

	_, env = do(t, e, "/api/channels/chan-1/metrics?period=2024&timeframe=60")
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.True(t, res.TimeframeFallback)
	assert.Equal(t, models.TF30Days, res.Timeframe)
}

func TestMetricsEndpointValidation(t *testing.T) {
	e, obs := newTestServer(t, stubSource{stats: loadStats(t)})

	for _, target := range []string{
		"/api/channels/chan-1/metrics",
		"/api/channels/chan-1/metrics?period=2024&quarter=Q5",
		"/api/channels/chan-1/metrics?period=2024&sentiment=euphoric",
		"/api/channels/chan-1/metrics?period=2024&travel=-1",
	} {
		rec, env := do(t, e, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		var verrs []xhttp.ValidationError
		require.NoError(t, json.Unmarshal(env.Data, &verrs), target)
		assert.NotEmpty(t, verrs, target)
	}
	assert.Equal(t, 4, obs.failed["metrics"])
}

func TestMetricsEndpointErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"not found", domrepo.ErrChannelNotFound, http.StatusNotFound},
		{"breaker open", gobreaker.ErrOpenState, http.StatusServiceUnavailable},
		{"upstream", errors.New("connection reset"), http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e, _ := newTestServer(t, stubSource{err: tc.err})
			rec, _ := do(t, e, "/api/channels/chan-1/metrics?period=2024")
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}

func TestPerformanceEndpoint(t *testing.T) {
	e, _ := newTestServer(t, stubSource{stats: loadStats(t)})

	rec, env := do(t, e, "/api/channels/chan-1/performance")
	require.Equal(t, http.StatusOK, rec.Code)
	var table models.PerformanceTable
	require.NoError(t, json.Unmarshal(env.Data, &table))
	require.Len(t, table.Rows, 3)
	assert.Equal(t, "last7days", table.Rows[0].PeriodKey)
	assert.Nil(t, table.Rows[0].Overall)
	assert.Equal(t, "2024", table.Rows[2].PeriodKey)
	assert.NotNil(t, table.Rows[2].Overall)

	_, env = do(t, e, "/api/channels/chan-1/performance?periods=2024,2019")
	require.NoError(t, json.Unmarshal(env.Data, &table))
	require.Len(t, table.Rows, 2)
	assert.Nil(t, table.Rows[1].Overall)
}

func TestPeriodsAndTimeframesEndpoints(t *testing.T) {
	e, _ := newTestServer(t, stubSource{stats: loadStats(t)})

	rec, env := do(t, e, "/api/channels/chan-1/periods")
	require.Equal(t, http.StatusOK, rec.Code)
	var cat models.PeriodCatalog
	require.NoError(t, json.Unmarshal(env.Data, &cat))
	assert.Equal(t, []string{"2024"}, cat.Partitions[models.PartitionHyperactive].Yearly)

	rec, env = do(t, e, "/api/timeframes")
	require.Equal(t, http.StatusOK, rec.Code)
	var sel []resolver.Selector
	require.NoError(t, json.Unmarshal(env.Data, &sel))
	assert.Len(t, sel, 7)
	assert.Equal(t, "1", sel[0].Value)
}
