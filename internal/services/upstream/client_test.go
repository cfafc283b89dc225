package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"KOLStats/internal/domain/models"
	domrepo "KOLStats/internal/domain/repository"
)

const statsBody = `{
  "channel_id": "chan-1",
  "overall": {"Yearly": {"2024": {"30_days": {"price_true_count": 7, "price_false_count": 3, "Strong_Bullish_price_true_count": 4}}}, "Quarterly": {}},
  "hyperactive": {"Yearly": {}, "Quarterly": {}},
  "normal": {"Yearly": {}, "Quarterly": {}}
}`

func TestFetchChannelStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/channels/chan-1/stats", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(statsBody))
	}))
	defer srv.Close()

	c, err := New(srv.URL + "/v1/")
	require.NoError(t, err)

	stats, err := c.FetchChannelStats(context.Background(), "chan-1")
	require.NoError(t, err)
	assert.Equal(t, "chan-1", stats.ChannelID)
	assert.False(t, stats.FetchedAt.IsZero())

	m := stats.Overall.Yearly["2024"][models.TF30Days]
	require.NotNil(t, m)
	require.NotNil(t, m.PriceTrueCount)
	assert.Equal(t, int64(7), *m.PriceTrueCount)
	require.NotNil(t, m.Sentiment(models.StrongBullish))
}

func TestFetchChannelStatsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c, err := New(srv.URL, WithBreaker(BreakerConfig{Enabled: true, MaxFailures: 1, OpenTimeout: time.Minute}))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = c.FetchChannelStats(context.Background(), "missing")
		assert.ErrorIs(t, err, domrepo.ErrChannelNotFound)
	}
}

func TestFetchChannelStatsBreakerOpens(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := New(srv.URL, WithBreaker(BreakerConfig{Enabled: true, MaxFailures: 2, OpenTimeout: time.Minute}))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = c.FetchChannelStats(context.Background(), "chan-1")
		require.Error(t, err)
		assert.False(t, errors.Is(err, gobreaker.ErrOpenState))
	}
	_, err = c.FetchChannelStats(context.Background(), "chan-1")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), hits.Load())
}

func TestFetchChannelStatsBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"overall":`))
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)
	_, err = c.FetchChannelStats(context.Background(), "chan-1")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domrepo.ErrChannelNotFound)
}

func TestNewRejectsInvalidURL(t *testing.T) {
	_, err := New("not a url")
	assert.Error(t, err)
}
