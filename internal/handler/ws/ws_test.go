package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"KOLStats/internal/domain/models"
	domrepo "KOLStats/internal/domain/repository"
)

type fakeResolver struct {
	mu    sync.Mutex
	total int64
	err   error
}

func (f *fakeResolver) ResolveView(_ context.Context, channelID string, v models.ViewState) (*models.Resolution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	res := &models.Resolution{
		ChannelID: channelID,
		PeriodKey: v.Period,
		Overall:   &models.YearMetrics{TotalRecommendations: f.total},
	}
	if v.Expanded.Hyperactive {
		res.Hyperactive = &models.ActivityMetrics{ActivityCount: 1}
	}
	return res, nil
}

func (f *fakeResolver) setTotal(n int64) {
	f.mu.Lock()
	f.total = n
	f.mu.Unlock()
}

type countingGauge struct {
	mu   sync.Mutex
	live int
}

func (g *countingGauge) SubscriberAdded() {
	g.mu.Lock()
	g.live++
	g.mu.Unlock()
}

func (g *countingGauge) SubscriberRemoved() {
	g.mu.Lock()
	g.live--
	g.mu.Unlock()
}

func (g *countingGauge) value() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.live
}

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func startServer(t *testing.T, r ViewResolver, gauge SubscriberGauge) (*Hub, string) {
	t.Helper()
	hub := NewHub(r, gauge, nil)
	e := echo.New()
	NewHandler(hub, nil, Options{PingInterval: time.Second}).RegisterRoutes(e)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestLiveViewAnswersViewState(t *testing.T) {
	r := &fakeResolver{total: 10}
	_, url := startServer(t, r, nil)
	conn := dial(t, url+"/ws/channels/chan-1")

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"period":   "2024",
		"expanded": map[string]bool{"hyperactive": true},
	}))
	f := readFrame(t, conn)
	require.Equal(t, FrameResolution, f.Type)

	var res models.Resolution
	require.NoError(t, json.Unmarshal(f.Data, &res))
	assert.Equal(t, "chan-1", res.ChannelID)
	assert.Equal(t, "2024", res.PeriodKey)
	assert.Equal(t, int64(10), res.Overall.TotalRecommendations)
	assert.NotNil(t, res.Hyperactive)
}

func TestLiveViewRejectsInvalidState(t *testing.T) {
	_, url := startServer(t, &fakeResolver{}, nil)
	conn := dial(t, url+"/ws/channels/chan-1")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"quarter":"Q9"}`)))
	assert.Equal(t, FrameError, readFrame(t, conn).Type)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`[1,2]`)))
	assert.Equal(t, FrameError, readFrame(t, conn).Type)
}

func TestLiveViewResolveErrorFrame(t *testing.T) {
	_, url := startServer(t, &fakeResolver{err: domrepo.ErrChannelNotFound}, nil)
	conn := dial(t, url+"/ws/channels/ghost")

	require.NoError(t, conn.WriteJSON(map[string]string{"period": "2024"}))
	f := readFrame(t, conn)
	require.Equal(t, FrameError, f.Type)
	assert.Contains(t, string(f.Data), "ERR_NOT_FOUND")
}

func TestLiveViewPushesOnNotify(t *testing.T) {
	r := &fakeResolver{total: 10}
	gauge := &countingGauge{}
	hub, url := startServer(t, r, gauge)
	conn := dial(t, url+"/ws/channels/chan-1")

	require.NoError(t, conn.WriteJSON(map[string]string{"period": "2024"}))
	first := readFrame(t, conn)
	require.Equal(t, FrameResolution, first.Type)
	assert.Equal(t, 1, hub.Subscribers("chan-1"))
	assert.Equal(t, 1, gauge.value())

	r.setTotal(42)
	hub.NotifyChannel(context.Background(), "chan-1")
	hub.NotifyChannel(context.Background(), "other")

	pushed := readFrame(t, conn)
	var res models.Resolution
	require.NoError(t, json.Unmarshal(pushed.Data, &res))
	assert.Equal(t, int64(42), res.Overall.TotalRecommendations)
	assert.Nil(t, res.Hyperactive)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Subscribers("chan-1") == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return gauge.value() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestNotifySkipsSubscribersWithoutView(t *testing.T) {
	hub := NewHub(&fakeResolver{}, nil, nil)
	sub := hub.subscribe("chan-1", 1)
	hub.NotifyChannel(context.Background(), "chan-1")
	assert.Empty(t, sub.send)

	hub.unsubscribe(sub)
	hub.unsubscribe(sub)
	assert.Zero(t, hub.Subscribers("chan-1"))
}
