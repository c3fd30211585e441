package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mt5-bridge/src/bridge"
	"mt5-bridge/src/logger"
	"mt5-bridge/src/metrics"
	"mt5-bridge/src/models"
	"mt5-bridge/src/recorder"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	server   *APIServer
	ticks    chan models.MSnapshot
	commands chan models.MCommand
}

func testConfig() *models.MConfig {
	return &models.MConfig{
		Name: "test",
		Host: "127.0.0.1",
		Port: 8080,
		Buffers: models.MBuffersConfig{
			TickHistory: 100, VolumeHistory: 10, Breaklines: 10,
			TickQueue: 10, CommandQueue: 10, ReplyQueue: 10, IntentQueue: 8,
			RefreshIntervalMs: 5,
		},
		API: models.MAPIConfig{OrderRatePerSec: 1000, OrderBurst: 100},
	}
}

func newFixture(t *testing.T, cfg *models.MConfig) *fixture {
	t.Helper()
	f := &fixture{
		ticks:    make(chan models.MSnapshot, cfg.Buffers.TickQueue),
		commands: make(chan models.MCommand, cfg.Buffers.CommandQueue),
	}
	replies := make(chan models.MReply, cfg.Buffers.ReplyQueue)
	dir := t.TempDir()

	state := bridge.NewState(cfg.Buffers,
		bridge.Queues{Ticks: f.ticks, Commands: f.commands, Replies: replies},
		recorder.NewTickRecorder(dir), recorder.NewHistoryExporter(dir),
		logger.NewNop(), metrics.NewNop())

	reg := prometheus.NewRegistry()
	metrics.New(reg)

	var srv *APIServer
	presenter := bridge.NewPresenter(state, cfg.Buffers.IntentQueue, time.Duration(cfg.Buffers.RefreshIntervalMs)*time.Millisecond,
		func(v models.MBridgeView) { srv.Broadcast(v) }, logger.NewNop())
	srv = NewAPIServer(cfg, logger.NewNop(), presenter, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	f.server = srv

	ctx, cancel := context.WithCancel(context.Background())
	go presenter.Run(ctx)
	t.Cleanup(cancel)
	return f
}

func (f *fixture) request(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func (f *fixture) feedSymbol(t *testing.T) {
	t.Helper()
	f.ticks <- models.MSnapshot{Symbol: "EURUSD", Bid: 1.1, Ask: 1.1002, Time: 1000}
	require.Eventually(t, func() bool {
		return f.server.LatestView().Symbol == "EURUSD"
	}, time.Second, 5*time.Millisecond)
}

func TestHealthAndConfig(t *testing.T) {
	f := newFixture(t, testConfig())

	w := f.request(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])

	w = f.request(t, http.MethodGet, "/api/config", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["quick_lots"], 4)
}

func TestPostOrder_MarketBuy(t *testing.T) {
	f := newFixture(t, testConfig())

	w := f.request(t, http.MethodPost, "/api/orders", jsonBody{"type": "market_buy"})
	assert.Equal(t, http.StatusConflict, w.Code)

	f.feedSymbol(t)
	w = f.request(t, http.MethodPost, "/api/orders", jsonBody{"type": "market_buy"})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	cmd := <-f.commands
	assert.Equal(t, models.CmdMarketBuy, cmd.Type)
	assert.Equal(t, "EURUSD", cmd.Symbol)

	require.Eventually(t, func() bool {
		return f.server.LatestView().Pending.OrderKind == models.CmdMarketBuy
	}, time.Second, 5*time.Millisecond)
}

func TestPostOrder_Validation(t *testing.T) {
	f := newFixture(t, testConfig())
	f.feedSymbol(t)

	w := f.request(t, http.MethodPost, "/api/orders", jsonBody{"type": "limit_buy"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.request(t, http.MethodPost, "/api/orders", jsonBody{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.request(t, http.MethodPost, "/api/orders", jsonBody{"type": "limit_buy", "price": 1.05})
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 1.05, (<-f.commands).Price)
}

func TestTicketRoutes(t *testing.T) {
	f := newFixture(t, testConfig())
	f.feedSymbol(t)

	w := f.request(t, http.MethodPost, "/api/positions/abc/close", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.request(t, http.MethodPost, "/api/positions/42/close", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, models.MCommand{Type: models.CmdClosePosition, Symbol: "EURUSD", Volume: 0.01, Ticket: 42}, <-f.commands)

	w = f.request(t, http.MethodPost, "/api/pending/43/cancel", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, models.CmdCancelOrder, (<-f.commands).Type)
}

func TestOrderRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.API.OrderRatePerSec = 0.001
	cfg.API.OrderBurst = 1
	f := newFixture(t, cfg)
	f.feedSymbol(t)

	w := f.request(t, http.MethodPost, "/api/orders", jsonBody{"type": "market_sell"})
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = f.request(t, http.MethodPost, "/api/orders", jsonBody{"type": "market_sell"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Len(t, f.commands, 1)

	// lot changes are not throttled
	w = f.request(t, http.MethodPut, "/api/lot", jsonBody{"value": 0.2})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLotRoutes(t *testing.T) {
	f := newFixture(t, testConfig())

	w := f.request(t, http.MethodPut, "/api/lot", jsonBody{"value": 0.237})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0.237, decode(t, w)["lot"])

	w = f.request(t, http.MethodPost, "/api/lot/adjust", jsonBody{"delta": 0})
	assert.Equal(t, 0.24, decode(t, w)["lot"])

	w = f.request(t, http.MethodPost, "/api/lot/adjust", jsonBody{"direction": "up"})
	assert.Equal(t, 0.25, decode(t, w)["lot"])

	w = f.request(t, http.MethodPost, "/api/lot/adjust", jsonBody{"direction": "sideways"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.request(t, http.MethodPost, "/api/lot/quick", jsonBody{"preset": 0.5})
	assert.Equal(t, 0.5, decode(t, w)["lot"])

	w = f.request(t, http.MethodPost, "/api/lot/quick", jsonBody{"preset": 0.7})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistoryRoute(t *testing.T) {
	f := newFixture(t, testConfig())
	f.feedSymbol(t)

	body := jsonBody{"timeframe": "M1", "start": "2026.10.01", "end": "2026.10.02", "mode": "bars"}
	w := f.request(t, http.MethodPost, "/api/history", body)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["request_id"])

	w = f.request(t, http.MethodPost, "/api/history", body)
	assert.Equal(t, float64(2), decode(t, w)["request_id"])

	cmd := <-f.commands
	assert.Equal(t, models.CmdDownloadHistory, cmd.Type)
	assert.Equal(t, uint64(1), cmd.RequestID)

	w = f.request(t, http.MethodPost, "/api/history", jsonBody{"timeframe": "M1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecordingRoutes(t *testing.T) {
	f := newFixture(t, testConfig())

	w := f.request(t, http.MethodPost, "/api/recording/start", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	f.feedSymbol(t)
	w = f.request(t, http.MethodPost, "/api/recording/start", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, strings.HasSuffix(decode(t, w)["path"].(string), ".csv"))

	w = f.request(t, http.MethodPost, "/api/recording/stop", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["recording"])
}

func TestStateAndMetrics(t *testing.T) {
	f := newFixture(t, testConfig())
	f.feedSymbol(t)

	w := f.request(t, http.MethodGet, "/api/state", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "EURUSD", decode(t, w)["symbol"])

	w = f.request(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "mt5_bridge_")
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t, testConfig())

	req := httptest.NewRequest(http.MethodOptions, "/api/orders", nil)
	req.Header.Set("Origin", "http://127.0.0.1:3000")
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://127.0.0.1:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestWebSocket_InitialThenBroadcast(t *testing.T) {
	f := newFixture(t, testConfig())
	go f.server.runHub()
	t.Cleanup(func() { _ = f.server.Stop() })

	ts := httptest.NewServer(f.server.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var view models.MBridgeView
	require.NoError(t, conn.ReadJSON(&view))

	f.ticks <- models.MSnapshot{Symbol: "GBPUSD", Bid: 1.3, Ask: 1.3002, Time: 1}
	for view.Symbol != "GBPUSD" {
		require.NoError(t, conn.ReadJSON(&view))
	}
	assert.Len(t, view.Ticks, 1)
}

type jsonBody map[string]any
