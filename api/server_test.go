package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"clob/domain/orderbook"
	"clob/engine"
	"clob/feed"
	"clob/journal"
	"clob/metrics"
	"clob/params"
	"clob/wire"
)

func newTestServer(t *testing.T) (*Server, *engine.Engine) {
	t.Helper()

	reg := prometheus.NewRegistry()
	met := metrics.New(reg)
	dist := feed.NewDistributor(zap.NewNop(), met)
	eng := engine.New(zap.NewNop(), met, dist, journal.Nop{}, engine.Config{})

	ctx, cancel := context.WithCancel(context.Background())
	go eng.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-eng.Done()
		dist.Close()
	})

	cfg := params.Default().API
	return NewServer(zap.NewNop(), eng, dist, reg, cfg), eng
}

func waitSeq(t *testing.T, eng *engine.Engine, seq uint64) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for eng.Snapshot().Seq < seq {
		if time.Now().After(deadline) {
			t.Fatalf("engine never reached seq %d", seq)
		}
		time.Sleep(time.Millisecond)
	}
}

func postOrder(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSubmitOrderEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := postOrder(t, srv.Handler(), `{"side":"buy","price":"100.5","qty":"2"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp SubmitOrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Accepted)
	require.Equal(t, uint64(1), resp.Seq)
}

func TestSubmitOrderValidation(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	cases := []string{
		`{"side":"hold","price":"100","qty":"1"}`,
		`{"side":"buy","price":"abc","qty":"1"}`,
		`{"side":"buy","price":"100","qty":"0.000000001"}`,
		`{"side":"sell","price":"-5","qty":"1"}`,
		`{"side":"sell","price":"100","qty":"0"}`,
		`not json`,
	}
	for _, body := range cases {
		rec := postOrder(t, h, body)
		require.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestOrderbookEndpoint(t *testing.T) {
	srv, eng := newTestServer(t)
	h := srv.Handler()

	require.Equal(t, http.StatusOK, postOrder(t, h, `{"side":"buy","price":"99","qty":"5"}`).Code)
	require.Equal(t, http.StatusOK, postOrder(t, h, `{"side":"sell","price":"101","qty":"3"}`).Code)
	waitSeq(t, eng, 2)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orderbook", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var depth wire.Depth
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &depth))
	require.Equal(t, uint64(2), depth.Seq)
	require.Len(t, depth.Bids, 1)
	require.Len(t, depth.Asks, 1)
	require.Equal(t, "99", depth.Bids[0].Price)
	require.Equal(t, "5", depth.Bids[0].Qty)
	require.Equal(t, "101", depth.Asks[0].Price)
}

func TestHealthAndStats(t *testing.T) {
	srv, eng := newTestServer(t)
	h := srv.Handler()

	require.Equal(t, http.StatusOK, postOrder(t, h, `{"side":"buy","price":"100","qty":"1"}`).Code)
	waitSeq(t, eng, 1)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	require.Equal(t, "ok", health.Status)
	require.Equal(t, uint64(1), health.LastSeq)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var stats StatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.Equal(t, uint64(1), stats.Accepted)
	require.Equal(t, 1, stats.Resting)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "clob_orders_accepted_total")
}

func TestWebSocketStreamsTrades(t *testing.T) {
	srv, eng := newTestServer(t)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?mode=strict"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// First frame is always the snapshot.
	var env struct {
		Type string `json:"type"`
	}
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(msg, &env))
	require.Equal(t, "snapshot", env.Type)

	_, err = eng.Submit(orderbook.Sell, 10000000000, 100000000)
	require.NoError(t, err)
	_, err = eng.Submit(orderbook.Buy, 10000000000, 100000000)
	require.NoError(t, err)
	waitSeq(t, eng, 2)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	sawTrade := false
	for !sawTrade {
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(msg, &env))
		if env.Type != "trade" {
			continue
		}
		sawTrade = true

		var tr wsTrade
		require.NoError(t, json.Unmarshal(msg, &tr))
		require.Equal(t, "100", tr.Price)
		require.Equal(t, "1", tr.Qty)
		require.Equal(t, "buy", tr.TakerSide)
	}
}
