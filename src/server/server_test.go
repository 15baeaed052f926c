package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lotengine/src/handler"
	"lotengine/src/metrics"
)

func stubRoutes() Routes {
	ok := func(name string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(name)) }
	}
	return Routes{Positions: ok("positions"), Decisions: ok("decisions"), ProRata: handler.ProRataHandler()}
}

func TestRouter_Healthcheck(t *testing.T) {
	rr := httptest.NewRecorder()
	NewRouter(stubRoutes()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())
}

func TestRouter_MetricsExposesEngineCounters(t *testing.T) {
	metrics.IncExitDecision("pool", "none")

	rr := httptest.NewRecorder()
	NewRouter(stubRoutes()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "lotengine_exit_decisions_total")
}

func TestRouter_Routes(t *testing.T) {
	router := NewRouter(stubRoutes())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/positions/u1/s1/BTC-EUR", nil))
	assert.Equal(t, "positions", rr.Body.String())

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/decisions/u1/s1/BTC-EUR", nil))
	assert.Equal(t, "decisions", rr.Body.String())

	rr = httptest.NewRecorder()
	body := `{"fill_qty":"1","qty_tick":"0.1","trades":[{"trade_id":"a","amount":"1"},{"trade_id":"b","amount":"1"}]}`
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/allocations/pro-rata", strings.NewReader(body)))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/allocations/pro-rata", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestStartServer_ShutsDownOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- StartServer(ctx, &Config{Port: "0", ShutdownTimeout: time.Second}, NewRouter(stubRoutes()))
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
