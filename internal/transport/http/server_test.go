package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sable/internal/config"
	"sable/internal/engine"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	profiles := []config.StrategyProfile{
		{Symbol: "BTCUSDT", Direction: "long", Enabled: true, Interval: "30m",
			TrendFast: 150, TrendSlow: 200, EntryFast: 20, EntrySlow: 50, ExitFast: 20, ExitSlow: 100,
			Leverage: 10, TrailingStop: 0.10, StopLoss: 0.20, ReentryGain: 0.30,
			CapitalFraction: 0.50, FeeRatePerSide: 0.0005, VirtualBaseline: 10000},
	}
	mgr, err := engine.NewManager(10000, profiles, engine.Options{MinEntryCapital: 100})
	require.NoError(t, err)
	srv, err := NewServer(ServerConfig{Manager: mgr})
	require.NoError(t, err)
	return srv
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestInstanceStatus(t *testing.T) {
	srv := newTestServer(t)

	t.Run("list", func(t *testing.T) {
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/instances", nil))
		require.Equal(t, http.StatusOK, w.Code)
		var statuses []engine.Status
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &statuses))
		require.Len(t, statuses, 1)
		assert.Equal(t, "BTCUSDT/long", statuses[0].Key)
		assert.Equal(t, 10000.0, statuses[0].Real.Capital)
	})

	t.Run("single", func(t *testing.T) {
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/instances/btcusdt/LONG", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unknown instance", func(t *testing.T) {
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/instances/DOGEUSDT/long", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("trades route absent without store", func(t *testing.T) {
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/trades", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestServerRequiresManager(t *testing.T) {
	_, err := NewServer(ServerConfig{})
	assert.Error(t, err)
}
