package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeFile(t, "config.yaml", `
app:
  env: prod
market:
  lookback: 500
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.App.Env)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, ":9982", cfg.App.HTTPAddr)
	assert.Equal(t, 500, cfg.Market.Lookback)
	assert.Equal(t, 10000.0, cfg.Trading.TotalCapital)
	assert.Equal(t, 100.0, cfg.Trading.MinEntryCapital)
	assert.Equal(t, "configs/strategies.yaml", cfg.Trading.ProfilesPath)

	src := cfg.Market.ResolveActiveSource()
	assert.Equal(t, "binance", src.Name)
	assert.Equal(t, "https://fapi.binance.com", src.RESTBaseURL)
}

func TestLoadRespectsExplicitKeys(t *testing.T) {
	path := writeFile(t, "config.yaml", `
app:
  http_addr: ":8080"
trading:
  total_capital: 25000
  min_entry_capital: 50
market:
  lookback: 300
  active_source: binance
  sources:
    - name: binance
      enabled: true
      rest_base_url: https://testnet.binancefuture.com
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.App.HTTPAddr)
	assert.Equal(t, 25000.0, cfg.Trading.TotalCapital)
	assert.Equal(t, 50.0, cfg.Trading.MinEntryCapital)
	assert.Equal(t, "https://testnet.binancefuture.com", cfg.Market.ResolveActiveSource().RESTBaseURL)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Run("lookback out of range", func(t *testing.T) {
		path := writeFile(t, "config.yaml", "market:\n  lookback: 10\n")
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("telegram enabled without token", func(t *testing.T) {
		path := writeFile(t, "config.yaml", `
notify:
  telegram:
    enabled: true
`)
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestLoadProfiles(t *testing.T) {
	path := writeFile(t, "strategies.yaml", `
strategies:
  - symbol: BTCUSDT
    direction: long
    enabled: true
  - symbol: BTCUSDT
    direction: short
    interval: 1h
    leverage: 5
`)
	profiles, err := LoadProfiles(path)
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	long := profiles[0]
	assert.Equal(t, "BTCUSDT/long", long.Key())
	// 未显式给出的参数取默认
	assert.Equal(t, 150, long.TrendFast)
	assert.Equal(t, 200, long.TrendSlow)
	assert.Equal(t, 10.0, long.Leverage)
	assert.Equal(t, 0.10, long.TrailingStop)
	assert.Equal(t, 0.20, long.StopLoss)
	assert.Equal(t, 0.30, long.ReentryGain)
	assert.Equal(t, 0.50, long.CapitalFraction)
	assert.Equal(t, 0.0005, long.FeeRatePerSide)
	assert.Equal(t, 10000.0, long.VirtualBaseline)
	assert.Equal(t, "30m", long.Interval)

	short := profiles[1]
	assert.True(t, short.IsShort())
	assert.Equal(t, "BTCUSDT/short", short.Key())
	assert.Equal(t, "1h", short.Interval)
	assert.Equal(t, 5.0, short.Leverage)
}

func TestLoadProfilesRejects(t *testing.T) {
	t.Run("duplicate profile", func(t *testing.T) {
		path := writeFile(t, "strategies.yaml", `
strategies:
  - symbol: BTCUSDT
    direction: long
  - symbol: btcusdt
    direction: long
`)
		_, err := LoadProfiles(path)
		assert.Error(t, err)
	})

	t.Run("bad threshold", func(t *testing.T) {
		path := writeFile(t, "strategies.yaml", `
strategies:
  - symbol: BTCUSDT
    trailing_stop: 1.5
`)
		_, err := LoadProfiles(path)
		assert.Error(t, err)
	})

	t.Run("empty file", func(t *testing.T) {
		path := writeFile(t, "strategies.yaml", "strategies: []\n")
		_, err := LoadProfiles(path)
		assert.Error(t, err)
	})
}
