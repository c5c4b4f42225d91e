package backtest

import (
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sable/internal/capital"
	"sable/internal/config"
	"sable/internal/market"
	"sable/internal/types"
)

func replayProfile() config.StrategyProfile {
	return config.StrategyProfile{
		Symbol:          "BTCUSDT",
		Direction:       "long",
		Enabled:         true,
		Interval:        "30m",
		TrendFast:       5,
		TrendSlow:       8,
		EntryFast:       3,
		EntrySlow:       5,
		ExitFast:        3,
		ExitSlow:        6,
		Leverage:        10,
		TrailingStop:    0.10,
		StopLoss:        0.20,
		ReentryGain:     0.30,
		CapitalFraction: 0.50,
		FeeRatePerSide:  0.0005,
		VirtualBaseline: 10000,
	}
}

// waveCandles 合成一段先涨后跌再涨的行情，保证指标窗口吃满。
func waveCandles(n int) []market.Candle {
	out := make([]market.Candle, n)
	for i := 0; i < n; i++ {
		ts := int64((i + 1) * 1_800_000)
		price := 100 + 20*math.Sin(float64(i)/7) + float64(i)*0.1
		out[i] = market.Candle{
			OpenTime:  ts,
			CloseTime: ts + 1_799_999,
			Close:     price,
		}
	}
	return out
}

func TestRunInvariants(t *testing.T) {
	res, err := Run(Options{
		Profile:        replayProfile(),
		Candles:        waveCandles(300),
		InitialCapital: 10000,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, "BTCUSDT/long", res.Instance)
	assert.Greater(t, res.Stats.Ticks, uint64(0))

	st := res.Stats
	assert.Equal(t, st.Trades, st.Wins+st.Losses)
	assert.Equal(t, st.Trades, st.RealTrades+st.VirtualTrades)
	assert.Equal(t, st.Trades, len(res.Equity))
	assert.Len(t, res.Trades, st.Trades)
	// 收益率与最终权益自洽
	assert.InDelta(t, (st.FinalReal-st.InitialCapital)/st.InitialCapital, st.ReturnPct, 1e-4)
}

func TestRunRejectsBadInput(t *testing.T) {
	t.Run("no candles", func(t *testing.T) {
		_, err := Run(Options{Profile: replayProfile(), InitialCapital: 10000})
		assert.Error(t, err)
	})
	t.Run("non-positive capital", func(t *testing.T) {
		_, err := Run(Options{Profile: replayProfile(), Candles: waveCandles(50)})
		assert.Error(t, err)
	})
	t.Run("invalid profile", func(t *testing.T) {
		p := replayProfile()
		p.TrailingStop = 2
		_, err := Run(Options{Profile: p, Candles: waveCandles(50), InitialCapital: 10000})
		assert.Error(t, err)
	})
}

func TestComputeStats(t *testing.T) {
	trades := []types.Trade{
		{Mode: types.ModeReal, NetPnL: 500},
		{Mode: types.ModeReal, NetPnL: -200},
		{Mode: types.ModeVirtual, NetPnL: 300},
	}
	switches := []capital.Switch{{From: types.ModeReal, To: types.ModeVirtual}}
	equity := []EquityPoint{
		{Timestamp: 1000, Real: 10500},
		{Timestamp: 2000, Real: 10300},
		{Timestamp: 3000, Real: 10300},
	}
	st := computeStats(10000, trades, switches, equity, 42)
	assert.Equal(t, 3, st.Trades)
	assert.Equal(t, 2, st.Wins)
	assert.Equal(t, 1, st.Losses)
	assert.Equal(t, 2, st.RealTrades)
	assert.Equal(t, 1, st.VirtualTrades)
	assert.Equal(t, 1, st.ModeSwitches)
	assert.InDelta(t, 0.6667, st.WinRate, 1e-9)
	assert.InDelta(t, 0.03, st.ReturnPct, 1e-9)
	// 回撤峰值 10500 → 10300
	assert.InDelta(t, 0.019, st.MaxDrawdownPct, 1e-3)
	assert.Equal(t, 10300.0, st.FinalReal)
}

func TestWriteReport(t *testing.T) {
	res := &Result{
		RunID:    "test-run",
		Instance: "BTCUSDT/long",
		Interval: "30m",
		Equity: []EquityPoint{
			{Timestamp: 1_700_000_000_000, Real: 10000, Virtual: 10000, Mode: types.ModeReal},
			{Timestamp: 1_700_003_600_000, Real: 10500, Virtual: 10200, Mode: types.ModeReal},
		},
		Stats: Stats{InitialCapital: 10000, FinalReal: 10500, ReturnPct: 0.05},
	}
	dir := t.TempDir()
	path, err := WriteReport(res, dir)
	require.NoError(t, err)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "BTCUSDT/long")
}
