package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sable/internal/capital"
	"sable/internal/market"
	"sable/internal/types"
)

func newTestStore(t *testing.T) *SqliteStore {
	t.Helper()
	s, err := NewSqliteStore(filepath.Join(t.TempDir(), "sable-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestTradeRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	trade := types.Trade{
		Symbol:       "BTCUSDT",
		Side:         types.SideLong,
		Mode:         types.ModeReal,
		EntryPrice:   100,
		ExitPrice:    110,
		Size:         500,
		Leverage:     10,
		Notional:     50000,
		Fee:          50,
		PnL:          5000,
		NetPnL:       4950,
		EntryCapital: 5000,
		ExitReason:   types.ReasonEMACross,
		OpenedAt:     1000,
		ClosedAt:     2000,
	}
	require.NoError(t, s.SaveTrade(ctx, trade))
	require.NoError(t, s.SaveTrade(ctx, types.Trade{Symbol: "ETHUSDT", Side: types.SideShort, Mode: types.ModeVirtual, ClosedAt: 3000}))

	all, err := s.ListTrades(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, trade, all[0])

	btc, err := s.ListTrades(ctx, "btcusdt", 0)
	require.NoError(t, err)
	assert.Len(t, btc, 1)
	assert.Equal(t, "BTCUSDT", btc[0].Symbol)
}

func TestModeSwitchRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sw := capital.Switch{
		From:           types.ModeReal,
		To:             types.ModeVirtual,
		At:             5000,
		Trigger:        0.23,
		RealCapital:    7700,
		VirtualCapital: 10000,
	}
	require.NoError(t, s.SaveModeSwitch(ctx, "BTCUSDT/long", sw))

	got, err := s.ListModeSwitches(ctx, "BTCUSDT/long", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, sw, got[0])

	none, err := s.ListModeSwitches(ctx, "ETHUSDT/long", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCandleRoundTripAndDedup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	candles := []market.Candle{
		{OpenTime: 1000, CloseTime: 1999, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10, Trades: 3},
		{OpenTime: 2000, CloseTime: 2999, Open: 1.5, High: 3, Low: 1, Close: 2.5, Volume: 20, Trades: 5},
	}
	require.NoError(t, s.SaveCandles(ctx, "btcusdt", "30M", candles))
	// 重复写入同一批不报错也不产生重复行
	require.NoError(t, s.SaveCandles(ctx, "BTCUSDT", "30m", candles))

	got, err := s.LoadCandles(ctx, "BTCUSDT", "30m", 0)
	require.NoError(t, err)
	assert.Equal(t, candles, got)
}
