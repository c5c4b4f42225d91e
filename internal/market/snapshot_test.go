package market

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sable/internal/config"
)

func builderProfile() config.StrategyProfile {
	return config.StrategyProfile{
		Symbol:    "BTCUSDT",
		Direction: "long",
		Interval:  "30m",
		TrendFast: 5,
		TrendSlow: 8,
		EntryFast: 3,
		EntrySlow: 5,
		ExitFast:  3,
		ExitSlow:  6,
	}
}

func candleSeq(n int, start float64) []Candle {
	out := make([]Candle, n)
	for i := 0; i < n; i++ {
		ts := int64((i + 1) * 60_000)
		out[i] = Candle{
			OpenTime:  ts,
			CloseTime: ts + 59_999,
			Close:     start + float64(i),
		}
	}
	return out
}

func TestSnapshotBuilderWarmup(t *testing.T) {
	b := NewSnapshotBuilder(builderProfile(), 0)
	assert.False(t, b.Ready())

	// 窗口不足时不产出快照
	snap, ok := b.Push(Candle{OpenTime: 60_000, CloseTime: 119_999, Close: 100})
	assert.False(t, ok)
	assert.Zero(t, snap.Timestamp)
}

func TestSnapshotBuilderProducesCleanSnapshots(t *testing.T) {
	b := NewSnapshotBuilder(builderProfile(), 0)
	b.Preheat(candleSeq(40, 100))
	assert.True(t, b.Ready())

	next := Candle{OpenTime: 41 * 60_000, CloseTime: 41*60_000 + 59_999, Close: 141}
	snap, ok := b.Push(next)
	assert.True(t, ok)
	assert.False(t, snap.Degraded())
	assert.Equal(t, next.CloseTime, snap.Timestamp)
	assert.Equal(t, 141.0, snap.Close)
	// 单调上涨序列里快线必然压着慢线
	assert.Greater(t, snap.TrendFast, snap.TrendSlow)
	assert.Greater(t, snap.EntryFast, snap.EntrySlow)
	// 前一根取值来自同一序列的上一位
	assert.Less(t, snap.PrevEntryFast, snap.EntryFast)
}

func TestSnapshotBuilderRejectsBadCandles(t *testing.T) {
	b := NewSnapshotBuilder(builderProfile(), 0)
	seq := candleSeq(40, 100)
	b.Preheat(seq)

	t.Run("out of order candle ignored", func(t *testing.T) {
		_, ok := b.Push(seq[10])
		assert.False(t, ok)
	})

	t.Run("zero close ignored", func(t *testing.T) {
		_, ok := b.Push(Candle{OpenTime: 100 * 60_000, CloseTime: 100*60_000 + 59_999, Close: 0})
		assert.False(t, ok)
	})

	t.Run("window survives rejected pushes", func(t *testing.T) {
		next := Candle{OpenTime: 41 * 60_000, CloseTime: 41*60_000 + 59_999, Close: 141}
		snap, ok := b.Push(next)
		assert.True(t, ok)
		assert.Equal(t, next.CloseTime, snap.Timestamp)
		assert.Equal(t, 141.0, snap.Close)
	})
}

func TestSnapshotBuilderWindowBound(t *testing.T) {
	b := NewSnapshotBuilder(builderProfile(), 0)
	// 远超窗口容量的灌入不会让窗口无界增长
	b.Preheat(candleSeq(500, 100))
	assert.LessOrEqual(t, len(b.candles), b.maxLen)

	snap, ok := b.Push(Candle{OpenTime: 600 * 60_000, CloseTime: 600*60_000 + 59_999, Close: 700})
	assert.True(t, ok)
	assert.False(t, snap.Degraded())
}
