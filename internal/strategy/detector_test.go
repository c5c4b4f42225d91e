package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sable/internal/types"
)

// upTrendSnap 趋势上行 + 进场组金叉
func upTrendSnap() types.Snapshot {
	return types.Snapshot{
		Timestamp: 1700000000000,
		Close:     100,
		TrendFast: 105, TrendSlow: 100,
		PrevEntryFast: 9, PrevEntrySlow: 10,
		EntryFast: 11, EntrySlow: 10,
		PrevExitFast: 11, PrevExitSlow: 10,
		ExitFast: 12, ExitSlow: 10,
	}
}

func TestDetectorLongEntry(t *testing.T) {
	d := NewDetector(types.SideLong, 0.10)

	t.Run("trend up with golden cross opens", func(t *testing.T) {
		sig, ok := d.Detect(upTrendSnap(), ClassifyAll(upTrendSnap()), PositionView{})
		assert.True(t, ok)
		assert.Equal(t, types.SignalEntry, sig.Kind)
		assert.Equal(t, types.SideLong, sig.Side)
		assert.Equal(t, types.ReasonEMACross, sig.Reason)
	})

	t.Run("golden cross without trend is ignored", func(t *testing.T) {
		snap := upTrendSnap()
		snap.TrendFast, snap.TrendSlow = 95, 100
		_, ok := d.Detect(snap, ClassifyAll(snap), PositionView{})
		assert.False(t, ok)
	})

	t.Run("trend tie is neutral", func(t *testing.T) {
		snap := upTrendSnap()
		snap.TrendFast, snap.TrendSlow = 100, 100
		_, ok := d.Detect(snap, ClassifyAll(snap), PositionView{})
		assert.False(t, ok)
	})

	t.Run("already open suppresses entry", func(t *testing.T) {
		pos := PositionView{Open: true, Side: types.SideLong, Extremum: 200}
		_, ok := d.Detect(upTrendSnap(), ClassifyAll(upTrendSnap()), pos)
		assert.False(t, ok)
	})
}

func TestDetectorLongExit(t *testing.T) {
	d := NewDetector(types.SideLong, 0.10)
	pos := PositionView{Open: true, Side: types.SideLong, Extremum: 100}

	t.Run("trailing stop at exactly 10 percent", func(t *testing.T) {
		snap := upTrendSnap()
		snap.Close = 90 // peak*(1-0.10)
		sig, ok := d.Detect(snap, ClassifyAll(snap), pos)
		assert.True(t, ok)
		assert.Equal(t, types.SignalExit, sig.Kind)
		assert.Equal(t, types.ReasonTrailingStop, sig.Reason)
	})

	t.Run("above trailing threshold holds", func(t *testing.T) {
		snap := upTrendSnap()
		snap.Close = 90.01
		_, ok := d.Detect(snap, ClassifyAll(snap), pos)
		assert.False(t, ok)
	})

	t.Run("exit dead cross closes", func(t *testing.T) {
		snap := upTrendSnap()
		snap.PrevExitFast, snap.PrevExitSlow = 11, 10
		snap.ExitFast, snap.ExitSlow = 9, 10
		sig, ok := d.Detect(snap, ClassifyAll(snap), pos)
		assert.True(t, ok)
		assert.Equal(t, types.ReasonEMACross, sig.Reason)
	})

	t.Run("trailing stop takes precedence over dead cross", func(t *testing.T) {
		snap := upTrendSnap()
		snap.Close = 85
		snap.PrevExitFast, snap.PrevExitSlow = 11, 10
		snap.ExitFast, snap.ExitSlow = 9, 10
		sig, ok := d.Detect(snap, ClassifyAll(snap), pos)
		assert.True(t, ok)
		assert.Equal(t, types.ReasonTrailingStop, sig.Reason)
	})
}

func TestDetectorShortMirror(t *testing.T) {
	d := NewDetector(types.SideShort, 0.10)

	t.Run("trend down with dead cross opens short", func(t *testing.T) {
		snap := types.Snapshot{
			Timestamp: 1700000000000,
			Close:     100,
			TrendFast: 95, TrendSlow: 100,
			PrevEntryFast: 11, PrevEntrySlow: 10,
			EntryFast: 9, EntrySlow: 10,
			PrevExitFast: 9, PrevExitSlow: 10,
			ExitFast: 8, ExitSlow: 10,
		}
		sig, ok := d.Detect(snap, ClassifyAll(snap), PositionView{})
		assert.True(t, ok)
		assert.Equal(t, types.SignalEntry, sig.Kind)
		assert.Equal(t, types.SideShort, sig.Side)
	})

	t.Run("short trailing stop on adverse rally", func(t *testing.T) {
		pos := PositionView{Open: true, Side: types.SideShort, Extremum: 100} // 入场后谷值
		snap := types.Snapshot{
			Timestamp: 1700000000000,
			Close:     110, // trough*(1+0.10)
			TrendFast: 95, TrendSlow: 100,
			PrevEntryFast: 9, PrevEntrySlow: 10,
			EntryFast: 8, EntrySlow: 10,
			PrevExitFast: 9, PrevExitSlow: 10,
			ExitFast: 8, ExitSlow: 10,
		}
		sig, ok := d.Detect(snap, ClassifyAll(snap), pos)
		assert.True(t, ok)
		assert.Equal(t, types.ReasonTrailingStop, sig.Reason)
	})

	t.Run("rally short of threshold holds", func(t *testing.T) {
		pos := PositionView{Open: true, Side: types.SideShort, Extremum: 100}
		snap := types.Snapshot{
			Timestamp: 1700000000000,
			Close:     109.99,
			TrendFast: 95, TrendSlow: 100,
			PrevEntryFast: 9, PrevEntrySlow: 10,
			EntryFast: 8, EntrySlow: 10,
			PrevExitFast: 9, PrevExitSlow: 10,
			ExitFast: 8, ExitSlow: 10,
		}
		_, ok := d.Detect(snap, ClassifyAll(snap), pos)
		assert.False(t, ok)
	})

	t.Run("short exit golden cross closes", func(t *testing.T) {
		pos := PositionView{Open: true, Side: types.SideShort, Extremum: 100}
		snap := types.Snapshot{
			Timestamp: 1700000000000,
			Close:     101,
			TrendFast: 95, TrendSlow: 100,
			PrevEntryFast: 9, PrevEntrySlow: 10,
			EntryFast: 8, EntrySlow: 10,
			PrevExitFast: 9, PrevExitSlow: 10,
			ExitFast: 11, ExitSlow: 10,
		}
		sig, ok := d.Detect(snap, ClassifyAll(snap), pos)
		assert.True(t, ok)
		assert.Equal(t, types.ReasonEMACross, sig.Reason)
	})
}
