package position

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sable/internal/types"
)

func snapAt(ts int64, close float64) types.Snapshot {
	return types.Snapshot{Timestamp: ts, Close: close}
}

func TestPositionLifecycle(t *testing.T) {
	p := New("BTCUSDT", types.SideLong, 10, 0.0005)
	assert.False(t, p.IsOpen())

	err := p.Open(snapAt(1000, 100), 5000, types.ModeReal)
	assert.NoError(t, err)
	assert.True(t, p.IsOpen())
	assert.Equal(t, 100.0, p.View().Extremum)

	// 峰值只升不降
	p.Track(snapAt(2000, 120))
	assert.Equal(t, 120.0, p.View().Extremum)
	p.Track(snapAt(3000, 110))
	assert.Equal(t, 120.0, p.View().Extremum)

	trade, err := p.Close(snapAt(4000, 110), types.ReasonEMACross)
	assert.NoError(t, err)
	assert.False(t, p.IsOpen())

	// 名义仓位 5000×10=50000，数量 500
	assert.Equal(t, 50000.0, trade.Notional)
	assert.Equal(t, 500.0, trade.Size)
	// PnL = 500 × (110−100) = 5000；手续费 = 50000×0.0005×2 = 50
	assert.InDelta(t, 5000.0, trade.PnL, 1e-9)
	assert.InDelta(t, 50.0, trade.Fee, 1e-9)
	assert.InDelta(t, 4950.0, trade.NetPnL, 1e-9)
	assert.Equal(t, types.ModeReal, trade.Mode)
	assert.Equal(t, int64(1000), trade.OpenedAt)
	assert.Equal(t, int64(4000), trade.ClosedAt)
	assert.Equal(t, 5000.0, trade.EntryCapital)
	assert.True(t, trade.IsWin())
	assert.InDelta(t, 0.99, trade.PnLPct(), 1e-9)
}

func TestPositionShort(t *testing.T) {
	p := New("ETHUSDT", types.SideShort, 10, 0.0005)
	assert.NoError(t, p.Open(snapAt(1000, 100), 1000, types.ModeVirtual))

	// 空头极值是谷值，只降不升
	p.Track(snapAt(2000, 90))
	assert.Equal(t, 90.0, p.View().Extremum)
	p.Track(snapAt(3000, 95))
	assert.Equal(t, 90.0, p.View().Extremum)

	trade, err := p.Close(snapAt(4000, 95), types.ReasonTrailingStop)
	assert.NoError(t, err)
	// 数量 10000/100=100；PnL = −1 × 100 × (95−100) = 500
	assert.InDelta(t, 500.0, trade.PnL, 1e-9)
	assert.Equal(t, types.ReasonTrailingStop, trade.ExitReason)
	assert.Equal(t, types.ModeVirtual, trade.Mode)
}

func TestPositionContractViolations(t *testing.T) {
	p := New("BTCUSDT", types.SideLong, 10, 0.0005)

	t.Run("close while flat", func(t *testing.T) {
		_, err := p.Close(snapAt(1000, 100), types.ReasonEMACross)
		assert.ErrorIs(t, err, ErrNotOpen)
	})

	t.Run("double open", func(t *testing.T) {
		assert.NoError(t, p.Open(snapAt(1000, 100), 5000, types.ModeReal))
		err := p.Open(snapAt(2000, 110), 5000, types.ModeReal)
		assert.ErrorIs(t, err, ErrAlreadyOpen)
	})

	t.Run("bad open parameters", func(t *testing.T) {
		q := New("BTCUSDT", types.SideLong, 10, 0.0005)
		err := q.Open(snapAt(1000, 100), 0, types.ModeReal)
		assert.ErrorIs(t, err, ErrBadOpen)
		assert.False(t, q.IsOpen())
	})

	t.Run("track while flat is noop", func(t *testing.T) {
		q := New("BTCUSDT", types.SideLong, 10, 0.0005)
		q.Track(snapAt(1000, 100))
		assert.Equal(t, 0.0, q.View().Extremum)
	})
}
