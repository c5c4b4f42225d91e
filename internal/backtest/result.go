package backtest

import (
	"time"

	"github.com/shopspring/decimal"

	"sable/internal/capital"
	"sable/internal/types"
)

// EquityPoint 是回放过程中每笔平仓后的双账本权益采样。
type EquityPoint struct {
	Timestamp int64      `json:"timestamp"`
	Real      float64    `json:"real"`
	Virtual   float64    `json:"virtual"`
	Mode      types.Mode `json:"mode"`
}

// Stats 汇总收益与风控指标，比例字段统一保留四位小数。
type Stats struct {
	InitialCapital float64   `json:"initial_capital"`
	FinalReal      float64   `json:"final_real"`
	ReturnPct      float64   `json:"return_pct"`
	MaxDrawdownPct float64   `json:"max_drawdown_pct"`
	WinRate        float64   `json:"win_rate"`
	Trades         int       `json:"trades"`
	Wins           int       `json:"wins"`
	Losses         int       `json:"losses"`
	RealTrades     int       `json:"real_trades"`
	VirtualTrades  int       `json:"virtual_trades"`
	ModeSwitches   int       `json:"mode_switches"`
	Ticks          uint64    `json:"ticks"`
	FinishedAt     time.Time `json:"finished_at"`
}

// Result 是一次回放的完整产出。
type Result struct {
	RunID    string           `json:"run_id"`
	Instance string           `json:"instance"`
	Interval string           `json:"interval"`
	Trades   []types.Trade    `json:"trades"`
	Switches []capital.Switch `json:"switches"`
	Equity   []EquityPoint    `json:"equity"`
	Stats    Stats            `json:"stats"`
}

func computeStats(initial float64, trades []types.Trade, switches []capital.Switch, equity []EquityPoint, ticks uint64) Stats {
	st := Stats{
		InitialCapital: initial,
		FinalReal:      initial,
		Trades:         len(trades),
		ModeSwitches:   len(switches),
		Ticks:          ticks,
		FinishedAt:     time.Now().UTC(),
	}
	for _, tr := range trades {
		if tr.IsWin() {
			st.Wins++
		} else {
			st.Losses++
		}
		if tr.Mode == types.ModeVirtual {
			st.VirtualTrades++
		} else {
			st.RealTrades++
		}
	}
	if len(equity) > 0 {
		st.FinalReal = equity[len(equity)-1].Real
	}
	if st.Trades > 0 {
		st.WinRate = round4(float64(st.Wins) / float64(st.Trades))
	}
	if initial > 0 {
		st.ReturnPct = round4((st.FinalReal - initial) / initial)
	}
	st.MaxDrawdownPct = round4(maxDrawdown(initial, equity))
	return st
}

// maxDrawdown 基于已实现实盘权益曲线计算最大回撤比例。
func maxDrawdown(initial float64, equity []EquityPoint) float64 {
	peak := initial
	var worst float64
	for _, pt := range equity {
		if pt.Real > peak {
			peak = pt.Real
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - pt.Real) / peak; dd > worst {
			worst = dd
		}
	}
	return worst
}

func round4(v float64) float64 {
	out, _ := decimal.NewFromFloat(v).Round(4).Float64()
	return out
}
