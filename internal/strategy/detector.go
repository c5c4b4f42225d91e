package strategy

import (
	"sable/internal/types"
)

// Trend 是趋势轴状态，每个 tick 仅由趋势指标组导出。
type Trend int

const (
	TrendNeutral Trend = iota
	TrendUp
	TrendDown
)

func (t Trend) String() string {
	switch t {
	case TrendUp:
		return "up"
	case TrendDown:
		return "down"
	default:
		return "neutral"
	}
}

// ClassifyTrend 判定趋势方向：fast > slow 为上行，fast < slow 为下行。
func ClassifyTrend(snap types.Snapshot) Trend {
	switch {
	case snap.TrendFast > snap.TrendSlow:
		return TrendUp
	case snap.TrendFast < snap.TrendSlow:
		return TrendDown
	default:
		return TrendNeutral
	}
}

// PositionView 是检测器所需的最小持仓视图，由引擎每 tick 提供。
type PositionView struct {
	Open     bool
	Side     types.Side
	Extremum float64 // 多头为入场后峰值，空头为入场后谷值
}

// Detector 将趋势状态与交叉分类组合成候选交易信号。
// 多空共用同一套方向带符号的规则，方向由档案选定，构造后不可变。
type Detector struct {
	side         types.Side
	trailingStop float64
}

// NewDetector 构造检测器。direction 为做多/做空镜像变体。
func NewDetector(side types.Side, trailingStop float64) *Detector {
	return &Detector{side: side, trailingStop: trailingStop}
}

// Side 返回该检测器的持仓方向。
func (d *Detector) Side() types.Side { return d.side }

// Detect 依据规则表产出至多一个候选信号。
// 进场与离场由持仓状态互斥；没有信号不是错误，就是一个 no-op tick。
func (d *Detector) Detect(snap types.Snapshot, crosses []types.CrossoverResult, pos PositionView) (types.Signal, bool) {
	var entryCross, exitCross types.Cross
	for _, c := range crosses {
		switch c.Pair {
		case types.PairEntry:
			entryCross = c.Direction
		case types.PairExit:
			exitCross = c.Direction
		}
	}

	if pos.Open {
		if reason, ok := d.exitTriggered(snap, exitCross, pos); ok {
			return types.Signal{
				Kind:      types.SignalExit,
				Side:      d.side,
				Timestamp: snap.Timestamp,
				Reason:    reason,
				Snapshot:  snap,
			}, true
		}
		return types.Signal{}, false
	}

	if d.entryTriggered(snap, entryCross) {
		return types.Signal{
			Kind:      types.SignalEntry,
			Side:      d.side,
			Timestamp: snap.Timestamp,
			Reason:    types.ReasonEMACross,
			Snapshot:  snap,
		}, true
	}
	return types.Signal{}, false
}

func (d *Detector) entryTriggered(snap types.Snapshot, entryCross types.Cross) bool {
	trend := ClassifyTrend(snap)
	if d.side == types.SideShort {
		return trend == TrendDown && entryCross == types.CrossDown
	}
	return trend == TrendUp && entryCross == types.CrossUp
}

// exitTriggered 先查移动止损再查 EMA 交叉，两者触发原因需可区分。
// 止损用相对极值的回撤比例比较，阈值恰好触达时同样成立。
func (d *Detector) exitTriggered(snap types.Snapshot, exitCross types.Cross, pos PositionView) (string, bool) {
	if d.side == types.SideShort {
		if pos.Extremum > 0 && (snap.Close-pos.Extremum)/pos.Extremum >= d.trailingStop {
			return types.ReasonTrailingStop, true
		}
		if exitCross == types.CrossUp {
			return types.ReasonEMACross, true
		}
		return "", false
	}
	if pos.Extremum > 0 && (pos.Extremum-snap.Close)/pos.Extremum >= d.trailingStop {
		return types.ReasonTrailingStop, true
	}
	if exitCross == types.CrossDown {
		return types.ReasonEMACross, true
	}
	return "", false
}
