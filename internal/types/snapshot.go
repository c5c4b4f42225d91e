package types

import "math"

// Snapshot 是一根收盘 K 线的快照：收盘价加上指标端预先算好的
// 三组 EMA（趋势/进场/离场），以及进出场组的前一根取值。
// 值对象，产生后不再修改。
type Snapshot struct {
	Timestamp int64   `json:"timestamp"` // 毫秒
	Close     float64 `json:"close"`

	TrendFast float64 `json:"trend_fast"`
	TrendSlow float64 `json:"trend_slow"`

	EntryFast     float64 `json:"entry_fast"`
	EntrySlow     float64 `json:"entry_slow"`
	PrevEntryFast float64 `json:"prev_entry_fast"`
	PrevEntrySlow float64 `json:"prev_entry_slow"`

	ExitFast     float64 `json:"exit_fast"`
	ExitSlow     float64 `json:"exit_slow"`
	PrevExitFast float64 `json:"prev_exit_fast"`
	PrevExitSlow float64 `json:"prev_exit_slow"`
}

// Degraded 报告快照是否存在缺失或非有限字段。
// 降级快照不得进入任何有状态组件，只允许被计数后丢弃。
func (s Snapshot) Degraded() bool {
	if s.Timestamp <= 0 || !isFinite(s.Close) || s.Close <= 0 {
		return true
	}
	for _, v := range []float64{
		s.TrendFast, s.TrendSlow,
		s.EntryFast, s.EntrySlow, s.PrevEntryFast, s.PrevEntrySlow,
		s.ExitFast, s.ExitSlow, s.PrevExitFast, s.PrevExitSlow,
	} {
		if !isFinite(v) {
			return true
		}
	}
	return false
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
