package market

import (
	"math"

	talib "github.com/markcheno/go-talib"

	"sable/internal/config"
	"sable/internal/types"
)

// SnapshotBuilder 把收盘 K 线流折算成指标快照流：
// 维护一个滚动收盘价窗口，每收一根 K 线重算三组 EMA 并取末两位。
// 每个策略实例各持一个（EMA 周期随档案走），非并发安全。
type SnapshotBuilder struct {
	profile config.StrategyProfile
	maxLen  int
	candles []Candle
}

// NewSnapshotBuilder 构造指标快照生成器。
// lookback 是窗口容量，必须覆盖最慢的 EMA 周期；不足时自动抬高。
func NewSnapshotBuilder(p config.StrategyProfile, lookback int) *SnapshotBuilder {
	min := slowestPeriod(p)*3 + 2 // EMA 需要足够长的预热段才稳定
	if lookback < min {
		lookback = min
	}
	return &SnapshotBuilder{
		profile: p,
		maxLen:  lookback,
		candles: make([]Candle, 0, lookback),
	}
}

// Preheat 用历史 K 线灌满窗口，K 线需按时间升序。
func (b *SnapshotBuilder) Preheat(history []Candle) {
	for _, c := range history {
		b.append(c)
	}
}

// Ready 报告窗口是否已覆盖最慢 EMA 周期。
func (b *SnapshotBuilder) Ready() bool {
	return len(b.candles) > slowestPeriod(b.profile)
}

// Push 追加一根收盘 K 线并尝试产出快照。
// K 线被窗口拒收、或窗口不足以算出全部 EMA 时返回 ok=false。
func (b *SnapshotBuilder) Push(c Candle) (types.Snapshot, bool) {
	if !b.append(c) {
		return types.Snapshot{}, false
	}
	if !b.Ready() {
		return types.Snapshot{}, false
	}
	closes := make([]float64, len(b.candles))
	for i, cd := range b.candles {
		closes[i] = cd.Close
	}
	p := b.profile
	trendFast, _ := lastTwo(talib.Ema(closes, p.TrendFast))
	trendSlow, _ := lastTwo(talib.Ema(closes, p.TrendSlow))
	entryFast, prevEntryFast := lastTwo(talib.Ema(closes, p.EntryFast))
	entrySlow, prevEntrySlow := lastTwo(talib.Ema(closes, p.EntrySlow))
	exitFast, prevExitFast := lastTwo(talib.Ema(closes, p.ExitFast))
	exitSlow, prevExitSlow := lastTwo(talib.Ema(closes, p.ExitSlow))

	snap := types.Snapshot{
		Timestamp:     c.CloseTime,
		Close:         c.Close,
		TrendFast:     trendFast,
		TrendSlow:     trendSlow,
		EntryFast:     entryFast,
		EntrySlow:     entrySlow,
		PrevEntryFast: prevEntryFast,
		PrevEntrySlow: prevEntrySlow,
		ExitFast:      exitFast,
		ExitSlow:      exitSlow,
		PrevExitFast:  prevExitFast,
		PrevExitSlow:  prevExitSlow,
	}
	return snap, true
}

// append 把 K 线并入窗口，返回是否被接受。
func (b *SnapshotBuilder) append(c Candle) bool {
	if c.CloseTime <= 0 || c.Close <= 0 {
		return false
	}
	if n := len(b.candles); n > 0 && c.OpenTime <= b.candles[n-1].OpenTime {
		return false
	}
	b.candles = append(b.candles, c)
	if len(b.candles) > b.maxLen {
		b.candles = b.candles[1:]
	}
	return true
}

func slowestPeriod(p config.StrategyProfile) int {
	max := p.TrendSlow
	for _, v := range []int{p.TrendFast, p.EntryFast, p.EntrySlow, p.ExitFast, p.ExitSlow} {
		if v > max {
			max = v
		}
	}
	return max
}

// lastTwo 返回序列最后两个值；talib 对预热段填 0，这里转成 NaN
// 让下游把这类快照当降级处理。
func lastTwo(series []float64) (last, prev float64) {
	if len(series) < 2 {
		return math.NaN(), math.NaN()
	}
	last = series[len(series)-1]
	prev = series[len(series)-2]
	if last == 0 {
		last = math.NaN()
	}
	if prev == 0 {
		prev = math.NaN()
	}
	return last, prev
}
