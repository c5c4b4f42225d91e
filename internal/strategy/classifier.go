package strategy

import (
	"math"

	"sable/internal/types"
)

// CrossUp 金叉：前一根 fast <= slow，当前 fast > slow。
func CrossUp(prevFast, prevSlow, currFast, currSlow float64) bool {
	return prevFast <= prevSlow && currFast > currSlow
}

// CrossDown 死叉：前一根 fast >= slow，当前 fast < slow。
func CrossDown(prevFast, prevSlow, currFast, currSlow float64) bool {
	return prevFast >= prevSlow && currFast < currSlow
}

// Classify 对一组指标值做交叉分类。纯函数；任何非有限输入一律返回 none，
// 快照本身的降级标记由 Snapshot.Degraded 负责。
func Classify(pair types.Pair, prevFast, prevSlow, currFast, currSlow float64) types.CrossoverResult {
	res := types.CrossoverResult{Pair: pair, Direction: types.CrossNone}
	for _, v := range []float64{prevFast, prevSlow, currFast, currSlow} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return res
		}
	}
	switch {
	case CrossUp(prevFast, prevSlow, currFast, currSlow):
		res.Direction = types.CrossUp
	case CrossDown(prevFast, prevSlow, currFast, currSlow):
		res.Direction = types.CrossDown
	}
	return res
}

// ClassifyAll 对快照里配置的进场/离场两组指标各分类一次。
func ClassifyAll(snap types.Snapshot) []types.CrossoverResult {
	return []types.CrossoverResult{
		Classify(types.PairEntry, snap.PrevEntryFast, snap.PrevEntrySlow, snap.EntryFast, snap.EntrySlow),
		Classify(types.PairExit, snap.PrevExitFast, snap.PrevExitSlow, snap.ExitFast, snap.ExitSlow),
	}
}
