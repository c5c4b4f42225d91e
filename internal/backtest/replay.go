package backtest

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"sable/internal/capital"
	"sable/internal/config"
	"sable/internal/engine"
	"sable/internal/logger"
	"sable/internal/market"
	"sable/internal/types"
)

// Options 描述一次回放任务。
type Options struct {
	Profile         config.StrategyProfile
	Candles         []market.Candle // 按时间升序的收盘 K 线
	InitialCapital  float64
	MinEntryCapital float64
	Lookback        int // 指标窗口容量，0 取默认
}

// collector 在内存里攒成交与切换流水，实现 engine.TradeRecorder。
type collector struct {
	trades   []types.Trade
	switches []capital.Switch
}

func (c *collector) SaveTrade(_ context.Context, trade types.Trade) error {
	c.trades = append(c.trades, trade)
	return nil
}

func (c *collector) SaveModeSwitch(_ context.Context, _ string, sw capital.Switch) error {
	c.switches = append(c.switches, sw)
	return nil
}

// Run 把历史 K 线按顺序喂给一个独立实例并汇总结果。
// 回放与实盘共用同一条引擎路径，只是快照来自本地数据而非订阅流。
func Run(opts Options) (*Result, error) {
	if len(opts.Candles) == 0 {
		return nil, fmt.Errorf("backtest requires candles")
	}
	if opts.InitialCapital <= 0 {
		return nil, fmt.Errorf("initial capital must be > 0")
	}
	if err := opts.Profile.Validate(); err != nil {
		return nil, fmt.Errorf("profile invalid: %w", err)
	}

	rec := &collector{}
	inst := engine.NewInstance(engine.Options{
		Profile:         opts.Profile,
		InitialCapital:  opts.InitialCapital,
		MinEntryCapital: opts.MinEntryCapital,
		Recorder:        rec,
	})
	builder := market.NewSnapshotBuilder(opts.Profile, opts.Lookback)

	res := &Result{
		RunID:    uuid.NewString(),
		Instance: opts.Profile.Key(),
		Interval: opts.Profile.Interval,
	}
	seenTrades := 0
	for _, c := range opts.Candles {
		snap, ok := builder.Push(c)
		if !ok {
			continue
		}
		inst.Process(snap)
		if st := inst.Status(); st.Halted {
			return nil, fmt.Errorf("instance %s halted during replay: %s", res.Instance, st.HaltReason)
		}
		// 每出现一笔新成交就采样一次权益
		if len(rec.trades) > seenTrades {
			seenTrades = len(rec.trades)
			st := inst.Status()
			res.Equity = append(res.Equity, EquityPoint{
				Timestamp: snap.Timestamp,
				Real:      st.Real.Capital,
				Virtual:   st.Virtual.Capital,
				Mode:      st.Mode,
			})
		}
	}

	res.Trades = rec.trades
	res.Switches = rec.switches
	res.Stats = computeStats(opts.InitialCapital, rec.trades, rec.switches, res.Equity, inst.Status().Ticks)
	logger.Infof("[backtest] %s 回放完成：%d 笔成交，收益率 %.2f%%，最大回撤 %.2f%%",
		res.Instance, res.Stats.Trades, res.Stats.ReturnPct*100, res.Stats.MaxDrawdownPct*100)
	return res, nil
}
