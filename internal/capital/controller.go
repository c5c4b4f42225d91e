package capital

import (
	"sable/internal/logger"
	"sable/internal/types"
)

// Ledger 是单个账本：资金余额加一个极值水位。
// 实盘账本的水位是峰值（算回撤），虚拟账本的水位是谷值（算回升）。
type Ledger struct {
	Capital float64 `json:"capital"`
	Mark    float64 `json:"mark"`
}

// Switch 是一次模式切换事件，供落盘与通知使用。
type Switch struct {
	From           types.Mode `json:"from"`
	To             types.Mode `json:"to"`
	At             int64      `json:"at"`
	Trigger        float64    `json:"trigger"` // 触发时的回撤或回升比例
	RealCapital    float64    `json:"real_capital"`
	VirtualCapital float64    `json:"virtual_capital"`
}

// Controller 是双账本资金控制器。任一时刻只有一个账本活跃：
// 实盘模式亏到止损线切入虚拟模式，虚拟模式赚回再入线切回实盘。
// 成交按净损益记入活跃账本，按收益率影子记入非活跃账本。
// 非并发安全，由所属引擎实例串行驱动。
type Controller struct {
	mode        types.Mode
	real        Ledger
	virtual     Ledger
	baseline    float64 // 虚拟账本基准资金，每次进入虚拟模式重置
	stopLoss    float64
	reentryGain float64
	name        string
}

// NewController 创建一个从实盘模式起步的控制器。
func NewController(name string, initialReal, virtualBaseline, stopLoss, reentryGain float64) *Controller {
	return &Controller{
		mode:        types.ModeReal,
		real:        Ledger{Capital: initialReal, Mark: initialReal},
		virtual:     Ledger{Capital: virtualBaseline, Mark: virtualBaseline},
		baseline:    virtualBaseline,
		stopLoss:    stopLoss,
		reentryGain: reentryGain,
		name:        name,
	}
}

// Mode 返回当前账本模式。
func (c *Controller) Mode() types.Mode { return c.mode }

// Active 返回当前活跃账本的资金。
func (c *Controller) Active() float64 {
	if c.mode == types.ModeVirtual {
		return c.virtual.Capital
	}
	return c.real.Capital
}

// Real 返回实盘账本快照。
func (c *Controller) Real() Ledger { return c.real }

// Virtual 返回虚拟账本快照。
func (c *Controller) Virtual() Ledger { return c.virtual }

// Apply 把一笔已平仓成交记入双账本：
// 活跃账本按净损益入账，非活跃账本按同比例收益率影子入账，
// 使两个账本对同一段行情保持可比。入账后刷新活跃账本水位。
func (c *Controller) Apply(trade types.Trade) {
	pct := trade.PnLPct()
	if c.mode == types.ModeVirtual {
		c.virtual.Capital += trade.NetPnL
		c.real.Capital += c.real.Capital * pct
		if c.virtual.Capital < c.virtual.Mark {
			c.virtual.Mark = c.virtual.Capital
		}
		return
	}
	c.real.Capital += trade.NetPnL
	c.virtual.Capital += c.virtual.Capital * pct
	if c.real.Capital > c.real.Mark {
		c.real.Mark = c.real.Capital
	}
}

// CheckSwitch 检查是否满足模式切换条件，满足则切换并返回事件。
// 实盘：自峰值回撤 ≥ 止损比例 → 虚拟，虚拟账本重置为基准资金。
// 虚拟：自谷值回升 ≥ 再入比例 → 实盘，实盘峰值重定为当前资金。
// 实盘账本永不重置。
func (c *Controller) CheckSwitch(at int64) (Switch, bool) {
	if c.mode == types.ModeReal {
		if c.real.Mark <= 0 {
			return Switch{}, false
		}
		drawdown := (c.real.Mark - c.real.Capital) / c.real.Mark
		if drawdown < c.stopLoss {
			return Switch{}, false
		}
		c.mode = types.ModeVirtual
		c.virtual = Ledger{Capital: c.baseline, Mark: c.baseline}
		sw := c.event(types.ModeReal, types.ModeVirtual, at, drawdown)
		logger.Warnf("[capital] %s 回撤 %.2f%% 触发止损，切入虚拟模式", c.name, drawdown*100)
		return sw, true
	}

	if c.virtual.Mark <= 0 {
		return Switch{}, false
	}
	gain := (c.virtual.Capital - c.virtual.Mark) / c.virtual.Mark
	if gain < c.reentryGain {
		return Switch{}, false
	}
	c.mode = types.ModeReal
	c.real.Mark = c.real.Capital
	sw := c.event(types.ModeVirtual, types.ModeReal, at, gain)
	logger.Infof("[capital] %s 虚拟盘回升 %.2f%%，切回实盘模式", c.name, gain*100)
	return sw, true
}

func (c *Controller) event(from, to types.Mode, at int64, trigger float64) Switch {
	return Switch{
		From:           from,
		To:             to,
		At:             at,
		Trigger:        trigger,
		RealCapital:    c.real.Capital,
		VirtualCapital: c.virtual.Capital,
	}
}
