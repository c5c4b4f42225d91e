package types

// Mode 表示资金账本模式。
type Mode string

const (
	ModeReal    Mode = "REAL"
	ModeVirtual Mode = "VIRTUAL"
)

// Trade 是平仓后一次性生成的不可变成交记录。
type Trade struct {
	Symbol     string  `json:"symbol"`
	Side       Side    `json:"side"`
	Mode       Mode    `json:"mode"` // 开仓时所处的账本模式
	EntryPrice float64 `json:"entry_price"`
	ExitPrice  float64 `json:"exit_price"`
	Size       float64 `json:"size"`
	Leverage   float64 `json:"leverage"`
	Notional   float64 `json:"notional"`
	Fee        float64 `json:"fee"`     // 往返手续费，只收一次
	PnL        float64 `json:"pnl"`     // 手续费前
	NetPnL     float64 `json:"net_pnl"` // 手续费后
	ExitReason string  `json:"exit_reason"`
	OpenedAt   int64   `json:"opened_at"`
	ClosedAt   int64   `json:"closed_at"`

	// 自本金连续性校验用：开仓时动用的账本资金
	EntryCapital float64 `json:"entry_capital"`
}

// IsWin 报告净损益是否为正。
func (t Trade) IsWin() bool { return t.NetPnL > 0 }

// PnLPct 返回相对开仓资金的净收益率。
func (t Trade) PnLPct() float64 {
	if t.EntryCapital <= 0 {
		return 0
	}
	return t.NetPnL / t.EntryCapital
}
