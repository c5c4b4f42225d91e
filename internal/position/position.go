package position

import (
	"errors"
	"fmt"

	"sable/internal/strategy"
	"sable/internal/types"
)

// 状态机契约错误。任何一个出现都说明调用方状态已不可信，
// 引擎收到后会停掉该实例而不是继续跑。
var (
	ErrAlreadyOpen = errors.New("position: open on non-flat position")
	ErrNotOpen     = errors.New("position: operation requires an open position")
	ErrBadOpen     = errors.New("position: invalid open parameters")
)

// Position 是单实例的持仓状态机：FLAT → OPEN → FLAT。
// 非并发安全，由所属引擎实例串行驱动。
type Position struct {
	symbol      string
	side        types.Side
	leverage    float64
	feeRate     float64 // 单边费率

	open         bool
	entryPrice   float64
	entryCapital float64
	notional     float64
	size         float64
	openedAt     int64
	mode         types.Mode
	extremum     float64 // 多头峰值 / 空头谷值，每 tick 更新
}

// New 创建一条 FLAT 状态的持仓状态机。
func New(symbol string, side types.Side, leverage, feeRatePerSide float64) *Position {
	return &Position{
		symbol:   symbol,
		side:     side,
		leverage: leverage,
		feeRate:  feeRatePerSide,
	}
}

// IsOpen 报告当前是否持仓。
func (p *Position) IsOpen() bool { return p.open }

// Side 返回状态机固定的方向。
func (p *Position) Side() types.Side { return p.side }

// Size 返回当前持仓数量，FLAT 时为 0。
func (p *Position) Size() float64 { return p.size }

// View 返回检测器所需的持仓视图。
func (p *Position) View() strategy.PositionView {
	return strategy.PositionView{Open: p.open, Side: p.side, Extremum: p.extremum}
}

// Open 以给定资金开仓。capital 是本次动用的账本资金，
// 名义仓位 = capital × 杠杆，数量 = 名义仓位 / 开仓价。
// mode 记录开仓时所处的账本模式，随成交记录落盘。
func (p *Position) Open(snap types.Snapshot, capital float64, mode types.Mode) error {
	if p.open {
		return ErrAlreadyOpen
	}
	if capital <= 0 || snap.Close <= 0 {
		return fmt.Errorf("%w: capital=%.4f close=%.4f", ErrBadOpen, capital, snap.Close)
	}
	p.open = true
	p.entryPrice = snap.Close
	p.entryCapital = capital
	p.notional = capital * p.leverage
	p.size = p.notional / snap.Close
	p.openedAt = snap.Timestamp
	p.mode = mode
	p.extremum = snap.Close
	return nil
}

// Track 在持仓期间每 tick 调用一次，收盘价刷新极值。
// FLAT 状态下调用是 no-op。
func (p *Position) Track(snap types.Snapshot) {
	if !p.open {
		return
	}
	if p.side == types.SideShort {
		if snap.Close < p.extremum {
			p.extremum = snap.Close
		}
		return
	}
	if snap.Close > p.extremum {
		p.extremum = snap.Close
	}
}

// Close 平仓并产出成交记录，状态机回到 FLAT。
// 损益 = 方向符号 × 数量 × (平仓价 − 开仓价)；手续费按名义仓位收一个往返。
func (p *Position) Close(snap types.Snapshot, reason string) (types.Trade, error) {
	if !p.open {
		return types.Trade{}, ErrNotOpen
	}
	pnl := p.side.Sign() * p.size * (snap.Close - p.entryPrice)
	fee := p.notional * p.feeRate * 2
	trade := types.Trade{
		Symbol:       p.symbol,
		Side:         p.side,
		Mode:         p.mode,
		EntryPrice:   p.entryPrice,
		ExitPrice:    snap.Close,
		Size:         p.size,
		Leverage:     p.leverage,
		Notional:     p.notional,
		Fee:          fee,
		PnL:          pnl,
		NetPnL:       pnl - fee,
		ExitReason:   reason,
		OpenedAt:     p.openedAt,
		ClosedAt:     snap.Timestamp,
		EntryCapital: p.entryCapital,
	}
	*p = Position{symbol: p.symbol, side: p.side, leverage: p.leverage, feeRate: p.feeRate}
	return trade, nil
}
