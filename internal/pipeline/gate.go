package pipeline

import (
	"sync"

	"sable/internal/logger"
	"sable/internal/strategy"
	"sable/internal/types"
)

// 拒绝原因。原因字符串对外暴露于状态接口，保持稳定。
const (
	RejectAlreadyOpen         = "already-open"
	RejectNoPosition          = "no-position"
	RejectBadInput            = "bad-input"
	RejectInsufficientCapital = "insufficient-capital"
)

// Decision 是一次裁决的记录：信号加裁决结果。
type Decision struct {
	Signal   types.Signal `json:"signal"`
	Accepted bool         `json:"accepted"`
	Reason   string       `json:"reason,omitempty"` // 仅拒绝时填写
}

// Stats 是裁决计数的一致性快照。
type Stats struct {
	Total      uint64            `json:"total"`
	Accepted   uint64            `json:"accepted"`
	Rejected   uint64            `json:"rejected"`
	Rejections map[string]uint64 `json:"rejections"`
}

// Gate 是信号与有状态组件之间唯一的裁决点：
// 校验候选信号与当前持仓/资金的一致性，维护有界历史与 O(1) 计数。
// 并发安全。
type Gate struct {
	name            string
	minEntryCapital float64

	mu         sync.Mutex
	history    []Decision // 环形缓冲
	next       int
	filled     bool
	accepted   uint64
	rejected   uint64
	rejections map[string]uint64
}

// NewGate 创建裁决器。historySize <= 0 时使用默认容量 256。
func NewGate(name string, historySize int, minEntryCapital float64) *Gate {
	if historySize <= 0 {
		historySize = 256
	}
	return &Gate{
		name:            name,
		minEntryCapital: minEntryCapital,
		history:         make([]Decision, historySize),
		rejections:      make(map[string]uint64),
	}
}

// Admit 对候选信号做裁决。接受时返回 (decision, true)；
// 拒绝不是错误，原因在 Decision.Reason。
// available 是当前活跃账本可动用的资金，仅对进场信号检查。
func (g *Gate) Admit(sig types.Signal, pos strategy.PositionView, available float64) (Decision, bool) {
	reason := g.validate(sig, pos, available)
	dec := Decision{Signal: sig, Accepted: reason == ""}
	dec.Reason = reason

	g.mu.Lock()
	g.record(dec)
	g.mu.Unlock()

	if !dec.Accepted {
		logger.Debugf("[gate] %s 拒绝 %s 信号: %s", g.name, sig.Kind, reason)
	}
	return dec, dec.Accepted
}

func (g *Gate) validate(sig types.Signal, pos strategy.PositionView, available float64) string {
	if sig.Timestamp <= 0 || sig.Snapshot.Degraded() {
		return RejectBadInput
	}
	switch sig.Kind {
	case types.SignalEntry:
		if pos.Open {
			return RejectAlreadyOpen
		}
		if available < g.minEntryCapital {
			return RejectInsufficientCapital
		}
	case types.SignalExit:
		if !pos.Open {
			return RejectNoPosition
		}
	default:
		return RejectBadInput
	}
	return ""
}

// record 调用方必须持有 g.mu。
func (g *Gate) record(dec Decision) {
	g.history[g.next] = dec
	g.next++
	if g.next == len(g.history) {
		g.next = 0
		g.filled = true
	}
	if dec.Accepted {
		g.accepted++
		return
	}
	g.rejected++
	g.rejections[dec.Reason]++
}

// Stats 返回计数快照，map 为拷贝。
func (g *Gate) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()
	rej := make(map[string]uint64, len(g.rejections))
	for k, v := range g.rejections {
		rej[k] = v
	}
	return Stats{
		Total:      g.accepted + g.rejected,
		Accepted:   g.accepted,
		Rejected:   g.rejected,
		Rejections: rej,
	}
}

// History 按时间先后返回裁决历史的拷贝，最旧在前。
func (g *Gate) History() []Decision {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.filled {
		out := make([]Decision, g.next)
		copy(out, g.history[:g.next])
		return out
	}
	out := make([]Decision, 0, len(g.history))
	out = append(out, g.history[g.next:]...)
	out = append(out, g.history[:g.next]...)
	return out
}
