package types

// Side 表示持仓方向。
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// Sign 返回方向符号：做多 +1，做空 -1。
func (s Side) Sign() float64 {
	if s == SideShort {
		return -1
	}
	return 1
}

// Cross 是单组指标在一个 tick 上的交叉分类。
type Cross int

const (
	CrossNone Cross = iota
	CrossUp
	CrossDown
)

func (c Cross) String() string {
	switch c {
	case CrossUp:
		return "up"
	case CrossDown:
		return "down"
	default:
		return "none"
	}
}

// Pair 标识参与交叉判定的指标组。
type Pair string

const (
	PairEntry Pair = "entry"
	PairExit  Pair = "exit"
)

// CrossoverResult 每个 tick 对每组指标现算一次，不持久化。
type CrossoverResult struct {
	Pair      Pair  `json:"pair"`
	Direction Cross `json:"direction"`
}

// SignalKind 区分进场与离场信号。
type SignalKind string

const (
	SignalEntry SignalKind = "entry"
	SignalExit  SignalKind = "exit"
)

// Signal 是检测器产出的候选交易信号，由管线裁决后才会生效。
type Signal struct {
	Kind      SignalKind `json:"kind"`
	Side      Side       `json:"side"`
	Timestamp int64      `json:"timestamp"`
	Reason    string     `json:"reason"`
	Snapshot  Snapshot   `json:"snapshot"`
}

// 信号触发原因（原样进入 Trade.ExitReason，供下游统计区分）。
const (
	ReasonEMACross     = "ema-cross"
	ReasonTrailingStop = "trailing-stop"
)

// ActionType 是引擎对外部执行端的唯一输出；无动作的 tick 不产出记录。
type ActionType string

const (
	ActionOpen  ActionType = "open"
	ActionClose ActionType = "close"
)

// Action 动作记录。引擎不等待执行确认，open/close 是乐观的本地状态变更。
type Action struct {
	Type     ActionType `json:"type"`
	Symbol   string     `json:"symbol,omitempty"`
	Side     Side       `json:"side,omitempty"`
	Size     float64    `json:"size,omitempty"`
	Leverage float64    `json:"leverage,omitempty"`
	Reason   string     `json:"reason,omitempty"`
}
