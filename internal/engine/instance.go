package engine

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"sable/internal/capital"
	"sable/internal/config"
	"sable/internal/logger"
	"sable/internal/pipeline"
	"sable/internal/position"
	"sable/internal/strategy"
	"sable/internal/types"
)

// TradeRecorder 落盘已平仓成交与模式切换事件。实现可以缺省。
type TradeRecorder interface {
	SaveTrade(ctx context.Context, trade types.Trade) error
	SaveModeSwitch(ctx context.Context, instance string, sw capital.Switch) error
}

// Notifier 对外推送人类可读的事件消息。实现可以缺省。
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// ActionSink 接收引擎对执行端的动作输出。
type ActionSink func(action types.Action)

// Options 组装一个实例所需的全部依赖与参数。
type Options struct {
	Profile         config.StrategyProfile
	InitialCapital  float64 // 分给该实例的实盘起始资金
	MinEntryCapital float64
	HistorySize     int
	MailboxSize     int

	Recorder TradeRecorder
	Notifier Notifier
	Actions  ActionSink
}

// Status 是实例运行状态的一致性快照，经 atomic.Value 无锁读取。
type Status struct {
	Key           string         `json:"key"`
	Symbol        string         `json:"symbol"`
	Side          types.Side     `json:"side"`
	Mode          types.Mode     `json:"mode"`
	Real          capital.Ledger `json:"real"`
	Virtual       capital.Ledger `json:"virtual"`
	PositionOpen  bool           `json:"position_open"`
	Extremum      float64        `json:"extremum,omitempty"`
	LastTimestamp int64          `json:"last_timestamp"`
	Ticks         uint64         `json:"ticks"`
	Degraded      uint64         `json:"degraded"`
	OutOfOrder    uint64         `json:"out_of_order"`
	Halted        bool           `json:"halted"`
	HaltReason    string         `json:"halt_reason,omitempty"`
	Gate          pipeline.Stats `json:"gate"`
}

// Instance 是单个 (symbol, direction) 策略实例的 actor：
// 顺序消费快照，串起检测、裁决、持仓与资金四个组件。
// 所有状态只在自己的事件循环里变更。
type Instance struct {
	key      string
	profile  config.StrategyProfile
	detector *strategy.Detector
	gate     *pipeline.Gate
	pos      *position.Position
	capital  *capital.Controller

	recorder TradeRecorder
	notifier Notifier
	actions  ActionSink

	mailbox chan types.Snapshot
	stopCh  chan struct{}
	wg      sync.WaitGroup

	lastTS     int64
	ticks      uint64
	degraded   uint64
	outOfOrder uint64
	halted     bool
	haltErr    error

	status atomic.Value
}

// NewInstance 按档案构造实例，初始为 FLAT + 实盘模式。
func NewInstance(opts Options) *Instance {
	p := opts.Profile
	side := types.SideLong
	if p.IsShort() {
		side = types.SideShort
	}
	mailboxSize := opts.MailboxSize
	if mailboxSize <= 0 {
		mailboxSize = 64
	}
	in := &Instance{
		key:      p.Key(),
		profile:  p,
		detector: strategy.NewDetector(side, p.TrailingStop),
		gate:     pipeline.NewGate(p.Key(), opts.HistorySize, opts.MinEntryCapital),
		pos:      position.New(p.Symbol, side, p.Leverage, p.FeeRatePerSide),
		capital:  capital.NewController(p.Key(), opts.InitialCapital, p.VirtualBaseline, p.StopLoss, p.ReentryGain),
		recorder: opts.Recorder,
		notifier: opts.Notifier,
		actions:  opts.Actions,
		mailbox:  make(chan types.Snapshot, mailboxSize),
		stopCh:   make(chan struct{}),
	}
	in.refreshStatus()
	return in
}

// Key 返回实例唯一标识，如 "BTCUSDT/long"。
func (in *Instance) Key() string { return in.key }

// Symbol 返回实例订阅的交易对。
func (in *Instance) Symbol() string { return in.profile.Symbol }

// Start 启动事件循环。
func (in *Instance) Start() {
	in.wg.Add(1)
	go in.runLoop()
}

// Stop 停止事件循环并等待退出。邮箱里未处理的快照被丢弃。
func (in *Instance) Stop() {
	close(in.stopCh)
	in.wg.Wait()
}

// Submit 投递一根快照。实例已停止时返回错误。
func (in *Instance) Submit(snap types.Snapshot) error {
	select {
	case in.mailbox <- snap:
		return nil
	case <-in.stopCh:
		return fmt.Errorf("instance %s is stopped", in.key)
	}
}

// Process 同步处理一根快照，绕过邮箱。
// 仅供回放等单协程场景使用，不得与 Start 混用。
func (in *Instance) Process(snap types.Snapshot) {
	in.handleTick(snap)
}

// Status 返回最近一次刷新的状态快照。
func (in *Instance) Status() Status {
	val := in.status.Load()
	if val == nil {
		return Status{Key: in.key}
	}
	return val.(Status)
}

func (in *Instance) runLoop() {
	defer in.wg.Done()
	logger.Infof("[engine] %s 实例启动", in.key)
	for {
		select {
		case snap := <-in.mailbox:
			in.handleTick(snap)
		case <-in.stopCh:
			logger.Infof("[engine] %s 实例停止", in.key)
			return
		}
	}
}

// handleTick 处理一根快照。panic 视为契约破坏，停掉本实例而不是整个进程。
func (in *Instance) handleTick(snap types.Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			debug.PrintStack()
			in.halt(fmt.Errorf("panic: %v", r))
		}
		in.refreshStatus()
	}()

	if in.halted {
		return
	}
	in.ticks++

	// 时间戳必须严格递增，乱序与重复直接丢弃
	if snap.Timestamp <= in.lastTS {
		in.outOfOrder++
		logger.Warnf("[engine] %s 丢弃乱序快照 ts=%d last=%d", in.key, snap.Timestamp, in.lastTS)
		return
	}
	in.lastTS = snap.Timestamp

	if snap.Degraded() {
		in.degraded++
		logger.Warnf("[engine] %s 丢弃降级快照 ts=%d", in.key, snap.Timestamp)
		return
	}

	// bar 开始先检查模式切换
	if sw, ok := in.capital.CheckSwitch(snap.Timestamp); ok {
		in.onModeSwitch(sw)
	}

	in.pos.Track(snap)

	sig, ok := in.detector.Detect(snap, strategy.ClassifyAll(snap), in.pos.View())
	if !ok {
		return
	}

	entryCapital := in.capital.Active() * in.profile.CapitalFraction
	if _, accepted := in.gate.Admit(sig, in.pos.View(), entryCapital); !accepted {
		return
	}

	switch sig.Kind {
	case types.SignalEntry:
		in.openPosition(snap, entryCapital)
	case types.SignalExit:
		in.closePosition(snap, sig.Reason)
	}
}

func (in *Instance) openPosition(snap types.Snapshot, entryCapital float64) {
	mode := in.capital.Mode()
	if err := in.pos.Open(snap, entryCapital, mode); err != nil {
		in.halt(err)
		return
	}
	logger.Infof("[engine] %s %s 开仓 价格=%.4f 资金=%.2f", in.key, mode, snap.Close, entryCapital)

	// 虚拟模式只记账，不对执行端产生真实开仓动作
	if mode == types.ModeReal && in.actions != nil {
		in.actions(types.Action{
			Type:     types.ActionOpen,
			Symbol:   in.profile.Symbol,
			Side:     in.detector.Side(),
			Size:     in.pos.Size(),
			Leverage: in.profile.Leverage,
			Reason:   types.ReasonEMACross,
		})
	}
	in.notify(fmt.Sprintf("📈 %s [%s] 开仓 @ %.4f，动用资金 %.2f", in.key, mode, snap.Close, entryCapital))
}

func (in *Instance) closePosition(snap types.Snapshot, reason string) {
	trade, err := in.pos.Close(snap, reason)
	if err != nil {
		in.halt(err)
		return
	}
	in.capital.Apply(trade)
	logger.Infof("[engine] %s %s 平仓(%s) 价格=%.4f 净损益=%.2f", in.key, trade.Mode, reason, snap.Close, trade.NetPnL)

	// 实盘模式开出的仓位即使当前已切入虚拟模式也要真实平掉
	if trade.Mode == types.ModeReal && in.actions != nil {
		in.actions(types.Action{
			Type:   types.ActionClose,
			Symbol: in.profile.Symbol,
			Side:   trade.Side,
			Size:   trade.Size,
			Reason: reason,
		})
	}
	if in.recorder != nil {
		if err := in.recorder.SaveTrade(context.Background(), trade); err != nil {
			logger.Errorf("[engine] %s 成交落盘失败: %v", in.key, err)
		}
	}
	in.notify(fmt.Sprintf("📉 %s [%s] 平仓(%s) @ %.4f，净损益 %.2f", in.key, trade.Mode, reason, snap.Close, trade.NetPnL))

	// 平仓后立即复查模式切换
	if sw, ok := in.capital.CheckSwitch(snap.Timestamp); ok {
		in.onModeSwitch(sw)
	}
}

func (in *Instance) onModeSwitch(sw capital.Switch) {
	if in.recorder != nil {
		if err := in.recorder.SaveModeSwitch(context.Background(), in.key, sw); err != nil {
			logger.Errorf("[engine] %s 模式切换落盘失败: %v", in.key, err)
		}
	}
	in.notify(fmt.Sprintf("🔀 %s 模式切换 %s → %s（触发比例 %.2f%%）", in.key, sw.From, sw.To, sw.Trigger*100))
}

func (in *Instance) halt(err error) {
	in.halted = true
	in.haltErr = err
	logger.Errorf("[engine] %s 契约破坏，实例停摆: %v", in.key, err)
	in.notify(fmt.Sprintf("⛔ %s 实例停摆: %v", in.key, err))
}

func (in *Instance) notify(text string) {
	if in.notifier == nil {
		return
	}
	if err := in.notifier.Send(context.Background(), text); err != nil {
		logger.Warnf("[engine] %s 通知发送失败: %v", in.key, err)
	}
}

func (in *Instance) refreshStatus() {
	st := Status{
		Key:           in.key,
		Symbol:        in.profile.Symbol,
		Side:          in.detector.Side(),
		Mode:          in.capital.Mode(),
		Real:          in.capital.Real(),
		Virtual:       in.capital.Virtual(),
		PositionOpen:  in.pos.IsOpen(),
		LastTimestamp: in.lastTS,
		Ticks:         in.ticks,
		Degraded:      in.degraded,
		OutOfOrder:    in.outOfOrder,
		Halted:        in.halted,
		Gate:          in.gate.Stats(),
	}
	if in.pos.IsOpen() {
		st.Extremum = in.pos.View().Extremum
	}
	if in.haltErr != nil {
		st.HaltReason = in.haltErr.Error()
	}
	in.status.Store(st)
}
