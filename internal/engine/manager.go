package engine

import (
	"fmt"
	"strings"

	"sable/internal/config"
	"sable/internal/logger"
	"sable/internal/types"
)

// Manager 维护全部策略实例并按交易对分发快照。
// 同一交易对允许同时存在 long/short 两个镜像实例，各自独立吃同一路快照。
type Manager struct {
	instances map[string]*Instance   // key → instance
	bySymbol  map[string][]*Instance // symbol → instances
}

// NewManager 按档案批量构造实例。total 是全部实例共享的实盘总资金，
// 按档案 Allocation 份额切分，未指定份额的档案均分剩余资金。
func NewManager(total float64, profiles []config.StrategyProfile, base Options) (*Manager, error) {
	enabled := make([]config.StrategyProfile, 0, len(profiles))
	for _, p := range profiles {
		if p.Enabled {
			enabled = append(enabled, p)
		}
	}
	if len(enabled) == 0 {
		return nil, fmt.Errorf("no enabled strategy profiles")
	}
	shares, err := PartitionCapital(total, enabled)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		instances: make(map[string]*Instance, len(enabled)),
		bySymbol:  make(map[string][]*Instance),
	}
	for i, p := range enabled {
		opts := base
		opts.Profile = p
		opts.InitialCapital = shares[i]
		inst := NewInstance(opts)
		m.instances[inst.Key()] = inst
		sym := normalizeSymbol(p.Symbol)
		m.bySymbol[sym] = append(m.bySymbol[sym], inst)
		logger.Infof("[engine] 实例 %s 就绪，起始资金 %.2f", inst.Key(), shares[i])
	}
	return m, nil
}

// PartitionCapital 按 Allocation 份额切分总资金。
// 显式份额之和不得超过 1，剩余部分在未指定份额的档案间均分。
func PartitionCapital(total float64, profiles []config.StrategyProfile) ([]float64, error) {
	if total <= 0 {
		return nil, fmt.Errorf("total capital must be > 0, got %v", total)
	}
	var explicit float64
	unallocated := 0
	for _, p := range profiles {
		if p.Allocation > 0 {
			explicit += p.Allocation
		} else {
			unallocated++
		}
	}
	if explicit > 1+1e-9 {
		return nil, fmt.Errorf("allocations sum to %.4f, exceeds 1", explicit)
	}
	var evenShare float64
	if unallocated > 0 {
		evenShare = (1 - explicit) / float64(unallocated)
	}
	out := make([]float64, len(profiles))
	for i, p := range profiles {
		share := p.Allocation
		if share == 0 {
			share = evenShare
		}
		out[i] = total * share
		if out[i] <= 0 {
			return nil, fmt.Errorf("profile %s resolves to non-positive capital", p.Key())
		}
	}
	return out, nil
}

// StartAll 启动全部实例。
func (m *Manager) StartAll() {
	for _, inst := range m.instances {
		inst.Start()
	}
}

// StopAll 停止全部实例并等待各自退出。
func (m *Manager) StopAll() {
	for _, inst := range m.instances {
		inst.Stop()
	}
}

// Dispatch 把一根快照投递给订阅该交易对的所有实例。
func (m *Manager) Dispatch(symbol string, snap types.Snapshot) {
	for _, inst := range m.bySymbol[normalizeSymbol(symbol)] {
		if err := inst.Submit(snap); err != nil {
			logger.Warnf("[engine] 快照投递失败 %s: %v", inst.Key(), err)
		}
	}
}

// Instance 按 key 查找实例。
func (m *Manager) Instance(key string) (*Instance, bool) {
	inst, ok := m.instances[key]
	return inst, ok
}

// Symbols 返回所有被订阅的交易对（去重）。
func (m *Manager) Symbols() []string {
	out := make([]string, 0, len(m.bySymbol))
	for sym := range m.bySymbol {
		out = append(out, sym)
	}
	return out
}

// Statuses 返回全部实例的状态快照。
func (m *Manager) Statuses() []Status {
	out := make([]Status, 0, len(m.instances))
	for _, inst := range m.instances {
		out = append(out, inst.Status())
	}
	return out
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
