package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// StrategyProfile 描述单个 (symbol, direction) 策略实例的全部参数。
// 构造后不可变：引擎持有一份值拷贝，运行期没有任何全局可变配置。
type StrategyProfile struct {
	Symbol    string `yaml:"symbol"`
	Direction string `yaml:"direction"` // "long" | "short"
	Enabled   bool   `yaml:"enabled"`
	Interval  string `yaml:"interval"`

	// EMA 周期（仅作为信息传递给指标采集端，核心只消费算好的值）
	TrendFast int `yaml:"trend_fast"`
	TrendSlow int `yaml:"trend_slow"`
	EntryFast int `yaml:"entry_fast"`
	EntrySlow int `yaml:"entry_slow"`
	ExitFast  int `yaml:"exit_fast"`
	ExitSlow  int `yaml:"exit_slow"`

	Leverage        float64 `yaml:"leverage"`
	TrailingStop    float64 `yaml:"trailing_stop"`    // 距离峰值/谷值的回撤比例
	StopLoss        float64 `yaml:"stop_loss"`        // REAL→VIRTUAL 触发回撤
	ReentryGain     float64 `yaml:"reentry_gain"`     // VIRTUAL→REAL 触发涨幅
	CapitalFraction float64 `yaml:"capital_fraction"` // 单笔动用资金比例
	FeeRatePerSide  float64 `yaml:"fee_rate"`
	VirtualBaseline float64 `yaml:"virtual_baseline"`
	Allocation      float64 `yaml:"allocation"` // 占总资金的静态份额，0 表示均分
}

// profilesFile 映射 strategies.yaml。
type profilesFile struct {
	Strategies []StrategyProfile `yaml:"strategies"`
}

// IsShort 报告该档案是否为做空镜像变体。
func (p StrategyProfile) IsShort() bool {
	return strings.EqualFold(strings.TrimSpace(p.Direction), "short")
}

// Key 返回实例的唯一标识，如 "BTCUSDT/long"。
func (p StrategyProfile) Key() string {
	dir := "long"
	if p.IsShort() {
		dir = "short"
	}
	return strings.ToUpper(strings.TrimSpace(p.Symbol)) + "/" + dir
}

// LoadProfiles 读取策略档案文件，应用默认值并逐条校验。
func LoadProfiles(path string) ([]StrategyProfile, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("profiles path cannot be empty")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profiles failed (%s): %w", path, err)
	}
	var file profilesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parsing profiles failed (%s): %w", path, err)
	}
	if len(file.Strategies) == 0 {
		return nil, fmt.Errorf("profiles file %s contains no strategies", path)
	}
	seen := make(map[string]struct{}, len(file.Strategies))
	out := make([]StrategyProfile, 0, len(file.Strategies))
	for i := range file.Strategies {
		p := file.Strategies[i]
		p.applyDefaults()
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("profile %s invalid: %w", p.Key(), err)
		}
		if _, dup := seen[p.Key()]; dup {
			return nil, fmt.Errorf("duplicate profile %s", p.Key())
		}
		seen[p.Key()] = struct{}{}
		out = append(out, p)
	}
	return out, nil
}

func (p *StrategyProfile) applyDefaults() {
	if p.Direction == "" {
		p.Direction = "long"
	}
	if p.Interval == "" {
		p.Interval = "30m"
	}
	if p.TrendFast == 0 {
		p.TrendFast = 150
	}
	if p.TrendSlow == 0 {
		p.TrendSlow = 200
	}
	if p.EntryFast == 0 {
		p.EntryFast = 20
	}
	if p.EntrySlow == 0 {
		p.EntrySlow = 50
	}
	if p.ExitFast == 0 {
		p.ExitFast = 20
	}
	if p.ExitSlow == 0 {
		p.ExitSlow = 100
	}
	if p.Leverage == 0 {
		p.Leverage = 10
	}
	if p.TrailingStop == 0 {
		p.TrailingStop = 0.10
	}
	if p.StopLoss == 0 {
		p.StopLoss = 0.20
	}
	if p.ReentryGain == 0 {
		p.ReentryGain = 0.30
	}
	if p.CapitalFraction == 0 {
		p.CapitalFraction = 0.50
	}
	if p.FeeRatePerSide == 0 {
		p.FeeRatePerSide = 0.0005
	}
	if p.VirtualBaseline == 0 {
		p.VirtualBaseline = 10000
	}
}

// Validate 在实例构造前执行；失败的档案拒绝启动。
func (p StrategyProfile) Validate() error {
	if strings.TrimSpace(p.Symbol) == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	dir := strings.ToLower(strings.TrimSpace(p.Direction))
	if dir != "long" && dir != "short" {
		return fmt.Errorf("direction must be long or short, got %q", p.Direction)
	}
	if !IsValidInterval(p.Interval) {
		return fmt.Errorf("interval %q invalid", p.Interval)
	}
	if p.Leverage <= 0 {
		return fmt.Errorf("leverage must be > 0")
	}
	for name, v := range map[string]float64{
		"trailing_stop":    p.TrailingStop,
		"stop_loss":        p.StopLoss,
		"reentry_gain":     p.ReentryGain,
		"capital_fraction": p.CapitalFraction,
	} {
		if v <= 0 || v > 1 {
			return fmt.Errorf("%s must be in (0, 1], got %v", name, v)
		}
	}
	if p.FeeRatePerSide < 0 || p.FeeRatePerSide >= 1 {
		return fmt.Errorf("fee_rate must be in [0, 1), got %v", p.FeeRatePerSide)
	}
	if p.VirtualBaseline <= 0 {
		return fmt.Errorf("virtual_baseline must be > 0")
	}
	if p.Allocation < 0 || p.Allocation > 1 {
		return fmt.Errorf("allocation must be in [0, 1], got %v", p.Allocation)
	}
	if p.TrendFast >= p.TrendSlow {
		return fmt.Errorf("trend_fast must be < trend_slow")
	}
	if p.EntryFast >= p.EntrySlow {
		return fmt.Errorf("entry_fast must be < entry_slow")
	}
	if p.ExitFast >= p.ExitSlow {
		return fmt.Errorf("exit_fast must be < exit_slow")
	}
	return nil
}
