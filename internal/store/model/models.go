package model

// TradeModel 对应 trades 表：每笔平仓成交一行，只增不改。
type TradeModel struct {
	ID           int64   `gorm:"column:id;primaryKey"`
	Symbol       string  `gorm:"column:symbol;index"`
	Side         string  `gorm:"column:side"`
	Mode         string  `gorm:"column:mode;index"`
	EntryPrice   float64 `gorm:"column:entry_price"`
	ExitPrice    float64 `gorm:"column:exit_price"`
	Size         float64 `gorm:"column:size"`
	Leverage     float64 `gorm:"column:leverage"`
	Notional     float64 `gorm:"column:notional"`
	Fee          float64 `gorm:"column:fee"`
	PnL          float64 `gorm:"column:pnl"`
	NetPnL       float64 `gorm:"column:net_pnl"`
	EntryCapital float64 `gorm:"column:entry_capital"`
	ExitReason   string  `gorm:"column:exit_reason"`
	OpenedAt     int64   `gorm:"column:opened_at"`
	ClosedAt     int64   `gorm:"column:closed_at;index"`
	CreatedAt    int64   `gorm:"column:created_at;autoCreateTime"`
}

func (TradeModel) TableName() string { return "trades" }

// ModeSwitchModel 对应 mode_switches 表：账本模式切换流水。
type ModeSwitchModel struct {
	ID             int64   `gorm:"column:id;primaryKey"`
	Instance       string  `gorm:"column:instance;index"`
	FromMode       string  `gorm:"column:from_mode"`
	ToMode         string  `gorm:"column:to_mode"`
	Trigger        float64 `gorm:"column:trigger_ratio"`
	RealCapital    float64 `gorm:"column:real_capital"`
	VirtualCapital float64 `gorm:"column:virtual_capital"`
	SwitchedAt     int64   `gorm:"column:switched_at;index"`
	CreatedAt      int64   `gorm:"column:created_at;autoCreateTime"`
}

func (ModeSwitchModel) TableName() string { return "mode_switches" }

// KlineModel 对应 klines 表：回放用的本地 K 线仓库。
type KlineModel struct {
	ID       int64   `gorm:"column:id;primaryKey"`
	Symbol   string  `gorm:"column:symbol;uniqueIndex:idx_kline,priority:1"`
	Interval string  `gorm:"column:interval;uniqueIndex:idx_kline,priority:2"`
	OpenTime int64   `gorm:"column:open_time;uniqueIndex:idx_kline,priority:3"`
	CloseAt  int64   `gorm:"column:close_time"`
	Open     float64 `gorm:"column:open"`
	High     float64 `gorm:"column:high"`
	Low      float64 `gorm:"column:low"`
	Close    float64 `gorm:"column:close"`
	Volume   float64 `gorm:"column:volume"`
	Trades   int64   `gorm:"column:trades"`
}

func (KlineModel) TableName() string { return "klines" }
