package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"sable/internal/capital"
	"sable/internal/market"
	"sable/internal/store/model"
	"sable/internal/types"
)

// SqliteStore 落盘成交、模式切换与回放 K 线，实现 engine.TradeRecorder。
type SqliteStore struct {
	db *gorm.DB
}

func NewSqliteStore(path string) (*SqliteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	return newSqliteStore(db)
}

func NewSqliteStoreFromDB(db *gorm.DB) (*SqliteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm db 不能为空")
	}
	return newSqliteStore(db)
}

func newSqliteStore(db *gorm.DB) (*SqliteStore, error) {
	models := []interface{}{
		&model.TradeModel{},
		&model.ModeSwitchModel{},
		&model.KlineModel{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(2)
		sqlDB.SetMaxIdleConns(2)
	}
	return &SqliteStore{db: db}, nil
}

func (s *SqliteStore) SaveTrade(ctx context.Context, trade types.Trade) error {
	rec := model.TradeModel{
		Symbol:       trade.Symbol,
		Side:         string(trade.Side),
		Mode:         string(trade.Mode),
		EntryPrice:   trade.EntryPrice,
		ExitPrice:    trade.ExitPrice,
		Size:         trade.Size,
		Leverage:     trade.Leverage,
		Notional:     trade.Notional,
		Fee:          trade.Fee,
		PnL:          trade.PnL,
		NetPnL:       trade.NetPnL,
		EntryCapital: trade.EntryCapital,
		ExitReason:   trade.ExitReason,
		OpenedAt:     trade.OpenedAt,
		ClosedAt:     trade.ClosedAt,
	}
	return s.db.WithContext(ctx).Create(&rec).Error
}

func (s *SqliteStore) SaveModeSwitch(ctx context.Context, instance string, sw capital.Switch) error {
	rec := model.ModeSwitchModel{
		Instance:       instance,
		FromMode:       string(sw.From),
		ToMode:         string(sw.To),
		Trigger:        sw.Trigger,
		RealCapital:    sw.RealCapital,
		VirtualCapital: sw.VirtualCapital,
		SwitchedAt:     sw.At,
	}
	return s.db.WithContext(ctx).Create(&rec).Error
}

// ListTrades 按平仓时间升序返回某交易对的成交，symbol 为空表示全部。
func (s *SqliteStore) ListTrades(ctx context.Context, symbol string, limit int) ([]types.Trade, error) {
	if limit <= 0 {
		limit = 500
	}
	q := s.db.WithContext(ctx).Model(&model.TradeModel{}).Order("closed_at ASC").Limit(limit)
	if symbol = strings.TrimSpace(symbol); symbol != "" {
		q = q.Where("symbol = ?", strings.ToUpper(symbol))
	}
	var recs []model.TradeModel
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]types.Trade, 0, len(recs))
	for _, r := range recs {
		out = append(out, types.Trade{
			Symbol:       r.Symbol,
			Side:         types.Side(r.Side),
			Mode:         types.Mode(r.Mode),
			EntryPrice:   r.EntryPrice,
			ExitPrice:    r.ExitPrice,
			Size:         r.Size,
			Leverage:     r.Leverage,
			Notional:     r.Notional,
			Fee:          r.Fee,
			PnL:          r.PnL,
			NetPnL:       r.NetPnL,
			EntryCapital: r.EntryCapital,
			ExitReason:   r.ExitReason,
			OpenedAt:     r.OpenedAt,
			ClosedAt:     r.ClosedAt,
		})
	}
	return out, nil
}

// ListModeSwitches 按切换时间升序返回某实例的模式切换流水。
func (s *SqliteStore) ListModeSwitches(ctx context.Context, instance string, limit int) ([]capital.Switch, error) {
	if limit <= 0 {
		limit = 200
	}
	q := s.db.WithContext(ctx).Model(&model.ModeSwitchModel{}).Order("switched_at ASC").Limit(limit)
	if instance = strings.TrimSpace(instance); instance != "" {
		q = q.Where("instance = ?", instance)
	}
	var recs []model.ModeSwitchModel
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]capital.Switch, 0, len(recs))
	for _, r := range recs {
		out = append(out, capital.Switch{
			From:           types.Mode(r.FromMode),
			To:             types.Mode(r.ToMode),
			At:             r.SwitchedAt,
			Trigger:        r.Trigger,
			RealCapital:    r.RealCapital,
			VirtualCapital: r.VirtualCapital,
		})
	}
	return out, nil
}

// SaveCandles 批量写入回放 K 线，重复的 (symbol, interval, open_time) 跳过。
func (s *SqliteStore) SaveCandles(ctx context.Context, symbol, interval string, candles []market.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	interval = strings.ToLower(strings.TrimSpace(interval))
	recs := make([]model.KlineModel, 0, len(candles))
	for _, c := range candles {
		recs = append(recs, model.KlineModel{
			Symbol:   symbol,
			Interval: interval,
			OpenTime: c.OpenTime,
			CloseAt:  c.CloseTime,
			Open:     c.Open,
			High:     c.High,
			Low:      c.Low,
			Close:    c.Close,
			Volume:   c.Volume,
			Trades:   c.Trades,
		})
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(recs, 500).Error
}

// LoadCandles 按开盘时间升序读出回放 K 线。
func (s *SqliteStore) LoadCandles(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	if limit <= 0 {
		limit = 100000
	}
	var recs []model.KlineModel
	err := s.db.WithContext(ctx).
		Where("symbol = ? AND interval = ?", strings.ToUpper(strings.TrimSpace(symbol)), strings.ToLower(strings.TrimSpace(interval))).
		Order("open_time ASC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	out := make([]market.Candle, 0, len(recs))
	for _, r := range recs {
		out = append(out, market.Candle{
			OpenTime:  r.OpenTime,
			CloseTime: r.CloseAt,
			Open:      r.Open,
			High:      r.High,
			Low:       r.Low,
			Close:     r.Close,
			Volume:    r.Volume,
			Trades:    r.Trades,
		})
	}
	return out, nil
}

func (s *SqliteStore) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
