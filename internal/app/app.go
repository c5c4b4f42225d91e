package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"sable/internal/backtest"
	"sable/internal/config"
	"sable/internal/engine"
	"sable/internal/gateway/binance"
	"sable/internal/logger"
	"sable/internal/market"
	"sable/internal/notifier"
	"sable/internal/store/sqlite"
	httpapi "sable/internal/transport/http"
	"sable/internal/types"
)

// App 负责应用级编排：加载档案→初始化依赖→启动数据流与状态接口。
type App struct {
	cfg      *config.Config
	profiles []config.StrategyProfile
	manager  *engine.Manager
	store    *sqlite.SqliteStore
	source   market.Source
	httpSrv  *httpapi.Server
	feeders  []*feeder
}

// feeder 把某个实例的 K 线流折算成快照流。
type feeder struct {
	inst     *engine.Instance
	builder  *market.SnapshotBuilder
	symbol   string
	interval string
}

// NewApp 根据配置构建应用对象（不启动）。
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)

	profiles, err := config.LoadProfiles(cfg.Trading.ProfilesPath)
	if err != nil {
		return nil, fmt.Errorf("loading strategy profiles failed: %w", err)
	}

	a := &App{cfg: cfg, profiles: profiles}

	if cfg.Store.Enabled {
		store, err := sqlite.NewSqliteStore(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("opening trade store failed: %w", err)
		}
		a.store = store
	}

	src := cfg.Market.ResolveActiveSource()
	source, err := binance.New(binance.Config{
		RESTBaseURL:  src.RESTBaseURL,
		ProxyEnabled: src.Proxy.Enabled,
		RESTProxyURL: src.Proxy.RESTURL,
	})
	if err != nil {
		return nil, fmt.Errorf("building market source failed: %w", err)
	}
	a.source = source

	opts := engine.Options{
		MinEntryCapital: cfg.Trading.MinEntryCapital,
		Actions:         logAction,
	}
	if a.store != nil {
		opts.Recorder = a.store
	}
	if cfg.Notify.Telegram.Enabled {
		opts.Notifier = notifier.NewTelegram(cfg.Notify.Telegram.BotToken, cfg.Notify.Telegram.ChatID)
	}
	manager, err := engine.NewManager(cfg.Trading.TotalCapital, profiles, opts)
	if err != nil {
		return nil, err
	}
	a.manager = manager

	for _, p := range profiles {
		if !p.Enabled {
			continue
		}
		inst, ok := manager.Instance(p.Key())
		if !ok {
			continue
		}
		a.feeders = append(a.feeders, &feeder{
			inst:     inst,
			builder:  market.NewSnapshotBuilder(p, cfg.Market.Lookback),
			symbol:   strings.ToUpper(strings.TrimSpace(p.Symbol)),
			interval: strings.ToLower(strings.TrimSpace(p.Interval)),
		})
	}

	httpSrv, err := httpapi.NewServer(httpapi.ServerConfig{
		Addr:    cfg.App.HTTPAddr,
		Manager: manager,
		Store:   a.store,
		Source:  a.source,
	})
	if err != nil {
		return nil, err
	}
	a.httpSrv = httpSrv
	return a, nil
}

// Run 启动实时服务：预热指标窗口、订阅收盘 K 线、开放状态接口。
// ctx 取消后实例与外设按序收尾。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if err := a.preheat(ctx); err != nil {
		return err
	}

	a.manager.StartAll()
	defer a.manager.StopAll()
	defer a.source.Close()
	if a.store != nil {
		defer a.store.Close()
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := a.httpSrv.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		return a.feedLoop(ctx)
	})
	return group.Wait()
}

// preheat 为每个实例灌入历史 K 线，让指标窗口在首个实时快照前就绪。
func (a *App) preheat(ctx context.Context) error {
	lookback := a.cfg.Market.Lookback
	if lookback <= 0 {
		lookback = 800
	}
	for _, f := range a.feeders {
		hctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		history, err := a.source.FetchHistory(hctx, f.symbol, f.interval, lookback)
		cancel()
		if err != nil {
			return fmt.Errorf("preheating %s %s failed: %w", f.symbol, f.interval, err)
		}
		f.builder.Preheat(history)
		logger.Infof("[app] %s 预热 %d 根 K 线，指标就绪=%v", f.inst.Key(), len(history), f.builder.Ready())
	}
	return nil
}

func (a *App) feedLoop(ctx context.Context) error {
	symbols := make([]string, 0, len(a.feeders))
	intervals := make([]string, 0, len(a.feeders))
	for _, f := range a.feeders {
		symbols = appendUnique(symbols, f.symbol)
		intervals = appendUnique(intervals, f.interval)
	}
	events, err := a.source.Subscribe(ctx, symbols, intervals, market.SubscribeOptions{
		OnConnect:    func() { logger.Infof("[app] 行情订阅已连接") },
		OnDisconnect: func(err error) { logger.Warnf("[app] 行情订阅断开: %v", err) },
	})
	if err != nil {
		return fmt.Errorf("subscribing candles failed: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return fmt.Errorf("candle stream closed")
			}
			a.dispatch(ev)
		}
	}
}

// dispatch 同一根 K 线可能喂给同一交易对的多个实例（多空镜像各算各的指标）。
func (a *App) dispatch(ev market.CandleEvent) {
	for _, f := range a.feeders {
		if f.symbol != ev.Symbol || f.interval != ev.Interval {
			continue
		}
		snap, ok := f.builder.Push(ev.Candle)
		if !ok {
			continue
		}
		if err := f.inst.Submit(snap); err != nil {
			logger.Warnf("[app] 快照投递失败 %s: %v", f.inst.Key(), err)
		}
	}
}

// RunBacktest 对每个启用档案做一次历史回放并输出 HTML 报告。
// K 线优先读本地仓库，缺失时从交易所拉取并落盘，保证重复回放可离线。
func (a *App) RunBacktest(ctx context.Context) error {
	if a.store == nil {
		return fmt.Errorf("backtest requires store.enabled")
	}
	enabled := make([]config.StrategyProfile, 0, len(a.profiles))
	for _, p := range a.profiles {
		if p.Enabled {
			enabled = append(enabled, p)
		}
	}
	shares, err := engine.PartitionCapital(a.cfg.Trading.TotalCapital, enabled)
	if err != nil {
		return err
	}

	for i, p := range enabled {
		candles, err := a.loadBacktestCandles(ctx, p)
		if err != nil {
			return err
		}
		res, err := backtest.Run(backtest.Options{
			Profile:         p,
			Candles:         candles,
			InitialCapital:  shares[i],
			MinEntryCapital: a.cfg.Trading.MinEntryCapital,
			Lookback:        a.cfg.Market.Lookback,
		})
		if err != nil {
			return fmt.Errorf("backtest %s failed: %w", p.Key(), err)
		}
		path, err := backtest.WriteReport(res, a.cfg.Backtest.ReportDir)
		if err != nil {
			return fmt.Errorf("writing report for %s failed: %w", p.Key(), err)
		}
		logger.Infof("[app] %s 回放报告: %s", p.Key(), path)
	}
	return nil
}

func (a *App) loadBacktestCandles(ctx context.Context, p config.StrategyProfile) ([]market.Candle, error) {
	candles, err := a.store.LoadCandles(ctx, p.Symbol, p.Interval, 0)
	if err != nil {
		return nil, err
	}
	if len(candles) > 0 {
		return candles, nil
	}
	lookback := a.cfg.Market.Lookback
	if lookback <= 0 {
		lookback = 1500
	}
	candles, err = a.source.FetchHistory(ctx, p.Symbol, p.Interval, lookback)
	if err != nil {
		return nil, fmt.Errorf("fetching candles for %s failed: %w", p.Key(), err)
	}
	if err := a.store.SaveCandles(ctx, p.Symbol, p.Interval, candles); err != nil {
		return nil, err
	}
	return candles, nil
}

// Manager 暴露引擎管理器（测试与回放用）。
func (a *App) Manager() *engine.Manager {
	if a == nil {
		return nil
	}
	return a.manager
}

func logAction(act types.Action) {
	logger.Infof("[action] %s %s %s size=%.6f lev=%.0f reason=%s",
		act.Type, act.Symbol, act.Side, act.Size, act.Leverage, act.Reason)
}

func appendUnique(target []string, val string) []string {
	for _, existing := range target {
		if existing == val {
			return target
		}
	}
	return append(target, val)
}
