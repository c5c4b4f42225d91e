package scheduler

import (
	"time"

	"sable/internal/market"
)

// 收盘后的宽限期：时钟略偏时刚收盘的 K 线先不消费，等下一次拉取。
const DefaultKlineGrace = 10 * time.Second

// DropUnclosedKline 去掉序列尾部仍在进行中的 K 线。
// REST 历史接口的最后一根往往是当前未收盘的 K 线，直接消费会引入重绘。
func DropUnclosedKline(klines []market.Candle, interval time.Duration) []market.Candle {
	return dropUnclosedKlineAt(klines, interval, time.Now().UTC(), DefaultKlineGrace)
}

// dropUnclosedKlineAt 以显式时钟判定，时间戳均为毫秒。
func dropUnclosedKlineAt(klines []market.Candle, interval time.Duration, now time.Time, grace time.Duration) []market.Candle {
	n := len(klines)
	if n == 0 || interval <= 0 {
		return klines
	}
	if grace < 0 {
		grace = 0
	}
	last := klines[n-1]
	if last.OpenTime <= 0 {
		return klines
	}
	settledAt := last.OpenTime + interval.Milliseconds() + grace.Milliseconds()
	if now.UnixMilli() < settledAt {
		return klines[:n-1]
	}
	return klines
}
