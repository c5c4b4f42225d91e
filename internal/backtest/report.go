package backtest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// WriteReport 渲染双账本权益曲线为单页 HTML，返回文件路径。
func WriteReport(res *Result, dir string) (string, error) {
	if res == nil {
		return "", fmt.Errorf("nil result")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: fmt.Sprintf("%s 权益曲线", res.Instance),
			Subtitle: fmt.Sprintf("收益率 %.2f%% / 最大回撤 %.2f%% / 胜率 %.2f%% / %d 笔成交",
				res.Stats.ReturnPct*100, res.Stats.MaxDrawdownPct*100, res.Stats.WinRate*100, res.Stats.Trades),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Top: "5%"}),
	)

	axis := make([]string, 0, len(res.Equity))
	realPts := make([]opts.LineData, 0, len(res.Equity))
	virtualPts := make([]opts.LineData, 0, len(res.Equity))
	for _, pt := range res.Equity {
		axis = append(axis, time.UnixMilli(pt.Timestamp).UTC().Format("2006-01-02 15:04"))
		realPts = append(realPts, opts.LineData{Value: pt.Real})
		virtualPts = append(virtualPts, opts.LineData{Value: pt.Virtual})
	}
	line.SetXAxis(axis)
	line.AddSeries("实盘账本", realPts, charts.WithLineStyleOpts(opts.LineStyle{Width: 2}))
	line.AddSeries("虚拟账本", virtualPts, charts.WithLineStyleOpts(opts.LineStyle{Width: 2}))

	page := components.NewPage()
	page.AddCharts(line)

	name := fmt.Sprintf("%s-%s.html", strings.ReplaceAll(res.Instance, "/", "-"), res.RunID)
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := page.Render(f); err != nil {
		return "", err
	}
	return path, nil
}
