package webd

import (
	"bytes"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/rotblauer/posacc/aggregate"
)

// handleChart renders the rolling average error of each tracked entity as a bar chart.
func (s *WebDaemon) handleChart(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot.Load()
	if snap == nil {
		snap = &aggregate.Snapshot{}
	}

	ids := make([]string, 0, len(snap.Vehicles))
	rolling := make([]opts.BarData, 0, len(snap.Vehicles))
	mean := make([]opts.BarData, 0, len(snap.Vehicles))
	for _, v := range snap.Vehicles {
		ids = append(ids, v.EntityID.String())
		rolling = append(rolling, opts.BarData{Value: v.RollingAverage})
		mean = append(mean, opts.BarData{Value: v.MeanError})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Position accuracy",
			Width:     "1200px",
			Height:    "600px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Position error by vehicle",
			Subtitle: "metres; rolling average and session mean",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(ids).
		AddSeries("Rolling average", rolling).
		AddSeries("Mean", mean)

	page := components.NewPage()
	page.PageTitle = "Position accuracy"
	page.AddCharts(bar)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		s.logger.Error("Failed to render chart", "error", err)
		http.Error(w, "Failed to render chart", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
