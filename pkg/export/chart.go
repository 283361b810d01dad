package export

import (
	"fmt"
	"io"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kilianp07/gcal-scheduler/core/history"
	coremetrics "github.com/kilianp07/gcal-scheduler/core/metrics"
)

// WriteHistoryChart renders attendance and cost of the successful runs in recs
// as an HTML line chart.
func WriteHistoryChart(w io.Writer, recs []history.RunRecord, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Schedule history"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Week"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Attendance %"}),
	)

	var (
		xAxis      []string
		attendance []opts.LineData
		cost       []opts.LineData
	)
	for _, r := range recs {
		if r.Status != coremetrics.StatusOK {
			continue
		}
		xAxis = append(xAxis, r.RangeStart.In(loc).Format("2006-01-02"))
		pct, ok := r.Attendance.Percent()
		if !ok {
			attendance = append(attendance, opts.LineData{Value: "-"})
		} else {
			attendance = append(attendance, opts.LineData{Value: round2(pct)})
		}
		cost = append(cost, opts.LineData{Value: r.TotalCost})
	}

	line.SetXAxis(xAxis).
		AddSeries("Attendance", attendance).
		AddSeries("Total cost", cost)
	if err := line.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
