package report

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/banshee-data/handwarp/internal/db"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// ErrNoTicks is returned when a run has no tick records to draw.
var ErrNoTicks = errors.New("no tick records")

// ChartOptions configures RenderOffsetChart.
type ChartOptions struct {
	Title string
	// AssetsHost overrides the echarts asset location; empty uses the
	// go-echarts CDN.
	AssetsHost string
	// Stride draws every Stride-th frame. Values below 1 draw every frame.
	Stride int
}

// RenderOffsetChart writes an HTML line chart of the offset magnitude in
// millimetres per frame, with the redirecting state on a second axis.
func RenderOffsetChart(w io.Writer, ticks []db.TickRow, o ChartOptions) error {
	if len(ticks) == 0 {
		return ErrNoTicks
	}
	stride := o.Stride
	if stride < 1 {
		stride = 1
	}
	title := o.Title
	if title == "" {
		title = "Redirection offset"
	}

	n := (len(ticks) + stride - 1) / stride
	frames := make([]string, 0, n)
	offsets := make([]opts.LineData, 0, n)
	redirecting := make([]opts.LineData, 0, n)
	for i := 0; i < len(ticks); i += stride {
		t := ticks[i]
		frames = append(frames, strconv.FormatUint(t.Frame, 10))
		offsets = append(offsets, opts.LineData{Value: t.OffsetMagnitude * 1000})
		on := 0
		if t.Redirecting {
			on = 1
		}
		redirecting = append(redirecting, opts.LineData{Value: on})
	}

	init := opts.Initialization{PageTitle: title, Width: "100%", Height: "600px"}
	if o.AssetsHost != "" {
		init.AssetsHost = o.AssetsHost
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(init),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("frames=%d stride=%d", len(ticks), stride)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Frame", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Offset (mm)"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
	)
	line.ExtendYAxis(opts.YAxis{Name: "Redirecting", Min: 0, Max: 1})

	line.SetXAxis(frames).
		AddSeries("offset", offsets, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)})).
		AddSeries("redirecting", redirecting, charts.WithLineChartOpts(opts.LineChart{YAxisIndex: 1, ShowSymbol: opts.Bool(false)}))

	return line.Render(w)
}
