package api

import (
	"bytes"
	"fmt"
	"math"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/fibretrace/internal/db"
)

// viridisColors is the colour ramp shared by the report charts.
var viridisColors = []string{
	"#440154", "#482777", "#3e4989", "#31688e", "#26828e",
	"#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725",
}

const reportHistogramBins = 20

// showRunReport renders an HTML report for a run: a streamline length
// histogram and an endpoint scatter, both via go-echarts.
func (s *Server) showRunReport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	run, err := s.db.GetRun(id)
	if err != nil {
		s.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("Run not found: %v", err))
		return
	}

	lengths, err := s.db.LengthsForRun(id)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to load lengths: %v", err))
		return
	}
	if len(lengths) == 0 {
		s.writeJSONError(w, http.StatusNotFound, "Run has no streamlines")
		return
	}

	records, err := s.db.StreamlinesForRun(id)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to load streamlines: %v", err))
		return
	}

	page := components.NewPage()
	page.AddCharts(lengthHistogram(run.RunID, run.Mode, lengths))
	page.AddCharts(endpointScatter(run.RunID, records))

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to render report: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// lengthHistogram buckets streamline lengths into a fixed-width bar chart.
func lengthHistogram(runID, mode string, lengths []float64) *charts.Bar {
	lo, hi := lengths[0], lengths[0]
	for _, l := range lengths {
		lo = math.Min(lo, l)
		hi = math.Max(hi, l)
	}
	width := (hi - lo) / reportHistogramBins
	if width == 0 {
		width = 1
	}

	counts := make([]int, reportHistogramBins)
	for _, l := range lengths {
		bin := int((l - lo) / width)
		if bin >= reportHistogramBins {
			bin = reportHistogramBins - 1
		}
		counts[bin]++
	}

	x := make([]string, reportHistogramBins)
	y := make([]opts.BarData, reportHistogramBins)
	for i := range counts {
		x[i] = fmt.Sprintf("%.1f", lo+(float64(i)+0.5)*width)
		y[i] = opts.BarData{Value: counts[i]}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Streamline Lengths",
			Subtitle: fmt.Sprintf("run=%s mode=%s n=%d", runID, mode, len(lengths)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Length (mm)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Count"}),
	)
	bar.SetXAxis(x).AddSeries("lengths", y)
	return bar
}

// endpointScatter plots streamline endpoints in the XY plane, coloured by
// line length.
func endpointScatter(runID string, records []db.StreamlineRecord) *charts.Scatter {
	data := make([]opts.ScatterData, 0, 2*len(records))
	maxAbs := 0.0
	maxLen := 0.0
	for _, rec := range records {
		if len(rec.Line) == 0 {
			continue
		}
		first, last := rec.Line.Endpoints()
		for _, p := range []r3.Vec{first, last} {
			maxAbs = math.Max(maxAbs, math.Max(math.Abs(p.X), math.Abs(p.Y)))
			data = append(data, opts.ScatterData{Value: []interface{}{p.X, p.Y, rec.Length}})
		}
		maxLen = math.Max(maxLen, rec.Length)
	}

	pad := maxAbs * 1.05
	if pad == 0 {
		pad = 1.0
	}
	if maxLen == 0 {
		maxLen = 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Streamline Endpoints",
			Subtitle: fmt.Sprintf("run=%s points=%d", runID, len(data)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: 0, Max: pad, Name: "X (mm)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: pad, Name: "Y (mm)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxLen),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: viridisColors},
		}),
	)
	scatter.AddSeries("endpoints", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))
	return scatter
}
