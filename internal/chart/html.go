// Package chart renders cluster assignments and sweep summaries as
// interactive HTML (go-echarts) and static PNG (gonum/plot).
//
// Points are drawn on their first two coordinates. One-dimensional datasets
// are drawn on y = 0.
package chart

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/dbscan-sweep/internal/cluster"
	"github.com/banshee-data/dbscan-sweep/internal/dataset"
	"github.com/banshee-data/dbscan-sweep/internal/sweep"
)

// NoiseSeries is the series name used for noise points.
const NoiseSeries = "Noise"

// noiseColor is shared by the HTML and PNG renderings.
const noiseColor = "#9e9e9e"

// palette is cycled for cluster series in the HTML charts.
var palette = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#bcbd22", "#17becf", "#393b79",
}

// SeriesName returns the legend name of cluster k.
func SeriesName(k int) string {
	if k == cluster.Noise {
		return NoiseSeries
	}
	return fmt.Sprintf("Cluster %d", k)
}

// xy projects a point onto the chart plane.
func xy(coords []float64) (x, y float64) {
	switch len(coords) {
	case 0:
		return 0, 0
	case 1:
		return coords[0], 0
	default:
		return coords[0], coords[1]
	}
}

func checkAssignment(ds *dataset.Dataset, a *cluster.Assignment) error {
	if ds == nil || a == nil {
		return errors.New("chart: nil dataset or assignment")
	}
	if len(a.Labels) != ds.Len() {
		return fmt.Errorf("chart: assignment has %d labels for %d points", len(a.Labels), ds.Len())
	}
	return nil
}

func comboTitle(p cluster.Params) string {
	return fmt.Sprintf("eps=%s minPts=%d", sweep.FormatEps(p.Eps), p.MinPts)
}

// newAssignmentScatter builds the scatter for one assignment: one series per
// cluster in id order, then noise.
func newAssignmentScatter(ds *dataset.Dataset, a *cluster.Assignment) *charts.Scatter {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "700px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    comboTitle(a.Params),
			Subtitle: fmt.Sprintf("points=%d clusters=%d noise=%d", ds.Len(), a.NumClusters, a.NoiseCount()),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "5%"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "x", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "y", NameLocation: "middle", NameGap: 30}),
	)

	series := make([][]opts.ScatterData, a.NumClusters)
	var noise []opts.ScatterData
	for i, label := range a.Labels {
		x, y := xy(ds.Points[i].Coords)
		pt := opts.ScatterData{Name: ds.Points[i].ID, Value: []interface{}{x, y}}
		if label == cluster.Noise {
			noise = append(noise, pt)
			continue
		}
		series[label] = append(series[label], pt)
	}

	for k, data := range series {
		scatter.AddSeries(SeriesName(k), data,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: palette[k%len(palette)]}),
		)
	}
	if len(noise) > 0 {
		scatter.AddSeries(NoiseSeries, noise,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 5}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: noiseColor}),
		)
	}
	return scatter
}

// RenderAssignmentHTML writes a standalone HTML scatter of one assignment.
func RenderAssignmentHTML(w io.Writer, ds *dataset.Dataset, a *cluster.Assignment) error {
	if err := checkAssignment(ds, a); err != nil {
		return err
	}
	if err := newAssignmentScatter(ds, a).Render(w); err != nil {
		return fmt.Errorf("render scatter: %w", err)
	}
	return nil
}

// RenderSweepHTML writes one HTML page holding a bar chart of cluster and
// noise counts per successful combination, followed by a scatter per
// successful combination. Failed combinations are left out, as in the
// report.
func RenderSweepHTML(w io.Writer, ds *dataset.Dataset, results []sweep.Result) error {
	if ds == nil {
		return errors.New("chart: nil dataset")
	}

	var (
		x        []string
		clusters []opts.BarData
		noise    []opts.BarData
		scatters []components.Charter
	)
	for _, r := range results {
		if !r.OK() {
			continue
		}
		if err := checkAssignment(ds, r.Assignment); err != nil {
			return err
		}
		x = append(x, comboTitle(r.Params))
		clusters = append(clusters, opts.BarData{Value: r.Assignment.NumClusters})
		noise = append(noise, opts.BarData{Value: r.Assignment.NoiseCount()})
		scatters = append(scatters, newAssignmentScatter(ds, r.Assignment))
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "DBSCAN sweep", Subtitle: fmt.Sprintf("points=%d combinations=%d", ds.Len(), len(x))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "5%"}),
	)
	bar.SetXAxis(x).
		AddSeries("clusters", clusters, charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"})).
		AddSeries("noise", noise, charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}))

	page := components.NewPage()
	page.PageTitle = "DBSCAN sweep"
	page.AddCharts(bar)
	page.AddCharts(scatters...)

	if err := page.Render(w); err != nil {
		return fmt.Errorf("render sweep page: %w", err)
	}
	return nil
}
