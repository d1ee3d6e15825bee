package chart

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/dbscan-sweep/internal/cluster"
	"github.com/banshee-data/dbscan-sweep/internal/dataset"
)

const (
	pngWidth  = 8 * vg.Inch
	pngHeight = 6 * vg.Inch
)

var noiseRGBA = color.RGBA{R: 0x9e, G: 0x9e, B: 0x9e, A: 0xff}

// newAssignmentPlot builds a gonum scatter of one assignment with one colour
// per cluster and noise in grey.
func newAssignmentPlot(ds *dataset.Dataset, a *cluster.Assignment) (*plot.Plot, error) {
	if err := checkAssignment(ds, a); err != nil {
		return nil, err
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("DBSCAN %s", comboTitle(a.Params))
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"
	p.Add(plotter.NewGrid())

	groups := make([]plotter.XYs, a.NumClusters)
	var noise plotter.XYs
	for i, label := range a.Labels {
		x, y := xy(ds.Points[i].Coords)
		if label == cluster.Noise {
			noise = append(noise, plotter.XY{X: x, Y: y})
			continue
		}
		groups[label] = append(groups[label], plotter.XY{X: x, Y: y})
	}

	for k, pts := range groups {
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, fmt.Errorf("cluster %d scatter: %w", k, err)
		}
		s.GlyphStyle.Color = plotutil.Color(k)
		s.GlyphStyle.Shape = plotutil.Shape(k)
		s.GlyphStyle.Radius = vg.Points(3)
		p.Add(s)
		p.Legend.Add(SeriesName(k), s)
	}
	if len(noise) > 0 {
		s, err := plotter.NewScatter(noise)
		if err != nil {
			return nil, fmt.Errorf("noise scatter: %w", err)
		}
		s.GlyphStyle.Color = noiseRGBA
		s.GlyphStyle.Radius = vg.Points(2)
		p.Add(s)
		p.Legend.Add(NoiseSeries, s)
	}
	return p, nil
}

// WriteAssignmentPNG writes a PNG scatter of one assignment to w.
func WriteAssignmentPNG(w io.Writer, ds *dataset.Dataset, a *cluster.Assignment) error {
	p, err := newAssignmentPlot(ds, a)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(pngWidth, pngHeight, "png")
	if err != nil {
		return fmt.Errorf("png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}

// SaveAssignmentPNG writes a PNG scatter of one assignment to path.
func SaveAssignmentPNG(path string, ds *dataset.Dataset, a *cluster.Assignment) error {
	p, err := newAssignmentPlot(ds, a)
	if err != nil {
		return err
	}
	if err := p.Save(pngWidth, pngHeight, path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}
