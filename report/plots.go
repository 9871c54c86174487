package report

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"github.com/rotblauer/posacc/conceptual"
	"github.com/rotblauer/posacc/types/sample"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

const histogramBins = 50

var (
	colorRendered  = color.RGBA{B: 200, A: 255}
	colorReference = color.RGBA{R: 200, A: 255}
)

// WritePlots renders the analysis charts as PNG files in dir.
// The trajectory chart is drawn for vehicle, or for the first vehicle in the log when empty.
// It returns the written paths.
func WritePlots(rows []*sample.AccuracySample, dir string, vehicle conceptual.EntityID) ([]string, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("no rows to plot")
	}
	if err := os.MkdirAll(dir, 0770); err != nil {
		return nil, err
	}
	if vehicle.Empty() {
		vehicle = rows[0].EntityID
	}

	var written []string
	save := func(name string, fn func(string) error) error {
		p := filepath.Join(dir, name)
		if err := fn(p); err != nil {
			return fmt.Errorf("plot %s: %w", name, err)
		}
		written = append(written, p)
		return nil
	}

	if err := save("position_error_vs_time.png", func(p string) error {
		return plotErrorOverTime(rows, p)
	}); err != nil {
		return written, err
	}
	if err := save("error_distributions.png", func(p string) error {
		return plotDistributions(rows, p)
	}); err != nil {
		return written, err
	}
	if err := save(fmt.Sprintf("trajectory_comparison_%s.png", filepath.Base(vehicle.String())), func(p string) error {
		return plotTrajectory(rows, vehicle, p)
	}); err != nil {
		return written, err
	}
	if err := save("lateral_vs_longitudinal.png", func(p string) error {
		return plotLateralLongitudinal(rows, p)
	}); err != nil {
		return written, err
	}
	return written, nil
}

// groupXYs groups points per vehicle in first-sighting order.
func groupXYs(rows []*sample.AccuracySample, xy func(*sample.AccuracySample) plotter.XY) ([]conceptual.EntityID, map[conceptual.EntityID]plotter.XYs) {
	var order []conceptual.EntityID
	groups := map[conceptual.EntityID]plotter.XYs{}
	for _, r := range rows {
		if _, ok := groups[r.EntityID]; !ok {
			order = append(order, r.EntityID)
		}
		groups[r.EntityID] = append(groups[r.EntityID], xy(r))
	}
	return order, groups
}

func plotErrorOverTime(rows []*sample.AccuracySample, file string) error {
	p := plot.New()
	p.Title.Text = "Position Tracking Error Over Time"
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Position Error (m)"
	p.Add(plotter.NewGrid())

	order, groups := groupXYs(rows, func(r *sample.AccuracySample) plotter.XY {
		return plotter.XY{X: r.Timestamp, Y: r.PositionError}
	})
	for i, id := range order {
		l, err := plotter.NewLine(groups[id])
		if err != nil {
			return err
		}
		l.Color = plotutil.Color(i)
		l.Width = vg.Points(1)
		p.Add(l)
		p.Legend.Add(id.String(), l)
	}
	p.Legend.Top = true
	p.Legend.Left = false
	return p.Save(14*vg.Inch, 6*vg.Inch, file)
}

func histogram(title, xlabel string, values plotter.Values, c color.Color) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = "Frequency"
	h, err := plotter.NewHist(values, histogramBins)
	if err != nil {
		return nil, err
	}
	h.FillColor = c
	p.Add(plotter.NewGrid(), h)
	return p, nil
}

func plotDistributions(rows []*sample.AccuracySample, file string) error {
	pos := make(plotter.Values, len(rows))
	lat := make(plotter.Values, len(rows))
	long := make(plotter.Values, len(rows))
	for i, r := range rows {
		pos[i], lat[i], long[i] = r.PositionError, r.LateralError, r.LongitudinalError
	}
	mean := Analyze(rows).PositionError.Mean

	pPos, err := histogram(fmt.Sprintf("Position Error Distribution (mean %.3fm)", mean), "Position Error (m)", pos, color.RGBA{B: 255, A: 180})
	if err != nil {
		return err
	}
	pLat, err := histogram("Lateral Error Distribution", "Lateral Error (m)", lat, color.RGBA{G: 160, A: 180})
	if err != nil {
		return err
	}
	pLong, err := histogram("Longitudinal Error Distribution", "Longitudinal Error (m)", long, color.RGBA{R: 255, G: 140, A: 180})
	if err != nil {
		return err
	}

	plots := [][]*plot.Plot{{pPos, pLat, pLong}}
	img := vgimg.New(15*vg.Inch, 4*vg.Inch)
	dc := draw.New(img)
	canvases := plot.Align(plots, draw.Tiles{Rows: 1, Cols: 3, PadX: vg.Millimeter, PadY: vg.Millimeter}, dc)
	for j := range plots[0] {
		plots[0][j].Draw(canvases[0][j])
	}

	f, err := os.Create(file)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		return err
	}
	return f.Close()
}

func plotTrajectory(rows []*sample.AccuracySample, vehicle conceptual.EntityID, file string) error {
	var rendered, reference plotter.XYs
	for _, r := range rows {
		if r.EntityID != vehicle {
			continue
		}
		rendered = append(rendered, plotter.XY{X: r.Rendered.X, Y: r.Rendered.Z})
		reference = append(reference, plotter.XY{X: r.Reference.X, Y: r.Reference.Z})
	}
	if len(rendered) == 0 {
		return fmt.Errorf("no rows for vehicle %s", vehicle)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("2D Trajectory Comparison - %s", vehicle)
	p.X.Label.Text = "X Position (m)"
	p.Y.Label.Text = "Z Position (m)"
	p.Add(plotter.NewGrid())

	lr, err := plotter.NewLine(rendered)
	if err != nil {
		return err
	}
	lr.Color = colorRendered
	lr.Width = vg.Points(2)

	lg, err := plotter.NewLine(reference)
	if err != nil {
		return err
	}
	lg.Color = colorReference
	lg.Width = vg.Points(2)
	lg.Dashes = []vg.Length{vg.Points(6), vg.Points(3)}

	ends, err := plotter.NewScatter(plotter.XYs{rendered[0], rendered[len(rendered)-1]})
	if err != nil {
		return err
	}
	ends.GlyphStyle.Shape = draw.CircleGlyph{}
	ends.GlyphStyle.Radius = vg.Points(5)

	p.Add(lr, lg, ends)
	p.Legend.Add("Rendered", lr)
	p.Legend.Add("Reference", lg)
	p.Legend.Add("Start/End", ends)
	p.Legend.Top = true
	return p.Save(10*vg.Inch, 10*vg.Inch, file)
}

func plotLateralLongitudinal(rows []*sample.AccuracySample, file string) error {
	pts := make(plotter.XYs, len(rows))
	for i, r := range rows {
		pts[i] = plotter.XY{X: r.LateralError, Y: r.LongitudinalError}
	}
	p := plot.New()
	p.Title.Text = "Lateral vs Longitudinal Error"
	p.X.Label.Text = "Lateral Error (m)"
	p.Y.Label.Text = "Longitudinal Error (m)"
	p.Add(plotter.NewGrid())

	s, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	s.GlyphStyle.Radius = vg.Points(1.5)
	s.GlyphStyle.Color = color.RGBA{R: 68, G: 1, B: 84, A: 128}
	p.Add(s)
	return p.Save(10*vg.Inch, 10*vg.Inch, file)
}
