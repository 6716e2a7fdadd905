package sweep

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/serialscope/internal/response"
)

// ErrNoResults is returned when there is nothing to render.
var ErrNoResults = errors.New("no sweep results")

// PhasePlotPath returns the phase plot file that SavePlot writes next to
// the magnitude plot at path.
func PhasePlotPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_phase" + ext
}

// SavePlot renders the Bode magnitude plot to path and the phase plot to
// PhasePlotPath(path). The frequency axis is logarithmic. Points at
// non-positive frequencies and gains at the floor sentinel are omitted.
func SavePlot(path, title string, results []Result) error {
	if len(results) == 0 {
		return ErrNoResults
	}

	var gainMeas, gainTheo, phaseMeas, phaseTheo plotter.XYs
	for _, r := range results {
		if r.FrequencyHz <= 0 {
			continue
		}
		if r.GainDBMeasured != response.GainFloorDB {
			gainMeas = append(gainMeas, plotter.XY{X: r.FrequencyHz, Y: r.GainDBMeasured})
		}
		if r.GainDBTheoretical != response.GainFloorDB {
			gainTheo = append(gainTheo, plotter.XY{X: r.FrequencyHz, Y: r.GainDBTheoretical})
		}
		phaseMeas = append(phaseMeas, plotter.XY{X: r.FrequencyHz, Y: r.PhaseDegMeasured})
		phaseTheo = append(phaseTheo, plotter.XY{X: r.FrequencyHz, Y: r.PhaseDegTheoretical})
	}
	if len(phaseMeas) == 0 {
		return ErrNoResults
	}

	pGain, err := bodePlot(title+" - Magnitude", "Gain (dB)", gainMeas, gainTheo)
	if err != nil {
		return fmt.Errorf("build magnitude plot: %w", err)
	}
	if err := pGain.Save(10*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("save magnitude plot: %w", err)
	}

	pPhase, err := bodePlot(title+" - Phase", "Phase (deg)", phaseMeas, phaseTheo)
	if err != nil {
		return fmt.Errorf("build phase plot: %w", err)
	}
	if err := pPhase.Save(10*vg.Inch, 5*vg.Inch, PhasePlotPath(path)); err != nil {
		return fmt.Errorf("save phase plot: %w", err)
	}
	return nil
}

func bodePlot(title, yLabel string, measured, theoretical plotter.XYs) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Frequency (Hz)"
	p.Y.Label.Text = yLabel
	p.X.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.LogTicks{Prec: -1}
	p.Add(plotter.NewGrid())

	if len(measured) > 0 {
		line, points, err := plotter.NewLinePoints(measured)
		if err != nil {
			return nil, err
		}
		line.Color = plotutil.Color(0)
		line.Width = vg.Points(1)
		points.Color = plotutil.Color(0)
		points.Shape = draw.CircleGlyph{}
		p.Add(line, points)
		p.Legend.Add("Measured", line, points)
	}
	if len(theoretical) > 0 {
		line, points, err := plotter.NewLinePoints(theoretical)
		if err != nil {
			return nil, err
		}
		line.Color = plotutil.Color(1)
		line.Width = vg.Points(1)
		line.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		points.Color = plotutil.Color(1)
		points.Shape = draw.CrossGlyph{}
		p.Add(line, points)
		p.Legend.Add("Theoretical", line, points)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}
