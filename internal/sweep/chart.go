package sweep

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/serialscope/internal/response"
)

// WriteChart renders an interactive HTML page with the measured and
// theoretical gain and phase against a logarithmic frequency axis.
func WriteChart(w io.Writer, title string, results []Result) error {
	if len(results) == 0 {
		return ErrNoResults
	}

	var gainMeas, gainTheo, phaseMeas, phaseTheo []opts.ScatterData
	for _, r := range results {
		if r.FrequencyHz <= 0 {
			continue
		}
		if r.GainDBMeasured != response.GainFloorDB {
			gainMeas = append(gainMeas, opts.ScatterData{Value: []interface{}{r.FrequencyHz, r.GainDBMeasured}})
		}
		if r.GainDBTheoretical != response.GainFloorDB {
			gainTheo = append(gainTheo, opts.ScatterData{Value: []interface{}{r.FrequencyHz, r.GainDBTheoretical}})
		}
		phaseMeas = append(phaseMeas, opts.ScatterData{Value: []interface{}{r.FrequencyHz, r.PhaseDegMeasured}})
		phaseTheo = append(phaseTheo, opts.ScatterData{Value: []interface{}{r.FrequencyHz, r.PhaseDegTheoretical}})
	}

	subtitle := fmt.Sprintf("%d frequencies, %.0f-%.0f Hz", len(results), results[0].FrequencyHz, results[len(results)-1].FrequencyHz)
	gain := bodeChart(title+" - Magnitude", subtitle, "Gain (dB)", gainMeas, gainTheo)
	phase := bodeChart(title+" - Phase", subtitle, "Phase (deg)", phaseMeas, phaseTheo)

	page := components.NewPage()
	page.AddCharts(gain, phase)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

func bodeChart(title, subtitle, yName string, measured, theoretical []opts.ScatterData) *charts.Scatter {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "1000px", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "log", Name: "Frequency (Hz)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: yName, NameLocation: "middle", NameGap: 40}),
	)
	scatter.AddSeries("Measured", measured, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))
	scatter.AddSeries("Theoretical", theoretical, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))
	return scatter
}
