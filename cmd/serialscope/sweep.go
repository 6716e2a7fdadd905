package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/serialscope/internal/config"
	"github.com/banshee-data/serialscope/internal/framer"
	"github.com/banshee-data/serialscope/internal/monitoring"
	"github.com/banshee-data/serialscope/internal/response"
	"github.com/banshee-data/serialscope/internal/serialmux"
	"github.com/banshee-data/serialscope/internal/sweep"
)

func (a *app) runSweep(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("sweep", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	adcOpts := addADCFlags(fs, cfg)
	genPort := fs.String("esp32", cfg.GetGeneratorPort(), "Signal generator serial port")
	genBaud := fs.Int("esp32-baud", cfg.GetBaudRate(), "Signal generator baud rate")
	nsamples := fs.Int("nsamples", cfg.GetSamplesPerFrequency(), "Frames measured at each frequency")
	settle := fs.Duration("settle", cfg.GetSettle(), "Wait after each frequency change")
	frameTimeout := fs.Duration("frame-timeout", cfg.GetFrameTimeout(), "Abort when no frame arrives for this long")
	fstart := fs.Float64("fstart", cfg.GetStartHz(), "First frequency in Hz")
	fend := fs.Float64("fend", cfg.GetEndHz(), "Last frequency in Hz")
	fstep := fs.Float64("fstep", cfg.GetStepHz(), "Frequency step in Hz")
	rangeSpec := fs.String("range", "", "Frequency plan as start:end:step, overriding -fstart/-fend/-fstep")
	resistance := fs.Float64("r", cfg.GetResistanceOhms(), "Filter resistance in ohms")
	capacitance := fs.Float64("c", cfg.GetCapacitanceFarads(), "Filter capacitance in farads")
	out := fs.String("out", cfg.GetOutputCSV(), "CSV results path")
	plotPath := fs.String("plot", cfg.GetPlotPath(), "Write Bode PNGs to this path")
	chartPath := fs.String("chart", cfg.GetChartPath(), "Write an interactive HTML Bode chart to this path")
	debugListen := fs.String("debug-listen", cfg.GetDebugListen(), "Serve /debug routes on this address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	start, end, step := *fstart, *fend, *fstep
	if *rangeSpec != "" {
		rs, err := sweep.ParseRangeSpec(*rangeSpec)
		if err != nil {
			return err
		}
		start, end, step = rs.Start, rs.End, rs.Step
	}
	freqs, err := sweep.Plan(start, end, step)
	if err != nil {
		return err
	}

	adcPort, err := a.openADC(adcOpts)
	if err != nil {
		return err
	}
	defer adcPort.Close()

	gp, err := a.open(*genPort, serialmux.OpenOptions{
		PortOptions: serialmux.PortOptions{BaudRate: *genBaud},
		ResetDelay:  *adcOpts.resetDelay,
	})
	if err != nil {
		return fmt.Errorf("failed to open generator port: %w", err)
	}
	gen := serialmux.NewSerialMux[serialmux.Port](gp)
	defer gen.Close()

	_, replies := gen.Subscribe()
	go func() {
		for line := range replies {
			monitoring.Logf("generator: %s", line)
		}
	}()
	go func() {
		if err := gen.Monitor(ctx); err != nil && !errors.Is(err, context.Canceled) {
			monitoring.Logf("generator port: %v", err)
		}
	}()

	runner := sweep.NewRunner(gen, framer.New(adcPort), sweep.Options{
		Frequencies:         freqs,
		SampleRateHz:        *adcOpts.sampleRate,
		SamplesPerFrequency: *nsamples,
		Settle:              *settle,
		FrameTimeout:        *frameTimeout,
		Filter:              response.HighPass{ResistanceOhms: *resistance, CapacitanceFarads: *capacitance},
		ADC:                 adcOpts.adc(),
		Clock:               a.clock,
	})

	if *debugListen != "" {
		stop := a.serveDebug(*debugListen, nil, runner.AttachAdminRoutes, gen.AttachAdminRoutes)
		defer stop()
	}

	results, runErr := runner.Run(ctx)

	// Partial results are saved before the run error is reported.
	if err := sweep.SaveCSV(*out, results); err != nil {
		return errors.Join(runErr, err)
	}
	fmt.Fprintf(a.stdout, "wrote %d of %d frequencies to %s (run %s)\n", len(results), len(freqs), *out, runner.RunID)

	title := fmt.Sprintf("High-pass response, run %s", runner.RunID)
	if *plotPath != "" && len(results) > 0 {
		if err := sweep.SavePlot(*plotPath, title, results); err != nil {
			return errors.Join(runErr, err)
		}
		fmt.Fprintf(a.stdout, "wrote %s and %s\n", *plotPath, sweep.PhasePlotPath(*plotPath))
	}
	if *chartPath != "" && len(results) > 0 {
		if err := writeChartFile(*chartPath, title, results); err != nil {
			return errors.Join(runErr, err)
		}
		fmt.Fprintf(a.stdout, "wrote %s\n", *chartPath)
	}

	return ignoreCanceled(runErr)
}

func writeChartFile(path, title string, results []sweep.Result) (err error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create chart directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return sweep.WriteChart(f, title, results)
}
