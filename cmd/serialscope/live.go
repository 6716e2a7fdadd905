package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/banshee-data/serialscope/internal/capture"
	"github.com/banshee-data/serialscope/internal/config"
	"github.com/banshee-data/serialscope/internal/framer"
	"github.com/banshee-data/serialscope/internal/monitoring"
	"github.com/banshee-data/serialscope/internal/serialmux"
)

// adcFlags are shared by the commands that read the acquisition board.
type adcFlags struct {
	port        *string
	baud        *int
	readTimeout *time.Duration
	resetDelay  *time.Duration
	sampleRate  *float64
	maxCode     *int
	vref        *float64
}

func addADCFlags(fs *flag.FlagSet, cfg *config.Config) *adcFlags {
	return &adcFlags{
		port:        fs.String("arduino", cfg.GetArduinoPort(), "Acquisition board serial port"),
		baud:        fs.Int("baud", cfg.GetADCBaudRate(), "Acquisition board baud rate"),
		readTimeout: fs.Duration("read-timeout", cfg.GetReadTimeout(), "Serial read timeout (0 blocks)"),
		resetDelay:  fs.Duration("reset-delay", cfg.GetResetDelay(), "Wait for the board to reboot after opening the port"),
		sampleRate:  fs.Float64("fs", cfg.GetSampleRateHz(), "Board sample rate in Hz"),
		maxCode:     fs.Int("adc-max-code", cfg.GetADCMaxCode(), "Full-scale ADC code"),
		vref:        fs.Float64("adc-vref", cfg.GetADCVRef(), "ADC reference voltage"),
	}
}

func (f *adcFlags) adc() framer.ADC {
	return framer.ADC{MaxCode: float64(*f.maxCode), VRef: *f.vref}
}

func (a *app) openADC(f *adcFlags) (serialmux.Port, error) {
	p, err := a.open(*f.port, serialmux.OpenOptions{
		PortOptions: serialmux.PortOptions{BaudRate: *f.baud},
		ReadTimeout: *f.readTimeout,
		ResetDelay:  *f.resetDelay,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open acquisition port: %w", err)
	}
	return p, nil
}

func (a *app) runLive(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("live", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	adcOpts := addADCFlags(fs, cfg)
	nplot := fs.Int("nplot", cfg.GetPlotWindow(), "Number of samples kept for each report")
	interval := fs.Duration("report-interval", cfg.GetReportInterval(), "How often to report")
	if err := fs.Parse(args); err != nil {
		return err
	}

	p, err := a.openADC(adcOpts)
	if err != nil {
		return err
	}
	defer p.Close()

	fr := framer.New(p)
	mon := capture.NewMonitor(fr, capture.Options{
		SampleRateHz:   *adcOpts.sampleRate,
		Window:         *nplot,
		ReportInterval: *interval,
		ADC:            adcOpts.adc(),
		Clock:          a.clock,
	}, func(r capture.Report) {
		dominant := "-"
		if r.HasDominant {
			dominant = fmt.Sprintf("%.1f Hz", r.DominantHz)
		}
		fmt.Fprintf(a.stdout, "%8s frames=%d rate=%.0f/s vin=%.3f Vrms vout=%.3f Vrms peak=%s skipped=%d\n",
			r.Elapsed.Round(time.Millisecond), r.Frames, r.FrameRateHz, r.InputRMSV, r.OutputRMSV,
			dominant, r.Framer.Skipped)
	})

	monitoring.Logf("live capture on %s at %d baud", *adcOpts.port, *adcOpts.baud)
	err = ignoreCanceled(mon.Run(ctx))
	st := fr.Stats()
	monitoring.Logf("live capture ended: %d frames, %d bytes skipped, %d truncated", st.Frames, st.Skipped, st.Truncated)
	return err
}
