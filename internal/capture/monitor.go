// Package capture implements the continuous acquisition mode: frames are
// converted to volts, kept in a rolling window and summarised at a fixed
// interval.
package capture

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/banshee-data/serialscope/internal/framer"
	"github.com/banshee-data/serialscope/internal/metrics"
	"github.com/banshee-data/serialscope/internal/response"
	"github.com/banshee-data/serialscope/internal/timeutil"
)

const (
	DefaultWindow         = 600
	DefaultMinSamples     = 256
	DefaultReportInterval = 500 * time.Millisecond
	DefaultSampleRateHz   = 2000.0
)

// FrameSource yields decoded ADC frames with the framer's timeout contract.
type FrameSource interface {
	Next() (framer.RawFrame, bool, error)
}

// statser is implemented by *framer.Framer.
type statser interface {
	Stats() framer.Stats
}

// Report summarises the window at one reporting instant.
type Report struct {
	Elapsed     time.Duration
	Frames      uint64
	FrameRateHz float64 // frames per second since the previous report

	InputRMSV  float64
	OutputRMSV float64

	// DominantHz is the strongest non-DC output component.
	DominantHz  float64
	HasDominant bool

	Framer framer.Stats
}

// Options configures a Monitor.
type Options struct {
	SampleRateHz   float64
	Window         int
	MinSamples     int
	ReportInterval time.Duration
	ADC            framer.ADC
	Clock          timeutil.Clock
}

// Monitor reads frames until the source closes or the context ends.
type Monitor struct {
	src      FrameSource
	opts     Options
	window   *metrics.SampleWindow
	onReport func(Report)
}

// NewMonitor creates a Monitor. onReport is called from Run's goroutine.
func NewMonitor(src FrameSource, opts Options, onReport func(Report)) *Monitor {
	if opts.SampleRateHz <= 0 {
		opts.SampleRateHz = DefaultSampleRateHz
	}
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.MinSamples <= 0 {
		opts.MinSamples = DefaultMinSamples
	}
	if opts.MinSamples > opts.Window {
		opts.MinSamples = opts.Window
	}
	if opts.ReportInterval <= 0 {
		opts.ReportInterval = DefaultReportInterval
	}
	if opts.ADC.MaxCode <= 0 {
		opts.ADC = framer.DefaultADC()
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	return &Monitor{
		src:      src,
		opts:     opts,
		window:   metrics.NewSampleWindow(opts.Window),
		onReport: onReport,
	}
}

// Window exposes the rolling sample buffer.
func (m *Monitor) Window() *metrics.SampleWindow { return m.window }

// Run pulls frames until the source reports io.EOF, which ends the run
// cleanly, or the context is cancelled. Read timeouts are retried; other
// read errors are returned.
func (m *Monitor) Run(ctx context.Context) error {
	start := m.opts.Clock.Now()
	lastReport := start
	var lastFrames uint64

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fr, ok, err := m.src.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if ok {
			in, out := m.opts.ADC.FrameVolts(fr)
			m.window.Push(in, out)
		}

		since := m.opts.Clock.Since(lastReport)
		if since < m.opts.ReportInterval || m.window.Len() < m.opts.MinSamples {
			continue
		}
		now := m.opts.Clock.Now()
		r := m.report(now.Sub(start))
		r.FrameRateHz = float64(r.Frames-lastFrames) / since.Seconds()
		lastReport, lastFrames = now, r.Frames
		if m.onReport != nil {
			m.onReport(r)
		}
	}
}

func (m *Monitor) report(elapsed time.Duration) Report {
	in, out := m.window.Values()
	r := Report{
		Elapsed:    elapsed,
		Frames:     m.window.Total(),
		InputRMSV:  response.RMSAC(in),
		OutputRMSV: response.RMSAC(out),
	}
	r.DominantHz, r.HasDominant = response.DominantFrequency(out, m.opts.SampleRateHz)
	if s, ok := m.src.(statser); ok {
		r.Framer = s.Stats()
	}
	return r
}
