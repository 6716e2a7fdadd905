// Package sweep drives a stepped-frequency measurement: it commands the
// signal generator to each frequency, waits for the circuit to settle,
// collects a block of paired samples from the ADC stream and reduces it to
// one Result. Results can be written as CSV, a static Bode plot or an
// interactive chart.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/serialscope/internal/framer"
	"github.com/banshee-data/serialscope/internal/monitoring"
	"github.com/banshee-data/serialscope/internal/response"
	"github.com/banshee-data/serialscope/internal/timeutil"
)

const (
	DefaultSampleRateHz        = 2000.0
	DefaultSamplesPerFrequency = 1024
	DefaultSettle              = 250 * time.Millisecond
	DefaultFrameTimeout        = 5 * time.Second
	DefaultStartHz             = 50.0
	DefaultEndHz               = 5000.0
	DefaultStepHz              = 50.0
)

// Generator accepts plain-text commands for the signal generator.
type Generator interface {
	SendCommand(cmd string) error
}

// FrameSource yields decoded ADC frames. It has the same contract as
// (*framer.Framer).Next: ok == false with a nil error means no frame
// arrived within the source's read timeout.
type FrameSource interface {
	Next() (framer.RawFrame, bool, error)
}

// FormatCommand returns the generator command that sets the output
// frequency.
func FormatCommand(freqHz float64) string {
	return fmt.Sprintf("F %.2f\n", freqHz)
}

// Options configures a Runner.
type Options struct {
	Frequencies         []float64
	SampleRateHz        float64
	SamplesPerFrequency int
	Settle              time.Duration
	FrameTimeout        time.Duration
	Filter              response.HighPass
	ADC                 framer.ADC
	Clock               timeutil.Clock
}

// DefaultOptions returns the bench defaults: 50 Hz to 5 kHz in 50 Hz steps,
// 1024 samples at 2 kHz per point, a 10 kOhm / 0.1 uF filter model.
func DefaultOptions() Options {
	return Options{
		Frequencies:         GenerateRange(DefaultStartHz, DefaultEndHz, DefaultStepHz),
		SampleRateHz:        DefaultSampleRateHz,
		SamplesPerFrequency: DefaultSamplesPerFrequency,
		Settle:              DefaultSettle,
		FrameTimeout:        DefaultFrameTimeout,
		Filter: response.HighPass{
			ResistanceOhms:    response.DefaultResistanceOhms,
			CapacitanceFarads: response.DefaultCapacitanceFarads,
		},
		ADC:   framer.DefaultADC(),
		Clock: timeutil.RealClock{},
	}
}

// Runner executes one sweep. It is not reusable; create a new Runner per
// sweep so each gets its own run ID.
type Runner struct {
	gen  Generator
	src  FrameSource
	opts Options

	// RunID tags log lines and rendered artifacts.
	RunID string

	mu    sync.RWMutex
	state State
}

// NewRunner creates a Runner. Unset numeric options fall back to the
// defaults.
func NewRunner(gen Generator, src FrameSource, opts Options) *Runner {
	def := DefaultOptions()
	if opts.SampleRateHz <= 0 {
		opts.SampleRateHz = def.SampleRateHz
	}
	if opts.SamplesPerFrequency <= 0 {
		opts.SamplesPerFrequency = def.SamplesPerFrequency
	}
	if opts.FrameTimeout <= 0 {
		opts.FrameTimeout = def.FrameTimeout
	}
	if opts.Settle < 0 {
		opts.Settle = 0
	}
	if opts.ADC.MaxCode <= 0 {
		opts.ADC = def.ADC
	}
	if opts.Clock == nil {
		opts.Clock = def.Clock
	}
	id := uuid.NewString()
	return &Runner{
		gen:   gen,
		src:   src,
		opts:  opts,
		RunID: id,
		state: State{RunID: id, Status: StatusIdle, TotalFrequencies: len(opts.Frequencies)},
	}
}

// State returns a copy of the current run state.
func (r *Runner) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := r.state
	s.Results = append([]Result(nil), r.state.Results...)
	return s
}

// Run measures every configured frequency in order. The results completed
// so far are returned with any error, including context cancellation and
// *TimeoutError, so the caller can always persist them.
func (r *Runner) Run(ctx context.Context) ([]Result, error) {
	started := r.opts.Clock.Now()
	r.mu.Lock()
	r.state.Status = StatusRunning
	r.state.StartedAt = &started
	r.mu.Unlock()

	monitoring.Logf("[sweep %s] %d frequencies, %d samples at %.0f Hz, settle %s",
		r.RunID, len(r.opts.Frequencies), r.opts.SamplesPerFrequency, r.opts.SampleRateHz, r.opts.Settle)

	results := make([]Result, 0, len(r.opts.Frequencies))
	for _, f := range r.opts.Frequencies {
		if err := ctx.Err(); err != nil {
			return r.finish(results, err)
		}
		res, err := r.measure(ctx, f)
		if err != nil {
			return r.finish(results, err)
		}
		results = append(results, res)

		r.mu.Lock()
		r.state.CompletedFrequencies = len(results)
		r.state.Results = append(r.state.Results, res)
		r.mu.Unlock()

		monitoring.Logf("[sweep %s] f=%7.1f Hz | gain=%7.2f dB (theory %7.2f) | phase=%7.1f deg (theory %7.1f)",
			r.RunID, f, res.GainDBMeasured, res.GainDBTheoretical, res.PhaseDegMeasured, res.PhaseDegTheoretical)
	}
	return r.finish(results, nil)
}

func (r *Runner) finish(results []Result, err error) ([]Result, error) {
	done := r.opts.Clock.Now()
	r.mu.Lock()
	r.state.CompletedAt = &done
	r.state.CurrentFrequencyHz = 0
	if err != nil {
		r.state.Status = StatusError
		r.state.Error = err.Error()
	} else {
		r.state.Status = StatusComplete
	}
	r.mu.Unlock()

	if err != nil {
		monitoring.Logf("[sweep %s] stopped after %d of %d frequencies: %v",
			r.RunID, len(results), len(r.opts.Frequencies), err)
	}
	return results, err
}

func (r *Runner) measure(ctx context.Context, freqHz float64) (Result, error) {
	r.mu.Lock()
	r.state.CurrentFrequencyHz = freqHz
	r.mu.Unlock()

	if err := r.gen.SendCommand(FormatCommand(freqHz)); err != nil {
		return Result{}, fmt.Errorf("set generator to %.2f Hz: %w", freqHz, err)
	}
	r.opts.Clock.Sleep(r.opts.Settle)

	in, out, err := r.collect(ctx, freqHz)
	if err != nil {
		return Result{}, err
	}

	m := response.Measure(in, out, r.opts.SampleRateHz, freqHz)
	th := r.opts.Filter.Response(freqHz)
	return Result{
		FrequencyHz:         freqHz,
		InputRMSV:           m.InputRMS,
		OutputRMSV:          m.OutputRMS,
		GainDBMeasured:      m.GainDB,
		PhaseDegMeasured:    m.PhaseDeg,
		GainDBTheoretical:   th.GainDB,
		PhaseDegTheoretical: th.PhaseDeg,
	}, nil
}

// collect reads exactly SamplesPerFrequency frames. The frame timeout is
// measured from the last frame received, or from the start of the batch.
func (r *Runner) collect(ctx context.Context, freqHz float64) (in, out []float64, err error) {
	n := r.opts.SamplesPerFrequency
	in = make([]float64, 0, n)
	out = make([]float64, 0, n)
	last := r.opts.Clock.Now()

	for len(in) < n {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		fr, ok, err := r.src.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, nil, fmt.Errorf("frame source closed at %.2f Hz after %d of %d frames: %w", freqHz, len(in), n, err)
			}
			return nil, nil, fmt.Errorf("read frames at %.2f Hz: %w", freqHz, err)
		}
		if !ok {
			if waited := r.opts.Clock.Since(last); waited > r.opts.FrameTimeout {
				return nil, nil, &TimeoutError{FrequencyHz: freqHz, Collected: len(in), Wanted: n, Waited: waited}
			}
			continue
		}
		vin, vout := r.opts.ADC.FrameVolts(fr)
		in = append(in, vin)
		out = append(out, vout)
		last = r.opts.Clock.Now()
	}
	return in, out, nil
}
