package sweep

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/serialscope/internal/framer"
	"github.com/banshee-data/serialscope/internal/response"
	"github.com/banshee-data/serialscope/internal/testutil"
	"github.com/banshee-data/serialscope/internal/timeutil"
)

const benchFS = 2000.0

var benchFilter = response.HighPass{
	ResistanceOhms:    response.DefaultResistanceOhms,
	CapacitanceFarads: response.DefaultCapacitanceFarads,
}

// bench simulates the generator and ADC: each command retunes the source,
// and Next returns quantized frames of a 2 Vpk sine through benchFilter.
type bench struct {
	commands []string
	freq     float64
	idx      int
	onSend   func(n int)
	sendErr  error
}

func (b *bench) SendCommand(cmd string) error {
	b.commands = append(b.commands, cmd)
	if b.onSend != nil {
		b.onSend(len(b.commands))
	}
	if b.sendErr != nil {
		return b.sendErr
	}
	if _, err := fmt.Sscanf(cmd, "F %f\n", &b.freq); err != nil {
		return err
	}
	b.idx = 0
	return nil
}

func (b *bench) Next() (framer.RawFrame, bool, error) {
	t := float64(b.idx) / benchFS
	b.idx++
	h := benchFilter.Response(b.freq)
	w := 2 * math.Pi * b.freq * t
	in := 2.5 + 2*math.Sin(w)
	out := 2.5 + 2*h.Magnitude*math.Sin(w+h.PhaseDeg*math.Pi/180)
	codes := testutil.Quantize([]float64{in, out}, 1023, 5)
	return framer.RawFrame{Input: codes[0], Output: codes[1]}, true, nil
}

func benchOptions(freqs ...float64) Options {
	opts := DefaultOptions()
	opts.Frequencies = freqs
	opts.SamplesPerFrequency = 1000
	opts.Clock = timeutil.NewMockClock(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	return opts
}

func TestFormatCommand(t *testing.T) {
	assert.Equal(t, "F 50.00\n", FormatCommand(50))
	assert.Equal(t, "F 1234.57\n", FormatCommand(1234.567))
	assert.Equal(t, "F 0.10\n", FormatCommand(0.1))
}

func TestRunner_MeasuresHighPass(t *testing.T) {
	b := &bench{}
	opts := benchOptions(100, 200, 250, 400)
	r := NewRunner(b, b, opts)

	results, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, []string{"F 100.00\n", "F 200.00\n", "F 250.00\n", "F 400.00\n"}, b.commands)
	for _, res := range results {
		assert.InDelta(t, res.GainDBTheoretical, res.GainDBMeasured, 0.2, "gain at %v Hz", res.FrequencyHz)
		assert.InDelta(t, res.PhaseDegTheoretical, res.PhaseDegMeasured, 1.0, "phase at %v Hz", res.FrequencyHz)
		assert.InDelta(t, 2/math.Sqrt2, res.InputRMSV, 0.01)
	}

	clock := opts.Clock.(*timeutil.MockClock)
	assert.Equal(t, []time.Duration{DefaultSettle, DefaultSettle, DefaultSettle, DefaultSettle}, clock.Sleeps())

	st := r.State()
	assert.Equal(t, StatusComplete, st.Status)
	assert.Equal(t, 4, st.CompletedFrequencies)
	assert.Equal(t, r.RunID, st.RunID)
	assert.Len(t, st.Results, 4)
	assert.NotNil(t, st.CompletedAt)
}

func TestRunner_InterruptedAfterThreeOfSix(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := &bench{onSend: func(n int) {
		if n == 4 {
			cancel()
		}
	}}
	r := NewRunner(b, b, benchOptions(100, 200, 300, 400, 500, 600))

	results, err := r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, 3)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, results))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 4)
	assert.Equal(t, strings.Join(CSVHeader, ","), lines[0])
	assert.True(t, strings.HasPrefix(lines[3], "300.000000,"))

	st := r.State()
	assert.Equal(t, StatusError, st.Status)
	assert.Equal(t, 3, st.CompletedFrequencies)
}

func TestRunner_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := &bench{}
	results, err := NewRunner(b, b, benchOptions(100, 200)).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
	assert.Empty(t, b.commands)
}

func TestRunner_FrameTimeout(t *testing.T) {
	clock := timeutil.NewMockClock(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	var stream []byte
	for i := 0; i < 10; i++ {
		stream = append(stream, framer.Encode(framer.RawFrame{Input: 512, Output: 512})...)
	}
	src := testutil.NewChunkReader(stream)
	for i := 0; i < 20; i++ {
		src.Append(nil)
	}
	src.OnTimeout = func() { clock.Advance(time.Second) }

	gen := &bench{}
	opts := benchOptions(100, 200)
	opts.SamplesPerFrequency = 16
	opts.Clock = clock

	results, err := NewRunner(gen, framer.New(src), opts).Run(context.Background())
	assert.Empty(t, results)

	var terr *TimeoutError
	require.True(t, errors.As(err, &terr), "got %v", err)
	assert.Equal(t, 100.0, terr.FrequencyHz)
	assert.Equal(t, 10, terr.Collected)
	assert.Equal(t, 16, terr.Wanted)
	assert.Greater(t, terr.Waited, DefaultFrameTimeout)
	assert.Contains(t, terr.Error(), "100.00 Hz")
}

func TestRunner_SourceClosed(t *testing.T) {
	src := testutil.NewChunkReader(framer.Encode(framer.RawFrame{Input: 1, Output: 2}))
	gen := &bench{}
	opts := benchOptions(100)
	opts.SamplesPerFrequency = 4

	_, err := NewRunner(gen, framer.New(src), opts).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, io.EOF)
}

func TestRunner_SourceReadError(t *testing.T) {
	boom := errors.New("device unplugged")
	src := testutil.NewChunkReader()
	src.Err = boom
	gen := &bench{}

	_, err := NewRunner(gen, framer.New(src), benchOptions(100)).Run(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestRunner_GeneratorError(t *testing.T) {
	boom := errors.New("write failed")
	b := &bench{sendErr: boom}

	results, err := NewRunner(b, b, benchOptions(100, 200)).Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, results)
	assert.Len(t, b.commands, 1)
}

func TestNewRunner_Defaults(t *testing.T) {
	b := &bench{}
	r := NewRunner(b, b, Options{Frequencies: []float64{100}})
	assert.Equal(t, DefaultSampleRateHz, r.opts.SampleRateHz)
	assert.Equal(t, DefaultSamplesPerFrequency, r.opts.SamplesPerFrequency)
	assert.Equal(t, DefaultFrameTimeout, r.opts.FrameTimeout)
	assert.Equal(t, framer.DefaultADC(), r.opts.ADC)
	assert.NotNil(t, r.opts.Clock)
	assert.NotEmpty(t, r.RunID)
	assert.NotEqual(t, r.RunID, NewRunner(b, b, Options{}).RunID)
	assert.Equal(t, StatusIdle, r.State().Status)
}
