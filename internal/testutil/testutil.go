// Package testutil provides shared test utilities and fixtures.
//
// It centralises the synthetic waveforms and scripted byte sources used by
// the framer, capture and sweep tests so each package does not grow its own
// slightly different copy.
package testutil

import (
	"io"
	"math"
	"sync"
	"testing"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// Sine returns n samples of dc + amp*sin(2*pi*freq*t + phaseDeg) sampled at
// sampleRate.
func Sine(n int, sampleRate, freq, amp, phaseDeg, dc float64) []float64 {
	out := make([]float64, n)
	phase := phaseDeg * math.Pi / 180
	for i := range out {
		t := float64(i) / sampleRate
		out[i] = dc + amp*math.Sin(2*math.Pi*freq*t+phase)
	}
	return out
}

// Quantize maps volts onto integer ADC codes in [0, maxCode] for a converter
// with reference vref.
func Quantize(volts []float64, maxCode, vref float64) []uint16 {
	out := make([]uint16, len(volts))
	for i, v := range volts {
		c := math.Round(v / vref * maxCode)
		c = math.Max(0, math.Min(maxCode, c))
		out[i] = uint16(c)
	}
	return out
}

// ChunkReader replays a script of Read results. A nil or empty chunk makes
// Read return (0, nil), which is how a serial port reports a read timeout.
// Once the script is exhausted Read returns Err, or io.EOF when Err is nil.
type ChunkReader struct {
	mu     sync.Mutex
	chunks [][]byte
	Err    error

	// OnTimeout, if set, runs every time a scripted timeout is returned.
	OnTimeout func()
}

// NewChunkReader returns a reader that yields each chunk from one Read call.
func NewChunkReader(chunks ...[]byte) *ChunkReader {
	return &ChunkReader{chunks: chunks}
}

// Append adds more chunks to the script.
func (c *ChunkReader) Append(chunks ...[]byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chunks = append(c.chunks, chunks...)
}

// Read implements io.Reader.
func (c *ChunkReader) Read(p []byte) (int, error) {
	c.mu.Lock()
	if len(c.chunks) == 0 {
		c.mu.Unlock()
		if c.Err != nil {
			return 0, c.Err
		}
		return 0, io.EOF
	}
	chunk := c.chunks[0]
	if len(chunk) == 0 {
		c.chunks = c.chunks[1:]
		hook := c.OnTimeout
		c.mu.Unlock()
		if hook != nil {
			hook()
		}
		return 0, nil
	}
	n := copy(p, chunk)
	if n < len(chunk) {
		c.chunks[0] = chunk[n:]
	} else {
		c.chunks = c.chunks[1:]
	}
	c.mu.Unlock()
	return n, nil
}

// Remaining reports how many scripted chunks have not been consumed.
func (c *ChunkReader) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.chunks)
}
