package metrics

import "sync"

// SampleWindow keeps the most recent input/output voltage pairs for the live
// capture mode. It is safe for one writer and concurrent readers.
type SampleWindow struct {
	mu     sync.Mutex
	input  *Ring[float64]
	output *Ring[float64]
	total  uint64
}

// NewSampleWindow returns a window holding up to capacity sample pairs.
func NewSampleWindow(capacity int) *SampleWindow {
	return &SampleWindow{
		input:  NewRing[float64](capacity),
		output: NewRing[float64](capacity),
	}
}

// Push appends one sample pair.
func (w *SampleWindow) Push(in, out float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.input.Push(in)
	w.output.Push(out)
	w.total++
}

// Len returns the number of buffered pairs.
func (w *SampleWindow) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.input.Len()
}

// Total returns the number of pairs pushed since creation.
func (w *SampleWindow) Total() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.total
}

// Values returns copies of the buffered input and output samples, oldest
// first.
func (w *SampleWindow) Values() (in, out []float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.input.Values(), w.output.Values()
}
