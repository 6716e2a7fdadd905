package sweep

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// maxFrequencies bounds GenerateRange so a bad step cannot allocate without
// limit.
const maxFrequencies = 10000

// RangeSpec is an inclusive start:end:step frequency range in Hz.
type RangeSpec struct {
	Start float64
	End   float64
	Step  float64
}

// ParseRangeSpec parses a "start:end:step" string into a RangeSpec.
func ParseRangeSpec(s string) (RangeSpec, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return RangeSpec{}, fmt.Errorf("invalid range format %q: expected start:end:step", s)
	}

	start, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return RangeSpec{}, fmt.Errorf("invalid start value %q: %w", parts[0], err)
	}
	end, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return RangeSpec{}, fmt.Errorf("invalid end value %q: %w", parts[1], err)
	}
	step, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
	if err != nil {
		return RangeSpec{}, fmt.Errorf("invalid step value %q: %w", parts[2], err)
	}
	if step <= 0 {
		return RangeSpec{}, fmt.Errorf("step must be positive, got %g", step)
	}
	return RangeSpec{Start: start, End: end, Step: step}, nil
}

// Frequencies expands the spec with GenerateRange.
func (r RangeSpec) Frequencies() []float64 {
	return GenerateRange(r.Start, r.End, r.Step)
}

// GenerateRange returns start, start+step, ... for every grid point below
// end+step/2, so end is included when it lies on the grid even after
// floating-point drift. It returns nil for a non-positive step, for
// start > end, and for ranges longer than maxFrequencies.
func GenerateRange(start, end, step float64) []float64 {
	if step <= 0 || start > end {
		return nil
	}
	count := int(math.Ceil((end-start)/step + 0.5))
	if count > maxFrequencies || count < 0 {
		return nil
	}

	out := make([]float64, 0, count)
	for i := 0; i < count; i++ {
		// index-based to avoid accumulating step error
		v := start + float64(i)*step
		out = append(out, math.Round(v*1e6)/1e6)
	}
	return out
}

// Plan returns the frequency list for a sweep, validating that every entry
// is positive.
func Plan(start, end, step float64) ([]float64, error) {
	if start <= 0 {
		return nil, fmt.Errorf("start frequency must be positive, got %g", start)
	}
	freqs := GenerateRange(start, end, step)
	if len(freqs) == 0 {
		return nil, fmt.Errorf("empty frequency plan for %g:%g:%g", start, end, step)
	}
	return freqs, nil
}
