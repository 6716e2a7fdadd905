package sweep

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a sweep run.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusError    Status = "error"
)

// Result holds the measured and theoretical response at one frequency.
type Result struct {
	FrequencyHz         float64 `json:"frequency_hz"`
	InputRMSV           float64 `json:"vin_rms_v"`
	OutputRMSV          float64 `json:"vout_rms_v"`
	GainDBMeasured      float64 `json:"gain_db_measured"`
	PhaseDegMeasured    float64 `json:"phase_deg_measured"`
	GainDBTheoretical   float64 `json:"gain_db_theoretical"`
	PhaseDegTheoretical float64 `json:"phase_deg_theoretical"`
}

// State is a point-in-time view of a run, safe to serialise.
type State struct {
	RunID                string     `json:"run_id"`
	Status               Status     `json:"status"`
	StartedAt            *time.Time `json:"started_at,omitempty"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
	TotalFrequencies     int        `json:"total_frequencies"`
	CompletedFrequencies int        `json:"completed_frequencies"`
	CurrentFrequencyHz   float64    `json:"current_frequency_hz,omitempty"`
	Results              []Result   `json:"results"`
	Error                string     `json:"error,omitempty"`
}

// TimeoutError reports that the frame source went quiet for longer than the
// configured frame timeout while a batch was being collected.
type TimeoutError struct {
	FrequencyHz float64
	Collected   int
	Wanted      int
	Waited      time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout waiting for frames at %.2f Hz: collected %d of %d after %s without data",
		e.FrequencyHz, e.Collected, e.Wanted, e.Waited)
}
