// Package metrics accumulates link-health statistics from decoded telemetry
// packets: sequence loss, relay latency, jitter and arrival rate. Cumulative
// counters cover the whole session while the per-packet series are kept in
// fixed-size windows for display.
package metrics

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/serialscope/internal/telemetry"
	"github.com/banshee-data/serialscope/internal/timeutil"
)

const (
	DefaultWindow  = 300
	DefaultMaxRate = 1000.0
)

// Options configures an Accumulator.
type Options struct {
	// Window is the capacity N of the latency, rate, loss, arrival and
	// sequence windows. The jitter window holds N-1 entries.
	Window int
	// MaxRate is recorded as the instantaneous rate when two packets share
	// an arrival timestamp.
	MaxRate float64
	Clock   timeutil.Clock
}

// Counters are the cumulative, unbounded session totals.
type Counters struct {
	Received    uint64
	Lost        uint64
	Reordered   uint64
	ParseErrors uint64
}

// Accumulator owns the metrics state for one analysis session. Ingest is
// called by a single consumer; Snapshot may be called from other goroutines.
type Accumulator struct {
	mu   sync.Mutex
	opts Options

	start    time.Time
	counters Counters

	lastSeq     uint64
	hasLastSeq  bool
	lastArrival time.Time
	hasArrival  bool

	totalLatencyMs float64
	latest         telemetry.Packet
	hasLatest      bool
	status         telemetry.RelayStatus
	hasStatus      bool

	latency   *Ring[float64]
	jitter    *Ring[float64]
	rates     *Ring[float64]
	losses    *Ring[uint64]
	sequences *Ring[uint64]
	arrivals  *Ring[time.Time]
}

// NewAccumulator returns an Accumulator with empty state. Zero option values
// fall back to DefaultWindow, DefaultMaxRate and the real clock.
func NewAccumulator(opts Options) *Accumulator {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.MaxRate <= 0 {
		opts.MaxRate = DefaultMaxRate
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	return &Accumulator{
		opts:      opts,
		start:     opts.Clock.Now(),
		latency:   NewRing[float64](opts.Window),
		jitter:    NewRing[float64](opts.Window - 1),
		rates:     NewRing[float64](opts.Window),
		losses:    NewRing[uint64](opts.Window),
		sequences: NewRing[uint64](opts.Window),
		arrivals:  NewRing[time.Time](opts.Window),
	}
}

// Ingest folds one packet into the state. Packets must be passed in arrival
// order.
func (a *Accumulator) Ingest(p telemetry.Packet) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.counters.Received++

	// A gap adds to Lost; a repeat or decrease is counted separately and
	// never subtracts from Lost.
	if a.hasLastSeq && p.Sequence != a.lastSeq+1 {
		if p.Sequence > a.lastSeq {
			a.counters.Lost += p.Sequence - a.lastSeq - 1
		} else {
			a.counters.Reordered++
		}
	}
	a.lastSeq = p.Sequence
	a.hasLastSeq = true

	latency := p.LatencyMs()
	if prev, ok := a.latency.Last(); ok {
		a.jitter.Push(abs(latency - prev))
	}
	a.latency.Push(latency)
	a.totalLatencyMs += latency

	arrival := p.LocalReceiveTime
	if arrival.IsZero() {
		arrival = a.opts.Clock.Now()
	}
	rate := 0.0
	if a.hasArrival {
		dt := arrival.Sub(a.lastArrival).Seconds()
		if dt > 0 {
			rate = 1 / dt
		} else {
			rate = a.opts.MaxRate
		}
	}
	a.lastArrival = arrival
	a.hasArrival = true

	a.rates.Push(rate)
	a.losses.Push(a.counters.Lost)
	a.sequences.Push(p.Sequence)
	a.arrivals.Push(arrival)

	a.latest = p
	a.hasLatest = true
}

// RecordParseError counts a line the decoder rejected.
func (a *Accumulator) RecordParseError() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.counters.ParseErrors++
}

// RecordStatus stores the latest relay heartbeat.
func (a *Accumulator) RecordStatus(st telemetry.RelayStatus) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status = st
	a.hasStatus = true
}

// Totals returns the cumulative counters without copying the windows.
func (a *Accumulator) Totals() Counters {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counters
}

// Snapshot is a read-only copy of the accumulator state.
type Snapshot struct {
	Counters

	LastSequence    uint64
	HasLastSequence bool

	Runtime         time.Duration
	PacketRate      float64 // received packets per second of runtime
	LossRatePercent float64 // lost / (received + lost) * 100

	AvgLatencyMs    float64 // over the window
	LatencyStdDevMs float64 // population std dev over the window
	AvgJitterMs     float64 // over the window
	TotalLatencyMs  float64 // cumulative over the session

	Latest    telemetry.Packet
	HasLatest bool

	RelayStatus    telemetry.RelayStatus
	HasRelayStatus bool

	LatencyMs []float64
	JitterMs  []float64
	Rates     []float64
	Losses    []uint64
	Sequences []uint64
	Arrivals  []time.Time
}

// Snapshot returns the current aggregates and copies of the windows.
func (a *Accumulator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := Snapshot{
		Counters:        a.counters,
		LastSequence:    a.lastSeq,
		HasLastSequence: a.hasLastSeq,
		Runtime:         a.opts.Clock.Since(a.start),
		TotalLatencyMs:  a.totalLatencyMs,
		Latest:          a.latest,
		HasLatest:       a.hasLatest,
		RelayStatus:     a.status,
		HasRelayStatus:  a.hasStatus,
		LatencyMs:       a.latency.Values(),
		JitterMs:        a.jitter.Values(),
		Rates:           a.rates.Values(),
		Losses:          a.losses.Values(),
		Sequences:       a.sequences.Values(),
		Arrivals:        a.arrivals.Values(),
	}

	if secs := s.Runtime.Seconds(); secs > 0 {
		s.PacketRate = float64(a.counters.Received) / secs
	}
	if a.counters.Received > 0 {
		s.LossRatePercent = float64(a.counters.Lost) / float64(a.counters.Received+a.counters.Lost) * 100
	}
	if len(s.LatencyMs) > 0 {
		s.AvgLatencyMs, s.LatencyStdDevMs = stat.PopMeanStdDev(s.LatencyMs, nil)
	}
	if len(s.JitterMs) > 0 {
		s.AvgJitterMs = stat.Mean(s.JitterMs, nil)
	}
	return s
}

// Reset clears all state and restarts the session clock.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.start = a.opts.Clock.Now()
	a.counters = Counters{}
	a.lastSeq, a.hasLastSeq = 0, false
	a.lastArrival, a.hasArrival = time.Time{}, false
	a.totalLatencyMs = 0
	a.latest, a.hasLatest = telemetry.Packet{}, false
	a.status, a.hasStatus = telemetry.RelayStatus{}, false
	a.latency.Reset()
	a.jitter.Reset()
	a.rates.Reset()
	a.losses.Reset()
	a.sequences.Reset()
	a.arrivals.Reset()
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
