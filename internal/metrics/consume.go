package metrics

import (
	"context"
	"errors"
	"strings"

	"github.com/banshee-data/serialscope/internal/monitoring"
	"github.com/banshee-data/serialscope/internal/telemetry"
)

// Consume decodes lines and folds the resulting packets into acc until the
// context is cancelled or lines is closed. Parse errors are counted and
// logged; they never stop the stream. STATUS heartbeats are recorded on acc.
func Consume(ctx context.Context, lines <-chan string, dec *telemetry.Decoder, acc *Accumulator) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			consumeLine(line, dec, acc)
		}
	}
}

func consumeLine(line string, dec *telemetry.Decoder, acc *Accumulator) {
	if strings.HasPrefix(strings.TrimSpace(line), "STATUS") {
		st, err := telemetry.ParseStatus(line)
		if err != nil {
			acc.RecordParseError()
			monitoring.Logf("telemetry: %v", err)
			return
		}
		acc.RecordStatus(st)
		monitoring.Logf("telemetry: relay status rx=%d tx=%d", st.Received, st.Forwarded)
		return
	}

	p, ok, err := dec.Decode(line)
	if err != nil {
		acc.RecordParseError()
		var perr *telemetry.ParseError
		if errors.As(err, &perr) {
			monitoring.Logf("telemetry: skipping line: %v", perr.Err)
		} else {
			monitoring.Logf("telemetry: %v", err)
		}
		return
	}
	if !ok {
		return
	}

	before := acc.Totals()
	acc.Ingest(p)
	after := acc.Totals()
	if gap := after.Lost - before.Lost; gap > 0 {
		monitoring.Logf("telemetry: %d packet(s) lost before seq %d", gap, p.Sequence)
	}
	if after.Reordered > before.Reordered {
		monitoring.Logf("telemetry: out-of-order or duplicate seq %d", p.Sequence)
	}
}
