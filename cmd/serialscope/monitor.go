package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/banshee-data/serialscope/internal/config"
	"github.com/banshee-data/serialscope/internal/metrics"
	"github.com/banshee-data/serialscope/internal/monitoring"
	"github.com/banshee-data/serialscope/internal/serialmux"
	"github.com/banshee-data/serialscope/internal/telemetry"
)

func (a *app) runMonitor(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("monitor", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	port := fs.String("port", cfg.GetPort(), "Telemetry serial port")
	baud := fs.Int("baud", cfg.GetBaudRate(), "Telemetry baud rate")
	variantName := fs.String("variant", cfg.GetVariant(), "Line format: auto, relay or wireless")
	window := fs.Int("window", cfg.GetWindow(), "Number of packets kept in the metrics windows")
	maxRate := fs.Float64("max-rate", cfg.GetMaxRate(), "Rate recorded when two packets arrive together")
	verify := fs.Bool("verify-checksum", cfg.GetVerifyChecksum(), "Reject relay packets whose checksum does not match")
	statsInterval := fs.Duration("stats-interval", cfg.GetStatsInterval(), "How often to log a link summary (0 disables)")
	debugListen := fs.String("debug-listen", cfg.GetDebugListen(), "Serve /debug and /metrics on this address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	variant, ok := telemetry.ParseVariant(*variantName)
	if !ok {
		return fmt.Errorf("unknown variant %q", *variantName)
	}

	mux, err := serialmux.OpenSerialMux(a.open, *port, serialmux.OpenOptions{PortOptions: serialmux.PortOptions{BaudRate: *baud}})
	if err != nil {
		return fmt.Errorf("failed to open telemetry port: %w", err)
	}
	defer mux.Close()

	acc := metrics.NewAccumulator(metrics.Options{Window: *window, MaxRate: *maxRate, Clock: a.clock})
	dec := &telemetry.Decoder{Variant: variant, VerifyChecksum: *verify, Clock: a.clock}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if *debugListen != "" {
		stop := a.serveDebug(*debugListen, newMetricsHandler(acc, mux.Dropped), mux.AttachAdminRoutes)
		defer stop()
	}

	id, lines := mux.Subscribe()
	monitorErr := make(chan error, 1)
	go func() {
		err := mux.Monitor(ctx)
		// closing the subscription lets Consume drain what was read
		mux.Unsubscribe(id)
		monitorErr <- err
	}()

	if *statsInterval > 0 {
		go logStats(ctx, acc, *statsInterval)
	}

	monitoring.Logf("monitoring %s at %d baud (%s format)", *port, *baud, variant)
	consumeErr := metrics.Consume(ctx, lines, dec, acc)
	cancel()
	err = <-monitorErr

	writeSummary(a.stdout, acc.Snapshot(), mux.Dropped())

	if consumeErr = ignoreCanceled(consumeErr); consumeErr != nil {
		return consumeErr
	}
	if err = ignoreCanceled(err); err != nil {
		return fmt.Errorf("telemetry port: %w", err)
	}
	return nil
}

func newMetricsHandler(acc *metrics.Accumulator, dropped func() uint64) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		metrics.NewCollector(acc).WithDroppedLines(dropped),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func logStats(ctx context.Context, acc *metrics.Accumulator, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := acc.Snapshot()
			monitoring.Logf("rx=%d lost=%d (%.2f%%) reordered=%d bad=%d | latency %.2f±%.2f ms | jitter %.2f ms | %.1f pkt/s",
				s.Received, s.Lost, s.LossRatePercent, s.Reordered, s.ParseErrors,
				s.AvgLatencyMs, s.LatencyStdDevMs, s.AvgJitterMs, s.PacketRate)
		}
	}
}

// writeSummary prints the session totals. dropped counts lines discarded
// locally; each one also shows up as a lost packet.
func writeSummary(w io.Writer, s metrics.Snapshot, dropped uint64) {
	fmt.Fprintf(w, "runtime:          %s\n", s.Runtime.Round(time.Millisecond))
	fmt.Fprintf(w, "packets received: %d\n", s.Received)
	fmt.Fprintf(w, "packets lost:     %d (%.2f%%)\n", s.Lost, s.LossRatePercent)
	fmt.Fprintf(w, "reordered:        %d\n", s.Reordered)
	fmt.Fprintf(w, "parse errors:     %d\n", s.ParseErrors)
	fmt.Fprintf(w, "lines dropped:    %d\n", dropped)
	if s.HasLastSequence {
		fmt.Fprintf(w, "last sequence:    %d\n", s.LastSequence)
	}
	fmt.Fprintf(w, "latency:          %.3f ms avg, %.3f ms std dev\n", s.AvgLatencyMs, s.LatencyStdDevMs)
	fmt.Fprintf(w, "jitter:           %.3f ms avg\n", s.AvgJitterMs)
	if s.HasRelayStatus {
		fmt.Fprintf(w, "relay status:     rx=%d tx=%d\n", s.RelayStatus.Received, s.RelayStatus.Forwarded)
	}
}
