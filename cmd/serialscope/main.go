// Command serialscope monitors serial telemetry links and characterises
// analog filters with a serial signal generator and ADC board.
//
//	serialscope [-config file.json] [-debug] monitor [flags]
//	serialscope [-config file.json] [-debug] live [flags]
//	serialscope [-config file.json] [-debug] sweep [flags]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/serialscope/internal/config"
	"github.com/banshee-data/serialscope/internal/monitoring"
	"github.com/banshee-data/serialscope/internal/serialmux"
	"github.com/banshee-data/serialscope/internal/timeutil"
	"github.com/banshee-data/serialscope/internal/version"
)

const usage = `usage: serialscope [-config file.json] [-debug] [-version] <command> [flags]

commands:
  monitor   decode a telemetry line stream and report link health
  live      stream ADC frames and report signal levels continuously
  sweep     step the signal generator and measure the filter response
`

var errUnknownCommand = errors.New("unknown command")

// app carries the dependencies the commands share so tests can substitute
// serial ports and output streams.
type app struct {
	open   serialmux.Opener
	clock  timeutil.Clock
	stdout io.Writer
	stderr io.Writer

	// onDebugListen, when set, receives the bound debug listener address.
	onDebugListen func(addr string)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{
		open:   serialmux.OpenPort,
		clock:  timeutil.RealClock{},
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	if err := a.run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		monitoring.Logf("serialscope: %v", err)
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serialscope", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	configPath := fs.String("config", "", "JSON config file supplying flag defaults")
	debug := fs.Bool("debug", false, "Enable debug logging")
	showVersion := fs.Bool("version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *showVersion {
		fmt.Fprintln(a.stdout, version.String())
		return nil
	}

	monitoring.Setup(nil, *debug)

	cfg := config.Empty()
	if *configPath != "" {
		loaded, err := config.LoadConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		monitoring.Logf("loaded config from %s", *configPath)
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return fmt.Errorf("%w: none given", errUnknownCommand)
	}

	switch cmd, cmdArgs := rest[0], rest[1:]; cmd {
	case "monitor":
		return a.runMonitor(ctx, cfg, cmdArgs)
	case "live":
		return a.runLive(ctx, cfg, cmdArgs)
	case "sweep":
		return a.runSweep(ctx, cfg, cmdArgs)
	default:
		fs.Usage()
		return fmt.Errorf("%w %q", errUnknownCommand, cmd)
	}
}

// ignoreCanceled treats an interrupt as a normal end of the command.
func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
