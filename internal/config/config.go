// Package config loads the optional JSON file that supplies defaults for the
// serialscope commands. Every field is optional; the Get* accessors return
// the built-in default for fields the file leaves out, and command-line
// flags override both.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ExampleConfigPath is the documented example shipped with the repository.
const ExampleConfigPath = "config/serialscope.example.json"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Config is the root configuration. Durations are strings like "250ms".
type Config struct {
	// Telemetry monitor
	Port           *string  `json:"port,omitempty"`
	BaudRate       *int     `json:"baud_rate,omitempty"`
	Variant        *string  `json:"variant,omitempty"` // auto, relay or wireless
	Window         *int     `json:"window,omitempty"`
	MaxRate        *float64 `json:"max_rate,omitempty"`
	VerifyChecksum *bool    `json:"verify_checksum,omitempty"`
	StatsInterval  *string  `json:"stats_interval,omitempty"`
	DebugListen    *string  `json:"debug_listen,omitempty"`

	// Acquisition board
	ArduinoPort  *string  `json:"arduino_port,omitempty"`
	ADCBaudRate  *int     `json:"adc_baud_rate,omitempty"`
	ResetDelay   *string  `json:"reset_delay,omitempty"`
	ReadTimeout  *string  `json:"read_timeout,omitempty"`
	SampleRateHz *float64 `json:"sample_rate_hz,omitempty"`
	ADCMaxCode   *int     `json:"adc_max_code,omitempty"`
	ADCVRef      *float64 `json:"adc_vref,omitempty"`

	// Live capture
	PlotWindow     *int    `json:"plot_window,omitempty"`
	ReportInterval *string `json:"report_interval,omitempty"`

	// Frequency sweep
	GeneratorPort       *string  `json:"generator_port,omitempty"`
	SamplesPerFrequency *int     `json:"samples_per_frequency,omitempty"`
	Settle              *string  `json:"settle,omitempty"`
	FrameTimeout        *string  `json:"frame_timeout,omitempty"`
	StartHz             *float64 `json:"start_hz,omitempty"`
	EndHz               *float64 `json:"end_hz,omitempty"`
	StepHz              *float64 `json:"step_hz,omitempty"`
	OutputCSV           *string  `json:"output_csv,omitempty"`
	PlotPath            *string  `json:"plot_path,omitempty"`
	ChartPath           *string  `json:"chart_path,omitempty"`

	// Reference filter
	ResistanceOhms    *float64 `json:"resistance_ohms,omitempty"`
	CapacitanceFarads *float64 `json:"capacitance_farads,omitempty"`
}

// Empty returns a Config with every field unset, so every accessor reports
// its default.
func Empty() *Config {
	return &Config{}
}

// LoadConfig loads a Config from a JSON file. The file must have a .json
// extension and be under 1MB. Unknown keys are rejected so that typos do
// not silently fall back to defaults.
func LoadConfig(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	f, err := os.Open(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	defer f.Close()

	cfg := Empty()
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the fields that are set.
func (c *Config) Validate() error {
	if c.Variant != nil {
		switch *c.Variant {
		case "", "auto", "relay", "wireless":
		default:
			return fmt.Errorf("variant must be auto, relay or wireless, got %q", *c.Variant)
		}
	}

	positiveInts := []struct {
		name string
		v    *int
	}{
		{"baud_rate", c.BaudRate},
		{"window", c.Window},
		{"adc_baud_rate", c.ADCBaudRate},
		{"adc_max_code", c.ADCMaxCode},
		{"plot_window", c.PlotWindow},
		{"samples_per_frequency", c.SamplesPerFrequency},
	}
	for _, p := range positiveInts {
		if p.v != nil && *p.v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", p.name, *p.v)
		}
	}

	positiveFloats := []struct {
		name string
		v    *float64
	}{
		{"max_rate", c.MaxRate},
		{"sample_rate_hz", c.SampleRateHz},
		{"adc_vref", c.ADCVRef},
		{"start_hz", c.StartHz},
		{"end_hz", c.EndHz},
		{"step_hz", c.StepHz},
		{"resistance_ohms", c.ResistanceOhms},
		{"capacitance_farads", c.CapacitanceFarads},
	}
	for _, p := range positiveFloats {
		if p.v != nil && *p.v <= 0 {
			return fmt.Errorf("%s must be positive, got %g", p.name, *p.v)
		}
	}
	if c.StartHz != nil && c.EndHz != nil && *c.EndHz < *c.StartHz {
		return fmt.Errorf("end_hz %g is below start_hz %g", *c.EndHz, *c.StartHz)
	}

	durations := []struct {
		name string
		v    *string
	}{
		{"stats_interval", c.StatsInterval},
		{"reset_delay", c.ResetDelay},
		{"read_timeout", c.ReadTimeout},
		{"report_interval", c.ReportInterval},
		{"settle", c.Settle},
		{"frame_timeout", c.FrameTimeout},
	}
	for _, d := range durations {
		if d.v == nil || *d.v == "" {
			continue
		}
		v, err := time.ParseDuration(*d.v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", d.name, *d.v, err)
		}
		if v < 0 {
			return fmt.Errorf("%s must be non-negative, got %s", d.name, *d.v)
		}
	}
	return nil
}

func getString(p *string, def string) string {
	if p == nil || *p == "" {
		return def
	}
	return *p
}

func getInt(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func getFloat(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

// getDuration falls back to def when the field is unset or unparsable.
func getDuration(p *string, def time.Duration) time.Duration {
	if p == nil || *p == "" {
		return def
	}
	d, err := time.ParseDuration(*p)
	if err != nil {
		return def
	}
	return d
}

// GetPort returns the telemetry serial device.
func (c *Config) GetPort() string { return getString(c.Port, "/dev/ttyUSB0") }

// GetBaudRate returns the telemetry baud rate.
func (c *Config) GetBaudRate() int { return getInt(c.BaudRate, 115200) }

// GetVariant returns the telemetry line format name.
func (c *Config) GetVariant() string { return getString(c.Variant, "auto") }

// GetWindow returns the metrics window length.
func (c *Config) GetWindow() int { return getInt(c.Window, 300) }

// GetMaxRate returns the rate recorded for zero inter-arrival gaps.
func (c *Config) GetMaxRate() float64 { return getFloat(c.MaxRate, 1000) }

// GetVerifyChecksum reports whether relay checksums are enforced.
func (c *Config) GetVerifyChecksum() bool {
	if c.VerifyChecksum == nil {
		return false
	}
	return *c.VerifyChecksum
}

// GetStatsInterval returns how often the monitor logs a summary.
func (c *Config) GetStatsInterval() time.Duration {
	return getDuration(c.StatsInterval, time.Second)
}

// GetDebugListen returns the debug HTTP listen address. Empty disables it.
func (c *Config) GetDebugListen() string { return getString(c.DebugListen, "") }

// GetArduinoPort returns the acquisition board's serial device.
func (c *Config) GetArduinoPort() string { return getString(c.ArduinoPort, "/dev/ttyUSB0") }

// GetADCBaudRate returns the acquisition board's baud rate.
func (c *Config) GetADCBaudRate() int { return getInt(c.ADCBaudRate, 230400) }

// GetResetDelay returns how long to wait for the board to reboot after the
// port opens.
func (c *Config) GetResetDelay() time.Duration {
	return getDuration(c.ResetDelay, 1500*time.Millisecond)
}

// GetReadTimeout returns the read timeout for the acquisition board port.
// Zero means reads block.
func (c *Config) GetReadTimeout() time.Duration {
	return getDuration(c.ReadTimeout, 100*time.Millisecond)
}

// GetSampleRateHz returns the acquisition sample rate.
func (c *Config) GetSampleRateHz() float64 { return getFloat(c.SampleRateHz, 2000) }

// GetADCMaxCode returns the full-scale ADC code.
func (c *Config) GetADCMaxCode() int { return getInt(c.ADCMaxCode, 1023) }

// GetADCVRef returns the ADC reference voltage.
func (c *Config) GetADCVRef() float64 { return getFloat(c.ADCVRef, 5.0) }

// GetPlotWindow returns the live capture window length.
func (c *Config) GetPlotWindow() int { return getInt(c.PlotWindow, 600) }

// GetReportInterval returns how often live capture reports.
func (c *Config) GetReportInterval() time.Duration {
	return getDuration(c.ReportInterval, 500*time.Millisecond)
}

// GetGeneratorPort returns the signal generator's serial device.
func (c *Config) GetGeneratorPort() string { return getString(c.GeneratorPort, "/dev/ttyUSB1") }

// GetSamplesPerFrequency returns the sweep batch size.
func (c *Config) GetSamplesPerFrequency() int { return getInt(c.SamplesPerFrequency, 1024) }

// GetSettle returns the wait after each frequency change.
func (c *Config) GetSettle() time.Duration {
	return getDuration(c.Settle, 250*time.Millisecond)
}

// GetFrameTimeout returns how long a sweep waits without frames.
func (c *Config) GetFrameTimeout() time.Duration {
	return getDuration(c.FrameTimeout, 5*time.Second)
}

// GetStartHz returns the first sweep frequency.
func (c *Config) GetStartHz() float64 { return getFloat(c.StartHz, 50) }

// GetEndHz returns the last sweep frequency.
func (c *Config) GetEndHz() float64 { return getFloat(c.EndHz, 5000) }

// GetStepHz returns the sweep step.
func (c *Config) GetStepHz() float64 { return getFloat(c.StepHz, 50) }

// GetOutputCSV returns the sweep results path.
func (c *Config) GetOutputCSV() string { return getString(c.OutputCSV, "sweep_results.csv") }

// GetPlotPath returns the Bode PNG path. Empty disables the plot.
func (c *Config) GetPlotPath() string { return getString(c.PlotPath, "") }

// GetChartPath returns the HTML chart path. Empty disables the chart.
func (c *Config) GetChartPath() string { return getString(c.ChartPath, "") }

// GetResistanceOhms returns the reference filter resistance.
func (c *Config) GetResistanceOhms() float64 { return getFloat(c.ResistanceOhms, 10_000) }

// GetCapacitanceFarads returns the reference filter capacitance.
func (c *Config) GetCapacitanceFarads() float64 { return getFloat(c.CapacitanceFarads, 0.1e-6) }
