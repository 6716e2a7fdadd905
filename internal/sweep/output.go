package sweep

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// CSVHeader is the column order of the results table.
var CSVHeader = []string{
	"frequency_hz",
	"vin_rms_v",
	"vout_rms_v",
	"gain_db_measured",
	"phase_deg_measured",
	"gain_db_theoretical",
	"phase_deg_theoretical",
}

// WriteCSV writes the header followed by one row per result. The header is
// written even when results is empty.
func WriteCSV(w io.Writer, results []Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range results {
		if err := cw.Write(formatRow(r)); err != nil {
			return fmt.Errorf("write csv row for %.2f Hz: %w", r.FrequencyHz, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatRow(r Result) []string {
	return []string{
		formatFloat(r.FrequencyHz),
		formatFloat(r.InputRMSV),
		formatFloat(r.OutputRMSV),
		formatFloat(r.GainDBMeasured),
		formatFloat(r.PhaseDegMeasured),
		formatFloat(r.GainDBTheoretical),
		formatFloat(r.PhaseDegTheoretical),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// SaveCSV writes results to path, creating parent directories as needed.
func SaveCSV(path string, results []Result) (err error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create results file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close results file: %w", cerr)
		}
	}()
	return WriteCSV(f, results)
}
