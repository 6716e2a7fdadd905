package sweep

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/serialscope/internal/response"
)

func sampleResults() []Result {
	h := response.HighPass{ResistanceOhms: response.DefaultResistanceOhms, CapacitanceFarads: response.DefaultCapacitanceFarads}
	var out []Result
	for _, f := range []float64{50, 100, 200, 500, 1000} {
		th := h.Response(f)
		out = append(out, Result{
			FrequencyHz:         f,
			InputRMSV:           1.414,
			OutputRMSV:          1.414 * th.Magnitude,
			GainDBMeasured:      th.GainDB + 0.1,
			PhaseDegMeasured:    th.PhaseDeg - 0.5,
			GainDBTheoretical:   th.GainDB,
			PhaseDegTheoretical: th.PhaseDeg,
		})
	}
	return out
}

func TestWriteCSV_HeaderAlwaysPresent(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, "frequency_hz,vin_rms_v,vout_rms_v,gain_db_measured,phase_deg_measured,gain_db_theoretical,phase_deg_theoretical\n", buf.String())
}

func TestWriteCSV_Rows(t *testing.T) {
	results := []Result{{
		FrequencyHz:         150,
		InputRMSV:           1.25,
		OutputRMSV:          0.5,
		GainDBMeasured:      -7.958800,
		PhaseDegMeasured:    46.5,
		GainDBTheoretical:   -3.1,
		PhaseDegTheoretical: 46.7,
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, results))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	want := [][]string{
		CSVHeader,
		{"150.000000", "1.250000", "0.500000", "-7.958800", "46.500000", "-3.100000", "46.700000"},
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("csv mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteCSV_GainFloor(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []Result{{FrequencyHz: 10, GainDBMeasured: response.GainFloorDB}}))
	assert.Contains(t, buf.String(), "-999.000000")
}

func TestSaveCSV_CreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results", "nested", "measurements.csv")
	require.NoError(t, SaveCSV(path, sampleResults()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 6)
}

func TestSaveCSV_BadPath(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	err := SaveCSV(filepath.Join(blocker, "out.csv"), nil)
	assert.Error(t, err)
}

func TestSavePlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bode.png")
	require.NoError(t, SavePlot(path, "RC high-pass", sampleResults()))

	for _, p := range []string{path, PhasePlotPath(path)} {
		info, err := os.Stat(p)
		require.NoError(t, err, p)
		assert.Greater(t, info.Size(), int64(0), p)
	}
}

func TestSavePlot_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bode.png")
	assert.ErrorIs(t, SavePlot(path, "x", nil), ErrNoResults)
	assert.ErrorIs(t, SavePlot(path, "x", []Result{{FrequencyHz: 0}}), ErrNoResults)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestPhasePlotPath(t *testing.T) {
	assert.Equal(t, "out/bode_phase.png", PhasePlotPath("out/bode.png"))
	assert.Equal(t, "bode_phase", PhasePlotPath("bode"))
}

func TestWriteChart(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteChart(&buf, "RC high-pass", sampleResults()))

	html := buf.String()
	assert.Contains(t, html, "<html")
	assert.Contains(t, html, "RC high-pass - Magnitude")
	assert.Contains(t, html, "RC high-pass - Phase")
	assert.Contains(t, html, "Theoretical")

	assert.ErrorIs(t, WriteChart(&buf, "x", nil), ErrNoResults)
}
