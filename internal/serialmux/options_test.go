package serialmux

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

func TestPortOptions_Normalize(t *testing.T) {
	tests := []struct {
		name    string
		in      PortOptions
		want    PortOptions
		wantErr bool
	}{
		{"defaults", PortOptions{}, PortOptions{BaudRate: DefaultBaudRate, DataBits: 8, StopBits: 1, Parity: "N"}, false},
		{"adc board", PortOptions{BaudRate: ADCBaudRate}, PortOptions{BaudRate: ADCBaudRate, DataBits: 8, StopBits: 1, Parity: "N"}, false},
		{"long parity names", PortOptions{Parity: " even "}, PortOptions{BaudRate: DefaultBaudRate, DataBits: 8, StopBits: 1, Parity: "E"}, false},
		{"odd two stop", PortOptions{BaudRate: 9600, DataBits: 7, StopBits: 2, Parity: "o"}, PortOptions{BaudRate: 9600, DataBits: 7, StopBits: 2, Parity: "O"}, false},
		{"bad data bits", PortOptions{DataBits: 9}, PortOptions{}, true},
		{"bad stop bits", PortOptions{StopBits: 3}, PortOptions{}, true},
		{"bad parity", PortOptions{Parity: "mark"}, PortOptions{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.in.Normalize()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPortOptions_SerialMode(t *testing.T) {
	mode, err := PortOptions{BaudRate: ADCBaudRate, StopBits: 2, Parity: "E"}.SerialMode()
	require.NoError(t, err)
	assert.Equal(t, &serial.Mode{
		BaudRate: ADCBaudRate,
		DataBits: 8,
		StopBits: serial.TwoStopBits,
		Parity:   serial.EvenParity,
	}, mode)

	mode, err = PortOptions{}.SerialMode()
	require.NoError(t, err)
	assert.Equal(t, serial.OneStopBit, mode.StopBits)
	assert.Equal(t, serial.NoParity, mode.Parity)

	_, err = PortOptions{Parity: "X"}.SerialMode()
	assert.Error(t, err)
}

func TestPrepare(t *testing.T) {
	var slept []time.Duration
	orig := sleep
	sleep = func(d time.Duration) { slept = append(slept, d) }
	t.Cleanup(func() { sleep = orig })

	port := NewTestableSerialPort()
	port.AddReadData([]byte("boot banner\n"))

	require.NoError(t, Prepare(port, OpenOptions{ReadTimeout: time.Second, ResetDelay: 1500 * time.Millisecond}))
	assert.Equal(t, time.Second, port.ReadTimeout)
	assert.Equal(t, []time.Duration{1500 * time.Millisecond}, slept)
	assert.Equal(t, 1, port.ResetCalls)
	assert.Zero(t, port.ReadBuffer.Len())

	// timed-out reads on an empty buffer report no data rather than EOF
	n, err := port.Read(make([]byte, 8))
	assert.Zero(t, n)
	assert.NoError(t, err)
}

func TestPrepare_NoOptions(t *testing.T) {
	port := NewTestableSerialPort()
	require.NoError(t, Prepare(port, OpenOptions{}))
	assert.Zero(t, port.ReadTimeout)
	assert.Zero(t, port.ResetCalls)
}

func TestMockOpener(t *testing.T) {
	adc := NewTestableSerialPort()
	opener := NewMockOpener(map[string]Port{"/dev/ttyUSB0": adc})

	port, err := opener.Open("/dev/ttyUSB0", OpenOptions{PortOptions: PortOptions{BaudRate: ADCBaudRate}, ReadTimeout: time.Second})
	require.NoError(t, err)
	assert.Same(t, adc, port)
	assert.Equal(t, time.Second, adc.ReadTimeout)

	_, err = opener.Open("/dev/missing", OpenOptions{})
	assert.Error(t, err)

	_, err = opener.Open("/dev/ttyUSB0", OpenOptions{PortOptions: PortOptions{DataBits: 12}})
	assert.Error(t, err)

	boom := errors.New("permission denied")
	opener.Error = boom
	_, err = opener.Open("/dev/ttyUSB0", OpenOptions{})
	assert.ErrorIs(t, err, boom)

	calls := opener.Calls()
	require.Len(t, calls, 4)
	assert.Equal(t, "/dev/missing", calls[1].Path)
}

func TestOpenPort_BadOptions(t *testing.T) {
	_, err := OpenPort("/dev/null", OpenOptions{PortOptions: PortOptions{Parity: "bogus"}})
	assert.Error(t, err)
}

func TestOpenSerialMux(t *testing.T) {
	testCases := []struct {
		name    string
		path    string
		opts    OpenOptions
		wantErr bool
	}{
		{"clears_read_timeout", "/dev/ttyTEL", OpenOptions{PortOptions: PortOptions{BaudRate: 9600}, ReadTimeout: time.Second}, false},
		{"blocking_by_default", "/dev/ttyTEL", OpenOptions{}, false},
		{"missing_device", "/dev/missing", OpenOptions{}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			port := NewTestableSerialPort()
			opener := NewMockOpener(map[string]Port{"/dev/ttyTEL": port})

			mux, err := OpenSerialMux(opener.Open, tc.path, tc.opts)
			calls := opener.Calls()
			require.Len(t, calls, 1)
			assert.Zero(t, calls[0].Opts.ReadTimeout)
			assert.Equal(t, tc.opts.BaudRate, calls[0].Opts.BaudRate)
			if tc.wantErr {
				assert.Error(t, err)
				assert.Nil(t, mux)
				return
			}
			require.NoError(t, err)
			assert.Zero(t, port.ReadTimeout)

			require.NoError(t, mux.Close())
			assert.True(t, port.Closed)
		})
	}
}
