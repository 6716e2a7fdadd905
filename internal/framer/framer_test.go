package framer_test

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"testing/iotest"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/serialscope/internal/framer"
	"github.com/banshee-data/serialscope/internal/testutil"
)

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestEncode(t *testing.T) {
	got := framer.Encode(framer.RawFrame{Input: 300, Output: 700})
	want := []byte{0xAA, 0x55, 0x2C, 0x01, 0xBC, 0x02}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Encode mismatch (-want +got):\n%s", diff)
	}
}

func TestFramer_RoundTripWithLeadingGarbage(t *testing.T) {
	stream := concat(
		[]byte{0x00, 0x13, 0xAA, 0x01, 0x55, 0xFF},
		framer.Encode(framer.RawFrame{Input: 300, Output: 700}),
		framer.Encode(framer.RawFrame{Input: 1, Output: 1023}),
	)
	f := framer.New(bytes.NewReader(stream))

	frame, ok, err := f.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, framer.RawFrame{Input: 300, Output: 700}, frame)

	// resumes cleanly on the following frame
	frame, ok, err = f.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, framer.RawFrame{Input: 1, Output: 1023}, frame)

	_, ok, err = f.Next()
	assert.False(t, ok)
	assert.ErrorIs(t, err, io.EOF)

	stats := f.Stats()
	assert.Equal(t, uint64(2), stats.Frames)
	assert.Equal(t, uint64(6), stats.Skipped)
	assert.Zero(t, stats.Truncated)
}

func TestFramer_OneByteAtATime(t *testing.T) {
	want := []framer.RawFrame{{Input: 0, Output: 0}, {Input: 512, Output: 256}, {Input: 1023, Output: 7}}
	var stream []byte
	for _, fr := range want {
		stream = append(stream, 0x42)
		stream = append(stream, framer.Encode(fr)...)
	}

	f := framer.New(iotest.OneByteReader(bytes.NewReader(stream)))
	var got []framer.RawFrame
	for {
		fr, ok, err := f.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		if ok {
			got = append(got, fr)
		}
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("frames mismatch (-want +got):\n%s", diff)
	}
}

func TestFramer_RepeatedFirstMarkerByte(t *testing.T) {
	// 0xAA 0xAA 0x55 must still lock onto the second 0xAA.
	stream := concat([]byte{0xAA}, framer.Encode(framer.RawFrame{Input: 5, Output: 6}))
	f := framer.New(bytes.NewReader(stream))

	frame, ok, err := f.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, framer.RawFrame{Input: 5, Output: 6}, frame)
	assert.Equal(t, uint64(1), f.Stats().Skipped)
}

func TestFramer_TimeoutWithoutData(t *testing.T) {
	r := testutil.NewChunkReader(nil, framer.Encode(framer.RawFrame{Input: 9, Output: 10}))
	f := framer.New(r)

	_, ok, err := f.Next()
	assert.NoError(t, err, "timeout is not an error")
	assert.False(t, ok)

	frame, ok, err := f.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, framer.RawFrame{Input: 9, Output: 10}, frame)
}

func TestFramer_TruncatedFrameDiscarded(t *testing.T) {
	full := framer.Encode(framer.RawFrame{Input: 100, Output: 200})
	r := testutil.NewChunkReader(
		full[:4], // marker + 2 payload bytes
		nil,      // read timeout mid-payload
		full[4:], // tail of the abandoned frame is noise now
		framer.Encode(framer.RawFrame{Input: 300, Output: 400}),
	)
	f := framer.New(r)

	_, ok, err := f.Next()
	require.NoError(t, err)
	assert.False(t, ok, "partial frame must never be emitted")

	frame, ok, err := f.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, framer.RawFrame{Input: 300, Output: 400}, frame)

	stats := f.Stats()
	assert.Equal(t, uint64(1), stats.Truncated)
	assert.Equal(t, uint64(1), stats.Frames)
}

func TestFramer_PayloadSplitAcrossReads(t *testing.T) {
	full := framer.Encode(framer.RawFrame{Input: 1000, Output: 3})
	r := testutil.NewChunkReader(full[:3], full[3:])
	f := framer.New(r)

	frame, ok, err := f.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, framer.RawFrame{Input: 1000, Output: 3}, frame)
}

func TestFramer_ReadErrorIsFatal(t *testing.T) {
	boom := errors.New("device disconnected")
	r := testutil.NewChunkReader([]byte{0x01, 0x02})
	r.Err = boom
	f := framer.New(r)

	_, ok, err := f.Next()
	assert.False(t, ok)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, io.EOF)
}

func TestFramer_BytesDeliveredWithError(t *testing.T) {
	boom := errors.New("late failure")
	data := framer.Encode(framer.RawFrame{Input: 11, Output: 22})
	f := framer.New(iotest.DataErrReader(io.MultiReader(bytes.NewReader(data), iotest.ErrReader(boom))))

	frame, ok, err := f.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, framer.RawFrame{Input: 11, Output: 22}, frame)

	_, _, err = f.Next()
	assert.ErrorIs(t, err, boom)
}

func TestADC_Volts(t *testing.T) {
	adc := framer.DefaultADC()
	assert.InDelta(t, 5.0, adc.Volts(1023), 1e-12)
	assert.InDelta(t, 0.0, adc.Volts(0), 1e-12)

	in, out := adc.FrameVolts(framer.RawFrame{Input: 1023, Output: 0})
	assert.InDelta(t, 5.0, in, 1e-12)
	assert.InDelta(t, 0.0, out, 1e-12)

	assert.Zero(t, framer.ADC{}.Volts(512), "zero-value ADC must not divide by zero")
}
