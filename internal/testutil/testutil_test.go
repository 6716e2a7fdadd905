package testutil

import (
	"errors"
	"io"
	"math"
	"testing"
)

func TestSine(t *testing.T) {
	s := Sine(8, 8, 1, 2, 0, 1)
	if len(s) != 8 {
		t.Fatalf("len = %d, want 8", len(s))
	}
	if math.Abs(s[0]-1) > 1e-12 {
		t.Errorf("s[0] = %v, want dc 1", s[0])
	}
	if math.Abs(s[2]-3) > 1e-12 {
		t.Errorf("s[2] = %v, want peak 3", s[2])
	}
}

func TestSine_Phase(t *testing.T) {
	s := Sine(1, 1000, 10, 1, 90, 0)
	if math.Abs(s[0]-1) > 1e-12 {
		t.Errorf("90 degree phase should start at the peak, got %v", s[0])
	}
}

func TestQuantize_Clamps(t *testing.T) {
	codes := Quantize([]float64{-1, 0, 2.5, 5, 6}, 1023, 5)
	want := []uint16{0, 0, 512, 1023, 1023}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("codes[%d] = %d, want %d", i, codes[i], want[i])
		}
	}
}

func TestChunkReader(t *testing.T) {
	timeouts := 0
	r := NewChunkReader([]byte("abc"), nil, []byte("d"))
	r.OnTimeout = func() { timeouts++ }

	buf := make([]byte, 2)
	n, err := r.Read(buf)
	AssertNoError(t, err)
	if string(buf[:n]) != "ab" {
		t.Errorf("first read = %q", buf[:n])
	}
	n, err = r.Read(buf)
	AssertNoError(t, err)
	if string(buf[:n]) != "c" {
		t.Errorf("second read = %q", buf[:n])
	}
	n, err = r.Read(buf)
	if n != 0 || err != nil {
		t.Errorf("timeout read = (%d, %v), want (0, nil)", n, err)
	}
	if timeouts != 1 {
		t.Errorf("OnTimeout called %d times", timeouts)
	}
	n, _ = r.Read(buf)
	if string(buf[:n]) != "d" {
		t.Errorf("fourth read = %q", buf[:n])
	}
	if _, err := r.Read(buf); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF once exhausted, got %v", err)
	}
}

func TestChunkReader_CustomError(t *testing.T) {
	boom := errors.New("device unplugged")
	r := NewChunkReader()
	r.Err = boom
	if _, err := r.Read(make([]byte, 1)); !errors.Is(err, boom) {
		t.Errorf("expected scripted error, got %v", err)
	}
	r.Append([]byte("x"))
	if r.Remaining() != 1 {
		t.Errorf("Remaining = %d, want 1", r.Remaining())
	}
}
