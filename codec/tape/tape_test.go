/*
NAME
  tape_test.go

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package tape

import (
	"bytes"
	"os"
	"testing"
)

// writeTestWav writes a synthetic WAV-like file: a WavHeaderSize header
// followed by body, and returns its path for tape.Open.
func writeTestWav(t *testing.T, body []byte) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "tape-*.wav")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer f.Close()
	if _, err := f.Write(make([]byte, WavHeaderSize)); err != nil {
		t.Fatalf("write header: %v", err)
	}
	if _, err := f.Write(body); err != nil {
		t.Fatalf("write body: %v", err)
	}
	return f.Name()
}

func TestSeqReaderEmitsZeroSignRuns(t *testing.T) {
	var body []byte
	body = append(body, bytes.Repeat([]byte{0x80}, 5)...) // zero-sign run.
	body = append(body, bytes.Repeat([]byte{0xff}, 3)...) // positive run.
	body = append(body, bytes.Repeat([]byte{0x00}, 4)...) // negative run.

	src, err := Open(writeTestWav(t, body))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	sr := NewSeqReader(src)

	s, ok := sr.Next()
	if !ok || s.Sign != 0 || s.Length != 5 {
		t.Fatalf("first seq = %+v, ok=%v, want {Sign:0 Length:5}", s, ok)
	}
	s, ok = sr.Next()
	if !ok || s.Sign != 1 || s.Length != 3 {
		t.Fatalf("second seq = %+v, ok=%v, want {Sign:1 Length:3}", s, ok)
	}
	s, ok = sr.Next()
	if !ok || s.Sign != -1 || s.Length != 4 {
		t.Fatalf("third seq = %+v, ok=%v, want {Sign:-1 Length:4}", s, ok)
	}
	if _, ok = sr.Next(); ok {
		t.Error("expected EOF after three sequences")
	}
}

func TestPulseReaderEndToEnd(t *testing.T) {
	var body []byte
	body = append(body, bytes.Repeat([]byte{0x80}, MinZeroes)...) // silence preamble.
	body = append(body, bytes.Repeat([]byte{0xff}, 5)...)         // pulse 1, half 1.
	body = append(body, bytes.Repeat([]byte{0x00}, 5)...)         // pulse 1, half 2.
	body = append(body, bytes.Repeat([]byte{0x80}, 2)...)         // noise gap, below MinZeroes.
	body = append(body, bytes.Repeat([]byte{0xff}, 6)...)         // pulse 2, half 1.
	body = append(body, bytes.Repeat([]byte{0x00}, 6)...)         // pulse 2, half 2.

	src, err := Open(writeTestWav(t, body))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	pr := NewPulseReader(NewSeqReader(src))

	p, ok, err := pr.Next()
	if err != nil || !ok {
		t.Fatalf("first pulse: ok=%v, err=%v", ok, err)
	}
	if p.Len1 != 5 || p.Len2 != 5 {
		t.Errorf("first pulse = %+v, want Len1=5 Len2=5", p)
	}

	p, ok, err = pr.Next()
	if err != nil || !ok {
		t.Fatalf("second pulse: ok=%v, err=%v", ok, err)
	}
	if p.Len1 != 6 || p.Len2 != 6 {
		t.Errorf("second pulse (across noise gap) = %+v, want Len1=6 Len2=6", p)
	}
}

func TestSplitOrdering(t *testing.T) {
	// Regardless of tie-breaking, the derived windows must stay ordered
	// and non-overlapping, per spec.md §8's documented invariant.
	for _, base := range []float64{100, 235, 470, 940, 1337} {
		bit1Min := int(base * factBit1Lo)
		bit1Max, leadMin := split(base, factBit1Hi, factLeadLo)
		leadMax, bit0Min := split(base, factLeadHi, factBit0Lo)
		bit0Max, syncMin := split(base, factBit0Hi, factSyncLo)

		if !(bit1Max < leadMin) {
			t.Errorf("base=%v: bit1.max=%d not < lead.min=%d", base, bit1Max, leadMin)
		}
		if !(leadMin <= leadMax) {
			t.Errorf("base=%v: lead.min=%d not <= lead.max=%d", base, leadMin, leadMax)
		}
		if !(leadMax < bit0Min) {
			t.Errorf("base=%v: lead.max=%d not < bit0.min=%d", base, leadMax, bit0Min)
		}
		if !(bit0Min <= bit0Max) {
			t.Errorf("base=%v: bit0.min=%d not <= bit0.max=%d", base, bit0Min, bit0Max)
		}
		if !(bit0Max < syncMin) {
			t.Errorf("base=%v: bit0.max=%d not < sync.min=%d", base, bit0Max, syncMin)
		}
		_ = bit1Min
	}
}

func TestSampleSign(t *testing.T) {
	tests := []struct {
		v    byte
		want int
	}{
		{0x00, -1},
		{0x7f, -1},
		{0x80, 0},
		{0x81, 1},
		{0xff, 1},
	}
	for _, tt := range tests {
		if got := (Sample{Value: tt.v}).Sign(); got != tt.want {
			t.Errorf("Sign(0x%02x) = %d, want %d", tt.v, got, tt.want)
		}
	}
}

func TestPulseInvariant(t *testing.T) {
	p := Pulse{Len1: 12, Len2: 9}
	p.Len = p.Len1 + p.Len2
	if p.Len != 21 {
		t.Errorf("pulse length invariant broken: %+v", p)
	}
}

func TestByteInvariant(t *testing.T) {
	bits := []Bit{
		{Length: 3, Value: 1},
		{Length: 4, Value: 0},
		{Length: 5, Value: 1},
		{Length: 3, Value: 0},
		{Length: 3, Value: 1},
		{Length: 4, Value: 0},
		{Length: 5, Value: 1},
		{Length: 3, Value: 0},
	}
	var acc byte
	var total int
	for _, b := range bits {
		total += b.Length
		acc >>= 1
		if b.Value == 1 {
			acc |= 0x80
		}
	}
	if total != 30 {
		t.Errorf("byte length invariant: got %d, want 30", total)
	}
	// bits LSB-first: 1,0,1,0,1,0,1,0 -> 0b01010101 = 0x55.
	if acc != 0x55 {
		t.Errorf("byte value = 0x%02x, want 0x55", acc)
	}
}
