/*
NAME
  line_test.go

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package cas

import (
	"bytes"
	"testing"

	"github.com/ausocean/tvc/container/cas/token"
)

func TestLineRoundTrip(t *testing.T) {
	l := Line{Number: 65535, Payload: []byte{0x41, 0x42, token.LineEnd}}
	enc, err := l.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, n, err := DecodeLine(enc)
	if err != nil {
		t.Fatalf("DecodeLine: %v", err)
	}
	if n != len(enc) {
		t.Errorf("DecodeLine consumed %d bytes, want %d", n, len(enc))
	}
	if got.Number != l.Number {
		t.Errorf("Number = %d, want %d", got.Number, l.Number)
	}
	if !bytes.Equal(got.Payload, []byte{0x41, 0x42}) {
		t.Errorf("Payload = %x, want 4142 (trailing 0xFF stripped)", got.Payload)
	}
}

func TestLineMaxPayload(t *testing.T) {
	payload := make([]byte, MaxPayload)
	for i := range payload {
		payload[i] = 'A'
	}
	payload[len(payload)-1] = token.LineEnd
	l := Line{Number: 1, Payload: payload}
	enc, err := l.Encode()
	if err != nil {
		t.Fatalf("Encode at MaxPayload: %v", err)
	}
	if len(enc) != 255 {
		t.Errorf("frame length = %d, want 255", len(enc))
	}
}

func TestLineOverMaxPayload(t *testing.T) {
	payload := make([]byte, MaxPayload+1)
	l := Line{Number: 1, Payload: payload}
	if _, err := l.Encode(); err == nil {
		t.Error("Encode with payload > MaxPayload did not error")
	}
}

func TestDecodeLineTruncated(t *testing.T) {
	if _, _, err := DecodeLine([]byte{5, 1, 0}); err == nil {
		t.Error("DecodeLine with truncated frame did not error")
	}
}

func TestDecodeLineBadLength(t *testing.T) {
	if _, _, err := DecodeLine([]byte{2, 1, 0, 0}); err == nil {
		t.Error("DecodeLine with frame length < 3 did not error")
	}
}
