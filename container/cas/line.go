/*
NAME
  line.go

DESCRIPTION
  line.go implements the framed-line format used for the CAS body: a
  length-prefixed, line-numbered, 0xFF-terminated record of tokenised
  BASIC payload bytes.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package cas

import (
	"fmt"

	"github.com/ausocean/tvc/container/cas/token"
)

// MaxPayload is the largest tokenised payload a single line may carry,
// including its own trailing 0xFF terminator (255 max frame length,
// minus 1 length byte and 2 line-number bytes).
const MaxPayload = 255 - 1 - 2

// MaxLineLen is the largest line number representable (a uint16).
const MaxLineLen = 65535

// Line is one decoded frame of the CAS body.
type Line struct {
	Number uint16
	// Payload is the tokenised line, terminated by its own trailing
	// 0xFF (token.LineEnd), as produced by the tokeniser.
	Payload []byte
}

// Encode serialises l as len ‖ no_lo ‖ no_hi ‖ payload. Payload must
// already carry its trailing 0xFF; Encode does not add one.
func (l Line) Encode() ([]byte, error) {
	if len(l.Payload) > MaxPayload {
		return nil, ErrLineTooLong
	}
	frameLen := 1 + 2 + len(l.Payload)
	buf := make([]byte, 0, frameLen)
	buf = append(buf, byte(frameLen))
	buf = append(buf, byte(l.Number&0xff), byte(l.Number>>8))
	buf = append(buf, l.Payload...)
	return buf, nil
}

// DecodeLine decodes one framed line starting at body[0]. It returns the
// decoded line, the number of bytes consumed from body, and an error if
// body does not hold a complete, well-formed frame.
//
// A len byte of token.PrgEnd (0x00) is not a line; callers must check for
// the program terminator before calling DecodeLine.
func DecodeLine(body []byte) (Line, int, error) {
	if len(body) < 1 {
		return Line{}, 0, fmt.Errorf("cas: truncated body: no length byte")
	}
	n := int(body[0])
	if n < 3 {
		return Line{}, 0, fmt.Errorf("cas: %w: frame length %d < 3", ErrContainerCorrupt, n)
	}
	if n > len(body) {
		return Line{}, 0, fmt.Errorf("cas: %w: frame length %d exceeds remaining body", ErrContainerCorrupt, n)
	}
	frame := body[:n]
	no := uint16(frame[1]) | uint16(frame[2])<<8
	payload := frame[3:]
	if len(payload) > 0 && payload[len(payload)-1] == token.LineEnd {
		payload = payload[:len(payload)-1]
	}
	return Line{Number: no, Payload: payload}, n, nil
}
