/*
NAME
  byte.go

DESCRIPTION
  byte.go provides ByteReader, which accumulates eight classified bits,
  LSB-first, into a byte: the fifth level of the tape-decoding pipeline.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package tape

import "fmt"

// TapeByte is one byte reconstructed from eight consecutive bits.
type TapeByte struct {
	Offset int64 // Offset of the first bit.
	Length int   // Sum of the eight bits' lengths.
	Value  byte
}

// ByteReader packs the bits of a BitReader into bytes, LSB-first: before
// each new bit the accumulator is right-shifted by one and the bit is set
// into bit 7, so after the 8th bit the first bit received sits in bit 0.
type ByteReader struct {
	bits *BitReader
}

// NewByteReader returns a ByteReader reading from bits.
func NewByteReader(bits *BitReader) *ByteReader {
	return &ByteReader{bits: bits}
}

// Reset returns the underlying BitReader to its initial state, forcing
// re-synchronisation (silence-seek, leader measurement, sync detection)
// before the next byte is read.
func (r *ByteReader) Reset() {
	r.bits.Reset()
}

// Next reads eight bits and returns the byte they form.
func (r *ByteReader) Next() (TapeByte, bool, error) {
	var acc byte
	var offset int64
	var length int
	for n := 0; n < 8; n++ {
		b, ok, err := r.bits.Next()
		if err != nil {
			return TapeByte{}, false, err
		}
		if !ok {
			if n == 0 {
				return TapeByte{}, false, nil
			}
			return TapeByte{}, false, fmt.Errorf("tape: end of stream after %d of 8 bits of a byte starting at offset %d", n, offset)
		}
		if n == 0 {
			offset = b.Offset
		}
		length += b.Length
		acc >>= 1
		if b.Value == 1 {
			acc |= 0x80
		}
	}
	return TapeByte{Offset: offset, Length: length, Value: acc}, true, nil
}
