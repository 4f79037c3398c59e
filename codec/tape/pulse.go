/*
NAME
  pulse.go

DESCRIPTION
  pulse.go provides PulseReader, which pairs two opposite-sign,
  non-zero sequences into a pulse: the third level of the tape-decoding
  pipeline. It requires a silence preamble before the first pulse and
  resynchronises to the next burst of silence via reset().

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package tape

import "fmt"

// MinZeroes is the minimum length of a zero-sign sequence accepted as the
// silence preamble before a leader.
const MinZeroes = 1000

// Pulse is one pair of adjacent, opposite-sign sequences.
type Pulse struct {
	Offset int64 // Offset of the pulse's first sequence.
	Len    int   // Total length: Len1 + Len2.
	Len1   int   // Length of the first half.
	Len2   int   // Length of the second half.
}

// PulseReader pairs the sequences of a SeqReader into pulses.
type PulseReader struct {
	seq     *SeqReader
	inBurst bool // True once the silence preamble has been consumed.
	eof     bool
}

// NewPulseReader returns a PulseReader reading from seq.
func NewPulseReader(seq *SeqReader) *PulseReader {
	return &PulseReader{seq: seq}
}

// Reset returns the reader to its initial phase, so the next Next() call
// re-seeks a silence preamble before resuming pulse pairing.
func (r *PulseReader) Reset() {
	r.inBurst = false
	r.eof = false
}

// Next returns the next pulse, or false once the underlying sequence
// stream ends. A diagnostic error comes with false when no silence
// preamble is found, a pulse half has no pair, or the halves share a sign.
func (r *PulseReader) Next() (Pulse, bool, error) {
	if r.eof {
		return Pulse{}, false, nil
	}

	if !r.inBurst {
		if err := r.seekSilence(); err != nil {
			r.eof = true
			return Pulse{}, false, err
		}
		r.inBurst = true
	}

	first, silence, ok := r.nextHalf()
	if !ok {
		r.eof = true
		return Pulse{}, false, nil
	}
	if silence {
		// End of this burst; resynchronise on the next call.
		r.inBurst = false
		return r.Next()
	}

	second, silence, ok := r.nextHalf()
	if !ok {
		r.eof = true
		return Pulse{}, false, fmt.Errorf("tape: pulse half at offset %d not followed by its pair", first.Offset)
	}
	if silence {
		// Burst ended between the two halves of a pulse; resynchronise.
		r.inBurst = false
		return r.Next()
	}
	if second.Sign != -first.Sign {
		r.eof = true
		return Pulse{}, false, fmt.Errorf("tape: pulse half at offset %d followed by sign %d, want %d", first.Offset, second.Sign, -first.Sign)
	}

	return Pulse{
		Offset: first.Offset,
		Len:    first.Length + second.Length,
		Len1:   first.Length,
		Len2:   second.Length,
	}, true, nil
}

// nextHalf returns the next non-zero sequence usable as one half of a
// pulse, skipping short zero-sign runs that fall between pulses. A
// zero-sign sequence of at least MinZeroes samples marks the end of the
// burst and is reported via the silence return rather than being
// skipped. ok is false only once the underlying sequence stream ends.
func (r *PulseReader) nextHalf() (s Seq, silence bool, ok bool) {
	for {
		s, ok = r.seq.Next()
		if !ok {
			return Seq{}, false, false
		}
		if s.Sign == 0 {
			if s.Length >= MinZeroes {
				return s, true, true
			}
			continue
		}
		return s, false, true
	}
}

// seekSilence consumes sequences until a zero-sign sequence of length at
// least MinZeroes is found, leaving the reader positioned to pair the
// next non-zero sequence as the first half of the next pulse.
func (r *PulseReader) seekSilence() error {
	for {
		s, ok := r.seq.Next()
		if !ok {
			return fmt.Errorf("tape: end of stream before %d-sample silence preamble", MinZeroes)
		}
		if s.Sign == 0 && s.Length >= MinZeroes {
			return nil
		}
	}
}
