/*
NAME
  seq.go

DESCRIPTION
  seq.go provides SeqReader, which groups consecutive same-sign samples
  from a SampleSource into run-length sequences: the second level of the
  tape-decoding pipeline.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package tape

// Seq is a maximal run of consecutive samples sharing the same sign.
type Seq struct {
	Sign   int   // -1, 0 or +1.
	Length int   // Number of samples in the run.
	Offset int64 // Byte offset of the run's first sample.
}

// SeqReader groups the samples of a SampleSource into signed runs.
type SeqReader struct {
	src *SampleSource
	eof bool
}

// NewSeqReader returns a SeqReader reading from src.
func NewSeqReader(src *SampleSource) *SeqReader {
	return &SeqReader{src: src}
}

// Next returns the next run of consecutive same-sign samples, including
// zero-sign runs. It reports false once the underlying sample stream is
// exhausted.
func (r *SeqReader) Next() (Seq, bool) {
	if r.eof {
		return Seq{}, false
	}

	s, ok := r.src.Peek()
	if !ok {
		r.eof = true
		return Seq{}, false
	}

	seq := Seq{Sign: s.Sign(), Length: 1, Offset: s.Offset}
	r.src.Advance()

	for {
		s, ok = r.src.Peek()
		if !ok {
			r.eof = true
			break
		}
		if s.Sign() != seq.Sign {
			break
		}
		seq.Length++
		r.src.Advance()
	}
	return seq, true
}
