/*
NAME
  sample.go

DESCRIPTION
  sample.go provides SampleSource, a forward-only reader over an 8-bit
  unsigned PCM audio capture, with a one-sample lookahead cache and a
  byte-offset counter. It is the leaf of the tape-decoding pipeline.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package tape implements the five-level signal-demodulation pipeline that
// turns an 8-bit unsigned PCM cassette capture into framed tape blocks:
// Sample -> Seq -> Pulse -> Bit -> Byte -> BlockFramer.
package tape

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
)

// WavHeaderSize is the opaque leading header skipped unconditionally
// before the first audio sample.
const WavHeaderSize = 44

// Sample is one 8-bit unsigned PCM sample and its byte offset in the file
// (the skipped header included, so the first sample is at WavHeaderSize).
type Sample struct {
	Value  byte
	Offset int64
}

// Sign returns the sample's sign: -1 if Value<0x80, 0 if Value==0x80, +1
// if Value>0x80.
func (s Sample) Sign() int {
	switch {
	case s.Value < 0x80:
		return -1
	case s.Value > 0x80:
		return 1
	default:
		return 0
	}
}

// SampleSource is a single-pass, forward-only reader over a WAV-like
// 8-bit unsigned PCM file, with a one-sample lookahead cache.
type SampleSource struct {
	r   *bufio.Reader
	f   *os.File
	pos int64 // Total bytes consumed so far, including the skipped header.
	cur Sample
	eof bool
}

// Open opens path for binary reading, discards the opaque WavHeaderSize
// leading bytes, and primes the one-sample lookahead cache. The first
// sample's offset is therefore WavHeaderSize, its position in the file.
func Open(path string) (*SampleSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tape: could not open %s: %w", path, err)
	}
	s := &SampleSource{r: bufio.NewReaderSize(f, 1<<16), f: f}
	if _, err := io.CopyN(io.Discard, s.r, WavHeaderSize); err != nil {
		f.Close()
		return nil, fmt.Errorf("tape: could not skip header of %s: %w", path, err)
	}
	s.pos = WavHeaderSize
	s.advance()
	return s, nil
}

// Close releases the underlying file.
func (s *SampleSource) Close() error { return s.f.Close() }

// Peek returns the current cached sample and whether one is available. It
// does not consume the sample.
func (s *SampleSource) Peek() (Sample, bool) {
	if s.eof {
		return Sample{}, false
	}
	return s.cur, true
}

// Advance consumes the current cached sample and refills the cache from
// the underlying reader.
func (s *SampleSource) Advance() {
	s.advance()
}

func (s *SampleSource) advance() {
	if s.eof {
		return
	}
	b, err := s.r.ReadByte()
	if err != nil {
		s.eof = true
		return
	}
	s.cur = Sample{Value: b, Offset: s.pos}
	s.pos++
}

// ErrEOF names the end of the sample stream. The readers in this package
// do not return it: they report exhaustion as ok=false.
var ErrEOF = errors.New("tape: end of sample stream")
