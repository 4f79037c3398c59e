/*
NAME
  bit.go

DESCRIPTION
  bit.go provides BitReader, which adapts the pulse classifier to a
  recording's actual speed: it estimates the leader's average pulse
  length, derives four classification intervals from it, consumes the
  remainder of the leader, locates the sync pulse, then classifies the
  data pulses that follow as bit-0 or bit-1.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package tape

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Tuning constants for average estimation, per spec.md §4.4 step 1.
const (
	avgBatchSize  = 100
	avgMaxAttempts = 20
	avgTolerance  = 0.05
)

// Pulse-width classification factors, relative to the measured leader
// average pulse length, per spec.md §4.4 step 2.
const (
	factBit1Lo = 388.0 / 470.0 * (1 - avgTolerance)
	factBit1Hi = 388.0 / 470.0 * (1 + avgTolerance)
	factLeadLo = 1 - avgTolerance
	factLeadHi = 1 + avgTolerance
	factBit0Lo = 552.0 / 470.0 * (1 - avgTolerance)
	factBit0Hi = 552.0 / 470.0 * (1 + avgTolerance)
	factSyncLo = 736.0 / 470.0 * (1 - avgTolerance)
	factSyncHi = 736.0 / 470.0 * 1.35
)

// interval is an inclusive classification window over pulse length.
type interval struct {
	min, max int
}

func (iv interval) contains(n int) bool { return n >= iv.min && n <= iv.max }

// Bit is one classified pulse.
type Bit struct {
	Offset int64
	Length int
	Value  int // 0 or 1.
}

// bitState is the BitReader's position within a block.
type bitState int

const (
	bitStateInit bitState = iota
	bitStateLeader
	bitStateSync
	bitStateData
	bitStateEOF
)

// BitReader classifies the pulses of a PulseReader into bits, having
// adapted its classification intervals to the recording's own speed.
type BitReader struct {
	pulses *PulseReader
	state  bitState

	headAvgLen float64
	bit1, lead, bit0, sync interval
	pending *Pulse // A non-leader pulse read by consumeLeader, held for detectSync.
}

// NewBitReader returns a BitReader reading from pulses.
func NewBitReader(pulses *PulseReader) *BitReader {
	return &BitReader{pulses: pulses, state: bitStateInit}
}

// Reset returns the reader to INIT, so that the next Next() call
// re-estimates the average pulse length and re-derives classification
// intervals for the next block.
func (r *BitReader) Reset() {
	r.state = bitStateInit
	r.pending = nil
	r.pulses.Reset()
}

// Next returns the next classified bit.
func (r *BitReader) Next() (Bit, bool, error) {
	switch r.state {
	case bitStateEOF:
		return Bit{}, false, nil
	case bitStateInit:
		if err := r.estimateAverage(); err != nil {
			r.state = bitStateEOF
			return Bit{}, false, err
		}
		r.deriveIntervals()
		r.state = bitStateLeader
		fallthrough
	case bitStateLeader:
		if err := r.consumeLeader(); err != nil {
			r.state = bitStateEOF
			return Bit{}, false, err
		}
		r.state = bitStateSync
		fallthrough
	case bitStateSync:
		if err := r.detectSync(); err != nil {
			r.state = bitStateEOF
			return Bit{}, false, err
		}
		r.state = bitStateData
	}

	p, ok, err := r.pulses.Next()
	if err != nil {
		r.state = bitStateEOF
		return Bit{}, false, err
	}
	if !ok {
		r.state = bitStateEOF
		return Bit{}, false, nil
	}
	switch {
	case r.bit0.contains(p.Len):
		return Bit{Offset: p.Offset, Length: p.Len, Value: 0}, true, nil
	case r.bit1.contains(p.Len):
		return Bit{Offset: p.Offset, Length: p.Len, Value: 1}, true, nil
	default:
		r.state = bitStateEOF
		return Bit{}, false, fmt.Errorf("tape: pulse of length %d at offset %d is neither bit-0 nor bit-1", p.Len, p.Offset)
	}
}

// estimateAverage implements spec.md §4.4 step 1: up to avgMaxAttempts
// attempts of measuring a candidate average over avgBatchSize pulses and
// verifying it against the next avgBatchSize pulses.
func (r *BitReader) estimateAverage() error {
	for attempt := 0; attempt < avgMaxAttempts; attempt++ {
		lens, ok, err := r.nextLens(avgBatchSize)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("tape: end of stream during leader average estimation")
		}
		avg := stat.Mean(lens, nil)
		lo := int(math.Floor(avg * (1 - avgTolerance)))
		hi := int(math.Ceil(avg * (1 + avgTolerance)))

		verify, ok, err := r.nextLens(avgBatchSize)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("tape: end of stream during leader average verification")
		}
		if allWithin(verify, lo, hi) {
			r.headAvgLen = avg
			return nil
		}
	}
	return fmt.Errorf("tape: no stable leader average found in %d attempts", avgMaxAttempts)
}

func (r *BitReader) nextLens(n int) ([]float64, bool, error) {
	lens := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		p, ok, err := r.pulses.Next()
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
		lens = append(lens, float64(p.Len))
	}
	return lens, true, nil
}

// allWithin reports whether every length in lens lies within [lo, hi],
// using the batch's min and max rather than a per-element bounds check.
func allWithin(lens []float64, lo, hi int) bool {
	min, max := floats.Min(lens), floats.Max(lens)
	return int(min) >= lo && int(max) <= hi
}

// split implements the tie-breaking rule of spec.md §4.4 step 2 for two
// colliding classification windows.
func split(base, factHi, factLo float64) (h, l int) {
	v1 := base * factHi
	v2 := base * factLo
	fv1, cv1 := math.Floor(v1), math.Ceil(v1)
	fv2, cv2 := math.Floor(v2), math.Ceil(v2)
	e1 := cv1 - v1
	e2 := v1 - fv2

	switch {
	case cv1 < fv2:
		return int(cv1), int(fv2)
	case cv1 == cv2:
		return int(fv1), int(cv2)
	case e1 > e2+0.5:
		return int(fv1), int(fv2)
	case e2 > e1+0.5:
		return int(cv1), int(cv2)
	default:
		return int(fv1), int(cv2)
	}
}

// deriveIntervals implements spec.md §4.4 step 2, computing bit1, lead,
// bit0 and sync from headAvgLen.
func (r *BitReader) deriveIntervals() {
	i := r.headAvgLen

	r.bit1.min = int(math.Floor(i * factBit1Lo))
	bit1Max, leadMin := split(i, factBit1Hi, factLeadLo)
	r.bit1.max, r.lead.min = bit1Max, leadMin

	leadMax, bit0Min := split(i, factLeadHi, factBit0Lo)
	r.lead.max, r.bit0.min = leadMax, bit0Min

	bit0Max, syncMin := split(i, factBit0Hi, factSyncLo)
	r.bit0.max, r.sync.min = bit0Max, syncMin

	r.sync.max = int(math.Ceil(i * factSyncHi))
}

// consumeLeader skips pulses while they classify as leader pulses.
func (r *BitReader) consumeLeader() error {
	for {
		p, ok, err := r.pulses.Next()
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("tape: end of stream while consuming leader")
		}
		if !r.lead.contains(p.Len) {
			r.pending = &p
			return nil
		}
	}
}

// detectSync requires the next pulse (possibly one already read by
// consumeLeader) to lie within the sync interval.
func (r *BitReader) detectSync() error {
	var p Pulse
	if r.pending != nil {
		p = *r.pending
		r.pending = nil
	} else {
		var ok bool
		var err error
		p, ok, err = r.pulses.Next()
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("tape: end of stream before sync pulse")
		}
	}
	if !r.sync.contains(p.Len) {
		return fmt.Errorf("tape: pulse of length %d at offset %d is not a sync pulse", p.Len, p.Offset)
	}
	return nil
}
