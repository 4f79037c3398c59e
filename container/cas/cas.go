/*
NAME
  cas.go

DESCRIPTION
  cas.go defines the CAS container: a CP/M-style 128-byte header, a 16-byte
  program-file header, and the body of framed BASIC lines they describe.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package cas implements the CAS container format: the fixed header pair
// that precedes every cassette program image, and the framed-line body
// format shared by the tokeniser and detokeniser.
package cas

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// Fixed sizes of the two header structures.
const (
	CPMHeaderSize = 128
	PrgHeaderSize = 16
	HeaderSize    = CPMHeaderSize + PrgHeaderSize
)

// CPMHeaderMagic is the single magic byte at the start of the CP/M header.
const CPMHeaderMagic = 0x11

// PrgHeaderMagic is the single magic byte at the start of the program-file
// header.
const PrgHeaderMagic = 0x00

// Program-file types.
const (
	TypeData    = 0x00
	TypeProgram = 0x01
)

// Autorun flag values.
const (
	AutorunOff = 0x00
	AutorunOn  = 0xFF
)

// ProgramBaseAddress is the TVC memory address the BASIC program body is
// loaded to; BinaryToText uses it to label trailing raw bytes by address.
const ProgramBaseAddress = 6639

// Error kinds distinguished by spec.md §7, so that cmd/casbas can map each
// to its exit code with a single type switch rather than string matching.
var (
	// ErrContainerCorrupt reports an invalid CAS header (bad magic or type).
	ErrContainerCorrupt = errors.New("cas: invalid or corrupt container header")
	// ErrMalformedText reports a syntax error in BAS input.
	ErrMalformedText = errors.New("cas: malformed BASIC text")
	// ErrOutputExists reports that an output path already exists without -o.
	ErrOutputExists = errors.New("cas: output file already exists")
	// ErrLineTooLong reports a tokenised line exceeding 252 payload bytes.
	ErrLineTooLong = errors.New("cas: tokenised line exceeds 252 bytes")
	// ErrInputLineTooLong reports a raw text line longer than 1024 characters.
	ErrInputLineTooLong = errors.New("cas: input line too long")
	// ErrBadHex reports an invalid hex digit in a \t or \x escape.
	ErrBadHex = errors.New("cas: invalid hex digit in escape")
)

// Header is the decoded form of the CP/M header and program-file header
// pair (tvc.h's CASHDR_DATA).
type Header struct {
	BlockNum  uint16 // Number of full 128-byte CP/M blocks.
	LastBlock uint16 // Bytes used in the final partial block.
	PrgSize   uint16 // Bytes of program body (header pair excluded).
	Type      byte   // TypeData or TypeProgram.
	Autorun   byte   // AutorunOff or AutorunOn.
	Version   byte
}

// Consistent reports whether the header's block accounting agrees with its
// declared program size, per spec.md §3.2's advisory consistency check.
func (h Header) Consistent() bool {
	return uint32(h.BlockNum)*128+uint32(h.LastBlock) == uint32(h.PrgSize)+HeaderSize
}

// SetSize populates BlockNum, LastBlock and PrgSize from a total body size
// prgsize (the program body length, not counting the header pair).
func (h *Header) SetSize(prgsize int) {
	total := uint32(prgsize) + HeaderSize
	h.BlockNum = uint16(total / 128)
	h.LastBlock = uint16(total % 128)
	h.PrgSize = uint16(prgsize)
}

// ReadHeader reads and validates the 144-byte header pair from r.
func ReadHeader(r io.Reader) (Header, error) {
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Header{}, errors.Wrap(ErrContainerCorrupt, err.Error())
	}
	if buf[0] != CPMHeaderMagic {
		return Header{}, errors.Wrapf(ErrContainerCorrupt, "bad CP/M magic 0x%02x", buf[0])
	}
	pfh := buf[CPMHeaderSize:]
	if pfh[0] != PrgHeaderMagic {
		return Header{}, errors.Wrapf(ErrContainerCorrupt, "bad program-file magic 0x%02x", pfh[0])
	}
	var h Header
	h.Type = pfh[1]
	if h.Type != TypeData && h.Type != TypeProgram {
		return Header{}, errors.Wrapf(ErrContainerCorrupt, "bad program-file type 0x%02x", h.Type)
	}
	h.BlockNum = binary.LittleEndian.Uint16(buf[2:4])
	h.LastBlock = binary.LittleEndian.Uint16(buf[4:6])
	h.PrgSize = binary.LittleEndian.Uint16(pfh[2:4])
	h.Autorun = pfh[4]
	h.Version = pfh[15]
	return h, nil
}

// WriteHeader serialises h as the 144-byte header pair and writes it to w.
func WriteHeader(w io.Writer, h Header) error {
	var buf [HeaderSize]byte
	buf[0] = CPMHeaderMagic
	binary.LittleEndian.PutUint16(buf[2:4], h.BlockNum)
	binary.LittleEndian.PutUint16(buf[4:6], h.LastBlock)

	pfh := buf[CPMHeaderSize:]
	pfh[0] = PrgHeaderMagic
	pfh[1] = h.Type
	binary.LittleEndian.PutUint16(pfh[2:4], h.PrgSize)
	pfh[4] = h.Autorun
	pfh[15] = h.Version

	_, err := w.Write(buf[:])
	if err != nil {
		return fmt.Errorf("cas: could not write header: %w", err)
	}
	return nil
}
