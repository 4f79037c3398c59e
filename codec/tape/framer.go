/*
NAME
  framer.go

DESCRIPTION
  framer.go provides BlockFramer, which drives a ByteReader to
  reconstruct framed tape blocks on the fly and writes each recognised
  tape file out as a CAS container: the top level of the tape-decoding
  pipeline.

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
	"os"
	"regexp"

	"github.com/ausocean/utils/logging"
)

// Block-header magic and type bytes (tvc.h's TBLOCKHDR).
const (
	blockHdrMagic1   = 0x00
	blockHdrMagic2   = 0x6a
	blockTypeHeader  = 0xff
	blockTypeData    = 0x00
)

// safeName matches characters a reconstructed filename is allowed to
// keep; anything else is replaced with an underscore.
var safeName = regexp.MustCompile(`[A-Za-z0-9_\-@]`)

// framerState is a BlockFramer's position within the WAIT_HEADER /
// READ_HEADER_SECTOR / WAIT_DATA / READ_DATA_SECTOR / CLOSE cycle.
type framerState int

const (
	stateWaitHeader framerState = iota
	stateReadHeaderSector
	stateWaitData
	stateReadDataSector
	stateClose
)

// BlockFramer reconstructs tape files from a ByteReader and writes one
// CAS output per recognised file into dir.
type BlockFramer struct {
	bytes *ByteReader
	dir   string
	log   logging.Logger

	out     *os.File
	outName string
}

// NewBlockFramer returns a BlockFramer reading from bytes and writing
// recognised CAS files into dir.
func NewBlockFramer(bytes *ByteReader, dir string, l logging.Logger) *BlockFramer {
	return &BlockFramer{bytes: bytes, dir: dir, log: l}
}

// Run drives the framer until the byte stream is exhausted, writing one
// CAS file per recognised tape file. It never returns an error for a
// malformed or truncated block; those are logged and recovered from by
// resynchronising at WAIT_HEADER, per spec.md §4.6.
func (f *BlockFramer) Run() error {
	state := stateWaitHeader
	var pendingHdr *[6]byte

	for {
		switch state {
		case stateWaitHeader:
			f.bytes.Reset()
			hdr, ok, err := f.readHeader()
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			if !validHeader(hdr) {
				f.log.Debug("tape: ignoring unrecognised block")
				continue
			}
			switch hdr[2] {
			case blockTypeHeader:
				state = stateReadHeaderSector
			default:
				f.log.Debug("tape: expected header block, got other type", "blocktype", hdr[2])
			}

		case stateReadHeaderSector:
			if err := f.readHeaderSector(); err != nil {
				f.log.Warning("tape: header sector read failed", "error", err)
				f.abort()
				state = stateWaitHeader
				continue
			}
			state = stateWaitData

		case stateWaitData:
			f.bytes.Reset()
			hdr, ok, err := f.readHeader()
			if err != nil {
				f.abort()
				return err
			}
			if !ok {
				f.abort()
				return nil
			}
			if !validHeader(hdr) {
				f.log.Debug("tape: ignoring unrecognised block while waiting for data")
				f.abort()
				state = stateWaitHeader
				continue
			}
			switch hdr[2] {
			case blockTypeData:
				pendingHdr = &hdr
				state = stateReadDataSector
			case blockTypeHeader:
				f.abort()
				state = stateReadHeaderSector
			default:
				f.abort()
				state = stateWaitHeader
			}

		case stateReadDataSector:
			nsect := int(pendingHdr[5])
			ok, err := f.readDataSectors(nsect)
			if err != nil {
				f.log.Warning("tape: data sector read failed", "error", err)
				f.abort()
				state = stateWaitHeader
				continue
			}
			if !ok {
				f.abort()
				state = stateWaitHeader
				continue
			}
			state = stateClose

		case stateClose:
			f.closeCas()
			state = stateWaitHeader
		}
	}
}

// readHeader reads a 6-byte TBLOCKHDR. It returns ok=false at clean EOF.
func (f *BlockFramer) readHeader() ([6]byte, bool, error) {
	var hdr [6]byte
	for i := range hdr {
		b, ok, err := f.bytes.Next()
		if err != nil {
			return hdr, false, err
		}
		if !ok {
			if i == 0 {
				return hdr, false, nil
			}
			return hdr, false, fmt.Errorf("tape: truncated block header")
		}
		hdr[i] = b.Value
	}
	return hdr, true, nil
}

func validHeader(hdr [6]byte) bool {
	return hdr[0] == blockHdrMagic1 && hdr[1] == blockHdrMagic2
}

func (f *BlockFramer) readByte() (byte, error) {
	b, ok, err := f.bytes.Next()
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("tape: unexpected end of stream")
	}
	return b.Value, nil
}

func (f *BlockFramer) readBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	for i := range buf {
		b, err := f.readByte()
		if err != nil {
			return nil, err
		}
		buf[i] = b
	}
	return buf, nil
}

// readHeaderSector implements READ_HEADER_SECTOR: TSECTHDR (2 bytes),
// a size byte, size body bytes (0 meaning 256), opening the CAS output
// from the embedded filename and writing the remaining body to it, then
// the 3-byte TSECTEND.
func (f *BlockFramer) readHeaderSector() error {
	if _, err := f.readBytes(2); err != nil { // TSECTHDR: sectno, size-placeholder unused here.
		return err
	}
	sizeByte, err := f.readByte()
	if err != nil {
		return err
	}
	size := int(sizeByte)
	if size == 0 {
		size = 256
	}
	body, err := f.readBytes(size)
	if err != nil {
		return err
	}
	if len(body) < 1 {
		return fmt.Errorf("tape: empty header sector")
	}
	nameLen := int(body[0])
	if 1+nameLen > len(body) {
		return fmt.Errorf("tape: header sector filename length %d exceeds sector size %d", nameLen, size)
	}
	name := string(body[1 : 1+nameLen])

	if err := f.startCas(name); err != nil {
		return err
	}
	if err := f.writeCas(body[1+nameLen:]); err != nil {
		return err
	}

	_, err = f.readBytes(3) // TSECTEND.
	return err
}

// readDataSectors implements READ_DATA_SECTOR(i) for i=1..nsect.
func (f *BlockFramer) readDataSectors(nsect int) (bool, error) {
	for i := 1; i <= nsect; i++ {
		sectno, err := f.readByte()
		if err != nil {
			return false, err
		}
		sizeByte, err := f.readByte()
		if err != nil {
			return false, err
		}
		if int(sectno) != i {
			f.log.Debug("tape: bad sector number", "got", sectno, "want", i)
			return false, nil
		}
		size := int(sizeByte)
		if size == 0 {
			size = 256
		}
		body, err := f.readBytes(size)
		if err != nil {
			return false, err
		}
		if err := f.writeCas(body); err != nil {
			return false, err
		}
		if _, err := f.readBytes(3); err != nil { // TSECTEND.
			return false, err
		}
	}
	return true, nil
}

// startCas opens a new CAS output file from the tape's embedded
// filename, sanitising it and writing a 128-byte CP/M header that is zero
// apart from its magic byte.
func (f *BlockFramer) startCas(name string) error {
	if f.out != nil {
		f.abort()
	}
	safe := make([]byte, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i : i+1]
		if safeName.MatchString(c) {
			safe[i] = name[i]
		} else {
			safe[i] = '_'
		}
	}
	outName := string(safe) + ".cas"
	if f.dir != "" {
		outName = f.dir + string(os.PathSeparator) + outName
	}

	out, err := os.Create(outName)
	if err != nil {
		return fmt.Errorf("tape: could not create %s: %w", outName, err)
	}
	var cpm [128]byte
	cpm[0] = 0x11 // CP/M header magic; the block counts are left zero.
	if _, err := out.Write(cpm[:]); err != nil {
		out.Close()
		return fmt.Errorf("tape: could not write header of %s: %w", outName, err)
	}

	f.out = out
	f.outName = outName
	f.log.Info("tape: recognised file", "name", name, "output", outName)
	return nil
}

func (f *BlockFramer) writeCas(data []byte) error {
	if f.out == nil {
		return fmt.Errorf("tape: write with no open CAS output")
	}
	_, err := f.out.Write(data)
	return err
}

func (f *BlockFramer) closeCas() {
	if f.out == nil {
		return
	}
	f.out.Close()
	f.out = nil
	f.outName = ""
}

func (f *BlockFramer) abort() {
	if f.out == nil {
		return
	}
	name := f.outName
	f.out.Close()
	f.out = nil
	f.outName = ""
	if err := os.Remove(name); err != nil {
		f.log.Warning("tape: could not delete aborted output", "name", name, "error", err)
	}
}
