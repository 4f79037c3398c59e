/*
NAME
  wavread

DESCRIPTION
  wavread decodes an 8-bit unsigned PCM cassette recording of one or more
  Videoton TVC tape files and writes one CAS container per recognised
  file into the current directory. Its debug modes dump an intermediate
  stage of the decoding pipeline instead.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Command wavread decodes a WAV cassette recording into CAS containers.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/ausocean/utils/logging"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/tvc/codec/tape"
)

// Logging related constants.
const (
	logPath      = "wavread.log"
	logMaxSize   = 10 // MB
	logMaxBackup = 3
	logMaxAge    = 28 // days
)

func main() {
	debug := flag.Bool("d", false, "enable debug diagnostics")
	bitread := flag.Bool("bitread", false, "dump classified bits instead of writing CAS files")
	byteread := flag.Bool("byteread", false, "dump reconstructed bytes instead of writing CAS files")
	pulseread := flag.Bool("pulseread", false, "dump paired pulses instead of writing CAS files")
	seqread := flag.Bool("seqread", false, "dump run-length sequences instead of writing CAS files")
	wavread := flag.Bool("wavread", false, "dump raw samples instead of writing CAS files")
	impulse := flag.Bool("i", false, "dump paired pulses, plus a pulse-width histogram, instead of writing CAS files")
	halfImpulse := flag.Bool("h", false, "dump run-length sequences instead of writing CAS files")
	byteDump := flag.Bool("b", false, "dump reconstructed bytes instead of writing CAS files")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: wavread [-d] [--bitread|--byteread|--pulseread|--seqread|--wavread|-i|-h|-b] <wav>")
		os.Exit(4)
	}
	path := flag.Arg(0)

	level := int8(logging.Info)
	if *debug {
		level = logging.Debug
	}
	fileLog := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}
	l := logging.New(level, io.MultiWriter(fileLog, os.Stderr), true)

	src, err := tape.Open(path)
	if err != nil {
		l.Error("could not open wav file", "path", path, "error", err)
		os.Exit(32)
	}
	defer src.Close()

	switch {
	case *wavread:
		dumpSamples(src)
	case *seqread || *halfImpulse:
		dumpSeqs(src)
	case *pulseread:
		dumpPulses(src, l)
	case *impulse:
		dumpPulsesWithHistogram(src, l)
	case *bitread:
		dumpBits(src, l)
	case *byteread || *byteDump:
		dumpBytes(src, l)
	default:
		runFull(src, l)
	}
}

func dumpSamples(src *tape.SampleSource) {
	n := 0
	for {
		s, ok := src.Peek()
		if !ok {
			break
		}
		fmt.Printf("%06x %02x\n", s.Offset, s.Value)
		n++
		src.Advance()
	}
}

func dumpSeqs(src *tape.SampleSource) {
	sr := tape.NewSeqReader(src)
	n := 0
	for {
		s, ok := sr.Next()
		if !ok {
			break
		}
		n++
		fmt.Printf("%05d %06x-%06x %+d %d\n", n, s.Offset, s.Offset+int64(s.Length)-1, s.Sign, s.Length)
	}
}

func dumpPulses(src *tape.SampleSource, l logging.Logger) {
	pr := tape.NewPulseReader(tape.NewSeqReader(src))
	n := 0
	for {
		p, ok, err := pr.Next()
		if err != nil {
			l.Warning("pulse read failed", "error", err)
			break
		}
		if !ok {
			break
		}
		n++
		fmt.Printf("%05d %06x-%06x %d+%d=%d\n", n, p.Offset, p.Offset+int64(p.Len)-1, p.Len1, p.Len2, p.Len)
	}
}

// dumpPulsesWithHistogram dumps paired pulses exactly as dumpPulses does,
// and additionally renders a histogram of pulse widths to
// pulsewidths.png, exercising gonum/v1/plot as a diagnostic aid for
// picking the classification intervals of spec.md §4.4 by eye.
func dumpPulsesWithHistogram(src *tape.SampleSource, l logging.Logger) {
	pr := tape.NewPulseReader(tape.NewSeqReader(src))
	var lens []float64
	n := 0
	for {
		p, ok, err := pr.Next()
		if err != nil {
			l.Warning("pulse read failed", "error", err)
			break
		}
		if !ok {
			break
		}
		n++
		fmt.Printf("%05d %06x-%06x %d+%d=%d\n", n, p.Offset, p.Offset+int64(p.Len)-1, p.Len1, p.Len2, p.Len)
		lens = append(lens, float64(p.Len))
	}
	if err := plotPulseHistogram(lens, "pulsewidths.png"); err != nil {
		l.Warning("could not render pulse-width histogram", "error", err)
	}
}

func dumpBits(src *tape.SampleSource, l logging.Logger) {
	br := tape.NewBitReader(tape.NewPulseReader(tape.NewSeqReader(src)))
	n := 0
	for {
		b, ok, err := br.Next()
		if err != nil {
			l.Warning("bit read failed", "error", err)
			break
		}
		if !ok {
			break
		}
		n++
		fmt.Printf("%05d %06x %d %d\n", n, b.Offset, b.Value, b.Length)
	}
}

func dumpBytes(src *tape.SampleSource, l logging.Logger) {
	leave := false
	for !leave {
		br := tape.NewByteReader(tape.NewBitReader(tape.NewPulseReader(tape.NewSeqReader(src))))
		n := 0
		for {
			b, ok, err := br.Next()
			if err != nil {
				l.Warning("byte read failed", "error", err)
				leave = true
				break
			}
			if !ok {
				break
			}
			n++
			fmt.Printf("%05d   %02x\n", n, b.Value)
		}
		fmt.Println("-----")
		if n == 0 {
			leave = true
		}
	}
}

// runFull drives the complete pipeline, writing one CAS file per
// recognised tape file into the current directory.
func runFull(src *tape.SampleSource, l logging.Logger) {
	br := tape.NewByteReader(tape.NewBitReader(tape.NewPulseReader(tape.NewSeqReader(src))))
	framer := tape.NewBlockFramer(br, ".", l)
	if err := framer.Run(); err != nil {
		l.Error("tape decode failed", "error", err)
		os.Exit(32)
	}
}
