/*
NAME
  casbas

DESCRIPTION
  casbas converts between the CAS binary cassette container and its BAS
  textual representation, in either direction, selected by the input
  file's extension.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Command casbas converts Videoton TVC cassette images between the CAS
// binary container and the BAS textual representation.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ausocean/utils/logging"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/tvc/codec/bas"
	"github.com/ausocean/tvc/container/cas"
)

// Logging related constants.
const (
	logPath      = "casbas.log"
	logMaxSize   = 10 // MB
	logMaxBackup = 3
	logMaxAge    = 28 // days
)

// Exit codes, per spec.md §6.
const (
	exitOK              = 0
	exitUsage           = 4
	exitBadExtension    = 16
	exitBadInput        = 32
	exitAllocFailure    = 33
	exitOutputExists    = 35
	exitBadHex          = 37
	exitSyntaxError     = 38
	exitLineTooLong     = 40
)

func main() {
	debug := flag.Bool("d", false, "enable debug diagnostics")
	overwrite := flag.Bool("o", false, "permit overwriting an existing output file")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: casbas [-d] [-o] <input> [<output>]")
		os.Exit(exitUsage)
	}

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

	in := args[0]
	out, toBas, err := deriveOutput(in, args)
	if err != nil {
		l.Error("bad extension", "input", in, "error", err)
		os.Exit(exitBadExtension)
	}

	if !*overwrite {
		if _, err := os.Stat(out); err == nil {
			l.Error("output file already exists", "output", out)
			os.Exit(exitOutputExists)
		}
	}

	inFile, err := os.Open(in)
	if err != nil {
		l.Error("could not open input", "input", in, "error", err)
		os.Exit(exitBadInput)
	}
	defer inFile.Close()

	outFile, err := os.Create(out)
	if err != nil {
		l.Error("could not create output", "output", out, "error", err)
		os.Exit(exitAllocFailure)
	}
	defer outFile.Close()

	if toBas {
		err = bas.BinaryToText(inFile, outFile, l)
	} else {
		err = bas.TextToBinary(inFile, outFile, l)
	}
	if err != nil {
		os.Exit(exitCode(err))
	}
	os.Exit(exitOK)
}

// deriveOutput picks the conversion direction from in's extension and
// returns the output path: args[1] if given, or in with its extension
// swapped otherwise.
func deriveOutput(in string, args []string) (out string, toBas bool, err error) {
	lower := strings.ToLower(in)
	switch {
	case strings.HasSuffix(lower, ".cas"):
		toBas = true
	case strings.HasSuffix(lower, ".bas"):
		toBas = false
	default:
		return "", false, fmt.Errorf("input %q has neither .cas nor .bas extension", in)
	}

	if len(args) > 1 {
		return args[1], toBas, nil
	}
	base := in[:len(in)-len(".cas")]
	if toBas {
		return base + ".bas", toBas, nil
	}
	return in[:len(in)-len(".bas")] + ".cas", toBas, nil
}

// exitCode maps a conversion error to the core's documented exit code.
func exitCode(err error) int {
	switch {
	case errors.Is(err, cas.ErrContainerCorrupt):
		return exitBadInput
	case errors.Is(err, cas.ErrBadHex):
		return exitBadHex
	case errors.Is(err, cas.ErrLineTooLong):
		return exitLineTooLong
	case errors.Is(err, cas.ErrMalformedText), errors.Is(err, cas.ErrInputLineTooLong):
		return exitSyntaxError
	default:
		return exitBadInput
	}
}
