/*
NAME
  tokenize.go

DESCRIPTION
  tokenize.go implements TextToBinary: the BAS-to-CAS tokeniser. It parses
  free-form BASIC text line by line, strips labels, recognises AUTORUN and
  BYTES directives, translates escape sequences and national letters, and
  context-sensitively tokenises the payload into the CAS body format.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package bas implements lossless conversion between the CAS binary
// container and its BAS textual representation.
package bas

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/tvc/container/cas"
	"github.com/ausocean/tvc/container/cas/token"
)

// MaxLineChars is the longest input text line TextToBinary will accept.
const MaxLineChars = 1024

// Tokeniser context bits, matching the original cassette tool's state
// variable exactly: bit 0 marks "inside a string literal", bit 1 marks
// "inside a DATA segment", bit 2 marks "inside a REM/! comment".
const (
	ctxString  = 1
	ctxData    = 2
	ctxComment = 4
)

// TextToBinary reads a BAS text program from r and writes the equivalent
// CAS container to w.
func TextToBinary(r io.Reader, w io.Writer, l logging.Logger) error {
	var body bytes.Buffer
	var autorun bool
	var basend bool // Program terminator already written; now in trailing-bytes mode.
	var prgsize int

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, MaxLineChars+2), MaxLineChars+2)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		raw := sc.Text()
		if len(raw) > MaxLineChars {
			return fmt.Errorf("line #%d: %w", lineNo, cas.ErrInputLineTooLong)
		}
		line := strings.TrimRight(raw, "\r\n")
		line = strings.TrimLeft(line, " ")
		line = stripLabel(line)
		if line == "" {
			continue
		}

		if !startsWithDigit(line) {
			directive, rest := firstWord(line)
			switch {
			case strings.EqualFold(directive, "AUTORUN"):
				autorun = true
				continue
			case strings.EqualFold(directive, "BYTES"):
				lit, _ := firstWord(rest)
				lit = strings.TrimSpace(lit)
				lit = strings.TrimPrefix(lit, "'")
				lit = strings.TrimSuffix(lit, "'")
				if lit == "" {
					continue
				}
				decoded, err := translateEscapes(lit)
				if err != nil {
					return fmt.Errorf("line #%d: %w", lineNo, err)
				}
				if !basend {
					basend = true
					body.WriteByte(token.PrgEnd)
					prgsize++
				}
				body.Write(decoded)
				prgsize += len(decoded)
				continue
			default:
				return fmt.Errorf("line #%d: %w: unrecognised directive %q", lineNo, cas.ErrMalformedText, directive)
			}
		}

		if basend {
			return fmt.Errorf("line #%d: %w: numbered line after BYTES trailer", lineNo, cas.ErrMalformedText)
		}

		no, rest, err := parseLineNumber(line)
		if err != nil {
			return fmt.Errorf("line #%d: %w", lineNo, err)
		}
		rest = strings.TrimLeft(rest, " ")

		translated, err := translateEscapes(rest)
		if err != nil {
			return fmt.Errorf("line #%d: %w", lineNo, err)
		}
		payload := tokenise(translated)

		l.Debug("tokenised line", "basicLine", no, "bytes", len(payload))

		fl := cas.Line{Number: no, Payload: payload}
		encoded, err := fl.Encode()
		if err != nil {
			return fmt.Errorf("line #%d (basic %d): %w", lineNo, no, err)
		}
		body.Write(encoded)
		prgsize += len(encoded)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("bas: could not read input: %w", err)
	}

	if !basend {
		body.WriteByte(token.PrgEnd)
		prgsize++
	}

	var h cas.Header
	h.SetSize(prgsize)
	h.Type = cas.TypeProgram
	if autorun {
		h.Autorun = cas.AutorunOn
	}

	if err := cas.WriteHeader(w, h); err != nil {
		return err
	}
	if _, err := w.Write(body.Bytes()); err != nil {
		return fmt.Errorf("bas: could not write body: %w", err)
	}
	return nil
}

// stripLabel removes a leading "HHHH:" label (four hex digits and a colon)
// if the line starts with one followed by whitespace or end of line.
func stripLabel(line string) string {
	word, rest := firstWord(line)
	if len(word) == 5 && isHexDigit(word[0]) && isHexDigit(word[1]) &&
		isHexDigit(word[2]) && isHexDigit(word[3]) && word[4] == ':' {
		return strings.TrimLeft(rest, " ")
	}
	return line
}

// firstWord splits s into its first whitespace-delimited word and the
// remainder (with any separating whitespace consumed).
func firstWord(s string) (word, rest string) {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	start := i
	for i < len(s) && s[i] != ' ' && s[i] != '\t' {
		i++
	}
	word = s[start:i]
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return word, s[i:]
}

func startsWithDigit(s string) bool {
	return len(s) > 0 && s[0] >= '0' && s[0] <= '9'
}

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

// parseLineNumber consumes the decimal line number prefix of s, returning
// the parsed number and the remaining text.
func parseLineNumber(s string) (uint16, string, error) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	num, err := strconv.ParseUint(s[:i], 10, 32)
	if err != nil || num > cas.MaxLineLen {
		return 0, "", fmt.Errorf("%w: bad line number %q", cas.ErrMalformedText, s[:i])
	}
	return uint16(num), s[i:], nil
}

// translateEscapes applies the backslash-escape and national-letter
// translation of spec.md §4.7, independent of tokenising.
func translateEscapes(s string) ([]byte, error) {
	out := make([]byte, 0, len(s))
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if code, ok := token.EncodeUpper(r); ok {
			out = append(out, code)
			continue
		}
		if code, ok := token.EncodeLower(r); ok {
			out = append(out, code)
			continue
		}
		if r == '\\' {
			if i+1 >= len(runes) {
				return nil, fmt.Errorf("%w: trailing backslash", cas.ErrMalformedText)
			}
			switch runes[i+1] {
			case '\\':
				out = append(out, '\\')
				i++
				continue
			case 't', 'x':
				if i+3 >= len(runes) {
					return nil, fmt.Errorf("%w: truncated escape", cas.ErrMalformedText)
				}
				hi, ok1 := hexVal(runes[i+2])
				lo, ok2 := hexVal(runes[i+3])
				if !ok1 || !ok2 {
					return nil, cas.ErrBadHex
				}
				c := hi<<4 | lo
				if runes[i+1] == 't' {
					if c < 0x20 || c >= 0xe0 {
						return nil, fmt.Errorf("%w: \\t%02x out of range", cas.ErrMalformedText, c)
					}
					if c >= 0x80 && c < 0xa0 {
						c -= 0x80
					}
				}
				out = append(out, byte(c))
				i += 3
				continue
			default:
				return nil, fmt.Errorf("%w: invalid escape \\%c", cas.ErrMalformedText, runes[i+1])
			}
		}
		if r > 0x7f {
			return nil, fmt.Errorf("%w: unsupported character %q", cas.ErrMalformedText, r)
		}
		out = append(out, byte(r))
	}
	return out, nil
}

func hexVal(r rune) (int, bool) {
	switch {
	case r >= '0' && r <= '9':
		return int(r - '0'), true
	case r >= 'a' && r <= 'f':
		return int(r-'a') + 10, true
	case r >= 'A' && r <= 'F':
		return int(r-'A') + 10, true
	default:
		return 0, false
	}
}

// tokenise context-sensitively tokenises translated payload bytes,
// following the state machine described in spec.md §4.7: tokenise mode
// (state 0), string literal (ctxString), DATA segment (ctxData) and
// comment (ctxComment). Inside DATA, the byte being consumed (not the one
// after it) is tested for ':' and '!'.
func tokenise(in []byte) []byte {
	tbl := token.Std()
	out := make([]byte, 0, len(in))
	state := 0
	for i := 0; i < len(in); {
		if state == 0 {
			if code, length, ok := tbl.Lookup(in[i:]); ok {
				switch code {
				case token.Rem, token.Comment:
					state = ctxComment
				case token.Data:
					state = ctxData
				}
				out = append(out, code)
				i += length
				continue
			}
			c := in[i]
			if c == '"' {
				state ^= ctxString
			}
			out = append(out, foldByte(c))
			i++
			continue
		}

		c := in[i]
		i++
		if c == '"' {
			state ^= ctxString
		} else if state == ctxData {
			if c == ':' {
				c = token.Colon
				state = 0
			} else if c == '!' {
				c = token.Comment
				state = ctxComment
			}
		}
		out = append(out, c)
	}
	out = append(out, token.LineEnd)
	return out
}

func foldByte(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 0x20
	}
	return c
}
