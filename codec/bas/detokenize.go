/*
NAME
  detokenize.go

DESCRIPTION
  detokenize.go implements BinaryToText: the CAS-to-BAS detokeniser. It
  validates the CAS header, walks the framed-line body rendering each
  token through the token table, and renders any trailing raw bytes as a
  printable BYTES escape list.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package bas

import (
	"bufio"
	"fmt"
	"io"
	"io/ioutil"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/tvc/container/cas"
	"github.com/ausocean/tvc/container/cas/token"
)

// trailingBytesPerLine is the number of raw bytes rendered per BYTES line
// in the trailing-bytes dump.
const trailingBytesPerLine = 10

// BinaryToText reads a CAS container from r and writes its BAS textual
// representation to w.
func BinaryToText(r io.Reader, w io.Writer, l logging.Logger) error {
	h, err := cas.ReadHeader(r)
	if err != nil {
		return err
	}
	l.Debug("cas header", "blocknum", h.BlockNum, "lastblock", h.LastBlock,
		"prgsize", h.PrgSize, "type", h.Type, "autorun", h.Autorun,
		"consistent", h.Consistent())

	body, err := ioutil.ReadAll(io.LimitReader(r, int64(h.PrgSize)))
	if err != nil {
		return fmt.Errorf("bas: could not read program body: %w", err)
	}
	if len(body) != int(h.PrgSize) {
		return fmt.Errorf("bas: %w: short program body (%d < %d)", cas.ErrContainerCorrupt, len(body), h.PrgSize)
	}

	bw := bufio.NewWriter(w)

	if h.Autorun != 0 {
		if _, err := bw.WriteString("AUTORUN\n"); err != nil {
			return err
		}
	}

	pos := 0
	for pos < len(body) && len(body)-pos >= 3 && body[pos] != token.PrgEnd {
		line, n, err := cas.DecodeLine(body[pos:])
		if err != nil {
			return err
		}
		fmt.Fprintf(bw, "%4d ", line.Number)
		bw.WriteString(renderPayload(line.Payload))
		bw.WriteByte('\n')
		pos += n
	}

	if pos < len(body) && body[pos] == token.PrgEnd {
		pos++
	}

	trailingStart := pos
	trailing := body[pos:]
	for i := 0; i < len(trailing); i += trailingBytesPerLine {
		chunk := trailing[i:min(i+trailingBytesPerLine, len(trailing))]
		fmt.Fprintf(bw, "%04x: BYTES '", trailingStart+i+cas.ProgramBaseAddress)
		for _, b := range chunk {
			fmt.Fprintf(bw, `\x%02x`, b)
		}
		bw.WriteString("'\n")
	}

	return bw.Flush()
}

// renderPayload renders one line's tokenised payload as printable text,
// following the same context state machine as the tokeniser: toggling on
// '"', and flipping the DATA/comment bits on DATA/COLON/REM/COMMENT tokens
// seen outside a string.
func renderPayload(payload []byte) string {
	tbl := token.Std()
	var out []byte
	state := 0
	for _, c := range payload {
		if state == 0 {
			out = append(out, tbl.TextOf(c)...)
		} else {
			out = append(out, tbl.RawOf(c)...)
		}
		if c == '"' {
			state ^= ctxString
		} else if state&ctxString == 0 {
			switch c {
			case token.Data:
				state |= ctxData
			case token.Colon:
				state &^= ctxData
			case token.Rem, token.Comment:
				state |= ctxComment
			}
		}
	}
	return string(out)
}
