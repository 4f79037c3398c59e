/*
NAME
  token_test.go

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package token

import "testing"

func TestBijectionOnKeywordRange(t *testing.T) {
	tbl := Std()
	for c := Start; c <= End; c++ {
		text := tbl.TextOf(byte(c))
		code, length, ok := tbl.Lookup([]byte(text))
		if !ok {
			t.Errorf("code 0x%02x: Lookup(%q) found no match", c, text)
			continue
		}
		if int(code) != c {
			t.Errorf("code 0x%02x: text %q looked up as 0x%02x", c, text, code)
		}
		if length != len(text) {
			t.Errorf("code 0x%02x: text %q matched length %d, want %d", c, text, length, len(text))
		}
	}
}

func TestLookupPrefersLongestMatch(t *testing.T) {
	tbl := Std()
	// "ON" and "OFF" both exist; "ON" must not shadow a longer match when
	// one is available ("ON" is not a prefix of "OFF", so pick a real
	// collision instead: "RUN" vs "RUN" (no ambiguity) -- use case-fold of
	// a keyword that is itself a prefix, e.g. "OR" is a prefix of "ORD".
	code, length, ok := tbl.Lookup([]byte("ORD"))
	if !ok || length != 3 {
		t.Fatalf("Lookup(ORD) = %v, %v, %v; want ORD (3 bytes)", code, length, ok)
	}
	wantCode, _ := ReverseLookup("ORD")
	if code != wantCode {
		t.Errorf("Lookup(ORD) = 0x%02x, want 0x%02x", code, wantCode)
	}
}

func TestLookupCaseInsensitive(t *testing.T) {
	tbl := Std()
	code, _, ok := tbl.Lookup([]byte("print"))
	if !ok {
		t.Fatal("Lookup(print) not found")
	}
	want, _ := ReverseLookup("PRINT")
	if code != want {
		t.Errorf("Lookup(print) = 0x%02x, want 0x%02x", code, want)
	}
}

func TestNationalLetterRoundTrip(t *testing.T) {
	for i, r := range nationalUpper {
		code, ok := EncodeUpper(r)
		if !ok || int(code) != i {
			t.Errorf("EncodeUpper(%q) = %v, %v; want %d, true", r, code, ok, i)
		}
	}
	for i, r := range nationalLower {
		code, ok := EncodeLower(r)
		if !ok || int(code) != 0x10+i {
			t.Errorf("EncodeLower(%q) = %v, %v; want %d, true", r, code, ok, 0x10+i)
		}
	}
}

func TestRawFormAvoidsEscapeCollision(t *testing.T) {
	tbl := Std()
	for c := Start; c <= End; c++ {
		raw := tbl.RawOf(byte(c))
		if len(raw) < 2 || raw[0] != '\\' {
			t.Errorf("code 0x%02x: raw form %q is not an escape", c, raw)
		}
	}
}

func TestRawFormUsesHexEscapeAboveE0(t *testing.T) {
	// Codes 0xe0..0xfe fall outside \t's valid hex range ([0x20,0xe0)), so
	// the raw column must use \x for them, matching the original charmap.
	tbl := Std()
	for c := 0xE0; c <= End; c++ {
		raw := tbl.RawOf(byte(c))
		if len(raw) < 2 || raw[:2] != `\x` {
			t.Errorf("code 0x%02x: raw form %q, want \\x escape", c, raw)
		}
	}
}

func TestReverseLookupUnknown(t *testing.T) {
	if _, ok := ReverseLookup("NOTAKEYWORD"); ok {
		t.Error("ReverseLookup(NOTAKEYWORD) unexpectedly found")
	}
}
