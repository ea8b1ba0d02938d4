// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: protocol/protocol_test.go
// Summary: Exercises framing and field decoding for the control protocol.
// Usage: Executed during `go test` to guard against regressions.

package protocol

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestReadFramesAcrossPartialWrites(t *testing.T) {
	pr, pw := io.Pipe()
	r := NewReader(pr, 0)
	go func() {
		_, _ = pw.Write([]byte(`{"type":"hel`))
		_, _ = pw.Write([]byte(`lo","version":1}` + "\n" + `{"type":"ping"}`))
		_, _ = pw.Write([]byte("\n"))
		_ = pw.Close()
	}()

	f, err := r.ReadFrame()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	hello, err := DecodeHello(f)
	if err != nil || hello.Version != 1 {
		t.Fatalf("unexpected hello %+v %v", hello, err)
	}
	f, err = r.ReadFrame()
	if err != nil || f.Type != CmdPing {
		t.Fatalf("expected ping, got %+v %v", f, err)
	}
	if _, err := r.ReadFrame(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestReadLineLimits(t *testing.T) {
	long := strings.Repeat("x", 64) + "\n"
	r := NewReader(strings.NewReader(long), 16)
	if _, err := r.ReadLine(); !errors.Is(err, ErrLineTooLong) {
		t.Fatalf("expected line too long, got %v", err)
	}

	r = NewReader(strings.NewReader(`{"type":"ping"}`), 0)
	if _, err := r.ReadLine(); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected unexpected EOF for unterminated line, got %v", err)
	}

	r = NewReader(strings.NewReader("\r\n\n{\"type\":\"ping\"}\r\n"), 0)
	line, err := r.ReadLine()
	if err != nil || string(line) != `{"type":"ping"}` {
		t.Fatalf("expected blank lines skipped, got %q %v", line, err)
	}
}

func TestParseFrameRejectsMalformed(t *testing.T) {
	cases := map[string]error{
		`not json`:      ErrMalformed,
		`[1,2]`:         ErrMalformed,
		`null`:          ErrMalformed,
		`{"version":1}`: ErrMissingType,
		`{"type":""}`:   ErrMissingType,
		`{"type":7}`:    ErrMissingType,
	}
	for line, want := range cases {
		if _, err := ParseFrame([]byte(line)); !errors.Is(err, want) {
			t.Fatalf("%s: expected %v, got %v", line, want, err)
		}
		if _, err := ParseFrame([]byte(line)); !errors.Is(err, ErrProtocol) {
			t.Fatalf("%s: error should be a protocol error", line)
		}
	}
}

func TestDecodeHelloRequiresIntegerVersion(t *testing.T) {
	cases := []struct {
		line string
		ok   bool
	}{
		{`{"type":"hello","version":1}`, true},
		{`{"type":"hello"}`, false},
		{`{"type":"hello","version":null}`, false},
		{`{"type":"hello","version":"1"}`, false},
		{`{"type":"hello","version":1.5}`, false},
		{`{"type":"ping","version":1}`, false},
	}
	for _, tc := range cases {
		f, err := ParseFrame([]byte(tc.line))
		if err != nil {
			t.Fatalf("%s: parse failed: %v", tc.line, err)
		}
		_, err = DecodeHello(f)
		if tc.ok && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.line, err)
		}
		if !tc.ok && !errors.Is(err, ErrProtocol) {
			t.Fatalf("%s: expected protocol error, got %v", tc.line, err)
		}
	}
}

func TestFrameFieldAccessors(t *testing.T) {
	f, err := ParseFrame([]byte(`{"type":"x","id":"s1","n":3,"f":0.25,"paths":["a","b"],"focused":null,"bad":"str"}`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if id, err := f.String("id"); err != nil || id != "s1" {
		t.Fatalf("String: %q %v", id, err)
	}
	if _, err := f.String("missing"); !errors.Is(err, ErrMissingField) {
		t.Fatalf("expected missing field, got %v", err)
	}
	if s, err := f.OptString("missing"); err != nil || s != "" {
		t.Fatalf("OptString: %q %v", s, err)
	}
	if n, err := f.Int("n"); err != nil || n != 3 {
		t.Fatalf("Int: %d %v", n, err)
	}
	if _, err := f.Int("f"); !errors.Is(err, ErrFieldType) {
		t.Fatalf("expected fractional int rejected, got %v", err)
	}
	if _, err := f.Int("bad"); !errors.Is(err, ErrFieldType) {
		t.Fatalf("expected type error, got %v", err)
	}
	if v, err := f.Float("f"); err != nil || v != 0.25 {
		t.Fatalf("Float: %v %v", v, err)
	}
	if p, err := f.Strings("paths"); err != nil || len(p) != 2 {
		t.Fatalf("Strings: %v %v", p, err)
	}
	if b, err := f.NullableBool("focused"); err != nil || b != nil {
		t.Fatalf("expected explicit null, got %v %v", b, err)
	}
	if _, err := f.NullableBool("absent"); !errors.Is(err, ErrMissingField) {
		t.Fatalf("expected missing field for absent nullable, got %v", err)
	}
}

func TestWriteFrameAppendsNewline(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, Pong{Type: MsgPong}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if buf.String() != `{"type":"pong"}`+"\n" {
		t.Fatalf("unexpected frame %q", buf.String())
	}
}
