// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: protocol/protocol.go
// Summary: Newline-delimited JSON framing for the control socket.
// Usage: Servers and clients wrap a connection in a Reader and write replies
// with WriteFrame. Every frame is one JSON object terminated by '\n'.

package protocol

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
)

// Version is the protocol version implemented by this package.
const Version = 1

// DefaultMaxLineBytes bounds a single frame.
const DefaultMaxLineBytes = 1 << 20

var (
	// ErrProtocol marks framing failures. A connection that hits one is
	// closed without a reply.
	ErrProtocol = errors.New("protocol: framing error")

	ErrLineTooLong   = fmt.Errorf("%w: line exceeds limit", ErrProtocol)
	ErrMalformed     = fmt.Errorf("%w: malformed json object", ErrProtocol)
	ErrMissingType   = fmt.Errorf("%w: missing type", ErrProtocol)
	ErrMissingField  = fmt.Errorf("%w: missing required field", ErrProtocol)
	ErrFieldType     = fmt.Errorf("%w: field has wrong type", ErrProtocol)
	ErrUnexpectedMsg = fmt.Errorf("%w: unexpected message", ErrProtocol)
)

// Frame is one decoded JSON object. Fields are kept raw so handlers can tell
// an absent field from an explicit null.
type Frame struct {
	Type   string
	fields map[string]json.RawMessage
}

// ParseFrame decodes a single line.
func ParseFrame(line []byte) (Frame, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(line, &fields); err != nil || fields == nil {
		return Frame{}, ErrMalformed
	}
	raw, ok := fields["type"]
	if !ok {
		return Frame{}, ErrMissingType
	}
	var typ string
	if err := json.Unmarshal(raw, &typ); err != nil || typ == "" {
		return Frame{}, ErrMissingType
	}
	return Frame{Type: typ, fields: fields}, nil
}

// Has reports whether name is present, even as null.
func (f Frame) Has(name string) bool {
	_, ok := f.fields[name]
	return ok
}

// Raw returns the undecoded value of name.
func (f Frame) Raw(name string) (json.RawMessage, bool) {
	raw, ok := f.fields[name]
	return raw, ok
}

func (f Frame) decode(name string, v any) (bool, error) {
	raw, ok := f.fields[name]
	if !ok || isNull(raw) {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("%w: %s", ErrFieldType, name)
	}
	return true, nil
}

// String returns a required string field.
func (f Frame) String(name string) (string, error) {
	var s string
	ok, err := f.decode(name, &s)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingField, name)
	}
	return s, nil
}

// OptString returns an optional string field, "" when absent or null.
func (f Frame) OptString(name string) (string, error) {
	var s string
	_, err := f.decode(name, &s)
	return s, err
}

// Int returns a required integer field. Fractional numbers are rejected.
func (f Frame) Int(name string) (int, error) {
	n, ok, err := f.optInt(name)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingField, name)
	}
	return n, nil
}

// OptInt returns an optional integer field and whether it was set.
func (f Frame) OptInt(name string) (int, bool, error) {
	return f.optInt(name)
}

func (f Frame) optInt(name string) (int, bool, error) {
	var v float64
	ok, err := f.decode(name, &v)
	if err != nil || !ok {
		return 0, false, err
	}
	if v != math.Trunc(v) || v > math.MaxInt32 || v < math.MinInt32 {
		return 0, false, fmt.Errorf("%w: %s", ErrFieldType, name)
	}
	return int(v), true, nil
}

// Float returns a required number field.
func (f Frame) Float(name string) (float64, error) {
	var v float64
	ok, err := f.decode(name, &v)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingField, name)
	}
	return v, nil
}

// Strings returns a required string array field.
func (f Frame) Strings(name string) ([]string, error) {
	var v []string
	ok, err := f.decode(name, &v)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingField, name)
	}
	return v, nil
}

// NullableBool returns a field that must be present and may be null. A nil
// result means null.
func (f Frame) NullableBool(name string) (*bool, error) {
	raw, ok := f.fields[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingField, name)
	}
	if isNull(raw) {
		return nil, nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFieldType, name)
	}
	return &b, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// Reader reads frames from a stream. Partial lines stay buffered until the
// terminating newline arrives.
type Reader struct {
	br       *bufio.Reader
	maxBytes int
}

// NewReader wraps r. maxBytes <= 0 selects DefaultMaxLineBytes.
func NewReader(r io.Reader, maxBytes int) *Reader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxLineBytes
	}
	return &Reader{br: bufio.NewReaderSize(r, 64*1024), maxBytes: maxBytes}
}

// ReadLine returns the next non-empty line without its terminator. A stream
// that ends mid-line reports io.ErrUnexpectedEOF.
func (r *Reader) ReadLine() ([]byte, error) {
	for {
		var line []byte
		for {
			chunk, err := r.br.ReadSlice('\n')
			if len(line)+len(chunk) > r.maxBytes+1 {
				return nil, ErrLineTooLong
			}
			line = append(line, chunk...)
			if err == nil {
				break
			}
			if errors.Is(err, bufio.ErrBufferFull) {
				continue
			}
			if errors.Is(err, io.EOF) && len(line) > 0 {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		line = bytes.TrimRight(line, "\r\n")
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		return line, nil
	}
}

// ReadFrame reads and decodes the next frame.
func (r *Reader) ReadFrame() (Frame, error) {
	line, err := r.ReadLine()
	if err != nil {
		return Frame{}, err
	}
	return ParseFrame(line)
}

// WriteFrame encodes v as one line.
func WriteFrame(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
