// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ancs

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"unicode/utf8"
)

// reader is a forward-only cursor over a payload. All reads fail with a
// *DecodeError naming the field and offset.
type reader struct {
	data []byte
	pos  int
}

func newReader(data []byte) *reader {
	return &reader{data: data}
}

func (r *reader) remaining() int {
	return len(r.data) - r.pos
}

func (r *reader) done() bool {
	return r.pos >= len(r.data)
}

func (r *reader) fail(err error, field string, offset int, detail string) error {
	return &DecodeError{Err: err, Field: field, Offset: offset, Detail: detail}
}

func (r *reader) truncated(field string, need int) error {
	return r.fail(ErrTruncatedInput, field, r.pos,
		fmt.Sprintf("need %d bytes, have %d", need, r.remaining()))
}

func (r *reader) u8(field string) (byte, error) {
	if r.remaining() < 1 {
		return 0, r.truncated(field, 1)
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) u16(field string) (uint16, error) {
	if r.remaining() < 2 {
		return 0, r.truncated(field, 2)
	}
	v := binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *reader) u32(field string) (uint32, error) {
	if r.remaining() < 4 {
		return 0, r.truncated(field, 4)
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

// text reads n bytes as a UTF-8 string
func (r *reader) text(field string, n int) (string, error) {
	if r.remaining() < n {
		return "", r.truncated(field, n)
	}
	raw := r.data[r.pos : r.pos+n]
	if !utf8.Valid(raw) {
		return "", r.fail(ErrInvalidEncoding, field, r.pos, "value is not UTF-8")
	}
	r.pos += n
	return string(raw), nil
}

// cstring reads up to and including the first NUL byte. The NUL is not part
// of the returned string.
func (r *reader) cstring(field string) (string, error) {
	n := bytes.IndexByte(r.data[r.pos:], 0x00)
	if n < 0 {
		return "", r.fail(ErrTruncatedInput, field, r.pos, "missing NUL terminator")
	}
	s, err := r.text(field, n)
	if err != nil {
		return "", err
	}
	r.pos++
	return s, nil
}

// end fails with ErrTrailingInput if any bytes are left
func (r *reader) end(field string) error {
	if !r.done() {
		return r.fail(ErrTrailingInput, field, r.pos,
			fmt.Sprintf("%d bytes left over", r.remaining()))
	}
	return nil
}

// appendCString appends s followed by exactly one NUL
func appendCString(dst []byte, s string) []byte {
	dst = append(dst, s...)
	if len(s) == 0 || s[len(s)-1] != 0x00 {
		dst = append(dst, 0x00)
	}
	return dst
}

// checkIdentifier reports whether s can be sent as a NUL-terminated string
// and read back unchanged
func checkIdentifier(field, s string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("%s: %w: not UTF-8", field, ErrInvalidEncoding)
	}
	if i := bytes.IndexByte([]byte(s), 0x00); i >= 0 && i != len(s)-1 {
		return fmt.Errorf("%s: %w: embedded NUL at %d", field, ErrInvalidEncoding, i)
	}
	return nil
}

// readEnum reads one byte and resolves it through parse
func readEnum[T any](r *reader, field string, parse func(byte) (T, error)) (T, error) {
	var zero T
	offset := r.pos
	b, err := r.u8(field)
	if err != nil {
		return zero, err
	}
	v, err := parse(b)
	if err != nil {
		return zero, r.fail(ErrUnknownEnumValue, field, offset, fmt.Sprintf("byte 0x%02X", b))
	}
	return v, nil
}
