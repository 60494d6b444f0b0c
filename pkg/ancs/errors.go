// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ancs

import (
	"errors"
	"fmt"
)

// Codec errors. Every decode failure wraps exactly one of these.
var (
	ErrUnknownEnumValue       = errors.New("ancs: unknown enumeration value")
	ErrTruncatedInput         = errors.New("ancs: truncated input")
	ErrInvalidEncoding        = errors.New("ancs: invalid encoding")
	ErrTrailingInput          = errors.New("ancs: trailing input")
	ErrAmbiguousVariadicEntry = errors.New("ancs: ambiguous variadic entry")
	ErrLengthMismatch         = errors.New("ancs: attribute length does not match value")
	ErrValueTooLong           = errors.New("ancs: attribute value too long")
)

// DecodeError describes where a decode failed
type DecodeError struct {
	Err    error  // One of the codec sentinel errors
	Field  string // Field being decoded, e.g. "category_id"
	Offset int    // Byte offset into the input
	Detail string
}

// Error implements the error interface
func (e *DecodeError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%v: %s at offset %d", e.Err, e.Field, e.Offset)
	}
	return fmt.Sprintf("%v: %s at offset %d (%s)", e.Err, e.Field, e.Offset, e.Detail)
}

// Unwrap returns the sentinel error
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ControlPointError is an ATT application error returned by the
// notification provider when a Control Point write is rejected
type ControlPointError uint8

// Control Point error codes
const (
	ErrUnknownCommand   ControlPointError = 0xA0 // Command ID not recognized
	ErrInvalidCommand   ControlPointError = 0xA1 // Command improperly formatted
	ErrInvalidParameter ControlPointError = 0xA2 // A parameter does not refer to an existing object
	ErrActionFailed     ControlPointError = 0xA3 // The action was not performed
)

var controlPointErrorNames = map[ControlPointError]string{
	ErrUnknownCommand:   "Unknown command",
	ErrInvalidCommand:   "Invalid command",
	ErrInvalidParameter: "Invalid parameter",
	ErrActionFailed:     "Action failed",
}

// Error implements the error interface
func (e ControlPointError) Error() string {
	if name, ok := controlPointErrorNames[e]; ok {
		return fmt.Sprintf("ancs: control point: %s (0x%02X)", name, uint8(e))
	}
	return fmt.Sprintf("ancs: control point: ATT error 0x%02X", uint8(e))
}

// IsControlPointError reports whether an ATT status code is one of the
// ANCS-specific Control Point errors
func IsControlPointError(status uint8) bool {
	_, ok := controlPointErrorNames[ControlPointError(status)]
	return ok
}
