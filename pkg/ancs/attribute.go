// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ancs

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"
)

// DateLayout is the format of the Date notification attribute
// (yyyyMMdd'T'HHmmSS, local time on the notification provider)
const DateLayout = "20060102T150405"

// NotificationAttribute is a notification attribute TLV.
// Length always equals the byte length of Value.
type NotificationAttribute struct {
	ID     NotificationAttributeID
	Length uint16
	Value  string
}

// AppAttribute is an app attribute TLV.
// Length always equals the byte length of Value.
type AppAttribute struct {
	ID     AppAttributeID
	Length uint16
	Value  string
}

// NewNotificationAttribute creates an attribute whose Length is taken from value
func NewNotificationAttribute(id NotificationAttributeID, value string) NotificationAttribute {
	return NotificationAttribute{ID: id, Length: uint16(len(value)), Value: value}
}

// NewAppAttribute creates an attribute whose Length is taken from value
func NewAppAttribute(id AppAttributeID, value string) AppAttribute {
	return AppAttribute{ID: id, Length: uint16(len(value)), Value: value}
}

// ============================================================
// Shared TLV layout: id(1) | length(2, LE) | value(length)
// ============================================================

func appendTLV(dst []byte, id byte, length uint16, value string) ([]byte, error) {
	if len(value) > MaxAttributeLength {
		return nil, fmt.Errorf("attribute 0x%02X: %w: %d bytes", id, ErrValueTooLong, len(value))
	}
	if int(length) != len(value) {
		return nil, fmt.Errorf("attribute 0x%02X: %w: length %d, value %d bytes",
			id, ErrLengthMismatch, length, len(value))
	}
	if !utf8.ValidString(value) {
		return nil, fmt.Errorf("attribute 0x%02X: %w: value is not UTF-8", id, ErrInvalidEncoding)
	}
	dst = append(dst, id)
	dst = binary.LittleEndian.AppendUint16(dst, length)
	return append(dst, value...), nil
}

func readTLV[T any](r *reader, parseID func(byte) (T, error)) (T, uint16, string, error) {
	var zero T
	id, err := readEnum(r, "attribute_id", parseID)
	if err != nil {
		return zero, 0, "", err
	}
	length, err := r.u16("attribute_length")
	if err != nil {
		return zero, 0, "", err
	}
	value, err := r.text("attribute_value", int(length))
	if err != nil {
		return zero, 0, "", err
	}
	return id, length, value, nil
}

// ============================================================
// NotificationAttribute
// ============================================================

// AppendBinary appends the TLV encoding of a to dst
func (a NotificationAttribute) AppendBinary(dst []byte) ([]byte, error) {
	if !a.ID.Valid() {
		return nil, fmt.Errorf("notification attribute id 0x%02X: %w", uint8(a.ID), ErrUnknownEnumValue)
	}
	return appendTLV(dst, byte(a.ID), a.Length, a.Value)
}

// MarshalBinary returns the TLV encoding of a
func (a NotificationAttribute) MarshalBinary() ([]byte, error) {
	return a.AppendBinary(make([]byte, 0, AttributeHeaderSize+len(a.Value)))
}

// UnmarshalBinary decodes exactly one TLV
func (a *NotificationAttribute) UnmarshalBinary(data []byte) error {
	r := newReader(data)
	attr, err := readNotificationAttribute(r)
	if err != nil {
		return err
	}
	if err := r.end("attribute"); err != nil {
		return err
	}
	*a = attr
	return nil
}

func readNotificationAttribute(r *reader) (NotificationAttribute, error) {
	id, length, value, err := readTLV(r, ParseNotificationAttributeID)
	if err != nil {
		return NotificationAttribute{}, err
	}
	return NotificationAttribute{ID: id, Length: length, Value: value}, nil
}

// Date parses the value of a Date attribute in the given location.
// A nil location means time.Local.
func (a NotificationAttribute) Date(loc *time.Location) (time.Time, error) {
	if a.ID != NotificationAttributeDate {
		return time.Time{}, fmt.Errorf("%s is not a date attribute", a.ID)
	}
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, a.Value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: %w: %v", a.Value, ErrInvalidEncoding, err)
	}
	return t, nil
}

// MessageSize parses the value of a MessageSize attribute
func (a NotificationAttribute) MessageSize() (int, error) {
	if a.ID != NotificationAttributeMessageSize {
		return 0, fmt.Errorf("%s is not a message size attribute", a.ID)
	}
	n, err := strconv.Atoi(a.Value)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("message size %q: %w", a.Value, ErrInvalidEncoding)
	}
	return n, nil
}

func (a NotificationAttribute) String() string {
	return fmt.Sprintf("%s[%d]=%q", a.ID, a.Length, a.Value)
}

// ============================================================
// AppAttribute
// ============================================================

// AppendBinary appends the TLV encoding of a to dst
func (a AppAttribute) AppendBinary(dst []byte) ([]byte, error) {
	if !a.ID.Valid() {
		return nil, fmt.Errorf("app attribute id 0x%02X: %w", uint8(a.ID), ErrUnknownEnumValue)
	}
	return appendTLV(dst, byte(a.ID), a.Length, a.Value)
}

// MarshalBinary returns the TLV encoding of a
func (a AppAttribute) MarshalBinary() ([]byte, error) {
	return a.AppendBinary(make([]byte, 0, AttributeHeaderSize+len(a.Value)))
}

// UnmarshalBinary decodes exactly one TLV
func (a *AppAttribute) UnmarshalBinary(data []byte) error {
	r := newReader(data)
	attr, err := readAppAttribute(r)
	if err != nil {
		return err
	}
	if err := r.end("attribute"); err != nil {
		return err
	}
	*a = attr
	return nil
}

func readAppAttribute(r *reader) (AppAttribute, error) {
	id, length, value, err := readTLV(r, ParseAppAttributeID)
	if err != nil {
		return AppAttribute{}, err
	}
	return AppAttribute{ID: id, Length: length, Value: value}, nil
}

func (a AppAttribute) String() string {
	return fmt.Sprintf("%s[%d]=%q", a.ID, a.Length, a.Value)
}
