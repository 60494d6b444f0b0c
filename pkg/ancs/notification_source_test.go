// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ancs

import (
	"bytes"
	"errors"
	"testing"
)

func TestNotification_Encode(t *testing.T) {
	n := Notification{
		EventID:       EventNotificationAdded,
		EventFlags:    EventFlagSilent,
		CategoryID:    CategoryOther,
		CategoryCount: 0,
		UID:           4294967295,
	}

	data, err := n.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	expected := []byte{0, 1, 0, 0, 255, 255, 255, 255}
	if !bytes.Equal(data, expected) {
		t.Errorf("Expected %v, got %v", expected, data)
	}
}

func TestNotification_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		n    Notification
	}{
		{"no flags", Notification{EventNotificationAdded, 0, CategoryEmail, 3, 1}},
		{"all flags", Notification{EventNotificationModified, eventFlagsMask, CategoryEntertainment, 255, 0x01020304}},
		{"removed call", Notification{EventNotificationRemoved, EventFlagImportant, CategoryIncomingCall, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := tt.n.MarshalBinary()
			if err != nil {
				t.Fatalf("MarshalBinary: %v", err)
			}
			if len(data) != NotificationSize {
				t.Fatalf("Expected %d bytes, got %d", NotificationSize, len(data))
			}
			back, err := ParseNotification(data)
			if err != nil {
				t.Fatalf("ParseNotification: %v", err)
			}
			if back != tt.n {
				t.Errorf("Expected %+v, got %+v", tt.n, back)
			}
		})
	}
}

func TestNotification_UIDLittleEndian(t *testing.T) {
	n, err := ParseNotification([]byte{0, 0, 0, 0, 0x78, 0x56, 0x34, 0x12})
	if err != nil {
		t.Fatalf("ParseNotification: %v", err)
	}
	if n.UID != 0x12345678 {
		t.Errorf("Expected uid 0x12345678, got 0x%08X", n.UID)
	}
}

func TestParseNotification_Errors(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		err    error
		field  string
		offset int
	}{
		{"bad event", []byte{3, 0, 0, 0, 0, 0, 0, 0}, ErrUnknownEnumValue, "event_id", 0},
		{"undefined flag bit", []byte{0, 0x20, 0, 0, 0, 0, 0, 0}, ErrUnknownEnumValue, "event_flags", 1},
		{"bad category", []byte{0, 0, 12, 0, 0, 0, 0, 0}, ErrUnknownEnumValue, "category_id", 2},
		{"short uid", []byte{0, 0, 0, 0, 1, 2, 3}, ErrTruncatedInput, "notification_uid", 4},
		{"empty", nil, ErrTruncatedInput, "event_id", 0},
		{"extra byte", []byte{0, 0, 0, 0, 0, 0, 0, 0, 9}, ErrTrailingInput, "notification", 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseNotification(tt.data)
			if !errors.Is(err, tt.err) {
				t.Fatalf("Expected %v, got %v", tt.err, err)
			}
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("Expected *DecodeError, got %T", err)
			}
			if de.Field != tt.field || de.Offset != tt.offset {
				t.Errorf("Expected %s at %d, got %s at %d", tt.field, tt.offset, de.Field, de.Offset)
			}
		})
	}
}

func TestNotification_EncodeRejectsInvalidFields(t *testing.T) {
	tests := []struct {
		name string
		n    Notification
	}{
		{"event", Notification{EventID: 7}},
		{"flags", Notification{EventFlags: 0x40}},
		{"category", Notification{CategoryID: 200}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.n.MarshalBinary(); !errors.Is(err, ErrUnknownEnumValue) {
				t.Errorf("Expected ErrUnknownEnumValue, got %v", err)
			}
		})
	}
}
