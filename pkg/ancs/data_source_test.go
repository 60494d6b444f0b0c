// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ancs

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
)

func TestParseGetNotificationAttributesResponse_AllConsumed(t *testing.T) {
	data := append([]byte{0, 255, 255, 255, 255, 0, 13, 0}, "com.rust.test"...)

	resp, err := ParseGetNotificationAttributesResponse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	expected := GetNotificationAttributesResponse{
		CommandID: CommandGetNotificationAttributes,
		UID:       4294967295,
		Attributes: []NotificationAttribute{
			{ID: NotificationAttributeAppIdentifier, Length: 13, Value: "com.rust.test"},
		},
	}
	if !reflect.DeepEqual(resp, expected) {
		t.Errorf("Expected %+v, got %+v", expected, resp)
	}

	encoded, err := resp.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	if !bytes.Equal(encoded, data) {
		t.Errorf("Expected % X, got % X", data, encoded)
	}
}

func TestGetNotificationAttributesResponse_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		resp GetNotificationAttributesResponse
	}{
		{
			name: "no attributes",
			resp: GetNotificationAttributesResponse{CommandID: CommandGetNotificationAttributes, UID: 1},
		},
		{
			name: "full notification",
			resp: GetNotificationAttributesResponse{
				CommandID: CommandGetNotificationAttributes,
				UID:       77,
				Attributes: []NotificationAttribute{
					NewNotificationAttribute(NotificationAttributeAppIdentifier, "com.apple.mobilemail"),
					NewNotificationAttribute(NotificationAttributeTitle, "Kaz"),
					NewNotificationAttribute(NotificationAttributeSubtitle, ""),
					NewNotificationAttribute(NotificationAttributeMessage, "Lunch at 12? 🍜"),
					NewNotificationAttribute(NotificationAttributeMessageSize, "17"),
					NewNotificationAttribute(NotificationAttributeDate, "20250601T120000"),
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := tt.resp.MarshalBinary()
			if err != nil {
				t.Fatalf("MarshalBinary: %v", err)
			}
			back, err := ParseGetNotificationAttributesResponse(data)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if !reflect.DeepEqual(back, tt.resp) {
				t.Errorf("Expected %+v, got %+v", tt.resp, back)
			}
		})
	}
}

func TestParseGetNotificationAttributesResponse_Errors(t *testing.T) {
	header := []byte{0, 1, 0, 0, 0}
	with := func(tail ...byte) []byte {
		return append(append([]byte{}, header...), tail...)
	}

	tests := []struct {
		name string
		data []byte
		err  error
	}{
		{"short header", []byte{0, 1, 0}, ErrTruncatedInput},
		{"unknown command", []byte{7, 0, 0, 0, 0}, ErrUnknownEnumValue},
		{"one leftover byte", with(0x01), ErrTrailingInput},
		{"two leftover bytes", with(0x01, 0x00, 0x00, 0x01, 0x02), ErrTrailingInput},
		{"value shorter than length", with(0x01, 0x04, 0x00, 'a'), ErrTruncatedInput},
		{"unknown attribute", with(0x09, 0x00, 0x00), ErrUnknownEnumValue},
		{"invalid UTF-8", with(0x03, 0x01, 0x00, 0x80), ErrInvalidEncoding},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseGetNotificationAttributesResponse(tt.data); !errors.Is(err, tt.err) {
				t.Errorf("Expected %v, got %v", tt.err, err)
			}
		})
	}
}

func TestGetNotificationAttributesResponse_Attribute(t *testing.T) {
	resp := GetNotificationAttributesResponse{
		Attributes: []NotificationAttribute{
			NewNotificationAttribute(NotificationAttributeTitle, "first"),
			NewNotificationAttribute(NotificationAttributeTitle, "second"),
		},
	}
	if a, ok := resp.Attribute(NotificationAttributeTitle); !ok || a.Value != "first" {
		t.Errorf("Expected first title, got %v %v", a, ok)
	}
	if _, ok := resp.Attribute(NotificationAttributeDate); ok {
		t.Error("Date should not be found")
	}
}

func TestGetAppAttributesResponse_RoundTrip(t *testing.T) {
	resp := GetAppAttributesResponse{
		CommandID:     CommandGetAppAttributes,
		AppIdentifier: "com.apple.MobileSMS",
		Attributes:    []AppAttribute{NewAppAttribute(AppAttributeDisplayName, "Messages")},
	}

	data, err := resp.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	expected := append([]byte{1}, "com.apple.MobileSMS\x00"...)
	expected = append(expected, 0, 8, 0)
	expected = append(expected, "Messages"...)
	if !bytes.Equal(data, expected) {
		t.Errorf("Expected % X, got % X", expected, data)
	}

	back, err := ParseGetAppAttributesResponse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !reflect.DeepEqual(back, resp) {
		t.Errorf("Expected %+v, got %+v", resp, back)
	}
	if name, ok := back.Attribute(AppAttributeDisplayName); !ok || name.Value != "Messages" {
		t.Errorf("Expected display name Messages, got %v", name)
	}
}

func TestGetAppAttributesResponse_NULNormalized(t *testing.T) {
	resp := GetAppAttributesResponse{CommandID: CommandGetAppAttributes, AppIdentifier: "app\x00"}
	data, err := resp.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	if !bytes.Equal(data, []byte{1, 'a', 'p', 'p', 0}) {
		t.Errorf("Expected a single terminator, got % X", data)
	}
}

func TestParseGetAppAttributesResponse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		err  error
	}{
		{"missing terminator", []byte{1, 'a'}, ErrTruncatedInput},
		{"leftover bytes", []byte{1, 'a', 0, 0, 0}, ErrTrailingInput},
		{"unknown attribute", []byte{1, 'a', 0, 1, 0, 0}, ErrUnknownEnumValue},
		{"value shorter than length", []byte{1, 'a', 0, 0, 2, 0, 'x'}, ErrTruncatedInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseGetAppAttributesResponse(tt.data); !errors.Is(err, tt.err) {
				t.Errorf("Expected %v, got %v", tt.err, err)
			}
		})
	}
}

func TestParseDataSource(t *testing.T) {
	notif := GetNotificationAttributesResponse{
		CommandID:  CommandGetNotificationAttributes,
		UID:        3,
		Attributes: []NotificationAttribute{NewNotificationAttribute(NotificationAttributeTitle, "hi")},
	}
	app := GetAppAttributesResponse{
		CommandID:     CommandGetAppAttributes,
		AppIdentifier: "x",
		Attributes:    []AppAttribute{NewAppAttribute(AppAttributeDisplayName, "X")},
	}

	for _, resp := range []DataSourceResponse{notif, app} {
		data, err := resp.MarshalBinary()
		if err != nil {
			t.Fatalf("MarshalBinary: %v", err)
		}
		got, err := ParseDataSource(data)
		if err != nil {
			t.Fatalf("ParseDataSource: %v", err)
		}
		if !reflect.DeepEqual(got, resp) {
			t.Errorf("Expected %#v, got %#v", resp, got)
		}
	}

	if _, err := ParseDataSource([]byte{2, 0, 0, 0, 0, 0}); !errors.Is(err, ErrUnknownEnumValue) {
		t.Errorf("Perform action has no response, expected ErrUnknownEnumValue, got %v", err)
	}
	if got, err := ParseDataSource([]byte{0, 0}); err == nil || got != nil {
		t.Errorf("Expected nil response and error, got %v, %v", got, err)
	}
}
