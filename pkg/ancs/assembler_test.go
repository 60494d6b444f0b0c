// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ancs

import (
	"errors"
	"reflect"
	"testing"
)

// splitEvery cuts data into fragments of at most n bytes
func splitEvery(data []byte, n int) [][]byte {
	var out [][]byte
	for len(data) > n {
		out = append(out, data[:n])
		data = data[n:]
	}
	return append(out, data)
}

func TestNotificationResponseAssembler_Fragments(t *testing.T) {
	req := NewGetNotificationAttributesRequest(12,
		RequestAttribute(NotificationAttributeAppIdentifier),
		RequestAttributeWithMax(NotificationAttributeTitle, 64),
		RequestAttributeWithMax(NotificationAttributeMessage, 256))
	resp := GetNotificationAttributesResponse{
		CommandID: CommandGetNotificationAttributes,
		UID:       12,
		Attributes: []NotificationAttribute{
			NewNotificationAttribute(NotificationAttributeAppIdentifier, "com.apple.MobileSMS"),
			NewNotificationAttribute(NotificationAttributeTitle, ""),
			NewNotificationAttribute(NotificationAttributeMessage, "See you at the trailhead at seven, bring the thermos"),
		},
	}
	data, err := resp.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}

	for _, size := range []int{1, 2, 3, 7, 20, len(data)} {
		a := NewNotificationResponseAssembler(req)
		fragments := splitEvery(data, size)

		for i, f := range fragments {
			got, complete, err := a.Feed(f)
			if err != nil {
				t.Fatalf("size %d fragment %d: %v", size, i, err)
			}
			last := i == len(fragments)-1
			if complete != last {
				t.Fatalf("size %d fragment %d: complete=%v, want %v", size, i, complete, last)
			}
			if complete && !reflect.DeepEqual(got, resp) {
				t.Errorf("size %d: Expected %+v, got %+v", size, resp, got)
			}
		}
		if a.Buffered() != 0 {
			t.Errorf("size %d: buffer should be empty after completion, has %d bytes", size, a.Buffered())
		}
	}
}

func TestNotificationResponseAssembler_Errors(t *testing.T) {
	req := NewGetNotificationAttributesRequest(1, RequestAttribute(NotificationAttributeDate))

	a := NewNotificationResponseAssembler(req)
	if _, _, err := a.Feed([]byte{0, 1, 0, 0, 0, 0x0F, 0, 0}); !errors.Is(err, ErrUnknownEnumValue) {
		t.Errorf("Expected ErrUnknownEnumValue, got %v", err)
	}
	if a.Buffered() != 0 {
		t.Error("buffer should be discarded after an error")
	}

	// Two attributes for a one-attribute request
	extra := []byte{0, 1, 0, 0, 0, 5, 0, 0, 5, 0, 0}
	if _, _, err := a.Feed(extra); !errors.Is(err, ErrTrailingInput) {
		t.Errorf("Expected ErrTrailingInput, got %v", err)
	}
}

func TestNotificationResponseAssembler_Reset(t *testing.T) {
	a := NewNotificationResponseAssembler(NewGetNotificationAttributesRequest(1, RequestAttribute(NotificationAttributeTitle)))
	a.Feed([]byte{0, 1, 0})
	if a.Buffered() != 3 {
		t.Fatalf("Expected 3 buffered bytes, got %d", a.Buffered())
	}
	a.Reset()
	if a.Buffered() != 0 {
		t.Errorf("Expected empty buffer after Reset, got %d", a.Buffered())
	}
	if a.Request().UID != 1 {
		t.Errorf("Reset should keep the request")
	}
}

func TestAppResponseAssembler(t *testing.T) {
	req := NewGetAppAttributesRequest("com.example.app", AppAttributeDisplayName)
	resp := GetAppAttributesResponse{
		CommandID:     CommandGetAppAttributes,
		AppIdentifier: "com.example.app",
		Attributes:    []AppAttribute{NewAppAttribute(AppAttributeDisplayName, "Example")},
	}
	data, err := resp.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}

	a := NewAppResponseAssembler(req)
	// Split inside the app identifier, before its terminator
	got, complete, err := a.Feed(data[:5])
	if err != nil || complete {
		t.Fatalf("first fragment: complete=%v err=%v", complete, err)
	}
	got, complete, err = a.Feed(data[5:])
	if err != nil || !complete {
		t.Fatalf("second fragment: complete=%v err=%v", complete, err)
	}
	if !reflect.DeepEqual(got, resp) {
		t.Errorf("Expected %+v, got %+v", resp, got)
	}
}
