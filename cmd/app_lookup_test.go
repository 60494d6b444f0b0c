// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"testing"
	"time"

	"github.com/Thermoquad/ancstat/pkg/ancs"
	"github.com/Thermoquad/ancstat/pkg/bridge"
)

// com.rust.test -> "Test"
var appResponseBytes = []byte{
	0x01, 0x63, 0x6F, 0x6D, 0x2E, 0x72, 0x75, 0x73, 0x74, 0x2E, 0x74, 0x65, 0x73, 0x74, 0x00,
	0x00, 0x04, 0x00, 0x54, 0x65, 0x73, 0x74,
}

func eventsOf(frames ...*bridge.Frame) chan frameEvent {
	events := make(chan frameEvent, len(frames)+1)
	for _, f := range frames {
		events <- frameEvent{frame: f}
	}
	return events
}

func TestAwaitAppResponse_Fragmented(t *testing.T) {
	req := ancs.NewGetAppAttributesRequest("com.rust.test", ancs.AppAttributeDisplayName)
	events := eventsOf(
		bridge.NewWriteResultFrame(bridge.StatusSuccess),
		bridge.NewNotifyFrame(ancs.NotificationSource, []byte{0, 0, 0, 1, 1, 0, 0, 0}),
		bridge.NewNotifyFrame(ancs.DataSource, appResponseBytes[:9]),
		bridge.NewNotifyFrame(ancs.DataSource, appResponseBytes[9:17]),
		bridge.NewNotifyFrame(ancs.DataSource, appResponseBytes[17:]),
	)
	events <- frameEvent{err: bridge.ErrCRCMismatch}

	resp, err := awaitAppResponse(events, ancs.NewAppResponseAssembler(req), time.After(time.Second))
	if err != nil {
		t.Fatalf("awaitAppResponse failed: %v", err)
	}
	name, ok := resp.Attribute(ancs.AppAttributeDisplayName)
	if !ok || name.Value != "Test" {
		t.Errorf("Expected display name Test, got %+v", resp)
	}
	if anomalies := ancs.ValidateAppResponse(req, resp); len(anomalies) != 0 {
		t.Errorf("Expected no anomalies, got %v", anomalies)
	}
}

func TestAwaitAppResponse_Rejected(t *testing.T) {
	req := ancs.NewGetAppAttributesRequest("com.rust.test", ancs.AppAttributeDisplayName)
	events := eventsOf(bridge.NewWriteResultFrame(uint8(ancs.ErrInvalidParameter)))

	_, err := awaitAppResponse(events, ancs.NewAppResponseAssembler(req), time.After(time.Second))
	var cpErr ancs.ControlPointError
	if !errors.As(err, &cpErr) || cpErr != ancs.ErrInvalidParameter {
		t.Errorf("Expected ErrInvalidParameter, got %v", err)
	}
}

func TestAwaitAppResponse_TimeoutAndClose(t *testing.T) {
	req := ancs.NewGetAppAttributesRequest("com.rust.test", ancs.AppAttributeDisplayName)

	events := eventsOf(bridge.NewNotifyFrame(ancs.DataSource, appResponseBytes[:5]))
	_, err := awaitAppResponse(events, ancs.NewAppResponseAssembler(req), time.After(20*time.Millisecond))
	if !errors.Is(err, errLookupTimeout) {
		t.Errorf("Expected errLookupTimeout, got %v", err)
	}

	closed := eventsOf()
	close(closed)
	_, err = awaitAppResponse(closed, ancs.NewAppResponseAssembler(req), time.After(time.Second))
	if !errors.Is(err, errConnectionLost) {
		t.Errorf("Expected errConnectionLost, got %v", err)
	}
}
