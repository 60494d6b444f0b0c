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

func notify(c ancs.Characteristic, value []byte) frameEvent {
	return frameEvent{frame: bridge.NewNotifyFrame(c, value)}
}

func mustMarshal(t *testing.T, m interface{ MarshalBinary() ([]byte, error) }) []byte {
	t.Helper()
	data, err := m.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary failed: %v", err)
	}
	return data
}

func TestTrafficAnalyzer_Notification(t *testing.T) {
	a := newTrafficAnalyzer()

	result := a.process(notify(ancs.NotificationSource, []byte{0, 1, 0, 0, 255, 255, 255, 255}))
	if result.failed() {
		t.Fatalf("Unexpected failure: %+v", result)
	}
	n, ok := result.message.(ancs.Notification)
	if !ok || n.UID != 0xFFFFFFFF {
		t.Errorf("Expected notification uid 0xFFFFFFFF, got %#v", result.message)
	}

	result = a.process(notify(ancs.NotificationSource, []byte{0, 1, 0, 0}))
	if !errors.Is(result.decodeErr, ancs.ErrTruncatedInput) {
		t.Errorf("Expected ErrTruncatedInput, got %v", result.decodeErr)
	}

	if a.stats.TotalFrames != 2 || a.stats.ValidFrames != 1 || a.stats.TruncatedInput != 1 {
		t.Errorf("Unexpected statistics: total=%d valid=%d truncated=%d",
			a.stats.TotalFrames, a.stats.ValidFrames, a.stats.TruncatedInput)
	}
}

func TestTrafficAnalyzer_ReassemblesResponse(t *testing.T) {
	a := newTrafficAnalyzer()
	req := ancs.NewGetNotificationAttributesRequest(42,
		ancs.RequestAttribute(ancs.NotificationAttributeAppIdentifier),
		ancs.RequestAttributeWithMax(ancs.NotificationAttributeTitle, 16),
	)
	a.expect(req)

	resp := ancs.GetNotificationAttributesResponse{
		CommandID: ancs.CommandGetNotificationAttributes,
		UID:       42,
		Attributes: []ancs.NotificationAttribute{
			ancs.NewNotificationAttribute(ancs.NotificationAttributeAppIdentifier, "com.apple.MobileSMS"),
			ancs.NewNotificationAttribute(ancs.NotificationAttributeTitle, "Kaz"),
		},
	}
	data := mustMarshal(t, resp)

	a.process(frameEvent{frame: bridge.NewWriteResultFrame(bridge.StatusSuccess)})

	first := a.process(notify(ancs.DataSource, data[:10]))
	if !first.fragment || first.failed() {
		t.Fatalf("Expected buffered fragment, got %+v", first)
	}

	last := a.process(notify(ancs.DataSource, data[10:]))
	if last.failed() {
		t.Fatalf("Unexpected failure: %+v", last)
	}
	got, ok := last.message.(ancs.GetNotificationAttributesResponse)
	if !ok || got.UID != 42 || len(got.Attributes) != 2 {
		t.Errorf("Expected reassembled response, got %#v", last.message)
	}
	if a.outstanding() != 0 {
		t.Errorf("Expected no outstanding requests, got %d", a.outstanding())
	}
	if a.stats.ReassembledResps != 1 {
		t.Errorf("Expected 1 reassembled response, got %d", a.stats.ReassembledResps)
	}
}

func TestTrafficAnalyzer_ReportsAnomalies(t *testing.T) {
	a := newTrafficAnalyzer()
	a.expect(ancs.NewGetNotificationAttributesRequest(7, ancs.RequestAttribute(ancs.NotificationAttributeDate)))

	resp := ancs.GetNotificationAttributesResponse{
		CommandID:  ancs.CommandGetNotificationAttributes,
		UID:        8,
		Attributes: []ancs.NotificationAttribute{ancs.NewNotificationAttribute(ancs.NotificationAttributeDate, "yesterday")},
	}
	result := a.process(notify(ancs.DataSource, mustMarshal(t, resp)))

	if len(result.anomalies) == 0 {
		t.Fatal("Expected anomalies for wrong uid and bad date")
	}
	if a.stats.UIDMismatches != 1 || a.stats.MalformedValues != 1 {
		t.Errorf("Expected uid and value anomalies, got uid=%d value=%d", a.stats.UIDMismatches, a.stats.MalformedValues)
	}
}

func TestTrafficAnalyzer_RejectedWriteDropsRequest(t *testing.T) {
	a := newTrafficAnalyzer()
	a.expect(ancs.NewGetAppAttributesRequest("com.rust.test", ancs.AppAttributeDisplayName))
	a.expect(ancs.NewGetNotificationAttributesRequest(1, ancs.RequestAttribute(ancs.NotificationAttributeAppIdentifier)))

	a.process(frameEvent{frame: bridge.NewWriteResultFrame(uint8(ancs.ErrUnknownCommand))})
	if a.outstanding() != 1 {
		t.Fatalf("Expected 1 outstanding request, got %d", a.outstanding())
	}
	if a.nextAttributeRequest().notification == nil {
		t.Error("Expected the notification request to remain")
	}
	if a.stats.WriteFailures != 1 {
		t.Errorf("Expected 1 write failure, got %d", a.stats.WriteFailures)
	}
}

func TestTrafficAnalyzer_LinkDownAndExpiry(t *testing.T) {
	a := newTrafficAnalyzer()
	a.expect(ancs.NewGetAppAttributesRequest("com.rust.test", ancs.AppAttributeDisplayName))

	a.process(frameEvent{frame: bridge.NewLinkStateFrame(false)})
	if a.outstanding() != 0 {
		t.Errorf("Expected link down to drop requests, got %d", a.outstanding())
	}

	a.expect(ancs.NewGetAppAttributesRequest("com.rust.test", ancs.AppAttributeDisplayName))
	a.pending[0].sent = time.Now().Add(-time.Minute)
	if dropped := a.expire(10 * time.Second); dropped != 1 {
		t.Errorf("Expected 1 expired request, got %d", dropped)
	}
}

func TestTrafficAnalyzer_UnsolicitedDataSource(t *testing.T) {
	a := newTrafficAnalyzer()

	result := a.process(notify(ancs.DataSource, appResponseBytes))
	if result.failed() {
		t.Fatalf("Unexpected failure: %+v", result)
	}
	if _, ok := result.message.(ancs.GetAppAttributesResponse); !ok {
		t.Errorf("Expected app response, got %T", result.message)
	}

	result = a.process(frameEvent{err: bridge.ErrCRCMismatch})
	if result.frameErr == nil || a.stats.CRCErrors != 1 {
		t.Errorf("Expected CRC error to be counted, got %+v", result)
	}
}
