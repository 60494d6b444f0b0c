// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ancs

import (
	"encoding/binary"
	"fmt"
)

// ControlPointRequest is a command written to the Control Point
type ControlPointRequest interface {
	Command() CommandID
	MarshalBinary() ([]byte, error)
}

// ParseControlPoint decodes a Control Point payload, selecting the request
// type from its leading command id
func ParseControlPoint(data []byte) (ControlPointRequest, error) {
	cmd, err := readEnum(newReader(data), "command_id", ParseCommandID)
	if err != nil {
		return nil, err
	}
	var req ControlPointRequest
	switch cmd {
	case CommandGetNotificationAttributes:
		req, err = ParseGetNotificationAttributesRequest(data)
	case CommandGetAppAttributes:
		req, err = ParseGetAppAttributesRequest(data)
	default:
		req, err = ParsePerformNotificationActionRequest(data)
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

// ============================================================
// Get Notification Attributes
// ============================================================

// AttributeRequest is one entry of a Get Notification Attributes command.
// MaxLength is only sent when HasMaxLength is set, and only sized
// attributes may carry one.
type AttributeRequest struct {
	ID           NotificationAttributeID
	MaxLength    uint16
	HasMaxLength bool
}

// wireSize returns the number of bytes the entry occupies on the wire
func (a AttributeRequest) wireSize() int {
	if a.HasMaxLength {
		return 3
	}
	return 1
}

func (a AttributeRequest) String() string {
	if a.HasMaxLength {
		return fmt.Sprintf("%s(max=%d)", a.ID, a.MaxLength)
	}
	return a.ID.String()
}

// GetNotificationAttributesRequest asks for attributes of one notification.
//
// Entries are decoded greedily: a sized attribute followed by at least two
// more bytes takes those bytes as its maximum length. A sized entry sent
// without a maximum length therefore only reads back unchanged when no
// entry follows it.
type GetNotificationAttributesRequest struct {
	CommandID  CommandID
	UID        uint32
	Attributes []AttributeRequest
}

// Command returns the request's command id
func (r GetNotificationAttributesRequest) Command() CommandID {
	return r.CommandID
}

// AppendBinary appends the encoded request to dst
func (r GetNotificationAttributesRequest) AppendBinary(dst []byte) ([]byte, error) {
	if !r.CommandID.Valid() {
		return nil, fmt.Errorf("command id 0x%02X: %w", uint8(r.CommandID), ErrUnknownEnumValue)
	}
	dst = append(dst, byte(r.CommandID))
	dst = binary.LittleEndian.AppendUint32(dst, r.UID)

	for i, a := range r.Attributes {
		if !a.ID.Valid() {
			return nil, fmt.Errorf("attribute %d: id 0x%02X: %w", i, uint8(a.ID), ErrUnknownEnumValue)
		}
		dst = append(dst, byte(a.ID))
		if !a.HasMaxLength {
			continue
		}
		if !a.ID.IsSized() {
			return nil, fmt.Errorf("attribute %d: %s cannot carry a max length: %w",
				i, a.ID, ErrAmbiguousVariadicEntry)
		}
		dst = binary.LittleEndian.AppendUint16(dst, a.MaxLength)
	}
	return dst, nil
}

// MarshalBinary returns the encoded request
func (r GetNotificationAttributesRequest) MarshalBinary() ([]byte, error) {
	size := 1 + NotificationUIDSize
	for _, a := range r.Attributes {
		size += a.wireSize()
	}
	return r.AppendBinary(make([]byte, 0, size))
}

// UnmarshalBinary decodes a request, consuming all of data
func (r *GetNotificationAttributesRequest) UnmarshalBinary(data []byte) error {
	rd := newReader(data)

	cmd, err := readEnum(rd, "command_id", ParseCommandID)
	if err != nil {
		return err
	}
	uid, err := rd.u32("notification_uid")
	if err != nil {
		return err
	}

	var attrs []AttributeRequest
	for !rd.done() {
		id, err := readEnum(rd, "attribute_id", ParseNotificationAttributeID)
		if err != nil {
			return err
		}
		entry := AttributeRequest{ID: id}
		// Sized: take a max length if one fits. Unsized: never.
		if id.IsSized() && rd.remaining() >= 2 {
			entry.MaxLength, _ = rd.u16("max_length")
			entry.HasMaxLength = true
		}
		attrs = append(attrs, entry)
	}

	*r = GetNotificationAttributesRequest{CommandID: cmd, UID: uid, Attributes: attrs}
	return nil
}

// ParseGetNotificationAttributesRequest decodes a Get Notification
// Attributes command
func ParseGetNotificationAttributesRequest(data []byte) (GetNotificationAttributesRequest, error) {
	var r GetNotificationAttributesRequest
	err := r.UnmarshalBinary(data)
	return r, err
}

// ============================================================
// Get App Attributes
// ============================================================

// GetAppAttributesRequest asks for attributes of an app. The app identifier
// is sent with exactly one trailing NUL, which is never part of the value.
type GetAppAttributesRequest struct {
	CommandID     CommandID
	AppIdentifier string
	Attributes    []AppAttributeID
}

// Command returns the request's command id
func (r GetAppAttributesRequest) Command() CommandID {
	return r.CommandID
}

// AppendBinary appends the encoded request to dst
func (r GetAppAttributesRequest) AppendBinary(dst []byte) ([]byte, error) {
	if !r.CommandID.Valid() {
		return nil, fmt.Errorf("command id 0x%02X: %w", uint8(r.CommandID), ErrUnknownEnumValue)
	}
	if err := checkIdentifier("app identifier", r.AppIdentifier); err != nil {
		return nil, err
	}
	dst = append(dst, byte(r.CommandID))
	dst = appendCString(dst, r.AppIdentifier)
	for i, id := range r.Attributes {
		if !id.Valid() {
			return nil, fmt.Errorf("attribute %d: id 0x%02X: %w", i, uint8(id), ErrUnknownEnumValue)
		}
		dst = append(dst, byte(id))
	}
	return dst, nil
}

// MarshalBinary returns the encoded request
func (r GetAppAttributesRequest) MarshalBinary() ([]byte, error) {
	return r.AppendBinary(make([]byte, 0, 2+len(r.AppIdentifier)+len(r.Attributes)))
}

// UnmarshalBinary decodes a request, consuming all of data
func (r *GetAppAttributesRequest) UnmarshalBinary(data []byte) error {
	rd := newReader(data)

	cmd, err := readEnum(rd, "command_id", ParseCommandID)
	if err != nil {
		return err
	}
	app, err := rd.cstring("app_identifier")
	if err != nil {
		return err
	}

	var ids []AppAttributeID
	for !rd.done() {
		id, err := readEnum(rd, "attribute_id", ParseAppAttributeID)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}

	*r = GetAppAttributesRequest{CommandID: cmd, AppIdentifier: app, Attributes: ids}
	return nil
}

// ParseGetAppAttributesRequest decodes a Get App Attributes command
func ParseGetAppAttributesRequest(data []byte) (GetAppAttributesRequest, error) {
	var r GetAppAttributesRequest
	err := r.UnmarshalBinary(data)
	return r, err
}

// ============================================================
// Perform Notification Action
// ============================================================

// PerformNotificationActionRequest triggers a notification's positive or
// negative action
type PerformNotificationActionRequest struct {
	CommandID CommandID
	UID       uint32
	ActionID  ActionID
}

// Command returns the request's command id
func (r PerformNotificationActionRequest) Command() CommandID {
	return r.CommandID
}

// AppendBinary appends the 6-byte encoding of r to dst
func (r PerformNotificationActionRequest) AppendBinary(dst []byte) ([]byte, error) {
	if !r.CommandID.Valid() {
		return nil, fmt.Errorf("command id 0x%02X: %w", uint8(r.CommandID), ErrUnknownEnumValue)
	}
	if !r.ActionID.Valid() {
		return nil, fmt.Errorf("action id 0x%02X: %w", uint8(r.ActionID), ErrUnknownEnumValue)
	}
	dst = append(dst, byte(r.CommandID))
	dst = binary.LittleEndian.AppendUint32(dst, r.UID)
	return append(dst, byte(r.ActionID)), nil
}

// MarshalBinary returns the 6-byte encoding of r
func (r PerformNotificationActionRequest) MarshalBinary() ([]byte, error) {
	return r.AppendBinary(make([]byte, 0, PerformActionRequestSize))
}

// UnmarshalBinary decodes exactly PerformActionRequestSize bytes
func (r *PerformNotificationActionRequest) UnmarshalBinary(data []byte) error {
	rd := newReader(data)

	cmd, err := readEnum(rd, "command_id", ParseCommandID)
	if err != nil {
		return err
	}
	uid, err := rd.u32("notification_uid")
	if err != nil {
		return err
	}
	action, err := readEnum(rd, "action_id", ParseActionID)
	if err != nil {
		return err
	}
	if err := rd.end("perform_notification_action"); err != nil {
		return err
	}

	*r = PerformNotificationActionRequest{CommandID: cmd, UID: uid, ActionID: action}
	return nil
}

// ParsePerformNotificationActionRequest decodes a Perform Notification
// Action command
func ParsePerformNotificationActionRequest(data []byte) (PerformNotificationActionRequest, error) {
	var r PerformNotificationActionRequest
	err := r.UnmarshalBinary(data)
	return r, err
}
