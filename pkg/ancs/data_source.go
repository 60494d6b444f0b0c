// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ancs

import (
	"encoding/binary"
	"fmt"
)

// DataSourceResponse is an attribute list delivered on the Data Source
type DataSourceResponse interface {
	Command() CommandID
	MarshalBinary() ([]byte, error)
}

// ParseDataSource decodes a complete Data Source response, selecting the
// response type from its leading command id
func ParseDataSource(data []byte) (DataSourceResponse, error) {
	cmd, err := readEnum(newReader(data), "command_id", ParseCommandID)
	if err != nil {
		return nil, err
	}
	var resp DataSourceResponse
	switch cmd {
	case CommandGetNotificationAttributes:
		resp, err = ParseGetNotificationAttributesResponse(data)
	case CommandGetAppAttributes:
		resp, err = ParseGetAppAttributesResponse(data)
	default:
		return nil, &DecodeError{
			Err:    ErrUnknownEnumValue,
			Field:  "command_id",
			Detail: fmt.Sprintf("%s has no data source response", cmd),
		}
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// ============================================================
// Get Notification Attributes response
// ============================================================

// GetNotificationAttributesResponse carries the attributes of one notification
type GetNotificationAttributesResponse struct {
	CommandID  CommandID
	UID        uint32
	Attributes []NotificationAttribute
}

// Command returns the response's command id
func (r GetNotificationAttributesResponse) Command() CommandID {
	return r.CommandID
}

// Attribute returns the first attribute with the given id
func (r GetNotificationAttributesResponse) Attribute(id NotificationAttributeID) (NotificationAttribute, bool) {
	for _, a := range r.Attributes {
		if a.ID == id {
			return a, true
		}
	}
	return NotificationAttribute{}, false
}

// AppendBinary appends the encoded response to dst
func (r GetNotificationAttributesResponse) AppendBinary(dst []byte) ([]byte, error) {
	if !r.CommandID.Valid() {
		return nil, fmt.Errorf("command id 0x%02X: %w", uint8(r.CommandID), ErrUnknownEnumValue)
	}
	dst = append(dst, byte(r.CommandID))
	dst = binary.LittleEndian.AppendUint32(dst, r.UID)
	for i, a := range r.Attributes {
		var err error
		if dst, err = a.AppendBinary(dst); err != nil {
			return nil, fmt.Errorf("attribute %d: %w", i, err)
		}
	}
	return dst, nil
}

// MarshalBinary returns the encoded response
func (r GetNotificationAttributesResponse) MarshalBinary() ([]byte, error) {
	size := 1 + NotificationUIDSize
	for _, a := range r.Attributes {
		size += AttributeHeaderSize + len(a.Value)
	}
	return r.AppendBinary(make([]byte, 0, size))
}

// UnmarshalBinary decodes a response. Every byte must belong to a complete
// attribute.
func (r *GetNotificationAttributesResponse) UnmarshalBinary(data []byte) error {
	rd := newReader(data)

	cmd, err := readEnum(rd, "command_id", ParseCommandID)
	if err != nil {
		return err
	}
	uid, err := rd.u32("notification_uid")
	if err != nil {
		return err
	}

	var attrs []NotificationAttribute
	for !rd.done() {
		if err := checkAttributeHeader(rd); err != nil {
			return err
		}
		a, err := readNotificationAttribute(rd)
		if err != nil {
			return err
		}
		attrs = append(attrs, a)
	}

	*r = GetNotificationAttributesResponse{CommandID: cmd, UID: uid, Attributes: attrs}
	return nil
}

// ParseGetNotificationAttributesResponse decodes a Get Notification
// Attributes response
func ParseGetNotificationAttributesResponse(data []byte) (GetNotificationAttributesResponse, error) {
	var r GetNotificationAttributesResponse
	err := r.UnmarshalBinary(data)
	return r, err
}

// ============================================================
// Get App Attributes response
// ============================================================

// GetAppAttributesResponse carries the attributes of one app
type GetAppAttributesResponse struct {
	CommandID     CommandID
	AppIdentifier string
	Attributes    []AppAttribute
}

// Command returns the response's command id
func (r GetAppAttributesResponse) Command() CommandID {
	return r.CommandID
}

// Attribute returns the first attribute with the given id
func (r GetAppAttributesResponse) Attribute(id AppAttributeID) (AppAttribute, bool) {
	for _, a := range r.Attributes {
		if a.ID == id {
			return a, true
		}
	}
	return AppAttribute{}, false
}

// AppendBinary appends the encoded response to dst
func (r GetAppAttributesResponse) AppendBinary(dst []byte) ([]byte, error) {
	if !r.CommandID.Valid() {
		return nil, fmt.Errorf("command id 0x%02X: %w", uint8(r.CommandID), ErrUnknownEnumValue)
	}
	if err := checkIdentifier("app identifier", r.AppIdentifier); err != nil {
		return nil, err
	}
	dst = append(dst, byte(r.CommandID))
	dst = appendCString(dst, r.AppIdentifier)
	for i, a := range r.Attributes {
		var err error
		if dst, err = a.AppendBinary(dst); err != nil {
			return nil, fmt.Errorf("attribute %d: %w", i, err)
		}
	}
	return dst, nil
}

// MarshalBinary returns the encoded response
func (r GetAppAttributesResponse) MarshalBinary() ([]byte, error) {
	size := 2 + len(r.AppIdentifier)
	for _, a := range r.Attributes {
		size += AttributeHeaderSize + len(a.Value)
	}
	return r.AppendBinary(make([]byte, 0, size))
}

// UnmarshalBinary decodes a response. Every byte must belong to a complete
// attribute.
func (r *GetAppAttributesResponse) UnmarshalBinary(data []byte) error {
	rd := newReader(data)

	cmd, err := readEnum(rd, "command_id", ParseCommandID)
	if err != nil {
		return err
	}
	app, err := rd.cstring("app_identifier")
	if err != nil {
		return err
	}

	var attrs []AppAttribute
	for !rd.done() {
		if err := checkAttributeHeader(rd); err != nil {
			return err
		}
		a, err := readAppAttribute(rd)
		if err != nil {
			return err
		}
		attrs = append(attrs, a)
	}

	*r = GetAppAttributesResponse{CommandID: cmd, AppIdentifier: app, Attributes: attrs}
	return nil
}

// ParseGetAppAttributesResponse decodes a Get App Attributes response
func ParseGetAppAttributesResponse(data []byte) (GetAppAttributesResponse, error) {
	var r GetAppAttributesResponse
	err := r.UnmarshalBinary(data)
	return r, err
}

// checkAttributeHeader fails with ErrTrailingInput when the bytes left
// cannot hold even an attribute header
func checkAttributeHeader(rd *reader) error {
	if n := rd.remaining(); n < AttributeHeaderSize {
		return rd.fail(ErrTrailingInput, "attribute_list", rd.pos,
			fmt.Sprintf("%d bytes do not form an attribute", n))
	}
	return nil
}
