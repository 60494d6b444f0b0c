// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ancs

import (
	"encoding/binary"
	"fmt"
)

// Notification is a Notification Source record
type Notification struct {
	EventID       EventID
	EventFlags    EventFlags
	CategoryID    CategoryID
	CategoryCount uint8  // Number of active notifications in the category
	UID           uint32 // Session-scoped notification identifier
}

// ParseNotification decodes an 8-byte Notification Source payload
func ParseNotification(data []byte) (Notification, error) {
	var n Notification
	err := n.UnmarshalBinary(data)
	return n, err
}

// AppendBinary appends the 8-byte encoding of n to dst
func (n Notification) AppendBinary(dst []byte) ([]byte, error) {
	if !n.EventID.Valid() {
		return nil, fmt.Errorf("event id 0x%02X: %w", uint8(n.EventID), ErrUnknownEnumValue)
	}
	if !n.EventFlags.Valid() {
		return nil, fmt.Errorf("event flags 0x%02X: %w", uint8(n.EventFlags), ErrUnknownEnumValue)
	}
	if !n.CategoryID.Valid() {
		return nil, fmt.Errorf("category id 0x%02X: %w", uint8(n.CategoryID), ErrUnknownEnumValue)
	}
	dst = append(dst, byte(n.EventID), byte(n.EventFlags), byte(n.CategoryID), n.CategoryCount)
	return binary.LittleEndian.AppendUint32(dst, n.UID), nil
}

// MarshalBinary returns the 8-byte encoding of n
func (n Notification) MarshalBinary() ([]byte, error) {
	return n.AppendBinary(make([]byte, 0, NotificationSize))
}

// UnmarshalBinary decodes exactly NotificationSize bytes into n
func (n *Notification) UnmarshalBinary(data []byte) error {
	r := newReader(data)

	eventID, err := readEnum(r, "event_id", ParseEventID)
	if err != nil {
		return err
	}
	flags, err := readEnum(r, "event_flags", ParseEventFlags)
	if err != nil {
		return err
	}
	category, err := readEnum(r, "category_id", ParseCategoryID)
	if err != nil {
		return err
	}
	count, err := r.u8("category_count")
	if err != nil {
		return err
	}
	uid, err := r.u32("notification_uid")
	if err != nil {
		return err
	}
	if err := r.end("notification"); err != nil {
		return err
	}

	*n = Notification{
		EventID:       eventID,
		EventFlags:    flags,
		CategoryID:    category,
		CategoryCount: count,
		UID:           uid,
	}
	return nil
}

func (n Notification) String() string {
	return fmt.Sprintf("%s uid=%d category=%s count=%d flags=%s",
		n.EventID, n.UID, n.CategoryID, n.CategoryCount, n.EventFlags)
}
