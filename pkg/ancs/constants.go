// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package ancs provides a Go implementation of the Apple Notification Center
// Service (ANCS) wire format.
//
// ANCS exposes three GATT characteristics. The Notification Source delivers
// fixed 8-byte notification records, the Control Point accepts commands that
// request attributes or perform actions, and the Data Source returns the
// requested attributes as lists of TLV entries. This package converts between
// those byte payloads and typed values. It performs no I/O.
package ancs

import (
	"fmt"

	"github.com/google/uuid"
)

// GATT identifiers
var (
	ServiceUUID            = uuid.MustParse("7905F431-B5CE-4E99-A40F-4B1E122D00D0")
	NotificationSourceUUID = uuid.MustParse("9FBF120D-6301-42D9-8C58-25E699A21DBD")
	ControlPointUUID       = uuid.MustParse("69D1D8F3-45E1-49A8-9821-9BBDFDAAD9D9")
	DataSourceUUID         = uuid.MustParse("22EAC6E9-24D6-4BB5-BE44-B36ACE7C7BFB")
)

// Wire sizes
const (
	NotificationSize         = 8 // event, flags, category, count, uid(4)
	PerformActionRequestSize = 6 // command, uid(4), action
	AttributeHeaderSize      = 3 // id, length(2)
	NotificationUIDSize      = 4
	MaxAttributeLength       = 0xFFFF
)

// Characteristic identifies one of the three ANCS GATT characteristics
type Characteristic uint8

// Characteristic values
const (
	NotificationSource Characteristic = 0x00
	ControlPoint       Characteristic = 0x01
	DataSource         Characteristic = 0x02
)

// ParseCharacteristic maps a raw byte to a Characteristic
func ParseCharacteristic(b byte) (Characteristic, error) {
	c := Characteristic(b)
	if !c.Valid() {
		return 0, fmt.Errorf("characteristic 0x%02X: %w", b, ErrUnknownEnumValue)
	}
	return c, nil
}

// CharacteristicFromUUID returns the characteristic with the given GATT UUID
func CharacteristicFromUUID(id uuid.UUID) (Characteristic, error) {
	switch id {
	case NotificationSourceUUID:
		return NotificationSource, nil
	case ControlPointUUID:
		return ControlPoint, nil
	case DataSourceUUID:
		return DataSource, nil
	}
	return 0, fmt.Errorf("characteristic %s: %w", id, ErrUnknownEnumValue)
}

// Valid reports whether c is a defined characteristic
func (c Characteristic) Valid() bool {
	return c <= DataSource
}

// UUID returns the characteristic's GATT UUID
func (c Characteristic) UUID() uuid.UUID {
	switch c {
	case NotificationSource:
		return NotificationSourceUUID
	case ControlPoint:
		return ControlPointUUID
	case DataSource:
		return DataSourceUUID
	}
	return uuid.Nil
}

func (c Characteristic) String() string {
	switch c {
	case NotificationSource:
		return "NOTIFICATION_SOURCE"
	case ControlPoint:
		return "CONTROL_POINT"
	case DataSource:
		return "DATA_SOURCE"
	}
	return fmt.Sprintf("UNKNOWN(0x%02X)", uint8(c))
}
