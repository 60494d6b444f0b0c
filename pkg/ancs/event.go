// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ancs

import (
	"fmt"
	"strings"
)

// EventID describes what happened to a notification
type EventID uint8

// Event ID values
const (
	EventNotificationAdded    EventID = 0x00
	EventNotificationModified EventID = 0x01
	EventNotificationRemoved  EventID = 0x02
)

// ParseEventID maps a raw byte to an EventID
func ParseEventID(b byte) (EventID, error) {
	e := EventID(b)
	if !e.Valid() {
		return 0, fmt.Errorf("event id 0x%02X: %w", b, ErrUnknownEnumValue)
	}
	return e, nil
}

// Valid reports whether e is a defined event
func (e EventID) Valid() bool {
	return e <= EventNotificationRemoved
}

func (e EventID) String() string {
	switch e {
	case EventNotificationAdded:
		return "ADDED"
	case EventNotificationModified:
		return "MODIFIED"
	case EventNotificationRemoved:
		return "REMOVED"
	}
	return fmt.Sprintf("UNKNOWN(0x%02X)", uint8(e))
}

// EventFlags is a bit set of notification properties. Any combination of
// the defined flags is valid, including none.
type EventFlags uint8

// Event flag bits
const (
	EventFlagSilent         EventFlags = 0x01
	EventFlagImportant      EventFlags = 0x02
	EventFlagPreExisting    EventFlags = 0x04
	EventFlagPositiveAction EventFlags = 0x08
	EventFlagNegativeAction EventFlags = 0x10

	eventFlagsMask = EventFlagSilent | EventFlagImportant | EventFlagPreExisting |
		EventFlagPositiveAction | EventFlagNegativeAction
)

var eventFlagNames = []struct {
	flag EventFlags
	name string
}{
	{EventFlagSilent, "SILENT"},
	{EventFlagImportant, "IMPORTANT"},
	{EventFlagPreExisting, "PRE_EXISTING"},
	{EventFlagPositiveAction, "POSITIVE_ACTION"},
	{EventFlagNegativeAction, "NEGATIVE_ACTION"},
}

// ParseEventFlags maps a raw byte to EventFlags. Bits outside the five
// defined flags are rejected.
func ParseEventFlags(b byte) (EventFlags, error) {
	f := EventFlags(b)
	if !f.Valid() {
		return 0, fmt.Errorf("event flags 0x%02X (undefined bits 0x%02X): %w",
			b, uint8(f&^eventFlagsMask), ErrUnknownEnumValue)
	}
	return f, nil
}

// Valid reports whether f only contains defined bits
func (f EventFlags) Valid() bool {
	return f&^eventFlagsMask == 0
}

// Has reports whether every flag in other is set in f
func (f EventFlags) Has(other EventFlags) bool {
	return f&other == other
}

// With returns the union of f and other
func (f EventFlags) With(other EventFlags) EventFlags {
	return f | other
}

func (f EventFlags) String() string {
	if f == 0 {
		return "NONE"
	}
	var names []string
	for _, fn := range eventFlagNames {
		if f.Has(fn.flag) {
			names = append(names, fn.name)
		}
	}
	if extra := f &^ eventFlagsMask; extra != 0 {
		names = append(names, fmt.Sprintf("0x%02X", uint8(extra)))
	}
	return strings.Join(names, "|")
}

// CategoryID classifies a notification
type CategoryID uint8

// Category ID values
const (
	CategoryOther              CategoryID = 0x00
	CategoryIncomingCall       CategoryID = 0x01
	CategoryMissedCall         CategoryID = 0x02
	CategoryVoicemail          CategoryID = 0x03
	CategorySocial             CategoryID = 0x04
	CategorySchedule           CategoryID = 0x05
	CategoryEmail              CategoryID = 0x06
	CategoryNews               CategoryID = 0x07
	CategoryHealthAndFitness   CategoryID = 0x08
	CategoryBusinessAndFinance CategoryID = 0x09
	CategoryLocation           CategoryID = 0x0A
	CategoryEntertainment      CategoryID = 0x0B
)

var categoryNames = [...]string{
	"OTHER",
	"INCOMING_CALL",
	"MISSED_CALL",
	"VOICEMAIL",
	"SOCIAL",
	"SCHEDULE",
	"EMAIL",
	"NEWS",
	"HEALTH_AND_FITNESS",
	"BUSINESS_AND_FINANCE",
	"LOCATION",
	"ENTERTAINMENT",
}

// ParseCategoryID maps a raw byte to a CategoryID
func ParseCategoryID(b byte) (CategoryID, error) {
	c := CategoryID(b)
	if !c.Valid() {
		return 0, fmt.Errorf("category id 0x%02X: %w", b, ErrUnknownEnumValue)
	}
	return c, nil
}

// Valid reports whether c is a defined category
func (c CategoryID) Valid() bool {
	return c <= CategoryEntertainment
}

func (c CategoryID) String() string {
	if c.Valid() {
		return categoryNames[c]
	}
	return fmt.Sprintf("UNKNOWN(0x%02X)", uint8(c))
}
