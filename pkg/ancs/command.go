// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ancs

import "fmt"

// CommandID selects a Control Point command. Data Source responses echo the
// command they answer.
type CommandID uint8

// Command ID values
const (
	CommandGetNotificationAttributes CommandID = 0x00
	CommandGetAppAttributes          CommandID = 0x01
	CommandPerformNotificationAction CommandID = 0x02
)

// ParseCommandID maps a raw byte to a CommandID
func ParseCommandID(b byte) (CommandID, error) {
	c := CommandID(b)
	if !c.Valid() {
		return 0, fmt.Errorf("command id 0x%02X: %w", b, ErrUnknownEnumValue)
	}
	return c, nil
}

// Valid reports whether c is a defined command
func (c CommandID) Valid() bool {
	return c <= CommandPerformNotificationAction
}

func (c CommandID) String() string {
	switch c {
	case CommandGetNotificationAttributes:
		return "GET_NOTIFICATION_ATTRIBUTES"
	case CommandGetAppAttributes:
		return "GET_APP_ATTRIBUTES"
	case CommandPerformNotificationAction:
		return "PERFORM_NOTIFICATION_ACTION"
	}
	return fmt.Sprintf("UNKNOWN(0x%02X)", uint8(c))
}

// ActionID selects which of a notification's actions to perform
type ActionID uint8

// Action ID values
const (
	ActionPositive ActionID = 0x00
	ActionNegative ActionID = 0x01
)

// ParseActionID maps a raw byte to an ActionID
func ParseActionID(b byte) (ActionID, error) {
	a := ActionID(b)
	if !a.Valid() {
		return 0, fmt.Errorf("action id 0x%02X: %w", b, ErrUnknownEnumValue)
	}
	return a, nil
}

// Valid reports whether a is a defined action
func (a ActionID) Valid() bool {
	return a <= ActionNegative
}

func (a ActionID) String() string {
	switch a {
	case ActionPositive:
		return "POSITIVE"
	case ActionNegative:
		return "NEGATIVE"
	}
	return fmt.Sprintf("UNKNOWN(0x%02X)", uint8(a))
}

// NotificationAttributeID names a notification attribute
type NotificationAttributeID uint8

// Notification attribute ID values
const (
	NotificationAttributeAppIdentifier       NotificationAttributeID = 0x00
	NotificationAttributeTitle               NotificationAttributeID = 0x01 // sized
	NotificationAttributeSubtitle            NotificationAttributeID = 0x02 // sized
	NotificationAttributeMessage             NotificationAttributeID = 0x03 // sized
	NotificationAttributeMessageSize         NotificationAttributeID = 0x04
	NotificationAttributeDate                NotificationAttributeID = 0x05
	NotificationAttributePositiveActionLabel NotificationAttributeID = 0x06
	NotificationAttributeNegativeActionLabel NotificationAttributeID = 0x07
)

var notificationAttributeNames = [...]string{
	"APP_IDENTIFIER",
	"TITLE",
	"SUBTITLE",
	"MESSAGE",
	"MESSAGE_SIZE",
	"DATE",
	"POSITIVE_ACTION_LABEL",
	"NEGATIVE_ACTION_LABEL",
}

// ParseNotificationAttributeID maps a raw byte to a NotificationAttributeID
func ParseNotificationAttributeID(b byte) (NotificationAttributeID, error) {
	id := NotificationAttributeID(b)
	if !id.Valid() {
		return 0, fmt.Errorf("notification attribute id 0x%02X: %w", b, ErrUnknownEnumValue)
	}
	return id, nil
}

// Valid reports whether id is a defined notification attribute
func (id NotificationAttributeID) Valid() bool {
	return id <= NotificationAttributeNegativeActionLabel
}

// IsSized reports whether a request for this attribute may carry a
// maximum length
func (id NotificationAttributeID) IsSized() bool {
	switch id {
	case NotificationAttributeTitle, NotificationAttributeSubtitle, NotificationAttributeMessage:
		return true
	}
	return false
}

func (id NotificationAttributeID) String() string {
	if id.Valid() {
		return notificationAttributeNames[id]
	}
	return fmt.Sprintf("UNKNOWN(0x%02X)", uint8(id))
}

// AppAttributeID names an app attribute
type AppAttributeID uint8

// App attribute ID values
const (
	AppAttributeDisplayName AppAttributeID = 0x00
)

// ParseAppAttributeID maps a raw byte to an AppAttributeID
func ParseAppAttributeID(b byte) (AppAttributeID, error) {
	id := AppAttributeID(b)
	if !id.Valid() {
		return 0, fmt.Errorf("app attribute id 0x%02X: %w", b, ErrUnknownEnumValue)
	}
	return id, nil
}

// Valid reports whether id is a defined app attribute
func (id AppAttributeID) Valid() bool {
	return id == AppAttributeDisplayName
}

func (id AppAttributeID) String() string {
	if id == AppAttributeDisplayName {
		return "DISPLAY_NAME"
	}
	return fmt.Sprintf("UNKNOWN(0x%02X)", uint8(id))
}
