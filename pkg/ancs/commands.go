// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ancs

// Command builder functions create Control Point requests with the matching
// command id already set.

// RequestAttribute requests an attribute without a maximum length
func RequestAttribute(id NotificationAttributeID) AttributeRequest {
	return AttributeRequest{ID: id}
}

// RequestAttributeWithMax requests a sized attribute truncated to maxLength
// bytes. Encoding fails if id is not sized.
func RequestAttributeWithMax(id NotificationAttributeID, maxLength uint16) AttributeRequest {
	return AttributeRequest{ID: id, MaxLength: maxLength, HasMaxLength: true}
}

// NewGetNotificationAttributesRequest creates a GET_NOTIFICATION_ATTRIBUTES
// command (0x00) for the notification with the given uid
func NewGetNotificationAttributesRequest(uid uint32, attrs ...AttributeRequest) GetNotificationAttributesRequest {
	return GetNotificationAttributesRequest{
		CommandID:  CommandGetNotificationAttributes,
		UID:        uid,
		Attributes: attrs,
	}
}

// NewGetAppAttributesRequest creates a GET_APP_ATTRIBUTES command (0x01)
func NewGetAppAttributesRequest(appIdentifier string, ids ...AppAttributeID) GetAppAttributesRequest {
	return GetAppAttributesRequest{
		CommandID:     CommandGetAppAttributes,
		AppIdentifier: appIdentifier,
		Attributes:    ids,
	}
}

// NewPerformNotificationActionRequest creates a PERFORM_NOTIFICATION_ACTION
// command (0x02). The notification provider answers with an ATT status, never
// on the Data Source.
func NewPerformNotificationActionRequest(uid uint32, action ActionID) PerformNotificationActionRequest {
	return PerformNotificationActionRequest{
		CommandID: CommandPerformNotificationAction,
		UID:       uid,
		ActionID:  action,
	}
}

// NewNotificationDetailsRequest requests everything needed to display a
// notification. Sized attributes are capped at the given lengths; a zero
// length requests the attribute without a cap and moves it to the end of the
// list, where the missing length cannot be misread.
func NewNotificationDetailsRequest(uid uint32, titleMax, subtitleMax, messageMax uint16) GetNotificationAttributesRequest {
	attrs := []AttributeRequest{
		RequestAttribute(NotificationAttributeAppIdentifier),
		RequestAttribute(NotificationAttributeDate),
		RequestAttribute(NotificationAttributeMessageSize),
		RequestAttribute(NotificationAttributePositiveActionLabel),
		RequestAttribute(NotificationAttributeNegativeActionLabel),
	}
	var uncapped []AttributeRequest
	sized := []struct {
		id  NotificationAttributeID
		max uint16
	}{
		{NotificationAttributeTitle, titleMax},
		{NotificationAttributeSubtitle, subtitleMax},
		{NotificationAttributeMessage, messageMax},
	}
	for _, s := range sized {
		if s.max == 0 {
			uncapped = append(uncapped, RequestAttribute(s.id))
			continue
		}
		attrs = append(attrs, RequestAttributeWithMax(s.id, s.max))
	}
	// Only the last entry may omit its length
	if len(uncapped) > 1 {
		for _, u := range uncapped[:len(uncapped)-1] {
			attrs = append(attrs, RequestAttributeWithMax(u.ID, MaxAttributeLength))
		}
		uncapped = uncapped[len(uncapped)-1:]
	}
	return NewGetNotificationAttributesRequest(uid, append(attrs, uncapped...)...)
}
