// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ancs

import "fmt"

// AnomalyType represents different ways a response can disagree with the
// request that produced it
type AnomalyType int

const (
	AnomalyCommandMismatch AnomalyType = iota
	AnomalyUIDMismatch
	AnomalyAppIdentifierMismatch
	AnomalyMissingAttribute
	AnomalyUnexpectedAttribute
	AnomalyValueTooLong
	AnomalyInvalidDate
	AnomalyInvalidMessageSize
)

func (t AnomalyType) String() string {
	switch t {
	case AnomalyCommandMismatch:
		return "COMMAND_MISMATCH"
	case AnomalyUIDMismatch:
		return "UID_MISMATCH"
	case AnomalyAppIdentifierMismatch:
		return "APP_IDENTIFIER_MISMATCH"
	case AnomalyMissingAttribute:
		return "MISSING_ATTRIBUTE"
	case AnomalyUnexpectedAttribute:
		return "UNEXPECTED_ATTRIBUTE"
	case AnomalyValueTooLong:
		return "VALUE_TOO_LONG"
	case AnomalyInvalidDate:
		return "INVALID_DATE"
	case AnomalyInvalidMessageSize:
		return "INVALID_MESSAGE_SIZE"
	}
	return fmt.Sprintf("ANOMALY(%d)", int(t))
}

// ValidationError represents a response that decoded but does not answer
// its request correctly
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidateNotificationResponse checks resp against the request it answers.
// Returns a slice of validation errors (empty if the response is valid).
func ValidateNotificationResponse(req GetNotificationAttributesRequest, resp GetNotificationAttributesResponse) []ValidationError {
	errors := []ValidationError{}

	if resp.CommandID != req.CommandID {
		errors = append(errors, commandMismatch(req.CommandID, resp.CommandID))
	}
	if resp.UID != req.UID {
		errors = append(errors, ValidationError{
			Type:    AnomalyUIDMismatch,
			Message: fmt.Sprintf("Response uid=%d does not match request uid=%d", resp.UID, req.UID),
			Details: map[string]interface{}{"uid": resp.UID, "expected": req.UID},
		})
	}

	requested := make(map[NotificationAttributeID]AttributeRequest, len(req.Attributes))
	for _, r := range req.Attributes {
		requested[r.ID] = r
	}
	received := make(map[NotificationAttributeID]bool, len(resp.Attributes))

	for _, a := range resp.Attributes {
		received[a.ID] = true
		r, ok := requested[a.ID]
		if !ok {
			errors = append(errors, ValidationError{
				Type:    AnomalyUnexpectedAttribute,
				Message: fmt.Sprintf("Attribute %s was not requested", a.ID),
				Details: map[string]interface{}{"attribute": a.ID.String()},
			})
			continue
		}
		if r.HasMaxLength && a.Length > r.MaxLength {
			errors = append(errors, ValidationError{
				Type:    AnomalyValueTooLong,
				Message: fmt.Sprintf("Attribute %s length %d exceeds requested max %d", a.ID, a.Length, r.MaxLength),
				Details: map[string]interface{}{"attribute": a.ID.String(), "length": a.Length, "max": r.MaxLength},
			})
		}
		errors = append(errors, validateAttributeValue(a)...)
	}

	for _, r := range req.Attributes {
		if !received[r.ID] {
			errors = append(errors, ValidationError{
				Type:    AnomalyMissingAttribute,
				Message: fmt.Sprintf("Requested attribute %s missing from response", r.ID),
				Details: map[string]interface{}{"attribute": r.ID.String()},
			})
		}
	}

	return errors
}

// ValidateAppResponse checks resp against the request it answers.
// Returns a slice of validation errors (empty if the response is valid).
func ValidateAppResponse(req GetAppAttributesRequest, resp GetAppAttributesResponse) []ValidationError {
	errors := []ValidationError{}

	if resp.CommandID != req.CommandID {
		errors = append(errors, commandMismatch(req.CommandID, resp.CommandID))
	}
	if resp.AppIdentifier != trimNUL(req.AppIdentifier) {
		errors = append(errors, ValidationError{
			Type:    AnomalyAppIdentifierMismatch,
			Message: fmt.Sprintf("Response app %q does not match request app %q", resp.AppIdentifier, req.AppIdentifier),
			Details: map[string]interface{}{"app": resp.AppIdentifier, "expected": req.AppIdentifier},
		})
	}

	requested := make(map[AppAttributeID]bool, len(req.Attributes))
	for _, id := range req.Attributes {
		requested[id] = true
	}
	received := make(map[AppAttributeID]bool, len(resp.Attributes))

	for _, a := range resp.Attributes {
		received[a.ID] = true
		if !requested[a.ID] {
			errors = append(errors, ValidationError{
				Type:    AnomalyUnexpectedAttribute,
				Message: fmt.Sprintf("Attribute %s was not requested", a.ID),
				Details: map[string]interface{}{"attribute": a.ID.String()},
			})
		}
	}
	for _, id := range req.Attributes {
		if !received[id] {
			errors = append(errors, ValidationError{
				Type:    AnomalyMissingAttribute,
				Message: fmt.Sprintf("Requested attribute %s missing from response", id),
				Details: map[string]interface{}{"attribute": id.String()},
			})
		}
	}

	return errors
}

// validateAttributeValue checks attributes with a structured value
func validateAttributeValue(a NotificationAttribute) []ValidationError {
	// Empty values mean the provider has nothing to report
	if a.Length == 0 {
		return nil
	}

	switch a.ID {
	case NotificationAttributeDate:
		if _, err := a.Date(nil); err != nil {
			return []ValidationError{{
				Type:    AnomalyInvalidDate,
				Message: fmt.Sprintf("Invalid date %q (expected %s)", a.Value, DateLayout),
				Details: map[string]interface{}{"value": a.Value},
			}}
		}
	case NotificationAttributeMessageSize:
		if _, err := a.MessageSize(); err != nil {
			return []ValidationError{{
				Type:    AnomalyInvalidMessageSize,
				Message: fmt.Sprintf("Invalid message size %q", a.Value),
				Details: map[string]interface{}{"value": a.Value},
			}}
		}
	}
	return nil
}

func commandMismatch(want, got CommandID) ValidationError {
	return ValidationError{
		Type:    AnomalyCommandMismatch,
		Message: fmt.Sprintf("Response command %s does not match request %s", got, want),
		Details: map[string]interface{}{"command": got.String(), "expected": want.String()},
	}
}

func trimNUL(s string) string {
	if len(s) > 0 && s[len(s)-1] == 0x00 {
		return s[:len(s)-1]
	}
	return s
}
