// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ancs

import (
	"fmt"
	"strings"
)

// FormatMessage formats a decoded ANCS value into a human-readable string
func FormatMessage(msg interface{}) string {
	switch m := msg.(type) {
	case Notification:
		return FormatNotification(m)
	case GetNotificationAttributesRequest:
		return formatNotificationRequest(m)
	case GetAppAttributesRequest:
		return formatAppRequest(m)
	case PerformNotificationActionRequest:
		return fmt.Sprintf("%s uid=%d action=%s\n", m.CommandID, m.UID, m.ActionID)
	case GetNotificationAttributesResponse:
		return FormatNotificationResponse(m)
	case GetAppAttributesResponse:
		return formatAppResponse(m)
	case nil:
		return "<nil>\n"
	}
	return fmt.Sprintf("%T: %v\n", msg, msg)
}

// FormatNotification formats a Notification Source record
func FormatNotification(n Notification) string {
	return fmt.Sprintf("NOTIFICATION_%s uid=%d\n  Category: %s (%d active)\n  Flags: %s\n",
		n.EventID, n.UID, n.CategoryID, n.CategoryCount, n.EventFlags)
}

// FormatNotificationResponse formats a notification attribute list
func FormatNotificationResponse(r GetNotificationAttributesResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s uid=%d attributes=%d\n", r.CommandID, r.UID, len(r.Attributes))
	for _, a := range r.Attributes {
		fmt.Fprintf(&b, "  %-22s %s\n", a.ID.String()+":", formatValue(a.Value))
	}
	return b.String()
}

// FormatHex formats bytes as space-separated hex
func FormatHex(data []byte) string {
	var b strings.Builder
	for i, v := range data {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%02X", v)
	}
	return b.String()
}

func formatNotificationRequest(r GetNotificationAttributesRequest) string {
	names := make([]string, len(r.Attributes))
	for i, a := range r.Attributes {
		names[i] = a.String()
	}
	return fmt.Sprintf("%s uid=%d\n  Attributes: %s\n", r.CommandID, r.UID, strings.Join(names, ", "))
}

func formatAppRequest(r GetAppAttributesRequest) string {
	names := make([]string, len(r.Attributes))
	for i, id := range r.Attributes {
		names[i] = id.String()
	}
	return fmt.Sprintf("%s app=%q\n  Attributes: %s\n", r.CommandID, r.AppIdentifier, strings.Join(names, ", "))
}

func formatAppResponse(r GetAppAttributesResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s app=%q attributes=%d\n", r.CommandID, r.AppIdentifier, len(r.Attributes))
	for _, a := range r.Attributes {
		fmt.Fprintf(&b, "  %-22s %s\n", a.ID.String()+":", formatValue(a.Value))
	}
	return b.String()
}

// formatValue quotes a value, shortening long text
func formatValue(v string) string {
	const maxRunes = 60
	runes := []rune(v)
	if len(runes) > maxRunes {
		return fmt.Sprintf("%q... (%d bytes)", string(runes[:maxRunes]), len(v))
	}
	return fmt.Sprintf("%q", v)
}
