// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"fmt"
	"strings"
	"time"

	"github.com/Thermoquad/ancstat/pkg/ancs"
)

// Frame represents a decoded bridge frame
type Frame struct {
	length    uint16
	envelope  []byte // Raw CBOR bytes: [msg_type, payload_map]
	crc       uint16
	timestamp time.Time

	// Cached parsed values (lazy parsing)
	msgType    uint8
	payloadMap map[int]interface{}
	parsed     bool
	parseErr   error
}

// NewFrame creates a frame from message type and payload map.
// The CBOR encoding and CRC are computed when the frame is encoded.
func NewFrame(msgType uint8, payload map[int]interface{}) *Frame {
	return &Frame{
		msgType:    msgType,
		payloadMap: payload,
		parsed:     true,
		timestamp:  time.Now(),
	}
}

// NewNotifyFrame creates a NOTIFY frame carrying a GATT notification value
func NewNotifyFrame(c ancs.Characteristic, value []byte) *Frame {
	return NewFrame(MsgNotify, map[int]interface{}{
		KeyCharacteristic: uint64(c),
		KeyValue:          value,
	})
}

// NewWriteFrame creates a WRITE frame for a Control Point request
func NewWriteFrame(req ancs.ControlPointRequest) (*Frame, error) {
	value, err := req.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return NewFrame(MsgWrite, map[int]interface{}{
		KeyCharacteristic: uint64(ancs.ControlPoint),
		KeyValue:          value,
	}), nil
}

// NewWriteResultFrame creates a WRITE_RESULT frame
func NewWriteResultFrame(status uint8) *Frame {
	return NewFrame(MsgWriteResult, map[int]interface{}{KeyStatus: uint64(status)})
}

// NewLinkStateFrame creates a LINK_STATE frame
func NewLinkStateFrame(connected bool) *Frame {
	return NewFrame(MsgLinkState, map[int]interface{}{KeyConnected: connected})
}

// ensureParsed parses the CBOR envelope if not already done
func (f *Frame) ensureParsed() {
	if f.parsed {
		return
	}
	f.parsed = true
	f.msgType, f.payloadMap, f.parseErr = ParseEnvelope(f.envelope)
}

// Length returns the frame's envelope length
func (f *Frame) Length() uint16 {
	return f.length
}

// Type returns the frame's message type (parsed from CBOR)
func (f *Frame) Type() uint8 {
	f.ensureParsed()
	return f.msgType
}

// Envelope returns the raw CBOR envelope bytes
func (f *Frame) Envelope() []byte {
	return f.envelope
}

// PayloadMap returns the decoded CBOR payload map (nil for empty payloads)
func (f *Frame) PayloadMap() map[int]interface{} {
	f.ensureParsed()
	return f.payloadMap
}

// ParseError returns any error from parsing the CBOR envelope
func (f *Frame) ParseError() error {
	f.ensureParsed()
	return f.parseErr
}

// CRC returns the frame's CRC value
func (f *Frame) CRC() uint16 {
	return f.crc
}

// Timestamp returns the frame's decode timestamp
func (f *Frame) Timestamp() time.Time {
	return f.timestamp
}

// Characteristic returns the ANCS characteristic a NOTIFY or WRITE frame refers to
func (f *Frame) Characteristic() (ancs.Characteristic, bool) {
	v, ok := GetMapUint(f.PayloadMap(), KeyCharacteristic)
	if !ok || v > 0xFF {
		return 0, false
	}
	c := ancs.Characteristic(v)
	return c, c.Valid()
}

// Value returns the characteristic value of a NOTIFY or WRITE frame
func (f *Frame) Value() ([]byte, bool) {
	return GetMapBytes(f.PayloadMap(), KeyValue)
}

// Status returns the ATT status of a WRITE_RESULT frame
func (f *Frame) Status() (uint8, bool) {
	v, ok := GetMapUint(f.PayloadMap(), KeyStatus)
	if !ok || v > 0xFF {
		return 0, false
	}
	return uint8(v), true
}

// Connected returns the link state of a LINK_STATE frame
func (f *Frame) Connected() (bool, bool) {
	return GetMapBool(f.PayloadMap(), KeyConnected)
}

// WriteError returns the error carried by a WRITE_RESULT frame, or nil for
// success. ANCS-specific statuses are returned as ancs.ControlPointError.
func (f *Frame) WriteError() error {
	status, ok := f.Status()
	if !ok {
		return fmt.Errorf("%w: WRITE_RESULT without status", ErrInvalidEnvelope)
	}
	if status == StatusSuccess {
		return nil
	}
	return ancs.ControlPointError(status)
}

// Decode decodes the ANCS value carried by a NOTIFY or WRITE frame.
// Notification Source values decode to ancs.Notification, Control Point
// values to an ancs.ControlPointRequest and Data Source values to an
// ancs.DataSourceResponse. A Data Source value that is only a fragment of a
// larger response fails with ancs.ErrTruncatedInput or ancs.ErrTrailingInput.
func (f *Frame) Decode() (interface{}, error) {
	if err := f.ParseError(); err != nil {
		return nil, err
	}
	if t := f.Type(); t != MsgNotify && t != MsgWrite {
		return nil, fmt.Errorf("%w: %s frame carries no characteristic value", ErrInvalidEnvelope, FormatMessageType(t))
	}
	c, ok := f.Characteristic()
	if !ok {
		return nil, fmt.Errorf("%w: missing or unknown characteristic", ErrInvalidEnvelope)
	}
	value, ok := f.Value()
	if !ok {
		return nil, fmt.Errorf("%w: missing value", ErrInvalidEnvelope)
	}

	switch c {
	case ancs.NotificationSource:
		n, err := ancs.ParseNotification(value)
		if err != nil {
			return nil, err
		}
		return n, nil
	case ancs.ControlPoint:
		return ancs.ParseControlPoint(value)
	default:
		return ancs.ParseDataSource(value)
	}
}

// FormatMessageType returns the human-readable name for a message type
func FormatMessageType(msgType uint8) string {
	switch msgType {
	case MsgNotify:
		return "NOTIFY"
	case MsgWrite:
		return "WRITE"
	case MsgWriteResult:
		return "WRITE_RESULT"
	case MsgLinkState:
		return "LINK_STATE"
	}
	return fmt.Sprintf("UNKNOWN(0x%02X)", msgType)
}

// FormatFrame formats a frame into a human-readable string
func FormatFrame(f *Frame) string {
	timestamp := f.timestamp.Format("15:04:05.000")
	if err := f.ParseError(); err != nil {
		return fmt.Sprintf("[%s] INVALID len=%d: %v\n", timestamp, f.length, err)
	}

	result := fmt.Sprintf("[%s] %s (0x%02X) len=%d\n", timestamp, FormatMessageType(f.Type()), f.Type(), f.length)

	switch f.Type() {
	case MsgNotify, MsgWrite:
		c, _ := f.Characteristic()
		value, _ := f.Value()
		result += fmt.Sprintf("  %s: %s\n", c, ancs.FormatHex(value))
		msg, err := f.Decode()
		if err != nil {
			result += fmt.Sprintf("  decode: %v\n", err)
		} else {
			result += indent(ancs.FormatMessage(msg))
		}
	case MsgWriteResult:
		if err := f.WriteError(); err != nil {
			result += fmt.Sprintf("  %v\n", err)
		} else {
			result += "  success\n"
		}
	case MsgLinkState:
		connected, _ := f.Connected()
		result += fmt.Sprintf("  connected: %v\n", connected)
	}
	return result
}

func indent(s string) string {
	lines := strings.Split(strings.TrimSuffix(s, "\n"), "\n")
	return "  " + strings.Join(lines, "\n  ") + "\n"
}
