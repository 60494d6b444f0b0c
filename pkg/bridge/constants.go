// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package bridge implements the serial framing used between ancstat and a
// BLE bridge dongle.
//
// The bridge subscribes to an iPhone's ANCS characteristics and forwards
// every GATT notification to the host as a frame. The host writes Control
// Point commands back through the same link. Frames are byte-stuffed,
// CRC-protected and carry a CBOR envelope:
//
//	START | stuff(len_lo len_hi | [msg_type, payload_map] | crc_hi crc_lo) | END
package bridge

import "errors"

// Protocol framing bytes
const (
	StartByte = 0x7E
	EndByte   = 0x7F
	EscByte   = 0x7D
	EscXor    = 0x20
)

// Frame size limits
const (
	MaxEnvelopeSize = 600 // Fits a 512-byte ATT value plus envelope overhead
	LengthSize      = 2
	CRCSize         = 2
	MaxFrameSize    = LengthSize + MaxEnvelopeSize + CRCSize
)

// CRC-16-CCITT configuration
const (
	crcPolynomial = 0x1021
	crcInitial    = 0xFFFF
)

// Message types
const (
	MsgNotify      = 0x01 // Bridge → host: GATT notification on an ANCS characteristic
	MsgWrite       = 0x02 // Host → bridge: write to the Control Point
	MsgWriteResult = 0x03 // Bridge → host: ATT status of the last write
	MsgLinkState   = 0x10 // Bridge → host: iPhone connected or disconnected
)

// Payload map keys
const (
	KeyCharacteristic = 0
	KeyValue          = 1
	KeyStatus         = 2
	KeyConnected      = 3
)

// StatusSuccess is the ATT status of a successful write
const StatusSuccess = 0x00

// Decoder states (internal)
const (
	stateIdle = iota
	stateLength1
	stateLength2
	statePayload
	stateCRC1
	stateCRC2
	stateEnd // CRC complete, waiting for END
)

// Framing errors
var (
	ErrCRCMismatch      = errors.New("bridge: CRC mismatch")
	ErrFrameTooLarge    = errors.New("bridge: frame too large")
	ErrUnexpectedEnd    = errors.New("bridge: unexpected END byte")
	ErrIncompleteEscape = errors.New("bridge: incomplete escape sequence")
	ErrInvalidEnvelope  = errors.New("bridge: invalid envelope")
)
