// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"encoding/binary"
	"fmt"
)

// EncodeFrame encodes a frame to wire format, including framing and byte
// stuffing
func EncodeFrame(f *Frame) ([]byte, error) {
	return EncodeFrameFromValues(f.Type(), f.PayloadMap())
}

// EncodeFrameFromValues creates a complete wire-formatted frame
func EncodeFrameFromValues(msgType uint8, payload map[int]interface{}) ([]byte, error) {
	envelope, err := encodeEnvelope(msgType, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode CBOR envelope: %w", err)
	}
	if len(envelope) > MaxEnvelopeSize {
		return nil, fmt.Errorf("%w: envelope %d bytes (max %d)", ErrFrameTooLarge, len(envelope), MaxEnvelopeSize)
	}

	// Length and envelope are CRC'd and byte-stuffed
	data := make([]byte, LengthSize, LengthSize+len(envelope)+CRCSize)
	binary.LittleEndian.PutUint16(data, uint16(len(envelope)))
	data = append(data, envelope...)

	crc := CalculateCRC(data)
	data = binary.BigEndian.AppendUint16(data, crc)

	stuffed := stuffBytes(data)

	frame := make([]byte, 0, len(stuffed)+2)
	frame = append(frame, StartByte)
	frame = append(frame, stuffed...)
	return append(frame, EndByte), nil
}

// stuffBytes replaces START, END and ESC with ESC + (byte XOR EscXor)
func stuffBytes(data []byte) []byte {
	result := make([]byte, 0, len(data)*2)
	for _, b := range data {
		if b == StartByte || b == EndByte || b == EscByte {
			result = append(result, EscByte, b^EscXor)
		} else {
			result = append(result, b)
		}
	}
	return result
}

// UnstuffBytes removes byte stuffing from escaped data
func UnstuffBytes(data []byte) ([]byte, error) {
	result := make([]byte, 0, len(data))
	escapeNext := false

	for _, b := range data {
		switch {
		case escapeNext:
			result = append(result, b^EscXor)
			escapeNext = false
		case b == EscByte:
			escapeNext = true
		default:
			result = append(result, b)
		}
	}

	if escapeNext {
		return nil, ErrIncompleteEscape
	}
	return result, nil
}
