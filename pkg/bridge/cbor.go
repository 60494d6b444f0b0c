// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ParseEnvelope parses a CBOR envelope: [msg_type, payload_map].
// Returns the message type and decoded payload map (nil for empty payloads)
func ParseEnvelope(data []byte) (msgType uint8, payload map[int]interface{}, err error) {
	if len(data) == 0 {
		return 0, nil, fmt.Errorf("%w: empty", ErrInvalidEnvelope)
	}

	var msg []interface{}
	if err := cbor.Unmarshal(data, &msg); err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if len(msg) != 2 {
		return 0, nil, fmt.Errorf("%w: expected 2-element array, got %d elements", ErrInvalidEnvelope, len(msg))
	}

	v, ok := msg[0].(uint64)
	if !ok || v > 0xFF {
		return 0, nil, fmt.Errorf("%w: bad message type %v", ErrInvalidEnvelope, msg[0])
	}
	msgType = uint8(v)

	if msg[1] == nil {
		return msgType, nil, nil
	}

	m, ok := msg[1].(map[interface{}]interface{})
	if !ok {
		return 0, nil, fmt.Errorf("%w: expected map or nil for payload, got %T", ErrInvalidEnvelope, msg[1])
	}
	payload = make(map[int]interface{}, len(m))
	for key, val := range m {
		switch k := key.(type) {
		case uint64:
			payload[int(k)] = val
		case int64:
			payload[int(k)] = val
		default:
			return 0, nil, fmt.Errorf("%w: expected integer map key, got %T", ErrInvalidEnvelope, key)
		}
	}
	return msgType, payload, nil
}

// encodeEnvelope creates the CBOR envelope for a message
func encodeEnvelope(msgType uint8, payload map[int]interface{}) ([]byte, error) {
	var msg []interface{}
	if len(payload) == 0 {
		msg = []interface{}{uint64(msgType), nil}
	} else {
		msg = []interface{}{uint64(msgType), payload}
	}
	return cbor.Marshal(msg)
}

// Map value extraction helpers

// GetMapUint extracts a uint64 from a CBOR map by key
func GetMapUint(m map[int]interface{}, key int) (uint64, bool) {
	switch val := m[key].(type) {
	case uint64:
		return val, true
	case int64:
		if val >= 0 {
			return uint64(val), true
		}
	}
	return 0, false
}

// GetMapBytes extracts a []byte from a CBOR map by key
func GetMapBytes(m map[int]interface{}, key int) ([]byte, bool) {
	val, ok := m[key].([]byte)
	return val, ok
}

// GetMapBool extracts a bool from a CBOR map by key
func GetMapBool(m map[int]interface{}, key int) (bool, bool) {
	val, ok := m[key].(bool)
	return val, ok
}
