// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"fmt"
	"time"
)

// Decoder implements the bridge frame decoder state machine
type Decoder struct {
	state      int
	buffer     []byte // Unstuffed length and envelope bytes, CRC'd on END
	escapeNext bool
	frame      *Frame
	rawBuffer  []byte // Raw bytes including framing
}

// NewDecoder creates a new frame decoder
func NewDecoder() *Decoder {
	return &Decoder{
		state:     stateIdle,
		buffer:    make([]byte, 0, LengthSize+MaxEnvelopeSize),
		rawBuffer: make([]byte, 0, MaxFrameSize*2),
	}
}

// Reset resets the decoder state to idle
func (d *Decoder) Reset() {
	d.state = stateIdle
	d.buffer = d.buffer[:0]
	d.escapeNext = false
	d.frame = nil
	d.rawBuffer = d.rawBuffer[:0]
}

// GetRawBytes returns the accumulated raw bytes since the last frame
func (d *Decoder) GetRawBytes() []byte {
	return d.rawBuffer
}

// Decode feeds a chunk of bytes through the decoder and returns every
// frame completed by it along with any framing errors encountered
func (d *Decoder) Decode(data []byte) ([]*Frame, []error) {
	var frames []*Frame
	var errs []error
	for _, b := range data {
		f, err := d.DecodeByte(b)
		if err != nil {
			errs = append(errs, err)
		}
		if f != nil {
			frames = append(frames, f)
		}
	}
	return frames, errs
}

// DecodeByte processes a single byte through the decoder state machine.
// Returns a completed frame, or nil if the frame is incomplete.
// Returns an error if decoding fails.
func (d *Decoder) DecodeByte(b byte) (*Frame, error) {
	d.rawBuffer = append(d.rawBuffer, b)

	// Framing bytes are never stuffed
	switch b {
	case StartByte:
		d.Reset()
		d.rawBuffer = append(d.rawBuffer, b)
		d.state = stateLength1
		return nil, nil
	case EndByte:
		return d.finish()
	case EscByte:
		if d.state != stateIdle {
			if d.escapeNext {
				d.Reset()
				return nil, fmt.Errorf("%w: ESC after ESC", ErrIncompleteEscape)
			}
			d.escapeNext = true
		}
		return nil, nil
	}

	if d.escapeNext {
		b ^= EscXor
		d.escapeNext = false
	}

	switch d.state {
	case stateIdle:
		// Waiting for START byte
		return nil, nil

	case stateLength1:
		d.buffer = append(d.buffer, b)
		d.state = stateLength2
		return nil, nil

	case stateLength2:
		d.buffer = append(d.buffer, b)
		length := uint16(d.buffer[0]) | uint16(d.buffer[1])<<8
		if length == 0 || length > MaxEnvelopeSize {
			d.Reset()
			return nil, fmt.Errorf("%w: length %d (max %d)", ErrFrameTooLarge, length, MaxEnvelopeSize)
		}
		d.frame = &Frame{length: length}
		d.state = statePayload
		return nil, nil

	case statePayload:
		d.buffer = append(d.buffer, b)
		if len(d.buffer)-LengthSize >= int(d.frame.length) {
			d.state = stateCRC1
		}
		return nil, nil

	case stateCRC1:
		d.frame.crc = uint16(b) << 8
		d.state = stateCRC2
		return nil, nil

	case stateCRC2:
		d.frame.crc |= uint16(b)
		d.state = stateEnd
		return nil, nil

	default:
		// Bytes after the CRC and before END
		d.Reset()
		return nil, fmt.Errorf("%w: extra byte 0x%02X after CRC", ErrFrameTooLarge, b)
	}
}

// finish validates the frame on an END byte
func (d *Decoder) finish() (*Frame, error) {
	defer d.Reset()

	if d.state == stateIdle {
		return nil, nil
	}
	if d.state != stateEnd || d.escapeNext {
		return nil, fmt.Errorf("%w: in state %d", ErrUnexpectedEnd, d.state)
	}

	f := d.frame
	calculated := CalculateCRC(d.buffer)
	if f.crc != calculated {
		return nil, fmt.Errorf("%w: expected 0x%04X, got 0x%04X", ErrCRCMismatch, calculated, f.crc)
	}

	f.envelope = append([]byte(nil), d.buffer[LengthSize:]...)
	f.timestamp = time.Now()
	return f, nil
}
