// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"errors"
	"fmt"
	"time"

	"github.com/Thermoquad/ancstat/pkg/ancs"
)

// Statistics tracks frame statistics and error rates
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Framing
	TotalFrames    uint64
	ValidFrames    uint64
	CRCErrors      uint64
	FramingErrors  uint64
	EnvelopeErrors uint64

	// ANCS payloads that failed to decode, by cause
	DecodeErrors     uint64
	UnknownEnumValue uint64
	TruncatedInput   uint64
	InvalidEncoding  uint64
	TrailingInput    uint64
	AmbiguousEntry   uint64

	// Responses that decoded but disagree with their request
	Anomalies        uint64
	UIDMismatches    uint64
	MissingAttrs     uint64
	UnexpectedAttrs  uint64
	OversizedValues  uint64
	MalformedValues  uint64
	CommandMismatch  uint64
	WriteFailures    uint64
	ReassembledResps uint64

	// Rates (calculated)
	FrameRate float64 // frames/sec
	ErrorRate float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Update records one decoder result. frameErr is a framing error from the
// Decoder, decodeErr an ANCS decode error for the frame's value and
// anomalies the validator's findings for a reassembled response.
func (s *Statistics) Update(frame *Frame, frameErr, decodeErr error, anomalies []ancs.ValidationError) {
	s.TotalFrames++
	s.LastUpdateTime = time.Now()

	if frameErr != nil {
		if errors.Is(frameErr, ErrCRCMismatch) {
			s.CRCErrors++
		} else {
			s.FramingErrors++
		}
		return
	}
	if frame != nil && frame.ParseError() != nil {
		s.EnvelopeErrors++
		return
	}

	valid := true
	if decodeErr != nil {
		s.recordDecodeError(decodeErr)
		valid = false
	}
	if frame != nil && frame.Type() == MsgWriteResult {
		if err := frame.WriteError(); err != nil {
			s.WriteFailures++
			valid = false
		}
	}
	if len(anomalies) > 0 {
		s.recordAnomalies(anomalies)
		valid = false
	}
	if valid {
		s.ValidFrames++
	}
}

// RecordReassembly counts a Data Source response completed from fragments
// and its validation result. It does not count as a frame.
func (s *Statistics) RecordReassembly(anomalies []ancs.ValidationError) {
	s.ReassembledResps++
	s.recordAnomalies(anomalies)
}

func (s *Statistics) recordDecodeError(err error) {
	s.DecodeErrors++
	switch {
	case errors.Is(err, ancs.ErrUnknownEnumValue):
		s.UnknownEnumValue++
	case errors.Is(err, ancs.ErrTruncatedInput):
		s.TruncatedInput++
	case errors.Is(err, ancs.ErrInvalidEncoding):
		s.InvalidEncoding++
	case errors.Is(err, ancs.ErrTrailingInput):
		s.TrailingInput++
	case errors.Is(err, ancs.ErrAmbiguousVariadicEntry):
		s.AmbiguousEntry++
	}
}

func (s *Statistics) recordAnomalies(anomalies []ancs.ValidationError) {
	for _, a := range anomalies {
		s.Anomalies++
		switch a.Type {
		case ancs.AnomalyUIDMismatch, ancs.AnomalyAppIdentifierMismatch:
			s.UIDMismatches++
		case ancs.AnomalyMissingAttribute:
			s.MissingAttrs++
		case ancs.AnomalyUnexpectedAttribute:
			s.UnexpectedAttrs++
		case ancs.AnomalyValueTooLong:
			s.OversizedValues++
		case ancs.AnomalyInvalidDate, ancs.AnomalyInvalidMessageSize:
			s.MalformedValues++
		case ancs.AnomalyCommandMismatch:
			s.CommandMismatch++
		}
	}
}

// ErrorCount returns the number of frames or responses with any problem
func (s *Statistics) ErrorCount() uint64 {
	return s.CRCErrors + s.FramingErrors + s.EnvelopeErrors + s.DecodeErrors + s.Anomalies + s.WriteFailures
}

// CalculateRates calculates frame and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.TotalFrames) / elapsed
		s.ErrorRate = float64(s.ErrorCount()) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	percent := func(n uint64) float64 {
		if s.TotalFrames == 0 {
			return 0
		}
		return float64(n) * 100.0 / float64(s.TotalFrames)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Frames:    %8d\n", s.TotalFrames)
	result += fmt.Sprintf("Valid Frames:    %8d (%.1f%%)\n", s.ValidFrames, percent(s.ValidFrames))

	if s.CRCErrors > 0 {
		result += fmt.Sprintf("CRC Errors:      %8d (%.1f%%)\n", s.CRCErrors, percent(s.CRCErrors))
	}
	if s.FramingErrors > 0 {
		result += fmt.Sprintf("Framing Errors:  %8d (%.1f%%)\n", s.FramingErrors, percent(s.FramingErrors))
	}
	if s.EnvelopeErrors > 0 {
		result += fmt.Sprintf("Bad Envelopes:   %8d (%.1f%%)\n", s.EnvelopeErrors, percent(s.EnvelopeErrors))
	}
	if s.DecodeErrors > 0 {
		result += fmt.Sprintf("Decode Errors:   %8d (%.1f%%)\n", s.DecodeErrors, percent(s.DecodeErrors))
		for _, line := range []struct {
			label string
			n     uint64
		}{
			{"Unknown Enum:", s.UnknownEnumValue},
			{"Truncated:", s.TruncatedInput},
			{"Bad UTF-8:", s.InvalidEncoding},
			{"Trailing Input:", s.TrailingInput},
			{"Ambiguous Entry:", s.AmbiguousEntry},
		} {
			if line.n > 0 {
				result += fmt.Sprintf("  %-17s%5d\n", line.label, line.n)
			}
		}
	}
	if s.Anomalies > 0 {
		result += fmt.Sprintf("Anomalies:       %8d\n", s.Anomalies)
		for _, line := range []struct {
			label string
			n     uint64
		}{
			{"Wrong Target:", s.UIDMismatches},
			{"Missing Attr:", s.MissingAttrs},
			{"Unexpected Attr:", s.UnexpectedAttrs},
			{"Over Max Length:", s.OversizedValues},
			{"Bad Value:", s.MalformedValues},
			{"Wrong Command:", s.CommandMismatch},
		} {
			if line.n > 0 {
				result += fmt.Sprintf("  %-17s%5d\n", line.label, line.n)
			}
		}
	}
	if s.WriteFailures > 0 {
		result += fmt.Sprintf("Write Failures:  %8d\n", s.WriteFailures)
	}
	if s.ReassembledResps > 0 {
		result += fmt.Sprintf("Responses:       %8d\n", s.ReassembledResps)
	}

	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", s.FrameRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}
