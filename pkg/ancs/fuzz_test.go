// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ancs

import (
	"errors"
	"math/rand"
	"os"
	"reflect"
	"strconv"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

var fuzzRunes = []rune("abcxyz019 .-_éßü日本🍜\x00")

// randomText builds a valid UTF-8 string from a small alphabet
func randomText(rng *rand.Rand, maxRunes int) string {
	n := rng.Intn(maxRunes + 1)
	runes := make([]rune, n)
	for i := range runes {
		runes[i] = fuzzRunes[rng.Intn(len(fuzzRunes))]
	}
	return string(runes)
}

// randomIdentifier builds a string without NUL bytes
func randomIdentifier(rng *rand.Rand) string {
	n := rng.Intn(24)
	runes := make([]rune, n)
	for i := range runes {
		runes[i] = fuzzRunes[rng.Intn(len(fuzzRunes)-1)]
	}
	return string(runes)
}

// isCodecError reports whether err wraps one of the codec sentinels
func isCodecError(err error) bool {
	for _, sentinel := range []error{
		ErrUnknownEnumValue, ErrTruncatedInput, ErrInvalidEncoding,
		ErrTrailingInput, ErrAmbiguousVariadicEntry,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// ============================================================
// Decoder Fuzz Tests
// ============================================================

// TestFuzzParsers_RandomBytes feeds random bytes to every parser and
// verifies they fail cleanly instead of panicking
func TestFuzzParsers_RandomBytes(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	parsers := map[string]func([]byte) error{
		"notification":     func(b []byte) error { _, err := ParseNotification(b); return err },
		"control point":    func(b []byte) error { _, err := ParseControlPoint(b); return err },
		"data source":      func(b []byte) error { _, err := ParseDataSource(b); return err },
		"app request":      func(b []byte) error { _, err := ParseGetAppAttributesRequest(b); return err },
		"app response":     func(b []byte) error { _, err := ParseGetAppAttributesResponse(b); return err },
		"notif attribute":  func(b []byte) error { var a NotificationAttribute; return a.UnmarshalBinary(b) },
		"app attribute":    func(b []byte) error { var a AppAttribute; return a.UnmarshalBinary(b) },
		"action request":   func(b []byte) error { _, err := ParsePerformNotificationActionRequest(b); return err },
		"notif request":    func(b []byte) error { _, err := ParseGetNotificationAttributesRequest(b); return err },
		"notif response":   func(b []byte) error { _, err := ParseGetNotificationAttributesResponse(b); return err },
	}

	for i := 0; i < rounds; i++ {
		data := make([]byte, rng.Intn(64))
		rng.Read(data)
		// Bias the leading command byte toward defined values
		if len(data) > 0 && rng.Intn(2) == 0 {
			data[0] = byte(rng.Intn(3))
		}

		for name, parse := range parsers {
			if err := parse(data); err != nil && !isCodecError(err) {
				t.Fatalf("round %d %s: error %v does not wrap a codec error (data % X)", i, name, err, data)
			}
		}
	}
}

// TestFuzzParsers_Truncation verifies that every strict prefix of a valid
// notification response fails, and never with a non-codec error
func TestFuzzParsers_Truncation(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)

	for i := 0; i < rounds/10+1; i++ {
		resp := randomNotificationResponse(rng)
		data, err := resp.MarshalBinary()
		if err != nil {
			t.Fatalf("round %d: MarshalBinary: %v", i, err)
		}
		cut := rng.Intn(len(data))
		_, err = ParseGetNotificationAttributesResponse(data[:cut])
		if cut < 1+NotificationUIDSize || !attributeBoundary(resp, cut) {
			if !errors.Is(err, ErrTruncatedInput) && !errors.Is(err, ErrTrailingInput) {
				t.Fatalf("round %d: cut at %d should be incomplete, got %v", i, cut, err)
			}
		} else if err != nil {
			t.Fatalf("round %d: cut at attribute boundary %d should parse, got %v", i, cut, err)
		}
	}
}

// attributeBoundary reports whether offset falls exactly between attributes
func attributeBoundary(resp GetNotificationAttributesResponse, offset int) bool {
	pos := 1 + NotificationUIDSize
	for _, a := range resp.Attributes {
		if pos == offset {
			return true
		}
		pos += AttributeHeaderSize + len(a.Value)
	}
	return pos == offset
}

// ============================================================
// Round Trip Fuzz Tests
// ============================================================

func randomNotificationResponse(rng *rand.Rand) GetNotificationAttributesResponse {
	resp := GetNotificationAttributesResponse{
		CommandID: CommandID(rng.Intn(3)),
		UID:       rng.Uint32(),
	}
	for j := rng.Intn(6); j > 0; j-- {
		id := NotificationAttributeID(rng.Intn(8))
		resp.Attributes = append(resp.Attributes, NewNotificationAttribute(id, randomText(rng, 40)))
	}
	return resp
}

func TestFuzzRoundTrip_Notification(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)

	for i := 0; i < rounds; i++ {
		n := Notification{
			EventID:       EventID(rng.Intn(3)),
			EventFlags:    EventFlags(rng.Intn(0x20)),
			CategoryID:    CategoryID(rng.Intn(12)),
			CategoryCount: uint8(rng.Intn(256)),
			UID:           rng.Uint32(),
		}
		data, err := n.MarshalBinary()
		if err != nil {
			t.Fatalf("round %d: MarshalBinary(%+v): %v", i, n, err)
		}
		if len(data) != NotificationSize {
			t.Fatalf("round %d: expected %d bytes, got %d", i, NotificationSize, len(data))
		}
		back, err := ParseNotification(data)
		if err != nil || back != n {
			t.Fatalf("round %d: expected %+v, got %+v (%v)", i, n, back, err)
		}
	}
}

func TestFuzzRoundTrip_NotificationRequest(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)

	for i := 0; i < rounds; i++ {
		req := GetNotificationAttributesRequest{CommandID: CommandID(rng.Intn(3)), UID: rng.Uint32()}
		count := rng.Intn(8)
		for j := 0; j < count; j++ {
			id := NotificationAttributeID(rng.Intn(8))
			entry := RequestAttribute(id)
			// Sized entries must carry a length unless they are last
			if id.IsSized() && (j < count-1 || rng.Intn(2) == 0) {
				entry = RequestAttributeWithMax(id, uint16(rng.Intn(0x10000)))
			}
			req.Attributes = append(req.Attributes, entry)
		}

		data, err := req.MarshalBinary()
		if err != nil {
			t.Fatalf("round %d: MarshalBinary: %v", i, err)
		}
		back, err := ParseGetNotificationAttributesRequest(data)
		if err != nil {
			t.Fatalf("round %d: Parse: %v", i, err)
		}
		if !reflect.DeepEqual(back, req) {
			t.Fatalf("round %d: expected %+v, got %+v", i, req, back)
		}
	}
}

func TestFuzzRoundTrip_AppMessages(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)

	for i := 0; i < rounds; i++ {
		app := randomIdentifier(rng)

		req := GetAppAttributesRequest{CommandID: CommandID(rng.Intn(3)), AppIdentifier: app}
		resp := GetAppAttributesResponse{CommandID: req.CommandID, AppIdentifier: app}
		for j := rng.Intn(4); j > 0; j-- {
			req.Attributes = append(req.Attributes, AppAttributeDisplayName)
			resp.Attributes = append(resp.Attributes, NewAppAttribute(AppAttributeDisplayName, randomText(rng, 30)))
		}

		reqData, err := req.MarshalBinary()
		if err != nil {
			t.Fatalf("round %d: request MarshalBinary: %v", i, err)
		}
		if back, err := ParseGetAppAttributesRequest(reqData); err != nil || !reflect.DeepEqual(back, req) {
			t.Fatalf("round %d: request expected %+v, got %+v (%v)", i, req, back, err)
		}

		respData, err := resp.MarshalBinary()
		if err != nil {
			t.Fatalf("round %d: response MarshalBinary: %v", i, err)
		}
		if back, err := ParseGetAppAttributesResponse(respData); err != nil || !reflect.DeepEqual(back, resp) {
			t.Fatalf("round %d: response expected %+v, got %+v (%v)", i, resp, back, err)
		}
	}
}

func TestFuzzRoundTrip_NotificationResponse(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)

	for i := 0; i < rounds; i++ {
		resp := randomNotificationResponse(rng)
		data, err := resp.MarshalBinary()
		if err != nil {
			t.Fatalf("round %d: MarshalBinary: %v", i, err)
		}
		back, err := ParseGetNotificationAttributesResponse(data)
		if err != nil {
			t.Fatalf("round %d: Parse: %v", i, err)
		}
		if !reflect.DeepEqual(back, resp) {
			t.Fatalf("round %d: expected %+v, got %+v", i, resp, back)
		}
	}
}
