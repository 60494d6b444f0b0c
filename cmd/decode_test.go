// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/Thermoquad/ancstat/pkg/ancs"
)

// runCLI executes the root command with args and returns stdout
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	var out, errOut bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

//////////////////////////////////////////////////////////////
// Helpers
//////////////////////////////////////////////////////////////

func TestParseHex(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []byte
	}{
		{"spaced", "00 7E ff", []byte{0x00, 0x7E, 0xFF}},
		{"packed", "007eff", []byte{0x00, 0x7E, 0xFF}},
		{"prefixed with commas", "0x00,0x7E,0xFF", []byte{0x00, 0x7E, 0xFF}},
		{"colons", "00:7e:ff", []byte{0x00, 0x7E, 0xFF}},
		{"single digit bytes", "0 1 f", []byte{0x00, 0x01, 0x0F}},
		{"comment", "# captured 12:00", nil},
		{"empty", "   ", []byte{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseHex(tt.input)
			if err != nil {
				t.Fatalf("parseHex(%q) failed: %v", tt.input, err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("parseHex(%q) = %X, want %X", tt.input, got, tt.want)
			}
		})
	}

	if _, err := parseHex("zz"); err == nil {
		t.Error("Expected error for invalid hex")
	}
}

func TestParseCharacteristicArg(t *testing.T) {
	tests := []struct {
		input string
		want  ancs.Characteristic
	}{
		{"ns", ancs.NotificationSource},
		{"CONTROL_POINT", ancs.ControlPoint},
		{"data-source", ancs.DataSource},
		{"9FBF120D-6301-42D9-8C58-25E699A21DBD", ancs.NotificationSource},
		{"22eac6e9-24d6-4bb5-be44-b36ace7c7bfb", ancs.DataSource},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseCharacteristicArg(tt.input)
			if err != nil {
				t.Fatalf("parseCharacteristicArg(%q) failed: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}

	for _, bad := range []string{"gatt", "7905F431-B5CE-4E99-A40F-4B1E122D00D0"} {
		if _, err := parseCharacteristicArg(bad); err == nil {
			t.Errorf("Expected error for %q", bad)
		}
	}
}

func TestDecodeValue(t *testing.T) {
	msg, err := decodeValue(ancs.NotificationSource, []byte{0, 1, 0, 0, 255, 255, 255, 255})
	if err != nil {
		t.Fatalf("decodeValue failed: %v", err)
	}
	n, ok := msg.(ancs.Notification)
	if !ok {
		t.Fatalf("Expected ancs.Notification, got %T", msg)
	}
	if n.UID != 0xFFFFFFFF || !n.EventFlags.Has(ancs.EventFlagSilent) {
		t.Errorf("Unexpected notification %+v", n)
	}

	msg, err = decodeValue(ancs.NotificationSource, []byte{0, 1, 0, 0, 255})
	if !errors.Is(err, ancs.ErrTruncatedInput) {
		t.Errorf("Expected ErrTruncatedInput, got %v", err)
	}
	if msg != nil {
		t.Errorf("Expected nil message on error, got %v", msg)
	}
}

//////////////////////////////////////////////////////////////
// Commands
//////////////////////////////////////////////////////////////

func TestDecodeCommand_Args(t *testing.T) {
	out, err := runCLI(t, "", "decode", "ns", "00 01 00 00 FF FF FF FF")
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !strings.Contains(out, "NOTIFICATION_ADDED uid=4294967295") {
		t.Errorf("Unexpected output:\n%s", out)
	}
}

func TestDecodeCommand_Stdin(t *testing.T) {
	stdin := "# app attributes for com.rust.test\n" +
		"01 63 6F 6D 2E 72 75 73 74 2E 74 65 73 74 00 00 04 00 54 65 73 74\n" +
		"01 63 6F 6D\n"

	out, err := runCLI(t, stdin, "decode", "ds")
	if err == nil {
		t.Fatal("Expected error for the truncated second value")
	}
	if !strings.Contains(out, "com.rust.test") || !strings.Contains(out, "Test") {
		t.Errorf("Expected decoded app response, got:\n%s", out)
	}
	if !strings.Contains(out, "DECODE ERROR") {
		t.Errorf("Expected decode error line, got:\n%s", out)
	}
}

func TestEncodeCommands(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"action", []string{"encode", "action", "0x2A", "negative"}, "02 2A 00 00 00 01"},
		{"notification", []string{"encode", "notification", "7", "title:20", "message"}, "00 07 00 00 00 01 14 00 03"},
		{"app", []string{"encode", "app", "com.x"}, "01 63 6F 6D 2E 78 00 00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCLI(t, "", tt.args...)
			if err != nil {
				t.Fatalf("%v failed: %v", tt.args, err)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("Expected %q in output, got:\n%s", tt.want, out)
			}
		})
	}
}

func TestParseAttributeRequest(t *testing.T) {
	a, err := parseAttributeRequest("title:32")
	if err != nil {
		t.Fatalf("parseAttributeRequest failed: %v", err)
	}
	if a.ID != ancs.NotificationAttributeTitle || !a.HasMaxLength || a.MaxLength != 32 {
		t.Errorf("Unexpected request %+v", a)
	}

	a, err = parseAttributeRequest("positive-action-label")
	if err != nil {
		t.Fatalf("parseAttributeRequest failed: %v", err)
	}
	if a.ID != ancs.NotificationAttributePositiveActionLabel || a.HasMaxLength {
		t.Errorf("Unexpected request %+v", a)
	}

	for _, bad := range []string{"date:10", "title:70000", "sender"} {
		if _, err := parseAttributeRequest(bad); err == nil {
			t.Errorf("Expected error for %q", bad)
		}
	}
}
