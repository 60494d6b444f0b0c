// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Thermoquad/ancstat/pkg/ancs"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <characteristic> [hex...]",
	Short: "Decode ANCS characteristic values offline",
	Long: `Decode raw ANCS characteristic values captured elsewhere (a sniffer,
a log, a GATT explorer).

The characteristic is one of:
  ns, notification_source   8-byte notification records
  cp, control_point         Control Point requests
  ds, data_source           Data Source responses
or the characteristic's UUID.

Each hex argument is decoded as one value. Without hex arguments, values are
read from stdin, one per line. Bytes may be separated by spaces, colons or
commas, and may carry a 0x prefix.

Exits non-zero if any value fails to decode.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)
}

func runDecode(cmd *cobra.Command, args []string) error {
	c, err := parseCharacteristicArg(args[0])
	if err != nil {
		return err
	}

	var failures int
	decodeOne := func(line string) {
		data, err := parseHex(line)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%q: %v\n", line, err)
			failures++
			return
		}
		if len(data) == 0 {
			return
		}
		msg, err := decodeValue(c, data)
		if err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: DECODE ERROR: %v\n", ancs.FormatHex(data), err)
			failures++
			return
		}
		fmt.Fprint(cmd.OutOrStdout(), ancs.FormatMessage(msg))
	}

	if len(args) > 1 {
		for _, arg := range args[1:] {
			decodeOne(arg)
		}
	} else {
		if stdinIsTerminal() {
			fmt.Fprintln(cmd.ErrOrStderr(), "Reading hex values from stdin (Ctrl+D to finish)")
		}
		if err := eachLine(cmd.InOrStdin(), decodeOne); err != nil {
			return err
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d value(s) failed to decode", failures)
	}
	return nil
}

// decodeValue decodes a characteristic value into its typed ANCS message
func decodeValue(c ancs.Characteristic, data []byte) (interface{}, error) {
	log.WithFields(log.Fields{"characteristic": c.String(), "bytes": len(data)}).Debug("decoding value")
	switch c {
	case ancs.NotificationSource:
		n, err := ancs.ParseNotification(data)
		if err != nil {
			return nil, err
		}
		return n, nil
	case ancs.ControlPoint:
		return ancs.ParseControlPoint(data)
	case ancs.DataSource:
		return ancs.ParseDataSource(data)
	}
	return nil, fmt.Errorf("unknown characteristic %d", c)
}

// parseCharacteristicArg accepts a short name, a full name or a UUID
func parseCharacteristicArg(s string) (ancs.Characteristic, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ns", "notification_source", "notification-source":
		return ancs.NotificationSource, nil
	case "cp", "control_point", "control-point":
		return ancs.ControlPoint, nil
	case "ds", "data_source", "data-source":
		return ancs.DataSource, nil
	}

	id, err := uuid.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("unknown characteristic %q (use ns, cp, ds or a UUID)", s)
	}
	return ancs.CharacteristicFromUUID(id)
}

// parseHex decodes hex bytes, ignoring separators and 0x prefixes
func parseHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") {
		return nil, nil
	}

	var b strings.Builder
	for _, field := range strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ':' || r == ','
	}) {
		field = strings.TrimPrefix(strings.TrimPrefix(field, "0x"), "0X")
		if len(field) == 1 {
			field = "0" + field
		}
		b.WriteString(field)
	}

	data, err := hex.DecodeString(b.String())
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return data, nil
}

func eachLine(r io.Reader, fn func(string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		fn(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read stdin: %v", err)
	}
	return nil
}

func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
