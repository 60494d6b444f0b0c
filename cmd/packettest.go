// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/Thermoquad/ancstat/pkg/bridge"
	"github.com/spf13/cobra"
)

var (
	packetTestTimeout int
)

var packetTestCmd = &cobra.Command{
	Use:   "packet_test",
	Short: "Test connection by waiting for a valid bridge frame",
	Long: `Wait for a valid bridge frame on the connection until timeout.

This command connects to a serial port or WebSocket and waits for any frame
that passes its CRC check and carries a well-formed CBOR envelope. Bytes
before the first frame are skipped.

Exit codes:
  0 - Frame received before timeout
  1 - Timeout reached without receiving a valid frame
  2 - Connection error

Useful for checking that the BLE bridge is attached and forwarding. A bridge
sends LINK_STATE on connect, so an idle link still produces a frame.`,
	RunE: runPacketTest,
}

func init() {
	rootCmd.AddCommand(packetTestCmd)
	packetTestCmd.Flags().IntVar(&packetTestTimeout, "timeout", 10, "Timeout in seconds to wait for a frame")
}

func runPacketTest(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("ancstat - Frame Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n", packetTestTimeout)
	fmt.Printf("Waiting for valid bridge frame...\n\n")

	done := make(chan struct{})
	events, errc := readFrames(conn, done)
	timeout := time.After(time.Duration(packetTestTimeout) * time.Second)
	skipped := 0

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				fmt.Fprintf(os.Stderr, "Read error: %v\n", <-errc)
				os.Exit(2)
			}
			if ev.err != nil || ev.frame.ParseError() != nil {
				skipped++
				continue
			}
			close(done)
			if skipped > 0 {
				fmt.Printf("(skipped %d bad frames before sync)\n", skipped)
			}
			printFrameSummary(ev.frame)
			os.Exit(0)

		case <-timeout:
			fmt.Fprintf(os.Stderr, "TIMEOUT: No valid frame received within %d seconds\n", packetTestTimeout)
			os.Exit(1)
		}
	}
}

func printFrameSummary(f *bridge.Frame) {
	fmt.Printf("SUCCESS: Received valid frame\n")
	fmt.Printf("  Type: %s (0x%02X)\n", bridge.FormatMessageType(f.Type()), f.Type())
	if c, ok := f.Characteristic(); ok {
		fmt.Printf("  Characteristic: %s (%s)\n", c, c.UUID())
	}
	fmt.Printf("  Length: %d bytes\n", f.Length())
	fmt.Printf("  CRC: 0x%04X\n", f.CRC())
}
