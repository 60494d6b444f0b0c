// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/Thermoquad/ancstat/pkg/ancs"
	"github.com/Thermoquad/ancstat/pkg/bridge"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rawLogHex bool

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display raw bridge frames in human-readable format",
	Long: `Continuously decode and display bridge frames as they arrive.

Each frame is shown with timestamp, message type and, for NOTIFY and WRITE
frames, the ANCS value decoded by characteristic. Data Source values are
decoded one fragment at a time, so a long response split across several
notifications shows decode errors here; use monitor or app_lookup to see
reassembled responses.

Supports both serial and WebSocket connections.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
	rawLogCmd.Flags().BoolVar(&rawLogHex, "hex", false, "Also print each frame's CBOR envelope as hex")
}

func runRawLog(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("ancstat - Raw Frame Log\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	done := make(chan struct{})
	defer close(done)
	events, errc := readFrames(conn, done)

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				if err := <-errc; err != nil {
					log.WithError(err).Info("connection closed")
				}
				return nil
			}
			if ev.err != nil {
				fmt.Printf("[ERROR] %v\n", ev.err)
				continue
			}
			fmt.Print(bridge.FormatFrame(ev.frame))
			if rawLogHex {
				fmt.Printf("  envelope: %s\n", ancs.FormatHex(ev.frame.Envelope()))
			}
		case <-interrupt:
			return nil
		}
	}
}
