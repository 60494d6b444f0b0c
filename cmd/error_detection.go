// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/Thermoquad/ancstat/pkg/ancs"
	"github.com/Thermoquad/ancstat/pkg/bridge"
	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	showAll       bool
	statsInterval int
	useTUI        bool
	fetchDetails  bool
)

var errorDetectionCmd = &cobra.Command{
	Use:   "error_detection",
	Short: "Detect and analyze malformed frames and ANCS errors",
	Long: `Track bridge and ANCS errors with statistics.

This command decodes each frame and detects:
  - CRC errors, framing errors and malformed CBOR envelopes
  - ANCS decode failures (unknown enum values, truncated input, invalid
    UTF-8, trailing bytes)
  - Data Source responses that disagree with their request (wrong UID or
    app, missing or unexpected attributes, values over the requested max
    length, malformed dates and message sizes)
  - Control Point writes rejected by the iOS device
  - Statistics and trends (frame rate, error rate, success rate)

Data Source responses are reassembled from fragments before they are
checked. With --fetch, the details of every added notification are requested
so that each notification produces a response to check.

By default, only errors are displayed. Use --show-all to display valid frames too.`,
	RunE: runErrorDetection,
}

func init() {
	rootCmd.AddCommand(errorDetectionCmd)
	errorDetectionCmd.Flags().BoolVar(&showAll, "show-all", false, "Show all frames (not just errors)")
	errorDetectionCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
	errorDetectionCmd.Flags().BoolVar(&useTUI, "tui", true, "Use terminal UI (false for text mode)")
	errorDetectionCmd.Flags().BoolVar(&fetchDetails, "fetch", false, "Request attributes for every added notification")
}

func runErrorDetection(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	if useTUI {
		return runTUIMode(conn, connInfo)
	}
	return runTextMode(conn, connInfo)
}

// detailsRequestFor returns the attribute request to send for a
// notification, if --fetch is set and the notification is new
func detailsRequestFor(result analysis) (ancs.GetNotificationAttributesRequest, bool) {
	n, ok := result.message.(ancs.Notification)
	if !fetchDetails || !ok || n.EventID != ancs.EventNotificationAdded {
		return ancs.GetNotificationAttributesRequest{}, false
	}
	return ancs.NewNotificationDetailsRequest(n.UID,
		settings.TitleMaxLength, settings.SubtitleMaxLength, settings.MessageMaxLength), true
}

// printDecodeError prints a framing or decode error in highlighted format
func printDecodeError(result analysis) {
	timestamp := time.Now().Format("15:04:05.000")
	if result.frameErr != nil {
		fmt.Printf("[%s] \033[1;31mFRAME ERROR:\033[0m %v\n", timestamp, result.frameErr)
		fmt.Printf("  >>> FRAME DROPPED <<<\n\n")
		return
	}

	fmt.Printf("[%s] \033[1;31mDECODE ERROR:\033[0m %v\n", timestamp, result.decodeErr)
	if c, ok := result.frame.Characteristic(); ok {
		value, _ := result.frame.Value()
		fmt.Printf("  %s: %s\n", c, ancs.FormatHex(value))
	}
	var decodeErr *ancs.DecodeError
	if errors.As(result.decodeErr, &decodeErr) {
		fmt.Printf("  Field: %s, offset %d\n", decodeErr.Field, decodeErr.Offset)
	}
	fmt.Printf("  >>> DECODE FAILED <<<\n\n")
}

// printWriteResult prints a WRITE_RESULT
func printWriteResult(f *bridge.Frame) {
	timestamp := f.Timestamp().Format("15:04:05.000")
	if err := f.WriteError(); err != nil {
		fmt.Printf("[%s] \033[1;31mWRITE FAILED:\033[0m %v\n\n", timestamp, err)
		return
	}
	fmt.Printf("[%s] \033[1;32mWRITE_RESULT:\033[0m success\n\n", timestamp)
}

// printAnomalies prints validation errors for a reassembled response
func printAnomalies(result analysis) {
	timestamp := result.frame.Timestamp().Format("15:04:05.000")

	fmt.Printf("[%s] \033[1;33mVALIDATION ERROR:\033[0m\n", timestamp)
	fmt.Print(indent(ancs.FormatMessage(result.message)))

	for i, anomaly := range result.anomalies {
		switch anomaly.Type {
		case ancs.AnomalyUIDMismatch:
			fmt.Printf("  Issue %d: \033[1;31m%s\033[0m\n", i+1, anomaly.Message)
			fmt.Printf("    UID: received=%v, requested=%v\n", anomaly.Details["uid"], anomaly.Details["expected"])

		case ancs.AnomalyAppIdentifierMismatch:
			fmt.Printf("  Issue %d: \033[1;31m%s\033[0m\n", i+1, anomaly.Message)
			fmt.Printf("    App: received=%q, requested=%q\n", anomaly.Details["app"], anomaly.Details["expected"])

		case ancs.AnomalyCommandMismatch:
			fmt.Printf("  Issue %d: \033[1;31m%s\033[0m\n", i+1, anomaly.Message)
			fmt.Printf("    Command: received=%v, requested=%v\n", anomaly.Details["command"], anomaly.Details["expected"])

		case ancs.AnomalyValueTooLong:
			fmt.Printf("  Issue %d: \033[1;33m%s\033[0m\n", i+1, anomaly.Message)
			fmt.Printf("    %v: length=%v, max=%v\n", anomaly.Details["attribute"], anomaly.Details["length"], anomaly.Details["max"])

		case ancs.AnomalyInvalidDate, ancs.AnomalyInvalidMessageSize:
			fmt.Printf("  Issue %d: \033[1;33m%s\033[0m\n", i+1, anomaly.Message)
			fmt.Printf("    Value=%q\n", anomaly.Details["value"])

		default:
			fmt.Printf("  Issue %d: %s\n", i+1, anomaly.Message)
		}
	}

	fmt.Printf("  >>> RESPONSE REJECTED <<<\n\n")
}

// printFrame prints a valid frame. Reassembled Data Source responses are
// printed whole instead of as their last fragment.
func printFrame(result analysis) {
	switch result.message.(type) {
	case ancs.GetNotificationAttributesResponse, ancs.GetAppAttributesResponse:
		fmt.Printf("[%s] DATA_SOURCE response\n", result.frame.Timestamp().Format("15:04:05.000"))
		fmt.Print(indent(ancs.FormatMessage(result.message)))
		return
	}
	fmt.Print(bridge.FormatFrame(result.frame))
}

// runTUIMode runs error detection in TUI mode
func runTUIMode(conn Connection, connInfo string) error {
	silenceStderrLogging()

	m := initialModel(conn, connInfo, statsInterval, showAll)
	p := tea.NewProgram(m)

	done := make(chan struct{})
	defer close(done)
	go forwardFrames(p, conn, done)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %v", err)
	}
	return nil
}

// runTextMode runs error detection in text mode
func runTextMode(conn Connection, connInfo string) error {
	fmt.Printf("ancstat - Error Detection Mode\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Statistics interval: %d seconds\n", statsInterval)
	if showAll {
		fmt.Printf("Mode: All frames\n")
	} else {
		fmt.Printf("Mode: Errors only\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	analyzer := newTrafficAnalyzer()
	var sync frameSync

	statsTicker := time.NewTicker(time.Duration(statsInterval) * time.Second)
	defer statsTicker.Stop()

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
				fmt.Println()
				fmt.Print(analyzer.stats.String())
				return <-errc
			}

			process, synced := sync.observe(ev)
			if !process {
				continue
			}
			if synced {
				if sync.skipped > 0 {
					fmt.Printf("[SYNC] Synchronized after skipping %d bad frames\n\n", sync.skipped)
				} else {
					fmt.Printf("[SYNC] Synchronized\n\n")
				}
			}

			result := analyzer.process(ev)
			switch {
			case result.frameErr != nil || result.decodeErr != nil:
				printDecodeError(result)
			case len(result.anomalies) > 0:
				printAnomalies(result)
			case result.frame.Type() == bridge.MsgWriteResult:
				// Always print write results (for debugging)
				printWriteResult(result.frame)
			case showAll && !result.fragment:
				printFrame(result)
			}

			if req, ok := detailsRequestFor(result); ok {
				if err := writeRequest(conn, req); err != nil {
					log.WithError(err).Warn("failed to request notification details")
				} else {
					analyzer.expect(req)
				}
			}

		case <-statsTicker.C:
			if dropped := analyzer.expire(settings.RequestTimeout); dropped > 0 {
				log.WithField("count", dropped).Warn("requests expired without a response")
			}
			fmt.Println()
			fmt.Print(analyzer.stats.String())
			fmt.Println()

		case <-interrupt:
			fmt.Println()
			fmt.Print(analyzer.stats.String())
			return nil
		}
	}
}
