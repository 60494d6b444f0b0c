// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Thermoquad/ancstat/pkg/ancs"
	"github.com/Thermoquad/ancstat/pkg/bridge"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var appLookupTimeout int

var (
	errLookupTimeout  = errors.New("timed out waiting for app attributes")
	errConnectionLost = errors.New("connection lost")
)

var appLookupCmd = &cobra.Command{
	Use:   "app_lookup <app-identifier>",
	Short: "Look up an app's display name on the iOS device",
	Long: `Send a Get App Attributes request for the app's display name and wait
for the response on the Data Source.

The response may arrive split across several Data Source notifications; it
is reassembled before decoding and then checked against the request.

Examples:
  ancstat app_lookup com.apple.MobileSMS --port /dev/ttyACM0
  ancstat app_lookup com.apple.mobilephone --url ws://bridge.local/ancs

Exit codes:
  0 - Display name received
  1 - Timeout, or the iOS device rejected the request
  2 - Connection error`,
	Args: cobra.ExactArgs(1),
	RunE: runAppLookup,
}

func init() {
	rootCmd.AddCommand(appLookupCmd)
	appLookupCmd.Flags().IntVar(&appLookupTimeout, "timeout", 0, "Timeout in seconds (default request_timeout_seconds from config)")
}

func runAppLookup(cmd *cobra.Command, args []string) error {
	timeout := settings.RequestTimeout
	if appLookupTimeout > 0 {
		timeout = time.Duration(appLookupTimeout) * time.Second
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("ancstat - App Lookup\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("App: %s\n\n", args[0])

	done := make(chan struct{})
	events, errc := readFrames(conn, done)

	req := ancs.NewGetAppAttributesRequest(args[0], ancs.AppAttributeDisplayName)
	if err := writeRequest(conn, req); err != nil {
		fmt.Fprintf(os.Stderr, "Write error: %v\n", err)
		os.Exit(2)
	}

	resp, err := awaitAppResponse(events, ancs.NewAppResponseAssembler(req), time.After(timeout))
	close(done)
	switch {
	case errors.Is(err, errConnectionLost):
		fmt.Fprintf(os.Stderr, "Read error: %v\n", <-errc)
		os.Exit(2)
	case errors.Is(err, errLookupTimeout):
		fmt.Fprintf(os.Stderr, "TIMEOUT: No response within %v\n", timeout)
		os.Exit(1)
	case err != nil:
		fmt.Fprintf(os.Stderr, "FAILED: %v\n", err)
		os.Exit(1)
	}

	for _, anomaly := range ancs.ValidateAppResponse(req, resp) {
		log.WithField("anomaly", anomaly.Type.String()).Warn(anomaly.Message)
	}

	name, ok := resp.Attribute(ancs.AppAttributeDisplayName)
	if !ok {
		fmt.Fprintf(os.Stderr, "FAILED: response has no display name\n")
		os.Exit(1)
	}
	fmt.Printf("SUCCESS: %s\n", name.Value)
	return nil
}

// awaitAppResponse feeds Data Source values into asm until a response is
// complete. A failing WRITE_RESULT ends the wait with the ATT error.
func awaitAppResponse(events <-chan frameEvent, asm *ancs.AppResponseAssembler, timeout <-chan time.Time) (ancs.GetAppAttributesResponse, error) {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return ancs.GetAppAttributesResponse{}, errConnectionLost
			}
			if ev.err != nil {
				log.WithError(ev.err).Debug("framing error")
				continue
			}

			if ev.frame.ParseError() == nil && ev.frame.Type() == bridge.MsgWriteResult {
				if err := ev.frame.WriteError(); err != nil {
					return ancs.GetAppAttributesResponse{}, fmt.Errorf("request rejected: %w", err)
				}
				continue
			}

			value, ok := dataSourceValue(ev.frame)
			if !ok {
				continue
			}
			resp, complete, err := asm.Feed(value)
			if err != nil {
				log.WithError(err).Warn("discarding malformed app attributes response")
				continue
			}
			if complete {
				return resp, nil
			}
			log.WithField("buffered", asm.Buffered()).Debug("waiting for more app attribute fragments")

		case <-timeout:
			return ancs.GetAppAttributesResponse{}, errLookupTimeout
		}
	}
}
