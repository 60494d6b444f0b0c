// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Thermoquad/ancstat/pkg/ancs"
	"github.com/Thermoquad/ancstat/pkg/bridge"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var sendRequest bool

var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Build Control Point requests",
	Long: `Build ANCS Control Point requests and print them as hex.

With --send, the request is written to the bridge as a WRITE frame and the
command waits for the bridge's WRITE_RESULT.`,
}

var encodeNotificationCmd = &cobra.Command{
	Use:   "notification <uid> [attribute[:max]...]",
	Short: "Build a Get Notification Attributes request",
	Long: `Build a Get Notification Attributes request.

Attributes are named as app_identifier, title, subtitle, message,
message_size, date, positive_action_label, negative_action_label. Sized
attributes (title, subtitle, message) may carry a max length, e.g. title:32.

Without attributes, the full detail request is built using the configured
title/subtitle/message max lengths.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEncodeNotification,
}

var encodeAppCmd = &cobra.Command{
	Use:   "app <app-identifier> [attribute...]",
	Short: "Build a Get App Attributes request",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runEncodeApp,
}

var encodeActionCmd = &cobra.Command{
	Use:   "action <uid> <positive|negative>",
	Short: "Build a Perform Notification Action request",
	Args:  cobra.ExactArgs(2),
	RunE:  runEncodeAction,
}

func init() {
	rootCmd.AddCommand(encodeCmd)
	encodeCmd.AddCommand(encodeNotificationCmd, encodeAppCmd, encodeActionCmd)
	encodeCmd.PersistentFlags().BoolVar(&sendRequest, "send", false, "Write the request to the bridge and wait for the result")
}

func runEncodeNotification(cmd *cobra.Command, args []string) error {
	uid, err := parseUID(args[0])
	if err != nil {
		return err
	}

	var req ancs.GetNotificationAttributesRequest
	if len(args) == 1 {
		req = ancs.NewNotificationDetailsRequest(uid, settings.TitleMaxLength, settings.SubtitleMaxLength, settings.MessageMaxLength)
	} else {
		attrs := make([]ancs.AttributeRequest, 0, len(args)-1)
		for _, arg := range args[1:] {
			a, err := parseAttributeRequest(arg)
			if err != nil {
				return err
			}
			attrs = append(attrs, a)
		}
		req = ancs.NewGetNotificationAttributesRequest(uid, attrs...)
	}
	return emitRequest(cmd, req)
}

func runEncodeApp(cmd *cobra.Command, args []string) error {
	ids := []ancs.AppAttributeID{ancs.AppAttributeDisplayName}
	if len(args) > 1 {
		ids = ids[:0]
		for _, arg := range args[1:] {
			id, err := parseAppAttributeID(arg)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
	}
	return emitRequest(cmd, ancs.NewGetAppAttributesRequest(args[0], ids...))
}

func runEncodeAction(cmd *cobra.Command, args []string) error {
	uid, err := parseUID(args[0])
	if err != nil {
		return err
	}
	action, err := parseActionArg(args[1])
	if err != nil {
		return err
	}
	return emitRequest(cmd, ancs.NewPerformNotificationActionRequest(uid, action))
}

// emitRequest prints the request and, with --send, writes it to the bridge
func emitRequest(cmd *cobra.Command, req ancs.ControlPointRequest) error {
	data, err := req.MarshalBinary()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprint(out, ancs.FormatMessage(req))
	fmt.Fprintln(out, ancs.FormatHex(data))

	if !sendRequest {
		return nil
	}
	if err := sendAndAwaitResult(req, settings.RequestTimeout); err != nil {
		return err
	}
	fmt.Fprintln(out, "WRITE_RESULT: success")
	return nil
}

// sendAndAwaitResult writes req to the bridge and waits for its WRITE_RESULT
func sendAndAwaitResult(req ancs.ControlPointRequest, timeout time.Duration) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()
	log.WithField("connection", connInfo).Info("connected to bridge")

	done := make(chan struct{})
	defer close(done)
	events, errc := readFrames(conn, done)

	if err := writeRequest(conn, req); err != nil {
		return err
	}

	deadline := time.After(timeout)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return fmt.Errorf("connection lost waiting for WRITE_RESULT: %v", <-errc)
			}
			if ev.frame == nil || ev.frame.ParseError() != nil || ev.frame.Type() != bridge.MsgWriteResult {
				continue
			}
			if err := ev.frame.WriteError(); err != nil {
				var cpErr ancs.ControlPointError
				if errors.As(err, &cpErr) {
					return fmt.Errorf("iOS rejected %s: %w", req.Command(), err)
				}
				return err
			}
			return nil
		case <-deadline:
			return fmt.Errorf("no WRITE_RESULT within %v", timeout)
		}
	}
}

func parseUID(s string) (uint32, error) {
	uid, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid notification UID %q: %v", s, err)
	}
	return uint32(uid), nil
}

// parseAttributeRequest parses "title" or "title:32"
func parseAttributeRequest(s string) (ancs.AttributeRequest, error) {
	name, maxStr, hasMax := strings.Cut(s, ":")
	id, err := parseNotificationAttributeID(name)
	if err != nil {
		return ancs.AttributeRequest{}, err
	}
	if !hasMax {
		return ancs.RequestAttribute(id), nil
	}
	if !id.IsSized() {
		return ancs.AttributeRequest{}, fmt.Errorf("%s does not take a max length", id)
	}
	maxLength, err := strconv.ParseUint(maxStr, 0, 16)
	if err != nil {
		return ancs.AttributeRequest{}, fmt.Errorf("invalid max length %q: %v", maxStr, err)
	}
	return ancs.RequestAttributeWithMax(id, uint16(maxLength)), nil
}

func parseNotificationAttributeID(s string) (ancs.NotificationAttributeID, error) {
	want := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	for b := 0; b <= 0xFF; b++ {
		id, err := ancs.ParseNotificationAttributeID(byte(b))
		if err != nil {
			break
		}
		if id.String() == want {
			return id, nil
		}
	}
	return 0, fmt.Errorf("unknown notification attribute %q", s)
}

func parseAppAttributeID(s string) (ancs.AppAttributeID, error) {
	want := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	for b := 0; b <= 0xFF; b++ {
		id, err := ancs.ParseAppAttributeID(byte(b))
		if err != nil {
			break
		}
		if id.String() == want {
			return id, nil
		}
	}
	return 0, fmt.Errorf("unknown app attribute %q", s)
}

func parseActionArg(s string) (ancs.ActionID, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "positive", "pos", "0":
		return ancs.ActionPositive, nil
	case "negative", "neg", "1":
		return ancs.ActionNegative, nil
	}
	return 0, fmt.Errorf("unknown action %q (use positive or negative)", s)
}
