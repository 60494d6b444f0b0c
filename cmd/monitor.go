// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Interactive TUI for iOS notifications",
	Long: `Monitor and act on iOS notifications via an interactive terminal UI.

This command shows the notifications an iOS device publishes over ANCS,
as forwarded by a BLE bridge on a serial port or WebSocket.

Features:
  - Live notification list (added, modified, removed)
  - Automatic attribute fetch for new notifications (title, message, date,
    app identifier, action labels), reassembled from Data Source fragments
  - App display names looked up once per app
  - Positive and negative actions (e.g. answer or decline a call)
  - Editable message max length
  - Statistics and event log
  - Automatic reconnection on connection loss

Keys: arrows/j/k select, p positive action, n negative action, r refetch,
Tab switches between the list and the max length input, q quits.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

// bridgeSession owns the bridge connection of a long-running TUI and
// replaces it when the link drops. The TUI writes through conn() while the
// reader goroutine may swap it.
type bridgeSession struct {
	mu     sync.RWMutex
	active Connection

	dial   func() (Connection, string, error)
	notify func(tea.Msg)
	done   chan struct{}
}

func newBridgeSession(conn Connection, dial func() (Connection, string, error)) *bridgeSession {
	return &bridgeSession{
		active: conn,
		dial:   dial,
		notify: func(tea.Msg) {},
		done:   make(chan struct{}),
	}
}

func (s *bridgeSession) conn() Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *bridgeSession) replace(conn Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = conn
}

// close stops the session and its connection
func (s *bridgeSession) close() {
	close(s.done)
	if conn := s.conn(); conn != nil {
		conn.Close()
	}
}

func runMonitor(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	silenceStderrLogging()

	session := newBridgeSession(conn, OpenConnection)
	p := tea.NewProgram(initialMonitorModel(session, connInfo), tea.WithAltScreen(), tea.WithMouseCellMotion())
	session.notify = p.Send

	go session.run()

	_, err = p.Run()
	session.close()
	if err != nil {
		return fmt.Errorf("TUI error: %v", err)
	}
	return nil
}

// run forwards frames to the TUI, redialing whenever the connection drops,
// until the session is closed
func (s *bridgeSession) run() {
	for {
		err := forwardBatches(s.notify, s.conn(), s.done)
		select {
		case <-s.done:
			return
		default:
		}

		log.WithError(err).Warn("bridge connection lost")
		s.notify(connectionLostMsg{})
		if !s.redial(time.Second, 30*time.Second) {
			return
		}
	}
}

// redial reconnects with exponential backoff between first and limit. It
// returns false if the session closed first.
func (s *bridgeSession) redial(first, limit time.Duration) bool {
	if conn := s.conn(); conn != nil {
		conn.Close()
	}

	for wait := first; ; wait = nextBackoff(wait, limit) {
		select {
		case <-s.done:
			return false
		case <-time.After(wait):
		}

		conn, info, err := s.dial()
		if err != nil {
			log.WithError(err).WithField("retry_in", nextBackoff(wait, limit)).Debug("redial failed")
			continue
		}
		s.replace(conn)
		s.notify(reconnectedMsg{connInfo: info})
		return true
	}
}

func nextBackoff(wait, limit time.Duration) time.Duration {
	if wait *= 2; wait > limit {
		return limit
	}
	return wait
}
