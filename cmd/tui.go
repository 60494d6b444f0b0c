// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/Thermoquad/ancstat/pkg/ancs"
	"github.com/Thermoquad/ancstat/pkg/bridge"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	log "github.com/sirupsen/logrus"
)

//////////////////////////////////////////////////////////////
// Shared TUI pieces
//////////////////////////////////////////////////////////////

type tuiStyles struct {
	title      lipgloss.Style
	header     lipgloss.Style
	label      lipgloss.Style
	value      lipgloss.Style
	err        lipgloss.Style
	warning    lipgloss.Style
	box        lipgloss.Style
	focusedBox lipgloss.Style
}

func newTUIStyles() tuiStyles {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	return tuiStyles{
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			Background(lipgloss.Color("235")).
			Padding(0, 1),
		header:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		label:      lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
		value:      lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		err:        lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		warning:    lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		box:        box,
		focusedBox: box.BorderForeground(lipgloss.Color("12")),
	}
}

// Error log entry
type errorLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for info
}

// eventLog keeps the most recent entries shown at the bottom of a TUI.
// Entries are mirrored to the logger so --log-file keeps a full record.
type eventLog struct {
	entries    []errorLogEntry
	maxEntries int
}

func newEventLog(maxEntries int) eventLog {
	return eventLog{maxEntries: maxEntries}
}

func (l *eventLog) add(message string, isError bool) {
	if isError {
		log.Warn(message)
	} else {
		log.Info(message)
	}
	l.entries = append(l.entries, errorLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})
	if len(l.entries) > l.maxEntries {
		l.entries = l.entries[len(l.entries)-l.maxEntries:]
	}
}

func (l eventLog) render(st tuiStyles, rows, width int) string {
	var s strings.Builder
	if len(l.entries) == 0 {
		s.WriteString(st.header.Render("  (no events yet)"))
		return st.box.Width(width).Render(s.String())
	}

	start := len(l.entries) - rows
	if start < 0 {
		start = 0
	}
	for _, entry := range l.entries[start:] {
		timestamp := entry.timestamp.Format("15:04:05.000")
		if entry.isError {
			s.WriteString(fmt.Sprintf("%s %s\n", st.header.Render(timestamp), st.err.Render("✗ "+entry.message)))
		} else {
			s.WriteString(fmt.Sprintf("%s %s\n", st.header.Render(timestamp), st.warning.Render("ℹ "+entry.message)))
		}
	}
	return st.box.Width(width).Render(s.String())
}

// renderStatistics renders the frame counters shared by both TUIs
func renderStatistics(st tuiStyles, stats *bridge.Statistics, detailed bool) string {
	stats.CalculateRates()
	var validPercent, errorPercent float64
	if stats.TotalFrames > 0 {
		validPercent = float64(stats.ValidFrames) * 100.0 / float64(stats.TotalFrames)
		errorPercent = float64(stats.ErrorCount()) * 100.0 / float64(stats.TotalFrames)
	}

	var s strings.Builder
	s.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		st.label.Render("Total:"), st.value.Render(fmt.Sprintf("%d", stats.TotalFrames)),
		st.label.Render("Valid:"), st.value.Render(fmt.Sprintf("%d (%.1f%%)", stats.ValidFrames, validPercent)),
		st.label.Render("Errors:"), st.err.Render(fmt.Sprintf("%d (%.1f%%)", stats.ErrorCount(), errorPercent)),
	))

	if detailed {
		if stats.CRCErrors > 0 || stats.FramingErrors > 0 || stats.EnvelopeErrors > 0 {
			s.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
				st.label.Render("CRC:"), st.err.Render(fmt.Sprintf("%d", stats.CRCErrors)),
				st.label.Render("Framing:"), st.err.Render(fmt.Sprintf("%d", stats.FramingErrors)),
				st.label.Render("Envelope:"), st.err.Render(fmt.Sprintf("%d", stats.EnvelopeErrors)),
			))
		}
		if stats.DecodeErrors > 0 {
			s.WriteString(fmt.Sprintf("%s %s (%s: %d, %s: %d, %s: %d, %s: %d, %s: %d)\n",
				st.label.Render("Decode Errors:"), st.err.Render(fmt.Sprintf("%d", stats.DecodeErrors)),
				st.header.Render("unknown enum"), stats.UnknownEnumValue,
				st.header.Render("truncated"), stats.TruncatedInput,
				st.header.Render("bad UTF-8"), stats.InvalidEncoding,
				st.header.Render("trailing"), stats.TrailingInput,
				st.header.Render("ambiguous"), stats.AmbiguousEntry,
			))
		}
		if stats.Anomalies > 0 {
			s.WriteString(fmt.Sprintf("%s %s (%s: %d, %s: %d, %s: %d, %s: %d, %s: %d)\n",
				st.label.Render("Anomalies:"), st.warning.Render(fmt.Sprintf("%d", stats.Anomalies)),
				st.header.Render("wrong target"), stats.UIDMismatches,
				st.header.Render("missing"), stats.MissingAttrs,
				st.header.Render("unexpected"), stats.UnexpectedAttrs,
				st.header.Render("too long"), stats.OversizedValues,
				st.header.Render("bad value"), stats.MalformedValues,
			))
		}
		if stats.WriteFailures > 0 || stats.ReassembledResps > 0 {
			s.WriteString(fmt.Sprintf("%s %s   %s %s\n",
				st.label.Render("Write Failures:"), st.err.Render(fmt.Sprintf("%d", stats.WriteFailures)),
				st.label.Render("Responses:"), st.value.Render(fmt.Sprintf("%d", stats.ReassembledResps)),
			))
		}
	}

	errRate := st.value.Render(fmt.Sprintf("%.1f err/s", stats.ErrorRate))
	if stats.ErrorRate > 0 {
		errRate = st.err.Render(fmt.Sprintf("%.1f err/s", stats.ErrorRate))
	}
	s.WriteString(fmt.Sprintf("%s %s   %s %s",
		st.label.Render("Frame Rate:"), st.value.Render(fmt.Sprintf("%.1f frames/s", stats.FrameRate)),
		st.label.Render("Error Rate:"), errRate,
	))
	return s.String()
}

// describeResult turns an analysis into an event log line. ok is false for
// results that are not worth logging (fragments, valid frames when only
// errors are shown).
func describeResult(result analysis, verbose bool) (message string, isError bool, ok bool) {
	switch {
	case result.frameErr != nil:
		return fmt.Sprintf("FRAME ERROR: %v", result.frameErr), true, true
	case result.decodeErr != nil:
		return fmt.Sprintf("DECODE ERROR: %v", result.decodeErr), true, true
	case len(result.anomalies) > 0:
		parts := make([]string, len(result.anomalies))
		for i, a := range result.anomalies {
			parts[i] = a.Message
		}
		return "RESPONSE: " + strings.Join(parts, "; "), true, true
	}

	f := result.frame
	if f.Type() == bridge.MsgWriteResult {
		if err := f.WriteError(); err != nil {
			return fmt.Sprintf("WRITE FAILED: %v", err), true, true
		}
	}
	if !verbose || result.fragment {
		return "", false, false
	}

	switch m := result.message.(type) {
	case ancs.Notification:
		return fmt.Sprintf("%s %s uid=%d", m.EventID, m.CategoryID, m.UID), false, true
	case ancs.GetNotificationAttributesResponse:
		return fmt.Sprintf("attributes for uid=%d (%d)", m.UID, len(m.Attributes)), false, true
	case ancs.GetAppAttributesResponse:
		return fmt.Sprintf("app attributes for %s (%d)", m.AppIdentifier, len(m.Attributes)), false, true
	case ancs.ControlPointRequest:
		return fmt.Sprintf("%s written", m.Command()), false, true
	}
	return fmt.Sprintf("%s (valid)", bridge.FormatMessageType(f.Type())), false, true
}

func indent(s string) string {
	lines := strings.Split(strings.TrimSuffix(s, "\n"), "\n")
	return "  " + strings.Join(lines, "\n  ") + "\n"
}

//////////////////////////////////////////////////////////////
// Frame forwarding
//////////////////////////////////////////////////////////////

type frameBatchMsg struct {
	events []frameEvent
}

type connectionClosedMsg struct {
	err error
}

// forwardFrames hands frames from conn to the TUI until the connection
// closes, then reports why
func forwardFrames(p *tea.Program, conn Connection, done <-chan struct{}) {
	err := forwardBatches(p.Send, conn, done)
	select {
	case <-done:
	default:
		p.Send(connectionClosedMsg{err: err})
	}
}

// forwardBatches reads frames from conn and sends them in batches at a fixed
// rate, so a busy link does not flood the event loop. It returns the read
// error that ended the connection, or nil on shutdown.
func forwardBatches(send func(tea.Msg), conn Connection, done <-chan struct{}) error {
	events, errc := readFrames(conn, done)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	var batch []frameEvent
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				if len(batch) > 0 {
					send(frameBatchMsg{events: batch})
				}
				return <-errc
			}
			batch = append(batch, ev)
		case <-ticker.C:
			if len(batch) > 0 {
				send(frameBatchMsg{events: batch})
				batch = nil
			}
		}
	}
}

//////////////////////////////////////////////////////////////
// Error detection TUI
//////////////////////////////////////////////////////////////

// TUI model
type model struct {
	conn          Connection
	connInfo      string
	statsInterval int
	showAll       bool
	analyzer      *trafficAnalyzer
	sync          frameSync
	events        eventLog
	width         int
	height        int
	quitting      bool
	closed        bool

	lastNotification *ancs.Notification
	lastResponse     *ancs.GetNotificationAttributesResponse
}

type tickMsg time.Time

func initialModel(conn Connection, connInfo string, statsInterval int, showAll bool) model {
	return model{
		conn:          conn,
		connInfo:      connInfo,
		statsInterval: statsInterval,
		showAll:       showAll,
		analyzer:      newTrafficAnalyzer(),
		events:        newEventLog(100),
		width:         80,
		height:        24,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		tea.EnterAltScreen,
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			m.analyzer.stats.Reset()
			m.events.add("Statistics reset", false)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		m.analyzer.stats.CalculateRates()
		if dropped := m.analyzer.expire(settings.RequestTimeout); dropped > 0 {
			m.events.add(fmt.Sprintf("%d request(s) expired without a response", dropped), true)
		}
		return m, tickCmd()

	case frameBatchMsg:
		for _, ev := range msg.events {
			m.processEvent(ev)
		}

	case connectionClosedMsg:
		m.closed = true
		if msg.err != nil {
			m.events.add(fmt.Sprintf("Connection closed: %v", msg.err), true)
		} else {
			m.events.add("Connection closed", true)
		}
	}

	return m, nil
}

func (m *model) processEvent(ev frameEvent) {
	process, synced := m.sync.observe(ev)
	if !process {
		return
	}
	if synced {
		if m.sync.skipped > 0 {
			m.events.add(fmt.Sprintf("Synchronized after skipping %d bad frames", m.sync.skipped), false)
		} else {
			m.events.add("Synchronized", false)
		}
	}

	result := m.analyzer.process(ev)
	switch r := result.message.(type) {
	case ancs.Notification:
		m.lastNotification = &r
	case ancs.GetNotificationAttributesResponse:
		m.lastResponse = &r
	}

	if message, isError, ok := describeResult(result, m.showAll); ok {
		m.events.add(message, isError)
	}

	if req, ok := detailsRequestFor(result); ok {
		if err := writeRequest(m.conn, req); err != nil {
			m.events.add(fmt.Sprintf("Failed to request details for uid=%d: %v", req.UID, err), true)
		} else {
			m.analyzer.expect(req)
		}
	}
}

func (m model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	st := newTUIStyles()
	var s strings.Builder

	mode := "Errors only"
	if m.showAll {
		mode = "All frames"
	}
	s.WriteString(st.title.Render("ANCSTAT - ERROR DETECTION"))
	s.WriteString("\n")
	s.WriteString(st.header.Render(fmt.Sprintf("%s | Mode: %s | r=reset stats q=quit", m.connInfo, mode)))
	s.WriteString("\n\n")

	switch {
	case m.closed:
		s.WriteString(st.err.Render("✗ Connection closed"))
	case !m.sync.synchronized:
		s.WriteString(st.warning.Render("⏳ Waiting for synchronization..."))
	default:
		s.WriteString(st.value.Render("✓ Synchronized"))
		if m.sync.skipped > 0 {
			s.WriteString(st.header.Render(fmt.Sprintf(" (skipped %d bad frames)", m.sync.skipped)))
		}
		if n := m.analyzer.outstanding(); n > 0 {
			s.WriteString(st.header.Render(fmt.Sprintf("  %d request(s) outstanding", n)))
		}
	}
	s.WriteString("\n\n")

	s.WriteString(st.box.Render(renderStatistics(st, m.analyzer.stats, true)))
	s.WriteString("\n\n")

	if m.lastNotification != nil {
		s.WriteString(st.label.Render("Latest Notification:"))
		s.WriteString("\n")
		content := ancs.FormatNotification(*m.lastNotification)
		if m.lastResponse != nil && m.lastResponse.UID == m.lastNotification.UID {
			content += ancs.FormatNotificationResponse(*m.lastResponse)
		}
		s.WriteString(st.box.Render(strings.TrimSuffix(content, "\n")))
		s.WriteString("\n\n")
	}

	s.WriteString(st.label.Render("Recent Events:"))
	s.WriteString("\n")
	rows := m.height - 20
	if rows < 5 {
		rows = 5
	}
	s.WriteString(m.events.render(st, rows, m.width-4))

	return s.String()
}
