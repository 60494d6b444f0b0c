// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Thermoquad/ancstat/pkg/ancs"
	"github.com/Thermoquad/ancstat/pkg/bridge"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

const listPanelWidth = 36

// Focus states
const (
	focusNotificationList = iota
	focusMaxLengthInput
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// notificationItem is one notification currently shown on the iOS device
type notificationItem struct {
	notification ancs.Notification
	details      *ancs.GetNotificationAttributesResponse
	appName      string
	received     time.Time
}

func (n notificationItem) attribute(id ancs.NotificationAttributeID) string {
	if n.details == nil {
		return ""
	}
	a, _ := n.details.Attribute(id)
	return a.Value
}

// Implement list.Item interface
func (n notificationItem) Title() string {
	if title := n.attribute(ancs.NotificationAttributeTitle); title != "" {
		return title
	}
	return fmt.Sprintf("%s #%d", n.notification.CategoryID, n.notification.UID)
}

func (n notificationItem) Description() string {
	switch {
	case n.appName != "":
		return n.appName
	case n.attribute(ancs.NotificationAttributeAppIdentifier) != "":
		return n.attribute(ancs.NotificationAttributeAppIdentifier)
	}
	return n.notification.CategoryID.String()
}

func (n notificationItem) FilterValue() string { return n.Title() }

// monitorModel is the Bubble Tea model for the monitor TUI
type monitorModel struct {
	session  *bridgeSession
	connInfo string

	analyzer *trafficAnalyzer
	sync     frameSync

	// Notifications, newest first
	items            []notificationItem
	notificationList list.Model

	// App display names, and the apps already asked for
	apps       map[string]string
	appLookups map[string]bool

	messageMax     uint16
	maxLengthInput textinput.Model
	focusedField   int

	events eventLog

	width          int
	height         int
	quitting       bool
	connectionLost bool
	linkKnown      bool
	linkUp         bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type monitorTickMsg time.Time

type connectionLostMsg struct{}

type reconnectedMsg struct {
	connInfo string
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialMonitorModel(session *bridgeSession, connInfo string) monitorModel {
	ti := textinput.New()
	ti.Placeholder = strconv.Itoa(int(settings.MessageMaxLength))
	ti.CharLimit = 5
	ti.Width = 8

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	delegate.SetHeight(2)
	notificationList := list.New([]list.Item{}, delegate, listPanelWidth-2, 10)
	notificationList.Title = "Notifications"
	notificationList.SetShowStatusBar(false)
	notificationList.SetShowHelp(false)
	notificationList.SetFilteringEnabled(false)

	return monitorModel{
		session:          session,
		connInfo:         connInfo,
		analyzer:         newTrafficAnalyzer(),
		notificationList: notificationList,
		apps:             make(map[string]string),
		appLookups:       make(map[string]bool),
		messageMax:       settings.MessageMaxLength,
		maxLengthInput:   ti,
		focusedField:     focusNotificationList,
		events:           newEventLog(100),
		width:            80,
		height:           24,
	}
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m monitorModel) Init() tea.Cmd {
	return monitorTickCmd()
}

func monitorTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return monitorTickMsg(t)
	})
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.MouseMsg:
		if m.focusedField == focusNotificationList {
			m.notificationList, _ = m.notificationList.Update(msg)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateListSize()

	case monitorTickMsg:
		m.analyzer.stats.CalculateRates()
		if dropped := m.analyzer.expire(settings.RequestTimeout); dropped > 0 {
			m.events.add(fmt.Sprintf("%d request(s) got no response within %v", dropped, settings.RequestTimeout), true)
		}
		return m, monitorTickCmd()

	case frameBatchMsg:
		for _, ev := range msg.events {
			m.processEvent(ev)
		}
		m.updateNotificationList()

	case connectionLostMsg:
		m.connectionLost = true
		m.events.add("Connection lost - reconnecting...", true)

	case reconnectedMsg:
		m.connectionLost = false
		m.connInfo = msg.connInfo
		m.sync.reset()
		// UIDs do not survive a new session; the device re-announces
		// everything as pre-existing
		m.clearNotifications()
		m.events.add("Reconnected", false)
	}

	return m, nil
}

func (m monitorModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit

	case "tab", "shift+tab":
		m.toggleFocus()
		return m, nil
	}

	if m.focusedField == focusMaxLengthInput {
		if msg.String() == "enter" {
			m.applyMaxLength()
			return m, nil
		}
		var cmd tea.Cmd
		m.maxLengthInput, cmd = m.maxLengthInput.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "up", "k", "down", "j", "home", "end", "pgup", "pgdown":
		m.notificationList, _ = m.notificationList.Update(msg)
	case "p":
		m.performAction(ancs.ActionPositive)
	case "n":
		m.performAction(ancs.ActionNegative)
	case "r", "enter":
		if item := m.selected(); item != nil {
			m.requestDetails(item.notification.UID)
		}
	}
	return m, nil
}

func (m *monitorModel) toggleFocus() {
	if m.focusedField == focusNotificationList {
		m.focusedField = focusMaxLengthInput
		m.maxLengthInput.Focus()
		return
	}
	m.focusedField = focusNotificationList
	m.maxLengthInput.Blur()
}

//////////////////////////////////////////////////////////////
// Data Processing
//////////////////////////////////////////////////////////////

func (m *monitorModel) processEvent(ev frameEvent) {
	process, synced := m.sync.observe(ev)
	if !process {
		return
	}
	if synced && m.sync.skipped > 0 {
		m.events.add(fmt.Sprintf("Synchronized after skipping %d bad frames", m.sync.skipped), false)
	}

	result := m.analyzer.process(ev)
	if message, isError, ok := describeResult(result, false); ok {
		m.events.add(message, isError)
	}

	switch r := result.message.(type) {
	case ancs.Notification:
		m.handleNotification(r)
	case ancs.GetNotificationAttributesResponse:
		m.handleDetails(r)
	case ancs.GetAppAttributesResponse:
		m.handleAppAttributes(r)
	}

	if result.frame != nil && result.frame.ParseError() == nil && result.frame.Type() == bridge.MsgLinkState {
		m.handleLinkState(result.frame)
	}
}

func (m *monitorModel) handleNotification(n ancs.Notification) {
	idx := m.indexOf(n.UID)

	switch n.EventID {
	case ancs.EventNotificationAdded:
		if idx >= 0 {
			m.items[idx].notification = n
		} else {
			item := notificationItem{notification: n, received: time.Now()}
			m.items = append([]notificationItem{item}, m.items...)
		}
		if !n.EventFlags.Has(ancs.EventFlagPreExisting) {
			m.events.add(fmt.Sprintf("New %s notification (uid=%d)", n.CategoryID, n.UID), false)
		}
		m.requestDetails(n.UID)

	case ancs.EventNotificationModified:
		if idx < 0 {
			m.items = append([]notificationItem{{notification: n, received: time.Now()}}, m.items...)
		} else {
			m.items[idx].notification = n
		}
		m.requestDetails(n.UID)

	case ancs.EventNotificationRemoved:
		if idx >= 0 {
			m.items = append(m.items[:idx], m.items[idx+1:]...)
			m.events.add(fmt.Sprintf("Removed notification uid=%d", n.UID), false)
		}
	}
}

func (m *monitorModel) handleDetails(resp ancs.GetNotificationAttributesResponse) {
	idx := m.indexOf(resp.UID)
	if idx < 0 {
		// Removed while the response was in flight
		return
	}
	m.items[idx].details = &resp

	appID := m.items[idx].attribute(ancs.NotificationAttributeAppIdentifier)
	if appID == "" {
		return
	}
	if name, ok := m.apps[appID]; ok {
		m.items[idx].appName = name
		return
	}
	if !m.appLookups[appID] {
		if m.send(ancs.NewGetAppAttributesRequest(appID, ancs.AppAttributeDisplayName)) {
			m.appLookups[appID] = true
		}
	}
}

func (m *monitorModel) handleAppAttributes(resp ancs.GetAppAttributesResponse) {
	name, ok := resp.Attribute(ancs.AppAttributeDisplayName)
	if !ok || name.Value == "" {
		return
	}
	m.apps[resp.AppIdentifier] = name.Value
	for i := range m.items {
		if m.items[i].attribute(ancs.NotificationAttributeAppIdentifier) == resp.AppIdentifier {
			m.items[i].appName = name.Value
		}
	}
}

func (m *monitorModel) handleLinkState(f *bridge.Frame) {
	connected, ok := f.Connected()
	if !ok {
		return
	}
	m.linkKnown = true
	if connected == m.linkUp {
		return
	}
	m.linkUp = connected
	if connected {
		m.events.add("iOS device connected", false)
		return
	}
	m.events.add("iOS device disconnected", true)
	m.clearNotifications()
}

//////////////////////////////////////////////////////////////
// Commands
//////////////////////////////////////////////////////////////

// send writes a request to the bridge and registers it for response
// tracking. It reports whether the write succeeded.
func (m *monitorModel) send(req ancs.ControlPointRequest) bool {
	if m.connectionLost {
		m.events.add(fmt.Sprintf("Cannot send %s: connection lost", req.Command()), true)
		return false
	}
	conn := m.session.conn()
	if conn == nil {
		m.events.add(fmt.Sprintf("Cannot send %s: connection lost", req.Command()), true)
		return false
	}
	if err := writeRequest(conn, req); err != nil {
		m.events.add(fmt.Sprintf("Failed to send command: %v", err), true)
		return false
	}
	m.analyzer.expect(req)
	return true
}

func (m *monitorModel) requestDetails(uid uint32) {
	m.send(ancs.NewNotificationDetailsRequest(uid, settings.TitleMaxLength, settings.SubtitleMaxLength, m.messageMax))
}

func (m *monitorModel) performAction(action ancs.ActionID) {
	item := m.selected()
	if item == nil {
		return
	}

	flag, labelID := ancs.EventFlagPositiveAction, ancs.NotificationAttributePositiveActionLabel
	if action == ancs.ActionNegative {
		flag, labelID = ancs.EventFlagNegativeAction, ancs.NotificationAttributeNegativeActionLabel
	}
	if !item.notification.EventFlags.Has(flag) {
		m.events.add(fmt.Sprintf("Notification uid=%d has no %s", item.notification.UID, strings.ToLower(action.String())+" action"), true)
		return
	}

	label := item.attribute(labelID)
	if label == "" {
		label = action.String()
	}
	if m.send(ancs.NewPerformNotificationActionRequest(item.notification.UID, action)) {
		m.events.add(fmt.Sprintf("Sent %q to uid=%d", label, item.notification.UID), false)
	}
}

func (m *monitorModel) applyMaxLength() {
	value := strings.TrimSpace(m.maxLengthInput.Value())
	if value == "" {
		value = m.maxLengthInput.Placeholder
	}

	n, err := strconv.ParseUint(value, 10, 16)
	if err != nil {
		m.events.add(fmt.Sprintf("Max length must be between 0 and %d", ancs.MaxAttributeLength), true)
		return
	}

	m.messageMax = uint16(n)
	m.maxLengthInput.Placeholder = value
	m.maxLengthInput.SetValue("")
	if n == 0 {
		m.events.add("Message max length: unlimited", false)
	} else {
		m.events.add(fmt.Sprintf("Message max length: %d bytes", n), false)
	}
}

//////////////////////////////////////////////////////////////
// Helpers
//////////////////////////////////////////////////////////////

func (m *monitorModel) indexOf(uid uint32) int {
	for i := range m.items {
		if m.items[i].notification.UID == uid {
			return i
		}
	}
	return -1
}

func (m *monitorModel) selected() *notificationItem {
	idx := m.notificationList.Index()
	if idx < 0 || idx >= len(m.items) {
		return nil
	}
	return &m.items[idx]
}

func (m *monitorModel) clearNotifications() {
	m.items = nil
	m.analyzer.pending = nil
	m.updateNotificationList()
}

func (m *monitorModel) updateNotificationList() {
	items := make([]list.Item, len(m.items))
	for i, n := range m.items {
		items[i] = n
	}
	m.notificationList.SetItems(items)
}

func (m *monitorModel) updateListSize() {
	listHeight := m.height / 2
	if listHeight < 6 {
		listHeight = 6
	}
	m.notificationList.SetSize(listPanelWidth-2, listHeight)
}

//////////////////////////////////////////////////////////////
// View
//////////////////////////////////////////////////////////////

func (m monitorModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	st := newTUIStyles()
	var s strings.Builder

	// Header
	s.WriteString(st.title.Render("ANCSTAT MONITOR"))
	s.WriteString(" ")
	connStatus := m.connInfo
	if m.connectionLost {
		connStatus = st.warning.Render("RECONNECTING...")
	}
	link := "iOS: ?"
	if m.linkKnown {
		link = "iOS: disconnected"
		if m.linkUp {
			link = "iOS: connected"
		}
	}
	s.WriteString(st.header.Render(fmt.Sprintf("| %s | %s | p/n=action r=refetch Tab=switch q=quit", connStatus, link)))
	s.WriteString("\n\n")

	// Layout: left panel (notifications) | right panel (details)
	listStyle := st.box.Width(listPanelWidth)
	if m.focusedField == focusNotificationList {
		listStyle = st.focusedBox.Width(listPanelWidth)
	}
	listPanel := listStyle.Render(m.notificationList.View())

	detailWidth := m.width - listPanelWidth - 6
	if detailWidth < 30 {
		detailWidth = 30
	}
	detailPanel := st.box.Width(detailWidth).Render(m.renderDetails(st, detailWidth-4))

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, listPanel, " ", detailPanel))
	s.WriteString("\n")

	// Max length input
	inputStyle := st.box
	if m.focusedField == focusMaxLengthInput {
		inputStyle = st.focusedBox
	}
	var input string
	if m.focusedField == focusMaxLengthInput {
		input = m.maxLengthInput.View()
	} else {
		input = fmt.Sprintf("[%s]", m.maxLengthInput.Placeholder)
	}
	s.WriteString(inputStyle.Width(m.width - 4).Render(fmt.Sprintf("%s %s %s",
		st.label.Render("Message max length:"), input, st.header.Render("(0 = unlimited, Enter applies)"))))
	s.WriteString("\n")

	// Statistics bar
	s.WriteString(st.box.Width(m.width - 4).Render(renderStatistics(st, m.analyzer.stats, false)))
	s.WriteString("\n")

	// Event log
	s.WriteString(st.label.Render("EVENTS"))
	s.WriteString("\n")
	s.WriteString(m.events.render(st, 6, m.width-4))

	return s.String()
}

func (m monitorModel) renderDetails(st tuiStyles, width int) string {
	item := m.selected()
	if item == nil {
		if m.linkKnown && !m.linkUp {
			return st.warning.Render("Waiting for the iOS device to connect...")
		}
		return st.header.Render("No notifications")
	}

	var s strings.Builder
	n := item.notification
	row := func(label, value string) {
		s.WriteString(fmt.Sprintf("%s %s\n", st.label.Render(label), value))
	}

	if app := item.attribute(ancs.NotificationAttributeAppIdentifier); app != "" {
		if item.appName != "" {
			row("App:", st.value.Render(item.appName)+st.header.Render(" "+app))
		} else {
			row("App:", st.value.Render(app))
		}
	}
	row("Category:", fmt.Sprintf("%s (%d active)", n.CategoryID, n.CategoryCount))
	row("Flags:", n.EventFlags.String())
	row("UID:", strconv.FormatUint(uint64(n.UID), 10))

	if item.details == nil {
		s.WriteString("\n")
		s.WriteString(st.warning.Render("Fetching attributes..."))
		return s.String()
	}

	if title := item.attribute(ancs.NotificationAttributeTitle); title != "" {
		row("Title:", st.value.Render(title))
	}
	if subtitle := item.attribute(ancs.NotificationAttributeSubtitle); subtitle != "" {
		row("Subtitle:", subtitle)
	}
	if date, ok := item.details.Attribute(ancs.NotificationAttributeDate); ok && date.Value != "" {
		if t, err := date.Date(time.Local); err == nil {
			row("Date:", t.Format("Mon Jan 2 15:04:05"))
		} else {
			row("Date:", st.err.Render(date.Value))
		}
	}

	if message := item.attribute(ancs.NotificationAttributeMessage); message != "" {
		s.WriteString("\n")
		s.WriteString(lipgloss.NewStyle().Width(width).Render(message))
		s.WriteString("\n")
		if size, ok := item.details.Attribute(ancs.NotificationAttributeMessageSize); ok {
			if total, err := size.MessageSize(); err == nil && total > len(message) {
				s.WriteString(st.header.Render(fmt.Sprintf("(%d of %d bytes)", len(message), total)))
				s.WriteString("\n")
			}
		}
	}

	var actions []string
	if n.EventFlags.Has(ancs.EventFlagPositiveAction) {
		actions = append(actions, "[p] "+labelOr(item.attribute(ancs.NotificationAttributePositiveActionLabel), "Positive"))
	}
	if n.EventFlags.Has(ancs.EventFlagNegativeAction) {
		actions = append(actions, "[n] "+labelOr(item.attribute(ancs.NotificationAttributeNegativeActionLabel), "Negative"))
	}
	if len(actions) > 0 {
		s.WriteString("\n")
		s.WriteString(st.value.Render(strings.Join(actions, "   ")))
	}

	return strings.TrimSuffix(s.String(), "\n")
}

func labelOr(label, fallback string) string {
	if label == "" {
		return fallback
	}
	return label
}
