// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"go.bug.st/serial"
	"golang.org/x/term"
)

const (
	// passwordEnv names the environment variable holding the WebSocket password
	passwordEnv = "ANCSTAT_PASSWORD"

	// Serial reads return at least this often so readers notice shutdown
	serialReadTimeout = 200 * time.Millisecond

	// A WebSocket bridge that answers no ping for pongWait is gone
	pingInterval = 15 * time.Second
	pongWait     = 2 * pingInterval
)

// Connection is a byte stream to a BLE bridge. Bridge frames are read from
// it and Control Point writes are sent to it; frame boundaries are not
// preserved.
type Connection interface {
	io.Reader
	io.Writer
	io.Closer
}

// ErrConnectionClosed is returned by reads once the bridge has gone away
var ErrConnectionClosed = errors.New("bridge connection closed")

//////////////////////////////////////////////////////////////
// Serial bridge
//////////////////////////////////////////////////////////////

// serialBridge is a BLE dongle on a UART. Read returns (0, nil) when no
// bytes arrive within serialReadTimeout.
type serialBridge struct {
	serial.Port
}

func openSerialBridge(portName string, baudRate int) (Connection, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	log.WithFields(log.Fields{"port": portName, "baud": baudRate}).Debug("opening serial port")
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}
	if err := port.SetReadTimeout(serialReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to configure serial port %s: %w", portName, err)
	}
	// Drop whatever the dongle queued before we attached
	if err := port.ResetInputBuffer(); err != nil {
		log.WithError(err).Debug("could not flush serial input")
	}

	return serialBridge{Port: port}, nil
}

//////////////////////////////////////////////////////////////
// WebSocket bridge
//////////////////////////////////////////////////////////////

// websocketBridge exposes the binary messages of a WebSocket as a byte
// stream. A message may hold any number of frames or a partial frame.
type websocketBridge struct {
	conn    *websocket.Conn
	pending []byte
	closed  bool

	stopPing  chan struct{}
	closeOnce sync.Once
}

func newWebsocketBridge(conn *websocket.Conn) *websocketBridge {
	w := &websocketBridge{conn: conn, stopPing: make(chan struct{})}

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go w.keepAlive()

	return w
}

// keepAlive pings the bridge so a silent link is told apart from a dead one
func (w *websocketBridge) keepAlive() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-w.stopPing:
			return
		case <-ticker.C:
			deadline := time.Now().Add(5 * time.Second)
			if err := w.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				log.WithError(err).Debug("websocket ping failed")
				return
			}
		}
	}
}

func (w *websocketBridge) Read(p []byte) (int, error) {
	if w.closed {
		return 0, ErrConnectionClosed
	}

	for len(w.pending) == 0 {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			w.closed = true
			log.WithError(err).Debug("websocket read failed")
			return 0, ErrConnectionClosed
		}
		// Bridge frames only travel in binary messages
		if messageType != websocket.BinaryMessage {
			log.WithField("type", messageType).Trace("skipping non-binary websocket message")
			continue
		}
		w.pending = data
	}

	n := copy(p, w.pending)
	w.pending = w.pending[n:]
	return n, nil
}

// Write sends p as one binary message
func (w *websocketBridge) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *websocketBridge) Close() error {
	w.closeOnce.Do(func() { close(w.stopPing) })
	return w.conn.Close()
}

func openWebsocketBridge(rawURL, username, password string, skipSSLVerify bool) (Connection, error) {
	u, err := parseBridgeURL(rawURL)
	if err != nil {
		return nil, err
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: skipSSLVerify}
	}

	headers := http.Header{}
	if username != "" && password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	log.WithFields(log.Fields{"url": u.Redacted(), "auth": username != ""}).Debug("dialing bridge")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, u.String(), headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %v", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %v", err)
	}

	return newWebsocketBridge(conn), nil
}

// parseBridgeURL accepts ws:// and wss:// URLs
func parseBridgeURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %q (use ws:// or wss://)", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid URL %q: missing host", rawURL)
	}
	return u, nil
}

// bridgePassword returns $ANCSTAT_PASSWORD, or prompts for it on the terminal
func bridgePassword() (string, error) {
	if pw := os.Getenv(passwordEnv); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")
	defer fmt.Fprintln(os.Stderr)

	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err == nil {
		return string(passwordBytes), nil
	}

	// Not a terminal; take a line from stdin
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read password: %v", err)
	}
	return strings.TrimSpace(line), nil
}

//////////////////////////////////////////////////////////////
// Connection selection
//////////////////////////////////////////////////////////////

// dialBridge opens the bridge named by cfg: the WebSocket URL if set, else
// the serial port. The returned string describes the connection for display.
func dialBridge(cfg Config) (Connection, string, error) {
	switch {
	case cfg.URL != "":
		var password string
		if cfg.Username != "" {
			var err error
			if password, err = bridgePassword(); err != nil {
				return nil, "", err
			}
		}
		conn, err := openWebsocketBridge(cfg.URL, cfg.Username, password, cfg.NoSSLVerify)
		if err != nil {
			return nil, "", err
		}
		return conn, fmt.Sprintf("WebSocket: %s", cfg.URL), nil

	case cfg.Port != "":
		conn, err := openSerialBridge(cfg.Port, cfg.Baud)
		if err != nil {
			return nil, "", err
		}
		return conn, fmt.Sprintf("Serial: %s @ %d baud", cfg.Port, cfg.Baud), nil
	}

	return nil, "", fmt.Errorf("no bridge configured: set --port or --url (or port/url in the config file)")
}

// OpenConnection opens the bridge selected by the resolved settings
func OpenConnection() (Connection, string, error) {
	return dialBridge(settings)
}
