// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	configPath string
	logLevel   string
	logFile    string

	// settings is the resolved configuration (file overlaid with flags)
	settings = DefaultConfig()
)

var rootCmd = &cobra.Command{
	Use:   "ancstat",
	Short: "Apple Notification Center Service analyzer",
	Long: `ancstat - A CLI tool for decoding, monitoring and driving ANCS traffic.

ANCS (Apple Notification Center Service) is the BLE GATT service an iOS
device uses to publish its notifications. ancstat talks to a BLE bridge that
forwards the three ANCS characteristics (Notification Source, Control Point
and Data Source) over a framed serial or WebSocket link.

Connection modes:
  Serial:    --port /dev/ttyACM0 [--baud 115200]
  WebSocket: --url ws://host/path [--username user]

Settings may also come from a TOML file (--config, default
$XDG_CONFIG_HOME/ancstat/config.toml). Flags given on the command line win
over the file.

For WebSocket authentication, the password is read from the ANCSTAT_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	PersistentPreRunE: applySettings,
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/ancstat/config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to this file instead of stderr")
}

// applySettings loads the config file and overlays the flags the user set
// explicitly
func applySettings(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Port = portName
	}
	if flags.Changed("baud") {
		cfg.Baud = baudRate
	}
	if flags.Changed("url") {
		cfg.URL = wsURL
	}
	if flags.Changed("username") {
		cfg.Username = wsUsername
	}
	if flags.Changed("no-ssl-verify") {
		cfg.NoSSLVerify = wsNoSSLVerify
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("log-file") {
		cfg.LogFile = logFile
	}

	settings = cfg

	return configureLogging(cfg)
}

// configureLogging sets the logrus level and destination
func configureLogging(cfg Config) error {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})

	if cfg.LogFile == "" {
		log.SetOutput(os.Stderr)
		return nil
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %v", cfg.LogFile, err)
	}
	log.SetOutput(f)
	return nil
}

// silenceStderrLogging stops log output from drawing over a full-screen TUI.
// Logs still reach --log-file when one is set.
func silenceStderrLogging() {
	if settings.LogFile == "" {
		log.SetOutput(io.Discard)
	}
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
