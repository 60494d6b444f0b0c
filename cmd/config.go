// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/Thermoquad/ancstat/pkg/ancs"
	log "github.com/sirupsen/logrus"
)

// Config holds the settings shared by all commands
type Config struct {
	Port        string
	Baud        int
	URL         string
	Username    string
	NoSSLVerify bool

	LogLevel string
	LogFile  string

	// Max lengths requested for the sized attributes when fetching
	// notification details. 0 means "no limit".
	TitleMaxLength    uint16
	SubtitleMaxLength uint16
	MessageMaxLength  uint16

	RequestTimeout time.Duration
}

// DefaultConfig returns the settings used when neither the config file nor
// a flag provides a value
func DefaultConfig() Config {
	return Config{
		Baud:              115200,
		LogLevel:          "info",
		TitleMaxLength:    64,
		SubtitleMaxLength: 64,
		MessageMaxLength:  256,
		RequestTimeout:    5 * time.Second,
	}
}

// config.toml key mapping
type fileConfig struct {
	Port                  string `toml:"port"`
	Baud                  int    `toml:"baud"`
	URL                   string `toml:"url"`
	Username              string `toml:"username"`
	NoSSLVerify           bool   `toml:"no_ssl_verify"`
	LogLevel              string `toml:"log_level"`
	LogFile               string `toml:"log_file"`
	TitleMaxLength        int64  `toml:"title_max_length"`
	SubtitleMaxLength     int64  `toml:"subtitle_max_length"`
	MessageMaxLength      int64  `toml:"message_max_length"`
	RequestTimeoutSeconds int64  `toml:"request_timeout_seconds"`
}

// defaultConfigPath returns $XDG_CONFIG_HOME/ancstat/config.toml, falling
// back to ~/.config/ancstat/config.toml
func defaultConfigPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "ancstat", "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "ancstat", "config.toml")
}

// resolveConfig loads the config file at path. An empty path means the
// default location, which is allowed to be missing.
func resolveConfig(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath()
		if path == "" {
			return DefaultConfig(), nil
		}
	}

	cfg, err := loadConfig(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return Config{}, err
	}
	log.WithField("path", path).Debug("loaded config")
	return cfg, nil
}

// loadConfig decodes a TOML config file and overlays the keys it defines
// onto DefaultConfig()
func loadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load ancstat config: %w", err)
	}

	if meta.IsDefined("port") {
		cfg.Port = strings.TrimSpace(raw.Port)
	}
	if meta.IsDefined("baud") {
		if raw.Baud <= 0 {
			return Config{}, fmt.Errorf("load ancstat config: baud must be positive, got %d", raw.Baud)
		}
		cfg.Baud = raw.Baud
	}
	if meta.IsDefined("url") {
		cfg.URL = strings.TrimSpace(raw.URL)
	}
	if meta.IsDefined("username") {
		cfg.Username = strings.TrimSpace(raw.Username)
	}
	if meta.IsDefined("no_ssl_verify") {
		cfg.NoSSLVerify = raw.NoSSLVerify
	}
	if meta.IsDefined("log_level") {
		level := strings.TrimSpace(raw.LogLevel)
		if _, err := log.ParseLevel(level); err != nil {
			return Config{}, fmt.Errorf("load ancstat config: %w", err)
		}
		cfg.LogLevel = level
	}
	if meta.IsDefined("log_file") {
		cfg.LogFile = strings.TrimSpace(raw.LogFile)
	}

	lengths := []struct {
		key string
		raw int64
		dst *uint16
	}{
		{"title_max_length", raw.TitleMaxLength, &cfg.TitleMaxLength},
		{"subtitle_max_length", raw.SubtitleMaxLength, &cfg.SubtitleMaxLength},
		{"message_max_length", raw.MessageMaxLength, &cfg.MessageMaxLength},
	}
	for _, l := range lengths {
		if !meta.IsDefined(l.key) {
			continue
		}
		if l.raw < 0 || l.raw > ancs.MaxAttributeLength {
			return Config{}, fmt.Errorf("load ancstat config: %s must be between 0 and %d, got %d",
				l.key, ancs.MaxAttributeLength, l.raw)
		}
		*l.dst = uint16(l.raw)
	}

	if meta.IsDefined("request_timeout_seconds") {
		if raw.RequestTimeoutSeconds <= 0 {
			return Config{}, fmt.Errorf("load ancstat config: request_timeout_seconds must be positive, got %d",
				raw.RequestTimeoutSeconds)
		}
		cfg.RequestTimeout = time.Duration(raw.RequestTimeoutSeconds) * time.Second
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		log.WithField("keys", undecoded).Warn("ignoring unknown config keys")
	}

	return cfg, nil
}
