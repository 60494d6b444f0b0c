// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// ancstat - Apple Notification Center Service Analyzer
//
// A CLI tool for decoding, monitoring and validating ANCS traffic
// forwarded by a BLE bridge over UART or WebSocket.

package main

import (
	"os"

	"github.com/Thermoquad/ancstat/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
