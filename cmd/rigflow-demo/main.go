// rigflow demo - a live-rebuild TUI exercising the coordination primitives.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// Global program reference for async message delivery
var (
	programRef *tea.Program
	programMu  sync.Mutex
)

// send delivers a message into the running program, if any.
func send(msg tea.Msg) {
	programMu.Lock()
	p := programRef
	programMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func main() {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	coord, err := NewCoordinator(cfg, send)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error wiring coordinator: %v\n", err)
		os.Exit(1)
	}
	defer coord.Dispose()

	m := newDemoModel()
	m.coord = coord

	p := tea.NewProgram(m, tea.WithAltScreen())

	programMu.Lock()
	programRef = p
	programMu.Unlock()

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running demo: %v\n", err)
		os.Exit(1)
	}
}
