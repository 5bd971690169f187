// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/rigflow/cancellation"
	"github.com/jeranaias/rigflow/track"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("14")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	watchStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))
)

// maxWatchLines caps the watch pane's scrollback.
const maxWatchLines = 8

// =============================================================================
// MODEL
// =============================================================================

// demoModel is the bubbletea model for the live-rebuild demo.
type demoModel struct {
	coord *Coordinator

	input   textinput.Model
	spin    spinner.Model
	typed   string
	status  string
	result  string
	failed  bool
	busy    bool
	watched []string
}

func newDemoModel() demoModel {
	ti := textinput.New()
	ti.Placeholder = "Type to trigger a debounced rebuild..."
	ti.Prompt = "> "
	ti.Focus()
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}

	return demoModel{
		input:  ti,
		spin:   sp,
		status: "idle",
	}
}

func (m demoModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m demoModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEsc:
			m.coord.CancelBuild()
			return m, nil
		}

		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		if v := m.input.Value(); v != m.typed {
			m.typed = v
			m.coord.Type(v)
		}
		return m, cmd

	case trackMsg:
		n := track.Notification(msg)
		m.status = fmt.Sprintf("%s: %s", n.Status, n.Description)
		if n.Status == track.StatusRunning {
			m.busy = true
			return m, m.spin.Tick
		}
		return m, nil

	case buildDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.failed = true
			if cancellation.IsCancellation(msg.err) {
				m.result = "build cancelled"
			} else {
				m.result = msg.err.Error()
			}
		} else {
			m.failed = false
			m.result = msg.output
		}
		return m, nil

	case watchBatchMsg:
		for _, c := range msg {
			m.watched = append(m.watched, fmt.Sprintf("%s %s", c.Kind, c.Path))
		}
		if len(m.watched) > maxWatchLines {
			m.watched = m.watched[len(m.watched)-maxWatchLines:]
		}
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m demoModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("rigflow demo"))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	if m.busy {
		b.WriteString(m.spin.View() + " " + statusStyle.Render(m.status))
	} else {
		b.WriteString(statusStyle.Render(m.status))
	}
	b.WriteString("\n")

	if m.result != "" {
		if m.failed {
			b.WriteString(errStyle.Render(m.result))
		} else {
			b.WriteString(okStyle.Render(m.result))
		}
		b.WriteString("\n")
	}

	if len(m.watched) > 0 {
		b.WriteString("\n" + statusStyle.Render("recent file changes:") + "\n")
		for _, line := range m.watched {
			b.WriteString("  " + watchStyle.Render(line) + "\n")
		}
	}

	b.WriteString("\n" + statusStyle.Render(m.coord.Summary()))
	b.WriteString("\n" + statusStyle.Render("esc: cancel build | ctrl+c: quit"))
	return b.String()
}
