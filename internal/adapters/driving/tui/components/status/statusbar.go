// Package status provides the status bar of the chat TUI.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/lexrag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/lexrag/internal/adapters/driving/tui/styles"
)

// State represents the current turn state for display.
type State string

const (
	StateReady      State = "ready"
	StateRetrieving State = "retrieving"
	StateGenerating State = "generating"
	StateError      State = "error"
)

// Busy reports whether a turn is running.
func (s State) Busy() bool {
	return s == StateRetrieving || s == StateGenerating
}

// Bar displays the mode, turn status and keybinding hints.
type Bar struct {
	styles   *styles.Styles
	keymap   *keymap.KeyMap
	state    State
	mode     string
	message  string
	spinner  string
	contexts int
	width    int
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &Bar{
		styles: s,
		keymap: km,
		state:  StateReady,
		width:  80,
	}
}

// Init initialises the status bar.
func (s *Bar) Init() tea.Cmd {
	return nil
}

// Update handles status bar messages.
func (s *Bar) Update(msg tea.Msg) (*Bar, tea.Cmd) {
	// Bar is passive, updated via Set methods
	return s, nil
}

// View renders the status bar.
func (s *Bar) View() string {
	left := s.renderLeft()
	right := s.renderRight()

	padding := s.width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		padding = 1
	}

	return s.styles.StatusBar.Width(s.width).Render(
		left + strings.Repeat(" ", padding) + right,
	)
}

func (s *Bar) renderLeft() string {
	var prefix string
	if s.mode != "" {
		prefix = s.styles.AssistantLabel.Render(s.mode) + " "
	}

	switch s.state {
	case StateRetrieving:
		return prefix + s.styles.Muted.Render(strings.TrimSpace(s.spinner+" Retrieving context..."))
	case StateGenerating:
		return prefix + s.styles.Muted.Render(strings.TrimSpace(s.spinner+" Thinking..."))
	case StateError:
		if s.message != "" {
			return prefix + s.styles.Error.Render(fmt.Sprintf("Error: %s", s.message))
		}
		return prefix + s.styles.Error.Render("Error")
	case StateReady:
	}

	if s.message != "" {
		return prefix + s.styles.Normal.Render(s.message)
	}
	if s.contexts > 0 {
		return prefix + s.styles.Normal.Render(fmt.Sprintf("%d context chunks", s.contexts))
	}
	return prefix + s.styles.Muted.Render("Ready")
}

func (s *Bar) renderRight() string {
	var bindings []key.Binding
	if s.state.Busy() {
		bindings = s.keymap.BusyHelp()
	} else {
		bindings = s.keymap.ShortHelp()
	}

	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return s.styles.Muted.Render(strings.Join(hints, " | "))
}

// SetState sets the current state.
func (s *Bar) SetState(state State) {
	s.state = state
}

// State returns the current state.
func (s *Bar) State() State {
	return s.state
}

// SetMode sets the mode label shown on the left.
func (s *Bar) SetMode(mode string) {
	s.mode = mode
}

// Mode returns the mode label.
func (s *Bar) Mode() string {
	return s.mode
}

// SetMessage sets a custom message.
func (s *Bar) SetMessage(message string) {
	s.message = message
}

// Message returns the current message.
func (s *Bar) Message() string {
	return s.message
}

// SetSpinner sets the spinner frame drawn while busy.
func (s *Bar) SetSpinner(frame string) {
	s.spinner = frame
}

// SetContextCount sets how many chunks backed the last reply.
func (s *Bar) SetContextCount(count int) {
	s.contexts = count
}

// ContextCount returns the chunk count of the last reply.
func (s *Bar) ContextCount() int {
	return s.contexts
}

// SetWidth sets the status bar width.
func (s *Bar) SetWidth(width int) {
	s.width = width
}

// Width returns the current width.
func (s *Bar) Width() int {
	return s.width
}

// Clear resets the status bar to the ready state. The mode label is kept.
func (s *Bar) Clear() {
	s.state = StateReady
	s.message = ""
	s.spinner = ""
	s.contexts = 0
}
