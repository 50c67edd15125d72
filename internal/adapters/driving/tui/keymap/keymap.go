// Package keymap defines keybindings for the chat TUI.
package keymap

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines all keybindings for the chat screen. Printable keys are
// left to the message input, so every binding uses a control key.
type KeyMap struct {
	// Quit exits the application.
	Quit key.Binding

	// Send submits the typed message.
	Send key.Binding

	// Reset clears the conversation back to the greeting.
	Reset key.Binding

	// ScrollUp scrolls the transcript up one page.
	ScrollUp key.Binding

	// ScrollDown scrolls the transcript down one page.
	ScrollDown key.Binding

	// Cancel clears the input line.
	Cancel key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+d"),
			key.WithHelp("ctrl+c", "quit"),
		),
		Send: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		Reset: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "reset"),
		),
		ScrollUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("pgup", "scroll up"),
		),
		ScrollDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+n"),
			key.WithHelp("pgdn", "scroll down"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "clear"),
		),
	}
}

// ShortHelp returns the bindings shown in the status bar.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Send, k.Reset, k.Quit}
}

// BusyHelp returns the bindings usable while a turn is running.
func (k *KeyMap) BusyHelp() []key.Binding {
	return []key.Binding{k.ScrollUp, k.ScrollDown, k.Quit}
}

// FullHelp returns the full list of keybindings.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Send, k.Cancel, k.Reset},
		{k.ScrollUp, k.ScrollDown, k.Quit},
	}
}

// Matches checks if a key string matches a binding.
func Matches(keyStr string, binding key.Binding) bool {
	for _, k := range binding.Keys() {
		if k == keyStr {
			return true
		}
	}
	return false
}
