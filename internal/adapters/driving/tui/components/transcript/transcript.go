// Package transcript renders the scrollable conversation history.
package transcript

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/lexrag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// View wraps a bubbles viewport holding the rendered history.
type View struct {
	viewport  viewport.Model
	styles    *styles.Styles
	assistant string
	messages  []domain.Message
}

// New creates a transcript. assistant labels the assistant messages.
func New(s *styles.Styles, assistant string) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if assistant == "" {
		assistant = "Assistant"
	}
	return &View{
		viewport:  viewport.New(80, 20),
		styles:    s,
		assistant: assistant,
	}
}

// SetSize resizes the viewport and re-wraps the content.
func (v *View) SetSize(width, height int) {
	if width < 20 {
		width = 20
	}
	if height < 3 {
		height = 3
	}
	v.viewport.Width = width
	v.viewport.Height = height
	v.render()
}

// SetAssistant changes the assistant label.
func (v *View) SetAssistant(name string) {
	if name != "" {
		v.assistant = name
		v.render()
	}
}

// SetMessages replaces the history and scrolls to the newest message.
func (v *View) SetMessages(msgs []domain.Message) {
	v.messages = append(v.messages[:0], msgs...)
	v.render()
	v.viewport.GotoBottom()
}

// Messages returns the displayed history.
func (v *View) Messages() []domain.Message {
	return v.messages
}

// Update forwards scroll messages to the viewport.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	var cmd tea.Cmd
	v.viewport, cmd = v.viewport.Update(msg)
	return v, cmd
}

// PageUp scrolls up one page.
func (v *View) PageUp() {
	v.viewport.ViewUp()
}

// PageDown scrolls down one page.
func (v *View) PageDown() {
	v.viewport.ViewDown()
}

// AtBottom reports whether the newest message is visible.
func (v *View) AtBottom() bool {
	return v.viewport.AtBottom()
}

// View renders the visible part of the transcript.
func (v *View) View() string {
	return v.viewport.View()
}

// Content returns the full rendered history.
func (v *View) Content() string {
	return v.content()
}

func (v *View) render() {
	v.viewport.SetContent(v.content())
}

func (v *View) content() string {
	if len(v.messages) == 0 {
		return v.styles.Muted.Render("No messages yet.")
	}

	body := lipgloss.NewStyle().Width(v.viewport.Width)
	blocks := make([]string, 0, len(v.messages))
	for _, m := range v.messages {
		var label string
		switch m.Role {
		case domain.RoleUser:
			label = v.styles.UserLabel.Render("You")
		case domain.RoleAssistant:
			label = v.styles.AssistantLabel.Render(v.assistant)
		default:
			continue
		}
		text := v.styles.Normal.Inherit(body).Render(strings.TrimSpace(m.Content))
		blocks = append(blocks, label+"\n"+text)
	}
	return strings.Join(blocks, "\n\n")
}
