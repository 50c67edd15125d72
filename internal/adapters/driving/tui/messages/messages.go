// Package messages defines Bubbletea message types for the chat TUI.
// Messages represent events that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
)

// TurnCompleted carries the outcome of one chat turn back to the model.
type TurnCompleted struct {
	Input  string
	Result *driving.TurnResult
	Err    error
}

// SessionReset signals the conversation was cleared.
type SessionReset struct {
	Err error
}

// PromptReloaded signals that a prompt file changed on disk.
type PromptReloaded struct {
	Name string
}

// ErrorOccurred signals that an error happened outside a turn.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
