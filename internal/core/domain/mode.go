package domain

// NoContextMarker is rendered into system prompts when retrieval found nothing.
// Mode templates decide how to react to it.
const NoContextMarker = "[NO MATCHING CONTEXT]"

// PromptInput is everything a mode template may look at.
type PromptInput struct {
	// Retrieved holds the chunks found for the current user message.
	Retrieved RetrievalResult

	// History is the conversation so far, including the current user message.
	History []Message
}

// TemplateFunc renders a system prompt. It must be pure: the same input
// always yields the same prompt.
type TemplateFunc func(in PromptInput) string

// ModeConfig is a named persona. Modes differ only in their system prompt,
// optional primer and whether they consult the vector index.
type ModeConfig struct {
	// Name is the identifier used on the command line and in config.
	Name string

	// Title is a short human-readable label.
	Title string

	// Description explains the mode's behaviour.
	Description string

	// Template renders the per-turn system prompt.
	Template TemplateFunc

	// Primer, when set, is sent as a trailing assistant message that the
	// model continues. The stored reply is Primer followed by the completion.
	Primer string

	// RequiresRetrieval makes every turn query the vector index first.
	RequiresRetrieval bool

	// Greeting is the opening assistant message of a new session.
	Greeting string
}

// HasPrimer returns true if the mode pre-seeds the assistant turn.
func (m ModeConfig) HasPrimer() bool {
	return m.Primer != ""
}

// SystemPrompt renders the mode template, or returns an empty prompt when
// the mode has no template.
func (m ModeConfig) SystemPrompt(in PromptInput) string {
	if m.Template == nil {
		return ""
	}
	return m.Template(in)
}
