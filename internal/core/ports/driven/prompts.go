package driven

// PromptStore provides access to mode prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return the
	// embedded default or an error when there is none.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	// This is useful when prompts may have been edited on disk.
	Reload()
}

// ModePromptName returns the prompt name holding a mode's system template.
func ModePromptName(mode string) string {
	return "mode_" + mode
}

// Placeholders substituted into mode templates.
const (
	// PlaceholderContext is replaced by the retrieved chunks, or the
	// no-context marker when nothing was retrieved.
	PlaceholderContext = "{{context}}"

	// PlaceholderHistory is replaced by a transcript of earlier turns.
	PlaceholderHistory = "{{history}}"
)

// ModePrimerName returns the prompt name holding a mode's primer.
func ModePrimerName(mode string) string {
	return ModePromptName(mode) + "_primer"
}

// ModeGreetingName returns the prompt name holding a mode's greeting.
func ModeGreetingName(mode string) string {
	return ModePromptName(mode) + "_greeting"
}
