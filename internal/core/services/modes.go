package services

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

// ModeSpec declares a mode. Its prompt text lives in the PromptStore under
// driven.ModePromptName(Name), with optional primer and greeting prompts.
type ModeSpec struct {
	Name        string
	Title       string
	Description string

	// RequiresRetrieval makes every turn query the vector index.
	RequiresRetrieval bool

	// Primer loads driven.ModePrimerName(Name) as the assistant pre-fill.
	Primer bool

	// Greeting loads driven.ModeGreetingName(Name) as the opening message.
	Greeting bool
}

// DefaultModes returns the built-in modes.
func DefaultModes() []ModeSpec {
	return []ModeSpec{
		{
			Name:        "chef",
			Title:       "Chef Vikram",
			Description: "Indian master chef who teaches recipes and quizzes you on 'Test me'",
			Greeting:    true,
		},
		{
			Name:              "counsel",
			Title:             "Legal counsel",
			Description:       "Answers strictly from the indexed statutes with page citations",
			RequiresRetrieval: true,
		},
		{
			Name:              "clerk",
			Title:             "Drafting clerk",
			Description:       "Drafts notices, letters and clauses using the indexed statutes",
			RequiresRetrieval: true,
			Primer:            true,
		},
	}
}

// ModeRegistry resolves mode names to configurations. Prompt text is read
// from the store on every lookup, so edits apply to the next turn.
type ModeRegistry struct {
	prompts     driven.PromptStore
	defaultMode string

	mu    sync.RWMutex
	specs map[string]ModeSpec
}

// NewModeRegistry creates a registry holding specs. An empty defaultMode
// selects the first spec.
func NewModeRegistry(prompts driven.PromptStore, defaultMode string, specs ...ModeSpec) *ModeRegistry {
	r := &ModeRegistry{
		prompts: prompts,
		specs:   make(map[string]ModeSpec, len(specs)),
	}
	for _, spec := range specs {
		r.Register(spec)
	}
	if defaultMode == "" && len(specs) > 0 {
		defaultMode = specs[0].Name
	}
	r.defaultMode = defaultMode
	return r
}

// Register adds or replaces a mode.
func (r *ModeRegistry) Register(spec ModeSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs[spec.Name] = spec
}

// DefaultMode returns the name used when none is given.
func (r *ModeRegistry) DefaultMode() string {
	return r.defaultMode
}

// Names returns the registered mode names in sorted order.
func (r *ModeRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.specs))
	for name := range r.specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Mode builds the configuration of the named mode.
func (r *ModeRegistry) Mode(name string) (domain.ModeConfig, error) {
	if name == "" {
		name = r.defaultMode
	}

	r.mu.RLock()
	spec, ok := r.specs[name]
	r.mu.RUnlock()
	if !ok {
		return domain.ModeConfig{}, fmt.Errorf("%w: %q (available: %s)",
			domain.ErrUnknownMode, name, strings.Join(r.Names(), ", "))
	}

	text, err := r.prompts.Load(driven.ModePromptName(name))
	if err != nil {
		return domain.ModeConfig{}, fmt.Errorf("%w: mode %s: %w", domain.ErrConfiguration, name, err)
	}

	mode := domain.ModeConfig{
		Name:              spec.Name,
		Title:             spec.Title,
		Description:       spec.Description,
		RequiresRetrieval: spec.RequiresRetrieval,
		Template:          NewTemplate(text, spec.RequiresRetrieval),
	}

	if spec.Primer {
		if mode.Primer, err = r.prompts.Load(driven.ModePrimerName(name)); err != nil {
			return domain.ModeConfig{}, fmt.Errorf("%w: mode %s primer: %w", domain.ErrConfiguration, name, err)
		}
	}
	if spec.Greeting {
		if mode.Greeting, err = r.prompts.Load(driven.ModeGreetingName(name)); err != nil {
			return domain.ModeConfig{}, fmt.Errorf("%w: mode %s greeting: %w", domain.ErrConfiguration, name, err)
		}
	}
	return mode, nil
}

// Modes returns every mode that can be built, sorted by name.
func (r *ModeRegistry) Modes() []domain.ModeConfig {
	names := r.Names()
	modes := make([]domain.ModeConfig, 0, len(names))
	for _, name := range names {
		if mode, err := r.Mode(name); err == nil {
			modes = append(modes, mode)
		}
	}
	return modes
}

// NewTemplate returns a template that substitutes the context and history
// placeholders in text. When withContext is set and text has no context
// placeholder, the context is appended so it is never lost.
func NewTemplate(text string, withContext bool) domain.TemplateFunc {
	return func(in domain.PromptInput) string {
		out := text
		if withContext {
			ctx := FormatContext(in.Retrieved)
			if strings.Contains(out, driven.PlaceholderContext) {
				out = strings.ReplaceAll(out, driven.PlaceholderContext, ctx)
			} else {
				out += "\n\nContext:\n" + ctx
			}
		}
		if strings.Contains(out, driven.PlaceholderHistory) {
			out = strings.ReplaceAll(out, driven.PlaceholderHistory, FormatHistory(in.History))
		}
		return out
	}
}

// FormatContext renders retrieved chunks for a system prompt, or the
// no-context marker when there are none.
func FormatContext(result domain.RetrievalResult) string {
	if result.IsEmpty() {
		return domain.NoContextMarker
	}
	var b strings.Builder
	for i, hit := range result.Hits {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[page %d]\n%s", hit.Chunk.Page, strings.TrimSpace(hit.Chunk.Text))
	}
	return b.String()
}

// FormatHistory renders messages as a plain transcript.
func FormatHistory(history []domain.Message) string {
	var b strings.Builder
	for i, msg := range history {
		if i > 0 {
			b.WriteString("\n")
		}
		switch msg.Role {
		case domain.RoleUser:
			b.WriteString("User: ")
		case domain.RoleAssistant:
			b.WriteString("Assistant: ")
		default:
			b.WriteString(msg.Role.String() + ": ")
		}
		b.WriteString(msg.Content)
	}
	return b.String()
}
