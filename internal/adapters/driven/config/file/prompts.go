package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/logger"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// Prompt names beyond the per-mode system templates.
const (
	// PromptClerkPrimer is the assistant turn the clerk mode pre-seeds.
	PromptClerkPrimer = "mode_clerk_primer"

	// PromptChefGreeting opens every chef session.
	PromptChefGreeting = "mode_chef_greeting"
)

// PromptStore loads mode prompts from user-editable files on disk.
// Prompts are loaded from a configurable directory with fallback to embedded defaults.
//
// The store uses lazy initialisation - files are only created when first accessed,
// not in the constructor. This makes testing easier and avoids unexpected I/O.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]string
	initOnce  sync.Once
	initErr   error
}

// defaultPrompts contains embedded default prompts.
// These are used when user files don't exist and as the initial content for new files.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var defaultPrompts = map[string]string{
	driven.ModePromptName("chef"): `You are Chef Vikram, a world-renowned Indian Master Chef.

MODE 1: TEACHING. When the user asks for a recipe, be patient, kind, and use simple terms.

MODE 2: TESTING. When the user says 'Test me', FOLLOW THESE STEPS:
1. Do NOT roast them yet.
2. ASK them a specific, difficult question about the recipe you just taught (e.g., "How many onions did I say?").
3. WAIT for their answer.
4. IF they answer WRONG: Roast them mercilessly. Tell them to get out.
5. IF they answer RIGHT: Grudgingly admit they are correct, but say it was "luck."

Stay in character.`,

	PromptChefGreeting: `I am Chef Vikram. Ask me for a recipe, or dare to say 'Test me'.`,

	driven.ModePromptName("counsel"): `You are a legal research assistant for Indian labour law. You answer ONLY from the statute excerpts below.

Rules:
1. Every statement must cite the page it comes from, written as [page N].
2. Quote the statute wording when it matters. Do not paraphrase section numbers.
3. Never use outside knowledge, case law, or assumptions.
4. If the excerpts do not answer the question, say: "The indexed documents do not answer this question." and stop.
5. If the excerpts below read [NO MATCHING CONTEXT], nothing relevant was found: reply only with "I cannot answer that from the indexed documents."

Statute excerpts:
{{context}}`,

	driven.ModePromptName("clerk"): `You are a drafting clerk at a labour-law practice. You turn instructions into finished documents: notices, letters, settlement terms, and clauses.

Rules:
1. Always produce the full draft the user asks for. Do not lecture, hedge, or add disclaimers.
2. Use the statute excerpts below for correct section references and required wording.
3. Where a fact is missing (names, dates, amounts), insert a clearly marked placeholder such as [EMPLOYEE NAME].
4. If the excerpts read [NO MATCHING CONTEXT], draft from general practice and mark every statutory reference as [VERIFY].

Statute excerpts:
{{context}}`,

	PromptClerkPrimer: `Certainly. Here is the draft:

`,
}

// DefaultPrompt returns the embedded default for name.
func DefaultPrompt(name string) (string, bool) {
	p, ok := defaultPrompts[name]
	return p, ok
}

// DefaultPromptDir returns ~/.lexrag/prompts.
func DefaultPromptDir() (string, error) {
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(dir, "prompts"), nil
}

// NewPromptStore creates a new file-based prompt store.
// If promptDir is empty, defaults to ~/.lexrag/prompts/.
//
// The constructor does not perform any I/O - directory creation and
// file writes happen lazily on first Load() call.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		dir, err := DefaultPromptDir()
		if err != nil {
			return nil, err
		}
		promptDir = dir
	}

	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]string),
	}, nil
}

// Load returns the prompt template for the given name.
// On first call, initialises the prompt directory and creates default files.
// Returns cached value if available, otherwise loads from file.
// Falls back to embedded default if file doesn't exist.
func (s *PromptStore) Load(name string) (string, error) {
	// Ensure directory and defaults exist (lazy init)
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		// Fall back to embedded defaults if init failed
		if prompt, ok := defaultPrompts[name]; ok {
			return prompt, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.initErr)
	}

	// Check cache first (read lock)
	s.mu.RLock()
	if prompt, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return prompt, nil
	}
	s.mu.RUnlock()

	// Load from file (no lock held during I/O)
	prompt, err := s.loadFromFile(name)
	if err != nil {
		// Fall back to embedded default
		if defaultPrompt, ok := defaultPrompts[name]; ok {
			return defaultPrompt, nil
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}

	// Cache the result (write lock)
	// Use double-check pattern to avoid overwriting concurrent loads
	s.mu.Lock()
	if _, ok := s.cache[name]; !ok {
		s.cache[name] = prompt
	} else {
		// Another goroutine loaded it first, use their value
		prompt = s.cache[name]
	}
	s.mu.Unlock()

	return prompt, nil
}

// Reload clears the prompt cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

// Watch reloads the cache whenever a prompt file changes, until ctx is done.
// onChange, if not nil, is called after each reload.
func (s *PromptStore) Watch(ctx context.Context, onChange func(name string)) error {
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		return s.initErr
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create prompt watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.promptDir); err != nil {
		return fmt.Errorf("watch %s: %w", s.promptDir, err)
	}
	logger.Debug("watching prompts in %s", s.promptDir)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Ext(event.Name) != ".txt" {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			name := strings.TrimSuffix(filepath.Base(event.Name), ".txt")
			s.Reload()
			logger.Debug("prompt %s changed, reloaded", name)
			if onChange != nil {
				onChange(name)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("prompt watcher: %v", err)
		}
	}
}

// initialise creates the prompt directory and default files.
// Called once via sync.Once on first Load().
func (s *PromptStore) initialise() {
	// Create directory
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	// Create default prompt files (only if they don't exist)
	for name, content := range defaultPrompts {
		path := filepath.Join(s.promptDir, name+".txt")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				s.initErr = fmt.Errorf("create default prompt %q: %w", name, err)
				return
			}
		}
	}

	// Create README
	if err := s.createReadme(); err != nil {
		s.initErr = err
	}
}

// loadFromFile reads a prompt from disk. Primers keep their trailing
// whitespace because it is part of the text sent to the model.
func (s *PromptStore) loadFromFile(name string) (string, error) {
	path := filepath.Join(s.promptDir, name+".txt")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if strings.HasSuffix(name, "_primer") {
		return strings.TrimLeft(string(data), " \t\r\n"), nil
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", errors.New("prompt file is empty")
	}
	return text, nil
}

// createReadme writes a README file explaining the prompts directory.
func (s *PromptStore) createReadme() error {
	path := filepath.Join(s.promptDir, "README.md")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil // Already exists or stat error (ignore)
	}

	content := `# lexrag Prompts

This directory contains the system prompts of each chat mode.

## Files

- ` + "`mode_chef.txt`" + ` - Chef Vikram persona (teaching and "Test me" modes)
- ` + "`mode_chef_greeting.txt`" + ` - First message of every chef session
- ` + "`mode_counsel.txt`" + ` - Strict citation-only legal assistant
- ` + "`mode_clerk.txt`" + ` - Drafting clerk
- ` + "`mode_clerk_primer.txt`" + ` - Opening words of every clerk reply

## Customisation

Edit any file to change a mode. Open chat sessions pick up changes on the
next turn. Delete a file to restore its default on next start.

## Placeholders

- ` + "`{{context}}`" + ` - Retrieved excerpts, or [NO MATCHING CONTEXT] when nothing matched
- ` + "`{{history}}`" + ` - Transcript of the conversation so far

Modes that use retrieval need ` + "`{{context}}`" + ` somewhere in the text. If it
is missing, the excerpts are appended at the end.
`
	return os.WriteFile(path, []byte(content), 0600)
}
