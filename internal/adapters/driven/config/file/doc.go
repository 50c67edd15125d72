// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data under the lexrag config directory (~/.lexrag).
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage
//   - PromptStore: editable mode prompt templates with hot reload
package file
