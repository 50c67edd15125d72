// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - DocumentLoader / LoaderRegistry: Turns files into pages of text
//   - Chunker: Splits pages into overlapping chunks
//   - EmbeddingService: Turns text into vectors (Ollama, OpenAI-compatible)
//   - VectorIndex: Persisted kNN store keyed by embedding model (SQLite)
//   - LLMService: Chat completion (Ollama, OpenAI-compatible)
//   - ConfigStore: Application configuration (TOML)
//
// # Optional Interfaces
//
//   - PromptStore: User-editable mode templates. Without it, embedded
//     defaults are used.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or loader package
package driven
