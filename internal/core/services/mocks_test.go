package services

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"

	"github.com/custodia-labs/lexrag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

const testDims = 512

// bagOfWords hashes each word of text into a fixed-size count vector. Texts
// sharing words point the same way; the last dimension keeps vectors non-zero.
func bagOfWords(text string) []float32 {
	vec := make([]float32, testDims)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[h.Sum32()%(testDims-1)]++
	}
	vec[testDims-1] = 0.01
	return vec
}

// mockEmbedder embeds with bagOfWords. failOnBatch makes the n-th EmbedBatch
// call (1-based) fail with err.
type mockEmbedder struct {
	mu          sync.Mutex
	batchCalls  int
	embedCalls  int
	failOnBatch int
	err         error
	embedErr    error

	// started and release, when set, pause every EmbedBatch call.
	started chan struct{}
	release chan struct{}
}

var _ driven.EmbeddingService = (*mockEmbedder)(nil)

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.embedCalls++
	err := m.embedErr
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return bagOfWords(text), nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if m.started != nil {
		m.started <- struct{}{}
		select {
		case <-m.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	m.batchCalls++
	call := m.batchCalls
	m.mu.Unlock()

	if m.failOnBatch > 0 && call == m.failOnBatch {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = bagOfWords(t)
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int              { return testDims }
func (m *mockEmbedder) ModelName() string            { return "mock-embed" }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { return nil }

// failRun restarts the batch count so the n-th batch of the next run fails.
func (m *mockEmbedder) failRun(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchCalls = 0
	m.failOnBatch = n
	m.err = err
}

func (m *mockEmbedder) calls() (batch, single int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batchCalls, m.embedCalls
}

// mockLLM records every chain it is sent and replies with reply or err.
type mockLLM struct {
	mu     sync.Mutex
	chains [][]domain.Message
	reply  string
	err    error

	// onChat, when set, runs inside Chat before replying.
	onChat func()
}

var _ driven.LLMService = (*mockLLM)(nil)

func (m *mockLLM) Chat(_ context.Context, messages []domain.Message, _ driven.ChatOptions) (string, error) {
	if m.onChat != nil {
		m.onChat()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	chain := make([]domain.Message, len(messages))
	copy(chain, messages)
	m.chains = append(m.chains, chain)
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

func (m *mockLLM) ModelName() string            { return "mock-chat" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { return nil }

func (m *mockLLM) lastChain() []domain.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.chains) == 0 {
		return nil
	}
	return m.chains[len(m.chains)-1]
}

func (m *mockLLM) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.chains)
}

// recordingIndex wraps the in-memory index and records inserted chunks.
type recordingIndex struct {
	*memory.VectorIndex

	mu       sync.Mutex
	inserted []domain.Chunk
	inserts  int
	countErr error
}

func newRecordingIndex() *recordingIndex {
	return &recordingIndex{VectorIndex: memory.NewVectorIndex("mock-embed", testDims)}
}

func (r *recordingIndex) Insert(ctx context.Context, entries []domain.IndexEntry) error {
	if err := r.VectorIndex.Insert(ctx, entries); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inserts++
	for _, e := range entries {
		r.inserted = append(r.inserted, e.Chunk)
	}
	return nil
}

func (r *recordingIndex) CountSource(ctx context.Context, source string) (int, error) {
	if r.countErr != nil {
		return 0, r.countErr
	}
	return r.VectorIndex.CountSource(ctx, source)
}

func (r *recordingIndex) sources() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	for _, c := range r.inserted {
		if !seen[c.Source] {
			seen[c.Source] = true
			out = append(out, c.Source)
		}
	}
	return out
}

// mockRetriever returns a fixed result and records the state of the
// session it was called for.
type mockRetriever struct {
	result domain.RetrievalResult
	err    error
	calls  int
	onCall func()
}

func (m *mockRetriever) Retrieve(_ context.Context, query string, _ int) (domain.RetrievalResult, error) {
	m.calls++
	if m.onCall != nil {
		m.onCall()
	}
	if m.err != nil {
		return domain.RetrievalResult{}, m.err
	}
	res := m.result
	res.Query = query
	return res, nil
}

// mapPromptStore serves prompts from a map.
type mapPromptStore struct {
	mu      sync.Mutex
	prompts map[string]string
}

func (m *mapPromptStore) Load(name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prompts[name]
	if !ok {
		return "", domain.ErrNotFound
	}
	return p, nil
}

func (m *mapPromptStore) Reload() {}

func (m *mapPromptStore) set(name, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts[name] = text
}
