package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/seekerhut/ticketrag/internal/model"
	apperr "github.com/seekerhut/ticketrag/internal/pkg/errors"
	"github.com/seekerhut/ticketrag/internal/vectorstore"
)

// fakeEmbedder derives a tiny deterministic vector from the text so distinct
// inputs land at distinct points.
type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.fail {
		return nil, fmt.Errorf("embedding backend down")
	}
	var sum float32
	for _, r := range text {
		sum += float32(r % 97)
	}
	return []float32{sum, float32(len(text)), 1}, nil
}

func (f *fakeEmbedder) ModelName() string {
	return "fake-embed"
}

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeTicketSource struct {
	tickets map[int64]model.Ticket
}

func (f *fakeTicketSource) Get(ctx context.Context, id int64) (*model.Ticket, error) {
	t, ok := f.tickets[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &t, nil
}

func (f *fakeTicketSource) ListAll(ctx context.Context) ([]model.Ticket, error) {
	out := make([]model.Ticket, 0, len(f.tickets))
	for _, t := range f.tickets {
		out = append(out, t)
	}
	return out, nil
}

// countingStore wraps a memory store and records how often Query runs, so
// tests can tell a cache hit from a recomputation.
type countingStore struct {
	vectorstore.Store
	mu      sync.Mutex
	queries int
}

func newCountingStore() *countingStore {
	return &countingStore{Store: vectorstore.NewMemoryStore()}
}

func (s *countingStore) Query(ctx context.Context, embedding []float32, topK int, filter map[string]string) ([]model.TicketMatch, error) {
	s.mu.Lock()
	s.queries++
	s.mu.Unlock()
	return s.Store.Query(ctx, embedding, topK, filter)
}

func (s *countingStore) queryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries
}

// failStore reports every operation as a backend outage.
type failStore struct{}

func (failStore) EnsureReady(ctx context.Context) error { return apperr.ErrStoreUnavailable }
func (failStore) Upsert(ctx context.Context, doc vectorstore.Document) error {
	return apperr.ErrStoreUnavailable
}
func (failStore) Delete(ctx context.Context, id string) error { return apperr.ErrStoreUnavailable }
func (failStore) Query(ctx context.Context, embedding []float32, topK int, filter map[string]string) ([]model.TicketMatch, error) {
	return nil, apperr.ErrStoreUnavailable
}
func (failStore) Count(ctx context.Context) (int64, error) { return 0, apperr.ErrStoreUnavailable }
func (failStore) Clear(ctx context.Context) error          { return apperr.ErrStoreUnavailable }
func (failStore) Close() error                             { return nil }

type failingGenerator struct{}

func (failingGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return "", fmt.Errorf("model endpoint refused connection")
}

type staticGenerator struct {
	answer string
	prompt string
}

func (g *staticGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.prompt = prompt
	return g.answer, nil
}
