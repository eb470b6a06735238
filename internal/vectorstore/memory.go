package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/seekerhut/ticketrag/internal/model"
)

// MemoryStore is an in-process adapter used by tests and the no-infrastructure
// demo config. Same contract as the real backends.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]Document
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]Document)}
}

func (s *MemoryStore) EnsureReady(ctx context.Context) error {
	return nil
}

func (s *MemoryStore) Upsert(ctx context.Context, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// whole replace, never a metadata merge
	s.docs[doc.ID] = doc
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
	return nil
}

func (s *MemoryStore) Query(ctx context.Context, embedding []float32, topK int, filter map[string]string) ([]model.TicketMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]model.TicketMatch, 0, len(s.docs))
	for id, doc := range s.docs {
		if !matchesFilter(doc.Metadata, filter) {
			continue
		}
		meta := make(map[string]string, len(doc.Metadata))
		for k, v := range doc.Metadata {
			meta[k] = v
		}
		matches = append(matches, model.TicketMatch{
			TicketID: id,
			Score:    cosineSimilarity(embedding, doc.Embedding),
			Metadata: meta,
		})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].TicketID < matches[j].TicketID
	})
	if topK < len(matches) {
		matches = matches[:topK]
	}
	return matches, nil
}

func (s *MemoryStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.docs)), nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = make(map[string]Document)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func matchesFilter(meta, filter map[string]string) bool {
	for k, want := range filter {
		if meta[k] != want {
			return false
		}
	}
	return true
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
