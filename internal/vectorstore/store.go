// Package vectorstore holds the index adapters. All implementations share the
// same contract: whole-replace upsert keyed by ticket id, no-op delete on a
// missing id, and exact-match conjunction filters applied before ranking.
package vectorstore

import (
	"context"
	"fmt"

	"github.com/seekerhut/ticketrag/internal/model"
)

// Document is the derived projection of a ticket that actually gets indexed.
// At most one document exists per ticket id at any time.
type Document struct {
	ID        string
	Text      string
	Embedding []float32
	Metadata  map[string]string
}

type Store interface {
	// EnsureReady prepares the backing collection/table for vectors of the
	// given dimension. Idempotent.
	EnsureReady(ctx context.Context) error
	// Upsert inserts or fully replaces the document with the same id,
	// including its metadata. No partial merge.
	Upsert(ctx context.Context, doc Document) error
	// Delete removes the document. Deleting an id that was never indexed is
	// not an error.
	Delete(ctx context.Context, id string) error
	// Query returns at most topK matches ordered by descending score.
	// Candidates failing any filter entry are excluded before ranking.
	Query(ctx context.Context, embedding []float32, topK int, filter map[string]string) ([]model.TicketMatch, error)
	Count(ctx context.Context) (int64, error)
	// Clear wipes every document, guaranteeing no stale leftovers survive a
	// formatting or schema change.
	Clear(ctx context.Context) error
	Close() error
}

type Config struct {
	Type       string `json:"type"`
	Addr       string `json:"addr"`
	Collection string `json:"collection"`
	Dimension  int    `json:"dimension"`
	DSN        string `json:"dsn"`
}

// New selects an adapter by explicit configuration, never by feature
// detection.
func New(cfg Config) (Store, error) {
	switch cfg.Type {
	case "qdrant":
		return NewQdrantStore(cfg.Addr, cfg.Collection, cfg.Dimension)
	case "pgvector":
		return NewPgvectorStore(cfg.DSN, cfg.Dimension)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("vector_store.type must be qdrant, pgvector or memory, got %q", cfg.Type)
	}
}
