package vectorstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/seekerhut/ticketrag/internal/model"
	apperr "github.com/seekerhut/ticketrag/internal/pkg/errors"
)

// metadata keys that map onto dedicated columns; anything else is rejected so
// a typo in a filter never silently matches nothing.
var pgColumns = map[string]bool{
	"ticket_id": true,
	"title":     true,
	"status":    true,
	"priority":  true,
	"assignee":  true,
}

// PgvectorStore keeps ticket documents in a Postgres table with a pgvector
// embedding column. Metadata lives in discrete columns so the conjunction
// filter runs inside the same query that ranks by cosine distance.
type PgvectorStore struct {
	db        *sql.DB
	dimension int
}

func NewPgvectorStore(dsn string, dimension int) (*PgvectorStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	return &PgvectorStore{db: db, dimension: dimension}, nil
}

// NewPgvectorStoreFromDB shares an already-open connection pool, used when
// the document index lives next to the ticket tables.
func NewPgvectorStoreFromDB(db *sql.DB, dimension int) *PgvectorStore {
	return &PgvectorStore{db: db, dimension: dimension}
}

func (s *PgvectorStore) Close() error {
	return s.db.Close()
}

func (s *PgvectorStore) EnsureReady(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS ticket_documents (
			id BIGINT PRIMARY KEY,
			content TEXT NOT NULL,
			embedding vector(%d) NOT NULL,
			ticket_id TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT '',
			priority TEXT NOT NULL DEFAULT '',
			assignee TEXT NOT NULL DEFAULT '',
			mtime BIGINT NOT NULL DEFAULT 0
		)`, s.dimension),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return pgErr("ensure schema", err)
		}
	}
	return nil
}

func (s *PgvectorStore) Upsert(ctx context.Context, doc Document) error {
	const query = `
		INSERT INTO ticket_documents
			(id, content, embedding, ticket_id, title, status, priority, assignee, mtime)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, EXTRACT(EPOCH FROM now())::bigint)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			ticket_id = EXCLUDED.ticket_id,
			title = EXCLUDED.title,
			status = EXCLUDED.status,
			priority = EXCLUDED.priority,
			assignee = EXCLUDED.assignee,
			mtime = EXCLUDED.mtime
	`
	meta := doc.Metadata
	_, err := s.db.ExecContext(ctx, query,
		doc.ID,
		doc.Text,
		pgvector.NewVector(doc.Embedding),
		meta["ticket_id"],
		meta["title"],
		meta["status"],
		meta["priority"],
		meta["assignee"],
	)
	if err != nil {
		return pgErr("upsert "+doc.ID, err)
	}
	return nil
}

func (s *PgvectorStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM ticket_documents WHERE id = $1`, id); err != nil {
		return pgErr("delete "+id, err)
	}
	return nil
}

func (s *PgvectorStore) Query(ctx context.Context, embedding []float32, topK int, filter map[string]string) ([]model.TicketMatch, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT ticket_id, title, status, priority, assignee,
			1 - (embedding <=> $1) AS score
		FROM ticket_documents
	`)
	args := []interface{}{pgvector.NewVector(embedding)}
	conds := make([]string, 0, len(filter))
	for k, v := range filter {
		if !pgColumns[k] {
			return nil, fmt.Errorf("unsupported filter field %q", k)
		}
		args = append(args, v)
		conds = append(conds, fmt.Sprintf("%s = $%d", k, len(args)))
	}
	if len(conds) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	args = append(args, topK)
	sb.WriteString(fmt.Sprintf(" ORDER BY embedding <=> $1 LIMIT $%d", len(args)))

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, pgErr("query", err)
	}
	defer rows.Close()

	var matches []model.TicketMatch
	for rows.Next() {
		var ticketID, title, status, priority, assignee string
		var score float64
		if err := rows.Scan(&ticketID, &title, &status, &priority, &assignee, &score); err != nil {
			return nil, pgErr("scan", err)
		}
		matches = append(matches, model.TicketMatch{
			TicketID: ticketID,
			Score:    float32(score),
			Metadata: map[string]string{
				"ticket_id": ticketID,
				"title":     title,
				"status":    status,
				"priority":  priority,
				"assignee":  assignee,
			},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, pgErr("rows", err)
	}
	return matches, nil
}

func (s *PgvectorStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM ticket_documents`).Scan(&count); err != nil {
		return 0, pgErr("count", err)
	}
	return count, nil
}

func (s *PgvectorStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `TRUNCATE ticket_documents`); err != nil {
		return pgErr("clear", err)
	}
	return nil
}

func pgErr(op string, err error) error {
	return fmt.Errorf("%w: pgvector %s: %v", apperr.ErrStoreUnavailable, op, err)
}
