package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/seekerhut/ticketrag/internal/ai"
	"github.com/seekerhut/ticketrag/internal/model"
	apperr "github.com/seekerhut/ticketrag/internal/pkg/errors"
	"github.com/seekerhut/ticketrag/internal/vectorstore"
)

const (
	taskTypeDocument = "RETRIEVAL_DOCUMENT"
	taskTypeQuery    = "RETRIEVAL_QUERY"
)

// TicketSource is the read-only view of ticket persistence the sync layer
// needs. The host application owns the records; this service never mutates
// them.
type TicketSource interface {
	Get(ctx context.Context, id int64) (*model.Ticket, error)
	ListAll(ctx context.Context) ([]model.Ticket, error)
}

// SyncService keeps the vector index coherent with ticket records. The host
// calls the OnTicket* hooks synchronously after its own commit; there is no
// retry queue, so a failed hook leaves the index stale until the next resync.
type SyncService struct {
	tickets  TicketSource
	embedder ai.IEmbedder
	store    vectorstore.Store
}

func NewSyncService(tickets TicketSource, embedder ai.IEmbedder, store vectorstore.Store) *SyncService {
	return &SyncService{tickets: tickets, embedder: embedder, store: store}
}

func (s *SyncService) OnTicketCreated(ctx context.Context, t model.Ticket) error {
	return s.syncTicket(ctx, t)
}

func (s *SyncService) OnTicketUpdated(ctx context.Context, t model.Ticket) error {
	return s.syncTicket(ctx, t)
}

func (s *SyncService) OnTicketDeleted(ctx context.Context, id int64) error {
	logger := logutil.GetLogger(ctx).With(zap.Int64("ticket_id", id))
	if err := s.store.Delete(ctx, strconv.FormatInt(id, 10)); err != nil {
		logger.Error("delete ticket from index failed", zap.Error(err))
		return err
	}
	logger.Info("ticket removed from index")
	return nil
}

func (s *SyncService) syncTicket(ctx context.Context, t model.Ticket) error {
	logger := logutil.GetLogger(ctx).With(zap.Int64("ticket_id", t.ID))
	text, meta, err := FormatTicket(t)
	if err != nil {
		return err
	}
	embedding, err := s.embedder.Embed(ctx, text, taskTypeDocument)
	if err != nil {
		logger.Error("embed ticket failed", zap.Error(err))
		return fmt.Errorf("%w: %v", apperr.ErrEmbeddingUnavailable, err)
	}
	doc := vectorstore.Document{
		ID:        strconv.FormatInt(t.ID, 10),
		Text:      text,
		Embedding: embedding,
		Metadata:  meta,
	}
	if err := s.store.Upsert(ctx, doc); err != nil {
		logger.Error("upsert ticket document failed", zap.Error(err))
		return err
	}
	logger.Info("ticket synced to index")
	return nil
}

// SyncOne syncs a single ticket. Any failure is fatal here, unlike the bulk
// path.
func (s *SyncService) SyncOne(ctx context.Context, id int64) error {
	t, err := s.tickets.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.syncTicket(ctx, *t)
}

// ResyncAll walks every ticket and upserts its document. Per-item failures
// are counted and logged, never aborting the batch. With clear set, the whole
// collection is wiped first so no stale document survives a formatting
// change. Safe to run at any time, including next to live traffic: the last
// completed upsert for an id wins.
func (s *SyncService) ResyncAll(ctx context.Context, clear bool) (synced int, failed int, err error) {
	logger := logutil.GetLogger(ctx)
	if clear {
		if err := s.store.Clear(ctx); err != nil {
			return 0, 0, err
		}
		logger.Info("index cleared before resync")
	}
	tickets, err := s.tickets.ListAll(ctx)
	if err != nil {
		return 0, 0, err
	}
	for _, t := range tickets {
		if err := s.syncTicket(ctx, t); err != nil {
			failed++
			logger.Warn("resync item failed",
				zap.Int64("ticket_id", t.ID),
				zap.Error(err))
			continue
		}
		synced++
	}
	logger.Info("resync finished", zap.Int("synced", synced), zap.Int("failed", failed))
	return synced, failed, nil
}
