package job

import (
	"context"
	"fmt"

	"github.com/seekerhut/ticketrag/internal/service"
)

// ResyncJob periodically reconciles the vector index with the ticket tables.
// It is the scheduled form of the recovery mechanism: a crash between record
// commit and document upsert leaves the two out of sync until this runs.
type ResyncJob struct {
	sync *service.SyncService
}

func NewResyncJob(sync *service.SyncService) *ResyncJob {
	return &ResyncJob{sync: sync}
}

func (j *ResyncJob) Name() string {
	return "index_resync"
}

func (j *ResyncJob) Run(ctx context.Context) error {
	if j.sync == nil {
		return nil
	}
	_, failed, err := j.sync.ResyncAll(ctx, false)
	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("resync completed with %d failures", failed)
	}
	return nil
}
