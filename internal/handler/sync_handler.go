package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/seekerhut/ticketrag/internal/pkg/response"
	"github.com/seekerhut/ticketrag/internal/service"
)

type SyncHandler struct {
	sync *service.SyncService
}

func NewSyncHandler(sync *service.SyncService) *SyncHandler {
	return &SyncHandler{sync: sync}
}

type syncRequest struct {
	TicketID int64 `json:"ticket_id"`
	Clear    bool  `json:"clear"`
}

type syncResult struct {
	Status string `json:"status"`
	Synced int    `json:"synced"`
	Failed int    `json:"failed"`
}

func (h *SyncHandler) Trigger(c *gin.Context) {
	var req syncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "validation_error", "invalid request body")
		return
	}
	if req.TicketID > 0 {
		if err := h.sync.SyncOne(c.Request.Context(), req.TicketID); err != nil {
			handleError(c, err)
			return
		}
		response.Success(c, syncResult{Status: "completed", Synced: 1})
		return
	}
	synced, failed, err := h.sync.ResyncAll(c.Request.Context(), req.Clear)
	if err != nil {
		handleError(c, err)
		return
	}
	status := "completed"
	if failed > 0 {
		status = "completed_with_failures"
	}
	response.Success(c, syncResult{Status: status, Synced: synced, Failed: failed})
}
