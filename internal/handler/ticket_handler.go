package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/seekerhut/ticketrag/internal/model"
	"github.com/seekerhut/ticketrag/internal/pkg/response"
	"github.com/seekerhut/ticketrag/internal/repo"
	"github.com/seekerhut/ticketrag/internal/service"
)

// TicketHandler plays the host-application role: it owns ticket persistence
// and calls the sync hooks synchronously after each commit, the explicit
// replacement for framework signals.
type TicketHandler struct {
	tickets *repo.TicketRepo
	sync    *service.SyncService
}

func NewTicketHandler(tickets *repo.TicketRepo, sync *service.SyncService) *TicketHandler {
	return &TicketHandler{tickets: tickets, sync: sync}
}

type ticketRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Status      string   `json:"status"`
	Priority    string   `json:"priority"`
	CreatedBy   string   `json:"created_by"`
	AssignedTo  string   `json:"assigned_to"`
	Closed      bool     `json:"closed"`
	CCAdmins    []string `json:"cc_admins"`
	CCWatchers  []string `json:"cc_watchers"`
}

func (r *ticketRequest) toTicket() model.Ticket {
	t := model.Ticket{
		Title:       r.Title,
		Description: r.Description,
		Status:      r.Status,
		Priority:    r.Priority,
		CreatedBy:   r.CreatedBy,
		AssignedTo:  r.AssignedTo,
		CCAdmins:    r.CCAdmins,
		CCWatchers:  r.CCWatchers,
	}
	if t.Status == "" {
		t.Status = model.StatusOpen
	}
	if t.Priority == "" {
		t.Priority = model.PriorityMedium
	}
	if r.Closed || t.Status == model.StatusClosed {
		now := time.Now()
		t.Status = model.StatusClosed
		t.ClosedAt = &now
	}
	return t
}

func validateTicketRequest(t model.Ticket) (string, bool) {
	switch {
	case t.Title == "":
		return "title required", false
	case t.Description == "":
		return "description required", false
	case t.CreatedBy == "":
		return "created_by required", false
	case !model.ValidStatus(t.Status):
		return "invalid status", false
	case !model.ValidPriority(t.Priority):
		return "invalid priority", false
	}
	return "", true
}

func (h *TicketHandler) Create(c *gin.Context) {
	var req ticketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "validation_error", "invalid request body")
		return
	}
	t := req.toTicket()
	if msg, ok := validateTicketRequest(t); !ok {
		response.Error(c, http.StatusBadRequest, "validation_error", msg)
		return
	}
	if err := h.tickets.Create(c.Request.Context(), &t); err != nil {
		handleError(c, err)
		return
	}
	if err := h.sync.OnTicketCreated(c.Request.Context(), t); err != nil {
		h.reportSyncFailure(c, t.ID, err)
		return
	}
	response.Success(c, t)
}

func (h *TicketHandler) Get(c *gin.Context) {
	id, ok := ticketID(c)
	if !ok {
		return
	}
	t, err := h.tickets.Get(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, t)
}

func (h *TicketHandler) Update(c *gin.Context) {
	id, ok := ticketID(c)
	if !ok {
		return
	}
	var req ticketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "validation_error", "invalid request body")
		return
	}
	t := req.toTicket()
	t.ID = id
	if msg, ok := validateTicketRequest(t); !ok {
		response.Error(c, http.StatusBadRequest, "validation_error", msg)
		return
	}
	if err := h.tickets.Update(c.Request.Context(), &t); err != nil {
		handleError(c, err)
		return
	}
	stored, err := h.tickets.Get(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	if err := h.sync.OnTicketUpdated(c.Request.Context(), *stored); err != nil {
		h.reportSyncFailure(c, id, err)
		return
	}
	response.Success(c, stored)
}

func (h *TicketHandler) Delete(c *gin.Context) {
	id, ok := ticketID(c)
	if !ok {
		return
	}
	if err := h.tickets.Delete(c.Request.Context(), id); err != nil {
		handleError(c, err)
		return
	}
	if err := h.sync.OnTicketDeleted(c.Request.Context(), id); err != nil {
		h.reportSyncFailure(c, id, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *TicketHandler) Resync(c *gin.Context) {
	id, ok := ticketID(c)
	if !ok {
		return
	}
	if err := h.sync.SyncOne(c.Request.Context(), id); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

// The record commit already happened, so the caller must learn the index is
// stale. Recovery is a resync, not a rollback.
func (h *TicketHandler) reportSyncFailure(c *gin.Context, ticketID int64, err error) {
	logutil.GetLogger(c.Request.Context()).Error("ticket saved but index sync failed",
		zap.Int64("ticket_id", ticketID),
		zap.Error(err))
	response.Error(c, http.StatusBadGateway, "sync_failed",
		"ticket saved but index sync failed, run a resync to recover")
}

func ticketID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "validation_error", "invalid ticket id")
		return 0, false
	}
	return id, true
}
