package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/seekerhut/ticketrag/internal/model"
	apperr "github.com/seekerhut/ticketrag/internal/pkg/errors"
	"github.com/seekerhut/ticketrag/internal/pkg/response"
	"github.com/seekerhut/ticketrag/internal/service"
)

type SearchHandler struct {
	search      *service.SearchService
	synthesizer service.Synthesizer
}

func NewSearchHandler(search *service.SearchService, synthesizer service.Synthesizer) *SearchHandler {
	return &SearchHandler{search: search, synthesizer: synthesizer}
}

type searchRequest struct {
	Query          string `json:"query"`
	NResults       int    `json:"n_results"`
	UseLLM         bool   `json:"use_llm"`
	FilterStatus   string `json:"filter_status"`
	FilterPriority string `json:"filter_priority"`
	FilterAssignee string `json:"filter_assignee"`
}

type searchResponse struct {
	Query       string              `json:"query"`
	Results     []model.TicketMatch `json:"results"`
	TotalFound  int                 `json:"total_found"`
	Answer      string              `json:"answer,omitempty"`
	AnswerError string              `json:"answer_error,omitempty"`
	ErrorCode   string              `json:"error_code,omitempty"`
}

func (h *SearchHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "validation_error", "invalid request body")
		return
	}
	matches, err := h.search.Search(c.Request.Context(), service.SearchInput{
		Query:          req.Query,
		TopK:           req.NResults,
		FilterStatus:   req.FilterStatus,
		FilterPriority: req.FilterPriority,
		FilterAssignee: req.FilterAssignee,
	})
	if err != nil {
		// The embedding backend being down degrades search to an empty
		// result set instead of an error page. Store failures stay loud.
		if errors.Is(err, apperr.ErrEmbeddingUnavailable) {
			response.Success(c, searchResponse{
				Query:     req.Query,
				Results:   []model.TicketMatch{},
				ErrorCode: "embedding_unavailable",
			})
			return
		}
		handleError(c, err)
		return
	}

	resp := searchResponse{
		Query:      req.Query,
		Results:    matches,
		TotalFound: len(matches),
	}
	if req.UseLLM {
		answer, err := h.synthesizer.Synthesize(c.Request.Context(), req.Query, matches)
		if err != nil {
			// Synthesis failure is non-fatal: the matches stay usable and
			// the answer field carries an explicit failure marker.
			resp.AnswerError = err.Error()
		} else {
			resp.Answer = answer
		}
	}
	response.Success(c, resp)
}

func (h *SearchHandler) Stats(c *gin.Context) {
	stats, err := h.search.Stats(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, stats)
}
