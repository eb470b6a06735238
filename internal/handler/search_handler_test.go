package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seekerhut/ticketrag/internal/model"
	"github.com/seekerhut/ticketrag/internal/service"
	"github.com/seekerhut/ticketrag/internal/vectorstore"
)

type stubEmbedder struct {
	fail bool
}

func (s stubEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	if s.fail {
		return nil, fmt.Errorf("embedding backend down")
	}
	var sum float32
	for _, r := range text {
		sum += float32(r % 97)
	}
	return []float32{sum, float32(len(text)), 1}, nil
}

func (s stubEmbedder) ModelName() string { return "stub-embed" }

type stubSynthesizer struct {
	answer string
	err    error
}

func (s stubSynthesizer) Synthesize(ctx context.Context, query string, matches []model.TicketMatch) (string, error) {
	return s.answer, s.err
}

func newSearchRouter(t *testing.T, embedder stubEmbedder, store vectorstore.Store, synth service.Synthesizer) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	search := service.NewSearchService(embedder, store, service.SearchConfig{Collection: "tickets"})
	h := NewSearchHandler(search, synth)
	engine := gin.New()
	engine.POST("/api/v1/search", h.Search)
	engine.GET("/api/v1/search/stats", h.Stats)
	return engine
}

func seedTickets(t *testing.T, store vectorstore.Store, titles ...string) {
	t.Helper()
	sync := service.NewSyncService(nil, stubEmbedder{}, store)
	for i, title := range titles {
		require.NoError(t, sync.OnTicketCreated(context.Background(), model.Ticket{
			ID:          int64(i + 1),
			Title:       title,
			Description: "description for " + title,
			Status:      model.StatusOpen,
			Priority:    model.PriorityMedium,
			CreatedBy:   "alice",
			CreatedAt:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		}))
	}
}

func doSearch(t *testing.T, engine *gin.Engine, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func dataField(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var envelope struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Data
}

func TestSearchEndpoint(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	seedTickets(t, store, "printer jam on floor 2", "vpn flapping")
	engine := newSearchRouter(t, stubEmbedder{}, store, stubSynthesizer{})

	rec := doSearch(t, engine, gin.H{"query": "printer jam"})
	require.Equal(t, http.StatusOK, rec.Code)

	data := dataField(t, rec)
	assert.Equal(t, "printer jam", data["query"])
	assert.EqualValues(t, 2, data["total_found"])
	results, ok := data["results"].([]interface{})
	require.True(t, ok)
	assert.Len(t, results, 2)
	_, hasAnswer := data["answer"]
	assert.False(t, hasAnswer)
}

func TestSearchEndpointValidation(t *testing.T) {
	engine := newSearchRouter(t, stubEmbedder{}, vectorstore.NewMemoryStore(), stubSynthesizer{})

	rec := doSearch(t, engine, gin.H{"query": ""})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "validation_error", envelope.Error.Code)
}

func TestSearchEndpointLLMAnswer(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	seedTickets(t, store, "printer jam on floor 2")
	engine := newSearchRouter(t, stubEmbedder{}, store, stubSynthesizer{answer: "Ticket #1 covers it."})

	rec := doSearch(t, engine, gin.H{"query": "printer jam", "use_llm": true})
	require.Equal(t, http.StatusOK, rec.Code)

	data := dataField(t, rec)
	assert.Equal(t, "Ticket #1 covers it.", data["answer"])
	_, hasErr := data["answer_error"]
	assert.False(t, hasErr)
}

func TestSearchEndpointSynthesisFailureKeepsMatches(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	seedTickets(t, store, "printer jam on floor 2")
	engine := newSearchRouter(t, stubEmbedder{}, store,
		stubSynthesizer{err: fmt.Errorf("model endpoint refused connection")})

	rec := doSearch(t, engine, gin.H{"query": "printer jam", "use_llm": true})
	require.Equal(t, http.StatusOK, rec.Code)

	data := dataField(t, rec)
	assert.EqualValues(t, 1, data["total_found"])
	assert.NotEmpty(t, data["answer_error"])
	_, hasAnswer := data["answer"]
	assert.False(t, hasAnswer)
}

func TestSearchEndpointEmbeddingDown(t *testing.T) {
	engine := newSearchRouter(t, stubEmbedder{fail: true}, vectorstore.NewMemoryStore(), stubSynthesizer{})

	rec := doSearch(t, engine, gin.H{"query": "printer jam"})
	require.Equal(t, http.StatusOK, rec.Code)

	data := dataField(t, rec)
	assert.Equal(t, "embedding_unavailable", data["error_code"])
	results, ok := data["results"].([]interface{})
	require.True(t, ok)
	assert.Empty(t, results)
}

func TestStatsEndpoint(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	seedTickets(t, store, "printer jam on floor 2", "vpn flapping", "disk full")
	engine := newSearchRouter(t, stubEmbedder{}, store, stubSynthesizer{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search/stats", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	data := dataField(t, rec)
	assert.EqualValues(t, 3, data["total_documents"])
	assert.Equal(t, "stub-embed", data["embed_model"])
	assert.Equal(t, "tickets", data["collection"])
}
