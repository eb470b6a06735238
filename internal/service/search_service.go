package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/seekerhut/ticketrag/internal/ai"
	"github.com/seekerhut/ticketrag/internal/model"
	apperr "github.com/seekerhut/ticketrag/internal/pkg/errors"
	"github.com/seekerhut/ticketrag/internal/vectorstore"
)

type SearchConfig struct {
	DefaultTopK   int
	MaxTopK       int
	MinQueryChars int
	MaxQueryChars int
	CacheSize     int
	CacheTTL      time.Duration
	Collection    string
}

func (c *SearchConfig) applyDefaults() {
	if c.DefaultTopK <= 0 {
		c.DefaultTopK = 5
	}
	if c.MaxTopK <= 0 {
		c.MaxTopK = 50
	}
	if c.MinQueryChars <= 0 {
		c.MinQueryChars = 2
	}
	if c.MaxQueryChars <= 0 {
		c.MaxQueryChars = 2000
	}
	if c.CacheSize <= 0 {
		c.CacheSize = 1024
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 60 * time.Second
	}
}

type SearchInput struct {
	Query          string
	TopK           int
	FilterStatus   string
	FilterPriority string
	FilterAssignee string
}

// SearchService is the query facade: free text in, ranked matches out. The
// embedder is the same instance the sync path uses, so query vectors and
// document vectors always live in the same embedding space.
type SearchService struct {
	embedder ai.IEmbedder
	store    vectorstore.Store
	cfg      SearchConfig
	// The index can change without the cache being notified, so entries are
	// only trusted for a bounded TTL.
	cache *expirable.LRU[string, []model.TicketMatch]
}

func NewSearchService(embedder ai.IEmbedder, store vectorstore.Store, cfg SearchConfig) *SearchService {
	cfg.applyDefaults()
	cache := expirable.NewLRU[string, []model.TicketMatch](cfg.CacheSize, nil, cfg.CacheTTL)
	return &SearchService{
		embedder: embedder,
		store:    store,
		cfg:      cfg,
		cache:    cache,
	}
}

func (s *SearchService) Search(ctx context.Context, input SearchInput) ([]model.TicketMatch, error) {
	query, topK, filter, err := s.validate(input)
	if err != nil {
		return nil, err
	}
	logger := logutil.GetLogger(ctx).With(zap.String("query", query), zap.Int("top_k", topK))

	cacheKey := s.cacheKey(query, topK, filter)
	if cached, ok := s.cache.Get(cacheKey); ok {
		logger.Debug("search cache hit")
		return cached, nil
	}

	embedding, err := s.embedder.Embed(ctx, query, taskTypeQuery)
	if err != nil {
		logger.Error("embed query failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", apperr.ErrEmbeddingUnavailable, err)
	}
	matches, err := s.store.Query(ctx, embedding, topK, filter)
	if err != nil {
		logger.Error("vector query failed", zap.Error(err))
		return nil, err
	}
	if matches == nil {
		// empty result set is valid, not an error
		matches = []model.TicketMatch{}
	}
	s.cache.Add(cacheKey, matches)
	logger.Info("search done", zap.Int("matches", len(matches)))
	return matches, nil
}

// Stats reports index health. It touches only the store and the configured
// embedding model identifier, never the LLM.
func (s *SearchService) Stats(ctx context.Context) (*model.IndexStats, error) {
	count, err := s.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &model.IndexStats{
		TotalDocuments: count,
		EmbedModel:     s.embedder.ModelName(),
		Collection:     s.cfg.Collection,
	}, nil
}

func (s *SearchService) DefaultTopK() int {
	return s.cfg.DefaultTopK
}

func (s *SearchService) validate(input SearchInput) (string, int, map[string]string, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return "", 0, nil, fmt.Errorf("%w: query is required", apperr.ErrValidation)
	}
	if len([]rune(query)) < s.cfg.MinQueryChars {
		return "", 0, nil, fmt.Errorf("%w: query must be at least %d characters", apperr.ErrValidation, s.cfg.MinQueryChars)
	}
	if len(query) > s.cfg.MaxQueryChars {
		return "", 0, nil, fmt.Errorf("%w: query exceeds %d characters", apperr.ErrValidation, s.cfg.MaxQueryChars)
	}
	topK := input.TopK
	if topK <= 0 {
		topK = s.cfg.DefaultTopK
	}
	if topK > s.cfg.MaxTopK {
		topK = s.cfg.MaxTopK
	}
	filter := make(map[string]string)
	if input.FilterStatus != "" {
		if !model.ValidStatus(input.FilterStatus) {
			return "", 0, nil, fmt.Errorf("%w: invalid status filter %q", apperr.ErrValidation, input.FilterStatus)
		}
		filter[MetaStatus] = input.FilterStatus
	}
	if input.FilterPriority != "" {
		if !model.ValidPriority(input.FilterPriority) {
			return "", 0, nil, fmt.Errorf("%w: invalid priority filter %q", apperr.ErrValidation, input.FilterPriority)
		}
		filter[MetaPriority] = input.FilterPriority
	}
	if input.FilterAssignee != "" {
		filter[MetaAssignee] = input.FilterAssignee
	}
	return query, topK, filter, nil
}

// Cache entries key strictly on (query text, filters, top_k).
func (s *SearchService) cacheKey(query string, topK int, filter map[string]string) string {
	var sb strings.Builder
	sb.WriteString(query)
	sb.WriteByte(0)
	sb.WriteString(strconv.Itoa(topK))
	for _, k := range []string{MetaStatus, MetaPriority, MetaAssignee} {
		sb.WriteByte(0)
		sb.WriteString(filter[k])
	}
	hash := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(hash[:])
}
