package search

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"ga03-kanban/internal/kanban/domain"

	"golang.org/x/sync/errgroup"
)

type FuzzySearcher interface {
	FuzzySearch(ctx context.Context, userID, query string, limit int, includeBody bool) ([]domain.SearchResult, error)
}

type SemanticSearcher interface {
	SemanticSearch(ctx context.Context, userID, query string, limit int, minScore float64, generateMissing bool) ([]domain.SearchResult, error)
	Status(ctx context.Context) Status
}

// Request is one search query
type Request struct {
	Query                     string            `json:"query" form:"q" binding:"required"`
	Mode                      domain.SearchMode `json:"mode" form:"mode"`
	Limit                     int               `json:"limit" form:"limit"`
	MinScore                  *float64          `json:"min_score" form:"min_score"`
	IncludeBody               bool              `json:"include_body" form:"include_body"`
	GenerateMissingEmbeddings bool              `json:"generate_missing_embeddings" form:"generate_missing_embeddings"`
}

// Response is the merged answer to a query
type Response struct {
	MergeResponse
	Query string            `json:"query"`
	Mode  domain.SearchMode `json:"mode"`
	// Degraded is set when semantic results were wanted but could not be served
	Degraded bool `json:"degraded,omitempty"`
}

type Service struct {
	fuzzy    FuzzySearcher
	semantic SemanticSearcher
	limit    int
	minScore float64

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewService creates the search service. semantic may be nil when no vector store is configured.
func NewService(fuzzy FuzzySearcher, semantic SemanticSearcher, limit int, minScore float64) *Service {
	if limit <= 0 {
		limit = 20
	}
	return &Service{
		fuzzy:    fuzzy,
		semantic: semantic,
		limit:    limit,
		minScore: minScore,
		sessions: make(map[string]*Session),
	}
}

// Session returns the query session of a user
func (s *Service) Session(userID string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		sess = NewSession()
		s.sessions[userID] = sess
	}
	return sess
}

// Search runs the sources the mode needs concurrently and merges their results.
// It returns domain.ErrStale when a newer query, a mode switch or a clear
// superseded this one while it was in flight.
func (s *Service) Search(ctx context.Context, userID string, req Request) (*Response, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, domain.Validationf("query is required")
	}
	mode := req.Mode
	if mode == "" {
		mode = domain.SearchModeFuzzy
	}
	if !mode.Valid() {
		return nil, domain.Validationf("unknown search mode %q", mode)
	}
	limit := req.Limit
	if limit <= 0 {
		limit = s.limit
	}
	minScore := s.minScore
	if req.MinScore != nil {
		minScore = *req.MinScore
	}

	sess := s.Session(userID)
	token := sess.Begin(mode)

	var (
		fuzzyResults    []domain.SearchResult
		semanticResults []domain.SearchResult
		semanticErr     error
	)
	g, gctx := errgroup.WithContext(ctx)
	if mode != domain.SearchModeSemantic {
		g.Go(func() error {
			res, err := s.fuzzy.FuzzySearch(gctx, userID, query, limit, req.IncludeBody)
			if err != nil {
				return err
			}
			fuzzyResults = res
			return nil
		})
	}
	if mode != domain.SearchModeFuzzy {
		g.Go(func() error {
			res, err := s.semanticSearch(gctx, userID, query, limit, minScore, req.GenerateMissingEmbeddings)
			if err != nil {
				if mode == domain.SearchModeBoth {
					semanticErr = err
					return nil
				}
				return err
			}
			semanticResults = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := sess.Accept(token); err != nil {
		log.Printf("[Search] Discarding %s response #%d for %s", mode, token.Seq, userID)
		return nil, err
	}

	resp := &Response{
		MergeResponse: Merge(fuzzyResults, semanticResults, mode),
		Query:         query,
		Mode:          mode,
	}
	if semanticErr != nil {
		log.Printf("[Search] Semantic search degraded for %s: %v", userID, semanticErr)
		resp.Degraded = true
	}
	return resp, nil
}

func (s *Service) semanticSearch(ctx context.Context, userID, query string, limit int, minScore float64, generate bool) ([]domain.SearchResult, error) {
	if s.semantic == nil {
		return nil, domain.ErrSemanticOff
	}
	return s.semantic.SemanticSearch(ctx, userID, query, limit, minScore, generate)
}

// SearchWithFallback re-issues a semantic query in fuzzy mode when semantic
// search is unavailable
func (s *Service) SearchWithFallback(ctx context.Context, userID string, req Request) (*Response, error) {
	resp, err := s.Search(ctx, userID, req)
	if err == nil || req.Mode != domain.SearchModeSemantic || !errors.Is(err, domain.ErrUnavailable) {
		return resp, err
	}
	log.Printf("[Search] Semantic search unavailable for %s, falling back to fuzzy", userID)
	req.Mode = domain.SearchModeFuzzy
	resp, err = s.Search(ctx, userID, req)
	if err != nil {
		return nil, err
	}
	resp.Degraded = true
	return resp, nil
}

// SwitchMode changes the active mode; responses of the old mode are discarded
func (s *Service) SwitchMode(userID string, mode domain.SearchMode) error {
	if !mode.Valid() {
		return domain.Validationf("unknown search mode %q", mode)
	}
	s.Session(userID).SwitchMode(mode)
	return nil
}

// Clear drops the user's query; responses still in flight are discarded
func (s *Service) Clear(userID string) {
	s.Session(userID).Clear()
}

// Status reports whether semantic search is available
func (s *Service) Status(ctx context.Context) Status {
	if s.semantic == nil {
		return Status{Available: false, Reason: "vector search is not configured"}
	}
	return s.semantic.Status(ctx)
}
