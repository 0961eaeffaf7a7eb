package search

import (
	"context"
	"fmt"
	"log"
	"strings"

	"ga03-kanban/internal/kanban/domain"
	"ga03-kanban/internal/kanban/repository"
)

// VectorStore holds one embedding per email
type VectorStore interface {
	Upsert(ctx context.Context, userID, emailID, subject, body string) error
	// Query returns the nearest email ids and their distances, closest first
	Query(ctx context.Context, userID, query string, limit int) ([]string, []float64, error)
}

// Status reports whether semantic search can serve queries
type Status struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// SemanticSource answers queries from the vector store. A nil store means
// semantic search is not configured.
type SemanticSource struct {
	store   VectorStore
	history repository.SyncHistoryRepository
	cards   CardSource
}

func NewSemanticSource(store VectorStore, history repository.SyncHistoryRepository, cards CardSource) *SemanticSource {
	return &SemanticSource{store: store, history: history, cards: cards}
}

func (s *SemanticSource) Status(ctx context.Context) Status {
	if s == nil || s.store == nil {
		return Status{Available: false, Reason: "vector search is not configured"}
	}
	return Status{Available: true}
}

func (s *SemanticSource) SemanticSearch(ctx context.Context, userID, query string, limit int, minScore float64, generateMissing bool) ([]domain.SearchResult, error) {
	if s == nil || s.store == nil {
		return nil, domain.ErrSemanticOff
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.SearchResult{}, nil
	}

	cards, err := s.cards.Cards(ctx, userID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.BoardEmail, len(cards))
	for _, c := range cards {
		byID[c.EmailID] = c
	}

	if generateMissing {
		s.generateMissing(ctx, userID, cards)
	}

	// Fetch more than needed; ids that left the board are dropped below
	ids, distances, err := s.store.Query(ctx, userID, query, limit+10)
	if err != nil {
		return nil, fmt.Errorf("semantic search failed: %w", domain.Classify(err))
	}

	results := make([]domain.SearchResult, 0, len(ids))
	for i, id := range ids {
		if limit > 0 && len(results) >= limit {
			break
		}
		card, ok := byID[id]
		if !ok {
			continue
		}
		similarity := 1.0
		if i < len(distances) {
			similarity = 1 - distances[i]
		}
		if similarity < minScore {
			continue
		}
		r := domain.SearchResultFromCard(card)
		r.Score = &similarity
		results = append(results, r)
	}
	return results, nil
}

// generateMissing embeds the cards that have no sync history yet. Failures
// are logged and skipped so the query still runs against what is indexed.
func (s *SemanticSource) generateMissing(ctx context.Context, userID string, cards []domain.BoardEmail) {
	if s.history == nil {
		return
	}
	created := 0
	for _, card := range cards {
		synced, err := s.history.IsEmailSynced(userID, card.EmailID)
		if err != nil {
			log.Printf("[Search] Failed to check sync history of %s: %v", card.EmailID, err)
			continue
		}
		if synced {
			continue
		}
		body := card.Preview
		if card.Summary != "" {
			body = card.Summary + "\n\n" + body
		}
		if err := s.store.Upsert(ctx, userID, card.EmailID, card.Subject, body); err != nil {
			log.Printf("[Search] Failed to embed %s: %v", card.EmailID, err)
			continue
		}
		if _, err := s.history.EnsureEmailSynced(userID, card.EmailID); err != nil {
			log.Printf("[Search] Failed to record sync of %s: %v", card.EmailID, err)
			continue
		}
		created++
	}
	if created > 0 {
		log.Printf("[Search] Generated %d missing embeddings for %s", created, userID)
	}
}
