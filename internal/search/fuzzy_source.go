package search

import (
	"context"
	"sort"
	"strings"

	"ga03-kanban/internal/kanban/domain"
	"ga03-kanban/pkg/fuzzy"
)

// CardSource returns the cards on a user's board
type CardSource interface {
	Cards(ctx context.Context, userID string) ([]domain.BoardEmail, error)
}

// FuzzySource matches queries against the card documents of the board
type FuzzySource struct {
	cards CardSource
}

func NewFuzzySource(cards CardSource) *FuzzySource {
	return &FuzzySource{cards: cards}
}

func (f *FuzzySource) FuzzySearch(ctx context.Context, userID, query string, limit int, includeBody bool) ([]domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.SearchResult{}, nil
	}
	cards, err := f.cards.Cards(ctx, userID)
	if err != nil {
		return nil, err
	}

	type scored struct {
		result domain.SearchResult
		score  float64
	}
	var hits []scored
	for _, card := range cards {
		fields := []fuzzy.Field{
			{Name: "subject", Text: card.Subject, Weight: 1},
			{Name: "from_name", Text: card.FromName, Weight: 0.8},
			{Name: "from_email", Text: card.FromEmail, Weight: 0.6},
		}
		if includeBody {
			fields = append(fields,
				fuzzy.Field{Name: "preview", Text: card.Preview, Weight: 0.5, Snippet: true},
				fuzzy.Field{Name: "summary", Text: card.Summary, Weight: 0.5},
			)
		}
		score, matched := fuzzy.Score(query, fields)
		if score <= 0 {
			continue
		}
		r := domain.SearchResultFromCard(card)
		s := score
		r.Score = &s
		r.MatchedFields = matched
		hits = append(hits, scored{result: r, score: score})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].result.ReceivedAt.After(hits[j].result.ReceivedAt)
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}

	results := make([]domain.SearchResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, h.result)
	}
	return results, nil
}
