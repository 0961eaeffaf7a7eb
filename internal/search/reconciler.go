package search

import (
	"ga03-kanban/internal/kanban/domain"
)

// MergeResponse is the single list shown for a query
type MergeResponse struct {
	Results      []domain.SearchResult `json:"results"`
	TotalResults int                   `json:"total_results"`
}

// Merge combines the fuzzy and semantic result sets for mode.
//
// In both mode the union is keyed by email id. Fuzzy results are inserted
// first and semantic results then overwrite entries with the same id in
// place, so the final order is first-insertion order and is not re-sorted
// by score.
func Merge(fuzzy, semantic []domain.SearchResult, mode domain.SearchMode) MergeResponse {
	switch mode {
	case domain.SearchModeFuzzy:
		results := make([]domain.SearchResult, len(fuzzy))
		copy(results, fuzzy)
		return MergeResponse{Results: results, TotalResults: len(results)}
	case domain.SearchModeSemantic:
		results := make([]domain.SearchResult, 0, len(semantic))
		for _, r := range semantic {
			results = append(results, tagSemantic(r))
		}
		return MergeResponse{Results: results, TotalResults: len(results)}
	}

	index := make(map[string]int, len(fuzzy)+len(semantic))
	results := make([]domain.SearchResult, 0, len(fuzzy)+len(semantic))
	put := func(r domain.SearchResult) {
		if i, ok := index[r.EmailID]; ok {
			results[i] = r
			return
		}
		index[r.EmailID] = len(results)
		results = append(results, r)
	}
	for _, r := range fuzzy {
		put(r)
	}
	for _, r := range semantic {
		put(tagSemantic(r))
	}
	return MergeResponse{Results: results, TotalResults: len(results)}
}

func tagSemantic(r domain.SearchResult) domain.SearchResult {
	r.MatchedFields = []string{domain.MatchedFieldSemantic}
	if r.Score != nil {
		s := *r.Score
		r.Score = &s
	}
	return r
}
