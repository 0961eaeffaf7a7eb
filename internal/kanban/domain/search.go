package domain

import "time"

// SearchMode selects which search sources feed a query
type SearchMode string

const (
	SearchModeFuzzy    SearchMode = "fuzzy"
	SearchModeSemantic SearchMode = "semantic"
	SearchModeBoth     SearchMode = "both"
)

// Valid reports whether m is a known mode
func (m SearchMode) Valid() bool {
	return m == SearchModeFuzzy || m == SearchModeSemantic || m == SearchModeBoth
}

// MatchedFieldSemantic tags results that came from the vector store
const MatchedFieldSemantic = "semantic"

// SearchResult is the normalized shape both search sources produce
type SearchResult struct {
	EmailID        string    `json:"email_id"`
	Subject        string    `json:"subject"`
	FromEmail      string    `json:"from_email"`
	FromName       string    `json:"from_name"`
	Preview        string    `json:"preview,omitempty"`
	Summary        string    `json:"summary,omitempty"`
	ReceivedAt     time.Time `json:"received_at"`
	IsRead         bool      `json:"is_read"`
	IsStarred      bool      `json:"is_starred"`
	HasAttachments bool      `json:"has_attachments"`
	Score          *float64  `json:"score,omitempty"`
	MatchedFields  []string  `json:"matched_fields,omitempty"`
}

// SearchResultFromCard builds a result from a board card
func SearchResultFromCard(e BoardEmail) SearchResult {
	return SearchResult{
		EmailID:        e.EmailID,
		Subject:        e.Subject,
		FromEmail:      e.FromEmail,
		FromName:       e.FromName,
		Preview:        e.Preview,
		Summary:        e.Summary,
		ReceivedAt:     e.ReceivedAt,
		IsRead:         e.IsRead,
		IsStarred:      e.IsStarred,
		HasAttachments: e.HasAttachments,
	}
}
