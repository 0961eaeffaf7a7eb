package board

import (
	"sort"
	"strings"

	"ga03-kanban/internal/kanban/domain"
)

// SortOrder orders cards inside each projected column
type SortOrder string

const (
	SortBoard    SortOrder = ""
	SortDateDesc SortOrder = "date-desc"
	SortDateAsc  SortOrder = "date-asc"
	SortSender   SortOrder = "sender"
)

// Valid reports whether o is a known order
func (o SortOrder) Valid() bool {
	switch o {
	case SortBoard, SortDateDesc, SortDateAsc, SortSender:
		return true
	}
	return false
}

// Project returns a filtered and sorted copy of the view. The store is not modified.
func (s *Store) Project(filter domain.BoardFilter, order SortOrder) map[string][]domain.BoardEmail {
	return Project(s.Snapshot(), filter, order)
}

// Project filters and sorts a column map without touching its input
func Project(byColumn map[string][]domain.BoardEmail, filter domain.BoardFilter, order SortOrder) map[string][]domain.BoardEmail {
	out := make(map[string][]domain.BoardEmail, len(byColumn))
	for columnID, cards := range byColumn {
		kept := make([]domain.BoardEmail, 0, len(cards))
		for _, e := range cards {
			if filter.Match(e) {
				kept = append(kept, e.Clone())
			}
		}
		sortCards(kept, order)
		out[columnID] = kept
	}
	return out
}

func senderKey(e domain.BoardEmail) string {
	if e.FromName != "" {
		return strings.ToLower(e.FromName)
	}
	return strings.ToLower(e.FromEmail)
}

func sortCards(cards []domain.BoardEmail, order SortOrder) {
	switch order {
	case SortDateDesc:
		sort.SliceStable(cards, func(i, j int) bool { return cards[i].ReceivedAt.After(cards[j].ReceivedAt) })
	case SortDateAsc:
		sort.SliceStable(cards, func(i, j int) bool { return cards[i].ReceivedAt.Before(cards[j].ReceivedAt) })
	case SortSender:
		sort.SliceStable(cards, func(i, j int) bool {
			a, b := senderKey(cards[i]), senderKey(cards[j])
			if a != b {
				return a < b
			}
			return cards[i].ReceivedAt.After(cards[j].ReceivedAt)
		})
	}
}
