package usecase

import (
	"context"
	"log"

	"ga03-kanban/internal/kanban/domain"
)

// ImportResult counts the outcome of an Import call
type ImportResult struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Import places mailbox cards that are not on the board yet at the top of
// the inbox column. cards are expected newest first and keep that order.
func (b *Board) Import(ctx context.Context, cards []domain.BoardEmail) ImportResult {
	var res ImportResult
	for i := len(cards) - 1; i >= 0; i-- {
		card := cards[i]
		if _, ok := b.store.Get(card.EmailID); ok {
			res.Skipped++
			continue
		}
		card.ColumnID = ""
		if err := b.AddToBoard(ctx, card, 0); err != nil {
			log.Printf("[Board] Failed to import %s for %s: %v", card.EmailID, b.userID, err)
			res.Failed++
			continue
		}
		res.Added++
	}
	if res.Added > 0 {
		b.publish(EventBoardUpdate, map[string]interface{}{"added": res.Added})
	}
	return res
}
