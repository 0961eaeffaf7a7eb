package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	"ga03-kanban/internal/kanban/board"
	"ga03-kanban/internal/kanban/domain"
)

// Snooze hides an active card in the snooze column until the given time
func (b *Board) Snooze(ctx context.Context, emailID string, until time.Time) (*MoveResult, error) {
	unlock := b.emails.Lock(emailID)
	defer unlock()
	return b.snoozeLocked(ctx, emailID, until)
}

func (b *Board) snoozeLocked(ctx context.Context, emailID string, until time.Time) (*MoveResult, error) {
	if !until.After(b.opts.Now()) {
		return nil, fmt.Errorf("%w: %s", domain.ErrSnoozeInPast, until.Format(time.RFC3339))
	}
	snoozed := b.columns.Snoozed()
	if snoozed == nil {
		return nil, domain.Validationf("board has no snooze column")
	}
	current, ok := b.store.Get(emailID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrEmailNotOnBoard, emailID)
	}
	if current.ColumnID == snoozed.ID {
		return nil, fmt.Errorf("%w: %s", domain.ErrAlreadySnoozed, emailID)
	}

	effect := PlanLabels(b.columns.Get(current.ColumnID), snoozed)
	change, err := b.store.ApplyOptimistic(board.Snooze(emailID, snoozed.ID, until))
	if err != nil {
		return nil, err
	}
	result := &MoveResult{
		EmailID:      emailID,
		FromColumnID: current.ColumnID,
		ToColumnID:   snoozed.ID,
		Labels:       effect,
		SnoozeUntil:  &until,
	}

	if err := b.api.SnoozeEmail(ctx, emailID, snoozed.ID, change.PriorColumnID, change.PriorOrder, until); err != nil {
		return result, b.fail(ctx, change, err)
	}
	b.commit(change)
	result.BoardApplied = true
	log.Printf("[Executor] Snoozed %s until %s (prior column %s)", emailID, until.Format(time.RFC3339), change.PriorColumnID)

	return result, b.finishLabels(ctx, result, effect)
}

// Unsnooze wakes a snoozed card early. It returns the column the card was
// restored to: its prior column at its prior position, or the inbox column
// when the prior column no longer exists.
func (b *Board) Unsnooze(ctx context.Context, emailID string) (string, error) {
	unlock := b.emails.Lock(emailID)
	defer unlock()

	result, err := b.unsnoozeLocked(ctx, emailID)
	if result == nil {
		return "", err
	}
	return result.ToColumnID, err
}

func (b *Board) unsnoozeLocked(ctx context.Context, emailID string) (*MoveResult, error) {
	current, ok := b.store.Get(emailID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrEmailNotOnBoard, emailID)
	}
	snoozed := b.columns.Get(current.ColumnID)
	if snoozed == nil || snoozed.Type != domain.ColumnTypeSnoozed {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotSnoozed, emailID)
	}

	target, index := b.columns.Get(current.PriorColumnID), current.PriorOrder
	if target == nil || target.Type == domain.ColumnTypeSnoozed {
		target, index = b.columns.Fallback(""), -1
	}
	if target == nil {
		return nil, domain.Validationf("no column to restore %s to", emailID)
	}

	effect := PlanLabels(snoozed, target)
	change, err := b.store.ApplyOptimistic(board.Unsnooze(emailID, target.ID, index))
	if err != nil {
		return nil, err
	}
	result := &MoveResult{
		EmailID:      emailID,
		FromColumnID: snoozed.ID,
		ToColumnID:   target.ID,
		Labels:       effect,
	}

	restored, err := b.api.UnsnoozeEmail(ctx, emailID)
	if err != nil {
		return result, b.fail(ctx, change, err)
	}
	b.commit(change)
	result.BoardApplied = true

	if restored != "" && restored != target.ID {
		log.Printf("[Executor] Server restored %s to %s instead of %s", emailID, restored, target.ID)
		b.refreshEmail(ctx, emailID)
		result.ToColumnID = restored
		effect = PlanLabels(snoozed, b.columns.Get(restored))
		result.Labels = effect
	}

	return result, b.finishLabels(ctx, result, effect)
}

// RestoreToFallback moves a card to the inbox column with a plain move
func (b *Board) RestoreToFallback(ctx context.Context, emailID string) (string, error) {
	unlock := b.emails.Lock(emailID)
	defer unlock()

	fallback := b.columns.Fallback("")
	if fallback == nil {
		return "", domain.Validationf("board has no inbox column")
	}
	result, err := b.moveLocked(ctx, emailID, fallback, -1)
	if result == nil {
		return "", err
	}
	return result.ToColumnID, err
}

// ExpiredHolds lists the snoozed cards due at now
func (b *Board) ExpiredHolds(now time.Time) []domain.BoardEmail {
	snoozedID := b.SnoozedColumnID()
	if snoozedID == "" {
		return nil
	}
	return b.store.ExpiredHolds(snoozedID, now)
}
