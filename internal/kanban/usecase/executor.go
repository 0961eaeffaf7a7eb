package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"ga03-kanban/internal/kanban/board"
	"ga03-kanban/internal/kanban/domain"
)

// MoveRequest is a drag-and-drop of one card. A negative Index appends.
type MoveRequest struct {
	EmailID      string     `json:"email_id"`
	FromColumnID string     `json:"from_column_id,omitempty"`
	ToColumnID   string     `json:"to_column_id" binding:"required"`
	Index        int        `json:"index"`
	SnoozeUntil  *time.Time `json:"snooze_until,omitempty"`
}

// MoveResult tells the caller which half of a transition reached the server
type MoveResult struct {
	EmailID       string             `json:"email_id"`
	FromColumnID  string             `json:"from_column_id"`
	ToColumnID    string             `json:"to_column_id"`
	Labels        domain.LabelEffect `json:"labels"`
	SnoozeUntil   *time.Time         `json:"snooze_until,omitempty"`
	BoardApplied  bool               `json:"board_applied"`
	LabelsApplied bool               `json:"labels_applied"`
}

// Move places a card in another column (or another slot of the same column)
// and mirrors the transition onto Gmail labels. Dropping on the snooze
// column snoozes the card, for DefaultSnooze unless SnoozeUntil is set.
func (b *Board) Move(ctx context.Context, req MoveRequest) (*MoveResult, error) {
	if req.EmailID == "" {
		return nil, domain.Validationf("email id is required")
	}
	target := b.columns.Get(req.ToColumnID)
	if target == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrColumnNotFound, req.ToColumnID)
	}

	unlock := b.emails.Lock(req.EmailID)
	defer unlock()

	if target.Type == domain.ColumnTypeSnoozed {
		until := b.opts.Now().Add(b.opts.DefaultSnooze)
		if req.SnoozeUntil != nil {
			until = *req.SnoozeUntil
		}
		return b.snoozeLocked(ctx, req.EmailID, until)
	}

	if current, ok := b.store.ColumnOf(req.EmailID); ok && req.FromColumnID != "" && req.FromColumnID != current {
		log.Printf("[Executor] Stale source column for %s: client sent %s, board has %s", req.EmailID, req.FromColumnID, current)
	}
	return b.moveLocked(ctx, req.EmailID, target, req.Index)
}

// moveLocked runs a plain move; the caller holds the email lock
func (b *Board) moveLocked(ctx context.Context, emailID string, target *domain.Column, index int) (*MoveResult, error) {
	current, ok := b.store.Get(emailID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrEmailNotOnBoard, emailID)
	}

	var effect domain.LabelEffect
	if current.ColumnID != target.ID {
		effect = PlanLabels(b.columns.Get(current.ColumnID), target)
	}

	change, err := b.store.ApplyOptimistic(board.Move(emailID, target.ID, index))
	if err != nil {
		return nil, err
	}
	result := &MoveResult{
		EmailID:      emailID,
		FromColumnID: current.ColumnID,
		ToColumnID:   target.ID,
		Labels:       effect,
	}

	if err := b.api.MoveEmail(ctx, emailID, target.ID, index); err != nil {
		return result, b.fail(ctx, change, err)
	}
	b.commit(change)
	result.BoardApplied = true

	return result, b.finishLabels(ctx, result, effect)
}

// finishLabels applies the label half of a transition whose board half succeeded
func (b *Board) finishLabels(ctx context.Context, result *MoveResult, effect domain.LabelEffect) error {
	if err := b.applyLabels(ctx, result.EmailID, effect); err != nil {
		log.Printf("[Executor] Labels for %s not applied (add: %v, remove: %v): %v", result.EmailID, effect.Add, effect.Remove, err)
		return &domain.PartialMoveError{
			EmailID:      result.EmailID,
			BoardApplied: true,
			Err:          domain.Classify(err),
		}
	}
	result.LabelsApplied = true
	return nil
}

func (b *Board) applyLabels(ctx context.Context, emailID string, effect domain.LabelEffect) error {
	if b.labels == nil || effect.Empty() {
		return nil
	}
	log.Printf("[Executor] Applying labels to %s - Add: %v, Remove: %v", emailID, effect.Add, effect.Remove)
	return b.labels.ApplyLabels(ctx, emailID, effect.Add, effect.Remove)
}

func (b *Board) commit(change board.Change) {
	if err := b.store.Commit(change.ID); err != nil {
		log.Printf("[Executor] Commit of %s for %s: %v", change.Kind, change.EmailID, err)
	}
}

// fail rolls a change back after the backend rejected it. When the server
// disagreed with the local view, the email is reloaded from the server.
func (b *Board) fail(ctx context.Context, change board.Change, cause error) error {
	err := domain.Classify(cause)
	if rbErr := b.store.Rollback(change.ID); rbErr != nil {
		log.Printf("[Executor] Rollback of %s for %s: %v", change.Kind, change.EmailID, rbErr)
	}
	log.Printf("[Executor] %s of %s rolled back: %v", change.Kind, change.EmailID, err)

	if errors.Is(err, domain.ErrConflict) {
		b.refreshEmail(ctx, change.EmailID)
	}
	return err
}

func (b *Board) refreshEmail(ctx context.Context, emailID string) {
	server, err := b.api.GetEmail(ctx, emailID)
	if err != nil {
		log.Printf("[Executor] Could not reload %s from server: %v", emailID, err)
		return
	}
	b.store.ReconcileEmail(emailID, server)
}

// AddToBoard puts an email on the board. An empty ColumnID means the inbox column.
func (b *Board) AddToBoard(ctx context.Context, card domain.BoardEmail, index int) error {
	if card.EmailID == "" {
		return domain.Validationf("email id is required")
	}
	if card.ColumnID == "" {
		fallback := b.columns.Fallback("")
		if fallback == nil {
			return domain.Validationf("board has no inbox column")
		}
		card.ColumnID = fallback.ID
	}
	target := b.columns.Get(card.ColumnID)
	if target == nil {
		return fmt.Errorf("%w: %s", domain.ErrColumnNotFound, card.ColumnID)
	}
	if target.Type == domain.ColumnTypeSnoozed {
		return domain.Validationf("add the email to an active column and snooze it instead")
	}
	card.UserID = b.userID

	unlock := b.emails.Lock(card.EmailID)
	defer unlock()

	change, err := b.store.ApplyOptimistic(board.Add(card, index))
	if err != nil {
		return err
	}
	if err := b.api.AddEmail(ctx, card, index); err != nil {
		return b.fail(ctx, change, err)
	}
	b.commit(change)
	return nil
}

// RemoveFromBoard takes an email off the board
func (b *Board) RemoveFromBoard(ctx context.Context, emailID string) error {
	unlock := b.emails.Lock(emailID)
	defer unlock()

	change, err := b.store.ApplyOptimistic(board.Remove(emailID))
	if err != nil {
		return err
	}
	if err := b.api.RemoveEmail(ctx, emailID); err != nil {
		return b.fail(ctx, change, err)
	}
	b.commit(change)
	return nil
}

// SetRead marks a card read or unread and mirrors it onto the UNREAD label
func (b *Board) SetRead(ctx context.Context, emailID string, read bool) (*MoveResult, error) {
	return b.setFlag(ctx, board.SetRead(emailID, read), domain.FlagPatch{IsRead: &read}, flagLabel(domain.LabelUnread, !read))
}

// SetStarred stars or unstars a card and mirrors it onto the STARRED label
func (b *Board) SetStarred(ctx context.Context, emailID string, starred bool) (*MoveResult, error) {
	return b.setFlag(ctx, board.SetStarred(emailID, starred), domain.FlagPatch{IsStarred: &starred}, flagLabel(domain.LabelStarred, starred))
}

// SetSummary stores an AI summary on a card
func (b *Board) SetSummary(ctx context.Context, emailID, summary string) error {
	_, err := b.setFlag(ctx, board.SetSummary(emailID, summary), domain.FlagPatch{Summary: &summary}, domain.LabelEffect{})
	return err
}

func (b *Board) setFlag(ctx context.Context, c board.Change, patch domain.FlagPatch, effect domain.LabelEffect) (*MoveResult, error) {
	unlock := b.emails.Lock(c.EmailID)
	defer unlock()

	change, err := b.store.ApplyOptimistic(c)
	if err != nil {
		return nil, err
	}
	columnID, _ := b.store.ColumnOf(c.EmailID)
	result := &MoveResult{EmailID: c.EmailID, FromColumnID: columnID, ToColumnID: columnID, Labels: effect}

	if err := b.api.UpdateFlags(ctx, c.EmailID, patch); err != nil {
		return result, b.fail(ctx, change, err)
	}
	b.commit(change)
	result.BoardApplied = true

	return result, b.finishLabels(ctx, result, effect)
}
