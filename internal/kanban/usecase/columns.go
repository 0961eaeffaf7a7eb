package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"

	"ga03-kanban/internal/kanban/domain"

	"github.com/google/uuid"
)

// UpsertColumn creates a column (when def.ID is empty or unknown) or replaces
// an existing one. New columns are appended after the last column.
func (b *Board) UpsertColumn(ctx context.Context, def *domain.Column) (*domain.Column, error) {
	if def == nil {
		return nil, domain.Validationf("column definition is required")
	}
	b.colMu.Lock()
	defer b.colMu.Unlock()

	col := def.Clone()
	col.UserID = b.userID
	existing := b.columns.Get(col.ID)

	if existing == nil {
		if col.ID == "" {
			col.ID = uuid.New().String()
		}
		col.IsDefault = false
		col.Order = b.nextOrder()
		validated, err := b.columns.Validate(col)
		if err != nil {
			return nil, err
		}
		created, err := b.api.CreateColumn(ctx, validated)
		if err != nil {
			return nil, fmt.Errorf("failed to create column: %w", domain.Classify(err))
		}
		return b.storeColumn(created), nil
	}

	if col.Type == "" {
		col.Type = existing.Type
	}
	if col.Type != existing.Type {
		return nil, domain.Validationf("cannot change the type of column %s", col.ID)
	}
	validated, err := b.columns.Validate(col)
	if err != nil {
		return nil, err
	}
	updated, err := b.api.UpdateColumn(ctx, col.ID, fullPatch(validated))
	if err != nil {
		return nil, fmt.Errorf("failed to update column: %w", domain.Classify(err))
	}
	return b.storeColumn(updated), nil
}

// UpdateColumn applies a partial edit to a column
func (b *Board) UpdateColumn(ctx context.Context, columnID string, patch domain.ColumnPatch) (*domain.Column, error) {
	b.colMu.Lock()
	defer b.colMu.Unlock()

	existing := b.columns.Get(columnID)
	if existing == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrColumnNotFound, columnID)
	}
	validated, err := b.columns.Validate(patch.Apply(existing))
	if err != nil {
		return nil, err
	}
	updated, err := b.api.UpdateColumn(ctx, columnID, fullPatch(validated))
	if err != nil {
		return nil, fmt.Errorf("failed to update column: %w", domain.Classify(err))
	}
	return b.storeColumn(updated), nil
}

// ReorderColumns sets the display order to the sequence of ids, which must
// name every column exactly once
func (b *Board) ReorderColumns(ctx context.Context, ids []string) ([]*domain.Column, error) {
	b.colMu.Lock()
	defer b.colMu.Unlock()

	current := b.columns.List()
	if len(ids) != len(current) {
		return nil, domain.Validationf("expected %d column ids, got %d", len(current), len(ids))
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] || b.columns.Get(id) == nil {
			return nil, domain.Validationf("column ids must list every column once (%s)", id)
		}
		seen[id] = true
	}

	if err := b.api.ReorderColumns(ctx, ids); err != nil {
		log.Printf("[Board] Reorder of %s failed: %v", b.userID, err)
		if errors.Is(err, domain.ErrConflict) {
			b.reloadColumns(ctx)
		}
		return nil, fmt.Errorf("failed to reorder columns: %w", domain.Classify(err))
	}

	reordered := make([]*domain.Column, 0, len(ids))
	for i, id := range ids {
		col := b.columns.Get(id)
		col.Order = i
		reordered = append(reordered, col)
	}

	b.columns.Replace(reordered)
	for _, col := range reordered {
		b.store.PutColumn(col)
	}
	b.publish(EventBoardUpdate, map[string]interface{}{"action": "reorder_columns"})
	return b.columns.List(), nil
}

// DeleteColumn removes a column. Its cards are first relocated one by one to
// the fallback inbox column through the regular move path; if a relocation
// fails the column is kept. It returns the id of the fallback column.
func (b *Board) DeleteColumn(ctx context.Context, columnID string) (string, error) {
	b.colMu.Lock()
	defer b.colMu.Unlock()

	if err := b.columns.CanRemove(columnID); err != nil {
		return "", fmt.Errorf("cannot delete column %s: %w", columnID, err)
	}
	fallback := b.columns.Fallback(columnID)
	if fallback == nil {
		return "", domain.Validationf("no inbox column to receive the emails of %s", columnID)
	}

	cards := b.store.EmailsIn(columnID)
	log.Printf("[Board] Deleting column %s of %s, relocating %d emails to %s", columnID, b.userID, len(cards), fallback.ID)
	for _, card := range cards {
		if err := b.relocate(ctx, card.EmailID, columnID, fallback); err != nil {
			return "", fmt.Errorf("failed to relocate %s: %w", card.EmailID, err)
		}
	}

	if err := b.api.DeleteColumn(ctx, columnID); err != nil {
		return "", fmt.Errorf("failed to delete column: %w", domain.Classify(err))
	}
	if err := b.columns.Remove(columnID); err != nil {
		log.Printf("[Board] Registry removal of %s: %v", columnID, err)
	}
	if err := b.store.RemoveColumn(columnID); err != nil {
		log.Printf("[Board] Store removal of %s: %v", columnID, err)
	}
	b.publish(EventBoardUpdate, map[string]interface{}{
		"action":          "delete_column",
		"column_id":       columnID,
		"fallback_column": fallback.ID,
	})
	return fallback.ID, nil
}

// relocate moves one card out of a column being deleted. A card whose board
// move landed but whose labels failed counts as relocated.
func (b *Board) relocate(ctx context.Context, emailID, fromColumnID string, fallback *domain.Column) error {
	unlock := b.emails.Lock(emailID)
	defer unlock()

	if current, ok := b.store.ColumnOf(emailID); !ok || current != fromColumnID {
		return nil
	}
	_, err := b.moveLocked(ctx, emailID, fallback, -1)
	var partial *domain.PartialMoveError
	if errors.As(err, &partial) && partial.BoardApplied {
		log.Printf("[Board] %s relocated without labels: %v", emailID, partial.Err)
		return nil
	}
	return err
}

func (b *Board) nextOrder() int {
	next := 0
	for _, c := range b.columns.List() {
		if c.Order >= next {
			next = c.Order + 1
		}
	}
	return next
}

func (b *Board) storeColumn(col *domain.Column) *domain.Column {
	stored, err := b.columns.Put(col)
	if err != nil {
		log.Printf("[Board] Server returned column %s that fails validation: %v", col.ID, err)
		stored = col.Clone()
	}
	b.store.PutColumn(stored)
	b.publish(EventBoardUpdate, map[string]interface{}{"action": "column", "column_id": stored.ID})
	return stored
}

func (b *Board) reloadColumns(ctx context.Context) {
	cols, err := b.api.ListColumns(ctx)
	if err != nil {
		log.Printf("[Board] Could not reload columns of %s: %v", b.userID, err)
		return
	}
	b.columns.Replace(cols)
	for _, col := range b.columns.List() {
		b.store.PutColumn(col)
	}
}

// fullPatch sends every editable field of c
func fullPatch(c *domain.Column) domain.ColumnPatch {
	add := []string(c.AddLabelsOnMove)
	remove := []string(c.RemoveLabelsOnMove)
	return domain.ColumnPatch{
		Name:               &c.Name,
		Color:              &c.Color,
		Order:              &c.Order,
		GmailLabelID:       &c.GmailLabelID,
		GmailLabelName:     &c.GmailLabelName,
		AddLabelsOnMove:    &add,
		RemoveLabelsOnMove: &remove,
	}
}
