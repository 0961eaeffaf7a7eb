package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ga03-kanban/internal/kanban/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// boardRepository implements BoardAPI on Postgres for a single user
type boardRepository struct {
	db     *gorm.DB
	userID string
}

// NewBoardRepository creates a BoardAPI scoped to userID
func NewBoardRepository(db *gorm.DB, userID string) BoardAPI {
	return &boardRepository{
		db:     db,
		userID: userID,
	}
}

func (r *boardRepository) scoped(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Where("user_id = ?", r.userID)
}

// ListColumns gets all columns of the board, ordered by display order
func (r *boardRepository) ListColumns(ctx context.Context) ([]*domain.Column, error) {
	var columns []*domain.Column
	err := r.scoped(ctx).Order("display_order ASC").Find(&columns).Error
	if err != nil {
		return nil, err
	}

	for _, col := range columns {
		if col.AddLabelsOnMove == nil {
			col.AddLabelsOnMove = domain.StringArray{}
		}
		if col.RemoveLabelsOnMove == nil {
			col.RemoveLabelsOnMove = domain.StringArray{}
		}
	}
	return columns, nil
}

func (r *boardRepository) getColumn(tx *gorm.DB, columnID string) (*domain.Column, error) {
	var column domain.Column
	err := tx.Where("user_id = ? AND id = ?", r.userID, columnID).First(&column).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: column %s no longer exists", domain.ErrConflict, columnID)
		}
		return nil, err
	}
	return &column, nil
}

// CreateColumn creates a new column
func (r *boardRepository) CreateColumn(ctx context.Context, column *domain.Column) (*domain.Column, error) {
	col := column.Clone()
	if col.ID == "" {
		col.ID = uuid.New().String()
	}
	col.UserID = r.userID
	col.CreatedAt = time.Now()
	col.UpdatedAt = col.CreatedAt
	if col.AddLabelsOnMove == nil {
		col.AddLabelsOnMove = domain.StringArray{}
	}
	if col.RemoveLabelsOnMove == nil {
		col.RemoveLabelsOnMove = domain.StringArray{}
	}

	if err := r.db.WithContext(ctx).Create(col).Error; err != nil {
		return nil, err
	}
	return col, nil
}

// UpdateColumn applies patch to a stored column
func (r *boardRepository) UpdateColumn(ctx context.Context, columnID string, patch domain.ColumnPatch) (*domain.Column, error) {
	var updated *domain.Column
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := r.getColumn(tx, columnID)
		if err != nil {
			return err
		}
		updated = patch.Apply(current)
		updated.UpdatedAt = time.Now()
		return tx.Save(updated).Error
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ReorderColumns rewrites the display order of every listed column. Either
// all columns move or none do.
func (r *boardRepository) ReorderColumns(ctx context.Context, columnIDs []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		for i, id := range columnIDs {
			res := tx.Model(&domain.Column{}).
				Where("user_id = ? AND id = ?", r.userID, id).
				Updates(map[string]interface{}{"display_order": i, "updated_at": now})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("%w: column %s no longer exists", domain.ErrConflict, id)
			}
		}
		return nil
	})
}

// DeleteColumn deletes a column. It refuses while cards still point at it.
func (r *boardRepository) DeleteColumn(ctx context.Context, columnID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.BoardEmail{}).
			Where("user_id = ? AND column_id = ?", r.userID, columnID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: column %s still holds %d emails", domain.ErrConflict, columnID, count)
		}
		return tx.Where("user_id = ? AND id = ?", r.userID, columnID).Delete(&domain.Column{}).Error
	})
}

// GetBoard loads every column with its cards in order
func (r *boardRepository) GetBoard(ctx context.Context, filter domain.BoardFilter) (*domain.BoardSnapshot, error) {
	columns, err := r.ListColumns(ctx)
	if err != nil {
		return nil, err
	}

	q := r.scoped(ctx)
	if filter.UnreadOnly {
		q = q.Where("is_read = ?", false)
	}
	if filter.WithAttachments {
		q = q.Where("has_attachments = ?", true)
	}
	if filter.StarredOnly {
		q = q.Where("is_starred = ?", true)
	}

	var emails []domain.BoardEmail
	if err := q.Order("column_id ASC, order_in_column ASC").Find(&emails).Error; err != nil {
		return nil, err
	}

	snap := &domain.BoardSnapshot{
		Columns:        columns,
		EmailsByColumn: make(map[string][]domain.BoardEmail, len(columns)),
	}
	for _, col := range columns {
		snap.EmailsByColumn[col.ID] = []domain.BoardEmail{}
	}
	for _, e := range emails {
		snap.EmailsByColumn[e.ColumnID] = append(snap.EmailsByColumn[e.ColumnID], e)
	}
	return snap, nil
}

// GetEmail gets the server record of one card
func (r *boardRepository) GetEmail(ctx context.Context, emailID string) (*domain.BoardEmail, error) {
	var email domain.BoardEmail
	err := r.scoped(ctx).Where("email_id = ?", emailID).First(&email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &email, nil
}

func (r *boardRepository) getEmail(tx *gorm.DB, emailID string) (*domain.BoardEmail, error) {
	var email domain.BoardEmail
	err := tx.Where("user_id = ? AND email_id = ?", r.userID, emailID).First(&email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrEmailGone, emailID)
		}
		return nil, err
	}
	return &email, nil
}

// place puts emailID at index of columnID and renumbers the column.
// A negative or out-of-range index appends.
func (r *boardRepository) place(tx *gorm.DB, columnID, emailID string, index int) error {
	var ids []string
	err := tx.Model(&domain.BoardEmail{}).
		Where("user_id = ? AND column_id = ? AND email_id <> ?", r.userID, columnID, emailID).
		Order("order_in_column ASC").
		Pluck("email_id", &ids).Error
	if err != nil {
		return err
	}

	if index < 0 || index > len(ids) {
		index = len(ids)
	}
	ordered := make([]string, 0, len(ids)+1)
	ordered = append(ordered, ids[:index]...)
	ordered = append(ordered, emailID)
	ordered = append(ordered, ids[index:]...)
	return r.renumber(tx, columnID, ordered)
}

// compact renumbers a column after a card left it
func (r *boardRepository) compact(tx *gorm.DB, columnID string) error {
	var ids []string
	err := tx.Model(&domain.BoardEmail{}).
		Where("user_id = ? AND column_id = ?", r.userID, columnID).
		Order("order_in_column ASC").
		Pluck("email_id", &ids).Error
	if err != nil {
		return err
	}
	return r.renumber(tx, columnID, ids)
}

func (r *boardRepository) renumber(tx *gorm.DB, columnID string, ordered []string) error {
	for i, id := range ordered {
		err := tx.Model(&domain.BoardEmail{}).
			Where("user_id = ? AND email_id = ?", r.userID, id).
			Updates(map[string]interface{}{"column_id": columnID, "order_in_column": i}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// AddEmail puts a new card on the board
func (r *boardRepository) AddEmail(ctx context.Context, email domain.BoardEmail, index int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := r.getColumn(tx, email.ColumnID); err != nil {
			return err
		}
		var count int64
		if err := tx.Model(&domain.BoardEmail{}).
			Where("user_id = ? AND email_id = ?", r.userID, email.EmailID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: email %s is already on the board", domain.ErrConflict, email.EmailID)
		}

		card := email.Clone()
		card.UserID = r.userID
		card.OrderInColumn = 1 << 30
		if err := tx.Create(&card).Error; err != nil {
			return err
		}
		return r.place(tx, card.ColumnID, card.EmailID, index)
	})
}

// RemoveEmail takes a card off the board
func (r *boardRepository) RemoveEmail(ctx context.Context, emailID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := r.getEmail(tx, emailID)
		if err != nil {
			return err
		}
		if err := tx.Where("user_id = ? AND email_id = ?", r.userID, emailID).Delete(&domain.BoardEmail{}).Error; err != nil {
			return err
		}
		return r.compact(tx, current.ColumnID)
	})
}

// MoveEmail moves a card to targetColumnID at index and clears any hold
func (r *boardRepository) MoveEmail(ctx context.Context, emailID, targetColumnID string, index int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return r.moveTx(tx, emailID, targetColumnID, index)
	})
}

func (r *boardRepository) moveTx(tx *gorm.DB, emailID, targetColumnID string, index int) error {
	current, err := r.getEmail(tx, emailID)
	if err != nil {
		return err
	}
	if _, err := r.getColumn(tx, targetColumnID); err != nil {
		return err
	}

	err = tx.Model(&domain.BoardEmail{}).
		Where("user_id = ? AND email_id = ?", r.userID, emailID).
		Updates(map[string]interface{}{
			"column_id":       targetColumnID,
			"snooze_until":    nil,
			"prior_column_id": "",
			"prior_order":     0,
		}).Error
	if err != nil {
		return err
	}
	if err := r.place(tx, targetColumnID, emailID, index); err != nil {
		return err
	}
	if current.ColumnID != targetColumnID {
		return r.compact(tx, current.ColumnID)
	}
	return nil
}

// SnoozeEmail moves email to the snoozed column and saves where it came from
func (r *boardRepository) SnoozeEmail(ctx context.Context, emailID, snoozedColumnID, priorColumnID string, priorOrder int, until time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := r.getEmail(tx, emailID)
		if err != nil {
			return err
		}
		if current.ColumnID == snoozedColumnID {
			return fmt.Errorf("%w: %s", domain.ErrAlreadySnoozed, emailID)
		}
		if _, err := r.getColumn(tx, snoozedColumnID); err != nil {
			return err
		}

		err = tx.Model(&domain.BoardEmail{}).
			Where("user_id = ? AND email_id = ?", r.userID, emailID).
			Updates(map[string]interface{}{
				"column_id":       snoozedColumnID,
				"snooze_until":    until,
				"prior_column_id": priorColumnID,
				"prior_order":     priorOrder,
			}).Error
		if err != nil {
			return err
		}
		if err := r.place(tx, snoozedColumnID, emailID, -1); err != nil {
			return err
		}
		return r.compact(tx, current.ColumnID)
	})
}

// UnsnoozeEmail restores a held email to its prior column, or to the inbox
// column when the prior column is gone
func (r *boardRepository) UnsnoozeEmail(ctx context.Context, emailID string) (string, error) {
	var restored string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := r.getEmail(tx, emailID)
		if err != nil {
			return err
		}
		if current.SnoozeUntil == nil && current.PriorColumnID == "" {
			return fmt.Errorf("%w: %s", domain.ErrNotSnoozed, emailID)
		}

		target, index := current.PriorColumnID, current.PriorOrder
		if target != "" {
			if _, err := r.getColumn(tx, target); err != nil {
				if !errors.Is(err, domain.ErrConflict) {
					return err
				}
				target = ""
			}
		}
		if target == "" {
			var inbox domain.Column
			err := tx.Where("user_id = ? AND type = ?", r.userID, domain.ColumnTypeInbox).
				Order("is_default DESC, display_order ASC").
				First(&inbox).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: board has no inbox column", domain.ErrConflict)
				}
				return err
			}
			target, index = inbox.ID, -1
		}

		restored = target
		return r.moveTx(tx, emailID, target, index)
	})
	if err != nil {
		return "", err
	}
	return restored, nil
}

// UpdateFlags updates read, starred and summary fields
func (r *boardRepository) UpdateFlags(ctx context.Context, emailID string, patch domain.FlagPatch) error {
	updates := map[string]interface{}{}
	if patch.IsRead != nil {
		updates["is_read"] = *patch.IsRead
	}
	if patch.IsStarred != nil {
		updates["is_starred"] = *patch.IsStarred
	}
	if patch.Summary != nil {
		updates["summary"] = *patch.Summary
	}
	if len(updates) == 0 {
		return nil
	}

	res := r.db.WithContext(ctx).Model(&domain.BoardEmail{}).
		Where("user_id = ? AND email_id = ?", r.userID, emailID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", domain.ErrEmailGone, emailID)
	}
	return nil
}

// holdIndex implements HoldIndex
type holdIndex struct {
	db *gorm.DB
}

// NewHoldIndex creates a HoldIndex over the board_emails table
func NewHoldIndex(db *gorm.DB) HoldIndex {
	return &holdIndex{db: db}
}

// UsersWithHolds gets the users owning at least one snoozed card
func (h *holdIndex) UsersWithHolds(ctx context.Context) ([]string, error) {
	var users []string
	err := h.db.WithContext(ctx).Model(&domain.BoardEmail{}).
		Where("snooze_until IS NOT NULL").
		Distinct().
		Pluck("user_id", &users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}
