package repository

import (
	"errors"
	"time"

	"ga03-kanban/internal/kanban/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type syncHistoryRepository struct {
	db *gorm.DB
}

// NewSyncHistoryRepository creates a SyncHistoryRepository
func NewSyncHistoryRepository(db *gorm.DB) SyncHistoryRepository {
	return &syncHistoryRepository{db: db}
}

func (r *syncHistoryRepository) IsEmailSynced(userID, emailID string) (bool, error) {
	var count int64
	err := r.db.Model(&domain.SyncHistory{}).
		Where("user_id = ? AND email_id = ?", userID, emailID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// EnsureEmailSynced uses FirstOrCreate so the check and the insert are one query
func (r *syncHistoryRepository) EnsureEmailSynced(userID, emailID string) (bool, error) {
	var history domain.SyncHistory
	now := time.Now()
	result := r.db.Where("user_id = ? AND email_id = ?", userID, emailID).FirstOrCreate(&history, domain.SyncHistory{
		ID:        uuid.New().String(),
		UserID:    userID,
		EmailID:   emailID,
		SyncedAt:  now,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return true, nil
		}
		return false, result.Error
	}
	// RowsAffected is 0 when the record was found rather than created
	return result.RowsAffected == 0, nil
}

func (r *syncHistoryRepository) DeleteSyncHistory(userID, emailID string) error {
	return r.db.Where("user_id = ? AND email_id = ?", userID, emailID).Delete(&domain.SyncHistory{}).Error
}
