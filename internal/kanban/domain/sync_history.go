package domain

import "time"

// SyncHistory records that a card has an embedding in the vector store
type SyncHistory struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"uniqueIndex:idx_sync_user_email;not null"`
	EmailID   string    `json:"email_id" gorm:"uniqueIndex:idx_sync_user_email;not null"`
	SyncedAt  time.Time `json:"synced_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (SyncHistory) TableName() string {
	return "email_sync_histories"
}
