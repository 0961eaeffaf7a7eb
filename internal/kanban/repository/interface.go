package repository

import (
	"context"
	"time"

	"ga03-kanban/internal/kanban/domain"
)

// BoardAPI is the durable board backend of one user
type BoardAPI interface {
	ListColumns(ctx context.Context) ([]*domain.Column, error)
	CreateColumn(ctx context.Context, column *domain.Column) (*domain.Column, error)
	UpdateColumn(ctx context.Context, columnID string, patch domain.ColumnPatch) (*domain.Column, error)
	DeleteColumn(ctx context.Context, columnID string) error
	// ReorderColumns gives columnIDs[i] display order i in one transaction
	ReorderColumns(ctx context.Context, columnIDs []string) error

	// GetBoard returns the columns and the cards that pass filter
	GetBoard(ctx context.Context, filter domain.BoardFilter) (*domain.BoardSnapshot, error)
	// GetEmail returns the server record of one card, or nil when the email left the board
	GetEmail(ctx context.Context, emailID string) (*domain.BoardEmail, error)

	AddEmail(ctx context.Context, email domain.BoardEmail, index int) error
	RemoveEmail(ctx context.Context, emailID string) error
	MoveEmail(ctx context.Context, emailID, targetColumnID string, index int) error

	// SnoozeEmail moves the card into snoozedColumnID and remembers where it came from
	SnoozeEmail(ctx context.Context, emailID, snoozedColumnID, priorColumnID string, priorOrder int, until time.Time) error
	// UnsnoozeEmail releases a hold and returns the column the card landed in
	UnsnoozeEmail(ctx context.Context, emailID string) (string, error)

	UpdateFlags(ctx context.Context, emailID string, patch domain.FlagPatch) error
}

// LabelAPI mirrors board transitions onto the mailbox provider's labels
type LabelAPI interface {
	ApplyLabels(ctx context.Context, emailID string, add, remove []string) error
	ListLabels(ctx context.Context) ([]domain.Label, error)
}

// SyncHistoryRepository tracks which emails already have an embedding in the vector store
type SyncHistoryRepository interface {
	IsEmailSynced(userID, emailID string) (bool, error)
	// EnsureEmailSynced marks the email as synced and reports whether it already was
	EnsureEmailSynced(userID, emailID string) (bool, error)
	DeleteSyncHistory(userID, emailID string) error
}

// HoldIndex lists users that currently have snooze holds, so their boards
// can be opened at startup and their holds released without a client
type HoldIndex interface {
	UsersWithHolds(ctx context.Context) ([]string, error)
}
