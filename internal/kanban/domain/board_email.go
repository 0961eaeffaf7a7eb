package domain

import "time"

// BoardEmail places one email in exactly one Kanban column.
// It also carries the card snapshot the board needs for filtering, sorting and local search.
type BoardEmail struct {
	UserID        string     `json:"-" gorm:"primaryKey" db:"user_id"`
	EmailID       string     `json:"email_id" gorm:"primaryKey" db:"email_id"`
	ColumnID      string     `json:"column_id" gorm:"index;not null" db:"column_id"`
	OrderInColumn int        `json:"order_in_column" gorm:"not null;default:0" db:"order_in_column"`
	IsRead        bool       `json:"is_read" db:"is_read"`
	IsStarred     bool       `json:"is_starred" db:"is_starred"`
	SnoozeUntil   *time.Time `json:"snooze_until,omitempty" db:"snooze_until"`
	PriorColumnID string     `json:"prior_column_id,omitempty" db:"prior_column_id"` // column before snooze (for restore)
	PriorOrder    int        `json:"-" db:"prior_order"`
	Summary       string     `json:"summary,omitempty" gorm:"type:text" db:"summary"`

	Subject        string    `json:"subject" db:"subject"`
	FromEmail      string    `json:"from_email" db:"from_email"`
	FromName       string    `json:"from_name" db:"from_name"`
	Preview        string    `json:"preview,omitempty" gorm:"type:text" db:"preview"`
	ReceivedAt     time.Time `json:"received_at" db:"received_at"`
	HasAttachments bool      `json:"has_attachments" db:"has_attachments"`

	CreatedAt time.Time `json:"-" db:"created_at"`
	UpdatedAt time.Time `json:"-" db:"updated_at"`
}

// TableName specifies the table name for GORM
func (BoardEmail) TableName() string {
	return "board_emails"
}

// Clone returns a copy that shares no pointers with e
func (e BoardEmail) Clone() BoardEmail {
	if e.SnoozeUntil != nil {
		t := *e.SnoozeUntil
		e.SnoozeUntil = &t
	}
	return e
}

// HoldExpired reports whether e is a snooze hold in snoozedColumnID that is due at now
func (e BoardEmail) HoldExpired(snoozedColumnID string, now time.Time) bool {
	if e.ColumnID != snoozedColumnID || e.SnoozeUntil == nil {
		return false
	}
	return !e.SnoozeUntil.After(now)
}

// BoardSnapshot is the server's view of a board
type BoardSnapshot struct {
	Columns        []*Column               `json:"columns"`
	EmailsByColumn map[string][]BoardEmail `json:"emails_by_column"`
}

// BoardFilter narrows GetBoard to a subset of cards
type BoardFilter struct {
	UnreadOnly      bool `form:"unread"`
	WithAttachments bool `form:"attachments"`
	StarredOnly     bool `form:"starred"`
}

// Match reports whether e passes the filter
func (f BoardFilter) Match(e BoardEmail) bool {
	if f.UnreadOnly && e.IsRead {
		return false
	}
	if f.WithAttachments && !e.HasAttachments {
		return false
	}
	if f.StarredOnly && !e.IsStarred {
		return false
	}
	return true
}

// FlagPatch updates the per-card flags; nil means unchanged
type FlagPatch struct {
	IsRead    *bool   `json:"is_read,omitempty"`
	IsStarred *bool   `json:"is_starred,omitempty"`
	Summary   *string `json:"summary,omitempty"`
}
