package board

import (
	"time"

	"ga03-kanban/internal/kanban/domain"
)

// ChangeKind names a board mutation
type ChangeKind string

const (
	ChangeAdd        ChangeKind = "add"
	ChangeRemove     ChangeKind = "remove"
	ChangeMove       ChangeKind = "move"
	ChangeSnooze     ChangeKind = "snooze"
	ChangeUnsnooze   ChangeKind = "unsnooze"
	ChangeSetRead    ChangeKind = "set_read"
	ChangeSetStarred ChangeKind = "set_starred"
	ChangeSetSummary ChangeKind = "set_summary"
)

// Change is one optimistic mutation. The store assigns ID.
type Change struct {
	ID      string
	Kind    ChangeKind
	EmailID string

	// ToColumnID and Index place the email for add, move, snooze and unsnooze.
	// A negative Index appends.
	ToColumnID string
	Index      int

	// SnoozeUntil is required for snooze. PriorColumnID and PriorOrder are
	// recorded by the store the first time the change is applied.
	SnoozeUntil   *time.Time
	PriorColumnID string
	PriorOrder    int

	Flag    bool
	Summary string

	// Email is the card inserted by ChangeAdd
	Email *domain.BoardEmail
}

// Move builds a move change
func Move(emailID, toColumnID string, index int) Change {
	return Change{Kind: ChangeMove, EmailID: emailID, ToColumnID: toColumnID, Index: index}
}

// Snooze builds a snooze change into snoozedColumnID
func Snooze(emailID, snoozedColumnID string, until time.Time) Change {
	return Change{Kind: ChangeSnooze, EmailID: emailID, ToColumnID: snoozedColumnID, Index: -1, SnoozeUntil: &until}
}

// Unsnooze builds a change that releases a hold into toColumnID at index
func Unsnooze(emailID, toColumnID string, index int) Change {
	return Change{Kind: ChangeUnsnooze, EmailID: emailID, ToColumnID: toColumnID, Index: index}
}

// Add builds a change inserting e into its ColumnID at index
func Add(e domain.BoardEmail, index int) Change {
	card := e.Clone()
	return Change{Kind: ChangeAdd, EmailID: e.EmailID, ToColumnID: e.ColumnID, Index: index, Email: &card}
}

// Remove builds a change removing an email from the board
func Remove(emailID string) Change {
	return Change{Kind: ChangeRemove, EmailID: emailID}
}

// SetRead builds a read flag change
func SetRead(emailID string, read bool) Change {
	return Change{Kind: ChangeSetRead, EmailID: emailID, Flag: read}
}

// SetStarred builds a starred flag change
func SetStarred(emailID string, starred bool) Change {
	return Change{Kind: ChangeSetStarred, EmailID: emailID, Flag: starred}
}

// SetSummary builds a summary change
func SetSummary(emailID, summary string) Change {
	return Change{Kind: ChangeSetSummary, EmailID: emailID, Summary: summary}
}
