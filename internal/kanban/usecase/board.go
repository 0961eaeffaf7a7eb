package usecase

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"ga03-kanban/internal/kanban/board"
	"ga03-kanban/internal/kanban/domain"
	"ga03-kanban/internal/kanban/registry"
	"ga03-kanban/internal/kanban/repository"
)

// Event types pushed to connected clients
const (
	EventEmailUpdate   = "email_update"
	EventSummaryUpdate = "summary_update"
	EventBoardUpdate   = "board_update"
)

// EventPublisher delivers real-time events to a user's open connections
type EventPublisher interface {
	SendToUser(userID, eventType string, data interface{})
}

// Options tune a board session
type Options struct {
	// DefaultSnooze is the hold applied when a card is dropped on the snooze column without a time
	DefaultSnooze time.Duration
	// Template returns the columns seeded into an empty board
	Template func(userID string) []*domain.Column
	Events   EventPublisher
	Now      func() time.Time
}

func (o Options) withDefaults() Options {
	if o.DefaultSnooze <= 0 {
		o.DefaultSnooze = time.Hour
	}
	if o.Template == nil {
		o.Template = domain.DefaultColumns
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Board is the engine of one user's Kanban board. It owns the column
// registry and the placement store and keeps them in step with the backend.
type Board struct {
	userID  string
	api     repository.BoardAPI
	labels  repository.LabelAPI
	columns *registry.Registry
	store   *board.Store
	emails  *keyedMutex
	colMu   sync.Mutex
	opts    Options

	lastUsed atomic.Int64
}

// NewBoard creates a board session. labels may be nil when the user has no
// connected mailbox; label effects are then skipped.
func NewBoard(userID string, api repository.BoardAPI, labels repository.LabelAPI, opts Options) *Board {
	return &Board{
		userID:  userID,
		api:     api,
		labels:  labels,
		columns: registry.New(),
		store:   board.NewStore(),
		emails:  newKeyedMutex(),
		opts:    opts.withDefaults(),
	}
}

func (b *Board) touch() {
	b.lastUsed.Store(b.opts.Now().UnixNano())
}

// IdleFor reports how long the board has gone without being requested
func (b *Board) IdleFor(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, b.lastUsed.Load()))
}

// Busy reports whether the board still has unconfirmed changes or snooze
// holds waiting to be released
func (b *Board) Busy() bool {
	if b.store.Pending() > 0 {
		return true
	}
	snoozed := b.SnoozedColumnID()
	return snoozed != "" && len(b.store.EmailsIn(snoozed)) > 0
}

// UserID returns the owner of the board
func (b *Board) UserID() string {
	return b.userID
}

// Columns returns the column definitions in display order
func (b *Board) Columns() []*domain.Column {
	return b.columns.List()
}

// SnoozedColumnID returns the id of the snooze column, or "" when the board has none
func (b *Board) SnoozedColumnID() string {
	if c := b.columns.Snoozed(); c != nil {
		return c.ID
	}
	return ""
}

// EmailsByColumn returns the current (optimistic) placement
func (b *Board) EmailsByColumn() map[string][]domain.BoardEmail {
	return b.store.Snapshot()
}

// View returns a filtered and sorted projection of the board
func (b *Board) View(filter domain.BoardFilter, order board.SortOrder) map[string][]domain.BoardEmail {
	return b.store.Project(filter, order)
}

// Email returns the current card of emailID
func (b *Board) Email(emailID string) (domain.BoardEmail, bool) {
	return b.store.Get(emailID)
}

// Documents returns every card, for local search
func (b *Board) Documents() []domain.BoardEmail {
	return b.store.Documents()
}

// CheckInvariants verifies the placement map
func (b *Board) CheckInvariants() error {
	return b.store.CheckInvariants()
}

// Sync loads the board from the backend, seeding default columns on first use
func (b *Board) Sync(ctx context.Context) error {
	b.colMu.Lock()
	defer b.colMu.Unlock()

	cols, err := b.api.ListColumns(ctx)
	if err != nil {
		return fmt.Errorf("failed to list columns: %w", domain.Classify(err))
	}
	if err := b.ensureDefaults(ctx, cols); err != nil {
		return err
	}

	snap, err := b.api.GetBoard(ctx, domain.BoardFilter{})
	if err != nil {
		return fmt.Errorf("failed to load board: %w", domain.Classify(err))
	}
	b.columns.Replace(snap.Columns)
	snap.Columns = b.columns.List()
	b.store.Reconcile(*snap)
	return nil
}

// ensureDefaults creates the template columns a board is missing. Standard
// types already present under another id are not duplicated.
func (b *Board) ensureDefaults(ctx context.Context, existing []*domain.Column) error {
	haveID := make(map[string]bool, len(existing))
	haveType := make(map[domain.ColumnType]bool, len(existing))
	usedOrder := make(map[int]bool, len(existing))
	for _, c := range existing {
		haveID[c.ID] = true
		haveType[c.Type] = true
		usedOrder[c.Order] = true
	}

	for _, def := range b.opts.Template(b.userID) {
		if haveID[def.ID] || (def.Type.IsStandard() && haveType[def.Type]) {
			continue
		}
		col := def.Clone()
		col.UserID = b.userID
		for usedOrder[col.Order] {
			col.Order++
		}
		if _, err := b.api.CreateColumn(ctx, registry.Normalize(col)); err != nil {
			log.Printf("[Board] Failed to create default column %s for %s: %v", col.ID, b.userID, err)
			return fmt.Errorf("failed to create default column %s: %w", col.ID, domain.Classify(err))
		}
		haveID[col.ID] = true
		haveType[col.Type] = true
		usedOrder[col.Order] = true
	}
	return nil
}

// Labels returns the mailbox label catalog
func (b *Board) Labels(ctx context.Context) ([]domain.Label, error) {
	if b.labels == nil {
		return nil, fmt.Errorf("%w: no mailbox connected", domain.ErrUnavailable)
	}
	labels, err := b.labels.ListLabels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list labels: %w", domain.Classify(err))
	}
	return labels, nil
}

func (b *Board) publish(eventType string, data map[string]interface{}) {
	if b.opts.Events == nil {
		return
	}
	b.opts.Events.SendToUser(b.userID, eventType, data)
}
