// Package board keeps the column/email placement of one board. Writes are
// optimistic: each change is applied to a view on top of the last server
// state and later committed or rolled back.
package board

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"ga03-kanban/internal/kanban/domain"

	"github.com/google/uuid"
)

// ErrUnknownChange is returned when a change id is not pending
var ErrUnknownChange = errors.New("unknown pending change")

type columnMeta struct {
	typ   domain.ColumnType
	order int
}

// Store is the single writer of board placement
type Store struct {
	mu      sync.RWMutex
	columns map[string]columnMeta
	base    *state
	view    *state
	pending []*Change
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		columns: make(map[string]columnMeta),
		base:    newState(),
		view:    newState(),
	}
}

// PutColumn registers a column or updates its type and position
func (s *Store) PutColumn(col *domain.Column) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.columns[col.ID] = columnMeta{typ: col.Type, order: col.Order}
	if _, ok := s.base.columns[col.ID]; !ok {
		s.base.columns[col.ID] = []string{}
	}
	if _, ok := s.view.columns[col.ID]; !ok {
		s.view.columns[col.ID] = []string{}
	}
}

// RemoveColumn drops a column that holds no email in either base or view
func (s *Store) RemoveColumn(columnID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.columns[columnID]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrColumnNotFound, columnID)
	}
	if n := len(s.view.columns[columnID]) + len(s.base.columns[columnID]); n > 0 {
		return domain.Validationf("column %s still holds emails", columnID)
	}
	delete(s.columns, columnID)
	delete(s.base.columns, columnID)
	delete(s.view.columns, columnID)
	return nil
}

func (s *Store) typesLocked() map[string]domain.ColumnType {
	types := make(map[string]domain.ColumnType, len(s.columns))
	for id, m := range s.columns {
		types[id] = m.typ
	}
	return types
}

// ApplyOptimistic validates c against the current view, records it as
// pending and returns it with its assigned id
func (s *Store) ApplyOptimistic(c Change) (Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.view.clone()
	if err := next.apply(&c, s.typesLocked()); err != nil {
		return Change{}, err
	}
	c.ID = uuid.New().String()
	pending := c
	s.pending = append(s.pending, &pending)
	s.view = next
	return c, nil
}

func (s *Store) takePendingLocked(changeID string) *Change {
	for i, c := range s.pending {
		if c.ID == changeID {
			s.pending = append(s.pending[:i:i], s.pending[i+1:]...)
			return c
		}
	}
	return nil
}

// Commit folds a confirmed change into the base state
func (s *Store) Commit(changeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.takePendingLocked(changeID)
	if c == nil {
		return fmt.Errorf("%w: %s", ErrUnknownChange, changeID)
	}
	if err := s.base.apply(c, s.typesLocked()); err != nil {
		// Base moved underneath; the next reconcile brings server truth.
		log.Printf("[BoardStore] Change %s (%s %s) no longer applies to base: %v", c.ID, c.Kind, c.EmailID, err)
	}
	s.recomputeLocked()
	return nil
}

// Rollback drops a pending change; the view returns to base plus the remaining pending changes
func (s *Store) Rollback(changeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.takePendingLocked(changeID) == nil {
		return fmt.Errorf("%w: %s", ErrUnknownChange, changeID)
	}
	s.recomputeLocked()
	return nil
}

// recomputeLocked rebuilds the view and drops pending changes that no longer apply
func (s *Store) recomputeLocked() {
	types := s.typesLocked()
	view := s.base.clone()
	kept := s.pending[:0:0]
	for _, c := range s.pending {
		if err := view.apply(c, types); err != nil {
			log.Printf("[BoardStore] Dropping pending change %s (%s %s): %v", c.ID, c.Kind, c.EmailID, err)
			continue
		}
		kept = append(kept, c)
	}
	s.pending = kept
	s.view = view
}

// Reconcile replaces the base with server truth and re-applies pending changes
func (s *Store) Reconcile(snap domain.BoardSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap.Columns != nil {
		s.columns = make(map[string]columnMeta, len(snap.Columns))
		for _, c := range snap.Columns {
			s.columns[c.ID] = columnMeta{typ: c.Type, order: c.Order}
		}
	}

	base := newState()
	for id := range s.columns {
		base.columns[id] = []string{}
	}
	for columnID, emails := range snap.EmailsByColumn {
		if _, ok := base.columns[columnID]; !ok && len(emails) > 0 {
			log.Printf("[BoardStore] Server returned %d emails for unknown column %s", len(emails), columnID)
		}
	}
	for _, columnID := range s.columnOrderLocked() {
		emails := snap.EmailsByColumn[columnID]
		sorted := append([]domain.BoardEmail{}, emails...)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].OrderInColumn < sorted[j].OrderInColumn })
		for _, e := range sorted {
			if _, dup := base.emails[e.EmailID]; dup {
				log.Printf("[BoardStore] Email %s listed twice by server, keeping first placement", e.EmailID)
				continue
			}
			card := e.Clone()
			card.ColumnID = columnID
			if s.columns[columnID].typ != domain.ColumnTypeSnoozed {
				clearHold(&card)
			}
			base.attach(card, -1)
		}
	}
	s.base = base
	s.recomputeLocked()
}

// ReconcileEmail discards every pending change of emailID and takes the
// server record. A nil record removes the email.
func (s *Store) ReconcileEmail(emailID string, server *domain.BoardEmail) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.pending[:0:0]
	for _, c := range s.pending {
		if c.EmailID != emailID {
			kept = append(kept, c)
		}
	}
	s.pending = kept

	s.base.detach(emailID)
	delete(s.base.emails, emailID)
	if server != nil {
		if _, ok := s.base.columns[server.ColumnID]; ok {
			card := server.Clone()
			card.EmailID = emailID
			if s.columns[card.ColumnID].typ != domain.ColumnTypeSnoozed {
				clearHold(&card)
			}
			s.base.attach(card, server.OrderInColumn)
		} else {
			log.Printf("[BoardStore] Server placed %s in unknown column %s, dropping locally", emailID, server.ColumnID)
		}
	}
	s.recomputeLocked()
}

// Pending returns how many changes await confirmation
func (s *Store) Pending() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pending)
}

// columnOrderLocked lists column ids by display order
func (s *Store) columnOrderLocked() []string {
	ids := make([]string, 0, len(s.columns))
	for id := range s.columns {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := s.columns[ids[i]], s.columns[ids[j]]
		if a.order != b.order {
			return a.order < b.order
		}
		return ids[i] < ids[j]
	})
	return ids
}

// Snapshot returns the current view grouped by column. Every known column is present.
func (s *Store) Snapshot() map[string][]domain.BoardEmail {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]domain.BoardEmail, len(s.view.columns))
	for columnID, ids := range s.view.columns {
		cards := make([]domain.BoardEmail, 0, len(ids))
		for _, id := range ids {
			cards = append(cards, s.view.emails[id].Clone())
		}
		out[columnID] = cards
	}
	return out
}

// Get returns the current card for emailID
func (s *Store) Get(emailID string) (domain.BoardEmail, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.view.emails[emailID]
	return e.Clone(), ok
}

// ColumnOf returns the column currently holding emailID
func (s *Store) ColumnOf(emailID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.view.emails[emailID]
	return e.ColumnID, ok
}

// EmailsIn returns the cards of one column in order
func (s *Store) EmailsIn(columnID string) []domain.BoardEmail {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.view.columns[columnID]
	out := make([]domain.BoardEmail, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.view.emails[id].Clone())
	}
	return out
}

// Documents returns every card in board order, for local search
func (s *Store) Documents() []domain.BoardEmail {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.BoardEmail, 0, len(s.view.emails))
	for _, columnID := range s.columnOrderLocked() {
		for _, id := range s.view.columns[columnID] {
			out = append(out, s.view.emails[id].Clone())
		}
	}
	return out
}

// ExpiredHolds lists the snooze holds in snoozedColumnID due at now, earliest first
func (s *Store) ExpiredHolds(snoozedColumnID string, now time.Time) []domain.BoardEmail {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.BoardEmail
	for _, id := range s.view.columns[snoozedColumnID] {
		e := s.view.emails[id]
		if e.HoldExpired(snoozedColumnID, now) {
			out = append(out, e.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SnoozeUntil.Before(*out[j].SnoozeUntil) })
	return out
}

// CheckInvariants verifies the placement map of the current view
func (s *Store) CheckInvariants() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]string, len(s.view.emails))
	for columnID, ids := range s.view.columns {
		meta, known := s.columns[columnID]
		if !known {
			return fmt.Errorf("column %s is not registered", columnID)
		}
		for i, id := range ids {
			if other, dup := seen[id]; dup {
				return fmt.Errorf("email %s appears in %s and %s", id, other, columnID)
			}
			seen[id] = columnID
			e, ok := s.view.emails[id]
			if !ok {
				return fmt.Errorf("column %s lists unknown email %s", columnID, id)
			}
			if e.ColumnID != columnID {
				return fmt.Errorf("email %s is listed in %s but records %s", id, columnID, e.ColumnID)
			}
			if e.OrderInColumn != i {
				return fmt.Errorf("email %s has order %d at position %d", id, e.OrderInColumn, i)
			}
			if meta.typ != domain.ColumnTypeSnoozed && (e.SnoozeUntil != nil || e.PriorColumnID != "") {
				return fmt.Errorf("email %s carries snooze fields outside the snooze column", id)
			}
		}
	}
	if len(seen) != len(s.view.emails) {
		return fmt.Errorf("%d emails are not placed in any column", len(s.view.emails)-len(seen))
	}
	return nil
}
