package board

import (
	"fmt"

	"ga03-kanban/internal/kanban/domain"
)

// state is one full placement map. Both the server base and the optimistic
// view are states; the reducer below is the only code that mutates them.
type state struct {
	columns map[string][]string
	emails  map[string]domain.BoardEmail
}

func newState() *state {
	return &state{
		columns: make(map[string][]string),
		emails:  make(map[string]domain.BoardEmail),
	}
}

func (s *state) clone() *state {
	out := &state{
		columns: make(map[string][]string, len(s.columns)),
		emails:  make(map[string]domain.BoardEmail, len(s.emails)),
	}
	for id, ids := range s.columns {
		out.columns[id] = append([]string{}, ids...)
	}
	for id, e := range s.emails {
		out.emails[id] = e.Clone()
	}
	return out
}

func (s *state) indexOf(columnID, emailID string) int {
	for i, id := range s.columns[columnID] {
		if id == emailID {
			return i
		}
	}
	return -1
}

// detach removes emailID from its column and renumbers the rest
func (s *state) detach(emailID string) {
	e, ok := s.emails[emailID]
	if !ok {
		return
	}
	ids := s.columns[e.ColumnID]
	if i := s.indexOf(e.ColumnID, emailID); i >= 0 {
		ids = append(ids[:i:i], ids[i+1:]...)
	}
	s.columns[e.ColumnID] = ids
	s.renumber(e.ColumnID)
}

// attach inserts e into its ColumnID at index; out-of-range indexes append
func (s *state) attach(e domain.BoardEmail, index int) {
	ids := s.columns[e.ColumnID]
	if index < 0 || index > len(ids) {
		index = len(ids)
	}
	next := make([]string, 0, len(ids)+1)
	next = append(next, ids[:index]...)
	next = append(next, e.EmailID)
	next = append(next, ids[index:]...)
	s.columns[e.ColumnID] = next
	s.emails[e.EmailID] = e
	s.renumber(e.ColumnID)
}

func (s *state) renumber(columnID string) {
	for i, id := range s.columns[columnID] {
		e := s.emails[id]
		if e.ColumnID == columnID {
			e.OrderInColumn = i
			s.emails[id] = e
		}
	}
}

func clearHold(e *domain.BoardEmail) {
	e.SnoozeUntil = nil
	e.PriorColumnID = ""
	e.PriorOrder = 0
}

// apply runs the reducer for c. It fills the prior placement of a snooze the
// first time it runs. On error the state is unchanged.
func (s *state) apply(c *Change, types map[string]domain.ColumnType) error {
	e, exists := s.emails[c.EmailID]

	switch c.Kind {
	case ChangeAdd:
		if c.Email == nil {
			return domain.Validationf("add change for %s carries no email", c.EmailID)
		}
		if exists {
			return domain.Validationf("email %s is already on the board", c.EmailID)
		}
		if _, ok := s.columns[c.ToColumnID]; !ok {
			return fmt.Errorf("%w: %s", domain.ErrColumnNotFound, c.ToColumnID)
		}
		card := c.Email.Clone()
		card.ColumnID = c.ToColumnID
		if types[c.ToColumnID] != domain.ColumnTypeSnoozed {
			clearHold(&card)
		}
		s.attach(card, c.Index)
		return nil
	}

	if !exists {
		return fmt.Errorf("%w: %s", domain.ErrEmailNotOnBoard, c.EmailID)
	}

	switch c.Kind {
	case ChangeRemove:
		s.detach(c.EmailID)
		delete(s.emails, c.EmailID)

	case ChangeMove, ChangeUnsnooze:
		if _, ok := s.columns[c.ToColumnID]; !ok {
			return fmt.Errorf("%w: %s", domain.ErrColumnNotFound, c.ToColumnID)
		}
		if c.Kind == ChangeUnsnooze && e.SnoozeUntil == nil && types[e.ColumnID] != domain.ColumnTypeSnoozed {
			return fmt.Errorf("%w: %s", domain.ErrNotSnoozed, c.EmailID)
		}
		s.detach(c.EmailID)
		e.ColumnID = c.ToColumnID
		clearHold(&e)
		s.attach(e, c.Index)

	case ChangeSnooze:
		if types[c.ToColumnID] != domain.ColumnTypeSnoozed {
			return domain.Validationf("column %s is not a snooze column", c.ToColumnID)
		}
		if c.SnoozeUntil == nil {
			return domain.Validationf("snooze of %s has no wake-up time", c.EmailID)
		}
		if e.ColumnID == c.ToColumnID {
			return fmt.Errorf("%w: %s", domain.ErrAlreadySnoozed, c.EmailID)
		}
		if c.PriorColumnID == "" {
			c.PriorColumnID = e.ColumnID
			c.PriorOrder = e.OrderInColumn
		}
		s.detach(c.EmailID)
		until := *c.SnoozeUntil
		e.ColumnID = c.ToColumnID
		e.SnoozeUntil = &until
		e.PriorColumnID = c.PriorColumnID
		e.PriorOrder = c.PriorOrder
		s.attach(e, -1)

	case ChangeSetRead:
		e.IsRead = c.Flag
		s.emails[c.EmailID] = e

	case ChangeSetStarred:
		e.IsStarred = c.Flag
		s.emails[c.EmailID] = e

	case ChangeSetSummary:
		e.Summary = c.Summary
		s.emails[c.EmailID] = e

	default:
		return domain.Validationf("unknown change kind %q", c.Kind)
	}
	return nil
}
