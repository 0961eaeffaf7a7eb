// Package registry holds the ordered column definitions of one board and
// enforces the column invariants on every write.
package registry

import (
	"sort"
	"strings"
	"sync"

	"ga03-kanban/internal/kanban/domain"
)

// Registry is the in-memory column catalog of a board
type Registry struct {
	mu      sync.RWMutex
	columns map[string]*domain.Column
}

// New creates a registry holding cols
func New(cols ...*domain.Column) *Registry {
	r := &Registry{columns: make(map[string]*domain.Column)}
	r.Replace(cols)
	return r
}

// Replace swaps the whole catalog for cols, keeping the last definition of a duplicated id
func (r *Registry) Replace(cols []*domain.Column) {
	next := make(map[string]*domain.Column, len(cols))
	for _, c := range cols {
		if c == nil || c.ID == "" {
			continue
		}
		if existing, ok := next[c.ID]; ok && existing.UpdatedAt.After(c.UpdatedAt) {
			continue
		}
		next[c.ID] = Normalize(c)
	}
	r.mu.Lock()
	r.columns = next
	r.mu.Unlock()
}

// List returns the columns in display order
func (r *Registry) List() []*domain.Column {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedLocked()
}

func (r *Registry) sortedLocked() []*domain.Column {
	out := make([]*domain.Column, 0, len(r.columns))
	for _, c := range r.columns {
		out = append(out, c.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// IDs returns the column ids in display order
func (r *Registry) IDs() []string {
	cols := r.List()
	ids := make([]string, len(cols))
	for i, c := range cols {
		ids[i] = c.ID
	}
	return ids
}

// Len returns the number of columns
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.columns)
}

// Get returns a copy of the column with id, or nil
func (r *Registry) Get(id string) *domain.Column {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.columns[id].Clone()
}

// ByType returns the first column of type t in display order, or nil
func (r *Registry) ByType(t domain.ColumnType) *domain.Column {
	for _, c := range r.List() {
		if c.Type == t {
			return c
		}
	}
	return nil
}

// Snoozed returns the SNOOZED column, or nil when the board has none
func (r *Registry) Snoozed() *domain.Column {
	return r.ByType(domain.ColumnTypeSnoozed)
}

// IsSnoozed reports whether id names the SNOOZED column
func (r *Registry) IsSnoozed(id string) bool {
	c := r.Get(id)
	return c != nil && c.Type == domain.ColumnTypeSnoozed
}

// Fallback returns the column that receives emails whose column disappears:
// the first default INBOX column, else any INBOX column. excluding is never returned.
func (r *Registry) Fallback(excluding string) *domain.Column {
	var anyInbox *domain.Column
	for _, c := range r.List() {
		if c.ID == excluding || c.Type != domain.ColumnTypeInbox {
			continue
		}
		if c.IsDefault {
			return c
		}
		if anyInbox == nil {
			anyInbox = c
		}
	}
	return anyInbox
}

// Validate checks candidate against the rest of the catalog as if it were written.
// It returns the normalized column that would be stored.
func (r *Registry) Validate(candidate *domain.Column) (*domain.Column, error) {
	if candidate == nil {
		return nil, domain.Validationf("column definition is required")
	}
	c := Normalize(candidate)
	if strings.TrimSpace(c.Name) == "" {
		return nil, domain.Validationf("column name cannot be empty")
	}
	if !c.Type.Valid() {
		return nil, domain.Validationf("unknown column type %q", c.Type)
	}
	if c.Order < 0 {
		return nil, domain.Validationf("column order cannot be negative")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if existing, ok := r.columns[c.ID]; ok {
		if existing.IsDefault && existing.Type != c.Type {
			return nil, domain.Validationf("cannot change the type of default column %s", c.ID)
		}
		c.IsDefault = existing.IsDefault
	}
	for id, other := range r.columns {
		if id == c.ID {
			continue
		}
		if other.Order == c.Order {
			return nil, domain.Validationf("order %d is already used by column %s", c.Order, id)
		}
		if c.Type.IsStandard() && other.Type == c.Type {
			return nil, domain.Validationf("a %s column already exists (%s)", c.Type, id)
		}
	}
	return c, nil
}

// Put validates and stores col
func (r *Registry) Put(col *domain.Column) (*domain.Column, error) {
	c, err := r.Validate(col)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.columns[c.ID] = c
	r.mu.Unlock()
	return c.Clone(), nil
}

// CanRemove reports why id cannot be removed, or nil
func (r *Registry) CanRemove(id string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.columns[id]
	if !ok {
		return domain.ErrColumnNotFound
	}
	if c.IsDefault {
		return domain.ErrDefaultColumn
	}
	if len(r.columns) <= 1 {
		return domain.ErrLastColumn
	}
	return nil
}

// Remove deletes the column record
func (r *Registry) Remove(id string) error {
	if err := r.CanRemove(id); err != nil {
		return err
	}
	r.mu.Lock()
	delete(r.columns, id)
	r.mu.Unlock()
	return nil
}

// Normalize returns a copy of c with deduplicated label lists and the primary
// label stripped from the additional add set
func Normalize(c *domain.Column) *domain.Column {
	out := c.Clone()
	out.Name = strings.TrimSpace(out.Name)
	if out.Type == "" {
		out.Type = domain.ColumnTypeCustom
	}
	out.AddLabelsOnMove = dedupe(out.AddLabelsOnMove, out.GmailLabelID)
	out.RemoveLabelsOnMove = dedupe(out.RemoveLabelsOnMove, "")
	return out
}

func dedupe(ids domain.StringArray, skip string) domain.StringArray {
	out := domain.StringArray{}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || id == skip || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
