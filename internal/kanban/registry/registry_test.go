package registry

import (
	"testing"

	"ga03-kanban/internal/kanban/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDefaultRegistry() *Registry {
	return New(domain.DefaultColumns("u1")...)
}

func TestRegistry_ListIsOrdered(t *testing.T) {
	r := newDefaultRegistry()
	assert.Equal(t, []string{"inbox", "todo", "in_progress", "done", "snoozed"}, r.IDs())
}

func TestRegistry_ReplaceDeduplicatesByID(t *testing.T) {
	r := New(
		&domain.Column{ID: "a", Name: "first", Order: 0},
		&domain.Column{ID: "a", Name: "second", Order: 0},
	)
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, "second", r.Get("a").Name)
}

func TestRegistry_Validate(t *testing.T) {
	r := newDefaultRegistry()

	tests := []struct {
		name    string
		col     *domain.Column
		wantErr string
	}{
		{"nil", nil, "column definition is required"},
		{"empty_name", &domain.Column{ID: "x", Name: "  ", Order: 10}, "column name cannot be empty"},
		{"bad_type", &domain.Column{ID: "x", Name: "X", Type: "WEIRD", Order: 10}, "unknown column type"},
		{"duplicate_order", &domain.Column{ID: "x", Name: "X", Order: 1}, "order 1 is already used"},
		{"second_inbox", &domain.Column{ID: "x", Name: "X", Type: domain.ColumnTypeInbox, Order: 10}, "a INBOX column already exists"},
		{"default_type_change", &domain.Column{ID: "todo", Name: "To Do", Type: domain.ColumnTypeCustom, Order: 1}, "cannot change the type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Validate(tt.col)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRegistry_CustomColumnsMayRepeatType(t *testing.T) {
	r := newDefaultRegistry()
	_, err := r.Put(&domain.Column{ID: "c1", Name: "Waiting", Order: 10})
	require.NoError(t, err)
	_, err = r.Put(&domain.Column{ID: "c2", Name: "Later", Order: 11})
	require.NoError(t, err)
	assert.Equal(t, 7, r.Len())
}

func TestRegistry_PutNormalizesLabels(t *testing.T) {
	r := newDefaultRegistry()
	c, err := r.Put(&domain.Column{
		ID:                 "c1",
		Name:               " Receipts ",
		Order:              10,
		GmailLabelID:       "L1",
		AddLabelsOnMove:    domain.StringArray{"L1", "L2", "L2", ""},
		RemoveLabelsOnMove: domain.StringArray{"INBOX", "INBOX"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Receipts", c.Name)
	assert.Equal(t, domain.ColumnTypeCustom, c.Type)
	assert.Equal(t, domain.StringArray{"L2"}, c.AddLabelsOnMove)
	assert.Equal(t, domain.StringArray{"INBOX"}, c.RemoveLabelsOnMove)
}

func TestRegistry_UpdateKeepsDefaultFlag(t *testing.T) {
	r := newDefaultRegistry()
	c, err := r.Put(&domain.Column{ID: "todo", Name: "Next", Type: domain.ColumnTypeTodo, Order: 1})
	require.NoError(t, err)
	assert.True(t, c.IsDefault)
	assert.Equal(t, "Next", r.Get("todo").Name)
}

func TestRegistry_Remove(t *testing.T) {
	r := newDefaultRegistry()
	_, err := r.Put(&domain.Column{ID: "c1", Name: "Custom", Order: 10})
	require.NoError(t, err)

	assert.ErrorIs(t, r.Remove("inbox"), domain.ErrDefaultColumn)
	assert.ErrorIs(t, r.Remove("missing"), domain.ErrColumnNotFound)
	require.NoError(t, r.Remove("c1"))
	assert.Nil(t, r.Get("c1"))
}

func TestRegistry_RemoveKeepsLastColumn(t *testing.T) {
	r := New(&domain.Column{ID: "only", Name: "Only", Order: 0})
	assert.ErrorIs(t, r.Remove("only"), domain.ErrLastColumn)
}

func TestRegistry_Fallback(t *testing.T) {
	r := New(
		&domain.Column{ID: "backlog", Name: "Backlog", Type: domain.ColumnTypeInbox, Order: 0},
		&domain.Column{ID: "c1", Name: "Custom", Order: 1},
	)
	assert.Equal(t, "backlog", r.Fallback("c1").ID)
	assert.Nil(t, r.Fallback("backlog"))

	r = newDefaultRegistry()
	assert.Equal(t, "inbox", r.Fallback("todo").ID)
	assert.Equal(t, "snoozed", r.Snoozed().ID)
	assert.True(t, r.IsSnoozed("snoozed"))
	assert.False(t, r.IsSnoozed("inbox"))
}

func TestRegistry_GetReturnsCopy(t *testing.T) {
	r := newDefaultRegistry()
	c := r.Get("todo")
	c.Name = "mutated"
	c.RemoveLabelsOnMove[0] = "X"
	assert.Equal(t, "To Do", r.Get("todo").Name)
	assert.Equal(t, domain.StringArray{"INBOX"}, r.Get("todo").RemoveLabelsOnMove)
}
