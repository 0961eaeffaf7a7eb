package board

import (
	"testing"
	"time"

	"ga03-kanban/internal/kanban/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func card(id string, received time.Time) domain.BoardEmail {
	return domain.BoardEmail{EmailID: id, Subject: "subject " + id, FromEmail: id + "@example.com", ReceivedAt: received}
}

// seededStore builds inbox [a b c], todo [d], empty done and snoozed
func seededStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	s.Reconcile(domain.BoardSnapshot{
		Columns: domain.DefaultColumns("u1"),
		EmailsByColumn: map[string][]domain.BoardEmail{
			"inbox": {card("a", t0), card("b", t0.Add(time.Hour)), card("c", t0.Add(2*time.Hour))},
			"todo":  {card("d", t0.Add(3*time.Hour))},
		},
	})
	require.NoError(t, s.CheckInvariants())
	return s
}

func ids(cards []domain.BoardEmail) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.EmailID
	}
	return out
}

func TestStore_ReconcileOrdersByServerOrder(t *testing.T) {
	s := NewStore()
	a, b := card("a", t0), card("b", t0)
	a.OrderInColumn, b.OrderInColumn = 1, 0
	s.Reconcile(domain.BoardSnapshot{
		Columns:        domain.DefaultColumns("u1"),
		EmailsByColumn: map[string][]domain.BoardEmail{"inbox": {a, b}},
	})
	assert.Equal(t, []string{"b", "a"}, ids(s.EmailsIn("inbox")))
	assert.Len(t, s.Snapshot(), 5)
}

func TestStore_ReconcileDropsDuplicates(t *testing.T) {
	s := NewStore()
	s.Reconcile(domain.BoardSnapshot{
		Columns: domain.DefaultColumns("u1"),
		EmailsByColumn: map[string][]domain.BoardEmail{
			"inbox": {card("a", t0)},
			"todo":  {card("a", t0)},
		},
	})
	require.NoError(t, s.CheckInvariants())
	col, ok := s.ColumnOf("a")
	require.True(t, ok)
	assert.Equal(t, "inbox", col)
}

func TestStore_ApplyOptimisticMove(t *testing.T) {
	s := seededStore(t)

	c, err := s.ApplyOptimistic(Move("b", "todo", 0))
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, 1, s.Pending())

	assert.Equal(t, []string{"a", "c"}, ids(s.EmailsIn("inbox")))
	assert.Equal(t, []string{"b", "d"}, ids(s.EmailsIn("todo")))
	require.NoError(t, s.CheckInvariants())
}

func TestStore_RollbackRestoresExactPosition(t *testing.T) {
	s := seededStore(t)
	before := s.Snapshot()

	c, err := s.ApplyOptimistic(Move("b", "todo", -1))
	require.NoError(t, err)
	require.NoError(t, s.Rollback(c.ID))

	assert.Equal(t, before, s.Snapshot())
	e, _ := s.Get("b")
	assert.Equal(t, "inbox", e.ColumnID)
	assert.Equal(t, 1, e.OrderInColumn)
	assert.Zero(t, s.Pending())
}

func TestStore_RollbackKeepsOtherPendingChanges(t *testing.T) {
	s := seededStore(t)

	first, err := s.ApplyOptimistic(Move("a", "done", -1))
	require.NoError(t, err)
	_, err = s.ApplyOptimistic(Move("c", "done", -1))
	require.NoError(t, err)

	require.NoError(t, s.Rollback(first.ID))
	assert.Equal(t, []string{"a", "b"}, ids(s.EmailsIn("inbox")))
	assert.Equal(t, []string{"c"}, ids(s.EmailsIn("done")))
	assert.Equal(t, 1, s.Pending())
}

func TestStore_CommitFoldsIntoBase(t *testing.T) {
	s := seededStore(t)
	c, err := s.ApplyOptimistic(Move("a", "todo", -1))
	require.NoError(t, err)
	require.NoError(t, s.Commit(c.ID))
	assert.Zero(t, s.Pending())

	assert.ErrorIs(t, s.Rollback(c.ID), ErrUnknownChange)
	assert.Equal(t, []string{"d", "a"}, ids(s.EmailsIn("todo")))
}

func TestStore_ReconcileReappliesPending(t *testing.T) {
	s := seededStore(t)
	_, err := s.ApplyOptimistic(Move("a", "done", -1))
	require.NoError(t, err)

	// Server still has a in inbox and dropped c.
	s.Reconcile(domain.BoardSnapshot{
		Columns: domain.DefaultColumns("u1"),
		EmailsByColumn: map[string][]domain.BoardEmail{
			"inbox": {card("a", t0), card("b", t0)},
		},
	})
	assert.Equal(t, []string{"b"}, ids(s.EmailsIn("inbox")))
	assert.Equal(t, []string{"a"}, ids(s.EmailsIn("done")))
	_, ok := s.Get("c")
	assert.False(t, ok)
	assert.Equal(t, 1, s.Pending())
	require.NoError(t, s.CheckInvariants())
}

func TestStore_ReconcileDropsPendingForVanishedEmail(t *testing.T) {
	s := seededStore(t)
	_, err := s.ApplyOptimistic(Move("a", "done", -1))
	require.NoError(t, err)

	s.Reconcile(domain.BoardSnapshot{Columns: domain.DefaultColumns("u1")})
	assert.Zero(t, s.Pending())
	assert.Empty(t, s.Documents())
}

func TestStore_ReconcileEmailTakesServerRecord(t *testing.T) {
	s := seededStore(t)
	_, err := s.ApplyOptimistic(Move("a", "done", -1))
	require.NoError(t, err)
	_, err = s.ApplyOptimistic(SetRead("a", true))
	require.NoError(t, err)

	server := card("a", t0)
	server.ColumnID = "in_progress"
	s.ReconcileEmail("a", &server)

	assert.Zero(t, s.Pending())
	e, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, "in_progress", e.ColumnID)
	assert.False(t, e.IsRead)

	s.ReconcileEmail("b", nil)
	_, ok = s.Get("b")
	assert.False(t, ok)
	require.NoError(t, s.CheckInvariants())
}

func TestStore_SnoozeRecordsPriorAndUnsnoozeRestores(t *testing.T) {
	s := seededStore(t)
	until := t0.Add(time.Hour)

	c, err := s.ApplyOptimistic(Snooze("b", "snoozed", until))
	require.NoError(t, err)
	assert.Equal(t, "inbox", c.PriorColumnID)
	assert.Equal(t, 1, c.PriorOrder)

	e, _ := s.Get("b")
	assert.Equal(t, "snoozed", e.ColumnID)
	require.NotNil(t, e.SnoozeUntil)
	assert.True(t, e.SnoozeUntil.Equal(until))
	require.NoError(t, s.CheckInvariants())

	_, err = s.ApplyOptimistic(Snooze("b", "snoozed", until))
	assert.ErrorIs(t, err, domain.ErrAlreadySnoozed)

	_, err = s.ApplyOptimistic(Unsnooze("b", e.PriorColumnID, e.PriorOrder))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(s.EmailsIn("inbox")))
	e, _ = s.Get("b")
	assert.Nil(t, e.SnoozeUntil)
	assert.Empty(t, e.PriorColumnID)

	_, err = s.ApplyOptimistic(Unsnooze("b", "inbox", 0))
	assert.ErrorIs(t, err, domain.ErrNotSnoozed)
}

func TestStore_SnoozeRejectsNonSnoozeColumn(t *testing.T) {
	s := seededStore(t)
	_, err := s.ApplyOptimistic(Snooze("a", "todo", t0))
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Zero(t, s.Pending())
}

func TestStore_MoveClearsSnoozeFields(t *testing.T) {
	s := seededStore(t)
	_, err := s.ApplyOptimistic(Snooze("a", "snoozed", t0))
	require.NoError(t, err)
	_, err = s.ApplyOptimistic(Move("a", "done", -1))
	require.NoError(t, err)

	e, _ := s.Get("a")
	assert.Nil(t, e.SnoozeUntil)
	assert.Empty(t, e.PriorColumnID)
	require.NoError(t, s.CheckInvariants())
}

func TestStore_RejectedChangesLeaveStateUntouched(t *testing.T) {
	s := seededStore(t)
	before := s.Snapshot()

	tests := []struct {
		name    string
		change  Change
		wantErr error
	}{
		{"unknown_email", Move("zz", "todo", 0), domain.ErrEmailNotOnBoard},
		{"unknown_column", Move("a", "nowhere", 0), domain.ErrColumnNotFound},
		{"duplicate_add", Add(domain.BoardEmail{EmailID: "a", ColumnID: "todo"}, 0), domain.ErrValidation},
		{"unknown_kind", Change{Kind: "teleport", EmailID: "a"}, domain.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.ApplyOptimistic(tt.change)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, before, s.Snapshot())
		})
	}
}

func TestStore_AddRemoveAndFlags(t *testing.T) {
	s := seededStore(t)

	_, err := s.ApplyOptimistic(Add(domain.BoardEmail{EmailID: "e", ColumnID: "todo"}, 0))
	require.NoError(t, err)
	assert.Equal(t, []string{"e", "d"}, ids(s.EmailsIn("todo")))

	_, err = s.ApplyOptimistic(SetStarred("e", true))
	require.NoError(t, err)
	_, err = s.ApplyOptimistic(SetSummary("e", "short"))
	require.NoError(t, err)
	e, _ := s.Get("e")
	assert.True(t, e.IsStarred)
	assert.Equal(t, "short", e.Summary)

	_, err = s.ApplyOptimistic(Remove("d"))
	require.NoError(t, err)
	assert.Equal(t, []string{"e"}, ids(s.EmailsIn("todo")))
	require.NoError(t, s.CheckInvariants())
}

func TestStore_RemoveColumn(t *testing.T) {
	s := seededStore(t)
	assert.ErrorIs(t, s.RemoveColumn("todo"), domain.ErrValidation)
	assert.ErrorIs(t, s.RemoveColumn("ghost"), domain.ErrColumnNotFound)

	s.PutColumn(&domain.Column{ID: "custom", Type: domain.ColumnTypeCustom, Order: 9})
	require.NoError(t, s.RemoveColumn("custom"))
	_, present := s.Snapshot()["custom"]
	assert.False(t, present)
}

func TestStore_ExpiredHolds(t *testing.T) {
	s := seededStore(t)
	_, err := s.ApplyOptimistic(Snooze("a", "snoozed", t0.Add(2*time.Hour)))
	require.NoError(t, err)
	_, err = s.ApplyOptimistic(Snooze("b", "snoozed", t0.Add(time.Hour)))
	require.NoError(t, err)
	_, err = s.ApplyOptimistic(Snooze("c", "snoozed", t0.Add(5*time.Hour)))
	require.NoError(t, err)

	assert.Empty(t, s.ExpiredHolds("snoozed", t0))
	assert.Equal(t, []string{"b"}, ids(s.ExpiredHolds("snoozed", t0.Add(time.Hour))))
	assert.Equal(t, []string{"b", "a"}, ids(s.ExpiredHolds("snoozed", t0.Add(3*time.Hour))))
}

func TestStore_DocumentsFollowBoardOrder(t *testing.T) {
	s := seededStore(t)
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(s.Documents()))
}

func TestStore_ProjectDoesNotMutate(t *testing.T) {
	s := seededStore(t)
	_, err := s.ApplyOptimistic(SetRead("b", true))
	require.NoError(t, err)
	before := s.Snapshot()

	unread := s.Project(domain.BoardFilter{UnreadOnly: true}, SortDateDesc)
	assert.Equal(t, []string{"c", "a"}, ids(unread["inbox"]))
	assert.Equal(t, before, s.Snapshot())

	asc := s.Project(domain.BoardFilter{}, SortDateAsc)
	assert.Equal(t, []string{"a", "b", "c"}, ids(asc["inbox"]))
}

func TestProject_SortBySender(t *testing.T) {
	x := domain.BoardEmail{EmailID: "x", FromName: "Zoe", ReceivedAt: t0}
	y := domain.BoardEmail{EmailID: "y", FromEmail: "adam@example.com", ReceivedAt: t0}
	z := domain.BoardEmail{EmailID: "z", FromName: "adam@example.com", ReceivedAt: t0.Add(time.Hour)}
	out := Project(map[string][]domain.BoardEmail{"c": {x, y, z}}, domain.BoardFilter{}, SortSender)
	assert.Equal(t, []string{"z", "y", "x"}, ids(out["c"]))
}
