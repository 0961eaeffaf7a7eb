package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"ga03-kanban/internal/kanban/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBoard(t *testing.T) (*SQLiteStore, BoardAPI) {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "board.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	board := store.Board("u1")
	ctx := context.Background()
	for _, col := range domain.DefaultColumns("u1") {
		_, err := board.CreateColumn(ctx, col)
		require.NoError(t, err)
	}
	return store, board
}

func addCards(t *testing.T, board BoardAPI, columnID string, ids ...string) {
	t.Helper()
	for _, id := range ids {
		err := board.AddEmail(context.Background(), domain.BoardEmail{
			EmailID:    id,
			ColumnID:   columnID,
			Subject:    "subject " + id,
			ReceivedAt: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
		}, -1)
		require.NoError(t, err)
	}
}

func columnIDs(t *testing.T, board BoardAPI, columnID string) []string {
	t.Helper()
	snap, err := board.GetBoard(context.Background(), domain.BoardFilter{})
	require.NoError(t, err)
	out := []string{}
	for i, e := range snap.EmailsByColumn[columnID] {
		assert.Equal(t, i, e.OrderInColumn)
		out = append(out, e.EmailID)
	}
	return out
}

func TestSQLiteBoard_Columns(t *testing.T) {
	_, board := newTestBoard(t)
	ctx := context.Background()

	cols, err := board.ListColumns(ctx)
	require.NoError(t, err)
	require.Len(t, cols, 5)
	assert.Equal(t, "inbox", cols[0].ID)
	assert.Equal(t, domain.ColumnTypeSnoozed, cols[4].Type)
	assert.True(t, cols[1].IsDefault)
	assert.Equal(t, domain.StringArray{"INBOX"}, cols[1].RemoveLabelsOnMove)

	name := "Waiting"
	updated, err := board.UpdateColumn(ctx, "in_progress", domain.ColumnPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Waiting", updated.Name)

	_, err = board.UpdateColumn(ctx, "ghost", domain.ColumnPatch{Name: &name})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestSQLiteBoard_ReorderColumnsIsAtomic(t *testing.T) {
	_, board := newTestBoard(t)
	ctx := context.Background()

	err := board.ReorderColumns(ctx, []string{"todo", "ghost", "inbox", "in_progress", "done", "snoozed"})
	assert.ErrorIs(t, err, domain.ErrConflict)
	cols, err := board.ListColumns(ctx)
	require.NoError(t, err)
	assert.Equal(t, "inbox", cols[0].ID)
	assert.Equal(t, 0, cols[0].Order)
	assert.Equal(t, "todo", cols[1].ID)
	assert.Equal(t, 1, cols[1].Order)

	require.NoError(t, board.ReorderColumns(ctx, []string{"snoozed", "done", "in_progress", "todo", "inbox"}))
	cols, err = board.ListColumns(ctx)
	require.NoError(t, err)
	for i, id := range []string{"snoozed", "done", "in_progress", "todo", "inbox"} {
		assert.Equal(t, id, cols[i].ID)
		assert.Equal(t, i, cols[i].Order)
	}
}

func TestSQLiteBoard_MoveKeepsDenseOrder(t *testing.T) {
	_, board := newTestBoard(t)
	ctx := context.Background()
	addCards(t, board, "inbox", "a", "b", "c")
	addCards(t, board, "todo", "d")

	require.NoError(t, board.MoveEmail(ctx, "b", "todo", 0))
	assert.Equal(t, []string{"a", "c"}, columnIDs(t, board, "inbox"))
	assert.Equal(t, []string{"b", "d"}, columnIDs(t, board, "todo"))

	require.NoError(t, board.MoveEmail(ctx, "d", "todo", 0))
	assert.Equal(t, []string{"d", "b"}, columnIDs(t, board, "todo"))

	assert.ErrorIs(t, board.MoveEmail(ctx, "zz", "todo", 0), domain.ErrEmailGone)
	assert.ErrorIs(t, board.MoveEmail(ctx, "a", "ghost", 0), domain.ErrConflict)
}

func TestSQLiteBoard_AddTwiceConflicts(t *testing.T) {
	_, board := newTestBoard(t)
	addCards(t, board, "inbox", "a")
	err := board.AddEmail(context.Background(), domain.BoardEmail{EmailID: "a", ColumnID: "todo"}, 0)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestSQLiteBoard_SnoozeRoundTrip(t *testing.T) {
	store, board := newTestBoard(t)
	ctx := context.Background()
	addCards(t, board, "inbox", "a", "b", "c")
	until := time.Now().Add(time.Hour).UTC().Truncate(time.Second)

	require.NoError(t, board.SnoozeEmail(ctx, "b", "snoozed", "inbox", 1, until))
	assert.ErrorIs(t, board.SnoozeEmail(ctx, "b", "snoozed", "inbox", 1, until), domain.ErrAlreadySnoozed)

	held, err := board.GetEmail(ctx, "b")
	require.NoError(t, err)
	require.NotNil(t, held.SnoozeUntil)
	assert.True(t, held.SnoozeUntil.Equal(until))
	assert.Equal(t, "inbox", held.PriorColumnID)

	users, err := store.UsersWithHolds(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, users)

	restored, err := board.UnsnoozeEmail(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "inbox", restored)
	assert.Equal(t, []string{"a", "b", "c"}, columnIDs(t, board, "inbox"))

	back, err := board.GetEmail(ctx, "b")
	require.NoError(t, err)
	assert.Nil(t, back.SnoozeUntil)
	assert.Empty(t, back.PriorColumnID)

	_, err = board.UnsnoozeEmail(ctx, "b")
	assert.ErrorIs(t, err, domain.ErrNotSnoozed)
}

func TestSQLiteBoard_UnsnoozeFallsBackToInbox(t *testing.T) {
	_, board := newTestBoard(t)
	ctx := context.Background()
	_, err := board.CreateColumn(ctx, &domain.Column{ID: "later", Name: "Later", Type: domain.ColumnTypeCustom, Order: 9})
	require.NoError(t, err)
	addCards(t, board, "later", "a")

	require.NoError(t, board.SnoozeEmail(ctx, "a", "snoozed", "later", 0, time.Now().Add(time.Hour)))
	require.NoError(t, board.DeleteColumn(ctx, "later"))

	restored, err := board.UnsnoozeEmail(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "inbox", restored)
}

func TestSQLiteBoard_DeleteColumnRefusesNonEmpty(t *testing.T) {
	_, board := newTestBoard(t)
	addCards(t, board, "done", "a")
	assert.ErrorIs(t, board.DeleteColumn(context.Background(), "done"), domain.ErrConflict)
}

func TestSQLiteBoard_FlagsAndFilter(t *testing.T) {
	_, board := newTestBoard(t)
	ctx := context.Background()
	addCards(t, board, "inbox", "a", "b")

	read, summary := true, "lunch plans"
	require.NoError(t, board.UpdateFlags(ctx, "a", domain.FlagPatch{IsRead: &read, Summary: &summary}))

	snap, err := board.GetBoard(ctx, domain.BoardFilter{UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, snap.EmailsByColumn["inbox"], 1)
	assert.Equal(t, "b", snap.EmailsByColumn["inbox"][0].EmailID)

	a, err := board.GetEmail(ctx, "a")
	require.NoError(t, err)
	assert.True(t, a.IsRead)
	assert.Equal(t, "lunch plans", a.Summary)

	assert.ErrorIs(t, board.UpdateFlags(ctx, "zz", domain.FlagPatch{IsRead: &read}), domain.ErrEmailGone)
}

func TestSQLiteBoard_RemoveEmailCompacts(t *testing.T) {
	_, board := newTestBoard(t)
	ctx := context.Background()
	addCards(t, board, "inbox", "a", "b", "c")

	require.NoError(t, board.RemoveEmail(ctx, "a"))
	assert.Equal(t, []string{"b", "c"}, columnIDs(t, board, "inbox"))

	gone, err := board.GetEmail(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestSQLiteBoard_UsersAreIsolated(t *testing.T) {
	store, board := newTestBoard(t)
	addCards(t, board, "inbox", "a")

	other := store.Board("u2")
	cols, err := other.ListColumns(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cols)

	e, err := other.GetEmail(context.Background(), "a")
	require.NoError(t, err)
	assert.Nil(t, e)
}
