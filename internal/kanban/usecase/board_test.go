package usecase

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ga03-kanban/internal/kanban/domain"
	"ga03-kanban/internal/kanban/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyAPI wraps a real backend and injects failures or pauses on moves
type flakyAPI struct {
	repository.BoardAPI

	mu        sync.Mutex
	moveErr    error
	snoozeErr  error
	reorderErr error

	gate     chan struct{}
	entered  chan struct{}
	inFlight int32
	maxSeen  int32
	moves    int32
	reloads  int32
}

func (f *flakyAPI) GetEmail(ctx context.Context, emailID string) (*domain.BoardEmail, error) {
	atomic.AddInt32(&f.reloads, 1)
	return f.BoardAPI.GetEmail(ctx, emailID)
}

func (f *flakyAPI) MoveEmail(ctx context.Context, emailID, targetColumnID string, index int) error {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		seen := atomic.LoadInt32(&f.maxSeen)
		if n <= seen || atomic.CompareAndSwapInt32(&f.maxSeen, seen, n) {
			break
		}
	}
	atomic.AddInt32(&f.moves, 1)

	f.mu.Lock()
	err, gate, entered := f.moveErr, f.gate, f.entered
	f.mu.Unlock()
	if entered != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return err
	}
	return f.BoardAPI.MoveEmail(ctx, emailID, targetColumnID, index)
}

func (f *flakyAPI) SnoozeEmail(ctx context.Context, emailID, snoozedColumnID, priorColumnID string, priorOrder int, until time.Time) error {
	f.mu.Lock()
	err := f.snoozeErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.BoardAPI.SnoozeEmail(ctx, emailID, snoozedColumnID, priorColumnID, priorOrder, until)
}

func (f *flakyAPI) ReorderColumns(ctx context.Context, columnIDs []string) error {
	f.mu.Lock()
	err := f.reorderErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.BoardAPI.ReorderColumns(ctx, columnIDs)
}

type labelCall struct {
	EmailID string
	Add     []string
	Remove  []string
}

type fakeLabels struct {
	mu    sync.Mutex
	err   error
	calls []labelCall
}

func (f *fakeLabels) ApplyLabels(ctx context.Context, emailID string, add, remove []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, labelCall{EmailID: emailID, Add: add, Remove: remove})
	return f.err
}

func (f *fakeLabels) ListLabels(ctx context.Context) ([]domain.Label, error) {
	return []domain.Label{
		{ID: "INBOX", Name: "INBOX", Type: domain.LabelTypeSystem},
		{ID: "Label_1", Name: "Receipts", Type: domain.LabelTypeUser},
	}, nil
}

func (f *fakeLabels) Calls() []labelCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]labelCall{}, f.calls...)
}

type testBoard struct {
	*Board
	api    *flakyAPI
	labels *fakeLabels
	server repository.BoardAPI
}

func newTestBoard(t *testing.T, opts Options) *testBoard {
	t.Helper()
	store, err := repository.NewSQLiteStore(filepath.Join(t.TempDir(), "board.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	server := store.Board("u1")
	api := &flakyAPI{BoardAPI: server}
	labels := &fakeLabels{}
	b := NewBoard("u1", api, labels, opts)
	require.NoError(t, b.Sync(context.Background()))
	return &testBoard{Board: b, api: api, labels: labels, server: server}
}

func (tb *testBoard) add(t *testing.T, columnID string, ids ...string) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, tb.AddToBoard(context.Background(), domain.BoardEmail{
			EmailID:    id,
			ColumnID:   columnID,
			Subject:    "subject " + id,
			ReceivedAt: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
		}, -1))
	}
}

func (tb *testBoard) ids(columnID string) []string {
	out := []string{}
	for _, e := range tb.EmailsByColumn()[columnID] {
		out = append(out, e.EmailID)
	}
	return out
}

func (tb *testBoard) serverIDs(t *testing.T, columnID string) []string {
	t.Helper()
	snap, err := tb.server.GetBoard(context.Background(), domain.BoardFilter{})
	require.NoError(t, err)
	out := []string{}
	for _, e := range snap.EmailsByColumn[columnID] {
		out = append(out, e.EmailID)
	}
	return out
}

func TestPlanLabels(t *testing.T) {
	tests := []struct {
		name       string
		source     *domain.Column
		target     *domain.Column
		wantAdd    []string
		wantRemove []string
	}{
		{
			name:       "primary label swap",
			source:     &domain.Column{GmailLabelID: "L2"},
			target:     &domain.Column{GmailLabelID: "L1", RemoveLabelsOnMove: domain.StringArray{"INBOX"}},
			wantAdd:    []string{"L1"},
			wantRemove: []string{"INBOX", "L2"},
		},
		{
			name:       "same primary label is kept",
			source:     &domain.Column{GmailLabelID: "L1"},
			target:     &domain.Column{GmailLabelID: "L1"},
			wantAdd:    []string{"L1"},
			wantRemove: []string{},
		},
		{
			name:       "additional labels without duplicating the primary",
			source:     &domain.Column{},
			target:     &domain.Column{GmailLabelID: "L1", AddLabelsOnMove: domain.StringArray{"L1", "X", "X"}},
			wantAdd:    []string{"L1", "X"},
			wantRemove: []string{},
		},
		{
			name:       "added labels are never removed",
			source:     &domain.Column{GmailLabelID: "X"},
			target:     &domain.Column{AddLabelsOnMove: domain.StringArray{"X"}, RemoveLabelsOnMove: domain.StringArray{"X", "Y"}},
			wantAdd:    []string{"X"},
			wantRemove: []string{"Y"},
		},
		{
			name:       "no source",
			target:     &domain.Column{GmailLabelID: "L1"},
			wantAdd:    []string{"L1"},
			wantRemove: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			effect := PlanLabels(tt.source, tt.target)
			assert.Equal(t, tt.wantAdd, effect.Add)
			assert.Equal(t, tt.wantRemove, effect.Remove)
		})
	}
}

func TestSync_SeedsDefaultColumnsOnce(t *testing.T) {
	tb := newTestBoard(t, Options{})
	require.NoError(t, tb.Sync(context.Background()))

	cols := tb.Columns()
	require.Len(t, cols, 5)
	assert.Equal(t, "inbox", cols[0].ID)
	assert.Equal(t, "snoozed", tb.SnoozedColumnID())

	server, err := tb.server.ListColumns(context.Background())
	require.NoError(t, err)
	assert.Len(t, server, 5)
}

func TestMove_AppliesBoardAndLabels(t *testing.T) {
	tb := newTestBoard(t, Options{})
	tb.add(t, "inbox", "a", "b")

	result, err := tb.Move(context.Background(), MoveRequest{EmailID: "a", FromColumnID: "inbox", ToColumnID: "todo", Index: 0})
	require.NoError(t, err)
	assert.True(t, result.BoardApplied)
	assert.True(t, result.LabelsApplied)
	assert.Equal(t, []string{"IMPORTANT"}, result.Labels.Add)
	assert.Equal(t, []string{"INBOX"}, result.Labels.Remove)

	assert.Equal(t, []string{"b"}, tb.ids("inbox"))
	assert.Equal(t, []string{"a"}, tb.ids("todo"))
	assert.Equal(t, []string{"a"}, tb.serverIDs(t, "todo"))

	calls := tb.labels.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, labelCall{EmailID: "a", Add: []string{"IMPORTANT"}, Remove: []string{"INBOX"}}, calls[0])
	assert.NoError(t, tb.CheckInvariants())
	assert.Zero(t, tb.store.Pending())
}

func TestMove_FailureLeavesStoreUnchanged(t *testing.T) {
	tb := newTestBoard(t, Options{})
	tb.add(t, "inbox", "a", "b", "c")
	tb.add(t, "todo", "d")
	before := tb.EmailsByColumn()

	tb.api.moveErr = errors.New("dial tcp: connection reset")
	result, err := tb.Move(context.Background(), MoveRequest{EmailID: "b", ToColumnID: "todo", Index: 0})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransient)
	assert.False(t, result.BoardApplied)
	assert.Equal(t, before, tb.EmailsByColumn())
	assert.Empty(t, tb.labels.Calls())
	assert.Zero(t, tb.store.Pending())
}

func TestMove_ConflictReloadsEmailFromServer(t *testing.T) {
	tb := newTestBoard(t, Options{})
	tb.add(t, "inbox", "a", "b")
	require.NoError(t, tb.server.RemoveEmail(context.Background(), "a"))

	_, err := tb.Move(context.Background(), MoveRequest{EmailID: "a", ToColumnID: "done"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, ok := tb.Email("a")
	assert.False(t, ok)
	assert.Equal(t, []string{"b"}, tb.ids("inbox"))
	assert.NoError(t, tb.CheckInvariants())
}

func TestMove_LabelFailureReportsPartialMove(t *testing.T) {
	tb := newTestBoard(t, Options{})
	tb.add(t, "inbox", "a")
	tb.labels.err = errors.New("gmail unavailable")

	result, err := tb.Move(context.Background(), MoveRequest{EmailID: "a", ToColumnID: "done"})
	require.Error(t, err)

	var partial *domain.PartialMoveError
	require.True(t, errors.As(err, &partial))
	assert.True(t, partial.BoardApplied)
	assert.False(t, partial.LabelsApplied)
	assert.True(t, result.BoardApplied)
	assert.False(t, result.LabelsApplied)
	assert.ErrorIs(t, err, domain.ErrTransient)

	assert.Equal(t, []string{"a"}, tb.ids("done"))
	assert.Len(t, tb.labels.Calls(), 1)
}

func TestMove_ReorderInSameColumnHasNoLabelEffect(t *testing.T) {
	tb := newTestBoard(t, Options{})
	tb.add(t, "inbox", "a", "b", "c")

	result, err := tb.Move(context.Background(), MoveRequest{EmailID: "c", FromColumnID: "inbox", ToColumnID: "inbox", Index: 0})
	require.NoError(t, err)
	assert.True(t, result.Labels.Empty())
	assert.Equal(t, []string{"c", "a", "b"}, tb.ids("inbox"))
	assert.Equal(t, []string{"c", "a", "b"}, tb.serverIDs(t, "inbox"))
	assert.Empty(t, tb.labels.Calls())
}

func TestMove_StaleSourceColumnUsesBoardState(t *testing.T) {
	tb := newTestBoard(t, Options{})
	tb.add(t, "inbox", "a")

	result, err := tb.Move(context.Background(), MoveRequest{EmailID: "a", FromColumnID: "done", ToColumnID: "todo"})
	require.NoError(t, err)
	assert.Equal(t, "inbox", result.FromColumnID)
}

func TestMove_SameEmailIsSerialized(t *testing.T) {
	tb := newTestBoard(t, Options{})
	tb.add(t, "inbox", "a")

	gate := make(chan struct{})
	tb.api.gate = gate
	tb.api.entered = make(chan struct{}, 1)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := tb.Move(context.Background(), MoveRequest{EmailID: "a", ToColumnID: "todo"})
		assert.NoError(t, err)
	}()
	<-tb.api.entered

	go func() {
		defer wg.Done()
		_, err := tb.Move(context.Background(), MoveRequest{EmailID: "a", ToColumnID: "done"})
		assert.NoError(t, err)
	}()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&tb.api.moves))

	close(gate)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&tb.api.maxSeen))
	assert.Equal(t, []string{"a"}, tb.ids("done"))
	assert.Equal(t, []string{"a"}, tb.serverIDs(t, "done"))
	assert.NoError(t, tb.CheckInvariants())
}

func TestMove_ToSnoozeColumnDefaultsToOneHour(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	tb := newTestBoard(t, Options{Now: func() time.Time { return now }})
	tb.add(t, "inbox", "a")

	result, err := tb.Move(context.Background(), MoveRequest{EmailID: "a", ToColumnID: "snoozed"})
	require.NoError(t, err)
	require.NotNil(t, result.SnoozeUntil)
	assert.True(t, result.SnoozeUntil.Equal(now.Add(time.Hour)))

	card, ok := tb.Email("a")
	require.True(t, ok)
	assert.Equal(t, "snoozed", card.ColumnID)
	assert.Equal(t, "inbox", card.PriorColumnID)
}

func TestSnooze_UnsnoozeRestoresExactPosition(t *testing.T) {
	tb := newTestBoard(t, Options{})
	tb.add(t, "inbox", "a", "b", "c")
	ctx := context.Background()

	result, err := tb.Snooze(ctx, "b", time.Now().Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{"INBOX"}, result.Labels.Remove)
	assert.Equal(t, []string{"a", "c"}, tb.ids("inbox"))
	assert.Equal(t, []string{"b"}, tb.ids("snoozed"))

	restored, err := tb.Unsnooze(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "inbox", restored)
	assert.Equal(t, []string{"a", "b", "c"}, tb.ids("inbox"))
	assert.Equal(t, []string{"a", "b", "c"}, tb.serverIDs(t, "inbox"))

	card, _ := tb.Email("b")
	assert.Nil(t, card.SnoozeUntil)
	assert.Empty(t, card.PriorColumnID)
	assert.NoError(t, tb.CheckInvariants())

	calls := tb.labels.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, []string{"INBOX"}, calls[1].Add)
}

func TestSnooze_Rejections(t *testing.T) {
	tb := newTestBoard(t, Options{})
	tb.add(t, "inbox", "a")
	ctx := context.Background()
	before := tb.EmailsByColumn()

	_, err := tb.Snooze(ctx, "a", time.Now().Add(-time.Minute))
	assert.ErrorIs(t, err, domain.ErrSnoozeInPast)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, before, tb.EmailsByColumn())

	_, err = tb.Snooze(ctx, "zz", time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, domain.ErrEmailNotOnBoard)

	_, err = tb.Unsnooze(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrNotSnoozed)

	_, err = tb.Snooze(ctx, "a", time.Now().Add(time.Hour))
	require.NoError(t, err)
	_, err = tb.Snooze(ctx, "a", time.Now().Add(2*time.Hour))
	assert.ErrorIs(t, err, domain.ErrAlreadySnoozed)
}

func TestSnooze_BackendFailureRollsBack(t *testing.T) {
	tb := newTestBoard(t, Options{})
	tb.add(t, "inbox", "a", "b")
	before := tb.EmailsByColumn()

	tb.api.snoozeErr = errors.New("timeout")
	_, err := tb.Snooze(context.Background(), "a", time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, domain.ErrTransient)
	assert.Equal(t, before, tb.EmailsByColumn())
}

func TestSnooze_BackendRejectionReloadsOnlyOnConflict(t *testing.T) {
	tb := newTestBoard(t, Options{})
	tb.add(t, "inbox", "a")
	before := tb.EmailsByColumn()
	until := time.Now().Add(time.Hour)

	tb.api.snoozeErr = fmt.Errorf("%w: email a is already snoozed", domain.ErrValidation)
	_, err := tb.Snooze(context.Background(), "a", until)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, before, tb.EmailsByColumn())
	assert.Zero(t, atomic.LoadInt32(&tb.api.reloads))

	tb.api.snoozeErr = fmt.Errorf("%w: email a was moved elsewhere", domain.ErrConflict)
	_, err = tb.Snooze(context.Background(), "a", until)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, int32(1), atomic.LoadInt32(&tb.api.reloads))
}

func TestUnsnooze_FallsBackToInboxWhenPriorColumnIsGone(t *testing.T) {
	tb := newTestBoard(t, Options{})
	ctx := context.Background()
	later, err := tb.UpsertColumn(ctx, &domain.Column{Name: "Later"})
	require.NoError(t, err)
	tb.add(t, "inbox", "x")
	tb.add(t, later.ID, "a")

	_, err = tb.Snooze(ctx, "a", time.Now().Add(time.Hour))
	require.NoError(t, err)
	_, err = tb.DeleteColumn(ctx, later.ID)
	require.NoError(t, err)

	restored, err := tb.Unsnooze(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "inbox", restored)
	assert.Equal(t, []string{"x", "a"}, tb.ids("inbox"))
	assert.NoError(t, tb.CheckInvariants())
}

func TestRestoreToFallback(t *testing.T) {
	tb := newTestBoard(t, Options{})
	tb.add(t, "done", "a")

	restored, err := tb.RestoreToFallback(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "inbox", restored)
	assert.Equal(t, []string{"a"}, tb.ids("inbox"))
}

func TestDeleteColumn_RelocatesEveryEmail(t *testing.T) {
	tb := newTestBoard(t, Options{})
	ctx := context.Background()
	col, err := tb.UpsertColumn(ctx, &domain.Column{Name: "Receipts", GmailLabelID: "Label_1"})
	require.NoError(t, err)
	assert.Equal(t, 5, col.Order)
	tb.add(t, "inbox", "a")
	tb.add(t, col.ID, "x", "y", "z")

	fallback, err := tb.DeleteColumn(ctx, col.ID)
	require.NoError(t, err)
	assert.Equal(t, "inbox", fallback)

	assert.Equal(t, []string{"a", "x", "y", "z"}, tb.ids("inbox"))
	assert.Equal(t, []string{"a", "x", "y", "z"}, tb.serverIDs(t, "inbox"))
	for _, c := range tb.Columns() {
		assert.NotEqual(t, col.ID, c.ID)
	}
	server, err := tb.server.ListColumns(ctx)
	require.NoError(t, err)
	assert.Len(t, server, 5)
	assert.NoError(t, tb.CheckInvariants())

	for _, call := range tb.labels.Calls() {
		assert.Equal(t, []string{"INBOX"}, call.Add)
		assert.Equal(t, []string{"Label_1"}, call.Remove)
	}
}

func TestDeleteColumn_Rejections(t *testing.T) {
	tb := newTestBoard(t, Options{})
	ctx := context.Background()

	_, err := tb.DeleteColumn(ctx, "todo")
	assert.ErrorIs(t, err, domain.ErrDefaultColumn)

	_, err = tb.DeleteColumn(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrColumnNotFound)
}

func TestDeleteColumn_FailedRelocationKeepsColumn(t *testing.T) {
	tb := newTestBoard(t, Options{})
	ctx := context.Background()
	col, err := tb.UpsertColumn(ctx, &domain.Column{Name: "Later"})
	require.NoError(t, err)
	tb.add(t, col.ID, "a", "b")

	tb.api.moveErr = errors.New("connection refused")
	_, err = tb.DeleteColumn(ctx, col.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransient)

	assert.Equal(t, []string{"a", "b"}, tb.ids(col.ID))
	assert.Len(t, tb.Columns(), 6)
	assert.NoError(t, tb.CheckInvariants())
}

func TestUpsertColumn(t *testing.T) {
	tb := newTestBoard(t, Options{})
	ctx := context.Background()

	_, err := tb.UpsertColumn(ctx, &domain.Column{Name: "Second todo", Type: domain.ColumnTypeTodo})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = tb.UpsertColumn(ctx, &domain.Column{Name: "  "})
	assert.ErrorIs(t, err, domain.ErrValidation)

	todo := tb.Columns()[1]
	todo.Name = "Next up"
	todo.AddLabelsOnMove = domain.StringArray{"IMPORTANT", "Label_1"}
	updated, err := tb.UpsertColumn(ctx, todo)
	require.NoError(t, err)
	assert.Equal(t, "Next up", updated.Name)
	assert.Equal(t, domain.StringArray{"Label_1"}, updated.AddLabelsOnMove)
	assert.True(t, updated.IsDefault)

	todo.Type = domain.ColumnTypeDone
	_, err = tb.UpsertColumn(ctx, todo)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestUpdateColumn(t *testing.T) {
	tb := newTestBoard(t, Options{})
	ctx := context.Background()

	order := 2
	_, err := tb.UpdateColumn(ctx, "done", domain.ColumnPatch{Order: &order})
	assert.ErrorIs(t, err, domain.ErrValidation)

	color := "#ff0000"
	updated, err := tb.UpdateColumn(ctx, "done", domain.ColumnPatch{Color: &color})
	require.NoError(t, err)
	assert.Equal(t, "#ff0000", updated.Color)

	_, err = tb.UpdateColumn(ctx, "ghost", domain.ColumnPatch{Color: &color})
	assert.ErrorIs(t, err, domain.ErrColumnNotFound)
}

func TestReorderColumns(t *testing.T) {
	tb := newTestBoard(t, Options{})
	ctx := context.Background()

	cols, err := tb.ReorderColumns(ctx, []string{"snoozed", "done", "in_progress", "todo", "inbox"})
	require.NoError(t, err)
	require.Len(t, cols, 5)
	assert.Equal(t, "snoozed", cols[0].ID)
	assert.Equal(t, "inbox", cols[4].ID)

	server, err := tb.server.ListColumns(ctx)
	require.NoError(t, err)
	assert.Equal(t, "snoozed", server[0].ID)

	_, err = tb.ReorderColumns(ctx, []string{"inbox", "inbox", "todo", "done", "snoozed"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = tb.ReorderColumns(ctx, []string{"inbox"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestReorderColumns_FailureKeepsOrdersUnique(t *testing.T) {
	tb := newTestBoard(t, Options{})
	ctx := context.Background()
	before := tb.Columns()

	tb.api.reorderErr = errors.New("connection reset")
	_, err := tb.ReorderColumns(ctx, []string{"todo", "inbox", "in_progress", "done", "snoozed"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransient)

	assert.Equal(t, before, tb.Columns())
	server, err := tb.server.ListColumns(ctx)
	require.NoError(t, err)
	seen := map[int]string{}
	for _, col := range server {
		_, dup := seen[col.Order]
		assert.False(t, dup, "order %d used twice", col.Order)
		seen[col.Order] = col.ID
	}
	assert.Equal(t, "inbox", server[0].ID)

	tb.api.reorderErr = nil
	name := "Later"
	renamed, err := tb.UpdateColumn(ctx, "todo", domain.ColumnPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Later", renamed.Name)
}

func TestFlagsMirrorLabels(t *testing.T) {
	tb := newTestBoard(t, Options{})
	tb.add(t, "inbox", "a")
	ctx := context.Background()

	_, err := tb.SetRead(ctx, "a", true)
	require.NoError(t, err)
	_, err = tb.SetStarred(ctx, "a", true)
	require.NoError(t, err)
	require.NoError(t, tb.SetSummary(ctx, "a", "quarterly numbers"))

	calls := tb.labels.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, []string{"UNREAD"}, calls[0].Remove)
	assert.Equal(t, []string{"STARRED"}, calls[1].Add)

	server, err := tb.server.GetEmail(ctx, "a")
	require.NoError(t, err)
	assert.True(t, server.IsRead)
	assert.True(t, server.IsStarred)
	assert.Equal(t, "quarterly numbers", server.Summary)

	_, err = tb.SetRead(ctx, "zz", true)
	assert.ErrorIs(t, err, domain.ErrEmailNotOnBoard)
}

func TestAddAndRemove(t *testing.T) {
	tb := newTestBoard(t, Options{})
	ctx := context.Background()

	require.NoError(t, tb.AddToBoard(ctx, domain.BoardEmail{EmailID: "a"}, -1))
	assert.Equal(t, []string{"a"}, tb.ids("inbox"))

	err := tb.AddToBoard(ctx, domain.BoardEmail{EmailID: "b", ColumnID: "snoozed"}, -1)
	assert.ErrorIs(t, err, domain.ErrValidation)

	err = tb.AddToBoard(ctx, domain.BoardEmail{EmailID: "a", ColumnID: "todo"}, -1)
	assert.ErrorIs(t, err, domain.ErrValidation)

	require.NoError(t, tb.RemoveFromBoard(ctx, "a"))
	assert.Empty(t, tb.ids("inbox"))
	gone, err := tb.server.GetEmail(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestLabels(t *testing.T) {
	tb := newTestBoard(t, Options{})
	labels, err := tb.Labels(context.Background())
	require.NoError(t, err)
	assert.Len(t, labels, 2)

	bare := NewBoard("u1", tb.api, nil, Options{})
	_, err = bare.Labels(context.Background())
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}

func TestImport_KeepsNewestOnTopAndSkipsKnownCards(t *testing.T) {
	tb := newTestBoard(t, Options{})
	tb.add(t, "todo", "old")

	res := tb.Import(context.Background(), []domain.BoardEmail{
		{EmailID: "new", ColumnID: "todo"},
		{EmailID: "mid"},
		{EmailID: "old"},
	})
	assert.Equal(t, ImportResult{Added: 2, Skipped: 1}, res)
	assert.Equal(t, []string{"new", "mid"}, tb.ids("inbox"))
	assert.Equal(t, []string{"new", "mid"}, tb.serverIDs(t, "inbox"))
	assert.Equal(t, []string{"old"}, tb.ids("todo"))
}
