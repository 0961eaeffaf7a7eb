package usecase

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"ga03-kanban/internal/kanban/domain"
	"ga03-kanban/internal/kanban/repository"
)

// BackendFactory opens the board backend and label client of one user.
// labels may be nil when the user has no connected mailbox.
type BackendFactory func(ctx context.Context, userID string) (repository.BoardAPI, repository.LabelAPI, error)

// Sessions keeps one board session per user. A session is created and
// synced the first time the user's board is needed.
type Sessions struct {
	factory BackendFactory
	opts    Options

	mu      sync.RWMutex
	boards  map[string]*Board
	opening *keyedMutex
	onOpen  []func(*Board)
	onClose []func(userID string)
}

// NewSessions creates a session manager
func NewSessions(factory BackendFactory, opts Options) *Sessions {
	return &Sessions{
		factory: factory,
		opts:    opts,
		boards:  make(map[string]*Board),
		opening: newKeyedMutex(),
	}
}

// OnOpen registers a hook run after a session is created and synced
func (s *Sessions) OnOpen(fn func(*Board)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onOpen = append(s.onOpen, fn)
}

// OnClose registers a hook run after a session is dropped
func (s *Sessions) OnClose(fn func(userID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onClose = append(s.onClose, fn)
}

// Get returns the user's board, opening it when needed
func (s *Sessions) Get(ctx context.Context, userID string) (*Board, error) {
	if userID == "" {
		return nil, domain.Validationf("user id is required")
	}
	if b, ok := s.Peek(userID); ok {
		b.touch()
		return b, nil
	}

	unlock := s.opening.Lock(userID)
	defer unlock()
	if b, ok := s.Peek(userID); ok {
		b.touch()
		return b, nil
	}

	api, labels, err := s.factory(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to open board backend: %w", domain.Classify(err))
	}
	b := NewBoard(userID, api, labels, s.opts)
	if err := b.Sync(ctx); err != nil {
		return nil, err
	}
	b.touch()

	s.mu.Lock()
	s.boards[userID] = b
	hooks := append([]func(*Board){}, s.onOpen...)
	s.mu.Unlock()

	log.Printf("[Sessions] Opened board of %s with %d columns", userID, len(b.Columns()))
	for _, fn := range hooks {
		fn(b)
	}
	return b, nil
}

// Peek returns an already open board
func (s *Sessions) Peek(userID string) (*Board, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.boards[userID]
	return b, ok
}

// Close drops the user's session
func (s *Sessions) Close(userID string) {
	s.mu.Lock()
	_, ok := s.boards[userID]
	delete(s.boards, userID)
	hooks := append([]func(string){}, s.onClose...)
	s.mu.Unlock()

	if !ok {
		return
	}
	for _, fn := range hooks {
		fn(userID)
	}
	log.Printf("[Sessions] Closed board of %s", userID)
}

// UserIDs lists the users with an open session
func (s *Sessions) UserIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.boards))
	for id := range s.boards {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// EvictIdle closes every session not requested for idle. Boards with pending
// changes or snooze holds stay open, as do boards inUse reports as watched.
// It returns the users whose sessions were closed.
func (s *Sessions) EvictIdle(now time.Time, idle time.Duration, inUse func(userID string) bool) []string {
	var closed []string
	for _, userID := range s.UserIDs() {
		b, ok := s.Peek(userID)
		if !ok || b.IdleFor(now) < idle || b.Busy() {
			continue
		}
		if inUse != nil && inUse(userID) {
			continue
		}
		s.Close(userID)
		closed = append(closed, userID)
	}
	return closed
}

// OpenWithHolds opens the boards of every user with a snooze hold, so their
// holds are released even when nobody has the board open
func (s *Sessions) OpenWithHolds(ctx context.Context, index repository.HoldIndex) int {
	users, err := index.UsersWithHolds(ctx)
	if err != nil {
		log.Printf("[Sessions] Failed to list users with snooze holds: %v", err)
		return 0
	}
	opened := 0
	for _, userID := range users {
		if _, err := s.Get(ctx, userID); err != nil {
			log.Printf("[Sessions] Failed to open board of %s: %v", userID, err)
			continue
		}
		opened++
	}
	return opened
}

// CachedSummary returns the summary a card already carries
func (s *Sessions) CachedSummary(userID, emailID string) (string, bool) {
	b, ok := s.Peek(userID)
	if !ok {
		return "", false
	}
	card, ok := b.Email(emailID)
	if !ok || card.Summary == "" {
		return "", false
	}
	return card.Summary, true
}

// ApplySummary stores a generated summary on the card and notifies the user
func (s *Sessions) ApplySummary(ctx context.Context, userID, emailID, summary string) error {
	b, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if err := b.SetSummary(ctx, emailID, summary); err != nil {
		return err
	}
	b.publish(EventSummaryUpdate, map[string]interface{}{
		"email_id": emailID,
		"summary":  summary,
	})
	return nil
}

// Cards returns the card documents of the user's board
func (s *Sessions) Cards(ctx context.Context, userID string) ([]domain.BoardEmail, error) {
	b, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return b.Documents(), nil
}
