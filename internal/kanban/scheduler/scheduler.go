package scheduler

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"ga03-kanban/internal/kanban/domain"
	"ga03-kanban/internal/kanban/usecase"
)

// Holds is the part of a board session the scheduler drives
type Holds interface {
	UserID() string
	ExpiredHolds(now time.Time) []domain.BoardEmail
	Unsnooze(ctx context.Context, emailID string) (string, error)
	RestoreToFallback(ctx context.Context, emailID string) (string, error)
}

// TickResult summarizes one expiry check
type TickResult struct {
	Skipped  bool
	Expired  int
	Restored int
	FellBack int
	Failed   int
}

// SnoozeScheduler releases expired snooze holds of one board
type SnoozeScheduler struct {
	board    Holds
	events   usecase.EventPublisher
	interval time.Duration
	timeout  time.Duration
	now      func() time.Time

	running  atomic.Bool
	started  atomic.Bool
	stopChan chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewSnoozeScheduler creates a scheduler polling every interval (one minute when zero)
func NewSnoozeScheduler(board Holds, events usecase.EventPublisher, interval time.Duration) *SnoozeScheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SnoozeScheduler{
		board:    board,
		events:   events,
		interval: interval,
		timeout:  30 * time.Second,
		now:      time.Now,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins the scheduler loop. The first check runs immediately.
func (s *SnoozeScheduler) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	log.Printf("[SnoozeScheduler] Starting for %s (interval: %s)", s.board.UserID(), s.interval)

	go func() {
		defer close(s.done)
		s.Tick()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.Tick()
			case <-s.stopChan:
				log.Printf("[SnoozeScheduler] Scheduler for %s stopped", s.board.UserID())
				return
			}
		}
	}()
}

// Stop ends the loop and waits for an in-flight check to finish
func (s *SnoozeScheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	if s.started.Load() {
		<-s.done
	}
}

// Tick resolves every hold due now. A tick that starts while another is
// still running does nothing.
func (s *SnoozeScheduler) Tick() TickResult {
	if !s.running.CompareAndSwap(false, true) {
		log.Printf("[SnoozeScheduler] Previous check for %s still running, skipping", s.board.UserID())
		return TickResult{Skipped: true}
	}
	defer s.running.Store(false)

	holds := s.board.ExpiredHolds(s.now())
	result := TickResult{Expired: len(holds)}
	if len(holds) == 0 {
		return result
	}
	log.Printf("[SnoozeScheduler] Found %d expired snooze holds for %s", len(holds), s.board.UserID())

	for _, hold := range holds {
		switch s.resolve(hold.EmailID) {
		case outcomeRestored:
			result.Restored++
		case outcomeFellBack:
			result.FellBack++
		case outcomeFailed:
			result.Failed++
		}
	}
	return result
}

type outcome int

const (
	outcomeNone outcome = iota
	outcomeRestored
	outcomeFellBack
	outcomeFailed
)

func (s *SnoozeScheduler) resolve(emailID string) outcome {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	columnID, err := s.board.Unsnooze(ctx, emailID)
	switch {
	case boardApplied(err):
		s.publish(emailID, columnID, false)
		return outcomeRestored
	case errors.Is(err, domain.ErrNotSnoozed), errors.Is(err, domain.ErrEmailNotOnBoard):
		return outcomeNone
	}
	log.Printf("[SnoozeScheduler] Restoring %s to its prior column failed: %v, moving it to the inbox", emailID, err)

	columnID, err = s.board.RestoreToFallback(ctx, emailID)
	if boardApplied(err) {
		s.publish(emailID, columnID, true)
		return outcomeFellBack
	}
	log.Printf("[SnoozeScheduler] Could not release %s, retrying next check: %v", emailID, err)
	return outcomeFailed
}

// boardApplied reports whether the card left the snooze column, even if its labels did not follow
func boardApplied(err error) bool {
	if err == nil {
		return true
	}
	var partial *domain.PartialMoveError
	if errors.As(err, &partial) && partial.BoardApplied {
		log.Printf("[SnoozeScheduler] Labels of %s not updated: %v", partial.EmailID, partial.Err)
		return true
	}
	return false
}

func (s *SnoozeScheduler) publish(emailID, columnID string, fallback bool) {
	if s.events == nil {
		return
	}
	s.events.SendToUser(s.board.UserID(), usecase.EventEmailUpdate, map[string]interface{}{
		"action":    "unsnooze",
		"email_id":  emailID,
		"column_id": columnID,
		"fallback":  fallback,
	})
}
