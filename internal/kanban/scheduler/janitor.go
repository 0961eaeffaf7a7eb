package scheduler

import (
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Evictor closes board sessions that have gone idle
type Evictor interface {
	EvictIdle(now time.Time, idle time.Duration, inUse func(userID string) bool) []string
}

// SessionJanitor periodically releases idle board sessions and, through the
// session close hooks, their snooze schedulers
type SessionJanitor struct {
	sessions Evictor
	idle     time.Duration
	interval time.Duration
	inUse    func(userID string) bool
	now      func() time.Time

	started  atomic.Bool
	stopChan chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewSessionJanitor creates a janitor closing sessions idle for longer than
// idle (30 minutes when zero). inUse may be nil.
func NewSessionJanitor(sessions Evictor, idle time.Duration, inUse func(userID string) bool) *SessionJanitor {
	if idle <= 0 {
		idle = 30 * time.Minute
	}
	return &SessionJanitor{
		sessions: sessions,
		idle:     idle,
		interval: idle / 2,
		inUse:    inUse,
		now:      time.Now,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins the sweep loop
func (j *SessionJanitor) Start() {
	if !j.started.CompareAndSwap(false, true) {
		return
	}
	log.Printf("[SessionJanitor] Starting (idle after: %s)", j.idle)

	go func() {
		defer close(j.done)
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				j.Sweep()
			case <-j.stopChan:
				log.Println("[SessionJanitor] Stopped")
				return
			}
		}
	}()
}

// Stop ends the loop and waits for a running sweep
func (j *SessionJanitor) Stop() {
	j.stopOnce.Do(func() { close(j.stopChan) })
	if j.started.Load() {
		<-j.done
	}
}

// Sweep closes the sessions idle right now and returns their users
func (j *SessionJanitor) Sweep() []string {
	closed := j.sessions.EvictIdle(j.now(), j.idle, j.inUse)
	if len(closed) > 0 {
		log.Printf("[SessionJanitor] Closed %d idle board sessions", len(closed))
	}
	return closed
}
