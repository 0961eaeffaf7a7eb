package scheduler

import (
	"log"
	"sync"
	"time"

	"ga03-kanban/internal/kanban/usecase"
)

// Manager runs one snooze scheduler per open board
type Manager struct {
	mu         sync.Mutex
	schedulers map[string]*SnoozeScheduler
	events     usecase.EventPublisher
	interval   time.Duration
}

// NewManager creates a manager whose schedulers poll every interval
func NewManager(events usecase.EventPublisher, interval time.Duration) *Manager {
	return &Manager{
		schedulers: make(map[string]*SnoozeScheduler),
		events:     events,
		interval:   interval,
	}
}

// Attach starts a scheduler for the board unless its user already has one
func (m *Manager) Attach(board Holds) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.schedulers[board.UserID()]; ok {
		return
	}
	s := NewSnoozeScheduler(board, m.events, m.interval)
	m.schedulers[board.UserID()] = s
	s.Start()
}

// Detach stops the scheduler of userID
func (m *Manager) Detach(userID string) {
	m.mu.Lock()
	s, ok := m.schedulers[userID]
	delete(m.schedulers, userID)
	m.mu.Unlock()

	if ok {
		s.Stop()
	}
}

// Len returns the number of running schedulers
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.schedulers)
}

// StopAll stops every scheduler
func (m *Manager) StopAll() {
	m.mu.Lock()
	all := m.schedulers
	m.schedulers = make(map[string]*SnoozeScheduler)
	m.mu.Unlock()

	for _, s := range all {
		s.Stop()
	}
	log.Printf("[SnoozeScheduler] Stopped %d schedulers", len(all))
}
