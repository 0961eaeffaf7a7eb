package search

import (
	"sync"

	"ga03-kanban/internal/kanban/domain"
)

// Token correlates a search response with the query that produced it
type Token struct {
	Seq   uint64
	Mode  domain.SearchMode
	epoch uint64
}

// Session tracks the latest query of one user. A response is only accepted
// when it answers the newest query of the active mode and nothing cleared
// the search since it was issued.
type Session struct {
	mu     sync.Mutex
	seq    uint64
	epoch  uint64
	mode   domain.SearchMode
	latest map[domain.SearchMode]uint64
}

func NewSession() *Session {
	return &Session{
		mode:   domain.SearchModeFuzzy,
		latest: make(map[domain.SearchMode]uint64),
	}
}

// Begin issues a token for a new query and makes mode the active mode
func (s *Session) Begin(mode domain.SearchMode) Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.latest[mode] = s.seq
	s.mode = mode
	return Token{Seq: s.seq, Mode: mode, epoch: s.epoch}
}

// Accept returns domain.ErrStale when the response for t must be discarded
func (s *Session) Accept(t Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.epoch != s.epoch || t.Mode != s.mode || s.latest[t.Mode] != t.Seq {
		return domain.ErrStale
	}
	return nil
}

// SwitchMode makes mode active; responses of other modes still in flight are ignored
func (s *Session) SwitchMode(mode domain.SearchMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
}

// Mode returns the active mode
func (s *Session) Mode() domain.SearchMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Clear drops the current query; every response in flight becomes stale
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.latest = make(map[domain.SearchMode]uint64)
}
