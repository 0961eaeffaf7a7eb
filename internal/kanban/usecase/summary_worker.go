package usecase

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
	"unicode/utf8"

	"ga03-kanban/internal/kanban/domain"
)

// SummaryJob asks for an AI summary of one card
type SummaryJob struct {
	UserID  string
	EmailID string
	Subject string
	Body    string
}

// Summarizer turns email text into a short summary
type Summarizer interface {
	SummarizeEmail(ctx context.Context, emailText string) (string, error)
}

// SummarySink stores generated summaries on the owner's board
type SummarySink interface {
	CachedSummary(userID, emailID string) (string, bool)
	ApplySummary(ctx context.Context, userID, emailID, summary string) error
}

// SummaryWorkerService generates card summaries in the background
type SummaryWorkerService struct {
	summarizer  Summarizer
	sink        SummarySink
	jobQueue    chan SummaryJob
	workerWg    sync.WaitGroup
	workerCount int
	timeout     time.Duration
	started     bool
	stopped     bool
	mu          sync.Mutex
}

// NewSummaryWorkerService creates a new summary worker service
func NewSummaryWorkerService(summarizer Summarizer, sink SummarySink, workerCount int) *SummaryWorkerService {
	if workerCount <= 0 {
		workerCount = 3
	}
	return &SummaryWorkerService{
		summarizer:  summarizer,
		sink:        sink,
		jobQueue:    make(chan SummaryJob, 500),
		workerCount: workerCount,
		timeout:     30 * time.Second,
	}
}

// Start starts the summary workers
func (s *SummaryWorkerService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started || s.stopped {
		return
	}
	for i := 0; i < s.workerCount; i++ {
		s.workerWg.Add(1)
		go s.worker(i)
	}
	s.started = true
	log.Printf("[SummaryWorker] Started %d workers", s.workerCount)
}

// Stop drains the queue and waits for the workers to exit
func (s *SummaryWorkerService) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	close(s.jobQueue)
	s.mu.Unlock()

	s.workerWg.Wait()
	log.Println("[SummaryWorker] All workers stopped")
}

func (s *SummaryWorkerService) worker(id int) {
	defer s.workerWg.Done()
	for job := range s.jobQueue {
		s.processJob(job)
	}
	log.Printf("[SummaryWorker] Worker %d stopped", id)
}

func (s *SummaryWorkerService) processJob(job SummaryJob) {
	if s.summarizer == nil || s.sink == nil {
		return
	}
	if _, ok := s.sink.CachedSummary(job.UserID, job.EmailID); ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	emailText := fmt.Sprintf("Subject: %s\n\nBody: %s", job.Subject, job.Body)
	if cut, ok := truncateRunes(emailText, 5000); ok {
		emailText = cut
	}

	summary, err := s.summarizer.SummarizeEmail(ctx, emailText)
	if err != nil {
		log.Printf("[SummaryWorker] AI error for email %s: %v", job.EmailID, err)
		return
	}
	if cut, ok := truncateRunes(summary, 200); ok {
		summary = cut + "..."
	}

	if err := s.sink.ApplySummary(ctx, job.UserID, job.EmailID, summary); err != nil {
		log.Printf("[SummaryWorker] Save error for %s: %v", job.EmailID, err)
		return
	}
	log.Printf("[SummaryWorker] Generated summary for %s", job.EmailID)
}

// QueueJob adds a single job to the queue without blocking. It reports false when the queue is full or stopped.
func (s *SummaryWorkerService) QueueJob(job SummaryJob) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	select {
	case s.jobQueue <- job:
		return true
	default:
		return false
	}
}

// QueueCardsForSummary returns the summaries cards already carry and queues the rest
func (s *SummaryWorkerService) QueueCardsForSummary(userID string, cards []domain.BoardEmail) (map[string]string, int) {
	cached := make(map[string]string, len(cards))
	queued := 0
	for _, card := range cards {
		if card.Summary != "" {
			cached[card.EmailID] = card.Summary
			continue
		}
		body := card.Preview
		if body == "" {
			body = card.Subject
		}
		if s.QueueJob(SummaryJob{UserID: userID, EmailID: card.EmailID, Subject: card.Subject, Body: body}) {
			queued++
		}
	}
	return cached, queued
}

// truncateRunes keeps the first n characters of s. It reports whether
// anything was cut.
func truncateRunes(s string, n int) (string, bool) {
	if utf8.RuneCountInString(s) <= n {
		return s, false
	}
	return string([]rune(s)[:n]), true
}
