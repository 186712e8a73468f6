package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"crypto-checkout-gateway/internal/core/domain"
	"crypto-checkout-gateway/internal/core/ports"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
)

const (
	defaultAuditQueue = 256
	auditWriteTimeout = 5 * time.Second
)

// AuditService records audit entries off the request path. Entries go through
// a bounded queue to a single writer; when the queue is full the entry is
// logged and dropped so a slow database never stalls a request.
type AuditService struct {
	repo ports.AuditRepository
	log  zerolog.Logger

	mu      sync.RWMutex
	closed  bool
	queue   chan *domain.AuditLog
	writer  conc.WaitGroup
	dropped atomic.Int64
}

// NewAuditService starts the writer. A nil repo keeps entries in the log only.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) *AuditService {
	return newAuditService(repo, log, defaultAuditQueue)
}

func newAuditService(repo ports.AuditRepository, log zerolog.Logger, size int) *AuditService {
	s := &AuditService{
		repo:  repo,
		log:   log,
		queue: make(chan *domain.AuditLog, size),
	}
	s.writer.Go(s.drain)
	return s
}

// Log enqueues entry. It never blocks and is a no-op after Close.
func (s *AuditService) Log(_ context.Context, entry *domain.AuditLog) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}

	select {
	case s.queue <- entry:
	default:
		s.dropped.Add(1)
		s.log.Warn().
			Str("action", string(entry.Action)).
			Str("resource_id", entry.ResourceID).
			Msg("audit queue full, entry dropped")
	}
}

// Dropped reports how many entries were discarded because the queue was full.
func (s *AuditService) Dropped() int64 {
	return s.dropped.Load()
}

// Close stops accepting entries and waits until queued ones are written.
func (s *AuditService) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	s.writer.Wait()
}

func (s *AuditService) drain() {
	for entry := range s.queue {
		s.write(entry)
	}
}

func (s *AuditService) write(entry *domain.AuditLog) {
	ev := s.log.Info().
		Str("action", string(entry.Action)).
		Str("resource_type", entry.ResourceType).
		Str("resource_id", entry.ResourceID)
	if entry.IPAddress != "" {
		ev = ev.Str("ip", entry.IPAddress)
	}
	if entry.ProjectID != nil {
		ev = ev.Str("project_id", entry.ProjectID.String())
	}
	ev.Msg("audit")

	if s.repo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
	defer cancel()
	if err := s.repo.Create(ctx, entry); err != nil {
		s.log.Warn().Err(err).Str("action", string(entry.Action)).Msg("failed to persist audit log")
	}
}
