// Package sink delivers denial decisions to the collaborators that act on
// them. Every sink delivers at least once; consumers dedupe by decision ID.
package sink

import (
	"context"
	"sync"

	"faceguard/internal/meeting/models"
)

// MemorySink records messages for tests and local runs without a broker.
type MemorySink struct {
	mu       sync.Mutex
	messages []models.DecisionMessage
	err      error
}

func NewMemory() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Publish(_ context.Context, msg models.DecisionMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.messages = append(s.messages, msg)
	return nil
}

// FailWith makes later publishes return err. Nil restores delivery.
func (s *MemorySink) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *MemorySink) Messages() []models.DecisionMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.DecisionMessage(nil), s.messages...)
}
