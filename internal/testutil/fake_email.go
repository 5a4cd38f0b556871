package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/hallmail/hallmail/internal/email"
)

// FakeSender records outgoing messages instead of sending them
type FakeSender struct {
	mu   sync.Mutex
	Err  error
	Sent []*email.Message
}

func NewFakeSender() *FakeSender {
	return &FakeSender{}
}

func (s *FakeSender) Send(_ context.Context, msg *email.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	s.Sent = append(s.Sent, msg)
	return fmt.Sprintf("msg_%d", len(s.Sent)), nil
}
