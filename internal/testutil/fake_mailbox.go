package testutil

import (
	"context"
	"sync"

	"github.com/hallmail/hallmail/internal/mailbox"
)

// FakeVerifier accepts every mailbox unless Err is set
type FakeVerifier struct {
	mu       sync.Mutex
	Err      error
	Verified []mailbox.Credentials
}

func NewFakeVerifier() *FakeVerifier {
	return &FakeVerifier{}
}

func (v *FakeVerifier) Verify(_ context.Context, creds mailbox.Credentials) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Verified = append(v.Verified, creds)
	return v.Err
}
