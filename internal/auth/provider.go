package auth

import (
	"context"

	"github.com/hallmail/hallmail/internal/config"
)

// Claims identifies the caller of an authenticated request
type Claims struct {
	UserID string
	Email  string
}

type Provider interface {
	ValidateToken(ctx context.Context, token string) (*Claims, error)
}

func NewProvider(cfg *config.Configuration) Provider {
	switch cfg.Auth.Provider {
	default:
		return NewSupabaseAuth(cfg)
	}
}
