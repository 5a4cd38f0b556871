package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v4"
	"github.com/hallmail/hallmail/internal/config"
	ierr "github.com/hallmail/hallmail/internal/errors"
	"github.com/nedpals/supabase-go"
)

type supabaseAuth struct {
	AuthConfig config.AuthConfig
	client     *supabase.Client
}

// NewSupabaseAuth validates Supabase access tokens locally with the JWT
// secret, or through the Supabase user endpoint when no secret is set
func NewSupabaseAuth(cfg *config.Configuration) Provider {
	s := &supabaseAuth{AuthConfig: cfg.Auth}
	if cfg.Auth.Supabase.BaseURL != "" {
		s.client = supabase.CreateClient(cfg.Auth.Supabase.BaseURL, cfg.Auth.Supabase.ServiceKey)
	}
	return s
}

func (s *supabaseAuth) ValidateToken(ctx context.Context, token string) (*Claims, error) {
	if token == "" {
		return nil, ierr.NewError("missing token").
			WithHint("Authentication required").
			Mark(ierr.ErrUnauthorized)
	}

	switch {
	case s.AuthConfig.Secret != "":
		return s.validateLocally(token)
	case s.client != nil:
		return s.validateRemotely(ctx, token)
	default:
		return nil, ierr.NewError("auth not configured").
			WithHint("Authentication is not configured").
			WithReportableDetails(map[string]any{"missing": []string{"auth.secret", "auth.supabase.base_url"}}).
			Mark(ierr.ErrConfiguration)
	}
}

func (s *supabaseAuth) validateLocally(token string) (*Claims, error) {
	parsedToken, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.AuthConfig.Secret), nil
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid or expired session").
			Mark(ierr.ErrUnauthorized)
	}

	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	if !ok || !parsedToken.Valid {
		return nil, ierr.NewError("invalid token claims").
			WithHint("Invalid or expired session").
			Mark(ierr.ErrUnauthorized)
	}

	userID, _ := claims["sub"].(string)
	if userID == "" {
		return nil, ierr.NewError("token missing user ID").
			WithHint("Invalid or expired session").
			Mark(ierr.ErrUnauthorized)
	}

	email, _ := claims["email"].(string)
	return &Claims{UserID: userID, Email: email}, nil
}

func (s *supabaseAuth) validateRemotely(ctx context.Context, token string) (*Claims, error) {
	user, err := s.client.Auth.User(ctx, token)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid or expired session").
			Mark(ierr.ErrUnauthorized)
	}
	if user == nil || user.ID == "" {
		return nil, ierr.NewError("supabase returned no user").
			WithHint("Invalid or expired session").
			Mark(ierr.ErrUnauthorized)
	}
	return &Claims{UserID: user.ID, Email: user.Email}, nil
}
