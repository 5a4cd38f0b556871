package testutil

import (
	"context"

	"github.com/hallmail/hallmail/internal/types"
)

const (
	DefaultUserID    = "00000000-0000-0000-0000-000000000001"
	DefaultUserEmail = "owner@cabinet-durand.fr"
)

func SetupContext() context.Context {
	ctx := context.Background()
	ctx = types.SetUserID(ctx, DefaultUserID)
	ctx = types.SetUserEmail(ctx, DefaultUserEmail)
	ctx = types.SetRequestID(ctx, types.GenerateUUID())
	return ctx
}
