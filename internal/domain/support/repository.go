package support

import "context"

type Repository interface {
	Create(ctx context.Context, ticket *Ticket) error
}
