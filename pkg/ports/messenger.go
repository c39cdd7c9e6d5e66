package ports

import (
	"context"

	"github.com/springjools/ombibot/pkg/domain"
)

// Messenger delivers outbound effects through a messaging channel, in order.
type Messenger interface {
	Deliver(ctx context.Context, effects []domain.Effect) error
}

// MessengerFunc adapts a function to Messenger.
type MessengerFunc func(ctx context.Context, effects []domain.Effect) error

// Deliver calls f.
func (f MessengerFunc) Deliver(ctx context.Context, effects []domain.Effect) error {
	return f(ctx, effects)
}
