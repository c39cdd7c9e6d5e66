package ports

import (
	"context"
	"errors"
)

// ErrAccountNotFound is returned by resolvers when a user is not mapped.
// It is not a failure: callers fall back to the guest account.
var ErrAccountNotFound = errors.New("account not mapped")

// AccountResolver maps an external user id to a catalog account name.
type AccountResolver interface {
	Resolve(ctx context.Context, userID string) (string, error)
}
