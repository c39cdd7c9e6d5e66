package redis

import (
	"context"
	"errors"
	"fmt"

	backend "github.com/redis/go-redis/v9"
	"github.com/springjools/ombibot/pkg/ports"
)

// DefaultAccountsKey is the hash holding "<user id> -> <account>" pairs.
const DefaultAccountsKey = "accounts"

// AccountResolver implements ports.AccountResolver over a Redis hash, so the
// mapping can be edited without restarting the bot.
type AccountResolver struct {
	client backend.UniversalClient
	key    string
}

// NewAccountResolver reads mappings from the hash at prefix+key.
func NewAccountResolver(client backend.UniversalClient, prefix, key string) *AccountResolver {
	if key == "" {
		key = DefaultAccountsKey
	}
	return &AccountResolver{client: client, key: prefix + key}
}

// Resolve runs HGET <key> <userID>.
func (r *AccountResolver) Resolve(ctx context.Context, userID string) (string, error) {
	name, err := r.client.HGet(ctx, r.key, userID).Result()
	if errors.Is(err, backend.Nil) || (err == nil && name == "") {
		return "", ports.ErrAccountNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read account mapping: %w", err)
	}
	return name, nil
}
