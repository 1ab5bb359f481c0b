package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
)

const blacklistKeyPrefix = "token_blacklist:"

// Blacklist revokes bearer tokens on logout. Entries expire with the
// token itself, so the set never grows past one token TTL.
type Blacklist struct {
	client *redis.Client
	ttl    time.Duration
}

func NewBlacklist(client *redis.Client, ttl time.Duration) *Blacklist {
	return &Blacklist{client: client, ttl: ttl}
}

// Add revokes the token. Stores a hash, never the token itself.
func (b *Blacklist) Add(ctx context.Context, token string) error {
	return b.client.Set(ctx, blacklistKeyPrefix+hashToken(token), "1", b.ttl).Err()
}

// Contains reports whether the token was revoked.
func (b *Blacklist) Contains(ctx context.Context, token string) (bool, error) {
	n, err := b.client.Exists(ctx, blacklistKeyPrefix+hashToken(token)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
