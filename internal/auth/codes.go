// Package auth carries the redis-backed pieces of the identity flow:
// email verification codes and the logout token blacklist.
package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/edupanel/apiserver/types"
	"github.com/redis/go-redis/v9"
)

const (
	codeKeyPrefix  = "verify_code:"
	defaultCodeTTL = 10 * time.Minute
)

// CodeStore issues and redeems email verification codes. Codes live in
// redis with a TTL and are deleted on first redemption.
type CodeStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCodeStore(client *redis.Client) *CodeStore {
	return &CodeStore{client: client, ttl: defaultCodeTTL}
}

// Issue generates a six-digit code for the email, replacing any
// previous one.
func (s *CodeStore) Issue(ctx context.Context, email string) (string, error) {
	code, err := newCode()
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, codeKeyPrefix+email, code, s.ttl).Err(); err != nil {
		return "", err
	}
	return code, nil
}

// Verify redeems the code for the email. A wrong, expired, or already
// used code yields types.ErrCodeMismatch. A mismatch leaves the stored
// code in place; only a successful redemption consumes it.
func (s *CodeStore) Verify(ctx context.Context, email, code string) error {
	key := codeKeyPrefix + email
	stored, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return types.ErrCodeMismatch
		}
		return err
	}
	if stored != code {
		return types.ErrCodeMismatch
	}
	return s.client.Del(ctx, key).Err()
}

func newCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
