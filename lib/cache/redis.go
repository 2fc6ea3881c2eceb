package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/defect-tracker/config"
	"github.com/redis/go-redis/v9"
)

// New returns a client for the configured Redis, or nil when no address is set
func New(cfg config.RedisCfg) *redis.Client {
	if cfg.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

const revokedPrefix = "auth:revoked:"

// TokenBlacklist remembers revoked token ids until they would have expired anyway
type TokenBlacklist struct {
	rdb *redis.Client
}

// NewTokenBlacklist wraps rdb; a nil client yields a blacklist that never revokes
func NewTokenBlacklist(rdb *redis.Client) *TokenBlacklist {
	return &TokenBlacklist{rdb: rdb}
}

// Enabled reports whether revocations are persisted
func (b *TokenBlacklist) Enabled() bool {
	return b != nil && b.rdb != nil
}

func (b *TokenBlacklist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if !b.Enabled() || jti == "" || ttl <= 0 {
		return nil
	}
	if err := b.rdb.Set(ctx, revokedPrefix+jti, 1, ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (b *TokenBlacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if !b.Enabled() || jti == "" {
		return false, nil
	}
	err := b.rdb.Get(ctx, revokedPrefix+jti).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check token revocation: %w", err)
	}
	return true, nil
}
