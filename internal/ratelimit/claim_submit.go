// Package ratelimit throttles claim submission per employee. It is
// optional: with rate limiting disabled every check passes.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fieldops/claimflow/internal/config"
	redis "github.com/redis/go-redis/v9"
)

const (
	keyClaimSubmit     = "claim:submit:%s"
	keyClaimSubmitLock = "claim:submit:lock:%s"

	// submitLockTTL bounds the double-click window: two identical
	// submissions inside it collapse into one.
	submitLockTTL = 2 * time.Second
)

type ClaimSubmitLimiter struct {
	enabled bool

	bucket *TokenBucket
	locker *Locker

	rate  float64
	burst int
}

func NewClaimSubmitLimiter(cfg config.Config) (*ClaimSubmitLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.ClaimSubmitRate <= 0 || limitCfg.ClaimSubmitBurst <= 0 {
		return nil, errors.New("claim submit rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})

	return &ClaimSubmitLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		locker:  NewLocker(client),
		rate:    limitCfg.ClaimSubmitRate,
		burst:   limitCfg.ClaimSubmitBurst,
	}, nil
}

func (l *ClaimSubmitLimiter) Enabled() bool {
	return l != nil && l.enabled
}

// AllowSubmit enforces the per-employee submission rate.
func (l *ClaimSubmitLimiter) AllowSubmit(ctx context.Context, employeeID string) (Result, error) {
	if !l.Enabled() {
		return Result{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyClaimSubmit, strings.TrimSpace(employeeID)), l.rate, l.burst)
}

// TryLockSubmit takes a short per-employee lock so a retried or
// double-clicked submission cannot create two claims.
func (l *ClaimSubmitLimiter) TryLockSubmit(ctx context.Context, employeeID string) (string, bool, error) {
	if !l.Enabled() {
		return "", true, nil
	}
	return l.locker.TryLock(ctx, fmt.Sprintf(keyClaimSubmitLock, strings.TrimSpace(employeeID)), submitLockTTL)
}

func (l *ClaimSubmitLimiter) ReleaseSubmit(ctx context.Context, employeeID, token string) error {
	if !l.Enabled() {
		return nil
	}
	return l.locker.Release(ctx, fmt.Sprintf(keyClaimSubmitLock, strings.TrimSpace(employeeID)), token)
}
