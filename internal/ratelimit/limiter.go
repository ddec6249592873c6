// Package ratelimit implements fixed-window request limits and per-email
// cooldowns on top of Redis. It protects the authentication endpoints from
// credential stuffing and email bombing.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	ipWindow      = 15 * time.Minute
	ipMaxRequests = 10
	emailCooldown = 2 * time.Minute
)

// Limiter tracks request counts per IP and cooldowns per email address
type Limiter struct {
	client *redis.Client
}

func NewLimiter(client *redis.Client) *Limiter {
	return &Limiter{client: client}
}

func ipKey(ip, purpose string) string {
	return fmt.Sprintf("ratelimit:ip:%s:%s", purpose, ip)
}

func emailKey(email string) string {
	return fmt.Sprintf("ratelimit:email:%s", email)
}

// CheckIPRateLimit reports whether the IP exceeded the default request window
func (l *Limiter) CheckIPRateLimit(ctx context.Context, ip string) (bool, error) {
	return l.CheckIPRateLimitWithPurpose(ctx, ip, "default")
}

// CheckIPRateLimitWithPurpose reports whether the IP exceeded the request
// window for a specific endpoint purpose (register, login, ...).
func (l *Limiter) CheckIPRateLimitWithPurpose(ctx context.Context, ip, purpose string) (bool, error) {
	count, err := l.client.Get(ctx, ipKey(ip, purpose)).Int()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get IP request count: %w", err)
	}

	return count >= ipMaxRequests, nil
}

// RecordIPRequest counts a request against the default window for the IP
func (l *Limiter) RecordIPRequest(ctx context.Context, ip string) error {
	return l.RecordIPRequestWithPurpose(ctx, ip, "default")
}

// RecordIPRequestWithPurpose counts a request against the window for a purpose.
// The window TTL is set on first increment only, giving a fixed window.
func (l *Limiter) RecordIPRequestWithPurpose(ctx context.Context, ip, purpose string) error {
	key := ipKey(ip, purpose)

	pipe := l.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, ipWindow)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record IP request: %w", err)
	}
	_ = incr

	return nil
}

// CheckEmailCooldown reports whether the email address is still on cooldown
func (l *Limiter) CheckEmailCooldown(ctx context.Context, email string) (bool, error) {
	exists, err := l.client.Exists(ctx, emailKey(email)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check email cooldown: %w", err)
	}

	return exists > 0, nil
}

// SetEmailCooldown starts the cooldown for an email address
func (l *Limiter) SetEmailCooldown(ctx context.Context, email string) error {
	if err := l.client.Set(ctx, emailKey(email), "1", emailCooldown).Err(); err != nil {
		return fmt.Errorf("failed to set email cooldown: %w", err)
	}

	return nil
}
