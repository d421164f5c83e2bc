// Package ratelimit provides the token bucket that paces outbound REST
// requests. One bucket belongs to exactly one client instance.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Config describes a token bucket. Tokens refill at Capacity per Delay and
// never accrue beyond MaxCapacity, which bounds the burst available after a
// long idle period. A fresh bucket holds Capacity tokens, not MaxCapacity.
type Config struct {
	// Delay is the time unit of the refill rate.
	Delay time.Duration
	// Capacity is the number of tokens refilled per Delay.
	Capacity int
	// DefaultCost is the token cost of an uncosted call.
	DefaultCost int
	// MaxCapacity is the saturation ceiling of the bucket.
	MaxCapacity int
}

func (c Config) withDefaults() Config {
	if c.Delay <= 0 {
		c.Delay = time.Millisecond
	}
	if c.Capacity <= 0 {
		c.Capacity = 1
	}
	if c.DefaultCost <= 0 {
		c.DefaultCost = 1
	}
	if c.MaxCapacity < c.Capacity {
		c.MaxCapacity = 1000
	}
	return c
}

// Bucket is a token bucket throttle. Concurrent callers are admitted in
// request order with unit-cost calls spaced Delay*cost/Capacity apart.
// A throttle never fails; it only delays, unless the context is canceled
// while waiting.
type Bucket struct {
	cfg     Config
	limiter *rate.Limiter
}

// NewBucket creates a Bucket from the config. Zero config fields fall back
// to a 1ms delay, capacity 1, default cost 1 and max capacity 1000.
func NewBucket(cfg Config) *Bucket {
	cfg = cfg.withDefaults()
	refill := rate.Limit(float64(cfg.Capacity) / cfg.Delay.Seconds())
	limiter := rate.NewLimiter(refill, cfg.MaxCapacity)
	// the bucket must start at Capacity, not at the burst ceiling
	if cfg.MaxCapacity > cfg.Capacity {
		limiter.AllowN(time.Now(), cfg.MaxCapacity-cfg.Capacity)
	}
	return &Bucket{cfg: cfg, limiter: limiter}
}

// Config returns the bucket's effective configuration.
func (b *Bucket) Config() Config {
	return b.cfg
}

// Throttle blocks until the bucket can cover DefaultCost, then debits it.
func (b *Bucket) Throttle(ctx context.Context) error {
	return b.ThrottleN(ctx, b.cfg.DefaultCost)
}

// ThrottleN blocks until the bucket can cover cost, then debits it.
// Non-positive costs fall back to DefaultCost; costs above MaxCapacity are
// clamped to it so a single oversized call cannot deadlock the bucket.
func (b *Bucket) ThrottleN(ctx context.Context, cost int) error {
	if cost <= 0 {
		cost = b.cfg.DefaultCost
	}
	if cost > b.cfg.MaxCapacity {
		cost = b.cfg.MaxCapacity
	}
	return b.limiter.WaitN(ctx, cost)
}
