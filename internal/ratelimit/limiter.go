package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidDevice is returned for an empty device id.
var ErrInvalidDevice = errors.New("device id is required")

// Record is the per-device submission state.
type Record struct {
	DeviceID      string
	WindowStartAt time.Time
	CountInWindow int
	BlockedUntil  *time.Time
}

// Blocked reports whether the device is cooling down at now.
func (r Record) Blocked(now time.Time) bool {
	return r.BlockedUntil != nil && r.BlockedUntil.After(now)
}

// Policy bounds submissions per rolling window.
type Policy struct {
	MaxSubmissions int
	Window         time.Duration
	Cooldown       time.Duration
}

// Normalize fills non-positive values with the defaults.
func (p Policy) Normalize() Policy {
	if p.MaxSubmissions <= 0 {
		p.MaxSubmissions = 5
	}
	if p.Window <= 0 {
		p.Window = time.Hour
	}
	if p.Cooldown <= 0 {
		p.Cooldown = 6 * time.Hour
	}
	return p
}

// Decision is the outcome of one submission attempt.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
	Record     Record
}

// RetryAfterSeconds rounds the wait up to whole seconds; a blocked decision
// never reports zero.
func (d Decision) RetryAfterSeconds() int64 {
	if d.Allowed {
		return 0
	}
	return CeilSeconds(d.RetryAfter)
}

// Store applies a policy atomically for one device. Implementations must
// not let two concurrent hits both pass the threshold.
type Store interface {
	Hit(ctx context.Context, deviceID string, now time.Time, policy Policy) (Decision, error)
	Peek(ctx context.Context, deviceID string) (Record, error)
	Reset(ctx context.Context, deviceID string) error
}

// Limiter gates story submissions per device.
type Limiter struct {
	store  Store
	policy Policy
	now    func() time.Time
}

// NewLimiter builds a limiter over store.
func NewLimiter(store Store, policy Policy) *Limiter {
	return &Limiter{store: store, policy: policy.Normalize(), now: time.Now}
}

// WithClock swaps the time source, mainly for tests.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	if now != nil {
		l.now = now
	}
	return l
}

// Policy returns the effective policy.
func (l *Limiter) Policy() Policy {
	return l.policy
}

// Allow counts one submission for deviceID.
func (l *Limiter) Allow(ctx context.Context, deviceID string) (Decision, error) {
	id := strings.TrimSpace(deviceID)
	if id == "" {
		return Decision{}, ErrInvalidDevice
	}
	if l.store == nil {
		return Decision{}, fmt.Errorf("rate limiter store is nil")
	}
	return l.store.Hit(ctx, id, l.now().UTC(), l.policy)
}

// RetryAfter reports how long deviceID still has to wait without counting
// an attempt.
func (l *Limiter) RetryAfter(ctx context.Context, deviceID string) (time.Duration, error) {
	id := strings.TrimSpace(deviceID)
	if id == "" {
		return 0, ErrInvalidDevice
	}
	record, err := l.store.Peek(ctx, id)
	if err != nil {
		return 0, err
	}
	now := l.now().UTC()
	if !record.Blocked(now) {
		return 0, nil
	}
	return record.BlockedUntil.Sub(now), nil
}

// Reset clears the device's record.
func (l *Limiter) Reset(ctx context.Context, deviceID string) error {
	return l.store.Reset(ctx, strings.TrimSpace(deviceID))
}

// apply is the shared state transition every store performs under its own
// atomicity primitive.
func apply(record Record, now time.Time, policy Policy) (Record, Decision) {
	if record.Blocked(now) {
		return record, Decision{Allowed: false, RetryAfter: record.BlockedUntil.Sub(now), Record: record}
	}

	// An expired cooldown starts a fresh window, whatever the window length.
	cooledDown := record.BlockedUntil != nil && !record.BlockedUntil.After(now)
	if cooledDown || record.WindowStartAt.IsZero() || !now.Before(record.WindowStartAt.Add(policy.Window)) {
		record.WindowStartAt = now
		record.CountInWindow = 0
		record.BlockedUntil = nil
	}

	record.CountInWindow++
	if record.CountInWindow > policy.MaxSubmissions {
		until := now.Add(policy.Cooldown)
		record.BlockedUntil = &until
		return record, Decision{Allowed: false, RetryAfter: policy.Cooldown, Record: record}
	}

	return record, Decision{Allowed: true, Record: record}
}

// CeilSeconds rounds a wait up to whole seconds, never below one.
func CeilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 1
	}
	sec := int64(d / time.Second)
	if d%time.Second != 0 {
		sec++
	}
	if sec <= 0 {
		sec = 1
	}
	return sec
}
