// Package ratelimit caps how many accounts one caller can create per window.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"
)

const (
	DefaultLimit  = 10
	DefaultWindow = time.Hour

	// SweepInterval is how often long-running commands drop expired windows.
	SweepInterval = 5 * time.Minute
)

// Status is the state of one identifier's window.
type Status struct {
	Allowed   bool          `json:"allowed"`
	Remaining int           `json:"remaining"`
	Limit     int           `json:"limit"`
	Count     int           `json:"count"`
	ResetAt   time.Time     `json:"resetAt"`
	ResetIn   time.Duration `json:"-"`
}

// ResetInMinutes rounds ResetIn up to whole minutes.
func (s Status) ResetInMinutes() int {
	return int(math.Ceil(s.ResetIn.Minutes()))
}

type window struct {
	count   int
	resetAt time.Time
}

// Limiter is a fixed-window counter keyed by caller identity, such as an IP
// address or a sender email.
type Limiter struct {
	limit  int
	period time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

// New returns a limiter allowing limit creations per period. Non-positive
// values fall back to 10 per hour.
func New(limit int, period time.Duration) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if period <= 0 {
		period = DefaultWindow
	}
	return &Limiter{
		limit:   limit,
		period:  period,
		now:     time.Now,
		windows: make(map[string]*window),
	}
}

func (l *Limiter) Limit() int {
	return l.limit
}

// Check counts one creation against id and reports whether it is allowed.
// Denied attempts are counted too.
func (l *Limiter) Check(id string) Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[id]
	if !ok || now.After(w.resetAt) {
		w = &window{resetAt: now.Add(l.period)}
		l.windows[id] = w
	}
	w.count++

	return Status{
		Allowed:   w.count <= l.limit,
		Remaining: max(0, l.limit-w.count),
		Limit:     l.limit,
		Count:     w.count,
		ResetAt:   w.resetAt,
		ResetIn:   w.resetAt.Sub(now),
	}
}

// Status reports id's window without counting anything.
func (l *Limiter) Status(id string) Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[id]
	if !ok || now.After(w.resetAt) {
		return Status{
			Allowed:   true,
			Remaining: l.limit,
			Limit:     l.limit,
			ResetAt:   now.Add(l.period),
			ResetIn:   l.period,
		}
	}
	return Status{
		Allowed:   w.count < l.limit,
		Remaining: max(0, l.limit-w.count),
		Limit:     l.limit,
		Count:     w.count,
		ResetAt:   w.resetAt,
		ResetIn:   w.resetAt.Sub(now),
	}
}

// Sweep drops expired windows and returns how many were removed.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for id, w := range l.windows {
		if now.After(w.resetAt) {
			delete(l.windows, id)
			removed++
		}
	}
	return removed
}

// Run sweeps every SweepInterval until ctx is done.
func (l *Limiter) Run(ctx context.Context) {
	ticker := time.NewTicker(SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

// Message is the operator-facing explanation of a denied Status.
func (l *Limiter) Message(s Status) string {
	per := "per hour"
	if l.period != time.Hour {
		per = "every " + l.period.String()
	}
	return fmt.Sprintf("Rate limit exceeded. You can only create %d users %s. Please try again in %d minutes.",
		s.Limit, per, s.ResetInMinutes())
}
