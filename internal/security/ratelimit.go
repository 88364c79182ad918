package security

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrRateLimited is returned when a session exceeds its rate limit.
var ErrRateLimited = errors.New("rate limit exceeded")

// Rate limit kinds.
const (
	KindMessage  = "message"
	KindToolCall = "tool_call"
)

const (
	rateWindow = time.Minute

	// pruneEvery is how many Allow calls pass between sweeps of idle
	// session windows.
	pruneEvery = 1024
)

// RateLimitConfig holds per-session limits.
type RateLimitConfig struct {
	MessagesPerMin  int `yaml:"messages_per_min"`
	ToolCallsPerMin int `yaml:"tool_calls_per_min"`
}

// RateLimiter counts events per (kind, session) over a sliding one-minute
// window, so one busy session cannot exhaust the budget of the others.
// A nil RateLimiter allows everything.
type RateLimiter struct {
	limits map[string]int
	now    func() time.Time

	mu      sync.Mutex
	windows map[windowKey][]time.Time
	calls   int
}

type windowKey struct {
	kind    string
	session string
}

// NewRateLimiter creates a limiter. Non-positive limits take the defaults
// of 200 messages and 60 tool calls per minute.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		limits: map[string]int{
			KindMessage:  positiveOr(cfg.MessagesPerMin, 200),
			KindToolCall: positiveOr(cfg.ToolCallsPerMin, 60),
		},
		now:     time.Now,
		windows: make(map[windowKey][]time.Time),
	}
}

// Allow records one event of kind for session, or returns ErrRateLimited
// without recording it. Kinds without a limit are always allowed.
func (rl *RateLimiter) Allow(kind, session string) error {
	if rl == nil {
		return nil
	}
	limit, ok := rl.limits[kind]
	if !ok {
		return nil
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.calls++
	if rl.calls%pruneEvery == 0 {
		rl.prune(now)
	}

	key := windowKey{kind: kind, session: session}
	events := trim(rl.windows[key], now)
	if len(events) >= limit {
		rl.windows[key] = events
		return fmt.Errorf("%w: %d %s events per minute", ErrRateLimited, limit, kind)
	}
	rl.windows[key] = append(events, now)
	return nil
}

// Limit returns the per-minute limit of kind, or 0 when kind is unlimited.
func (rl *RateLimiter) Limit(kind string) int {
	return rl.limits[kind]
}

// prune drops windows whose events have all aged out.
func (rl *RateLimiter) prune(now time.Time) {
	for key, events := range rl.windows {
		if len(trim(events, now)) == 0 {
			delete(rl.windows, key)
		}
	}
}

// trim drops events older than the window. Events are in time order.
func trim(events []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-rateWindow)
	i := 0
	for i < len(events) && !events[i].After(cutoff) {
		i++
	}
	return events[i:]
}

func positiveOr(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
