package usecase

import (
	"sync"
	"time"
)

// RateLimitConfig contains rate limiter configuration
type RateLimitConfig struct {
	MaxRequests int
	Window      time.Duration
}

// DefaultRateLimitConfig returns default rate limiter configuration
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxRequests: 5,
		Window:      60 * time.Second,
	}
}

type userWindow struct {
	mu     sync.Mutex
	stamps []time.Time
}

// RateLimiter admits at most MaxRequests triggers per user within the
// trailing window. Each user's window is independent; a denied attempt
// is not recorded and does not extend the penalty.
type RateLimiter struct {
	mu     sync.RWMutex
	users  map[string]*userWindow
	config RateLimitConfig
	now    func() time.Time
}

// NewRateLimiter creates a rate limiter
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.MaxRequests <= 0 {
		config.MaxRequests = DefaultRateLimitConfig().MaxRequests
	}
	if config.Window <= 0 {
		config.Window = DefaultRateLimitConfig().Window
	}
	return &RateLimiter{
		users:  make(map[string]*userWindow),
		config: config,
		now:    time.Now,
	}
}

func (l *RateLimiter) window(userID string) *userWindow {
	l.mu.RLock()
	w, ok := l.users[userID]
	l.mu.RUnlock()
	if ok {
		return w
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if w, ok = l.users[userID]; ok {
		return w
	}
	w = &userWindow{}
	l.users[userID] = w
	return w
}

// TryAdmit purges expired entries, then admits and records the request
// iff the user is below the window maximum
func (l *RateLimiter) TryAdmit(userID string) bool {
	w := l.window(userID)
	w.mu.Lock()
	defer w.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.config.Window)

	kept := w.stamps[:0]
	for _, ts := range w.stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	w.stamps = kept

	if len(w.stamps) >= l.config.MaxRequests {
		return false
	}
	w.stamps = append(w.stamps, now)
	return true
}
