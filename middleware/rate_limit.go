package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// LoginAttempt tracks login attempts from an IP
type LoginAttempt struct {
	Count    int
	FirstAt  time.Time
	LockedAt time.Time
	IsLocked bool
}

// RateLimiter manages rate limiting for login attempts
type RateLimiter struct {
	mu           sync.Mutex
	attempts     map[string]*LoginAttempt
	maxAttempts  int
	windowPeriod time.Duration
	lockDuration time.Duration
}

// Global rate limiter instance
var loginRateLimiter *RateLimiter

// InitLoginRateLimiter initializes the global login rate limiter
func InitLoginRateLimiter() {
	loginRateLimiter = NewRateLimiter(5, 15*time.Minute, 30*time.Minute)
	go loginRateLimiter.startCleanup()
}

// NewRateLimiter creates a new rate limiter
// maxAttempts: maximum login attempts allowed within the window
// windowPeriod: time window for counting attempts
// lockDuration: how long to lock the IP after max attempts exceeded
func NewRateLimiter(maxAttempts int, windowPeriod, lockDuration time.Duration) *RateLimiter {
	return &RateLimiter{
		attempts:     make(map[string]*LoginAttempt),
		maxAttempts:  maxAttempts,
		windowPeriod: windowPeriod,
		lockDuration: lockDuration,
	}
}

// startCleanup periodically cleans up old entries
func (rl *RateLimiter) startCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	for range ticker.C {
		rl.cleanup()
	}
}

// cleanup removes expired entries
func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for ip, attempt := range rl.attempts {
		if attempt.IsLocked {
			if now.Sub(attempt.LockedAt) > rl.lockDuration {
				delete(rl.attempts, ip)
			}
		} else if now.Sub(attempt.FirstAt) > rl.windowPeriod {
			delete(rl.attempts, ip)
		}
	}
}

// Check reports whether an IP may attempt a login and how long a lock
// has left
func (rl *RateLimiter) Check(ip string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	attempt, exists := rl.attempts[ip]
	if !exists {
		return true, 0
	}

	if attempt.IsLocked {
		remaining := rl.lockDuration - now.Sub(attempt.LockedAt)
		if remaining > 0 {
			return false, remaining
		}
		delete(rl.attempts, ip)
		return true, 0
	}

	if now.Sub(attempt.FirstAt) > rl.windowPeriod {
		delete(rl.attempts, ip)
		return true, 0
	}

	return attempt.Count < rl.maxAttempts, 0
}

// RecordFailure records a failed login attempt for an IP
func (rl *RateLimiter) RecordFailure(ip string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	attempt, exists := rl.attempts[ip]
	if !exists || now.Sub(attempt.FirstAt) > rl.windowPeriod {
		rl.attempts[ip] = &LoginAttempt{Count: 1, FirstAt: now}
		return
	}

	attempt.Count++
	if attempt.Count >= rl.maxAttempts {
		attempt.IsLocked = true
		attempt.LockedAt = now
	}
}

// RecordSuccess clears the attempt history for an IP
func (rl *RateLimiter) RecordSuccess(ip string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.attempts, ip)
}

// LoginRateLimitMiddleware rejects login attempts from locked IPs
func LoginRateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if loginRateLimiter == nil {
			c.Next()
			return
		}

		ip := c.ClientIP()
		allowed, lockRemaining := loginRateLimiter.Check(ip)
		if !allowed {
			message := "Too many login attempts. Please try again later."
			if lockRemaining > 0 {
				message = fmt.Sprintf("Too many login attempts. Locked for another %v.", lockRemaining.Round(time.Minute))
			}
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limited",
				"message": message,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// RecordLoginFailure marks a failed login for the requesting IP
func RecordLoginFailure(c *gin.Context) {
	if loginRateLimiter != nil {
		loginRateLimiter.RecordFailure(c.ClientIP())
	}
}

// RecordLoginSuccess clears rate limit state for the requesting IP
func RecordLoginSuccess(c *gin.Context) {
	if loginRateLimiter != nil {
		loginRateLimiter.RecordSuccess(c.ClientIP())
	}
}
