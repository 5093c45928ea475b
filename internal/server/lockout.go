// lockout.go - Per-username lockout after repeated failed logins
package server

import (
	"sync"
	"time"
)

// loginAttempt tracks failed logins for one username.
type loginAttempt struct {
	count       int
	lastAttempt time.Time
	lockedUntil time.Time
}

// AccountLockout locks a username for lockoutDuration once maxAttempts
// failures happen within windowDuration of each other.
type AccountLockout struct {
	mu              sync.Mutex
	attempts        map[string]*loginAttempt
	maxAttempts     int
	lockoutDuration time.Duration
	windowDuration  time.Duration
	now             func() time.Time

	done     chan struct{}
	stopOnce sync.Once
}

func NewAccountLockout(maxAttempts int, lockoutDuration, windowDuration time.Duration) *AccountLockout {
	al := &AccountLockout{
		attempts:        make(map[string]*loginAttempt),
		maxAttempts:     maxAttempts,
		lockoutDuration: lockoutDuration,
		windowDuration:  windowDuration,
		now:             time.Now,
		done:            make(chan struct{}),
	}
	go al.cleanupLoop()
	return al
}

// RecordFailedAttempt counts a failure and reports whether the username is
// now locked.
func (al *AccountLockout) RecordFailedAttempt(username string) (locked bool, lockedUntil time.Time) {
	al.mu.Lock()
	defer al.mu.Unlock()

	now := al.now()
	a, ok := al.attempts[username]
	if !ok {
		a = &loginAttempt{}
		al.attempts[username] = a
	}

	if now.Sub(a.lastAttempt) > al.windowDuration {
		a.count = 0
	}
	a.count++
	a.lastAttempt = now

	if a.count >= al.maxAttempts {
		a.lockedUntil = now.Add(al.lockoutDuration)
		return true, a.lockedUntil
	}
	return false, time.Time{}
}

// RecordSuccessfulLogin clears the failure history for username.
func (al *AccountLockout) RecordSuccessfulLogin(username string) {
	al.mu.Lock()
	defer al.mu.Unlock()
	delete(al.attempts, username)
}

// IsLocked reports whether username is locked and until when.
func (al *AccountLockout) IsLocked(username string) (bool, time.Time) {
	al.mu.Lock()
	defer al.mu.Unlock()

	a, ok := al.attempts[username]
	if !ok {
		return false, time.Time{}
	}
	if !a.lockedUntil.IsZero() && al.now().Before(a.lockedUntil) {
		return true, a.lockedUntil
	}
	return false, time.Time{}
}

// sweep removes entries whose lock expired and that saw no recent failures.
func (al *AccountLockout) sweep() {
	al.mu.Lock()
	defer al.mu.Unlock()

	now := al.now()
	for username, a := range al.attempts {
		if (a.lockedUntil.IsZero() || now.After(a.lockedUntil)) &&
			now.Sub(a.lastAttempt) > 2*al.windowDuration {
			delete(al.attempts, username)
		}
	}
}

func (al *AccountLockout) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			al.sweep()
		case <-al.done:
			return
		}
	}
}

// Stop ends the background sweeper.
func (al *AccountLockout) Stop() {
	al.stopOnce.Do(func() { close(al.done) })
}
