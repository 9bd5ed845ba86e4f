package service

import (
	"sync"
	"time"

	"github.com/spec-kit/accomplishment-service/internal/domain"
)

const defaultUnknownAccountsCap = 100_000

// unknownAccounts keeps lockout state for email lookup keys that have no
// account, so failed logins against them count up and lock the same way a
// real account does. State lives in process memory.
type unknownAccounts struct {
	mu       sync.Mutex
	entries  map[string]unknownEntry
	capacity int
}

type unknownEntry struct {
	state    domain.LockoutState
	lastSeen time.Time
}

func newUnknownAccounts(capacity int) *unknownAccounts {
	if capacity <= 0 {
		capacity = defaultUnknownAccountsCap
	}
	return &unknownAccounts{entries: make(map[string]unknownEntry), capacity: capacity}
}

// peek returns the state of key and whether it is locked at now.
func (u *unknownAccounts) peek(key string, now time.Time) (domain.LockoutState, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	state := u.entries[key].state
	return state, state.LockedAt(now)
}

// fail records a failed attempt for key. When key is inside an open lockout
// window nothing changes and locked is true.
func (u *unknownAccounts) fail(key string, now time.Time) (state domain.LockoutState, locked bool) {
	u.mu.Lock()
	defer u.mu.Unlock()

	current := u.entries[key].state
	if current.LockedAt(now) {
		return current, true
	}

	next := nextLockoutState(current, false, now)
	u.entries[key] = unknownEntry{state: next, lastSeen: now}
	if len(u.entries) > u.capacity {
		u.prune(now)
	}
	return next, false
}

// forget drops the state of key once an account owns it.
func (u *unknownAccounts) forget(key string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.entries, key)
}

// prune drops unlocked entries idle for longer than a lockout window.
func (u *unknownAccounts) prune(now time.Time) {
	for key, e := range u.entries {
		if !e.state.LockedAt(now) && now.Sub(e.lastSeen) > LockoutWindow {
			delete(u.entries, key)
		}
	}
}
