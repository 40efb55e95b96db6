/**
 * @description
 * Per-account mutual exclusion for the transaction engine. Each user's account
 * is the unit of serialization: concurrent subscribe/cancel calls for the same
 * user must not interleave their check-then-mutate sequences, while operations
 * on different users proceed fully in parallel.
 *
 * Locks are created lazily on first use and never removed, so the map only
 * grows with the number of distinct accounts seen by this process.
 */

package app

import (
	"sync"

	"github.com/google/uuid"
)

// accountLocks maps user IDs to their mutexes.
type accountLocks struct {
	locks sync.Map // uuid.UUID -> *sync.Mutex
}

// acquire locks the mutex for the given user and returns it so the caller can
// defer the unlock on every exit path.
func (l *accountLocks) acquire(userID uuid.UUID) *sync.Mutex {
	actual, _ := l.locks.LoadOrStore(userID, &sync.Mutex{})
	mu := actual.(*sync.Mutex)
	mu.Lock()
	return mu
}
