// Package shutdown coordinates a graceful stop. It keeps a process-wide
// flag that request handlers check so no new work starts once a signal
// has arrived, and runs registered hooks to release the store and server.
package shutdown

import (
	"sync"
)

var (
	isShutdown bool
	mu         sync.RWMutex
)

// CheckShutdown reports whether shutdown has begun
func CheckShutdown() bool {
	mu.RLock()
	defer mu.RUnlock()
	return isShutdown
}

func setShutdown() {
	mu.Lock()
	isShutdown = true
	mu.Unlock()
}

// reset clears all state. Tests only.
func reset() {
	mu.Lock()
	isShutdown = false
	mu.Unlock()

	hooksLock.Lock()
	hooks = nil
	hooksLock.Unlock()
}
