package shutdown

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rohanthewiz/logger"
)

// DefaultGracePeriod bounds how long hooks may run once shutdown starts
const DefaultGracePeriod = 15 * time.Second

// HookFunc releases one resource. It receives the grace period it must finish within.
type HookFunc func(grace time.Duration) error

type namedHook struct {
	name string
	fn   HookFunc
}

var (
	hooks     []namedHook
	hooksLock sync.Mutex
)

// RegisterHook adds a hook to run on shutdown
func RegisterHook(name string, fn HookFunc) {
	hooksLock.Lock()
	defer hooksLock.Unlock()
	hooks = append(hooks, namedHook{name: name, fn: fn})
	logger.Debug("Registered shutdown hook", "name", name, "count", len(hooks))
}

// InitShutdownService waits for SIGINT or SIGTERM, runs every hook, then
// closes done so the app can exit
func InitShutdownService(done chan struct{}, grace time.Duration) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer close(done)

		sig := <-sigChan
		logger.Info("Received shutdown signal", "signal", sig.String())
		RunHooks(grace)
	}()
}

// RunHooks flags shutdown and runs all hooks concurrently.
// It returns true when every hook finished within grace.
func RunHooks(grace time.Duration) bool {
	setShutdown()

	hooksLock.Lock()
	pending := make([]namedHook, len(hooks))
	copy(pending, hooks)
	hooksLock.Unlock()

	logger.Info("Running shutdown hooks", "count", len(pending), "grace", grace.String())

	wg := sync.WaitGroup{}
	for _, h := range pending {
		wg.Add(1)
		go func(h namedHook) {
			defer wg.Done()
			if err := h.fn(grace); err != nil {
				logger.LogErr(err, "Shutdown hook failed", "name", h.name)
				return
			}
			logger.Debug("Shutdown hook completed", "name", h.name)
		}(h)
	}

	allDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(allDone)
	}()

	select {
	case <-allDone:
		logger.Info("All shutdown hooks completed")
		return true
	case <-time.After(grace):
		logger.Warn("Shutdown hooks timed out", "grace", grace.String())
		return false
	}
}
