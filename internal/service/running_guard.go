package service

import (
	"context"
	"sync"
)

// ExportedRunningGuard is an exported alias so _test packages can test the guard.
type ExportedRunningGuard = runningJobsGuard

// ─────────────────────────────────────────────────────────────
// runningJobsGuard allows one publish or export per user at a time
// ─────────────────────────────────────────────────────────────

// runningJobsGuard ensures only one job per key (a user id) runs at a time
// within this process. It does not coordinate separate processes.
type runningJobsGuard struct {
	mu      sync.Mutex
	running map[string]struct{}
	wg      sync.WaitGroup
}

// TryLock attempts to mark key as running. Returns false if it already is.
func (g *runningJobsGuard) TryLock(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running == nil {
		g.running = make(map[string]struct{})
	}
	if _, ok := g.running[key]; ok {
		return false
	}
	g.running[key] = struct{}{}
	g.wg.Add(1)
	return true
}

// Unlock marks key as no longer running. Must be called after TryLock returns true.
func (g *runningJobsGuard) Unlock(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.running, key)
	g.wg.Done()
}

// Running reports whether key holds the guard.
func (g *runningJobsGuard) Running(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.running[key]
	return ok
}

// WaitAll blocks until all running jobs complete or ctx is cancelled.
func (g *runningJobsGuard) WaitAll(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
