package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"linkbio/internal/service"
	"linkbio/internal/storage"
)

// approvalWatcher polls the approvals table for requests written by a
// standalone MCP process and forwards each one to the frontend once.
type approvalWatcher struct {
	store    *storage.ApprovalStore
	emitter  service.EventEmitter
	logger   *zap.Logger
	interval time.Duration

	mu sync.Mutex
	// Track emitted approval IDs to avoid infinite re-emission
	emitted map[string]bool
	stopCh  chan struct{}
	done    chan struct{}
}

func newApprovalWatcher(store *storage.ApprovalStore, emitter service.EventEmitter, logger *zap.Logger) *approvalWatcher {
	return &approvalWatcher{
		store:    store,
		emitter:  emitter,
		logger:   logger.Named("approvals"),
		interval: 2 * time.Second,
		emitted:  map[string]bool{},
	}
}

// Start begins the polling loop. Should be called once on app startup.
func (w *approvalWatcher) Start(ctx context.Context) {
	w.stopCh = make(chan struct{})
	w.done = make(chan struct{})
	go w.pollLoop(ctx)
}

// Stop terminates the polling loop and waits for it to exit.
func (w *approvalWatcher) Stop() {
	if w.stopCh == nil {
		return
	}
	close(w.stopCh)
	<-w.done
	w.stopCh = nil
}

func (w *approvalWatcher) pollLoop(ctx context.Context) {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.check(ctx)
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (w *approvalWatcher) check(ctx context.Context) {
	pending, err := w.store.Pending(ctx)
	if err != nil {
		w.logger.Warn("poll approvals", zap.Error(err))
		return
	}

	live := make(map[string]bool, len(pending))
	for _, a := range pending {
		live[a.ID] = true

		w.mu.Lock()
		alreadySent := w.emitted[a.ID]
		w.emitted[a.ID] = true
		w.mu.Unlock()
		if alreadySent {
			continue
		}
		w.emitter.Emit(ctx, "mcp:activity", map[string]any{"changes": 1})
		w.emitter.Emit(ctx, service.EventApprovalRequired, map[string]string{
			"id":          a.ID,
			"tool":        a.Tool,
			"description": a.Description,
			"createdAt":   a.CreatedAt,
			"metadata":    a.Metadata,
		})
	}

	// Forget resolved or deleted approvals (the MCP process deletes after reading)
	w.mu.Lock()
	for id := range w.emitted {
		if !live[id] {
			delete(w.emitted, id)
		}
	}
	w.mu.Unlock()
}
