package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"linkbio/internal/logging"
	"linkbio/internal/service"
	"linkbio/internal/storage"
)

var (
	ErrRejected        = errors.New("action rejected by user")
	ErrApprovalTimeout = errors.New("approval timed out")
)

const (
	defaultApprovalTimeout = 120 * time.Second
	defaultApprovalPoll    = 500 * time.Millisecond
)

// PendingAction represents a destructive operation awaiting user approval.
type PendingAction struct {
	ID          string `json:"id"`
	Tool        string `json:"tool"`
	Description string `json:"description"`
	CreatedAt   string `json:"createdAt"`
	Metadata    string `json:"metadata"` // JSON with extra context (e.g. block ids)
}

// ApprovalQueue manages human-in-the-loop approval for destructive MCP tool calls.
// It supports two modes:
//   - In-process (desktop app running MCP): channels + mcp:approval-required events
//   - Store-based (standalone MCP): writes to mcp_approvals, polls for the result
type ApprovalQueue struct {
	mu      sync.Mutex
	pending map[string]chan bool
	emitter service.EventEmitter
	logger  *zap.Logger
	timeout time.Duration
	poll    time.Duration
	store   *storage.ApprovalStore
}

func NewApprovalQueue(emitter service.EventEmitter, logger *zap.Logger) *ApprovalQueue {
	if emitter == nil {
		emitter = service.FanOut(nil)
	}
	return &ApprovalQueue{
		pending: make(map[string]chan bool),
		emitter: emitter,
		logger:  logging.OrNop(logger),
		timeout: defaultApprovalTimeout,
		poll:    defaultApprovalPoll,
	}
}

// SetStore enables store-based approval for standalone MCP. The desktop app
// picks pending rows up and resolves them.
func (q *ApprovalQueue) SetStore(store *storage.ApprovalStore) {
	q.store = store
}

func (q *ApprovalQueue) SetTimeout(timeout, poll time.Duration) {
	q.timeout = timeout
	q.poll = poll
}

// Request asks the user to approve tool and blocks until they answer, the
// timeout passes or ctx ends. A refusal returns ErrRejected.
func (q *ApprovalQueue) Request(ctx context.Context, tool, description, metadata string) error {
	id := uuid.NewString()
	if metadata == "" {
		metadata = "{}"
	}
	q.logger.Info("approval requested", zap.String("id", id), zap.String("tool", tool))
	if q.store != nil {
		return q.requestViaStore(ctx, id, tool, description, metadata)
	}
	return q.requestViaChannel(ctx, id, tool, description, metadata)
}

func (q *ApprovalQueue) requestViaStore(ctx context.Context, id, tool, description, metadata string) error {
	err := q.store.Insert(ctx, storage.Approval{ID: id, Tool: tool, Description: description, Metadata: metadata})
	if err != nil {
		return err
	}
	// the row is ours to remove whatever the outcome
	defer q.store.Delete(context.WithoutCancel(ctx), id)

	timer := time.NewTimer(q.timeout)
	defer timer.Stop()
	ticker := time.NewTicker(q.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			status, err := q.store.Status(ctx, id)
			if err != nil {
				continue
			}
			switch status {
			case storage.ApprovalApproved:
				return nil
			case storage.ApprovalRejected:
				return fmt.Errorf("%s: %w", tool, ErrRejected)
			}
		case <-timer.C:
			return fmt.Errorf("%s after %s: %w", tool, q.timeout, ErrApprovalTimeout)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (q *ApprovalQueue) requestViaChannel(ctx context.Context, id, tool, description, metadata string) error {
	ch := make(chan bool, 1)

	q.mu.Lock()
	q.pending[id] = ch
	q.mu.Unlock()
	defer q.cleanup(id)

	q.emitter.Emit(ctx, service.EventApprovalRequired, PendingAction{
		ID:          id,
		Tool:        tool,
		Description: description,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
		Metadata:    metadata,
	})

	timer := time.NewTimer(q.timeout)
	defer timer.Stop()

	select {
	case approved := <-ch:
		if !approved {
			return fmt.Errorf("%s: %w", tool, ErrRejected)
		}
		return nil
	case <-timer.C:
		q.emitter.Emit(ctx, "mcp:approval-dismissed", map[string]string{"id": id})
		return fmt.Errorf("%s after %s: %w", tool, q.timeout, ErrApprovalTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Approve marks a pending action as approved (in-process mode).
func (q *ApprovalQueue) Approve(actionID string) bool {
	return q.resolve(actionID, true)
}

// Reject marks a pending action as rejected (in-process mode).
func (q *ApprovalQueue) Reject(actionID string) bool {
	return q.resolve(actionID, false)
}

func (q *ApprovalQueue) resolve(actionID string, approved bool) bool {
	q.mu.Lock()
	ch, ok := q.pending[actionID]
	q.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case ch <- approved:
		return true
	default:
		return false
	}
}

func (q *ApprovalQueue) cleanup(id string) {
	q.mu.Lock()
	delete(q.pending, id)
	q.mu.Unlock()
}
