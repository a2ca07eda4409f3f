package editor

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"linkbio/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// BlockList: ordered, mutable sequence of blocks with stable ids
// ─────────────────────────────────────────────────────────────

// InsertPolicy decides whether a block of kind may join a list that
// currently holds n blocks. A non-nil error aborts the insert.
type InsertPolicy func(kind domain.BlockKind, n int) error

// PlanPolicy enforces the plan tier's block quota and feature gates.
func PlanPolicy(plan domain.PlanTier, upgradeURL string) InsertPolicy {
	return func(kind domain.BlockKind, n int) error {
		if limit := plan.BlockQuota(); limit != domain.Unlimited && n >= limit {
			return &domain.QuotaError{Plan: plan, Limit: limit, UpgradeURL: upgradeURL}
		}
		if kind == domain.BlockKindTracking && !plan.Allows(domain.FeatureTracking) {
			return fmt.Errorf("%w: tracking blocks need premium", domain.ErrFeatureLocked)
		}
		return nil
	}
}

// ChangeKind names the mutation reported to list observers.
type ChangeKind string

const (
	ChangeInsert  ChangeKind = "insert"
	ChangeRemove  ChangeKind = "remove"
	ChangeUpdate  ChangeKind = "update"
	ChangeReorder ChangeKind = "reorder"
)

// Change describes one applied mutation.
type Change struct {
	Kind    ChangeKind
	BlockID string
}

// BlockList owns its blocks. Each operation is atomic; observers run after
// the list lock is released.
type BlockList struct {
	mu            sync.Mutex
	blocks        []domain.Block
	policy        InsertPolicy
	newID         func() string
	maxImageBytes int64
	observers     []func(Change)
}

type ListOption func(*BlockList)

// WithPolicy sets the insert policy. Without one inserts are unbounded.
func WithPolicy(p InsertPolicy) ListOption {
	return func(l *BlockList) { l.policy = p }
}

// WithIDGenerator overrides uuid-based ids (tests use sequential ids).
func WithIDGenerator(fn func() string) ListOption {
	return func(l *BlockList) { l.newID = fn }
}

// WithMaxImageBytes overrides domain.MaxImageBytes for link images.
func WithMaxImageBytes(n int64) ListOption {
	return func(l *BlockList) { l.maxImageBytes = n }
}

func NewBlockList(opts ...ListOption) *BlockList {
	l := &BlockList{
		newID:         uuid.NewString,
		maxImageBytes: domain.MaxImageBytes,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Observe registers fn to be called after every applied mutation.
func (l *BlockList) Observe(fn func(Change)) {
	l.mu.Lock()
	l.observers = append(l.observers, fn)
	l.mu.Unlock()
}

func (l *BlockList) notify(c Change) {
	l.mu.Lock()
	obs := append([]func(Change){}, l.observers...)
	l.mu.Unlock()
	for _, fn := range obs {
		fn(c)
	}
}

// Insert adds a new block of kind at position at. Out-of-range positions
// append. When the policy refuses, the list is unchanged.
func (l *BlockList) Insert(kind domain.BlockKind, at int) (domain.Block, error) {
	l.mu.Lock()
	if l.policy != nil {
		if err := l.policy(kind, len(l.blocks)); err != nil {
			l.mu.Unlock()
			return domain.Block{}, err
		}
	}
	b, err := domain.NewBlock(kind, l.uniqueID())
	if err != nil {
		l.mu.Unlock()
		return domain.Block{}, err
	}
	if at < 0 || at > len(l.blocks) {
		at = len(l.blocks)
	}
	l.blocks = append(l.blocks, domain.Block{})
	copy(l.blocks[at+1:], l.blocks[at:])
	l.blocks[at] = b
	l.mu.Unlock()

	l.notify(Change{Kind: ChangeInsert, BlockID: b.ID})
	return b.Clone(), nil
}

// Append is Insert at the end.
func (l *BlockList) Append(kind domain.BlockKind) (domain.Block, error) {
	return l.Insert(kind, -1)
}

func (l *BlockList) uniqueID() string {
	for {
		id := l.newID()
		if l.indexOf(id) < 0 {
			return id
		}
	}
}

// Remove deletes the block with id. Returns false if it was absent.
func (l *BlockList) Remove(id string) bool {
	l.mu.Lock()
	i := l.indexOf(id)
	if i < 0 {
		l.mu.Unlock()
		return false
	}
	l.blocks = append(l.blocks[:i], l.blocks[i+1:]...)
	l.mu.Unlock()

	l.notify(Change{Kind: ChangeRemove, BlockID: id})
	return true
}

// Update applies a kind-specific patch to the block with id, keeping its
// position. Returns false with a nil error if the block is absent.
func (l *BlockList) Update(id string, p domain.Patch) (bool, error) {
	l.mu.Lock()
	i := l.indexOf(id)
	if i < 0 {
		l.mu.Unlock()
		return false, nil
	}
	if err := domain.ApplyPatch(&l.blocks[i], p); err != nil {
		l.mu.Unlock()
		return true, err
	}
	l.mu.Unlock()

	l.notify(Change{Kind: ChangeUpdate, BlockID: id})
	return true, nil
}

// Reorder moves fromID to the position currently held by toID, shifting
// the blocks in between by one. It is a move, not a swap. Returns false
// when nothing moved.
func (l *BlockList) Reorder(fromID, toID string) bool {
	if fromID == toID {
		return false
	}
	l.mu.Lock()
	from, to := l.indexOf(fromID), l.indexOf(toID)
	if from < 0 || to < 0 {
		l.mu.Unlock()
		return false
	}
	moved := l.blocks[from]
	l.blocks = append(l.blocks[:from], l.blocks[from+1:]...)
	l.blocks = append(l.blocks, domain.Block{})
	copy(l.blocks[to+1:], l.blocks[to:])
	l.blocks[to] = moved
	l.mu.Unlock()

	l.notify(Change{Kind: ChangeReorder, BlockID: fromID})
	return true
}

// AttachLinkImage sets the pending image shown inside a link block.
func (l *BlockList) AttachLinkImage(id string, a domain.Asset) error {
	if a.Size > l.maxImageBytes {
		return fmt.Errorf("%w: %d bytes, limit %d", domain.ErrAssetTooLarge, a.Size, l.maxImageBytes)
	}
	l.mu.Lock()
	i := l.indexOf(id)
	if i < 0 {
		l.mu.Unlock()
		return fmt.Errorf("attach image: block %s: %w", id, domain.ErrNotFound)
	}
	b := &l.blocks[i]
	if b.Kind != domain.BlockKindLink || b.Link == nil {
		l.mu.Unlock()
		return fmt.Errorf("%w: images attach to link blocks only", domain.ErrKindMismatch)
	}
	img := a
	b.Link.Image = &img
	l.mu.Unlock()

	l.notify(Change{Kind: ChangeUpdate, BlockID: id})
	return nil
}

// resolveLinkImages swaps pending link images for their uploaded URLs,
// keyed by local path.
func (l *BlockList) resolveLinkImages(urls map[string]string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.blocks {
		lb := l.blocks[i].Link
		if lb == nil || lb.Image == nil || !lb.Image.Pending() {
			continue
		}
		if url, ok := urls[lb.Image.LocalPath]; ok {
			lb.Image.Resolve(url)
		}
	}
}

// Blocks returns a deep copy in list order.
func (l *BlockList) Blocks() []domain.Block {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.Block, len(l.blocks))
	for i, b := range l.blocks {
		out[i] = b.Clone()
	}
	return out
}

// IDs returns block ids in list order.
func (l *BlockList) IDs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]string, len(l.blocks))
	for i, b := range l.blocks {
		ids[i] = b.ID
	}
	return ids
}

func (l *BlockList) Get(id string) (domain.Block, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.indexOf(id)
	if i < 0 {
		return domain.Block{}, false
	}
	return l.blocks[i].Clone(), true
}

func (l *BlockList) IndexOf(id string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.indexOf(id)
}

func (l *BlockList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.blocks)
}

func (l *BlockList) indexOf(id string) int {
	for i := range l.blocks {
		if l.blocks[i].ID == id {
			return i
		}
	}
	return -1
}
