package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"linkbio/internal/domain"
	"linkbio/internal/editor"
	"linkbio/internal/logging"
	"linkbio/internal/render"
)

// PreviewEvent is the payload of preview:updated.
type PreviewEvent struct {
	HTML string `json:"html"`
}

// RemoveRequest is a removal awaiting confirmation.
type RemoveRequest struct {
	Token   string `json:"token"`
	BlockID string `json:"blockId"`
	Summary string `json:"summary"`
}

type EditorOptions struct {
	UpgradeURL    string
	MaxImageBytes int64
}

// EditorService drives one editing session: every mutation re-renders the
// preview and failures become notices instead of propagating to the UI.
type EditorService struct {
	renderer *render.Renderer
	emitter  EventEmitter
	stager   *AssetStager
	watcher  *AssetWatcher
	logger   *zap.Logger
	opts     EditorOptions

	mu      sync.RWMutex
	session *editor.Session
	pending *RemoveRequest
}

func NewEditorService(renderer *render.Renderer, stager *AssetStager, emitter EventEmitter, logger *zap.Logger, opts EditorOptions) *EditorService {
	if opts.MaxImageBytes <= 0 {
		opts.MaxImageBytes = domain.MaxImageBytes
	}
	return &EditorService{
		renderer: renderer,
		emitter:  orNop(emitter),
		stager:   stager,
		logger:   logging.OrNop(logger).Named("editor"),
		opts:     opts,
	}
}

// SetWatcher attaches a watcher that follows staged files.
func (s *EditorService) SetWatcher(w *AssetWatcher) {
	s.mu.Lock()
	s.watcher = w
	s.mu.Unlock()
}

// Start replaces the session with a fresh one for user, as after login.
func (s *EditorService) Start(ctx context.Context, user domain.User, plan domain.PlanTier) *editor.Session {
	sess := editor.NewSession(user, plan, editor.SessionOptions{
		UpgradeURL:    s.opts.UpgradeURL,
		MaxImageBytes: s.opts.MaxImageBytes,
	})
	sess.OnChange(func() { s.refresh(context.WithoutCancel(ctx), sess) })

	s.mu.Lock()
	s.session = sess
	s.pending = nil
	s.mu.Unlock()

	s.logger.Info("session started", zap.String("userId", user.ID), zap.String("plan", string(plan)))
	s.emitter.Emit(ctx, EventSessionChanged, sess.Snapshot())
	s.refresh(ctx, sess)
	return sess
}

// Stop drops the session, as after logout.
func (s *EditorService) Stop(ctx context.Context) {
	s.mu.Lock()
	s.session = nil
	s.pending = nil
	s.mu.Unlock()
	s.emitter.Emit(ctx, EventSessionChanged, nil)
}

// Session returns the active session or ErrNotSignedIn.
func (s *EditorService) Session() (*editor.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return nil, domain.ErrNotSignedIn
	}
	return s.session, nil
}

func (s *EditorService) Snapshot() (editor.Snapshot, error) {
	sess, err := s.Session()
	if err != nil {
		return editor.Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

// Preview renders the current session.
func (s *EditorService) Preview() (string, error) {
	sess, err := s.Session()
	if err != nil {
		return "", err
	}
	return s.renderer.Render(sess.Snapshot())
}

func (s *EditorService) refresh(ctx context.Context, sess *editor.Session) {
	html, err := s.renderer.Render(sess.Snapshot())
	if err != nil {
		s.logger.Error("render preview", zap.Error(err))
		return
	}
	s.emitter.Emit(ctx, EventPreviewUpdated, PreviewEvent{HTML: html})
}

// Report turns err into a notice event and returns it unchanged.
func (s *EditorService) Report(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	n := NoticeFor(err)
	s.logger.Info("operation rejected", zap.String("notice", n.Message), zap.Error(err))
	s.emitter.Emit(ctx, EventNotice, n)
	return err
}

// ── Blocks ─────────────────────────────────────────────────

// Insert adds a block of kind at position at (out of range appends).
func (s *EditorService) Insert(ctx context.Context, kind domain.BlockKind, at int) (domain.Block, error) {
	sess, err := s.Session()
	if err != nil {
		return domain.Block{}, s.Report(ctx, err)
	}
	b, err := sess.List.Insert(kind, at)
	if err != nil {
		return domain.Block{}, s.Report(ctx, err)
	}
	s.emitter.Emit(ctx, EventNotice, successNotice("Elemento adicionado!"))
	return b, nil
}

// Update applies p to block id. A missing block is a no-op.
func (s *EditorService) Update(ctx context.Context, id string, p domain.Patch) (bool, error) {
	sess, err := s.Session()
	if err != nil {
		return false, s.Report(ctx, err)
	}
	found, err := sess.List.Update(id, p)
	if err != nil {
		return found, s.Report(ctx, err)
	}
	return found, nil
}

// UpdateJSON decodes a patch for the kind of block id and applies it.
func (s *EditorService) UpdateJSON(ctx context.Context, id string, patch json.RawMessage) (bool, error) {
	sess, err := s.Session()
	if err != nil {
		return false, s.Report(ctx, err)
	}
	b, ok := sess.List.Get(id)
	if !ok {
		return false, nil
	}
	p, err := domain.DecodePatch(b.Kind, patch)
	if err != nil {
		return false, s.Report(ctx, err)
	}
	return s.Update(ctx, id, p)
}

func (s *EditorService) Reorder(ctx context.Context, fromID, toID string) (bool, error) {
	sess, err := s.Session()
	if err != nil {
		return false, s.Report(ctx, err)
	}
	return sess.List.Reorder(fromID, toID), nil
}

// RequestRemove starts the two-step removal of block id. A second request
// replaces the first.
func (s *EditorService) RequestRemove(ctx context.Context, id string) (RemoveRequest, error) {
	sess, err := s.Session()
	if err != nil {
		return RemoveRequest{}, s.Report(ctx, err)
	}
	b, ok := sess.List.Get(id)
	if !ok {
		return RemoveRequest{}, fmt.Errorf("remove %s: %w", id, domain.ErrNotFound)
	}
	req := RemoveRequest{Token: uuid.NewString(), BlockID: id, Summary: b.Summary()}
	s.mu.Lock()
	s.pending = &req
	s.mu.Unlock()
	s.emitter.Emit(ctx, EventRemoveRequested, req)
	return req, nil
}

// ConfirmRemove removes the block of a pending request. An unknown or
// stale token removes nothing.
func (s *EditorService) ConfirmRemove(ctx context.Context, token string) (bool, error) {
	s.mu.Lock()
	req := s.pending
	if req == nil || req.Token != token {
		s.mu.Unlock()
		return false, nil
	}
	s.pending = nil
	sess := s.session
	s.mu.Unlock()

	if sess == nil {
		return false, s.Report(ctx, domain.ErrNotSignedIn)
	}
	return sess.List.Remove(req.BlockID), nil
}

func (s *EditorService) CancelRemove() {
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
}

// PendingRemove returns the removal awaiting confirmation, if any.
func (s *EditorService) PendingRemove() (RemoveRequest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pending == nil {
		return RemoveRequest{}, false
	}
	return *s.pending, true
}

// Remove deletes block id immediately. Callers confirm out of band.
func (s *EditorService) Remove(ctx context.Context, id string) (bool, error) {
	sess, err := s.Session()
	if err != nil {
		return false, s.Report(ctx, err)
	}
	return sess.List.Remove(id), nil
}

// HandleDrag feeds one pointer or keyboard event to the drag controller.
func (s *EditorService) HandleDrag(ctx context.Context, ev editor.DragEvent) (editor.DragResult, error) {
	sess, err := s.Session()
	if err != nil {
		return editor.DragResult{}, s.Report(ctx, err)
	}
	return sess.Drag.Handle(ev), nil
}

func (s *EditorService) SetLayout(rects []editor.Rect) error {
	sess, err := s.Session()
	if err != nil {
		return err
	}
	sess.Drag.SetLayout(rects)
	return nil
}

// ── Page style ─────────────────────────────────────────────

func (s *EditorService) UpdateStyle(ctx context.Context, p domain.PageStylePatch) error {
	sess, err := s.Session()
	if err != nil {
		return s.Report(ctx, err)
	}
	if err := sess.UpdateStyle(p); err != nil {
		return s.Report(ctx, err)
	}
	return nil
}

func (s *EditorService) ToggleSocialIcon(ctx context.Context, p domain.Platform) error {
	sess, err := s.Session()
	if err != nil {
		return s.Report(ctx, err)
	}
	return s.Report(ctx, sess.ToggleSocialIcon(p))
}

func (s *EditorService) SetSocialURL(ctx context.Context, p domain.Platform, url string) error {
	sess, err := s.Session()
	if err != nil {
		return s.Report(ctx, err)
	}
	return s.Report(ctx, sess.SetSocialURL(p, url))
}

// ── Assets ─────────────────────────────────────────────────

// Asset slots accepted by AttachImage.
const (
	SlotBanner = "banner"
	SlotIcon   = "icon"
)

// AttachImage stages dataURL and attaches it to slot: "banner", "icon" or
// a link block id.
func (s *EditorService) AttachImage(ctx context.Context, slot, name, dataURL string) (domain.Asset, error) {
	sess, err := s.Session()
	if err != nil {
		return domain.Asset{}, s.Report(ctx, err)
	}
	if s.stager == nil {
		return domain.Asset{}, fmt.Errorf("attach image: no staging directory")
	}
	if slot != SlotBanner && slot != SlotIcon {
		b, ok := sess.List.Get(slot)
		if !ok {
			return domain.Asset{}, s.Report(ctx, fmt.Errorf("attach image: block %s: %w", slot, domain.ErrNotFound))
		}
		if b.Kind != domain.BlockKindLink {
			return domain.Asset{}, s.Report(ctx, fmt.Errorf("%w: images attach to link blocks only", domain.ErrKindMismatch))
		}
	}
	a, err := s.stager.StageDataURL(name, dataURL)
	if err != nil {
		return domain.Asset{}, s.Report(ctx, err)
	}
	return a, s.attach(ctx, sess, slot, a)
}

// AttachFile stages a file from disk and attaches it to slot.
func (s *EditorService) AttachFile(ctx context.Context, slot, path string) (domain.Asset, error) {
	sess, err := s.Session()
	if err != nil {
		return domain.Asset{}, s.Report(ctx, err)
	}
	if s.stager == nil {
		return domain.Asset{}, fmt.Errorf("attach file: no staging directory")
	}
	a, err := s.stager.StageFile(path)
	if err != nil {
		return domain.Asset{}, s.Report(ctx, err)
	}
	return a, s.attach(ctx, sess, slot, a)
}

func (s *EditorService) attach(ctx context.Context, sess *editor.Session, slot string, a domain.Asset) error {
	switch slot {
	case SlotBanner:
		sess.SetBanner(a)
	case SlotIcon:
		sess.SetIcon(a)
	default:
		if err := sess.List.AttachLinkImage(slot, a); err != nil {
			return s.Report(ctx, err)
		}
	}
	s.mu.RLock()
	w := s.watcher
	s.mu.RUnlock()
	if w != nil {
		if err := w.Watch(a.LocalPath); err != nil {
			s.logger.Warn("watch staged asset", zap.String("path", a.LocalPath), zap.Error(err))
		}
	}
	return nil
}

// AssetChanged re-renders after a staged file was modified on disk.
func (s *EditorService) AssetChanged(ctx context.Context, localPath string, size int64) {
	sess, err := s.Session()
	if err != nil || !sess.References(localPath) {
		return
	}
	if size > s.opts.MaxImageBytes {
		s.Report(ctx, fmt.Errorf("%w: %d bytes", domain.ErrAssetTooLarge, size))
	}
	s.refresh(ctx, sess)
}

// References reports whether the live session uses localPath.
func (s *EditorService) References(localPath string) bool {
	sess, err := s.Session()
	if err != nil {
		return false
	}
	return sess.References(localPath)
}
