package editor

import (
	"fmt"
	"sync"

	"linkbio/internal/domain"
)

// Session is the editing context of one signed-in user: the block list,
// the page style and the drag controller. It is created with defaults and
// passed explicitly to whatever renders or publishes it.
type Session struct {
	User domain.User
	Plan domain.PlanTier

	List *BlockList
	Drag *DragController

	mu        sync.RWMutex
	style     domain.PageStyle
	listeners []func()
}

// Snapshot is an immutable copy of everything the renderer needs.
type Snapshot struct {
	Plan   domain.PlanTier  `json:"plan"`
	Style  domain.PageStyle `json:"style"`
	Blocks []domain.Block   `json:"blocks"`
}

// PendingRef locates a pending asset inside the session.
type PendingRef struct {
	Slot  string       `json:"slot"` // "banner", "icon" or "link:{id}"
	Asset domain.Asset `json:"asset"`
}

type SessionOptions struct {
	UpgradeURL    string
	MaxImageBytes int64
	IDGenerator   func() string
}

func NewSession(user domain.User, plan domain.PlanTier, opts SessionOptions) *Session {
	listOpts := []ListOption{WithPolicy(PlanPolicy(plan, opts.UpgradeURL))}
	if opts.MaxImageBytes > 0 {
		listOpts = append(listOpts, WithMaxImageBytes(opts.MaxImageBytes))
	}
	if opts.IDGenerator != nil {
		listOpts = append(listOpts, WithIDGenerator(opts.IDGenerator))
	}
	list := NewBlockList(listOpts...)
	s := &Session{
		User:  user,
		Plan:  plan,
		List:  list,
		Drag:  NewDragController(list),
		style: domain.DefaultPageStyle(),
	}
	list.Observe(func(Change) { s.changed() })
	return s
}

// OnChange registers fn to run after every block or style mutation.
func (s *Session) OnChange(fn func()) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *Session) changed() {
	s.mu.RLock()
	ls := append([]func(){}, s.listeners...)
	s.mu.RUnlock()
	for _, fn := range ls {
		fn()
	}
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	style := s.style.Clone()
	s.mu.RUnlock()
	return Snapshot{Plan: s.Plan, Style: style, Blocks: s.List.Blocks()}
}

func (s *Session) Style() domain.PageStyle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.style.Clone()
}

func (s *Session) UpdateStyle(p domain.PageStylePatch) error {
	s.mu.Lock()
	err := s.style.Apply(p)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.changed()
	return nil
}

func (s *Session) SetBanner(a domain.Asset) {
	s.mu.Lock()
	s.style.Banner = a
	s.mu.Unlock()
	s.changed()
}

func (s *Session) SetIcon(a domain.Asset) {
	s.mu.Lock()
	s.style.Icon = a
	s.mu.Unlock()
	s.changed()
}

func (s *Session) ToggleSocialIcon(p domain.Platform) error {
	s.mu.Lock()
	err := s.style.ToggleSocialIcon(p)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.changed()
	return nil
}

func (s *Session) SetSocialURL(p domain.Platform, url string) error {
	s.mu.Lock()
	err := s.style.SetSocialURL(p, url)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.changed()
	return nil
}

// PendingAssets lists every asset still referencing a local file.
func (s *Session) PendingAssets() []PendingRef {
	var refs []PendingRef
	s.mu.RLock()
	if s.style.Banner.Pending() {
		refs = append(refs, PendingRef{Slot: "banner", Asset: s.style.Banner})
	}
	if s.style.Icon.Pending() {
		refs = append(refs, PendingRef{Slot: "icon", Asset: s.style.Icon})
	}
	s.mu.RUnlock()
	for _, b := range s.List.Blocks() {
		if b.Link != nil && b.Link.Image != nil && b.Link.Image.Pending() {
			refs = append(refs, PendingRef{Slot: fmt.Sprintf("link:%s", b.ID), Asset: *b.Link.Image})
		}
	}
	return refs
}

// ResolveAssets replaces pending references with uploaded URLs, keyed by
// local path. Assets whose path is not in urls stay pending.
func (s *Session) ResolveAssets(urls map[string]string) {
	if len(urls) == 0 {
		return
	}
	s.mu.Lock()
	if u, ok := urls[s.style.Banner.LocalPath]; ok && s.style.Banner.Pending() {
		s.style.Banner.Resolve(u)
	}
	if u, ok := urls[s.style.Icon.LocalPath]; ok && s.style.Icon.Pending() {
		s.style.Icon.Resolve(u)
	}
	s.mu.Unlock()
	s.List.resolveLinkImages(urls)
	s.changed()
}

// References reports whether any part of the session points at localPath.
func (s *Session) References(localPath string) bool {
	for _, ref := range s.PendingAssets() {
		if ref.Asset.LocalPath == localPath {
			return true
		}
	}
	return false
}
