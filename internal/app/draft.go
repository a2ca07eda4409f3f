package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"linkbio/internal/domain"
	"linkbio/internal/service"
)

// Draft describes a page in a JSON file so it can be published or exported
// without the desktop editor. Blocks are listed top to bottom as the page
// shows them. Image fields are local file paths, relative to the draft.
type Draft struct {
	Style  domain.PageStylePatch `json:"style"`
	Banner string                `json:"banner,omitempty"`
	Icon   string                `json:"icon,omitempty"`
	Social []DraftSocial         `json:"social,omitempty"`
	Blocks []DraftBlock          `json:"blocks"`
}

type DraftSocial struct {
	Platform domain.Platform `json:"platform"`
	URL      string          `json:"url,omitempty"`
}

type DraftBlock struct {
	Kind  domain.BlockKind `json:"kind"`
	Patch json.RawMessage  `json:"patch,omitempty"`
	Image string           `json:"image,omitempty"` // link blocks only
}

// ReadDraft loads path and resolves image paths against its directory.
func ReadDraft(path string) (Draft, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Draft{}, fmt.Errorf("read draft: %w", err)
	}
	var d Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return Draft{}, fmt.Errorf("parse draft %s: %w", path, err)
	}
	base := filepath.Dir(path)
	resolve := func(p *string) {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
	resolve(&d.Banner)
	resolve(&d.Icon)
	for i := range d.Blocks {
		resolve(&d.Blocks[i].Image)
	}
	return d, nil
}

// Apply builds the draft into the editor's current session. It stops at
// the first rejected operation, so a plan quota ends the draft early.
func (d Draft) Apply(ctx context.Context, ed *service.EditorService) error {
	if err := ed.UpdateStyle(ctx, d.Style); err != nil {
		return err
	}
	for _, s := range d.Social {
		if err := ed.ToggleSocialIcon(ctx, s.Platform); err != nil {
			return err
		}
		if s.URL != "" {
			if err := ed.SetSocialURL(ctx, s.Platform, s.URL); err != nil {
				return err
			}
		}
	}
	if d.Banner != "" {
		if _, err := ed.AttachFile(ctx, service.SlotBanner, d.Banner); err != nil {
			return fmt.Errorf("banner: %w", err)
		}
	}
	if d.Icon != "" {
		if _, err := ed.AttachFile(ctx, service.SlotIcon, d.Icon); err != nil {
			return fmt.Errorf("icon: %w", err)
		}
	}

	// The list holds blocks bottom to top, so each draft block goes in
	// front of the ones before it.
	for i, db := range d.Blocks {
		b, err := ed.Insert(ctx, db.Kind, 0)
		if err != nil {
			return fmt.Errorf("block %d: %w", i+1, err)
		}
		if len(db.Patch) > 0 {
			if _, err := ed.UpdateJSON(ctx, b.ID, db.Patch); err != nil {
				return fmt.Errorf("block %d: %w", i+1, err)
			}
		}
		if db.Image != "" {
			if _, err := ed.AttachFile(ctx, b.ID, db.Image); err != nil {
				return fmt.Errorf("block %d image: %w", i+1, err)
			}
		}
	}
	return nil
}
