package app

import (
	"encoding/json"
	"fmt"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"linkbio/internal/domain"
	"linkbio/internal/editor"
	"linkbio/internal/service"
)

// ============================================================
// Blocks
// ============================================================

// InsertBlock adds a block of kind at position (negative or out of range
// appends). Quota refusals arrive as a notice with the upgrade redirect.
func (a *App) InsertBlock(kind string, position int) (domain.Block, error) {
	return a.svc.Editor.Insert(a.ctx, domain.BlockKind(kind), position)
}

// UpdateBlock applies a JSON patch for the block's kind. Returns false when
// the block no longer exists.
func (a *App) UpdateBlock(id, patchJSON string) (bool, error) {
	return a.svc.Editor.UpdateJSON(a.ctx, id, json.RawMessage(patchJSON))
}

// RequestRemove starts the confirmation step for removing a block.
func (a *App) RequestRemove(id string) (service.RemoveRequest, error) {
	return a.svc.Editor.RequestRemove(a.ctx, id)
}

func (a *App) ConfirmRemove(token string) (bool, error) {
	return a.svc.Editor.ConfirmRemove(a.ctx, token)
}

func (a *App) CancelRemove() {
	a.svc.Editor.CancelRemove()
}

// ReorderBlocks moves fromID to the position of toID.
func (a *App) ReorderBlocks(fromID, toID string) (bool, error) {
	return a.svc.Editor.Reorder(a.ctx, fromID, toID)
}

// ============================================================
// Drag
// ============================================================

// SetBlockLayout reports the on-screen boxes of the blocks, used as drop
// targets by the next gesture.
func (a *App) SetBlockLayout(rects []editor.Rect) error {
	return a.svc.Editor.SetLayout(rects)
}

// DragEvent feeds one pointer or keyboard event to the drag controller.
func (a *App) DragEvent(in DragInput) (editor.DragResult, error) {
	ev, err := in.event()
	if err != nil {
		return editor.DragResult{}, err
	}
	return a.svc.Editor.HandleDrag(a.ctx, ev)
}

// ============================================================
// Page style
// ============================================================

func (a *App) UpdateStyle(patch domain.PageStylePatch) error {
	return a.svc.Editor.UpdateStyle(a.ctx, patch)
}

func (a *App) ToggleSocialIcon(platform string) error {
	return a.svc.Editor.ToggleSocialIcon(a.ctx, domain.Platform(platform))
}

func (a *App) SetSocialURL(platform, url string) error {
	return a.svc.Editor.SetSocialURL(a.ctx, domain.Platform(platform), url)
}

// ============================================================
// Images
// ============================================================

// AttachImage stages an image sent by the frontend as a data URL. slot is
// "banner", "icon" or a link block id.
func (a *App) AttachImage(slot, name, dataURL string) (domain.Asset, error) {
	return a.svc.Editor.AttachImage(a.ctx, slot, name, dataURL)
}

// PickImage opens a file dialog and attaches the chosen image to slot. A
// cancelled dialog returns an empty asset.
func (a *App) PickImage(slot string) (domain.Asset, error) {
	path, err := wailsRuntime.OpenFileDialog(a.ctx, wailsRuntime.OpenDialogOptions{
		Title: "Escolher imagem",
		Filters: []wailsRuntime.FileFilter{
			{DisplayName: "Imagens", Pattern: "*.png;*.jpg;*.jpeg;*.gif;*.webp;*.svg"},
		},
	})
	if err != nil {
		return domain.Asset{}, fmt.Errorf("open file dialog: %w", err)
	}
	if path == "" {
		return domain.Asset{}, nil
	}
	return a.svc.Editor.AttachFile(a.ctx, slot, path)
}
