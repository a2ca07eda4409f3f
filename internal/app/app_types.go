package app

import (
	"fmt"

	"linkbio/internal/domain"
	"linkbio/internal/editor"
)

// SessionView is the frontend view of the editing session. Blocks are in
// display order, newest first.
type SessionView struct {
	SignedIn   bool             `json:"signedIn"`
	User       domain.User      `json:"user"`
	Plan       domain.PlanTier  `json:"plan"`
	Quota      int              `json:"quota"` // -1 means unlimited
	Style      domain.PageStyle `json:"style"`
	Blocks     []domain.Block   `json:"blocks"`
	Publishing bool             `json:"publishing"`
}

// DragInput is one pointer or keyboard event as the frontend sends it.
type DragInput struct {
	Type    string  `json:"type"` // pointerdown, pointermove, pointerup, keydown, cancel
	BlockID string  `json:"blockId,omitempty"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Handle  bool    `json:"handle,omitempty"`
	NoDrag  bool    `json:"noDrag,omitempty"`
	Key     string  `json:"key,omitempty"`
	Reason  string  `json:"reason,omitempty"`
}

func (in DragInput) event() (editor.DragEvent, error) {
	at := editor.Point{X: in.X, Y: in.Y}
	switch in.Type {
	case "pointerdown":
		return editor.PointerDown{
			BlockID: in.BlockID,
			Target:  editor.Target{Handle: in.Handle, NoDrag: in.NoDrag},
			At:      at,
		}, nil
	case "pointermove":
		return editor.PointerMove{At: at}, nil
	case "pointerup":
		return editor.PointerUp{At: at}, nil
	case "keydown":
		return editor.KeyDown{Key: in.Key}, nil
	case "cancel":
		return editor.Cancel{Reason: in.Reason}, nil
	default:
		return nil, fmt.Errorf("unknown drag event %q", in.Type)
	}
}

// StatsView is the frontend view of the visit counter.
type StatsView struct {
	PageID      string `json:"pageId"`
	URL         string `json:"url"`
	Views       int64  `json:"views"`
	PublishedAt int64  `json:"publishedAt"` // unix milliseconds
}

func displayOrder(blocks []domain.Block) []domain.Block {
	out := make([]domain.Block, len(blocks))
	for i, b := range blocks {
		out[len(blocks)-1-i] = b
	}
	return out
}
