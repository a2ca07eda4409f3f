package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Patch is a closed set of per-kind field edits. Only the types in this
// file implement it, so a field can never be set on the wrong kind.
type Patch interface {
	Kind() BlockKind
	apply(b *Block) error
}

// ApplyPatch edits b in place. The kind is immutable: a patch for another
// kind fails with ErrKindMismatch and b is left untouched.
func ApplyPatch(b *Block, p Patch) error {
	if p == nil {
		return nil
	}
	if b.Kind != p.Kind() {
		return fmt.Errorf("%w: block %s is %s, patch is %s", ErrKindMismatch, b.ID, b.Kind, p.Kind())
	}
	if !b.HasPayload() {
		return fmt.Errorf("%w: block %s has no %s payload", ErrInvalidValue, b.ID, b.Kind)
	}
	next := b.Clone()
	if err := p.apply(&next); err != nil {
		return err
	}
	*b = next
	return nil
}

type LinkPatch struct {
	Label               *string `json:"label,omitempty"`
	Href                *string `json:"href,omitempty"`
	BackgroundColor     *string `json:"backgroundColor,omitempty"`
	TextColor           *string `json:"textColor,omitempty"`
	BorderColor         *string `json:"borderColor,omitempty"`
	ShowIcon            *bool   `json:"showIcon,omitempty"`
	IconBackgroundColor *string `json:"iconBackgroundColor,omitempty"`
	IconColor           *string `json:"iconColor,omitempty"`
	ClearImage          bool    `json:"clearImage,omitempty"`
}

func (LinkPatch) Kind() BlockKind { return BlockKindLink }

func (p LinkPatch) apply(b *Block) error {
	if err := checkColors(map[string]*string{
		"backgroundColor":     p.BackgroundColor,
		"textColor":           p.TextColor,
		"borderColor":         p.BorderColor,
		"iconBackgroundColor": p.IconBackgroundColor,
		"iconColor":           p.IconColor,
	}); err != nil {
		return err
	}
	l := b.Link
	setString(&l.Label, p.Label)
	setString(&l.Href, p.Href)
	setString(&l.BackgroundColor, p.BackgroundColor)
	setString(&l.TextColor, p.TextColor)
	setString(&l.BorderColor, p.BorderColor)
	setString(&l.IconBackgroundColor, p.IconBackgroundColor)
	setString(&l.IconColor, p.IconColor)
	if p.ShowIcon != nil {
		l.ShowIcon = *p.ShowIcon
	}
	if p.ClearImage {
		l.Image = nil
	}
	return nil
}

type TextPatch struct {
	Content   *string    `json:"content,omitempty"`
	Size      *TextSize  `json:"size,omitempty"`
	Bold      *bool      `json:"bold,omitempty"`
	Align     *TextAlign `json:"align,omitempty"`
	TextColor *string    `json:"textColor,omitempty"`
}

func (TextPatch) Kind() BlockKind { return BlockKindText }

func (p TextPatch) apply(b *Block) error {
	if err := checkColor("textColor", p.TextColor); err != nil {
		return err
	}
	t := b.Text
	if p.Size != nil {
		if !p.Size.Valid() {
			return fmt.Errorf("%w: text size %q", ErrInvalidValue, *p.Size)
		}
		t.Size = *p.Size
	}
	if p.Align != nil {
		if !p.Align.Valid() {
			return fmt.Errorf("%w: text align %q", ErrInvalidValue, *p.Align)
		}
		t.Align = *p.Align
	}
	if p.Bold != nil {
		t.Bold = *p.Bold
	}
	setString(&t.Content, p.Content)
	setString(&t.TextColor, p.TextColor)
	return nil
}

type ImagePatch struct {
	Src *string `json:"src,omitempty"`
	Alt *string `json:"alt,omitempty"`
}

func (ImagePatch) Kind() BlockKind { return BlockKindImage }

func (p ImagePatch) apply(b *Block) error {
	setString(&b.Image.Src, p.Src)
	setString(&b.Image.Alt, p.Alt)
	return nil
}

type TrackingPatch struct {
	PixelMarkup *string `json:"pixelMarkup,omitempty"`
}

func (TrackingPatch) Kind() BlockKind { return BlockKindTracking }

func (p TrackingPatch) apply(b *Block) error {
	setString(&b.Tracking.PixelMarkup, p.PixelMarkup)
	return nil
}

// DecodePatch parses a JSON patch for the given kind. Used by the desktop
// bindings and the MCP tools, which receive untyped payloads. A field that
// the kind does not have is rejected rather than dropped.
func DecodePatch(kind BlockKind, data []byte) (Patch, error) {
	var p Patch
	switch kind {
	case BlockKindLink:
		var lp LinkPatch
		if err := decodeStrict(data, &lp); err != nil {
			return nil, fmt.Errorf("%w: %s patch: %v", ErrInvalidValue, kind, err)
		}
		p = lp
	case BlockKindText:
		var tp TextPatch
		if err := decodeStrict(data, &tp); err != nil {
			return nil, fmt.Errorf("%w: %s patch: %v", ErrInvalidValue, kind, err)
		}
		p = tp
	case BlockKindImage:
		var ip ImagePatch
		if err := decodeStrict(data, &ip); err != nil {
			return nil, fmt.Errorf("%w: %s patch: %v", ErrInvalidValue, kind, err)
		}
		p = ip
	case BlockKindTracking:
		var tr TrackingPatch
		if err := decodeStrict(data, &tr); err != nil {
			return nil, fmt.Errorf("%w: %s patch: %v", ErrInvalidValue, kind, err)
		}
		p = tr
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return p, nil
}

func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// Ptr returns a pointer to v, for building patches in Go code.
func Ptr[T any](v T) *T { return &v }

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
