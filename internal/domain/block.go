package domain

import (
	"fmt"
	"strings"
)

type BlockKind string

const (
	BlockKindLink     BlockKind = "link"
	BlockKindText     BlockKind = "text"
	BlockKindImage    BlockKind = "image"
	BlockKindTracking BlockKind = "tracking"
)

// Kinds lists every supported block kind in menu order.
var Kinds = []BlockKind{BlockKindLink, BlockKindImage, BlockKindText, BlockKindTracking}

func (k BlockKind) Valid() bool {
	switch k {
	case BlockKindLink, BlockKindText, BlockKindImage, BlockKindTracking:
		return true
	}
	return false
}

type TextSize string

const (
	TextSizeSmall   TextSize = "text-sm"
	TextSizeMedium  TextSize = "text-md"
	TextSizeLarge   TextSize = "text-lg"
	TextSizeXL      TextSize = "text-xl"
	TextSize2XL     TextSize = "text-2xl"
	TextSize3XL     TextSize = "text-3xl"
	defaultTextSize          = TextSizeMedium
)

var textSizes = []TextSize{TextSizeSmall, TextSizeMedium, TextSizeLarge, TextSizeXL, TextSize2XL, TextSize3XL}

func (s TextSize) Valid() bool {
	for _, v := range textSizes {
		if v == s {
			return true
		}
	}
	return false
}

type TextAlign string

const (
	TextAlignLeft   TextAlign = "text-left"
	TextAlignCenter TextAlign = "text-center"
	TextAlignRight  TextAlign = "text-right"
)

func (a TextAlign) Valid() bool {
	return a == TextAlignLeft || a == TextAlignCenter || a == TextAlignRight
}

// Block is a tagged union: exactly the payload matching Kind is non-nil.
type Block struct {
	ID       string         `json:"id"`
	Kind     BlockKind      `json:"kind"`
	Link     *LinkBlock     `json:"link,omitempty"`
	Text     *TextBlock     `json:"text,omitempty"`
	Image    *ImageBlock    `json:"image,omitempty"`
	Tracking *TrackingBlock `json:"tracking,omitempty"`
}

type LinkBlock struct {
	Label               string `json:"label"`
	Href                string `json:"href"`
	BackgroundColor     string `json:"backgroundColor"`
	TextColor           string `json:"textColor"`
	BorderColor         string `json:"borderColor"`
	ShowIcon            bool   `json:"showIcon"`
	IconBackgroundColor string `json:"iconBackgroundColor"`
	IconColor           string `json:"iconColor"`
	Image               *Asset `json:"image,omitempty"`
}

type TextBlock struct {
	Content   string    `json:"content"`
	Size      TextSize  `json:"size"`
	Bold      bool      `json:"bold"`
	Align     TextAlign `json:"align"`
	TextColor string    `json:"textColor"`
}

type ImageBlock struct {
	Src string `json:"src"`
	Alt string `json:"alt"`
}

// TrackingBlock carries owner-authored markup that is injected verbatim.
type TrackingBlock struct {
	PixelMarkup string `json:"pixelMarkup"`
}

// NewBlock builds a block of the given kind with the editor defaults.
func NewBlock(kind BlockKind, id string) (Block, error) {
	b := Block{ID: id, Kind: kind}
	switch kind {
	case BlockKindLink:
		b.Link = &LinkBlock{
			Label:               "Novo Link",
			Href:                "#",
			BackgroundColor:     "#2563eb",
			TextColor:           "#ffffff",
			BorderColor:         "#E2E8F0",
			IconBackgroundColor: "#BEF264",
			IconColor:           "#292D32",
		}
	case BlockKindText:
		b.Text = &TextBlock{
			Content:   "Novo Texto",
			Size:      defaultTextSize,
			Align:     TextAlignLeft,
			TextColor: "#000000",
		}
	case BlockKindImage:
		b.Image = &ImageBlock{Alt: "Nova Imagem"}
	case BlockKindTracking:
		b.Tracking = &TrackingBlock{}
	default:
		return Block{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return b, nil
}

// Clone returns a deep copy so callers can't mutate list-owned payloads.
func (b Block) Clone() Block {
	c := Block{ID: b.ID, Kind: b.Kind}
	if b.Link != nil {
		l := *b.Link
		if b.Link.Image != nil {
			img := *b.Link.Image
			l.Image = &img
		}
		c.Link = &l
	}
	if b.Text != nil {
		t := *b.Text
		c.Text = &t
	}
	if b.Image != nil {
		i := *b.Image
		c.Image = &i
	}
	if b.Tracking != nil {
		tr := *b.Tracking
		c.Tracking = &tr
	}
	return c
}

// HasPayload reports whether the payload matching Kind is present.
func (b Block) HasPayload() bool {
	switch b.Kind {
	case BlockKindLink:
		return b.Link != nil
	case BlockKindText:
		return b.Text != nil
	case BlockKindImage:
		return b.Image != nil
	case BlockKindTracking:
		return b.Tracking != nil
	}
	return false
}

// Summary is a one-line description used by tool listings and logs.
func (b Block) Summary() string {
	switch b.Kind {
	case BlockKindLink:
		if b.Link != nil {
			return fmt.Sprintf("link %q -> %s", b.Link.Label, b.Link.Href)
		}
	case BlockKindText:
		if b.Text != nil {
			return fmt.Sprintf("text %q", truncate(b.Text.Content, 40))
		}
	case BlockKindImage:
		if b.Image != nil {
			return fmt.Sprintf("image %s", b.Image.Src)
		}
	case BlockKindTracking:
		if b.Tracking != nil {
			return fmt.Sprintf("tracking (%d bytes)", len(b.Tracking.PixelMarkup))
		}
	}
	return string(b.Kind)
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "…"
}
