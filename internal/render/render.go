// Package render turns an editing snapshot into the preview markup and the
// static document that gets published.
package render

import (
	_ "embed"
	"fmt"
	"html/template"
	"strings"

	"linkbio/internal/domain"
	"linkbio/internal/editor"
)

//go:embed preview.html.tmpl
var previewTemplate string

// glyphs maps each supported platform to the label drawn in its icon chip.
// A platform missing here is not rendered.
var glyphs = map[domain.Platform]string{
	domain.PlatformFacebook:   "f",
	domain.PlatformInstagram:  "IG",
	domain.PlatformWhatsApp:   "WA",
	domain.PlatformTelegram:   "TG",
	domain.PlatformTikTok:     "TT",
	domain.PlatformYouTube:    "YT",
	domain.PlatformTwitter:    "X",
	domain.PlatformLinkedIn:   "in",
	domain.PlatformAmazon:     "a",
	domain.PlatformShopee:     "S",
	domain.PlatformAliExpress: "AE",
}

// cssColor passes a color through to a style attribute. Values reach the
// renderer already checked by domain.ValidColor; anything else is dropped
// so the declaration falls back to the browser default.
func cssColor(v string) template.CSS {
	if !domain.ValidColor(v) {
		return ""
	}
	return template.CSS(strings.TrimSpace(v))
}

type blockRenderer func(domain.Block) (template.HTML, error)

// Renderer projects a snapshot to HTML. It holds no mutable state and is
// safe for concurrent use.
type Renderer struct {
	tmpl       *template.Template
	kinds      map[domain.BlockKind]blockRenderer
	landingURL string
}

type Options struct {
	// LandingURL is the target of the attribution footer link.
	LandingURL string
}

func New(opts Options) (*Renderer, error) {
	tmpl, err := template.New("preview").Funcs(template.FuncMap{
		"src":     func(a *domain.Asset) template.URL { return template.URL(a.Src()) },
		"url":     func(s string) template.URL { return template.URL(s) },
		"trusted": func(s string) template.HTML { return template.HTML(s) },
		"css":     cssColor,
	}).Parse(previewTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse preview template: %w", err)
	}
	r := &Renderer{tmpl: tmpl, landingURL: opts.LandingURL}
	r.kinds = map[domain.BlockKind]blockRenderer{
		domain.BlockKindLink:     r.named("link"),
		domain.BlockKindText:     r.named("text"),
		domain.BlockKindImage:    r.named("image"),
		domain.BlockKindTracking: r.named("tracking"),
	}
	return r, nil
}

// MustNew is New for static options that cannot fail at runtime.
func MustNew(opts Options) *Renderer {
	r, err := New(opts)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Renderer) named(name string) blockRenderer {
	return func(b domain.Block) (template.HTML, error) {
		var sb strings.Builder
		if err := r.tmpl.ExecuteTemplate(&sb, name, b); err != nil {
			return "", fmt.Errorf("render %s block %s: %w", name, b.ID, err)
		}
		return template.HTML(sb.String()), nil
	}
}

type socialView struct {
	Platform domain.Platform
	URL      string
	Glyph    string
}

type pageView struct {
	Style       domain.PageStyle
	Banner      template.URL
	Icon        template.URL
	Social      []socialView
	Blocks      []template.HTML
	Attribution bool
	LandingURL  string
}

// Render returns the preview markup. The newest block is drawn first, so
// the list is walked in reverse. Blocks without a renderer are skipped.
func (r *Renderer) Render(s editor.Snapshot) (string, error) {
	view := pageView{
		Style:       s.Style,
		Banner:      template.URL(s.Style.Banner.Src()),
		Icon:        template.URL(s.Style.Icon.Src()),
		Attribution: !s.Plan.Allows(domain.FeatureNoAttribution),
		LandingURL:  r.landingURL,
	}
	for _, ic := range s.Style.SocialIcons {
		g, ok := glyphs[ic.Platform]
		if !ok {
			continue
		}
		view.Social = append(view.Social, socialView{Platform: ic.Platform, URL: ic.URL, Glyph: g})
	}
	for i := len(s.Blocks) - 1; i >= 0; i-- {
		b := s.Blocks[i]
		if !b.HasPayload() {
			continue
		}
		if b.Kind == domain.BlockKindTracking && !s.Plan.Allows(domain.FeatureTracking) {
			continue
		}
		fn, ok := r.kinds[b.Kind]
		if !ok {
			continue
		}
		html, err := fn(b)
		if err != nil {
			return "", err
		}
		view.Blocks = append(view.Blocks, html)
	}

	var sb strings.Builder
	if err := r.tmpl.ExecuteTemplate(&sb, "page", view); err != nil {
		return "", fmt.Errorf("render page: %w", err)
	}
	return sb.String(), nil
}
