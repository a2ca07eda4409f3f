package render_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkbio/internal/domain"
	"linkbio/internal/editor"
	"linkbio/internal/render"
)

func block(t *testing.T, kind domain.BlockKind, id string, p domain.Patch) domain.Block {
	t.Helper()
	b, err := domain.NewBlock(kind, id)
	require.NoError(t, err)
	if p != nil {
		require.NoError(t, domain.ApplyPatch(&b, p))
	}
	return b
}

func snapshot(plan domain.PlanTier, blocks ...domain.Block) editor.Snapshot {
	return editor.Snapshot{Plan: plan, Style: domain.DefaultPageStyle(), Blocks: blocks}
}

func TestRender_ReverseInsertionOrder(t *testing.T) {
	r := render.MustNew(render.Options{})
	out, err := r.Render(snapshot(domain.PlanFree,
		block(t, domain.BlockKindLink, "first", domain.LinkPatch{Label: domain.Ptr("First")}),
		block(t, domain.BlockKindLink, "second", domain.LinkPatch{Label: domain.Ptr("Second")}),
		block(t, domain.BlockKindText, "third", domain.TextPatch{Content: domain.Ptr("Third")}),
	))
	require.NoError(t, err)

	i3 := strings.Index(out, `data-block-id="third"`)
	i2 := strings.Index(out, `data-block-id="second"`)
	i1 := strings.Index(out, `data-block-id="first"`)
	require.True(t, i3 >= 0 && i2 >= 0 && i1 >= 0, out)
	assert.Less(t, i3, i2)
	assert.Less(t, i2, i1)
}

func TestRender_Deterministic(t *testing.T) {
	r := render.MustNew(render.Options{LandingURL: "https://linkiwi.example"})
	s := snapshot(domain.PlanBasic,
		block(t, domain.BlockKindLink, "a", domain.LinkPatch{ShowIcon: domain.Ptr(true)}),
		block(t, domain.BlockKindImage, "b", domain.ImagePatch{Src: domain.Ptr("https://img.example/x.png")}),
	)
	first, err := r.Render(s)
	require.NoError(t, err)
	second, err := r.Render(s)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRender_BlockMarkup(t *testing.T) {
	r := render.MustNew(render.Options{})
	out, err := r.Render(snapshot(domain.PlanPremium,
		block(t, domain.BlockKindLink, "l", domain.LinkPatch{
			Label:           domain.Ptr("Loja"),
			Href:            domain.Ptr("https://shop.example/p"),
			BackgroundColor: domain.Ptr("#111111"),
			TextColor:       domain.Ptr("#eeeeee"),
			BorderColor:     domain.Ptr("#333333"),
			ShowIcon:        domain.Ptr(true),
		}),
		block(t, domain.BlockKindText, "t", domain.TextPatch{
			Content: domain.Ptr("Olá <mundo>"),
			Size:    domain.Ptr(domain.TextSize2XL),
			Bold:    domain.Ptr(true),
			Align:   domain.Ptr(domain.TextAlignCenter),
		}),
		block(t, domain.BlockKindImage, "i", domain.ImagePatch{Src: domain.Ptr("https://img.example/p.png"), Alt: domain.Ptr("Foto")}),
		block(t, domain.BlockKindTracking, "px", domain.TrackingPatch{PixelMarkup: domain.Ptr(`<script>track("id")</script>`)}),
	))
	require.NoError(t, err)

	assert.Contains(t, out, `href="https://shop.example/p"`)
	assert.Contains(t, out, `background-color: #111111`)
	assert.Contains(t, out, `border-color: #333333`)
	assert.Contains(t, out, "Loja")
	assert.Contains(t, out, `<svg`, "icon chip is drawn when showIcon is set")

	assert.Contains(t, out, `class="text-2xl font-bold text-center mb-0"`)
	assert.Contains(t, out, "Olá &lt;mundo&gt;", "user text is escaped")

	assert.Contains(t, out, `src="https://img.example/p.png"`)
	assert.Contains(t, out, `class="max-w-48 max-h-48 object-cover"`)

	assert.Contains(t, out, `<script>track("id")</script>`, "tracking markup is injected verbatim")
}

func TestRender_TrackingHiddenBelowPremium(t *testing.T) {
	r := render.MustNew(render.Options{})
	out, err := r.Render(snapshot(domain.PlanBasic,
		block(t, domain.BlockKindTracking, "px", domain.TrackingPatch{PixelMarkup: domain.Ptr(`<img src="https://px.example/1">`)}),
	))
	require.NoError(t, err)
	assert.NotContains(t, out, "px.example")
}

func TestRender_SkipsUnknownKinds(t *testing.T) {
	r := render.MustNew(render.Options{})
	out, err := r.Render(snapshot(domain.PlanFree,
		domain.Block{ID: "v", Kind: "video"},
		block(t, domain.BlockKindText, "t", nil),
	))
	require.NoError(t, err)
	assert.NotContains(t, out, `data-block-id="v"`)
	assert.Contains(t, out, `data-block-id="t"`)
}

func TestRender_AttributionFooter(t *testing.T) {
	r := render.MustNew(render.Options{LandingURL: "https://linkiwi.example"})

	free, err := r.Render(snapshot(domain.PlanFree))
	require.NoError(t, err)
	assert.Contains(t, free, "Página criada por")
	assert.Contains(t, free, "Todos os direitos reservados")
	assert.Contains(t, free, `href="https://linkiwi.example"`)

	premium, err := r.Render(snapshot(domain.PlanPremium))
	require.NoError(t, err)
	assert.NotContains(t, premium, "Página criada por")
}

func TestRender_PageStyle(t *testing.T) {
	r := render.MustNew(render.Options{})
	s := snapshot(domain.PlanFree)
	s.Style.Title = "Minha Loja"
	s.Style.TitleColor = "#ff0000"
	s.Style.Subtitle = ""
	s.Style.SocialIcons = []domain.SocialIcon{
		{Platform: domain.PlatformInstagram, URL: "https://instagram.com/me"},
		{Platform: "myspace", URL: "https://myspace.com/me"},
	}

	out, err := r.Render(s)
	require.NoError(t, err)
	assert.Contains(t, out, `id="top-banner"`)
	assert.Contains(t, out, `src="/top-banner-linkiwi.png"`)
	assert.Contains(t, out, `src="/icon-linkiwi.svg"`)
	assert.Contains(t, out, "Minha Loja")
	assert.Contains(t, out, "color: #ff0000")
	assert.NotContains(t, out, "<h2", "empty subtitle is omitted")
	assert.Contains(t, out, `data-platform="instagram"`)
	assert.NotContains(t, out, "myspace", "unknown platforms are skipped")
}

func TestRender_PendingAssetsUseLocalRefs(t *testing.T) {
	r := render.MustNew(render.Options{})
	s := snapshot(domain.PlanFree)
	s.Style.Banner = domain.PendingAsset("/stage/banner.png", 1)

	out, err := r.Render(s)
	require.NoError(t, err)
	assert.Contains(t, out, `src="blob:banner.png"`)
	assert.Equal(t, []string{`src="blob:banner.png"`}, render.LocalReferences(render.Document(out)))
}

func TestRender_FunctionalColors(t *testing.T) {
	r := render.MustNew(render.Options{})
	s := snapshot(domain.PlanFree,
		block(t, domain.BlockKindLink, "a", domain.LinkPatch{
			Label:           domain.Ptr("Loja"),
			BackgroundColor: domain.Ptr("rgb(1,2,3)"),
			TextColor:       domain.Ptr("hsla(0, 0%, 100%, 0.9)"),
		}),
	)
	s.Style.TitleColor = "rgba(0,0,0,.8)"
	out, err := r.Render(s)
	require.NoError(t, err)

	assert.NotContains(t, out, "ZgotmplZ")
	assert.Contains(t, out, "background-color: rgb(1,2,3)")
	assert.Contains(t, out, "color: hsla(0, 0%, 100%, 0.9)")
	assert.Contains(t, out, "color: rgba(0,0,0,.8)")
	assert.Contains(t, out, "<span>Loja</span>")
}

func TestRender_DefaultSocialIconsLinkOut(t *testing.T) {
	r := render.MustNew(render.Options{LandingURL: "https://linkiwi.example"})
	out, err := r.Render(snapshot(domain.PlanFree))
	require.NoError(t, err)

	assert.NotContains(t, out, `href=""`)
	for _, u := range []string{"https://facebook.com", "https://instagram.com", "https://whatsapp.com", "https://telegram.com"} {
		assert.Contains(t, out, `href="`+u+`"`)
	}
}
