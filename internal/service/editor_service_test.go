package service_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkbio/internal/domain"
	"linkbio/internal/service"
)

func newEditor(t *testing.T, plan domain.PlanTier) (*service.EditorService, *service.MockEmitter) {
	t.Helper()
	stager, err := service.NewAssetStager(t.TempDir(), 1<<20)
	require.NoError(t, err)
	emitter := &service.MockEmitter{}
	svc := service.NewEditorService(newRenderer(), stager, emitter, nil, service.EditorOptions{UpgradeURL: "https://up.test", MaxImageBytes: 1 << 20})
	svc.Start(context.Background(), domain.User{ID: "u1"}, plan)
	return svc, emitter
}

func pngDataURL(content string) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte(content))
}

func TestEditorService_NotSignedIn(t *testing.T) {
	svc := service.NewEditorService(newRenderer(), nil, nil, nil, service.EditorOptions{})
	_, err := svc.Insert(context.Background(), domain.BlockKindLink, -1)
	assert.ErrorIs(t, err, domain.ErrNotSignedIn)
	_, err = svc.Preview()
	assert.ErrorIs(t, err, domain.ErrNotSignedIn)
}

func TestEditorService_StartRendersPreview(t *testing.T) {
	_, emitter := newEditor(t, domain.PlanFree)

	assert.Len(t, emitter.Named(service.EventSessionChanged), 1)
	last, ok := emitter.Last(service.EventPreviewUpdated)
	require.True(t, ok)
	assert.Contains(t, last.(service.PreviewEvent).HTML, "Linkiwi")
}

func TestEditorService_InsertNotices(t *testing.T) {
	ctx := context.Background()
	svc, emitter := newEditor(t, domain.PlanFree)

	for i := 0; i < 5; i++ {
		_, err := svc.Insert(ctx, domain.BlockKindText, -1)
		require.NoError(t, err)
	}
	_, err := svc.Insert(ctx, domain.BlockKindText, -1)
	assert.ErrorIs(t, err, domain.ErrQuotaExceeded)

	notices := emitter.Named(service.EventNotice)
	require.Len(t, notices, 6)
	assert.Equal(t, "Elemento adicionado!", notices[0].(service.Notice).Message)
	quota := notices[5].(service.Notice)
	assert.Equal(t, service.NoticeError, quota.Level)
	assert.Equal(t, "https://up.test", quota.RedirectURL)

	snap, err := svc.Snapshot()
	require.NoError(t, err)
	assert.Len(t, snap.Blocks, 5)
}

func TestEditorService_EveryMutationRerenders(t *testing.T) {
	ctx := context.Background()
	svc, emitter := newEditor(t, domain.PlanPremium)
	before := len(emitter.Named(service.EventPreviewUpdated))

	b, err := svc.Insert(ctx, domain.BlockKindLink, -1)
	require.NoError(t, err)
	_, err = svc.UpdateJSON(ctx, b.ID, json.RawMessage(`{"label":"Portfolio"}`))
	require.NoError(t, err)
	require.NoError(t, svc.UpdateStyle(ctx, domain.PageStylePatch{Title: domain.Ptr("Ana")}))
	require.NoError(t, svc.ToggleSocialIcon(ctx, domain.PlatformYouTube))

	updates := emitter.Named(service.EventPreviewUpdated)
	assert.Len(t, updates, before+4)
	html := updates[len(updates)-1].(service.PreviewEvent).HTML
	assert.Contains(t, html, "Portfolio")
	assert.Contains(t, html, ">Ana</h1>")
	assert.Contains(t, html, `data-platform="youtube"`)
}

func TestEditorService_UpdateJSONRejectsBadValue(t *testing.T) {
	ctx := context.Background()
	svc, emitter := newEditor(t, domain.PlanFree)
	b, err := svc.Insert(ctx, domain.BlockKindText, -1)
	require.NoError(t, err)

	_, err = svc.UpdateJSON(ctx, b.ID, json.RawMessage(`{"size":"text-9xl"}`))
	assert.ErrorIs(t, err, domain.ErrInvalidValue)
	last, _ := emitter.Last(service.EventNotice)
	assert.Equal(t, service.NoticeError, last.(service.Notice).Level)

	found, err := svc.UpdateJSON(ctx, "missing", json.RawMessage(`{}`))
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestEditorService_UpdateJSONRejectsForeignFields(t *testing.T) {
	ctx := context.Background()
	svc, emitter := newEditor(t, domain.PlanFree)
	b, err := svc.Insert(ctx, domain.BlockKindText, -1)
	require.NoError(t, err)

	_, err = svc.UpdateJSON(ctx, b.ID, json.RawMessage(`{"label":"hello","href":"https://x"}`))
	assert.ErrorIs(t, err, domain.ErrInvalidValue)
	last, _ := emitter.Last(service.EventNotice)
	assert.Equal(t, service.NoticeError, last.(service.Notice).Level)

	snap, err := svc.Snapshot()
	require.NoError(t, err)
	require.Len(t, snap.Blocks, 1)
	assert.Equal(t, b.Text.Content, snap.Blocks[0].Text.Content)
}

func TestEditorService_ColorValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newEditor(t, domain.PlanFree)
	b, err := svc.Insert(ctx, domain.BlockKindLink, -1)
	require.NoError(t, err)

	_, err = svc.UpdateJSON(ctx, b.ID, json.RawMessage(`{"backgroundColor":"rgb(1, 2, 3)","textColor":"hsl(120 50% 40%)"}`))
	require.NoError(t, err)
	_, err = svc.UpdateJSON(ctx, b.ID, json.RawMessage(`{"borderColor":"red; background: url(x)"}`))
	assert.ErrorIs(t, err, domain.ErrInvalidValue)

	snap, err := svc.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, "rgb(1, 2, 3)", snap.Blocks[0].Link.BackgroundColor)
	assert.Equal(t, b.Link.BorderColor, snap.Blocks[0].Link.BorderColor)

	err = svc.UpdateStyle(ctx, domain.PageStylePatch{Title: domain.Ptr("Ana"), TitleColor: domain.Ptr("expression(alert(1))")})
	assert.ErrorIs(t, err, domain.ErrInvalidValue)
	snap, err = svc.Snapshot()
	require.NoError(t, err)
	assert.NotEqual(t, "Ana", snap.Style.Title)
}

func TestEditorService_TwoStepRemove(t *testing.T) {
	ctx := context.Background()
	svc, emitter := newEditor(t, domain.PlanFree)
	a, _ := svc.Insert(ctx, domain.BlockKindLink, -1)
	b, _ := svc.Insert(ctx, domain.BlockKindLink, -1)

	req, err := svc.RequestRemove(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, req.BlockID)
	assert.Len(t, emitter.Named(service.EventRemoveRequested), 1)

	ok, err := svc.ConfirmRemove(ctx, "wrong-token")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.ConfirmRemove(ctx, req.Token)
	require.NoError(t, err)
	assert.True(t, ok)

	// a used token does nothing
	ok, _ = svc.ConfirmRemove(ctx, req.Token)
	assert.False(t, ok)

	req, err = svc.RequestRemove(ctx, b.ID)
	require.NoError(t, err)
	svc.CancelRemove()
	ok, _ = svc.ConfirmRemove(ctx, req.Token)
	assert.False(t, ok)

	snap, _ := svc.Snapshot()
	require.Len(t, snap.Blocks, 1)
	assert.Equal(t, b.ID, snap.Blocks[0].ID)

	_, err = svc.RequestRemove(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEditorService_AttachImage(t *testing.T) {
	ctx := context.Background()
	svc, _ := newEditor(t, domain.PlanFree)

	a, err := svc.AttachImage(ctx, service.SlotBanner, "me.png", pngDataURL("png-bytes"))
	require.NoError(t, err)
	assert.True(t, a.Pending())
	assert.True(t, strings.HasSuffix(a.Name, "-me.png"))
	assert.True(t, svc.References(a.LocalPath))

	html, err := svc.Preview()
	require.NoError(t, err)
	assert.Contains(t, html, `id="top-banner"`)
	assert.Contains(t, html, "blob:"+a.Name)

	text, _ := svc.Insert(ctx, domain.BlockKindText, -1)
	_, err = svc.AttachImage(ctx, text.ID, "x.png", pngDataURL("x"))
	assert.ErrorIs(t, err, domain.ErrKindMismatch)

	link, _ := svc.Insert(ctx, domain.BlockKindLink, -1)
	img, err := svc.AttachImage(ctx, link.ID, "thumb.png", pngDataURL("t"))
	require.NoError(t, err)
	got, _ := svc.Snapshot()
	assert.Equal(t, img.LocalPath, got.Blocks[1].Link.Image.LocalPath)

	_, err = svc.AttachImage(ctx, service.SlotIcon, "big.png", pngDataURL(strings.Repeat("x", 2<<20)))
	assert.ErrorIs(t, err, domain.ErrAssetTooLarge)
}

func TestEditorService_StopClearsSession(t *testing.T) {
	svc, emitter := newEditor(t, domain.PlanFree)
	svc.Stop(context.Background())

	_, err := svc.Session()
	assert.ErrorIs(t, err, domain.ErrNotSignedIn)
	assert.Len(t, emitter.Named(service.EventSessionChanged), 2)
}
