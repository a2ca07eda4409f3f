package app

import (
	"fmt"
	"os"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"linkbio/internal/render"
	"linkbio/internal/service"
)

// ============================================================
// Publish & export
// ============================================================

// Publish uploads pending images and stores the page under the user's
// public id. Progress arrives as publish:progress events.
func (a *App) Publish() (service.PublishResult, error) {
	sess, err := a.svc.Editor.Session()
	if err != nil {
		return service.PublishResult{}, a.svc.Editor.Report(a.ctx, err)
	}
	res, err := a.svc.Publisher.Publish(a.ctx, sess)
	if err != nil {
		return service.PublishResult{}, a.svc.Editor.Report(a.ctx, err)
	}
	return res, nil
}

// ExportPage asks where to save and writes the standalone document there.
// A cancelled dialog returns an empty path.
func (a *App) ExportPage() (string, error) {
	sess, err := a.svc.Editor.Session()
	if err != nil {
		return "", a.svc.Editor.Report(a.ctx, err)
	}
	path, err := wailsRuntime.SaveFileDialog(a.ctx, wailsRuntime.SaveDialogOptions{
		Title:           "Exportar página",
		DefaultFilename: render.ExportFileName,
		Filters: []wailsRuntime.FileFilter{
			{DisplayName: "HTML", Pattern: "*.html"},
		},
	})
	if err != nil {
		return "", fmt.Errorf("save file dialog: %w", err)
	}
	if path == "" {
		return "", nil
	}
	res, err := a.svc.Publisher.Export(a.ctx, sess)
	if err != nil {
		return "", a.svc.Editor.Report(a.ctx, err)
	}
	if err := os.WriteFile(path, []byte(res.HTML), 0644); err != nil {
		return "", a.svc.Editor.Report(a.ctx, fmt.Errorf("export: write %s: %w", path, err))
	}
	return path, nil
}

// PageStats returns the visit count of the published page. Premium only.
func (a *App) PageStats() (StatsView, error) {
	sess, err := a.svc.Editor.Session()
	if err != nil {
		return StatsView{}, a.svc.Editor.Report(a.ctx, err)
	}
	st, err := a.svc.Pages.Stats(a.ctx, sess.User.ID, sess.Plan)
	if err != nil {
		return StatsView{}, a.svc.Editor.Report(a.ctx, err)
	}
	return StatsView{
		PageID:      st.PageID,
		URL:         a.svc.Publisher.PageURL(st.PageID),
		Views:       st.Views,
		PublishedAt: st.PublishedAt.UnixMilli(),
	}, nil
}

// OpenPublishedPage opens the user's public page in the browser.
func (a *App) OpenPublishedPage() error {
	sess, err := a.svc.Editor.Session()
	if err != nil {
		return a.svc.Editor.Report(a.ctx, err)
	}
	id, err := a.svc.Publisher.LatestPage(a.ctx, sess.User.ID)
	if err != nil {
		return a.svc.Editor.Report(a.ctx, err)
	}
	wailsRuntime.BrowserOpenURL(a.ctx, a.svc.Publisher.PageURL(id))
	return nil
}
