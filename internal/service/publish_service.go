package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"linkbio/internal/domain"
	"linkbio/internal/editor"
	"linkbio/internal/logging"
	"linkbio/internal/render"
)

// PublishOptions tune the publish pipeline.
type PublishOptions struct {
	PublicBaseURL     string
	Minify            bool
	UploadConcurrency int
	// Now and NewPageID default to time.Now and uuid.NewString.
	Now       func() time.Time
	NewPageID func() string
}

// PublishResult is returned by a successful publish.
type PublishResult struct {
	PageID   string `json:"pageId"`
	URL      string `json:"url"`
	Uploaded int    `json:"uploaded"`
	// FirstPublish is true when the page id was minted by this call.
	FirstPublish bool `json:"firstPublish"`
}

// ExportResult carries a standalone document for download.
type ExportResult struct {
	FileName string `json:"fileName"`
	HTML     string `json:"html"`
	Uploaded int    `json:"uploaded"`
}

// UploadProgress is the payload of publish:progress events.
type UploadProgress struct {
	Name    string `json:"name"`
	Written int64  `json:"written"`
	Total   int64  `json:"total"`
}

// PublishService captures a session as static HTML and stores it under the
// user's public page id.
type PublishService struct {
	store    domain.DocumentStore
	objects  domain.ObjectStore
	renderer *render.Renderer
	emitter  EventEmitter
	logger   *zap.Logger
	opts     PublishOptions
	guard    runningJobsGuard
}

func NewPublishService(store domain.DocumentStore, objects domain.ObjectStore, renderer *render.Renderer, emitter EventEmitter, logger *zap.Logger, opts PublishOptions) *PublishService {
	if opts.UploadConcurrency < 1 {
		opts.UploadConcurrency = 4
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewPageID == nil {
		opts.NewPageID = uuid.NewString
	}
	return &PublishService{
		store:    store,
		objects:  objects,
		renderer: renderer,
		emitter:  orNop(emitter),
		logger:   logging.OrNop(logger).Named("publish"),
		opts:     opts,
	}
}

// Publish uploads pending assets, serializes the preview and writes it to
// publishedPages/{id}, reusing the user's latest page id when present.
// Any failure leaves the stored page untouched.
func (s *PublishService) Publish(ctx context.Context, sess *editor.Session) (PublishResult, error) {
	if !sess.Plan.Allows(domain.FeaturePublish) {
		return PublishResult{}, fmt.Errorf("publish: %w", domain.ErrFeatureLocked)
	}
	uid := sess.User.ID
	if uid == "" {
		return PublishResult{}, fmt.Errorf("publish: %w", domain.ErrNotSignedIn)
	}
	if !s.guard.TryLock(uid) {
		return PublishResult{}, fmt.Errorf("publish: %w", domain.ErrPublishInProgress)
	}
	defer s.guard.Unlock(uid)

	start := s.opts.Now()
	doc, uploaded, err := s.build(ctx, sess)
	if err != nil {
		return PublishResult{}, fmt.Errorf("publish: %w", err)
	}

	pageID, first, err := s.resolvePageID(ctx, uid)
	if err != nil {
		return PublishResult{}, fmt.Errorf("publish: %w", err)
	}

	rec := domain.PublishedDocument{HTML: doc, UserID: uid, Timestamp: s.opts.Now().UnixMilli()}
	if err := s.store.Set(ctx, domain.PagePath(pageID), rec); err != nil {
		return PublishResult{}, fmt.Errorf("publish: write page: %w", err)
	}
	if first {
		if err := s.store.Update(ctx, domain.UserPath(uid), map[string]any{"latestPage": pageID}); err != nil {
			return PublishResult{}, fmt.Errorf("publish: record latest page: %w", err)
		}
	}

	res := PublishResult{PageID: pageID, URL: s.PageURL(pageID), Uploaded: uploaded, FirstPublish: first}
	s.logger.Info("page published",
		zap.String("userId", uid),
		zap.String("pageId", pageID),
		zap.Int("blocks", sess.List.Len()),
		zap.Int("uploaded", uploaded),
		zap.Bool("first", first),
		zap.Duration("took", s.opts.Now().Sub(start)),
	)
	s.emitter.Emit(ctx, EventPublishDone, res)
	return res, nil
}

// Export runs the upload and serialization steps only.
func (s *PublishService) Export(ctx context.Context, sess *editor.Session) (ExportResult, error) {
	if !sess.Plan.Allows(domain.FeatureExport) {
		return ExportResult{}, fmt.Errorf("export: %w", domain.ErrFeatureLocked)
	}
	key := sess.User.ID
	if !s.guard.TryLock(key) {
		return ExportResult{}, fmt.Errorf("export: %w", domain.ErrPublishInProgress)
	}
	defer s.guard.Unlock(key)

	doc, uploaded, err := s.build(ctx, sess)
	if err != nil {
		return ExportResult{}, fmt.Errorf("export: %w", err)
	}
	return ExportResult{FileName: render.ExportFileName, HTML: doc, Uploaded: uploaded}, nil
}

// ExportToFile exports into dir and returns the written file path.
func (s *PublishService) ExportToFile(ctx context.Context, sess *editor.Session, dir string) (string, error) {
	res, err := s.Export(ctx, sess)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("export: %w", err)
	}
	dst := filepath.Join(dir, res.FileName)
	if err := os.WriteFile(dst, []byte(res.HTML), 0644); err != nil {
		return "", fmt.Errorf("export: write %s: %w", dst, err)
	}
	s.logger.Info("page exported", zap.String("path", dst), zap.Int("uploaded", res.Uploaded))
	return dst, nil
}

// LatestPage returns the page id recorded for uid.
func (s *PublishService) LatestPage(ctx context.Context, uid string) (string, error) {
	var rec domain.UserRecord
	err := domain.GetInto(ctx, s.store, domain.UserPath(uid), &rec)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return "", fmt.Errorf("latest page: %w", err)
	}
	if rec.LatestPage == "" {
		return "", domain.ErrNoLatestPage
	}
	return rec.LatestPage, nil
}

// PageURL is the public address of a published page.
func (s *PublishService) PageURL(pageID string) string {
	return s.opts.PublicBaseURL + "/" + pageID
}

// InProgress reports whether uid has a publish or export running.
func (s *PublishService) InProgress(uid string) bool {
	return s.guard.Running(uid)
}

// Wait blocks until running publishes finish or ctx ends.
func (s *PublishService) Wait(ctx context.Context) {
	s.guard.WaitAll(ctx)
}

// build uploads pending assets, then renders and serializes the session.
func (s *PublishService) build(ctx context.Context, sess *editor.Session) (string, int, error) {
	uploaded, err := s.uploadPending(ctx, sess)
	if err != nil {
		return "", 0, err
	}

	body, err := s.renderer.Render(sess.Snapshot())
	if err != nil {
		return "", 0, err
	}
	doc := render.Document(body)
	if refs := render.LocalReferences(doc); len(refs) > 0 {
		return "", 0, fmt.Errorf("%w: document still references local files %v", domain.ErrUploadFailed, refs)
	}
	if s.opts.Minify {
		if doc, err = render.Minify(doc); err != nil {
			return "", 0, err
		}
	}
	return doc, uploaded, nil
}

// uploadPending uploads every distinct pending asset concurrently and
// resolves the session references only after all of them succeed.
func (s *PublishService) uploadPending(ctx context.Context, sess *editor.Session) (int, error) {
	refs := sess.PendingAssets()
	if len(refs) == 0 {
		return 0, nil
	}

	type job struct {
		local  string
		object string
		name   string
	}
	var jobs []job
	seenPath := map[string]bool{}
	seenName := map[string]bool{}
	for _, ref := range refs {
		a := ref.Asset
		if seenPath[a.LocalPath] {
			continue
		}
		seenPath[a.LocalPath] = true
		name := a.Name
		if seenName[name] {
			name = fmt.Sprintf("%d-%s", len(jobs), name)
		}
		seenName[name] = true
		jobs = append(jobs, job{local: a.LocalPath, object: path.Join("banners", sess.User.ID, name), name: name})
	}

	var (
		mu   sync.Mutex
		urls = make(map[string]string, len(jobs))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.UploadConcurrency)
	for _, j := range jobs {
		g.Go(func() error {
			url, err := s.uploadFile(gctx, j.local, j.object, j.name)
			if err != nil {
				return err
			}
			mu.Lock()
			urls[j.local] = url
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Warn("asset upload failed", zap.String("userId", sess.User.ID), zap.Error(err))
		return 0, fmt.Errorf("%w: %w", domain.ErrUploadFailed, err)
	}

	sess.ResolveAssets(urls)
	return len(urls), nil
}

func (s *PublishService) uploadFile(ctx context.Context, local, object, name string) (string, error) {
	f, err := os.Open(local)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}

	url, err := s.objects.Upload(ctx, object, f, st.Size(), func(written, total int64) {
		s.emitter.Emit(ctx, EventPublishProgress, UploadProgress{Name: name, Written: written, Total: total})
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	return url, nil
}

// resolvePageID reuses the user's latest page or mints a new id. The read
// and the later write are not atomic across processes.
func (s *PublishService) resolvePageID(ctx context.Context, uid string) (string, bool, error) {
	id, err := s.LatestPage(ctx, uid)
	switch {
	case err == nil:
		return id, false, nil
	case errors.Is(err, domain.ErrNoLatestPage):
		return s.opts.NewPageID(), true, nil
	default:
		return "", false, err
	}
}
