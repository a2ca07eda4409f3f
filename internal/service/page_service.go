package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"linkbio/internal/domain"
	"linkbio/internal/logging"
)

const viewIncrementTimeout = 5 * time.Second

// PageStats is the view count of a user's published page.
type PageStats struct {
	PageID      string    `json:"pageId"`
	Views       int64     `json:"views"`
	PublishedAt time.Time `json:"publishedAt"`
}

// PageService serves published pages to the public surface.
type PageService struct {
	store  domain.DocumentStore
	logger *zap.Logger
	wg     sync.WaitGroup
}

func NewPageService(store domain.DocumentStore, logger *zap.Logger) *PageService {
	return &PageService{store: store, logger: logging.OrNop(logger).Named("pages")}
}

// Fetch returns the page stored under pageID and counts one view in the
// background. The count is best effort: failures are logged only.
func (s *PageService) Fetch(ctx context.Context, pageID string) (domain.PublishedDocument, error) {
	if pageID == "" || strings.Contains(pageID, "/") {
		return domain.PublishedDocument{}, fmt.Errorf("page %q: %w", pageID, domain.ErrNotFound)
	}
	var doc domain.PublishedDocument
	if err := domain.GetInto(ctx, s.store, domain.PagePath(pageID), &doc); err != nil {
		return domain.PublishedDocument{}, fmt.Errorf("page %s: %w", pageID, err)
	}
	doc.ID = pageID

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ictx, cancel := context.WithTimeout(context.WithoutCancel(ctx), viewIncrementTimeout)
		defer cancel()
		if err := domain.Increment(ictx, s.store, domain.PagePath(pageID), "views", 1); err != nil {
			s.logger.Warn("view count not incremented", zap.String("pageId", pageID), zap.Error(err))
		}
	}()
	return doc, nil
}

// Wait blocks until in-flight view increments finish.
func (s *PageService) Wait() {
	s.wg.Wait()
}

// Stats reports the views of uid's latest page. Premium only.
func (s *PageService) Stats(ctx context.Context, uid string, plan domain.PlanTier) (PageStats, error) {
	if !plan.Allows(domain.FeatureViewCount) {
		return PageStats{}, fmt.Errorf("stats: %w", domain.ErrFeatureLocked)
	}
	var rec domain.UserRecord
	err := domain.GetInto(ctx, s.store, domain.UserPath(uid), &rec)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return PageStats{}, fmt.Errorf("stats: %w", err)
	}
	if rec.LatestPage == "" {
		return PageStats{}, domain.ErrNoLatestPage
	}
	var doc domain.PublishedDocument
	if err := domain.GetInto(ctx, s.store, domain.PagePath(rec.LatestPage), &doc); err != nil {
		return PageStats{}, fmt.Errorf("stats: %w", err)
	}
	return PageStats{PageID: rec.LatestPage, Views: doc.Views, PublishedAt: doc.PublishedAt()}, nil
}
