package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"linkbio/internal/config"
	"linkbio/internal/service"
)

// ServePublic runs only the public page server until ctx is cancelled.
func ServePublic(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	svc, err := NewServices(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer svc.Close(context.WithoutCancel(ctx))
	return svc.PublicServer().Run(ctx)
}

// PublishDraft builds the draft at path for the configured user and
// publishes it.
func PublishDraft(ctx context.Context, cfg *config.Config, logger *zap.Logger, path string) (service.PublishResult, error) {
	var res service.PublishResult
	err := withDraft(ctx, cfg, logger, path, func(svc *Services) error {
		sess, err := svc.Editor.Session()
		if err != nil {
			return err
		}
		res, err = svc.Publisher.Publish(ctx, sess)
		return err
	})
	return res, err
}

// ExportDraft builds the draft at path and writes the standalone document
// into dir, returning the file written.
func ExportDraft(ctx context.Context, cfg *config.Config, logger *zap.Logger, path, dir string) (string, error) {
	var out string
	err := withDraft(ctx, cfg, logger, path, func(svc *Services) error {
		sess, err := svc.Editor.Session()
		if err != nil {
			return err
		}
		out, err = svc.Publisher.ExportToFile(ctx, sess, dir)
		return err
	})
	return out, err
}

func withDraft(ctx context.Context, cfg *config.Config, logger *zap.Logger, path string, fn func(*Services) error) error {
	draft, err := ReadDraft(path)
	if err != nil {
		return err
	}
	svc, err := NewServices(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer svc.Close(context.WithoutCancel(ctx))

	if _, err := svc.Identity.SignIn(ctx); err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	if err := draft.Apply(ctx, svc.Editor); err != nil {
		return fmt.Errorf("draft %s: %w", path, err)
	}
	return fn(svc)
}
