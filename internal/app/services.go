package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"linkbio/internal/config"
	"linkbio/internal/dbclient"
	"linkbio/internal/domain"
	"linkbio/internal/identity"
	"linkbio/internal/logging"
	"linkbio/internal/public"
	"linkbio/internal/render"
	"linkbio/internal/secret"
	"linkbio/internal/service"
	"linkbio/internal/storage"
)

// Services is everything one process needs, wired from the configuration.
// The desktop editor, the standalone MCP server and the public server all
// start from here and differ only in which surfaces they expose.
type Services struct {
	Config *config.Config
	Logger *zap.Logger

	DB        *storage.DB
	Store     domain.DocumentStore
	Objects   *storage.DiskObjectStore
	Settings  *storage.SettingsStore
	Approvals *storage.ApprovalStore
	Secrets   secret.SecretStore

	Renderer  *render.Renderer
	Editor    *service.EditorService
	Publisher *service.PublishService
	Pages     *service.PageService
	Window    *service.WindowSettingsService
	Identity  *identity.Current
	Hub       *public.PreviewHub

	watcher *service.AssetWatcher
	sweeper *service.StagingSweeper
}

// NewServices opens storage and builds the services. Events go to emitter
// and to the preview hub. The editing session follows the identity: it
// starts on sign-in and is dropped on sign-out.
func NewServices(ctx context.Context, cfg *config.Config, logger *zap.Logger, emitter service.EventEmitter) (*Services, error) {
	logger = logging.OrNop(logger)
	s := &Services{Config: cfg, Logger: logger}

	db, err := storage.New(cfg.DBPath(), cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	s.DB = db
	s.Settings = storage.NewSettingsStore(db)
	s.Approvals = storage.NewApprovalStore(db)
	s.Window = service.NewWindowSettingsService(s.Settings)
	s.Secrets = secret.Chain{secret.NewEnvStore(), secret.NewKeychainStore()}

	s.Store, err = dbclient.Open(ctx, cfg.Store, db, s.Secrets, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	s.Objects, err = storage.NewDiskObjectStore(cfg.Assets.Dir, cfg.Assets.BaseURL)
	if err != nil {
		s.Close(ctx)
		return nil, fmt.Errorf("asset store: %w", err)
	}

	s.Renderer, err = render.New(render.Options{LandingURL: cfg.LandingURL})
	if err != nil {
		s.Close(ctx)
		return nil, err
	}

	stager, err := service.NewAssetStager(cfg.StagingDir(), cfg.Assets.MaxImageBytes)
	if err != nil {
		s.Close(ctx)
		return nil, err
	}

	s.Hub = public.NewPreviewHub(logger)
	events := service.FanOut{emitter, s.Hub}

	s.Editor = service.NewEditorService(s.Renderer, stager, events, logger, service.EditorOptions{
		UpgradeURL:    cfg.UpgradeURL,
		MaxImageBytes: cfg.Assets.MaxImageBytes,
	})
	s.Publisher = service.NewPublishService(s.Store, s.Objects, s.Renderer, events, logger, service.PublishOptions{
		PublicBaseURL:     cfg.Server.PublicBaseURL,
		Minify:            cfg.Publish.Minify,
		UploadConcurrency: cfg.Publish.UploadConcurrency,
	})
	s.Pages = service.NewPageService(s.Store, logger)

	s.watcher, err = service.NewAssetWatcher(func(path string, size int64) {
		s.Editor.AssetChanged(ctx, path, size)
	}, logger)
	if err != nil {
		logger.Warn("asset watcher unavailable", zap.Error(err))
	} else {
		s.Editor.SetWatcher(s.watcher)
	}

	s.sweeper = service.NewStagingSweeper(stager.Dir(), cfg.Staging.MaxAgeDuration(), s.Editor.References, logger)
	if cfg.Staging.SweepSchedule != "" {
		if err := s.sweeper.Start(cfg.Staging.SweepSchedule); err != nil {
			s.Close(ctx)
			return nil, err
		}
	}

	s.Identity = identity.NewCurrent(identity.NewConfigProvider(cfg.Identity, s.Store))
	s.Identity.OnChange(func(acc *identity.Account) {
		if acc == nil {
			s.Editor.Stop(ctx)
			return
		}
		s.Editor.Start(ctx, acc.User, acc.Plan)
	})
	return s, nil
}

// PublicServer serves published pages and the live preview from this
// process.
func (s *Services) PublicServer() *public.Server {
	return public.New(s.Config.Server, s.Config.Assets.Dir, s.Pages, s.Hub, s.Logger)
}

// Close stops background work, waits for in-flight publishes and view
// counts, then releases storage.
func (s *Services) Close(ctx context.Context) error {
	if s.sweeper != nil {
		s.sweeper.Stop()
	}
	if s.watcher != nil {
		s.watcher.Close()
	}
	if s.Publisher != nil {
		s.Publisher.Wait(ctx)
	}
	if s.Pages != nil {
		s.Pages.Wait()
	}
	if s.Hub != nil {
		s.Hub.Close()
	}

	var errs []error
	if s.Store != nil {
		errs = append(errs, s.Store.Close())
	}
	if s.DB != nil {
		errs = append(errs, s.DB.Close())
	}
	return errors.Join(errs...)
}
