package app

import (
	"context"
	"errors"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"
	"go.uber.org/zap"

	"linkbio/internal/config"
	"linkbio/internal/domain"
	"linkbio/internal/identity"
	"linkbio/internal/logging"
	"linkbio/internal/service"
	"linkbio/internal/storage"
)

// App is the main Wails application struct.
// All exported methods are available as Wails bindings.
type App struct {
	ctx    context.Context
	cfg    *config.Config
	logger *zap.Logger

	svc       *Services
	approvals *approvalWatcher
}

// New creates a new App.
func New(cfg *config.Config, logger *zap.Logger) *App {
	return &App{cfg: cfg, logger: logging.OrNop(logger)}
}

// Startup is called when the app starts.
func (a *App) Startup(ctx context.Context) {
	emitter := service.EmitterFunc(func(_ context.Context, event string, data any) {
		wailsRuntime.EventsEmit(ctx, event, data)
	})

	svc, err := NewServices(ctx, a.cfg, a.logger, emitter)
	if err != nil {
		wailsRuntime.LogFatalf(ctx, "Failed to start: %v", err)
		return
	}
	a.attach(ctx, svc, emitter)

	// Sign in right away; the configured identity needs no interaction.
	if _, err := svc.Identity.SignIn(ctx); err != nil {
		a.logger.Warn("sign-in failed", zap.Error(err))
	}
}

// attach wires svc into the bindings and starts polling for approvals
// written by a standalone MCP process.
func (a *App) attach(ctx context.Context, svc *Services, emitter service.EventEmitter) {
	a.ctx = ctx
	a.svc = svc
	a.approvals = newApprovalWatcher(svc.Approvals, emitter, a.logger)
	a.approvals.Start(ctx)
}

// Shutdown is called when the app is closing.
func (a *App) Shutdown(ctx context.Context) {
	if a.approvals != nil {
		a.approvals.Stop()
	}
	if a.svc != nil {
		if err := a.svc.Close(ctx); err != nil {
			a.logger.Warn("close services", zap.Error(err))
		}
	}
}

// ============================================================
// Session
// ============================================================

// Login signs in and starts a fresh editing session.
func (a *App) Login() (identity.Account, error) {
	acc, err := a.svc.Identity.SignIn(a.ctx)
	if err != nil {
		return identity.Account{}, a.svc.Editor.Report(a.ctx, err)
	}
	return acc, nil
}

// Logout drops the session. Unpublished edits are lost.
func (a *App) Logout() error {
	return a.svc.Identity.SignOut(a.ctx)
}

// GetSession returns the session view, or SignedIn false when nobody is
// signed in.
func (a *App) GetSession() (SessionView, error) {
	sess, err := a.svc.Editor.Session()
	if errors.Is(err, domain.ErrNotSignedIn) {
		return SessionView{}, nil
	}
	if err != nil {
		return SessionView{}, err
	}
	snap := sess.Snapshot()
	return SessionView{
		SignedIn:   true,
		User:       sess.User,
		Plan:       sess.Plan,
		Quota:      sess.Plan.BlockQuota(),
		Style:      snap.Style,
		Blocks:     displayOrder(snap.Blocks),
		Publishing: a.svc.Publisher.InProgress(sess.User.ID),
	}, nil
}

// Preview returns the current preview markup. Later changes arrive as
// preview:updated events.
func (a *App) Preview() (string, error) {
	return a.svc.Editor.Preview()
}

// OpenURL opens url in the system browser, as for the upgrade redirect.
func (a *App) OpenURL(url string) {
	wailsRuntime.BrowserOpenURL(a.ctx, url)
}

// ============================================================
// Window
// ============================================================

// InitialWindowSize reads the saved window size before the app starts,
// falling back to the default when the database cannot be opened.
func InitialWindowSize(cfg *config.Config) service.WindowSize {
	db, err := storage.New(cfg.DBPath(), cfg.DataDir)
	if err != nil {
		return service.NewWindowSettingsService(nil).LoadWindowSize()
	}
	defer db.Close()
	return service.NewWindowSettingsService(storage.NewSettingsStore(db)).LoadWindowSize()
}

func (a *App) GetWindowSize() service.WindowSize {
	return a.svc.Window.LoadWindowSize()
}

func (a *App) SaveWindowSize(width, height int) error {
	return a.svc.Window.SaveWindowSize(width, height)
}

// ============================================================
// MCP approvals
// ============================================================

// ApproveAction allows a pending destructive MCP action.
func (a *App) ApproveAction(id string) error {
	return a.resolveApproval(id, true)
}

// RejectAction refuses a pending destructive MCP action.
func (a *App) RejectAction(id string) error {
	return a.resolveApproval(id, false)
}

func (a *App) resolveApproval(id string, approved bool) error {
	ok, err := a.svc.Approvals.Resolve(a.ctx, id, approved)
	if err != nil {
		return err
	}
	if !ok {
		return errApprovalGone
	}
	return nil
}

var errApprovalGone = errors.New("approval is no longer pending")
