package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"linkbio/internal/config"
	"linkbio/internal/domain"
)

// Account is a signed-in user together with the plan read from users/{uid}.
type Account struct {
	User domain.User     `json:"user"`
	Plan domain.PlanTier `json:"plan"`
}

// Provider resolves who is editing. Authentication itself is external.
type Provider interface {
	Login(ctx context.Context) (Account, error)
	Logout(ctx context.Context) error
}

// ConfigProvider signs in the user named in the configuration. The plan is
// read from the user record, which is created with the configured plan on
// first login.
type ConfigProvider struct {
	cfg   config.IdentityConfig
	store domain.DocumentStore
}

func NewConfigProvider(cfg config.IdentityConfig, store domain.DocumentStore) *ConfigProvider {
	return &ConfigProvider{cfg: cfg, store: store}
}

func (p *ConfigProvider) Login(ctx context.Context) (Account, error) {
	if p.cfg.UserID == "" {
		return Account{}, domain.ErrNotSignedIn
	}
	user := domain.User{ID: p.cfg.UserID, Email: p.cfg.Email}

	var rec domain.UserRecord
	err := domain.GetInto(ctx, p.store, domain.UserPath(user.ID), &rec)
	switch {
	case err == nil:
		return Account{User: user, Plan: rec.Plan()}, nil
	case errors.Is(err, domain.ErrNotFound):
		plan := domain.ParsePlan(p.cfg.Plan)
		if err := p.store.Update(ctx, domain.UserPath(user.ID), map[string]any{"planType": string(plan)}); err != nil {
			return Account{}, fmt.Errorf("login: create user record: %w", err)
		}
		return Account{User: user, Plan: plan}, nil
	default:
		return Account{}, fmt.Errorf("login: %w", err)
	}
}

func (p *ConfigProvider) Logout(context.Context) error { return nil }

// Current holds the process-wide signed-in account. It moves from signed
// out to signed in on SignIn and back on SignOut or Expire.
type Current struct {
	mu        sync.Mutex
	provider  Provider
	account   *Account
	listeners []func(*Account)
}

func NewCurrent(p Provider) *Current {
	return &Current{provider: p}
}

// OnChange registers fn to run after every sign-in or sign-out. fn receives
// nil when signed out.
func (c *Current) OnChange(fn func(*Account)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

func (c *Current) SignIn(ctx context.Context) (Account, error) {
	acc, err := c.provider.Login(ctx)
	if err != nil {
		return Account{}, err
	}
	c.set(&acc)
	return acc, nil
}

func (c *Current) SignOut(ctx context.Context) error {
	err := c.provider.Logout(ctx)
	c.set(nil)
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// Expire clears the account without contacting the provider, as when a
// token lapses.
func (c *Current) Expire() {
	c.set(nil)
}

// Get returns the signed-in account or ErrNotSignedIn.
func (c *Current) Get() (Account, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.account == nil {
		return Account{}, domain.ErrNotSignedIn
	}
	return *c.account, nil
}

func (c *Current) set(acc *Account) {
	c.mu.Lock()
	c.account = acc
	listeners := append([]func(*Account){}, c.listeners...)
	c.mu.Unlock()

	for _, fn := range listeners {
		if acc == nil {
			fn(nil)
			continue
		}
		cp := *acc
		fn(&cp)
	}
}
