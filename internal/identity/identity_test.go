package identity_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkbio/internal/config"
	"linkbio/internal/domain"
	"linkbio/internal/identity"
	"linkbio/internal/storage"
)

func newStore(t *testing.T) domain.DocumentStore {
	t.Helper()
	dir := t.TempDir()
	db, err := storage.New(filepath.Join(dir, "test.db"), dir)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return storage.NewDocumentStore(db)
}

func TestConfigProvider_CreatesRecordOnFirstLogin(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	p := identity.NewConfigProvider(config.IdentityConfig{UserID: "u1", Email: "a@b.c", Plan: "basic"}, store)

	acc, err := p.Login(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.User{ID: "u1", Email: "a@b.c"}, acc.User)
	assert.Equal(t, domain.PlanBasic, acc.Plan)

	var rec domain.UserRecord
	require.NoError(t, domain.GetInto(ctx, store, domain.UserPath("u1"), &rec))
	assert.Equal(t, "basic", rec.PlanType)
}

func TestConfigProvider_StoredPlanWins(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	require.NoError(t, store.Set(ctx, domain.UserPath("u1"), domain.UserRecord{PlanType: "premium", LatestPage: "p"}))

	acc, err := identity.NewConfigProvider(config.IdentityConfig{UserID: "u1", Plan: "free"}, store).Login(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.PlanPremium, acc.Plan)
}

func TestConfigProvider_NoUser(t *testing.T) {
	_, err := identity.NewConfigProvider(config.IdentityConfig{}, newStore(t)).Login(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotSignedIn)
}

type stubProvider struct {
	acc       identity.Account
	err       error
	loggedOut bool
}

func (s *stubProvider) Login(context.Context) (identity.Account, error) { return s.acc, s.err }
func (s *stubProvider) Logout(context.Context) error { s.loggedOut = true; return nil }

func TestCurrent_Lifecycle(t *testing.T) {
	ctx := context.Background()
	p := &stubProvider{acc: identity.Account{User: domain.User{ID: "u1"}, Plan: domain.PlanFree}}
	cur := identity.NewCurrent(p)

	var seen []string
	cur.OnChange(func(a *identity.Account) {
		if a == nil {
			seen = append(seen, "out")
			return
		}
		seen = append(seen, "in:"+a.User.ID)
	})

	_, err := cur.Get()
	assert.ErrorIs(t, err, domain.ErrNotSignedIn)

	_, err = cur.SignIn(ctx)
	require.NoError(t, err)
	acc, err := cur.Get()
	require.NoError(t, err)
	assert.Equal(t, "u1", acc.User.ID)

	cur.Expire()
	_, err = cur.Get()
	assert.ErrorIs(t, err, domain.ErrNotSignedIn)

	_, err = cur.SignIn(ctx)
	require.NoError(t, err)
	require.NoError(t, cur.SignOut(ctx))
	assert.True(t, p.loggedOut)

	assert.Equal(t, []string{"in:u1", "out", "in:u1", "out"}, seen)
}

func TestCurrent_FailedLoginStaysSignedOut(t *testing.T) {
	cur := identity.NewCurrent(&stubProvider{err: errors.New("denied")})
	_, err := cur.SignIn(context.Background())
	assert.Error(t, err)
	_, err = cur.Get()
	assert.ErrorIs(t, err, domain.ErrNotSignedIn)
}
