package secret_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkbio/internal/secret"
)

func TestEnvName(t *testing.T) {
	assert.Equal(t, "LINKBIO_SECRET_POSTGRES_PROD", secret.EnvName("postgres-prod"))
	assert.Equal(t, "LINKBIO_SECRET_REDIS_1", secret.EnvName("redis.1"))
}

func TestEnvStore(t *testing.T) {
	t.Setenv("LINKBIO_SECRET_DB", "from-env")
	s := secret.NewEnvStore()

	v, err := s.Get("db")
	require.NoError(t, err)
	assert.Equal(t, "from-env", string(v))

	require.NoError(t, s.Set("db", []byte("override")))
	v, _ = s.Get("db")
	assert.Equal(t, "override", string(v))

	require.NoError(t, s.Delete("db"))
	v, _ = s.Get("db")
	assert.Equal(t, "from-env", string(v))

	v, err = s.Get("missing")
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestChain_FirstNonEmptyWins(t *testing.T) {
	first, second := secret.NewEnvStore(), secret.NewEnvStore()
	require.NoError(t, second.Set("k", []byte("two")))
	c := secret.Chain{first, second}

	v, err := c.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "two", string(v))

	require.NoError(t, c.Set("k", []byte("one")))
	v, _ = c.Get("k")
	assert.Equal(t, "one", string(v))
}

type fakeSecurity struct {
	items map[string]string
	calls [][]string
}

func (f *fakeSecurity) run(args ...string) ([]byte, int, error) {
	f.calls = append(f.calls, args)
	account, service := args[2], args[4]
	key := service + "/" + account
	switch args[0] {
	case "add-generic-password":
		f.items[key] = args[6]
		return nil, 0, nil
	case "find-generic-password":
		v, ok := f.items[key]
		if !ok {
			return nil, 44, errors.New("security find-generic-password: item not found")
		}
		return []byte(v + "\n"), 0, nil
	case "delete-generic-password":
		if _, ok := f.items[key]; !ok {
			return nil, 44, errors.New("security delete-generic-password: item not found")
		}
		delete(f.items, key)
		return nil, 0, nil
	}
	return nil, 1, errors.New("unexpected command")
}

func TestKeychainStore(t *testing.T) {
	fake := &fakeSecurity{items: map[string]string{}}
	k := secret.NewKeychainStore(secret.WithService("linkbio-test"), secret.WithRunner(fake.run))

	v, err := k.Get("pg")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, k.Set("pg", []byte("s3cret")))
	assert.Equal(t, "s3cret", fake.items["linkbio-test/pg"])
	v, err = k.Get("pg")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", string(v))

	require.NoError(t, k.Delete("pg"))
	require.NoError(t, k.Delete("pg"))
}

func TestKeychainStore_ReportsFailures(t *testing.T) {
	locked := func(args ...string) ([]byte, int, error) {
		return nil, 51, errors.New("security: user interaction is not allowed")
	}
	k := secret.NewKeychainStore(secret.WithRunner(locked))
	_, err := k.Get("pg")
	assert.ErrorContains(t, err, "interaction is not allowed")

	missing := func(args ...string) ([]byte, int, error) {
		return nil, -1, secret.ErrUnavailable
	}
	k = secret.NewKeychainStore(secret.WithRunner(missing))
	_, err = k.Get("pg")
	assert.ErrorIs(t, err, secret.ErrUnavailable)
}

func TestChain_SkipsUnavailableStores(t *testing.T) {
	missing := secret.NewKeychainStore(secret.WithRunner(func(args ...string) ([]byte, int, error) {
		return nil, -1, secret.ErrUnavailable
	}))
	env := secret.NewEnvStore()
	require.NoError(t, env.Set("db", []byte("from-env")))

	v, err := secret.Chain{missing, env}.Get("db")
	require.NoError(t, err)
	assert.Equal(t, "from-env", string(v))
	require.NoError(t, secret.Chain{env, missing}.Delete("db"))
}
