package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkbio/internal/config"
)

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LINKBIO_DATA_DIR", dir)

	cfg, err := config.Load(filepath.Join(dir, "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, float64(10), cfg.Server.RateLimit)
	assert.Equal(t, int64(50<<20), cfg.Assets.MaxImageBytes)
	assert.Equal(t, 4, cfg.Publish.UploadConcurrency)
	assert.Equal(t, "@hourly", cfg.Staging.SweepSchedule)
	assert.Equal(t, 24*time.Hour, cfg.Staging.MaxAgeDuration())
	assert.Equal(t, filepath.Join(dir, "assets"), cfg.Assets.Dir)
	assert.Equal(t, "http://localhost:8080/assets", cfg.Assets.BaseURL)
	assert.Equal(t, filepath.Join(dir, "linkbio.db"), cfg.DBPath())
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir: /srv/linkbio
store:
  driver: postgres
  host: db.internal
server:
  public_base_url: https://links.example.com/
identity:
  user_id: u-1
  plan: basic
publish:
  minify: true
`), 0644))
	t.Setenv("LINKBIO_PLAN", "premium")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/linkbio", cfg.DataDir)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "db.internal", cfg.Store.Host)
	assert.Equal(t, "https://links.example.com", cfg.Server.PublicBaseURL)
	assert.Equal(t, "https://links.example.com/assets", cfg.Assets.BaseURL)
	assert.Equal(t, "u-1", cfg.Identity.UserID)
	assert.Equal(t, "premium", cfg.Identity.Plan)
	assert.True(t, cfg.Publish.Minify)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"driver":      "store:\n  driver: oracle\n",
		"concurrency": "publish:\n  upload_concurrency: 0\n",
		"duration":    "staging:\n  max_age: forever\n",
		"yaml":        "store: [\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0644))
			_, err := config.Load(path)
			assert.Error(t, err)
		})
	}
}

func TestSaveThenLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := config.Default()
	cfg.DataDir = dir
	cfg.Store.Driver = "redis"
	cfg.Publish.UploadConcurrency = 8
	require.NoError(t, cfg.Save(path))

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "redis", loaded.Store.Driver)
	assert.Equal(t, 8, loaded.Publish.UploadConcurrency)
}
