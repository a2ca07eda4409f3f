package service_test

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"linkbio/internal/domain"
	"linkbio/internal/editor"
	"linkbio/internal/render"
	"linkbio/internal/storage"
)

const testAssetsURL = "http://cdn.test/assets"

// leakCheck verifies no goroutine outlives the test. Registered first, it
// runs after every other cleanup, including database close.
func leakCheck(t *testing.T) {
	t.Helper()
	t.Cleanup(func() { goleak.VerifyNone(t) })
}

func newStore(t *testing.T) *storage.DocumentStore {
	t.Helper()
	dir := t.TempDir()
	db, err := storage.New(filepath.Join(dir, "test.db"), dir)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return storage.NewDocumentStore(db)
}

func newRenderer() *render.Renderer {
	return render.MustNew(render.Options{LandingURL: "https://linkiwi.test"})
}

func newSession(plan domain.PlanTier) *editor.Session {
	return editor.NewSession(domain.User{ID: "u1"}, plan, editor.SessionOptions{UpgradeURL: "https://up.test"})
}

// writeFile creates a local binary to stand in for a picked image.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

// objectStore wraps a disk store and fails or blocks chosen uploads.
type objectStore struct {
	disk  *storage.DiskObjectStore
	fail  string        // object name suffix that fails
	block chan struct{} // when set, uploads wait for it to close
}

func newObjectStore(t *testing.T) *objectStore {
	t.Helper()
	disk, err := storage.NewDiskObjectStore(t.TempDir(), testAssetsURL)
	require.NoError(t, err)
	return &objectStore{disk: disk}
}

func (o *objectStore) Upload(ctx context.Context, path string, r io.Reader, size int64, progress domain.ProgressFunc) (string, error) {
	if o.block != nil {
		select {
		case <-o.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if o.fail != "" && strings.HasSuffix(path, o.fail) {
		return "", fmt.Errorf("simulated outage")
	}
	return o.disk.Upload(ctx, path, r, size, progress)
}
