package storage_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkbio/internal/domain"
	"linkbio/internal/storage"
)

func openDB(t *testing.T) *storage.DB {
	t.Helper()
	dir := t.TempDir()
	db, err := storage.New(filepath.Join(dir, "linkbio.db"), filepath.Join(dir, "data"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// ── documents ──────────────────────────────────────────────

func TestDocumentStore_GetMissing(t *testing.T) {
	s := storage.NewDocumentStore(openDB(t))
	_, err := s.Get(context.Background(), domain.PagePath("nope"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_SetGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := storage.NewDocumentStore(openDB(t))

	doc := domain.PublishedDocument{HTML: "<p>x</p>", UserID: "u1", Timestamp: 1700000000000}
	require.NoError(t, s.Set(ctx, domain.PagePath("p1"), doc))

	var got domain.PublishedDocument
	require.NoError(t, domain.GetInto(ctx, s, domain.PagePath("p1"), &got))
	assert.Equal(t, doc, got)
}

func TestDocumentStore_SetOverwrites(t *testing.T) {
	ctx := context.Background()
	s := storage.NewDocumentStore(openDB(t))

	require.NoError(t, s.Set(ctx, "publishedPages/p", map[string]any{"html": "a", "views": 3}))
	require.NoError(t, s.Set(ctx, "publishedPages/p", map[string]any{"html": "b"}))

	raw, err := s.Get(ctx, "publishedPages/p")
	require.NoError(t, err)
	assert.JSONEq(t, `{"html":"b"}`, string(raw))
}

func TestDocumentStore_UpdateMergesAndCreates(t *testing.T) {
	ctx := context.Background()
	s := storage.NewDocumentStore(openDB(t))

	require.NoError(t, s.Update(ctx, domain.UserPath("u1"), map[string]any{"planType": "free"}))
	require.NoError(t, s.Update(ctx, domain.UserPath("u1"), map[string]any{"latestPage": "p9"}))

	var u domain.UserRecord
	require.NoError(t, domain.GetInto(ctx, s, domain.UserPath("u1"), &u))
	assert.Equal(t, domain.UserRecord{PlanType: "free", LatestPage: "p9"}, u)
}

func TestMergeJSON_PreservesLargeIntegers(t *testing.T) {
	out, err := storage.MergeJSON([]byte(`{"timestamp":1712345678901,"views":2}`), map[string]any{"views": 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"timestamp":1712345678901,"views":3}`, string(out))

	out, err = storage.MergeJSON(nil, map[string]any{"a": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(out))

	_, err = storage.MergeJSON([]byte(`[1,2]`), map[string]any{"a": 1})
	assert.Error(t, err)
}

// ── objects ────────────────────────────────────────────────

func TestDiskObjectStore_UploadReportsProgress(t *testing.T) {
	root := t.TempDir()
	s, err := storage.NewDiskObjectStore(root, "http://localhost:8080/assets/")
	require.NoError(t, err)

	data := bytes.Repeat([]byte("x"), 100<<10)
	var last, calls int64
	url, err := s.Upload(context.Background(), "banners/u1/banner one.png", bytes.NewReader(data), int64(len(data)), func(written, total int64) {
		assert.GreaterOrEqual(t, written, last)
		assert.Equal(t, int64(len(data)), total)
		last = written
		calls++
	})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/assets/banners/u1/banner%20one.png", url)
	assert.Equal(t, int64(len(data)), last)
	assert.Greater(t, calls, int64(1))

	stored, err := os.ReadFile(filepath.Join(root, "banners", "u1", "banner one.png"))
	require.NoError(t, err)
	assert.Equal(t, data, stored)
}

func TestDiskObjectStore_PathCannotEscapeRoot(t *testing.T) {
	root := t.TempDir()
	s, err := storage.NewDiskObjectStore(root, "http://x")
	require.NoError(t, err)

	url, err := s.Upload(context.Background(), "../../etc/evil", strings.NewReader("x"), 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "http://x/etc/evil", url)
	_, err = os.Stat(filepath.Join(root, "etc", "evil"))
	assert.NoError(t, err)
}

func TestDiskObjectStore_CancelledContext(t *testing.T) {
	s, err := storage.NewDiskObjectStore(t.TempDir(), "http://x")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.Upload(ctx, "a/b.png", strings.NewReader("x"), 1, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

// ── settings ───────────────────────────────────────────────

func TestSettingsStore(t *testing.T) {
	s := storage.NewSettingsStore(openDB(t))

	_, ok, err := s.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 7, s.GetInt("missing", 7))

	require.NoError(t, s.SetInt("window_width", 1440))
	require.NoError(t, s.SetInt("window_width", 1500))
	assert.Equal(t, 1500, s.GetInt("window_width", 0))

	require.NoError(t, s.Set("bad", "x"))
	assert.Equal(t, 3, s.GetInt("bad", 3))
}

func TestDocumentStore_JSONValuesAreObjects(t *testing.T) {
	ctx := context.Background()
	s := storage.NewDocumentStore(openDB(t))
	require.NoError(t, s.Set(ctx, "users/u", domain.UserRecord{PlanType: "premium"}))
	raw, err := s.Get(ctx, "users/u")
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, "premium", m["planType"])
	_, hasLatest := m["latestPage"]
	assert.False(t, hasLatest)
}

func TestDocumentStore_Increment(t *testing.T) {
	ctx := context.Background()
	s := storage.NewDocumentStore(openDB(t))
	path := domain.PagePath("p1")
	require.NoError(t, s.Set(ctx, path, domain.PublishedDocument{HTML: "h", UserID: "u", Timestamp: 1712345678901}))

	require.NoError(t, domain.Increment(ctx, s, path, "views", 1))
	require.NoError(t, domain.Increment(ctx, s, path, "views", 1))

	var doc domain.PublishedDocument
	require.NoError(t, domain.GetInto(ctx, s, path, &doc))
	assert.Equal(t, int64(2), doc.Views)
	assert.Equal(t, int64(1712345678901), doc.Timestamp)
}

func TestIncrementJSON(t *testing.T) {
	out, err := storage.IncrementJSON(nil, "views", 1)
	require.NoError(t, err)
	assert.JSONEq(t, `{"views":1}`, string(out))

	out, err = storage.IncrementJSON([]byte(`{"views":"x"}`), "views", 3)
	require.NoError(t, err)
	assert.JSONEq(t, `{"views":3}`, string(out))
}

// ── approvals ──────────────────────────────────────────────

func TestApprovalStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := storage.NewApprovalStore(openDB(t))

	require.NoError(t, s.Insert(ctx, storage.Approval{ID: "a1", Tool: "remove_block", Description: "Remove link"}))
	require.NoError(t, s.Insert(ctx, storage.Approval{ID: "a2", Tool: "remove_block"}))

	pending, err := s.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "{}", pending[0].Metadata)

	ok, err := s.Resolve(ctx, "a1", true)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.Resolve(ctx, "a1", false)
	require.NoError(t, err)
	assert.False(t, ok, "already resolved")

	status, err := s.Status(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, storage.ApprovalApproved, status)

	pending, err = s.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "a2", pending[0].ID)

	require.NoError(t, s.Delete(ctx, "a1"))
	_, err = s.Status(ctx, "a1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
