package service

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"linkbio/internal/domain"
	"linkbio/internal/logging"
)

// ── Staging ────────────────────────────────────────────────

// AssetStager copies images picked in the editor into the staging
// directory, where they wait as pending assets until publish.
type AssetStager struct {
	dir      string
	maxBytes int64
}

func NewAssetStager(dir string, maxBytes int64) (*AssetStager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	if maxBytes <= 0 {
		maxBytes = domain.MaxImageBytes
	}
	return &AssetStager{dir: dir, maxBytes: maxBytes}, nil
}

func (s *AssetStager) Dir() string { return s.dir }

// StageDataURL decodes a base64 data URL (as produced by the desktop file
// picker) and stores it as a pending asset named name.
func (s *AssetStager) StageDataURL(name, dataURL string) (domain.Asset, error) {
	encoded, err := dataURLPayload(dataURL)
	if err != nil {
		return domain.Asset{}, err
	}
	if int64(base64.StdEncoding.DecodedLen(len(encoded))) > s.maxBytes+2 {
		return domain.Asset{}, fmt.Errorf("%w: limit %d bytes", domain.ErrAssetTooLarge, s.maxBytes)
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return domain.Asset{}, fmt.Errorf("decode image: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return domain.Asset{}, fmt.Errorf("%w: %d bytes, limit %d", domain.ErrAssetTooLarge, len(data), s.maxBytes)
	}

	dst := s.stagedPath(name)
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return domain.Asset{}, fmt.Errorf("write staged image: %w", err)
	}
	return domain.PendingAsset(dst, int64(len(data))), nil
}

// StageFile copies a file from disk into staging.
func (s *AssetStager) StageFile(src string) (domain.Asset, error) {
	in, err := os.Open(src)
	if err != nil {
		return domain.Asset{}, fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()
	st, err := in.Stat()
	if err != nil {
		return domain.Asset{}, fmt.Errorf("stat %s: %w", src, err)
	}
	if st.Size() > s.maxBytes {
		return domain.Asset{}, fmt.Errorf("%w: %d bytes, limit %d", domain.ErrAssetTooLarge, st.Size(), s.maxBytes)
	}

	dst := s.stagedPath(filepath.Base(src))
	out, err := os.Create(dst)
	if err != nil {
		return domain.Asset{}, fmt.Errorf("create staged file: %w", err)
	}
	n, err := io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dst)
		return domain.Asset{}, fmt.Errorf("copy %s: %w", src, err)
	}
	return domain.PendingAsset(dst, n), nil
}

func (s *AssetStager) stagedPath(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "image.png"
	}
	return filepath.Join(s.dir, uuid.NewString()[:8]+"-"+name)
}

// dataURLPayload returns the base64 part of data:image/...;base64,XXXX.
// A bare base64 string is accepted as is.
func dataURLPayload(dataURL string) (string, error) {
	if !strings.HasPrefix(dataURL, "data:") {
		return dataURL, nil
	}
	meta, payload, ok := strings.Cut(dataURL, ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return "", fmt.Errorf("%w: not a base64 data URL", domain.ErrInvalidValue)
	}
	if !strings.HasPrefix(meta, "data:image/") {
		return "", fmt.Errorf("%w: %s is not an image", domain.ErrInvalidValue, strings.TrimSuffix(strings.TrimPrefix(meta, "data:"), ";base64"))
	}
	return payload, nil
}

// ── Watching ───────────────────────────────────────────────

// AssetChangedHandler receives the new size of a staged file after a write.
type AssetChangedHandler func(localPath string, size int64)

// AssetWatcher reports writes to staged files so the preview can follow
// edits made in an external image editor.
type AssetWatcher struct {
	watcher  *fsnotify.Watcher
	onChange AssetChangedHandler
	logger   *zap.Logger
	mu       sync.RWMutex
	watching map[string]bool
	done     chan struct{}
}

func NewAssetWatcher(onChange AssetChangedHandler, logger *zap.Logger) (*AssetWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	w := &AssetWatcher{
		watcher:  watcher,
		onChange: onChange,
		logger:   logging.OrNop(logger).Named("assets"),
		watching: make(map[string]bool),
		done:     make(chan struct{}),
	}
	go w.watchLoop()
	return w, nil
}

// Watch starts reporting writes to localPath.
func (w *AssetWatcher) Watch(localPath string) error {
	abs, err := filepath.Abs(localPath)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.watching[abs] = true
	w.mu.Unlock()

	// fsnotify reports file events through the parent directory
	return w.watcher.Add(filepath.Dir(abs))
}

func (w *AssetWatcher) Unwatch(localPath string) {
	abs, err := filepath.Abs(localPath)
	if err != nil {
		return
	}
	w.mu.Lock()
	delete(w.watching, abs)
	w.mu.Unlock()
}

// Close stops the watcher and waits for the event loop to exit.
func (w *AssetWatcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}

func (w *AssetWatcher) watchLoop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			abs, _ := filepath.Abs(event.Name)
			w.mu.RLock()
			watched := w.watching[abs]
			w.mu.RUnlock()
			if !watched {
				continue
			}
			st, err := os.Stat(abs)
			if err != nil {
				w.logger.Warn("stat staged asset", zap.String("path", abs), zap.Error(err))
				continue
			}
			if w.onChange != nil {
				w.onChange(abs, st.Size())
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

// ── Sweeping ───────────────────────────────────────────────

// StagingSweeper periodically deletes staged files that are old and no
// longer referenced by any live session.
type StagingSweeper struct {
	dir    string
	maxAge time.Duration
	inUse  func(localPath string) bool
	logger *zap.Logger
	now    func() time.Time
	sched  *cron.Cron
}

func NewStagingSweeper(dir string, maxAge time.Duration, inUse func(string) bool, logger *zap.Logger) *StagingSweeper {
	if inUse == nil {
		inUse = func(string) bool { return false }
	}
	return &StagingSweeper{
		dir:    dir,
		maxAge: maxAge,
		inUse:  inUse,
		logger: logging.OrNop(logger).Named("sweeper"),
		now:    time.Now,
	}
}

// Start schedules Sweep with a cron expression such as "@hourly".
func (s *StagingSweeper) Start(schedule string) error {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if _, err := s.Sweep(); err != nil {
			s.logger.Warn("staging sweep failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("sweeper: invalid schedule %q: %w", schedule, err)
	}
	c.Start()
	s.sched = c
	s.logger.Info("staging sweeper scheduled", zap.String("schedule", schedule), zap.Duration("maxAge", s.maxAge))
	return nil
}

// Stop halts the schedule and waits for a running sweep.
func (s *StagingSweeper) Stop() {
	if s.sched != nil {
		<-s.sched.Stop().Done()
		s.sched = nil
	}
}

// Sweep removes expired unreferenced files and returns how many it removed.
func (s *StagingSweeper) Sweep() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read staging dir: %w", err)
	}
	cutoff := s.now().Add(-s.maxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		p := filepath.Join(s.dir, e.Name())
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) || s.inUse(p) {
			continue
		}
		if err := os.Remove(p); err != nil {
			s.logger.Warn("remove staged file", zap.String("path", p), zap.Error(err))
			continue
		}
		removed++
	}
	if removed > 0 {
		s.logger.Info("staging swept", zap.Int("removed", removed))
	}
	return removed, nil
}
