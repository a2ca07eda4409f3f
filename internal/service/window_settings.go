package service

import (
	"fmt"

	"linkbio/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// Editor Window Size
// ─────────────────────────────────────────────────────────────
//
// The desktop editor restores its last window size on launch. Values live
// in the app_settings table next to the other local preferences.

type WindowSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type WindowSettingsService struct {
	settings *storage.SettingsStore
}

func NewWindowSettingsService(settings *storage.SettingsStore) *WindowSettingsService {
	return &WindowSettingsService{settings: settings}
}

const (
	settingWindowWidth  = "window_width"
	settingWindowHeight = "window_height"
	defaultWindowWidth  = 1280
	defaultWindowHeight = 800
	// the editor column plus the 380px phone preview
	minWindowWidth  = 800
	minWindowHeight = 600
)

// LoadWindowSize returns the saved size, or the default when nothing usable
// was stored.
func (s *WindowSettingsService) LoadWindowSize() WindowSize {
	if s.settings == nil {
		return WindowSize{Width: defaultWindowWidth, Height: defaultWindowHeight}
	}
	w := s.settings.GetInt(settingWindowWidth, defaultWindowWidth)
	h := s.settings.GetInt(settingWindowHeight, defaultWindowHeight)
	if w < minWindowWidth {
		w = defaultWindowWidth
	}
	if h < minWindowHeight {
		h = defaultWindowHeight
	}
	return WindowSize{Width: w, Height: h}
}

func (s *WindowSettingsService) SaveWindowSize(width, height int) error {
	if s.settings == nil {
		return fmt.Errorf("window settings: no settings store")
	}
	if err := s.settings.SetInt(settingWindowWidth, width); err != nil {
		return fmt.Errorf("save window width: %w", err)
	}
	if err := s.settings.SetInt(settingWindowHeight, height); err != nil {
		return fmt.Errorf("save window height: %w", err)
	}
	return nil
}
