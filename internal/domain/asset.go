package domain

import "path/filepath"

// LocalRefPrefix marks a preview reference to a file that only exists on
// the editing machine. Published documents must never contain it.
const LocalRefPrefix = "blob:"

// MaxImageBytes is the largest link image accepted by the editor.
const MaxImageBytes int64 = 50 << 20

// Asset is a binary referenced by a block or the page style. It is either
// pending (LocalPath set, not uploaded) or permanent (URL set).
type Asset struct {
	URL       string `json:"url,omitempty"`
	LocalPath string `json:"localPath,omitempty"`
	Name      string `json:"name,omitempty"`
	Size      int64  `json:"size,omitempty"`
}

// RemoteAsset wraps an already fetchable URL.
func RemoteAsset(url string) Asset {
	return Asset{URL: url}
}

// PendingAsset wraps a local file awaiting upload.
func PendingAsset(localPath string, size int64) Asset {
	return Asset{LocalPath: localPath, Name: filepath.Base(localPath), Size: size}
}

func (a Asset) Pending() bool {
	return a.LocalPath != ""
}

func (a Asset) Empty() bool {
	return a.URL == "" && a.LocalPath == ""
}

// Src is the reference the renderer emits for this asset.
func (a Asset) Src() string {
	if a.Pending() {
		return LocalRefPrefix + a.Name
	}
	return a.URL
}

// Resolve marks the asset uploaded at url.
func (a *Asset) Resolve(url string) {
	a.URL = url
	a.LocalPath = ""
}
