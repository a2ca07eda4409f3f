package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"linkbio/internal/domain"
)

// DiskObjectStore implements domain.ObjectStore by writing files under a
// root directory that is served at baseURL.
type DiskObjectStore struct {
	root    string
	baseURL string
	chunk   int
}

func NewDiskObjectStore(root, baseURL string) (*DiskObjectStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create object root: %w", err)
	}
	return &DiskObjectStore{root: root, baseURL: strings.TrimRight(baseURL, "/"), chunk: 32 << 10}, nil
}

// Root returns the directory objects are written to.
func (s *DiskObjectStore) Root() string {
	return s.root
}

// Upload copies r to root/objectPath, reporting progress after every chunk,
// and returns the public URL of the object. A cancelled context stops the
// copy and removes the partial file.
func (s *DiskObjectStore) Upload(ctx context.Context, objectPath string, r io.Reader, size int64, progress domain.ProgressFunc) (string, error) {
	clean := path.Clean("/" + objectPath)[1:]
	if clean == "" || clean == "." {
		return "", fmt.Errorf("upload: empty object path")
	}
	dst := filepath.Join(s.root, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", fmt.Errorf("upload %s: mkdir: %w", clean, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", clean, err)
	}
	defer os.Remove(tmp.Name())

	buf := make([]byte, s.chunk)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			tmp.Close()
			return "", fmt.Errorf("upload %s: %w", clean, err)
		}
		n, rerr := r.Read(buf)
		if n > 0 {
			if _, werr := tmp.Write(buf[:n]); werr != nil {
				tmp.Close()
				return "", fmt.Errorf("upload %s: write: %w", clean, werr)
			}
			written += int64(n)
			if progress != nil {
				progress(written, size)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			tmp.Close()
			return "", fmt.Errorf("upload %s: read: %w", clean, rerr)
		}
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("upload %s: %w", clean, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("upload %s: %w", clean, err)
	}
	return s.URL(clean), nil
}

// URL returns the public URL of an object path.
func (s *DiskObjectStore) URL(objectPath string) string {
	segs := strings.Split(objectPath, "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return s.baseURL + "/" + strings.Join(segs, "/")
}
