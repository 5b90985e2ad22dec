package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store persists image bytes under a key and returns their public URL.
type Store interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	Remove(ctx context.Context, url string) error
}

// NewKey builds a unique object key such as "posts/2026/10/<uuid>.jpg".
func NewKey(prefix, ext string) string {
	now := time.Now()
	return fmt.Sprintf("%s/%d/%02d/%s%s", prefix, now.Year(), now.Month(), uuid.NewString(), ext)
}

// Disk stores images below a root directory served at baseURL.
type Disk struct {
	root    string
	baseURL string
}

// NewDisk creates a disk store. baseURL is the URL prefix the root
// directory is served under, e.g. "/media/".
func NewDisk(root, baseURL string) *Disk {
	return &Disk{root: root, baseURL: strings.TrimRight(baseURL, "/") + "/"}
}

// Root returns the directory files are written to.
func (d *Disk) Root() string {
	return d.root
}

// BaseURL returns the URL prefix of stored files.
func (d *Disk) BaseURL() string {
	return d.baseURL
}

// Put writes data to root/key and returns baseURL+key.
func (d *Disk) Put(_ context.Context, key, _ string, data []byte) (string, error) {
	path, err := d.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write media file: %w", err)
	}
	return d.baseURL + key, nil
}

// Remove deletes the file behind a URL returned by Put. Unknown URLs and
// missing files are ignored.
func (d *Disk) Remove(_ context.Context, url string) error {
	key, ok := strings.CutPrefix(url, d.baseURL)
	if !ok {
		return nil
	}
	path, err := d.path(key)
	if err != nil {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove media file: %w", err)
	}
	return nil
}

// path resolves key inside root, refusing keys that escape it.
func (d *Disk) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("invalid media key %q", key)
	}
	return filepath.Join(d.root, clean), nil
}
