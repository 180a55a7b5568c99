package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/google/uuid"
)

// Store is the slice of a file store the upload handlers need. A
// storage.Store from waffle satisfies it.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts *storage.PutOptions) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// Disk keeps files under Root and serves them below BaseURL.
type Disk struct {
	Root    string
	BaseURL string
}

func NewDisk(root, baseURL string) *Disk {
	return &Disk{Root: root, BaseURL: strings.TrimRight(baseURL, "/")}
}

var errBadKey = errors.New("invalid storage key")

func (d *Disk) path(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") {
		return "", errBadKey
	}
	return filepath.Join(d.Root, filepath.FromSlash(clean)), nil
}

func (d *Disk) Put(_ context.Context, key string, r io.Reader, _ *storage.PutOptions) error {
	p, err := d.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(p)
		return err
	}
	return f.Close()
}

// Delete ignores keys that are already gone.
func (d *Disk) Delete(_ context.Context, key string) error {
	p, err := d.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (d *Disk) URL(key string) string {
	return d.BaseURL + "/" + strings.TrimLeft(key, "/")
}

// NewKey returns prefix/yyyy/mm/<uuid>-<name> for an uploaded file.
func NewKey(prefix, filename string, now time.Time) string {
	return fmt.Sprintf("%s/%04d/%02d/%s-%s", prefix, now.Year(), now.Month(),
		uuid.NewString()[:8], sanitizeFilename(filename))
}

// KeyFromURL recovers the storage key of a URL issued by s. It reports
// false for URLs s did not issue.
func KeyFromURL(s Store, url string) (string, bool) {
	base := strings.TrimSuffix(s.URL(""), "/") + "/"
	if url == "" || !strings.HasPrefix(url, base) {
		return "", false
	}
	return strings.TrimPrefix(url, base), true
}

func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	b := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_', c == '.':
			b = append(b, c)
		default:
			b = append(b, '_')
		}
	}
	if len(b) == 0 || string(b) == "." {
		return "photo"
	}
	if len(b) > 100 {
		ext := filepath.Ext(string(b))
		if len(ext) > 0 && len(ext) < 10 {
			b = append(b[:100-len(ext)], ext...)
		} else {
			b = b[:100]
		}
	}
	return string(b)
}
