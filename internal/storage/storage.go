package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/playforge/ugc-backend/internal/apperr"
)

// Buckets under the storage root.
const (
	Thumbnails = "thumbnails"
	Games      = "games"
)

// PublicPrefix is the URL path the storage root is served under.
const PublicPrefix = "/storage"

// Local stores uploaded files on the local filesystem.
type Local struct {
	root string
}

// NewLocal prepares the storage root and its buckets.
func NewLocal(root string) (*Local, error) {
	if root == "" {
		return nil, fmt.Errorf("storage root required")
	}
	for _, bucket := range []string{Thumbnails, Games} {
		if err := os.MkdirAll(filepath.Join(root, bucket), 0o755); err != nil {
			return nil, fmt.Errorf("create %s bucket: %w", bucket, err)
		}
	}
	return &Local{root: root}, nil
}

// Root returns the directory served under PublicPrefix.
func (l *Local) Root() string { return l.root }

// Save writes r into bucket under a fresh name keeping the extension of
// originalName, and returns the public path of the stored file.
func (l *Local) Save(ctx context.Context, bucket, originalName string, r io.Reader) (string, error) {
	if bucket != Thumbnails && bucket != Games {
		return "", apperr.Validation("unknown storage bucket")
	}
	name := uuid.NewString() + strings.ToLower(filepath.Ext(originalName))
	dst := filepath.Join(l.root, bucket, name)

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", apperr.Store("create file", err)
	}
	if _, err := io.Copy(f, contextReader{ctx: ctx, r: r}); err != nil {
		f.Close()
		os.Remove(dst)
		return "", apperr.Store("write file", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dst)
		return "", apperr.Store("close file", err)
	}
	return path.Join(PublicPrefix, bucket, name), nil
}

// Remove deletes the file behind a public path. Missing files are ignored.
func (l *Local) Remove(publicPath string) error {
	rel, ok := l.resolve(publicPath)
	if !ok {
		return apperr.Validation("path outside storage")
	}
	if err := os.Remove(filepath.Join(l.root, rel)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return apperr.Store("remove file", err)
	}
	return nil
}

// resolve maps a public path to a path relative to the root, rejecting
// anything that escapes it.
func (l *Local) resolve(publicPath string) (string, bool) {
	rel, ok := strings.CutPrefix(path.Clean("/"+publicPath), PublicPrefix+"/")
	if !ok || rel == "" {
		return "", false
	}
	return filepath.FromSlash(rel), filepath.IsLocal(filepath.FromSlash(rel))
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
