package attach

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/notebridge/internal/errors"
)

// LocalStore keeps attachments as flat files under a directory.
type LocalStore struct {
	dir string
}

// NewLocalStore creates dir (0700) if needed and returns a store rooted there.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create attachment directory: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

// Dir returns the root directory.
func (s *LocalStore) Dir() string {
	return s.dir
}

// path validates name and resolves it inside the root directory.
func (s *LocalStore) path(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", errors.NewInvalidRequest(fmt.Sprintf("invalid attachment name %q", name))
	}
	return filepath.Join(s.dir, name), nil
}

// Put writes r to the named file, replacing any existing content.
func (s *LocalStore) Put(_ context.Context, name string, r io.Reader, _ int64) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return errors.NewInternal(err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return errors.NewInternal(err)
	}
	if err := f.Close(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// Delete removes the named file.
func (s *LocalStore) Delete(_ context.Context, name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return errors.NewAttachmentNotFound(name)
		}
		return errors.NewInternal(err)
	}
	return nil
}
