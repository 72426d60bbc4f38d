package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	appDomain "kyc-backend/internal/domain/application"

	"github.com/google/uuid"
)

var ErrInvalidRef = errors.New("storage: invalid reference")

var extensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"application/pdf": ".pdf",
}

// LocalStore keeps documents on disk under base as <owner>/<slot>-<uuid><ext>.
// References are relative to base.
type LocalStore struct {
	base string
}

func NewLocalStore(base string) (*LocalStore, error) {
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("storage dir: %w", err)
	}
	return &LocalStore{base: abs}, nil
}

func (s *LocalStore) Put(ctx context.Context, u appDomain.Upload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if u.OwnerID == "" || strings.ContainsAny(u.OwnerID, `/\.`) {
		return "", ErrInvalidRef
	}
	ref := filepath.ToSlash(filepath.Join(u.OwnerID, string(u.Slot)+"-"+uuid.NewString()+extensions[u.ContentType]))
	path, err := s.path(ref)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, u.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return ref, nil
}

// Delete is idempotent: a missing object is not an error.
func (s *LocalStore) Delete(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalStore) path(ref string) (string, error) {
	if ref == "" || filepath.IsAbs(ref) {
		return "", ErrInvalidRef
	}
	p := filepath.Join(s.base, filepath.FromSlash(ref))
	if !strings.HasPrefix(p, s.base+string(filepath.Separator)) {
		return "", ErrInvalidRef
	}
	return p, nil
}
