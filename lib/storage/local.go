package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"path"

	"github.com/spf13/afero"
)

// LocalStorage writes files below a root directory
type LocalStorage struct {
	fs afero.Fs
}

// NewLocalStorage roots storage at dir on the OS filesystem
func NewLocalStorage(dir string) *LocalStorage {
	return NewLocalStorageFs(afero.NewBasePathFs(afero.NewOsFs(), dir))
}

// NewLocalStorageFs uses fs as the content root
func NewLocalStorageFs(fs afero.Fs) *LocalStorage {
	return &LocalStorage{fs: fs}
}

func (s *LocalStorage) Save(ctx context.Context, fh *multipart.FileHeader, subDir string) (*StoredFile, error) {
	meta, err := describe(fh, subDir)
	if err != nil {
		return nil, err
	}

	if err := s.fs.MkdirAll(path.Dir(meta.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	dst, err := s.fs.Create(meta.Path)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	n, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = s.fs.Remove(meta.Path)
		return nil, fmt.Errorf("write file: %w", err)
	}
	meta.Size = n

	return meta, nil
}

func (s *LocalStorage) Open(ctx context.Context, relPath string) (io.ReadCloser, error) {
	p, err := cleanPath(relPath)
	if err != nil {
		return nil, err
	}
	f, err := s.fs.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}

// Delete removes the file; a missing file is not an error
func (s *LocalStorage) Delete(ctx context.Context, relPath string) error {
	p, err := cleanPath(relPath)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

func (s *LocalStorage) Exists(ctx context.Context, relPath string) (bool, error) {
	p, err := cleanPath(relPath)
	if err != nil {
		return false, err
	}
	return afero.Exists(s.fs, p)
}
