// Package storage keeps uploaded files under uploads/<subdirectory>/<uuid>_<name>.
package storage

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"path"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

const uploadsDir = "uploads"

// MaxNameLength bounds stored and original file names; both columns are 255 wide
const MaxNameLength = 255

// Subdirectories used by the application
const (
	DefectsDir  = "defects"
	CommentsDir = "comments"
)

var (
	ErrEmptyFile    = errors.New("file must not be empty")
	ErrFileNotFound = errors.New("stored file not found")
	ErrInvalidPath  = errors.New("invalid storage path")
)

// StoredFile describes a file after it has been written to a backend
type StoredFile struct {
	FileName         string
	OriginalFileName string
	Path             string
	ContentType      string
	Size             int64
}

// FileStorage saves, opens and removes uploaded files by their relative path
type FileStorage interface {
	Save(ctx context.Context, fh *multipart.FileHeader, subDir string) (*StoredFile, error)
	Open(ctx context.Context, relPath string) (io.ReadCloser, error)
	Delete(ctx context.Context, relPath string) error
	Exists(ctx context.Context, relPath string) (bool, error)
}

// describe validates the upload and derives its unique name and relative path
func describe(fh *multipart.FileHeader, subDir string) (*StoredFile, error) {
	if fh == nil || fh.Size == 0 {
		return nil, ErrEmptyFile
	}
	original := filepath.Base(strings.ReplaceAll(fh.Filename, "\\", "/"))
	if original == "." || original == "/" || original == "" {
		return nil, ErrInvalidPath
	}
	original = truncateName(original, MaxNameLength)
	prefix := uuid.NewString() + "_"
	name := prefix + truncateName(original, MaxNameLength-len(prefix))

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return &StoredFile{
		FileName:         name,
		OriginalFileName: original,
		Path:             path.Join(uploadsDir, subDir, name),
		ContentType:      contentType,
		Size:             fh.Size,
	}, nil
}

// truncateName shortens name to at most max bytes, keeping a short extension and
// never splitting a UTF-8 sequence
func truncateName(name string, max int) string {
	if len(name) <= max {
		return name
	}
	ext := path.Ext(name)
	if len(ext) > 16 || len(ext) >= max {
		ext = ""
	}
	base := name[:len(name)-len(ext)]
	cut := max - len(ext)
	for cut > 0 && !utf8.RuneStart(base[cut]) {
		cut--
	}
	return base[:cut] + ext
}

// cleanPath rejects paths that leave the uploads tree
func cleanPath(relPath string) (string, error) {
	p := path.Clean(strings.ReplaceAll(relPath, "\\", "/"))
	if p != uploadsDir && !strings.HasPrefix(p, uploadsDir+"/") {
		return "", ErrInvalidPath
	}
	return p, nil
}
