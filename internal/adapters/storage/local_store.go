package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cmcs-claims/internal/core/services"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// stagingSuffix marks uploads that are still being written
const stagingSuffix = ".part"

// maxNameLength bounds the sanitized original name kept in a ref
const maxNameLength = 100

// ErrInvalidRef is returned for refs that would escape the document folder
var ErrInvalidRef = errors.New("invalid document reference")

// LocalStore keeps documents as flat files in one folder. A ref is the
// file name: <uuid>_<sanitized original name>.
type LocalStore struct {
	dir string
	log *logrus.Entry
}

// NewLocalStore creates the folder if needed
func NewLocalStore(dir string, log *logrus.Entry) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create document dir %s: %w", dir, err)
	}
	return &LocalStore{
		dir: dir,
		log: log.WithField("component", "document-store"),
	}, nil
}

// Save writes content under a fresh ref. The file only appears under its
// final name once fully written.
func (s *LocalStore) Save(ctx context.Context, originalName string, content io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ref := uuid.NewString() + "_" + SanitizeName(originalName)
	final := filepath.Join(s.dir, ref)
	staging := final + stagingSuffix

	f, err := os.OpenFile(staging, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", ref, err)
	}

	if _, err := io.Copy(f, content); err != nil {
		f.Close()
		os.Remove(staging)
		return "", fmt.Errorf("write %s: %w", ref, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(staging)
		return "", fmt.Errorf("close %s: %w", ref, err)
	}
	if err := os.Rename(staging, final); err != nil {
		os.Remove(staging)
		return "", fmt.Errorf("commit %s: %w", ref, err)
	}

	s.log.WithField("document", ref).Debug("Document stored")
	return ref, nil
}

// Open opens a stored document for reading
func (s *LocalStore) Open(ref string) (io.ReadCloser, error) {
	path, err := s.path(ref)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// Remove deletes a stored document. Removing a missing ref is not an error.
func (s *LocalStore) Remove(ref string) error {
	path, err := s.path(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// List returns every committed document in the folder
func (s *LocalStore) List() ([]services.StoredDocument, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	docs := make([]services.StoredDocument, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), stagingSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}
		docs = append(docs, services.StoredDocument{
			Ref:     e.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return docs, nil
}

func (s *LocalStore) path(ref string) (string, error) {
	if ref == "" || ref != filepath.Base(ref) || ref == "." || ref == ".." || strings.ContainsAny(ref, `/\`) {
		return "", ErrInvalidRef
	}
	return filepath.Join(s.dir, ref), nil
}

// SanitizeName reduces an uploaded file name to a safe base name made of
// letters, digits, dot, dash and underscore
func SanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}

	clean := strings.TrimLeft(b.String(), ".")
	if len(clean) > maxNameLength {
		ext := filepath.Ext(clean)
		if len(ext) > 10 {
			ext = ""
		}
		clean = clean[:maxNameLength-len(ext)] + ext
	}
	if clean == "" {
		return "document"
	}
	return clean
}
