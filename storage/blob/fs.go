package blob

import (
	"context"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/trezcool/classroom/core"
)

// FSStore keeps the objects as files under a root directory.
type FSStore struct {
	root string
}

// NewFSStore returns a store rooted at root, creating the directory if needed.
func NewFSStore(root string) (*FSStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating blob root")
	}
	return &FSStore{root: root}, nil
}

func (s *FSStore) pathFor(key string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}

// Put writes to a temporary file first, so that readers never see a partial object.
func (s *FSStore) Put(_ context.Context, key string, r io.Reader, _ string) error {
	p, err := s.pathFor(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return errors.Wrap(err, "creating blob dir")
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".tmp-*")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "writing blob")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "closing blob")
	}
	return errors.Wrap(os.Rename(tmp.Name(), p), "moving blob")
}

// Get guesses the content type from the key extension, then from the content.
func (s *FSStore) Get(_ context.Context, key string) (io.ReadCloser, string, error) {
	p, err := s.pathFor(key)
	if err != nil {
		return nil, "", err
	}
	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", core.ErrBlobNotFound
		}
		return nil, "", errors.Wrap(err, "opening blob")
	}

	contentType := mime.TypeByExtension(filepath.Ext(p))
	if contentType == "" {
		head := make([]byte, 512)
		n, _ := io.ReadFull(f, head)
		contentType = http.DetectContentType(head[:n])
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			_ = f.Close()
			return nil, "", errors.Wrap(err, "rewinding blob")
		}
	}
	return f, contentType, nil
}

func (s *FSStore) Delete(_ context.Context, key string) error {
	p, err := s.pathFor(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if os.IsNotExist(err) {
			return core.ErrBlobNotFound
		}
		return errors.Wrap(err, "deleting blob")
	}
	return nil
}
