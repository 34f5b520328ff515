package upload

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Video is one request's uploaded file on disk.
type Video struct {
	ID           string
	OriginalName string
	Path         string
	Size         int64
	Extension    string
	Digest       string
}

// Store writes uploads into a directory under unique ULID names, so
// concurrent requests never share a path.
type Store struct {
	dir    string
	logger *logrus.Logger
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "create upload directory")
	}
	return &Store{dir: dir, logger: logrus.StandardLogger()}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// Save copies r into the store. A partially written file is removed on error.
func (s *Store) Save(r io.Reader, originalName, ext string) (*Video, error) {
	id := strings.ToLower(ulid.Make().String())
	name := id
	if ext != "" {
		name += "." + ext
	}
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, errors.Wrap(err, "create upload file")
	}

	hash := sha256.New()
	size, err := io.Copy(f, io.TeeReader(r, hash))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			s.logger.WithError(rmErr).WithField("path", path).Error("Failed to remove partial upload")
		}
		return nil, errors.Wrap(err, "write upload file")
	}

	video := &Video{
		ID:           id,
		OriginalName: filepath.Base(originalName),
		Path:         path,
		Size:         size,
		Extension:    ext,
		Digest:       hex.EncodeToString(hash.Sum(nil)),
	}

	s.logger.WithFields(logrus.Fields{
		"upload_id": video.ID,
		"filename":  video.OriginalName,
		"size":      video.Size,
	}).Debug("Upload stored")

	return video, nil
}

// Remove deletes path if it exists. It reports whether a file was removed.
func Remove(path string) (bool, error) {
	if path == "" {
		return false, nil
	}
	err := os.Remove(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
