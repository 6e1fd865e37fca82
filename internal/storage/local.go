package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	cmstorage "github.com/chartmuseum/storage"
)

const localTempPrefix = ".revdeploy-"

// ErrInvalidKey is returned for keys that resolve outside the local root.
var ErrInvalidKey = errors.New("key escapes storage root")

// LocalStore implements ObjectStore on a directory through chartmuseum's local
// filesystem backend. It is meant for development and tests against real files.
type LocalStore struct {
	root    string
	backend *cmstorage.LocalFilesystemBackend
}

// NewLocalStore creates the root directory if needed.
func NewLocalStore(cfg Config) (*LocalStore, error) {
	root := strings.TrimSpace(cfg.LocalRoot)
	if root == "" {
		return nil, fmt.Errorf("local storage root must be provided")
	}
	if cfg.Bucket != "" {
		root = filepath.Join(root, cfg.Bucket)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed creating local storage root %s: %w", root, err)
	}
	return &LocalStore{
		root:    root,
		backend: cmstorage.NewLocalFilesystemBackend(root),
	}, nil
}

// ListObjects lists files whose slash-separated path starts with prefix,
// descending into subdirectories. The backend's own listing only reads the
// top level, so the walk happens here.
func (s *LocalStore) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	results := make([]ObjectInfo, 0)
	err := filepath.WalkDir(s.root, func(full string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, full)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) || strings.HasPrefix(path.Base(key), localTempPrefix) {
			return nil
		}
		info, err := s.HeadObject(ctx, key)
		if err != nil {
			return err
		}
		results = append(results, info)
		return nil
	})
	if err != nil {
		var se *StoreError
		if errors.As(err, &se) {
			return nil, err
		}
		return nil, storeErr("list", prefix, err)
	}
	return results, nil
}

// HeadObject returns the file's modification time and the MD5 of its content.
func (s *LocalStore) HeadObject(_ context.Context, key string) (ObjectInfo, error) {
	full, err := s.resolve(key)
	if err != nil {
		return ObjectInfo{}, storeErr("head", key, err)
	}
	if _, err := os.Stat(full); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ObjectInfo{}, notFound(key)
		}
		return ObjectInfo{}, storeErr("head", key, err)
	}

	object, err := s.backend.GetObject(key)
	if err != nil {
		return ObjectInfo{}, storeErr("head", key, err)
	}
	sum := md5.Sum(object.Content)
	return ObjectInfo{
		Key:          key,
		LastModified: object.LastModified,
		ETag:         hex.EncodeToString(sum[:]),
		Size:         int64(len(object.Content)),
	}, nil
}

// CopyObject writes the source content to a uniquely named temporary sibling
// of the destination and renames it into place.
func (s *LocalStore) CopyObject(_ context.Context, sourceKey, destinationKey string) error {
	if _, err := s.resolve(sourceKey); err != nil {
		return storeErr("copy", sourceKey, err)
	}
	dest, err := s.resolve(destinationKey)
	if err != nil {
		return storeErr("copy", destinationKey, err)
	}

	object, err := s.backend.GetObject(sourceKey)
	if err != nil {
		return storeErr("copy", sourceKey, err)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return storeErr("copy", destinationKey, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), localTempPrefix+"*")
	if err != nil {
		return storeErr("copy", destinationKey, err)
	}
	tmpName := tmp.Name()
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return storeErr("copy", destinationKey, err)
	}
	if _, err := tmp.Write(object.Content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return storeErr("copy", sourceKey, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return storeErr("copy", sourceKey, err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return storeErr("copy", sourceKey, err)
	}
	return nil
}

// UploadObject writes data at key.
func (s *LocalStore) UploadObject(_ context.Context, key string, data []byte) error {
	if _, err := s.resolve(key); err != nil {
		return storeErr("upload", key, err)
	}
	if err := s.backend.PutObject(key, data); err != nil {
		return storeErr("upload", key, err)
	}
	return nil
}

// resolve maps key to a path under root, rejecting absolute keys and keys
// whose dot-dot segments climb out of it.
func (s *LocalStore) resolve(key string) (string, error) {
	rel := filepath.FromSlash(key)
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}
	return filepath.Join(s.root, rel), nil
}

var _ ObjectStore = (*LocalStore)(nil)
