// Package storagetest provides an in-memory storage.ObjectStore for tests.
package storagetest

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/andresuchdata/revdeploy/internal/storage"
)

// Object is a stored blob plus the metadata the fake reports for it.
type Object struct {
	Data         []byte
	ETag         string
	LastModified time.Time
}

// Calls counts the operations issued against a Store.
type Calls struct {
	List   int
	Head   int
	Copy   int
	Upload int
}

// Store is a goroutine-safe in-memory object store. Failures can be injected
// per operation through the *Err fields.
type Store struct {
	mu      sync.Mutex
	objects map[string]Object
	calls   Calls
	copies  [][2]string
	now     func() time.Time

	ListErr   error
	HeadErr   error
	CopyErr   error
	UploadErr error
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		objects: make(map[string]Object),
		now:     time.Now,
	}
}

// Put seeds an object with an explicit fingerprint and timestamp.
func (s *Store) Put(key, etag string, modified time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = Object{Data: []byte(etag), ETag: etag, LastModified: modified}
}

// Get returns the object stored at key.
func (s *Store) Get(key string) (Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[key]
	return obj, ok
}

// Calls returns a snapshot of the operation counters.
func (s *Store) Calls() Calls {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Copies returns the (source, destination) pairs copied so far.
func (s *Store) Copies() [][2]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][2]string, len(s.copies))
	copy(out, s.copies)
	return out
}

func (s *Store) ListObjects(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls.List++
	if s.ListErr != nil {
		return nil, &storage.StoreError{Op: "list", Key: prefix, Err: s.ListErr}
	}

	keys := make([]string, 0, len(s.objects))
	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	out := make([]storage.ObjectInfo, 0, len(keys))
	for _, key := range keys {
		out = append(out, info(key, s.objects[key]))
	}
	return out, nil
}

func (s *Store) HeadObject(_ context.Context, key string) (storage.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls.Head++
	if s.HeadErr != nil {
		return storage.ObjectInfo{}, &storage.StoreError{Op: "head", Key: key, Err: s.HeadErr}
	}
	obj, ok := s.objects[key]
	if !ok {
		return storage.ObjectInfo{}, fmt.Errorf("%w: %s", storage.ErrNotFound, key)
	}
	return info(key, obj), nil
}

func (s *Store) CopyObject(_ context.Context, sourceKey, destinationKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls.Copy++
	if s.CopyErr != nil {
		return &storage.StoreError{Op: "copy", Key: sourceKey, Err: s.CopyErr}
	}
	obj, ok := s.objects[sourceKey]
	if !ok {
		return &storage.StoreError{Op: "copy", Key: sourceKey, Err: fmt.Errorf("no such key")}
	}
	obj.LastModified = s.now()
	s.objects[destinationKey] = obj
	s.copies = append(s.copies, [2]string{sourceKey, destinationKey})
	return nil
}

func (s *Store) UploadObject(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls.Upload++
	if s.UploadErr != nil {
		return &storage.StoreError{Op: "upload", Key: key, Err: s.UploadErr}
	}
	sum := md5.Sum(data)
	s.objects[key] = Object{
		Data:         append([]byte(nil), data...),
		ETag:         hex.EncodeToString(sum[:]),
		LastModified: s.now(),
	}
	return nil
}

func info(key string, obj Object) storage.ObjectInfo {
	return storage.ObjectInfo{
		Key:          key,
		LastModified: obj.LastModified,
		ETag:         obj.ETag,
		Size:         int64(len(obj.Data)),
	}
}

var _ storage.ObjectStore = (*Store)(nil)
