package objectstore

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

type memoryObject struct {
	data []byte
	info ObjectInfo
}

// MemoryStore keeps objects in process. URLs are rooted at baseURL, which the
// gateway points at its own proxy route.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	baseURL string
	now     func() time.Time
}

func NewMemoryStore(baseURL string) *MemoryStore {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = "memory://objects"
	}
	return &MemoryStore{
		objects: make(map[string]memoryObject),
		baseURL: base,
		now:     time.Now,
	}
}

func (s *MemoryStore) Put(_ context.Context, name string, data []byte, opts PutOptions) (string, error) {
	if s == nil {
		return "", fmt.Errorf("store is nil")
	}
	key, err := normalizeName(name)
	if err != nil {
		return "", err
	}
	sum := md5.Sum(data)
	obj := memoryObject{
		data: append([]byte(nil), data...),
		info: ObjectInfo{
			Name:         key,
			Size:         int64(len(data)),
			ContentType:  contentTypeOrDefault(opts.ContentType),
			ETag:         hex.EncodeToString(sum[:]),
			LastModified: s.now(),
		},
	}
	s.mu.Lock()
	s.objects[key] = obj
	s.mu.Unlock()
	return s.URL(key), nil
}

func (s *MemoryStore) Get(_ context.Context, name string) ([]byte, error) {
	obj, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), obj.data...), nil
}

func (s *MemoryStore) Stat(_ context.Context, name string) (*ObjectInfo, error) {
	obj, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	info := obj.info
	return &info, nil
}

func (s *MemoryStore) Exists(_ context.Context, name string) (bool, error) {
	_, err := s.lookup(name)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Delete is idempotent, like the S3 API.
func (s *MemoryStore) Delete(_ context.Context, name string) error {
	key, err := normalizeName(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Presign(_ context.Context, name string, expiry time.Duration) (string, error) {
	key, err := normalizeName(name)
	if err != nil {
		return "", err
	}
	deadline := s.now().Add(clampExpiry(expiry)).Unix()
	return s.URL(key) + "?expires=" + strconv.FormatInt(deadline, 10), nil
}

func (s *MemoryStore) URL(name string) string {
	return s.baseURL + "/" + strings.TrimLeft(strings.TrimSpace(name), "/")
}

func (s *MemoryStore) lookup(name string) (memoryObject, error) {
	if s == nil {
		return memoryObject{}, fmt.Errorf("store is nil")
	}
	key, err := normalizeName(name)
	if err != nil {
		return memoryObject{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return memoryObject{}, ErrNotFound
	}
	return obj, nil
}
