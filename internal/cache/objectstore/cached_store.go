package objectstore

import (
	"context"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	objrepo "coachai/internal/gateway/repository/objectstore"
)

type Store = objrepo.Store

type CacheConfig struct {
	BlobTTL        time.Duration
	BlobMaxEntries int
	// BlobMaxObjectBytes skips caching objects larger than this.
	BlobMaxObjectBytes int

	StatTTL        time.Duration
	StatMaxEntries int

	PresignTTL        time.Duration
	PresignMaxEntries int
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		BlobTTL:            5 * time.Minute,
		BlobMaxEntries:     256,
		BlobMaxObjectBytes: 4 * 1024 * 1024, // 4MiB
		StatTTL:            30 * time.Second,
		StatMaxEntries:     1024,
		PresignTTL:         5 * time.Minute,
		PresignMaxEntries:  1024,
	}
}

// TierStats counts lookups answered by one cache tier.
type TierStats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Entries int    `json:"entries"`
}

// Stats is what the health route reports about the cache.
type Stats struct {
	Blob         TierStats `json:"blob"`
	Stat         TierStats `json:"stat"`
	Presign      TierStats `json:"presign"`
	OriginReads  uint64    `json:"originReads"`
	OriginWrites uint64    `json:"originWrites"`
	OriginErrors uint64    `json:"originErrors"`
}

type tierCounter struct {
	hits, misses atomic.Uint64
}

func (c *tierCounter) load(entries int) TierStats {
	return TierStats{Hits: c.hits.Load(), Misses: c.misses.Load(), Entries: entries}
}

// CachedStore is a read-through, write-through cache in front of an object
// store. Put and Delete invalidate every cached view of the object.
type CachedStore struct {
	origin Store
	cfg    CacheConfig

	blobCache    *expirable.LRU[string, []byte]
	statCache    *expirable.LRU[string, objrepo.ObjectInfo]
	presignCache *expirable.LRU[string, string]

	blob, stat, presign       tierCounter
	originReads, originWrites atomic.Uint64
	originErrors              atomic.Uint64
}

var _ Store = (*CachedStore)(nil)

func NewCachedStore(origin Store, cfg CacheConfig) *CachedStore {
	def := DefaultCacheConfig()
	if cfg.BlobTTL <= 0 {
		cfg.BlobTTL = def.BlobTTL
	}
	if cfg.BlobMaxEntries <= 0 {
		cfg.BlobMaxEntries = def.BlobMaxEntries
	}
	if cfg.BlobMaxObjectBytes <= 0 {
		cfg.BlobMaxObjectBytes = def.BlobMaxObjectBytes
	}
	if cfg.StatTTL <= 0 {
		cfg.StatTTL = def.StatTTL
	}
	if cfg.StatMaxEntries <= 0 {
		cfg.StatMaxEntries = def.StatMaxEntries
	}
	if cfg.PresignTTL <= 0 {
		cfg.PresignTTL = def.PresignTTL
	}
	if cfg.PresignMaxEntries <= 0 {
		cfg.PresignMaxEntries = def.PresignMaxEntries
	}

	return &CachedStore{
		origin:       origin,
		cfg:          cfg,
		blobCache:    expirable.NewLRU[string, []byte](cfg.BlobMaxEntries, nil, cfg.BlobTTL),
		statCache:    expirable.NewLRU[string, objrepo.ObjectInfo](cfg.StatMaxEntries, nil, cfg.StatTTL),
		presignCache: expirable.NewLRU[string, string](cfg.PresignMaxEntries, nil, cfg.PresignTTL),
	}
}

func (s *CachedStore) Put(ctx context.Context, name string, data []byte, opts objrepo.PutOptions) (string, error) {
	s.originWrites.Add(1)
	url, err := s.origin.Put(ctx, name, data, opts)
	if err != nil {
		s.originErrors.Add(1)
		return "", err
	}
	key := cacheKey(name)
	s.invalidate(key)
	if len(data) <= s.cfg.BlobMaxObjectBytes {
		s.blobCache.Add(key, append([]byte(nil), data...))
	}
	return url, nil
}

func (s *CachedStore) Get(ctx context.Context, name string) ([]byte, error) {
	key := cacheKey(name)
	if raw, ok := s.blobCache.Get(key); ok {
		s.blob.hits.Add(1)
		return append([]byte(nil), raw...), nil
	}
	s.blob.misses.Add(1)
	s.originReads.Add(1)

	raw, err := s.origin.Get(ctx, name)
	if err != nil {
		s.originErrors.Add(1)
		return nil, err
	}
	if len(raw) <= s.cfg.BlobMaxObjectBytes {
		s.blobCache.Add(key, append([]byte(nil), raw...))
	}
	return raw, nil
}

func (s *CachedStore) Stat(ctx context.Context, name string) (*objrepo.ObjectInfo, error) {
	key := cacheKey(name)
	if info, ok := s.statCache.Get(key); ok {
		s.stat.hits.Add(1)
		return &info, nil
	}
	s.stat.misses.Add(1)
	s.originReads.Add(1)

	info, err := s.origin.Stat(ctx, name)
	if err != nil {
		s.originErrors.Add(1)
		return nil, err
	}
	s.statCache.Add(key, *info)
	out := *info
	return &out, nil
}

func (s *CachedStore) Exists(ctx context.Context, name string) (bool, error) {
	if _, ok := s.blobCache.Get(cacheKey(name)); ok {
		s.blob.hits.Add(1)
		return true, nil
	}
	if _, ok := s.statCache.Get(cacheKey(name)); ok {
		s.stat.hits.Add(1)
		return true, nil
	}
	s.originReads.Add(1)
	ok, err := s.origin.Exists(ctx, name)
	if err != nil {
		s.originErrors.Add(1)
	}
	return ok, err
}

func (s *CachedStore) Delete(ctx context.Context, name string) error {
	s.originWrites.Add(1)
	if err := s.origin.Delete(ctx, name); err != nil {
		s.originErrors.Add(1)
		return err
	}
	s.invalidate(cacheKey(name))
	return nil
}

// Presign caches signed URLs only when they outlive the cache TTL by a wide
// margin, so a cached URL is never handed out close to its expiry.
func (s *CachedStore) Presign(ctx context.Context, name string, expiry time.Duration) (string, error) {
	cacheable := expiry >= 2*s.cfg.PresignTTL
	key := presignKey(cacheKey(name), expiry)
	if cacheable {
		if u, ok := s.presignCache.Get(key); ok {
			s.presign.hits.Add(1)
			return u, nil
		}
	}
	s.presign.misses.Add(1)
	s.originReads.Add(1)

	u, err := s.origin.Presign(ctx, name, expiry)
	if err != nil {
		s.originErrors.Add(1)
		return "", err
	}
	if cacheable && strings.TrimSpace(u) != "" {
		s.presignCache.Add(key, u)
	}
	return u, nil
}

func (s *CachedStore) URL(name string) string {
	return s.origin.URL(name)
}

// Stats returns the counters since start and the live entry counts.
func (s *CachedStore) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		Blob:         s.blob.load(s.blobCache.Len()),
		Stat:         s.stat.load(s.statCache.Len()),
		Presign:      s.presign.load(s.presignCache.Len()),
		OriginReads:  s.originReads.Load(),
		OriginWrites: s.originWrites.Load(),
		OriginErrors: s.originErrors.Load(),
	}
}

func (s *CachedStore) invalidate(key string) {
	s.blobCache.Remove(key)
	s.statCache.Remove(key)
	prefix := key + "|"
	for _, k := range s.presignCache.Keys() {
		if strings.HasPrefix(k, prefix) {
			s.presignCache.Remove(k)
		}
	}
}

func cacheKey(name string) string {
	return strings.TrimLeft(strings.TrimSpace(name), "/")
}

func presignKey(key string, expiry time.Duration) string {
	return key + "|" + strconv.FormatInt(int64(expiry/time.Second), 10)
}
