package app

import (
	"context"
	"fmt"
	"log"
	"strings"

	objectcache "coachai/internal/cache/objectstore"
	"coachai/internal/gateway/config"
	"coachai/internal/gateway/repository/objectstore"
	"coachai/internal/gateway/repository/record"
	"coachai/internal/gateway/repository/user"
)

const proxyRoute = "/files/proxy"

type gatewayStores struct {
	records record.Store
	users   user.Store
	objects *objectcache.CachedStore
}

func (s *gatewayStores) Close() error {
	if s == nil || s.records == nil {
		return nil
	}
	return s.records.Close()
}

func initStores(ctx context.Context, cfg *config.Config) (*gatewayStores, error) {
	records, err := initRecordStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	origin, err := initObjectStore(cfg)
	if err != nil {
		_ = records.Close()
		return nil, err
	}
	cacheCfg := objectcache.DefaultCacheConfig()
	if cfg.Storage.Cache.BlobTTL > 0 {
		cacheCfg.BlobTTL = cfg.Storage.Cache.BlobTTL
	}
	if cfg.Storage.Cache.PresignTTL > 0 {
		cacheCfg.PresignTTL = cfg.Storage.Cache.PresignTTL
	}
	return &gatewayStores{
		records: records,
		users:   initUserStore(records),
		objects: objectcache.NewCachedStore(origin, cacheCfg),
	}, nil
}

// initRecordStore prefers Postgres, then a SQLite file, then memory.
func initRecordStore(ctx context.Context, cfg *config.Config) (record.Store, error) {
	if dsn := strings.TrimSpace(cfg.DatabaseURL); dsn != "" {
		store, err := record.OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres record store: %w", err)
		}
		log.Printf("record store: postgres")
		return store, nil
	}
	if path := strings.TrimSpace(cfg.SQLitePath); path != "" {
		store, err := record.OpenSQLite(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize sqlite record store: %w", err)
		}
		log.Printf("record store: sqlite path=%s", path)
		return store, nil
	}
	log.Printf("record store: in-memory")
	return record.NewMemoryStore(), nil
}

// initUserStore shares the record database when there is one. The user
// store borrows the handle; closing records closes it.
func initUserStore(records record.Store) user.Store {
	if sqlStore, ok := records.(*record.SQLStore); ok {
		log.Printf("user store: %s", sqlStore.DB().Dialect)
		return user.NewSQLStore(sqlStore.DB())
	}
	log.Printf("user store: in-memory")
	return user.NewMemoryStore()
}

func initObjectStore(cfg *config.Config) (objectstore.Store, error) {
	switch cfg.Storage.Backend {
	case config.BackendMinIO:
		m := cfg.Storage.MinIO
		store, err := objectstore.NewMinIOStore(objectstore.MinIOConfig{
			Endpoint:  m.Endpoint,
			PublicURL: m.PublicURL,
			Region:    m.Region,
			AccessKey: m.AccessKey,
			SecretKey: m.SecretKey,
			Bucket:    m.Bucket,
			UseSSL:    m.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize minio object store: %w", err)
		}
		log.Printf("object store: minio bucket=%s endpoint=%s", m.Bucket, m.Endpoint)
		return store, nil
	case config.BackendCloud:
		c := cfg.Storage.Cloud
		store, err := objectstore.NewCloudStore(objectstore.CloudConfig{
			AccessKey:    c.AccessKey,
			SecretKey:    c.SecretKey,
			Bucket:       c.Bucket,
			Domain:       c.Domain,
			CDNDomain:    c.CDNDomain,
			CustomDomain: c.CustomDomain,
			UseHTTPS:     c.UseHTTPS,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize cloud object store: %w", err)
		}
		log.Printf("object store: cloud bucket=%s", c.Bucket)
		return store, nil
	case config.BackendMemory, "":
		base := strings.TrimRight(cfg.HTTP.PublicBaseURL, "/") + proxyRoute
		log.Printf("object store: in-memory base=%s", base)
		return objectstore.NewMemoryStore(base), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
