package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/qiniu/go-sdk/v7/auth"
	"github.com/qiniu/go-sdk/v7/client"
	"github.com/qiniu/go-sdk/v7/storage"
)

type CloudConfig struct {
	AccessKey string
	SecretKey string
	Bucket    string
	// Domain is the bucket's download domain; objects resolve to
	// scheme://bucket.Domain/object unless a CDN or custom domain is set.
	Domain       string
	CDNDomain    string
	CustomDomain string
	UseHTTPS     bool
	// HTTPClient fetches object bytes for Get. Defaults to a 30s client.
	HTTPClient *http.Client
}

// CloudStore keeps objects in a Qiniu Kodo bucket. Cache-Control and
// Content-Disposition are set on the bucket domain, not per object.
type CloudStore struct {
	mac      *auth.Credentials
	bucket   string
	baseURL  string
	uploader *storage.FormUploader
	manager  *storage.BucketManager
	http     *http.Client
}

func NewCloudStore(cfg CloudConfig) (*CloudStore, error) {
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("cloud storage access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("cloud storage bucket is required")
	}
	base := cloudBaseURL(cfg)
	if base == "" {
		return nil, fmt.Errorf("cloud storage domain is required")
	}

	mac := auth.New(access, secret)
	// Zone is resolved from the bucket when left nil.
	scfg := storage.Config{
		UseHTTPS:      cfg.UseHTTPS,
		UseCdnDomains: strings.TrimSpace(cfg.CDNDomain) != "",
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &CloudStore{
		mac:      mac,
		bucket:   bucket,
		baseURL:  base,
		uploader: storage.NewFormUploader(&scfg),
		manager:  storage.NewBucketManager(mac, &scfg),
		http:     hc,
	}, nil
}

// cloudBaseURL prefers the custom domain, then the CDN domain, then the
// bucket's own domain.
func cloudBaseURL(cfg CloudConfig) string {
	scheme := "http://"
	if cfg.UseHTTPS {
		scheme = "https://"
	}
	withScheme := func(d string) string {
		d = strings.TrimRight(strings.TrimSpace(d), "/")
		if d == "" {
			return ""
		}
		if strings.HasPrefix(d, "http://") || strings.HasPrefix(d, "https://") {
			return d
		}
		return scheme + d
	}
	if u := withScheme(cfg.CustomDomain); u != "" {
		return u
	}
	if u := withScheme(cfg.CDNDomain); u != "" {
		return u
	}
	domain := strings.TrimSpace(cfg.Domain)
	domain = strings.TrimPrefix(strings.TrimPrefix(domain, "https://"), "http://")
	if domain == "" || strings.TrimSpace(cfg.Bucket) == "" {
		return ""
	}
	return scheme + strings.TrimSpace(cfg.Bucket) + "." + strings.TrimRight(domain, "/")
}

func (s *CloudStore) Put(ctx context.Context, name string, data []byte, opts PutOptions) (string, error) {
	key, err := normalizeName(name)
	if err != nil {
		return "", err
	}
	policy := storage.PutPolicy{Scope: s.bucket + ":" + key}
	token := policy.UploadToken(s.mac)
	ret := storage.PutRet{}
	extra := &storage.PutExtra{MimeType: contentTypeOrDefault(opts.ContentType)}
	if err := s.uploader.Put(ctx, &ret, token, key, bytes.NewReader(data), int64(len(data)), extra); err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return s.URL(key), nil
}

func (s *CloudStore) Get(ctx context.Context, name string) ([]byte, error) {
	key, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	u, err := s.Presign(ctx, key, defaultPresignTTL)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("get object %s: status %d", key, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (s *CloudStore) Stat(_ context.Context, name string) (*ObjectInfo, error) {
	key, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	info, err := s.manager.Stat(s.bucket, key)
	if err != nil {
		return nil, mapCloudError(err)
	}
	return &ObjectInfo{
		Name:        key,
		Size:        info.Fsize,
		ContentType: info.MimeType,
		ETag:        info.Hash,
		// PutTime is in 100ns units.
		LastModified: time.Unix(0, info.PutTime*100),
	}, nil
}

func (s *CloudStore) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.Stat(ctx, name)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return false, err
}

func (s *CloudStore) Delete(_ context.Context, name string) error {
	key, err := normalizeName(name)
	if err != nil {
		return err
	}
	if err := s.manager.Delete(s.bucket, key); err != nil {
		return mapCloudError(err)
	}
	return nil
}

func (s *CloudStore) Presign(_ context.Context, name string, expiry time.Duration) (string, error) {
	key, err := normalizeName(name)
	if err != nil {
		return "", err
	}
	deadline := time.Now().Add(clampExpiry(expiry)).Unix()
	return storage.MakePrivateURLv2(s.mac, s.baseURL, key, deadline), nil
}

func (s *CloudStore) URL(name string) string {
	return s.baseURL + "/" + strings.TrimLeft(strings.TrimSpace(name), "/")
}

// codeNoSuchEntry is the status the bucket API answers for a missing key.
const codeNoSuchEntry = 612

// mapCloudError turns the bucket API's missing-key response into ErrNotFound.
func mapCloudError(err error) error {
	var info *client.ErrorInfo
	if errors.As(err, &info) && info.Code == codeNoSuchEntry {
		return ErrNotFound
	}
	return err
}
