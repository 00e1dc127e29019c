package objectstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Store persists named objects and hands out retrieval URLs for them.
type Store interface {
	// Put writes data under name and returns the object's public URL.
	Put(ctx context.Context, name string, data []byte, opts PutOptions) (string, error)
	Get(ctx context.Context, name string) ([]byte, error)
	Exists(ctx context.Context, name string) (bool, error)
	Stat(ctx context.Context, name string) (*ObjectInfo, error)
	Delete(ctx context.Context, name string) error
	Presign(ctx context.Context, name string, expiry time.Duration) (string, error)
	URL(name string) string
}

type PutOptions struct {
	ContentType        string
	CacheControl       string
	ContentDisposition string
}

type ObjectInfo struct {
	Name         string    `json:"objectName"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"contentType"`
	ETag         string    `json:"etag"`
	LastModified time.Time `json:"lastModified"`
}

var ErrNotFound = errors.New("object not found")

const (
	defaultContentType = "application/octet-stream"
	defaultPresignTTL  = time.Hour
	maxPresignTTL      = 7 * 24 * time.Hour
)

func normalizeName(name string) (string, error) {
	n := strings.TrimLeft(strings.TrimSpace(name), "/")
	if n == "" {
		return "", fmt.Errorf("object name is required")
	}
	if strings.Contains(n, "..") {
		return "", fmt.Errorf("object name %q is not allowed", name)
	}
	return n, nil
}

// clampExpiry keeps presign durations within what S3-style backends accept.
func clampExpiry(expiry time.Duration) time.Duration {
	if expiry <= 0 {
		return defaultPresignTTL
	}
	if expiry > maxPresignTTL {
		return maxPresignTTL
	}
	return expiry
}

func contentTypeOrDefault(ct string) string {
	if strings.TrimSpace(ct) == "" {
		return defaultContentType
	}
	return strings.TrimSpace(ct)
}
