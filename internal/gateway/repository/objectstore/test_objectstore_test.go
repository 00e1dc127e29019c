package objectstore

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/qiniu/go-sdk/v7/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore("http://localhost:8080/files/proxy/")
	store.now = func() time.Time { return time.Unix(1_700_000_000, 0) }

	url, err := store.Put(ctx, "/images/a.png", []byte("png-bytes"), PutOptions{ContentType: "image/png"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/files/proxy/images/a.png", url)

	got, err := store.Get(ctx, "images/a.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), got)

	info, err := store.Stat(ctx, "images/a.png")
	require.NoError(t, err)
	assert.Equal(t, int64(9), info.Size)
	assert.Equal(t, "image/png", info.ContentType)
	assert.NotEmpty(t, info.ETag)

	ok, err := store.Exists(ctx, "images/a.png")
	require.NoError(t, err)
	assert.True(t, ok)

	signed, err := store.Presign(ctx, "images/a.png", 0)
	require.NoError(t, err)
	assert.Equal(t, url+"?expires=1700003600", signed)

	require.NoError(t, store.Delete(ctx, "images/a.png"))
	require.NoError(t, store.Delete(ctx, "images/a.png"))

	_, err = store.Get(ctx, "images/a.png")
	assert.ErrorIs(t, err, ErrNotFound)
	ok, err = store.Exists(ctx, "images/a.png")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreCopiesData(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore("")
	buf := []byte("abc")
	_, err := store.Put(ctx, "temp/x.bin", buf, PutOptions{})
	require.NoError(t, err)
	buf[0] = 'z'

	got, err := store.Get(ctx, "temp/x.bin")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
	got[1] = 'z'

	again, err := store.Get(ctx, "temp/x.bin")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))

	info, err := store.Stat(ctx, "temp/x.bin")
	require.NoError(t, err)
	assert.Equal(t, defaultContentType, info.ContentType)
	assert.Equal(t, "memory://objects/temp/x.bin", store.URL("temp/x.bin"))
}

func TestNormalizeName(t *testing.T) {
	cases := map[string]struct {
		want    string
		wantErr bool
	}{
		"images/a.png":   {want: "images/a.png"},
		"  /docs/b.pdf ": {want: "docs/b.pdf"},
		"":               {wantErr: true},
		"///":            {wantErr: true},
		"images/../etc":  {wantErr: true},
	}
	for in, tc := range cases {
		got, err := normalizeName(in)
		if tc.wantErr {
			assert.Error(t, err, in)
			continue
		}
		require.NoError(t, err, in)
		assert.Equal(t, tc.want, got, in)
	}
}

func TestClampExpiry(t *testing.T) {
	assert.Equal(t, time.Hour, clampExpiry(0))
	assert.Equal(t, time.Hour, clampExpiry(-time.Second))
	assert.Equal(t, 10*time.Minute, clampExpiry(10*time.Minute))
	assert.Equal(t, 7*24*time.Hour, clampExpiry(30*24*time.Hour))
}

func TestCloudBaseURL(t *testing.T) {
	cases := []struct {
		name string
		cfg  CloudConfig
		want string
	}{
		{"custom wins", CloudConfig{Bucket: "b", Domain: "kodo.example.com", CDNDomain: "cdn.example.com", CustomDomain: "https://img.example.com/", UseHTTPS: true}, "https://img.example.com"},
		{"cdn next", CloudConfig{Bucket: "b", Domain: "kodo.example.com", CDNDomain: "cdn.example.com", UseHTTPS: true}, "https://cdn.example.com"},
		{"bucket domain", CloudConfig{Bucket: "coach", Domain: "https://kodo.example.com", UseHTTPS: true}, "https://coach.kodo.example.com"},
		{"plain http", CloudConfig{Bucket: "coach", Domain: "kodo.example.com"}, "http://coach.kodo.example.com"},
		{"no domain", CloudConfig{Bucket: "coach"}, ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, cloudBaseURL(tc.cfg), tc.name)
	}
}

func TestNewCloudStoreValidation(t *testing.T) {
	_, err := NewCloudStore(CloudConfig{Bucket: "b", Domain: "d"})
	assert.Error(t, err)
	_, err = NewCloudStore(CloudConfig{AccessKey: "ak", SecretKey: "sk", Domain: "d"})
	assert.Error(t, err)
	_, err = NewCloudStore(CloudConfig{AccessKey: "ak", SecretKey: "sk", Bucket: "b"})
	assert.Error(t, err)
}

func TestCloudStoreGetUsesSignedURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") == "" || r.URL.Query().Get("e") == "" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if r.URL.Path != "/images/a.jpg" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("jpeg"))
	}))
	defer srv.Close()

	store, err := NewCloudStore(CloudConfig{
		AccessKey: "ak", SecretKey: "sk", Bucket: "coach",
		CustomDomain: srv.URL, HTTPClient: srv.Client(),
	})
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/images/a.jpg", store.URL("images/a.jpg"))

	got, err := store.Get(context.Background(), "images/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(got))

	_, err = store.Get(context.Background(), "images/missing.jpg")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMapCloudError(t *testing.T) {
	missing := &client.ErrorInfo{Err: "no such file or directory", Code: 612}
	assert.ErrorIs(t, mapCloudError(missing), ErrNotFound)
	assert.ErrorIs(t, mapCloudError(fmt.Errorf("stat images/a.png: %w", missing)), ErrNotFound)

	for _, err := range []error{
		errString("bad token"),
		errString("Post https://rs.qiniu.test/stat: read tcp 10.1.2.3:46128->1.2.3.4:443: connection reset by peer"),
		&client.ErrorInfo{Err: "bad token", Code: 401},
		&client.ErrorInfo{Err: "request 612 times", Code: 599},
	} {
		assert.Equal(t, err, mapCloudError(err), err.Error())
	}
}

func TestMinIOStoreURLAndPresign(t *testing.T) {
	store, err := NewMinIOStore(MinIOConfig{
		Endpoint: "minio:9000", AccessKey: "ak", SecretKey: "sk", Bucket: "coach-ai",
	})
	require.NoError(t, err)
	assert.Equal(t, "http://minio:9000/coach-ai/images/a.png", store.URL("/images/a.png"))

	signed, err := store.Presign(context.Background(), "images/a.png", 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(signed, "http://minio:9000/coach-ai/images/a.png?"), signed)
	assert.Contains(t, signed, "X-Amz-Expires=600")

	public, err := NewMinIOStore(MinIOConfig{
		Endpoint: "minio:9000", PublicURL: "https://files.example.com/", AccessKey: "ak", SecretKey: "sk", Bucket: "coach-ai", UseSSL: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "https://files.example.com/coach-ai/images/a.png", public.URL("images/a.png"))

	_, err = NewMinIOStore(MinIOConfig{Endpoint: "minio:9000", Bucket: "b"})
	assert.Error(t, err)
}

type errString string

func (e errString) Error() string { return string(e) }
