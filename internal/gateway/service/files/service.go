package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"coachai/internal/artifact"
	"coachai/internal/gateway/repository/objectstore"
	"coachai/internal/gateway/service"
)

const (
	DefaultMaxUploadBytes         = 10 << 20
	DefaultDownloadConnectTimeout = 10 * time.Second
	DefaultDownloadReadTimeout    = 30 * time.Second
	DefaultUserAgent              = "CoachAI/1.0"

	imageCacheControl = "public, max-age=31536000"
	tempCacheControl  = "public, max-age=3600"
)

type Paths struct {
	Images    string
	Documents string
	Temp      string
}

func DefaultPaths() Paths {
	return Paths{Images: "images/", Documents: "documents/", Temp: "temp/"}
}

type Config struct {
	Paths                  Paths
	MaxUploadBytes         int64
	DownloadConnectTimeout time.Duration
	DownloadReadTimeout    time.Duration
	UserAgent              string
}

// Upload is a file received from a client.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Stored describes an object written by the service.
type Stored struct {
	ObjectName  string `json:"objectName"`
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

type Info struct {
	objectstore.ObjectInfo
	URL    string `json:"url"`
	Exists bool   `json:"exists"`
}

// Service names, writes and serves objects through an objectstore.Store.
type Service struct {
	store  objectstore.Store
	cfg    Config
	client *http.Client
	now    func() time.Time
	newID  func() string
}

func New(store objectstore.Store, cfg Config) *Service {
	def := DefaultPaths()
	if strings.TrimSpace(cfg.Paths.Images) == "" {
		cfg.Paths.Images = def.Images
	}
	if strings.TrimSpace(cfg.Paths.Documents) == "" {
		cfg.Paths.Documents = def.Documents
	}
	if strings.TrimSpace(cfg.Paths.Temp) == "" {
		cfg.Paths.Temp = def.Temp
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.DownloadConnectTimeout <= 0 {
		cfg.DownloadConnectTimeout = DefaultDownloadConnectTimeout
	}
	if cfg.DownloadReadTimeout <= 0 {
		cfg.DownloadReadTimeout = DefaultDownloadReadTimeout
	}
	if strings.TrimSpace(cfg.UserAgent) == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: cfg.DownloadConnectTimeout}).DialContext
	transport.ResponseHeaderTimeout = cfg.DownloadReadTimeout
	return &Service{
		store:  store,
		cfg:    cfg,
		client: &http.Client{Transport: transport, Timeout: cfg.DownloadConnectTimeout + cfg.DownloadReadTimeout},
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

func (s *Service) Config() Config { return s.cfg }

// ObjectName builds prefix + yyyyMMddHHmmss + "_" + 8 hex chars + ext.
func (s *Service) ObjectName(prefix, ext string) string {
	id := strings.ReplaceAll(s.newID(), "-", "")
	if len(id) > 8 {
		id = id[:8]
	}
	return prefix + s.now().Format("20060102150405") + "_" + id + ext
}

func (s *Service) UploadImage(ctx context.Context, up Upload) (*Stored, error) {
	ct := strings.ToLower(strings.TrimSpace(up.ContentType))
	if !strings.HasPrefix(ct, "image/") {
		return nil, service.Invalid("file", "unsupported file type %q, expected an image", up.ContentType)
	}
	return s.upload(ctx, up, s.cfg.Paths.Images, imageCacheControl)
}

func (s *Service) UploadDocument(ctx context.Context, up Upload) (*Stored, error) {
	return s.upload(ctx, up, s.cfg.Paths.Documents, "")
}

func (s *Service) UploadTemp(ctx context.Context, up Upload) (*Stored, error) {
	return s.upload(ctx, up, s.cfg.Paths.Temp, tempCacheControl)
}

func (s *Service) upload(ctx context.Context, up Upload, prefix, cacheControl string) (*Stored, error) {
	if len(up.Data) == 0 {
		return nil, service.Invalid("file", "file is empty")
	}
	ext := strings.ToLower(path.Ext(strings.TrimSpace(up.Filename)))
	if ext == "" {
		ext = artifact.ExtensionForMIME(up.ContentType)
	}
	ct := strings.TrimSpace(up.ContentType)
	if ct == "" || ct == artifact.DefaultContentType {
		ct = artifact.ContentTypeForName(ext)
	}
	return s.put(ctx, s.ObjectName(prefix, ext), up.Data, ct, cacheControl)
}

// SaveBase64 accepts a data URI, bare base64, or a JSON document embedding
// one, and stores the bytes under the image prefix.
func (s *Service) SaveBase64(ctx context.Context, raw string) (*Stored, error) {
	decoded, err := artifact.DecodeArtifact(raw)
	if err != nil {
		return nil, err
	}
	name := s.ObjectName(s.cfg.Paths.Images, decoded.Extension())
	return s.put(ctx, name, decoded.Data, decoded.ContentType(), imageCacheControl)
}

// DownloadAndSave fetches rawURL and stores the body under the image prefix.
func (s *Service) DownloadAndSave(ctx context.Context, rawURL string) (*Stored, error) {
	u := strings.TrimSpace(rawURL)
	lower := strings.ToLower(u)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return nil, service.Invalid("imageUrl", "must be an http or https url")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, service.Invalid("imageUrl", "%v", err)
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("download %s: status %d", u, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", u, err)
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, service.Invalid("imageUrl", "remote file exceeds %d bytes", s.cfg.MaxUploadBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("download %s: empty body", u)
	}

	ct := strings.TrimSpace(resp.Header.Get("Content-Type"))
	ext := artifact.ExtensionFromURL(u, ct)
	if ct == "" {
		ct = artifact.ContentTypeForName(ext)
	}
	log.Printf("files: downloaded url=%s bytes=%d elapsed=%s", u, len(data), time.Since(start).Round(time.Millisecond))
	return s.put(ctx, s.ObjectName(s.cfg.Paths.Images, ext), data, ct, imageCacheControl)
}

func (s *Service) put(ctx context.Context, name string, data []byte, contentType, cacheControl string) (*Stored, error) {
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, service.Invalid("file", "file exceeds %d bytes", s.cfg.MaxUploadBytes)
	}
	url, err := s.store.Put(ctx, name, data, objectstore.PutOptions{
		ContentType:        contentType,
		CacheControl:       cacheControl,
		ContentDisposition: "inline",
	})
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", name, err)
	}
	log.Printf("files: stored object=%s bytes=%d type=%s", name, len(data), contentType)
	return &Stored{ObjectName: name, URL: url, ContentType: contentType, Size: int64(len(data))}, nil
}

// Download returns the object's bytes and its content type. The type falls
// back to the extension table when the store did not record one.
func (s *Service) Download(ctx context.Context, name string) ([]byte, string, error) {
	data, err := s.store.Get(ctx, name)
	if err != nil {
		return nil, "", err
	}
	ct := ""
	if info, err := s.store.Stat(ctx, name); err == nil {
		ct = info.ContentType
	}
	if ct == "" || ct == artifact.DefaultContentType {
		ct = artifact.ContentTypeForName(name)
	}
	return data, ct, nil
}

func (s *Service) Info(ctx context.Context, name string) (*Info, error) {
	info, err := s.store.Stat(ctx, name)
	if err != nil {
		return nil, err
	}
	return &Info{ObjectInfo: *info, URL: s.store.URL(info.Name), Exists: true}, nil
}

func (s *Service) Exists(ctx context.Context, name string) (bool, error) {
	return s.store.Exists(ctx, name)
}

func (s *Service) Delete(ctx context.Context, name string) error {
	if err := s.store.Delete(ctx, name); err != nil && !errors.Is(err, objectstore.ErrNotFound) {
		return err
	}
	log.Printf("files: deleted object=%s", strings.TrimSpace(name))
	return nil
}

func (s *Service) Presign(ctx context.Context, name string, expiry time.Duration) (string, error) {
	return s.store.Presign(ctx, name, expiry)
}
