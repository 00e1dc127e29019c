package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendMinIO  = "minio"
	BackendCloud  = "cloud"
	BackendMemory = "memory"

	defaultPort           = ":8081"
	defaultBucket         = "coachai"
	defaultMaxUploadBytes = 10 << 20
)

type Config struct {
	Port        string
	Env         string
	DatabaseURL string
	SQLitePath  string
	Workflow    WorkflowConfig
	Storage     StorageConfig
	HTTP        HTTPConfig
}

type WorkflowConfig struct {
	BaseURL        string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	Pose           FlowConfig
	Issue          FlowConfig
}

type FlowConfig struct {
	APICode   string
	AccessKey string
}

type StorageConfig struct {
	Backend        string
	Paths          PathsConfig
	MaxUploadBytes int64
	MinIO          MinIOConfig
	Cloud          CloudConfig
	Cache          CacheConfig
}

type PathsConfig struct {
	Images    string
	Documents string
	Temp      string
}

type MinIOConfig struct {
	Endpoint  string
	PublicURL string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type CloudConfig struct {
	AccessKey    string
	SecretKey    string
	Bucket       string
	Domain       string
	CDNDomain    string
	CustomDomain string
	UseHTTPS     bool
}

type CacheConfig struct {
	BlobTTL    time.Duration
	PresignTTL time.Duration
}

type HTTPConfig struct {
	// PublicBaseURL is where clients reach this gateway; the in-memory
	// object backend builds its URLs under PublicBaseURL/files/proxy.
	PublicBaseURL   string
	ShutdownTimeout time.Duration
}

// CanUseMinIO reports whether enough is configured to dial MinIO.
func (c MinIOConfig) CanUseMinIO() bool {
	return strings.TrimSpace(c.Endpoint) != "" &&
		strings.TrimSpace(c.AccessKey) != "" &&
		strings.TrimSpace(c.SecretKey) != "" &&
		strings.TrimSpace(c.Bucket) != ""
}

// CanUseCloud reports whether enough is configured to reach the cloud bucket.
func (c CloudConfig) CanUseCloud() bool {
	return strings.TrimSpace(c.AccessKey) != "" &&
		strings.TrimSpace(c.SecretKey) != "" &&
		strings.TrimSpace(c.Bucket) != "" &&
		(strings.TrimSpace(c.Domain) != "" || strings.TrimSpace(c.CDNDomain) != "" || strings.TrimSpace(c.CustomDomain) != "")
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port := flag.String("port", defaultPort, "server port")
	flag.Parse()

	return loadFromEnv(*port)
}

// loadFromEnv builds the config from the process environment. flagPort is
// used unless PORT is set.
func loadFromEnv(flagPort string) (*Config, error) {
	port := firstNonEmpty(flagPort, defaultPort)
	if envPort := strings.TrimSpace(os.Getenv("PORT")); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			port = envPort
		} else {
			port = ":" + envPort
		}
	}

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	storage, err := loadStorageConfig(env)
	if err != nil {
		return nil, err
	}
	workflow, err := loadWorkflowConfig()
	if err != nil {
		return nil, err
	}
	shutdown, err := envDuration("SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:        port,
		Env:         env,
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SQLitePath:  strings.TrimSpace(os.Getenv("SQLITE_PATH")),
		Workflow:    workflow,
		Storage:     storage,
		HTTP: HTTPConfig{
			PublicBaseURL:   strings.TrimRight(firstNonEmpty(strings.TrimSpace(os.Getenv("PUBLIC_BASE_URL")), "http://localhost"+port), "/"),
			ShutdownTimeout: shutdown,
		},
	}
	if isLocal(env) && cfg.DatabaseURL == "" && cfg.SQLitePath == "" {
		cfg.SQLitePath = localSQLitePath
	}
	return cfg, nil
}

func loadWorkflowConfig() (WorkflowConfig, error) {
	connect, err := envDuration("WORKFLOW_CONNECT_TIMEOUT", 10*time.Second)
	if err != nil {
		return WorkflowConfig{}, err
	}
	read, err := envDuration("WORKFLOW_READ_TIMEOUT", 5*time.Minute)
	if err != nil {
		return WorkflowConfig{}, err
	}
	return WorkflowConfig{
		BaseURL:        strings.TrimSpace(os.Getenv("WORKFLOW_BASE_URL")),
		ConnectTimeout: connect,
		ReadTimeout:    read,
		Pose: FlowConfig{
			APICode:   strings.TrimSpace(os.Getenv("WORKFLOW_POSE_API_CODE")),
			AccessKey: strings.TrimSpace(os.Getenv("WORKFLOW_POSE_ACCESS_KEY")),
		},
		Issue: FlowConfig{
			APICode:   strings.TrimSpace(os.Getenv("WORKFLOW_ISSUE_API_CODE")),
			AccessKey: strings.TrimSpace(os.Getenv("WORKFLOW_ISSUE_ACCESS_KEY")),
		},
	}, nil
}

func loadStorageConfig(env string) (StorageConfig, error) {
	maxUpload := int64(defaultMaxUploadBytes)
	if raw := strings.TrimSpace(os.Getenv("STORAGE_MAX_UPLOAD_BYTES")); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v <= 0 {
			return StorageConfig{}, fmt.Errorf("STORAGE_MAX_UPLOAD_BYTES: invalid value %q", raw)
		}
		maxUpload = v
	}
	blobTTL, err := envDuration("STORAGE_CACHE_BLOB_TTL", 0)
	if err != nil {
		return StorageConfig{}, err
	}
	presignTTL, err := envDuration("STORAGE_CACHE_PRESIGN_TTL", 0)
	if err != nil {
		return StorageConfig{}, err
	}

	minio := loadMinIOConfig(env)
	cloud := CloudConfig{
		AccessKey:    strings.TrimSpace(os.Getenv("CLOUD_ACCESS_KEY")),
		SecretKey:    strings.TrimSpace(os.Getenv("CLOUD_SECRET_KEY")),
		Bucket:       strings.TrimSpace(os.Getenv("CLOUD_BUCKET")),
		Domain:       strings.TrimSpace(os.Getenv("CLOUD_DOMAIN")),
		CDNDomain:    strings.TrimSpace(os.Getenv("CLOUD_CDN_DOMAIN")),
		CustomDomain: strings.TrimSpace(os.Getenv("CLOUD_CUSTOM_DOMAIN")),
		UseHTTPS:     envBool("CLOUD_USE_HTTPS", true),
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("STORAGE_BACKEND")))
	switch backend {
	case "":
		backend = resolveBackend(env, minio, cloud)
	case BackendMinIO, BackendCloud, BackendMemory:
	default:
		return StorageConfig{}, fmt.Errorf("STORAGE_BACKEND: unknown backend %q", backend)
	}

	return StorageConfig{
		Backend: backend,
		Paths: PathsConfig{
			Images:    firstNonEmpty(strings.TrimSpace(os.Getenv("STORAGE_PATH_IMAGES")), "images/"),
			Documents: firstNonEmpty(strings.TrimSpace(os.Getenv("STORAGE_PATH_DOCUMENTS")), "documents/"),
			Temp:      firstNonEmpty(strings.TrimSpace(os.Getenv("STORAGE_PATH_TEMP")), "temp/"),
		},
		MaxUploadBytes: maxUpload,
		MinIO:          minio,
		Cloud:          cloud,
		Cache:          CacheConfig{BlobTTL: blobTTL, PresignTTL: presignTTL},
	}, nil
}

func loadMinIOConfig(env string) MinIOConfig {
	if isLocal(env) {
		return localMinIOConfig()
	}
	return MinIOConfig{
		Endpoint:  strings.TrimSpace(os.Getenv("MINIO_ENDPOINT")),
		PublicURL: strings.TrimSpace(os.Getenv("MINIO_PUBLIC_URL")),
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("MINIO_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("MINIO_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("MINIO_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("MINIO_BUCKET")), defaultBucket),
		UseSSL:    envBool("MINIO_USE_SSL", true),
	}
}

// resolveBackend picks a backend when none is named: the cloud bucket when it
// is fully configured, then MinIO, then memory.
func resolveBackend(env string, minio MinIOConfig, cloud CloudConfig) string {
	switch {
	case cloud.CanUseCloud():
		return BackendCloud
	case minio.CanUseMinIO():
		return BackendMinIO
	default:
		if !isLocal(env) {
			log.Printf("config: no object storage configured env=%s, using memory backend", env)
		}
		return BackendMemory
	}
}

func isLocal(env string) bool {
	return strings.EqualFold(strings.TrimSpace(env), "local")
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%s: invalid duration %q", key, raw)
	}
	return d, nil
}

func envBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
