package config

import (
	"os"
	"strings"
)

const localSQLitePath = "tmp/coachai.db"

// localMinIOConfig matches the docker-compose MinIO service.
func localMinIOConfig() MinIOConfig {
	return MinIOConfig{
		Endpoint:  firstNonEmpty(strings.TrimSpace(os.Getenv("MINIO_ENDPOINT")), "minio:9000"),
		PublicURL: firstNonEmpty(strings.TrimSpace(os.Getenv("MINIO_PUBLIC_URL")), "http://localhost:9000"),
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("MINIO_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("MINIO_ACCESS_KEY")), "coachai"),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("MINIO_SECRET_KEY")), "coachai123"),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("MINIO_BUCKET")), defaultBucket),
		UseSSL:    false,
	}
}
