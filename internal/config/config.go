package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"logdex/internal/blob"
)

// Blob storage backends.
const (
	BackendLocal = "local"
	BackendS3    = "s3"
)

type Config struct {
	DBPath    string
	CacheSize int
	Blob      BlobConfig
}

type BlobConfig struct {
	Backend string
	Dir     string
	S3      blob.S3Config
}

// Load reads configuration from the environment, with an optional .env file
// in the working directory.
func Load() (*Config, error) {
	_ = godotenv.Load()

	home, _ := os.UserHomeDir()
	dbPath := strings.TrimSpace(os.Getenv("LOGDEX_DB"))
	if dbPath == "" {
		dbPath = filepath.Join(home, ".logdex", "versions.db")
	}

	cacheSize := 0
	if raw := strings.TrimSpace(os.Getenv("LOGDEX_CACHE_SIZE")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid LOGDEX_CACHE_SIZE %q", raw)
		}
		cacheSize = n
	}

	blobCfg, err := loadBlobConfig(home)
	if err != nil {
		return nil, err
	}

	return &Config{
		DBPath:    dbPath,
		CacheSize: cacheSize,
		Blob:      blobCfg,
	}, nil
}

func loadBlobConfig(home string) (BlobConfig, error) {
	backend := strings.ToLower(strings.TrimSpace(os.Getenv("LOGDEX_BLOB_BACKEND")))
	if backend == "" {
		backend = BackendLocal
	}

	switch backend {
	case BackendLocal:
		dir := strings.TrimSpace(os.Getenv("LOGDEX_BLOB_DIR"))
		if dir == "" {
			dir = filepath.Join(home, ".logdex", "blobs")
		}
		return BlobConfig{Backend: BackendLocal, Dir: dir}, nil
	case BackendS3:
		return BlobConfig{
			Backend: BackendS3,
			S3: blob.S3Config{
				Endpoint:  strings.TrimSpace(os.Getenv("LOGDEX_S3_ENDPOINT")),
				Region:    strings.TrimSpace(os.Getenv("LOGDEX_S3_REGION")),
				AccessKey: strings.TrimSpace(os.Getenv("LOGDEX_S3_ACCESS_KEY")),
				SecretKey: strings.TrimSpace(os.Getenv("LOGDEX_S3_SECRET_KEY")),
				Bucket:    strings.TrimSpace(os.Getenv("LOGDEX_S3_BUCKET")),
				UseSSL:    parseBoolDefault(os.Getenv("LOGDEX_S3_USE_SSL"), true),
			},
		}, nil
	default:
		return BlobConfig{}, fmt.Errorf("unknown LOGDEX_BLOB_BACKEND %q (want %q or %q)", backend, BackendLocal, BackendS3)
	}
}

// NewBlobStore builds the configured blob store.
func (c *Config) NewBlobStore() (blob.Store, error) {
	switch c.Blob.Backend {
	case BackendS3:
		return blob.NewS3Store(c.Blob.S3)
	default:
		return blob.NewLocalStore(c.Blob.Dir)
	}
}

func parseBoolDefault(raw string, def bool) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}
