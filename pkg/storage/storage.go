package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// Store persists uploaded files under slash-separated keys.
type Store interface {
	Read(ctx context.Context, key string) (io.ReadCloser, int64, error)
	Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	// PublicURL is the address clients use to fetch key.
	PublicURL(key string) string
}

type Config struct {
	// local or minio
	Driver    string `env:"STORAGE_DRIVER"`
	LocalPath string `env:"STORAGE_LOCAL_PATH"`
	BaseURL   string `env:"STORAGE_PUBLIC_BASE"`
	Minio     MinioConfig
}

func NewStore(cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "local":
		return NewLocalStore(cfg.LocalPath, cfg.BaseURL), nil
	case "minio":
		return NewMinioStore(cfg.Minio)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}
