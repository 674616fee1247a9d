package blob

import (
	"context"
	"fmt"
	"strings"
)

const (
	DriverFileSystem = "filesystem"
	DriverS3         = "s3"
	DriverMemory     = "memory"
)

type Config struct {
	Driver string
	Dir    string
	S3     S3Config
}

// Open builds the Store named by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", DriverFileSystem:
		return NewFileSystemStore(cfg.Dir)
	case DriverS3:
		return NewS3Store(ctx, cfg.S3)
	case DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("blob: unknown driver %q", cfg.Driver)
	}
}
