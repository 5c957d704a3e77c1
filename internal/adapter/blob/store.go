// Package blob mirrors region run outputs into an object store. The
// filesystem driver suits local runs, s3 targets AWS S3 or MinIO, and memory
// is for tests.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// Driver identifies a concrete store implementation.
type Driver string

const (
	DriverFilesystem Driver = "fs"
	DriverS3         Driver = "s3"
	DriverMemory     Driver = "memory"
)

// ErrInvalidKey is returned for keys that are empty, absolute or escape the
// store root.
var ErrInvalidKey = errors.New("invalid blob key")

// Store is the object store surface the mirror needs. Put overwrites.
type Store interface {
	Driver() Driver
	Put(ctx context.Context, key string, r io.Reader, contentType string) error
	List(ctx context.Context, prefix string) ([]string, error)
}

// Config selects and configures a Store.
type Config struct {
	Driver string
	FSRoot string
	S3     S3Config
}

// Open returns the store named by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch Driver(strings.ToLower(cfg.Driver)) {
	case DriverFilesystem:
		return NewFSStore(cfg.FSRoot)
	case DriverS3:
		return NewS3Store(ctx, cfg.S3)
	case DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported blob driver %q", cfg.Driver)
	}
}

func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	clean := path.Clean(strings.ReplaceAll(key, "\\", "/"))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return clean, nil
}
