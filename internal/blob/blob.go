// Package blob exposes the photo object store. It is the only package allowed
// to import the concrete drivers under internal/infra/blob.
package blob

import (
	"context"
	"fmt"
	"strings"

	"doglog/internal/blob/core"
	fsinfra "doglog/internal/infra/blob/fs"
	meminfra "doglog/internal/infra/blob/memory"
	s3infra "doglog/internal/infra/blob/s3"
)

type (
	Driver           = core.Driver
	Store            = core.Store
	Info             = core.Info
	PutOptions       = core.PutOptions
	SignedURLOptions = core.SignedURLOptions
	S3Config         = s3infra.Config
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
	DefaultURLExpiry = core.DefaultURLExpiry
)

var (
	ErrUnsupported = core.ErrUnsupported
	ErrNotFound    = core.ErrNotFound
)

// Config selects and configures a driver.
type Config struct {
	Driver Driver   `yaml:"driver"`
	Root   string   `yaml:"root"` // filesystem driver
	S3     S3Config `yaml:"s3"`
}

// NewMemory returns an in-memory store.
func NewMemory() Store { return meminfra.New() }

// NewFilesystem returns a store rooted at dir.
func NewFilesystem(dir string) (Store, error) { return fsinfra.New(dir) }

// NewS3 returns a store on an S3-compatible bucket.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) { return s3infra.New(ctx, cfg) }

// NewMockS3ForTests returns an S3 store served by an in-process fake.
func NewMockS3ForTests() Store { return s3infra.NewMockForTests() }

// Open builds the store named by cfg.Driver. The filesystem driver is the default.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch Driver(strings.ToLower(string(cfg.Driver))) {
	case "", DriverFilesystem:
		return NewFilesystem(cfg.Root)
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}
