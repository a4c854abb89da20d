package blob

import (
	"context"
	"fmt"
	"os"
	"strings"

	"phenoqc/internal/infra/blob/fs"
	memorystore "phenoqc/internal/infra/blob/memory"
	infraS3 "phenoqc/internal/infra/blob/s3"
)

// S3Config configures the S3 backend.
type S3Config = infraS3.Config

// Config selects and configures a backend.
type Config struct {
	Driver Driver   `yaml:"driver"`
	Root   string   `yaml:"root"`
	S3     S3Config `yaml:"s3"`
}

// ConfigFromEnv reads the backend configuration from the environment:
//
//	PHENOQC_BLOB_DRIVER      fs|s3|memory (default fs)
//	PHENOQC_BLOB_FS_ROOT     directory for the fs driver
//	PHENOQC_BLOB_S3_BUCKET   bucket for the s3 driver
//	PHENOQC_BLOB_S3_REGION   region (default us-east-1)
//	PHENOQC_BLOB_S3_ENDPOINT custom endpoint such as MinIO
//	PHENOQC_BLOB_S3_PATH_STYLE=true
func ConfigFromEnv() Config {
	return Config{
		Driver: Driver(os.Getenv("PHENOQC_BLOB_DRIVER")),
		Root:   os.Getenv("PHENOQC_BLOB_FS_ROOT"),
		S3: S3Config{
			Bucket:    os.Getenv("PHENOQC_BLOB_S3_BUCKET"),
			Region:    os.Getenv("PHENOQC_BLOB_S3_REGION"),
			Endpoint:  os.Getenv("PHENOQC_BLOB_S3_ENDPOINT"),
			PathStyle: strings.EqualFold(os.Getenv("PHENOQC_BLOB_S3_PATH_STYLE"), "true"),
		},
	}
}

// Open constructs the backend named by cfg.Driver. An empty driver selects
// the filesystem.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverFilesystem:
		return fs.New(cfg.Root)
	case DriverS3:
		return infraS3.New(ctx, cfg.S3)
	case DriverMemory:
		return memorystore.New(), nil
	default:
		return nil, fmt.Errorf("unknown snapshot store driver %q", cfg.Driver)
	}
}

// NewMemory returns an in-process store.
func NewMemory() Store { return memorystore.New() }

// NewMockS3ForTests returns an S3 store backed by a fake transport.
func NewMockS3ForTests() Store { return infraS3.NewMockForTests() }
