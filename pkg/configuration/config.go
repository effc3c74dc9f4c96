package configuration

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
	"github.com/srand/multinode/pkg/log"
	"github.com/srand/multinode/pkg/utils"
)

type LibraryConfig struct {
	// Storage type: "memory", "disk" or "s3"
	StorageType string `mapstructure:"storage"`
	// Path to store configurations (for disk storage)
	Path string `mapstructure:"path"`
	// Object store settings (for s3 storage)
	S3 ObjectStoreConfig `mapstructure:"s3"`
	// Bytes of configurations kept in memory in front of disk or s3 storage.
	// Zero disables the cache.
	CacheSize int64 `mapstructure:"cache_size"`
}

func (c *LibraryConfig) SetDefaults() {
	if c.StorageType == "" {
		c.StorageType = "memory"
	}
}

func (c *LibraryConfig) CreateLibrary(ctx context.Context) (Library, error) {
	library, err := c.createLibrary(ctx)
	if err != nil {
		return nil, err
	}

	if c.CacheSize > 0 && c.StorageType != "memory" {
		log.Info("Configurations cached in memory, up to", utils.HumanByteSize(c.CacheSize))
		return NewCachedLibrary(library, c.CacheSize), nil
	}

	return library, nil
}

func (c *LibraryConfig) createLibrary(ctx context.Context) (Library, error) {
	switch c.StorageType {
	case "disk":
		if c.Path == "" {
			return nil, fmt.Errorf("no path configured for library disk storage")
		}

		os := afero.NewOsFs()
		if err := os.MkdirAll(c.Path, 0777); err != nil {
			return nil, err
		}

		log.Info("Configurations stored in", c.Path)
		return NewFsLibrary(utils.NewBasePathFs(os, c.Path)), nil

	case "", "memory":
		log.Info("Configurations stored in memory")
		return NewMemoryLibrary(), nil

	case "s3":
		library, err := NewObjectLibrary(&c.S3)
		if err != nil {
			return nil, err
		}
		if err := library.EnsureBucket(ctx, c.S3.Region); err != nil {
			return nil, err
		}

		log.Info("Configurations stored in bucket", c.S3.Bucket)
		return library, nil

	default:
		return nil, fmt.Errorf("invalid library storage type configured: %s", c.StorageType)
	}
}

func (c *LibraryConfig) Log() {
	log.Info("  Library configuration:")
	log.Info("    storage =", c.StorageType)
	switch c.StorageType {
	case "disk":
		log.Info("    path =", c.Path)
	case "s3":
		c.S3.Log()
	}
	if c.CacheSize > 0 {
		log.Info("    cache_size =", utils.HumanByteSize(c.CacheSize))
	}
}
