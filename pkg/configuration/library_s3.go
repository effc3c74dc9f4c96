package configuration

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/srand/multinode/pkg/log"
	"github.com/srand/multinode/pkg/utils"
)

// S3 compatible object storage settings.
type ObjectStoreConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Region    string `mapstructure:"region"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	// Key prefix for configuration objects.
	Prefix string `mapstructure:"prefix"`
	// Timeout of individual storage operations.
	Timeout time.Duration `mapstructure:"timeout"`
}

func (c *ObjectStoreConfig) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("object store endpoint is required")
	}
	if strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("object store endpoint must not include scheme: %q", c.Endpoint)
	}
	if strings.TrimSpace(c.AccessKey) == "" {
		return errors.New("object store access key is required")
	}
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("object store secret key is required")
	}
	if strings.TrimSpace(c.Bucket) == "" {
		return errors.New("object store bucket is required")
	}
	return nil
}

func (c *ObjectStoreConfig) Log() {
	log.Info("    endpoint =", c.Endpoint)
	log.Info("    bucket =", c.Bucket)
	if c.Prefix != "" {
		log.Info("    prefix =", c.Prefix)
	}
	if c.Region != "" {
		log.Info("    region =", c.Region)
	}
	log.Info("    use_ssl =", c.UseSSL)
}

// Library storing configurations as objects in an S3 bucket.
type objectLibrary struct {
	client  *minio.Client
	bucket  string
	prefix  string
	timeout time.Duration
}

func NewObjectLibrary(config *ObjectStoreConfig) (*objectLibrary, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseSSL,
		Region: config.Region,
	})
	if err != nil {
		return nil, err
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &objectLibrary{
		client:  client,
		bucket:  config.Bucket,
		prefix:  config.Prefix,
		timeout: timeout,
	}, nil
}

// Creates the bucket if it does not exist.
func (l *objectLibrary) EnsureBucket(ctx context.Context, region string) error {
	exists, err := l.client.BucketExists(ctx, l.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	log.Info("Creating bucket", l.bucket)
	return l.client.MakeBucket(ctx, l.bucket, minio.MakeBucketOptions{Region: region})
}

func (l *objectLibrary) key(hash utils.Digest) string {
	return path.Join(l.prefix, string(hash.Algorithm()), hash.Hex())
}

func (l *objectLibrary) Add(c *Configuration) error {
	data, err := Encode(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	_, err = l.client.PutObject(ctx, l.bucket, l.key(c.Hash()), bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/cbor"})
	if err != nil {
		return objectError(c.Hash(), err)
	}

	log.Debugf("Added configuration %s (%s) to bucket %s", c.Name, c.Hash(), l.bucket)
	return nil
}

func (l *objectLibrary) Get(hash utils.Digest) (*Configuration, error) {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	obj, err := l.client.GetObject(ctx, l.bucket, l.key(hash), minio.GetObjectOptions{})
	if err != nil {
		return nil, objectError(hash, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, objectError(hash, err)
	}

	return Decode(data)
}

func (l *objectLibrary) Remove(hash utils.Digest) error {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	// Removal of a missing object succeeds in S3.
	if _, err := l.client.StatObject(ctx, l.bucket, l.key(hash), minio.StatObjectOptions{}); err != nil {
		return objectError(hash, err)
	}

	if err := l.client.RemoveObject(ctx, l.bucket, l.key(hash), minio.RemoveObjectOptions{}); err != nil {
		return objectError(hash, err)
	}

	log.Debugf("Removed configuration %s from bucket %s", hash, l.bucket)
	return nil
}

func objectError(hash utils.Digest, err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: configuration %s", utils.ErrNotFound, hash)
	}
	return err
}
