package objectstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vk/jobchain/internal/env"
)

// Config holds the connection settings of the object store.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

// ConfigFromEnv reads JOBCHAIN_MINIO_* variables.
func ConfigFromEnv() (Config, error) {
	useSSL, err := env.Bool("JOBCHAIN_MINIO_USE_SSL", false)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		Endpoint:  env.String("JOBCHAIN_MINIO_ENDPOINT", "localhost:9000"),
		AccessKey: env.String("JOBCHAIN_MINIO_ACCESS_KEY", ""),
		SecretKey: env.String("JOBCHAIN_MINIO_SECRET_KEY", ""),
		Region:    env.String("JOBCHAIN_MINIO_REGION", "us-east-1"),
		UseSSL:    useSSL,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("endpoint is required")
	}
	if strings.TrimSpace(c.AccessKey) == "" {
		return errors.New("access key is required")
	}
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("secret key is required")
	}
	if strings.TrimSpace(c.Region) == "" {
		return errors.New("region is required")
	}
	if strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("endpoint must not include scheme: %q", c.Endpoint)
	}
	return nil
}

// Location is a bucket and a key prefix.
type Location struct {
	Bucket string
	Prefix string
}

func (l Location) String() string {
	if l.Prefix == "" {
		return "s3://" + l.Bucket
	}
	return "s3://" + l.Bucket + "/" + l.Prefix
}

// ParseLocation recognises s3://bucket[/prefix]. ok is false for any other
// root, which callers treat as a local directory.
func ParseLocation(root string) (loc Location, ok bool, err error) {
	rest, found := strings.CutPrefix(root, "s3://")
	if !found {
		return Location{}, false, nil
	}
	bucket, prefix, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return Location{}, true, fmt.Errorf("object store root %q has no bucket", root)
	}
	return Location{Bucket: bucket, Prefix: strings.Trim(prefix, "/")}, true, nil
}
