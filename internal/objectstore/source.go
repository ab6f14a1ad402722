package objectstore

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/vk/jobchain/internal/ctxlog"
)

// NewClient builds a MinIO client from cfg.
func NewClient(cfg Config) (*minio.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts := &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: newTransport(),
	}
	return minio.New(cfg.Endpoint, opts)
}

// Source serves chain files stored under a bucket prefix.
type Source struct {
	client *minio.Client
	loc    Location
}

// NewSource creates a Source for loc.
func NewSource(client *minio.Client, loc Location) (*Source, error) {
	if client == nil {
		return nil, fmt.Errorf("minio client is required")
	}
	if loc.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	return &Source{client: client, loc: loc}, nil
}

func (s *Source) String() string { return s.loc.String() }

// Open reads the object at rel below the prefix. A missing object reports
// ok=false without an error.
func (s *Source) Open(ctx context.Context, rel string) ([]byte, bool, error) {
	key := path.Join(s.loc.Prefix, rel)
	ctxlog.FromContext(ctx).Debug("Reading chain object.", "bucket", s.loc.Bucket, "key", key)

	obj, err := s.client.GetObject(ctx, s.loc.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get %s/%s: %w", s.loc.Bucket, key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read %s/%s: %w", s.loc.Bucket, key, err)
	}
	return data, true, nil
}

// List returns the keys below the prefix, relative to it, with "/" separators.
func (s *Source) List(ctx context.Context) ([]string, error) {
	prefix := s.loc.Prefix
	if prefix != "" {
		prefix += "/"
	}

	var keys []string
	for obj := range s.client.ListObjects(ctx, s.loc.Bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list %s: %w", s.loc, obj.Err)
		}
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		keys = append(keys, strings.TrimPrefix(obj.Key, prefix))
	}
	return keys, nil
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == minio.NoSuchKey || resp.StatusCode == http.StatusNotFound
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
