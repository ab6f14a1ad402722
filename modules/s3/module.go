package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/vk/jobchain/internal/ctxlog"
	"github.com/vk/jobchain/internal/registry"
)

// Type is the job type served by this module.
const Type = "S3Put"

// Module implements the registry.Module interface for this package.
type Module struct {
	// Client is the object store client; jobs fail when it is nil.
	Client *minio.Client
}

// Input describes the object to write. Exactly one of SourcePath and
// Content is used, SourcePath first.
type Input struct {
	Bucket      string `json:"bucket"`
	Key         string `json:"key"`
	SourcePath  string `json:"source_path,omitempty"`
	Content     string `json:"content,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

// Output is the job response.
type Output struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	ETag   string `json:"etag"`
	Size   int64  `json:"size"`
}

// OnRunS3Put uploads a local file or inline content.
func (m *Module) OnRunS3Put(ctx context.Context, input *Input) (any, error) {
	if m.Client == nil {
		return nil, fmt.Errorf("object store client is not configured")
	}
	if input.Bucket == "" || input.Key == "" {
		return nil, fmt.Errorf("bucket and key are required")
	}
	logger := ctxlog.FromContext(ctx).With("bucket", input.Bucket, "key", input.Key)

	var (
		body io.Reader
		size int64
	)
	contentType := input.ContentType
	if input.SourcePath != "" {
		file, err := os.Open(input.SourcePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open source file '%s': %w", input.SourcePath, err)
		}
		defer file.Close()

		stat, err := file.Stat()
		if err != nil {
			return nil, fmt.Errorf("failed to get file stats for '%s': %w", input.SourcePath, err)
		}
		body, size = file, stat.Size()
		if contentType == "" {
			contentType = mime.TypeByExtension(filepath.Ext(input.SourcePath))
		}
	} else {
		body, size = bytes.NewReader([]byte(input.Content)), int64(len(input.Content))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	logger.Info("Uploading object", "size", size, "contentType", contentType)
	info, err := m.Client.PutObject(ctx, input.Bucket, input.Key, body, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s/%s: %w", input.Bucket, input.Key, err)
	}
	logger.Info("Successfully uploaded object", "etag", info.ETag)

	return &Output{Bucket: input.Bucket, Key: input.Key, ETag: info.ETag, Size: size}, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register(Type, registry.Typed(m.OnRunS3Put))
}
