package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/vk/jobchain/internal/fsutil"
	"github.com/vk/jobchain/internal/objectstore"
)

// Source is one search root.
type Source interface {
	// Open reads rel, a "/"-separated path below the root. ok is false when
	// the file does not exist.
	Open(ctx context.Context, rel string) (data []byte, ok bool, err error)
	// List returns every file below the root as "/"-separated paths.
	List(ctx context.Context) ([]string, error)
	String() string
}

// DirSource is a local directory root.
type DirSource struct {
	root string
}

func NewDirSource(root string) *DirSource {
	return &DirSource{root: root}
}

func (d *DirSource) String() string { return d.root }

func (d *DirSource) Open(ctx context.Context, rel string) ([]byte, bool, error) {
	data, err := os.ReadFile(filepath.Join(d.root, filepath.FromSlash(rel)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func (d *DirSource) List(ctx context.Context) ([]string, error) {
	files, err := fsutil.FindFiles(d.root, Extensions...)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return files, nil
}

// ClientFactory builds the object store client on first use.
type ClientFactory func() (*minio.Client, error)

// SourcesFromRoots maps each root to a Source: s3://bucket/prefix roots to an
// object store source, everything else to a directory.
func SourcesFromRoots(roots []string, newClient ClientFactory) ([]Source, error) {
	var client *minio.Client
	sources := make([]Source, 0, len(roots))
	for _, root := range roots {
		loc, isObject, err := objectstore.ParseLocation(root)
		if err != nil {
			return nil, err
		}
		if !isObject {
			sources = append(sources, NewDirSource(root))
			continue
		}
		if client == nil {
			if newClient == nil {
				return nil, fmt.Errorf("root %s needs an object store client", root)
			}
			if client, err = newClient(); err != nil {
				return nil, fmt.Errorf("object store client for %s: %w", root, err)
			}
		}
		src, err := objectstore.NewSource(client, loc)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}
