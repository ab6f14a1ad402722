package loader

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/vk/jobchain/internal/ctxlog"
	"github.com/vk/jobchain/internal/dag"
	"github.com/vk/jobchain/internal/graph"
	"github.com/vk/jobchain/internal/hcl_adapter"
	"github.com/vk/jobchain/internal/yaml_adapter"
)

// ErrNotFound is returned when no root holds the requested chain.
var ErrNotFound = graph.ErrNotFound

// Extensions lists the recognised chain file extensions in lookup order.
var Extensions = []string{".hcl", ".yml", ".yaml"}

// Decoder turns file contents into a definition.
type Decoder func(ctx context.Context, name, filename string, src []byte) (*graph.Definition, error)

var decoders = map[string]Decoder{
	".hcl":  hcl_adapter.Decode,
	".yml":  yaml_adapter.Decode,
	".yaml": yaml_adapter.Decode,
}

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+(\.[A-Za-z0-9_-]+)*$`)

// Loader finds, decodes and validates chain definitions.
type Loader struct {
	sources []Source

	mu    sync.Mutex
	cache map[string]*graph.Definition
}

func New(sources ...Source) *Loader {
	return &Loader{
		sources: sources,
		cache:   make(map[string]*graph.Definition),
	}
}

// Lookup returns the definition for a dotted chain name.
func (l *Loader) Lookup(ctx context.Context, name string) (*graph.Definition, error) {
	if !namePattern.MatchString(name) {
		return nil, fmt.Errorf("invalid chain name %q", name)
	}

	l.mu.Lock()
	def, ok := l.cache[name]
	l.mu.Unlock()
	if ok {
		return def, nil
	}

	def, err := l.load(ctx, name)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if cached, ok := l.cache[name]; ok {
		return cached, nil
	}
	l.cache[name] = def
	return def, nil
}

func (l *Loader) load(ctx context.Context, name string) (*graph.Definition, error) {
	logger := ctxlog.FromContext(ctx)
	rel := strings.ReplaceAll(name, ".", "/")

	for _, src := range l.sources {
		for _, ext := range Extensions {
			file := rel + ext
			data, ok, err := src.Open(ctx, file)
			if err != nil {
				return nil, fmt.Errorf("failed to read %s from %s: %w", file, src, err)
			}
			if !ok {
				continue
			}
			logger.Debug("Chain file found.", "chain", name, "root", src.String(), "file", file)

			def, err := decoders[ext](ctx, name, src.String()+"/"+file, data)
			if err != nil {
				return nil, err
			}
			rep, err := dag.Inspect(def)
			if err != nil {
				return nil, err
			}
			logger.Debug("Chain validated.", "chain", name, "jobs", rep.Jobs, "order", rep.Order)
			if len(rep.Unread) > 0 {
				logger.Info("Some job responses are never read by another job.", "chain", name, "jobs", rep.Unread)
			}
			return def, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// List returns the names of every chain reachable from the roots, sorted.
// A name present in several roots is listed once.
func (l *Loader) List(ctx context.Context) ([]string, error) {
	var names []string
	for _, src := range l.sources {
		files, err := src.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", src, err)
		}
		for _, f := range files {
			ext := path.Ext(f)
			if !slices.Contains(Extensions, ext) {
				continue
			}
			name := strings.ReplaceAll(strings.TrimSuffix(f, ext), "/", ".")
			if namePattern.MatchString(name) && !slices.Contains(names, name) {
				names = append(names, name)
			}
		}
	}
	slices.Sort(names)
	return names, nil
}
