package cfg

import (
	"context"
	"io/fs"
	"path"
	"slices"

	"github.com/atrettin/pisa/internal/cache"
	"github.com/atrettin/pisa/internal/ctxlog"
)

// Loader locates configuration text by path. Implementations exist for the
// file system and for in-memory fixtures; anything read during resolution
// (include targets, prior data files) goes through a Loader.
type Loader interface {
	Load(path string) ([]byte, error)
}

// FSLoader loads configuration files from an fs.FS, e.g. os.DirFS for
// production or fstest.MapFS in tests.
type FSLoader struct {
	fsys fs.FS
}

// NewFSLoader creates a Loader over the given file system.
func NewFSLoader(fsys fs.FS) *FSLoader {
	return &FSLoader{fsys: fsys}
}

func (l *FSLoader) Load(p string) ([]byte, error) {
	return fs.ReadFile(l.fsys, path.Clean(p))
}

// defaultCacheDepth bounds the parsed-document cache. Configuration trees
// are a handful of files; the bound exists to keep long-lived resolvers from
// accumulating documents across many loads.
const defaultCacheDepth = 32

// Resolver loads documents and recursively resolves their include
// directives. Parsed documents are cached by cleaned path, so a file
// included from several places is parsed once. A Resolver is safe to share
// across concurrent loads.
type Resolver struct {
	loader Loader
	cache  *cache.Cache[string, *Document]
}

// NewResolver creates a Resolver over the given Loader.
func NewResolver(loader Loader) *Resolver {
	return &Resolver{
		loader: loader,
		cache:  cache.NewLRU[string, *Document](defaultCacheDepth),
	}
}

// Load parses the document at the given path and resolves its includes
// recursively. Fails with CircularIncludeError when the include graph
// revisits a path on the current resolution stack, and with
// MissingIncludeError when an include target cannot be located.
func (r *Resolver) Load(ctx context.Context, p string) (*Document, error) {
	return r.load(ctx, path.Clean(p), Pos{}, nil)
}

func (r *Resolver) load(ctx context.Context, p string, at Pos, stack []string) (*Document, error) {
	logger := ctxlog.FromContext(ctx)

	if slices.Contains(stack, p) {
		return nil, &CircularIncludeError{Pos: at, Path: p, Stack: append(slices.Clone(stack), p)}
	}

	if doc, ok := r.cache.Get(p); ok {
		logger.Debug("document served from cache", "path", p)
		return doc, nil
	}

	src, err := r.loader.Load(p)
	if err != nil {
		return nil, &MissingIncludeError{Pos: at, Path: p, Err: err}
	}

	doc, err := Parse(p, src)
	if err != nil {
		return nil, err
	}
	logger.Debug("document parsed", "path", p,
		"sections", len(doc.Sections), "includes", len(doc.Includes))

	stack = append(stack, p)
	for _, inc := range doc.Includes {
		target := r.resolveTarget(p, inc.Path)
		sub, err := r.load(ctx, target, inc.Pos, stack)
		if err != nil {
			return nil, err
		}
		inc.Doc = sub
	}

	// Only fully resolved documents are cached, so a cached hit can never
	// mask an include cycle.
	r.cache.Set(p, doc)
	return doc, nil
}

// resolveTarget resolves an include path. Paths are tried relative to the
// including file's directory first, then relative to the loader root.
func (r *Resolver) resolveTarget(from, ref string) string {
	relative := path.Join(path.Dir(from), ref)
	if _, err := r.loader.Load(relative); err == nil {
		return relative
	}
	return path.Clean(ref)
}
