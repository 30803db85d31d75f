// Package resolver turns a root configuration file into a fully resolved
// pipeline: includes mounted, references substituted in dependency order,
// hierarchy selections applied, and every parameter and option flattened
// into a typed table. Resolution is a pure function of the input text and
// the include loader; it aborts on the first error and never returns a
// partial result.
package resolver

import (
	"context"
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/atrettin/pisa/internal/cfg"
	"github.com/atrettin/pisa/internal/ctxlog"
	"github.com/atrettin/pisa/internal/param"
	"github.com/atrettin/pisa/internal/pipeline"
)

// Options tune a resolution run.
type Options struct {
	// Selections overrides the document's own `param_selections`.
	Selections []string

	// KnownSelectors is the vocabulary of hierarchy tags recognized in
	// `param.<selector>.<name>` keys even when not currently selected.
	// Defaults to the two mass orderings, nh and ih.
	KnownSelectors []string
}

// Resolver loads and resolves pipeline configurations. Safe to share across
// concurrent loads; parsed include files are cached internally.
type Resolver struct {
	loader cfg.Loader
	docs   *cfg.Resolver
	opts   Options
}

// New creates a Resolver reading from the given loader.
func New(loader cfg.Loader, opts Options) *Resolver {
	if len(opts.KnownSelectors) == 0 {
		opts.KnownSelectors = []string{"nh", "ih"}
	}
	return &Resolver{
		loader: loader,
		docs:   cfg.NewResolver(loader),
		opts:   opts,
	}
}

// TableEntry is one row of the flattened output table: either a parameter
// or a plain option value, never both.
type TableEntry struct {
	Name  string
	Param *param.Param
	Value cty.Value
}

// Resolved is the complete result of a resolution run.
type Resolved struct {
	Pipeline *pipeline.Pipeline
	Table    []TableEntry
}

// Resolve parses the document at rootPath, resolves its include and
// reference graphs, and assembles the pipeline and its flattened parameter
// table.
func (r *Resolver) Resolve(ctx context.Context, rootPath string) (*Resolved, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("resolution started", "path", rootPath)

	doc, err := r.docs.Load(ctx, rootPath)
	if err != nil {
		return nil, err
	}

	entries := collectEntries(doc, "", nil)
	sub, err := substitute(ctx, entries)
	if err != nil {
		return nil, err
	}

	resolved, err := r.assemble(ctx, doc, sub)
	if err != nil {
		return nil, err
	}
	logger.Info("configuration resolved",
		"path", rootPath,
		"stages", len(resolved.Pipeline.Stages),
		"table_entries", len(resolved.Table))
	return resolved, nil
}

// entryErr attaches source position context to an assembly error.
func entryErr(e *cfg.Entry, err error) error {
	return fmt.Errorf("%s: key %q: %w", e.Pos, e.Key, err)
}
