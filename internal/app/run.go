package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/atrettin/pisa/internal/cfg"
	"github.com/atrettin/pisa/internal/ctxlog"
	"github.com/atrettin/pisa/internal/fsutil"
	"github.com/atrettin/pisa/internal/resolver"
)

// Run resolves every pipeline configuration named by the app config and
// writes the rendered tables to the output writer.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	roots, err := a.findRoots()
	if err != nil {
		return err
	}
	a.logger.Debug("pipeline configs located", "count", len(roots))

	for _, root := range roots {
		if len(roots) > 1 {
			ok, err := isPipelineRoot(root)
			if err != nil {
				return err
			}
			if !ok {
				a.logger.Debug("skipping non-pipeline config", "path", root)
				continue
			}
		}

		// Include paths are interpreted relative to the root file's
		// directory, so the loader is scoped there.
		dir := filepath.Dir(root)
		loader := cfg.NewFSLoader(os.DirFS(dir))
		r := resolver.New(loader, resolver.Options{Selections: a.config.Selections})

		res, err := r.Resolve(ctx, filepath.Base(root))
		if err != nil {
			return fmt.Errorf("resolving %s: %w", root, err)
		}

		if a.config.Format == "json" {
			err = renderJSON(a.outW, root, res)
		} else {
			err = renderText(a.outW, root, res)
		}
		if err != nil {
			return fmt.Errorf("rendering %s: %w", root, err)
		}
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}

// isPipelineRoot reports whether the file defines a [pipeline] section of
// its own. Directory scans pick up included fragments too, which are only
// resolved through the documents that mount them.
func isPipelineRoot(path string) (bool, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", path, err)
	}
	doc, err := cfg.Parse(path, src)
	if err != nil {
		return false, err
	}
	_, ok := doc.Section("pipeline")
	return ok, nil
}

// findRoots expands the configured path into the list of pipeline config
// files to resolve.
func (a *App) findRoots() ([]string, error) {
	info, err := os.Stat(a.config.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("config path: %w", err)
	}
	if !info.IsDir() {
		return []string{a.config.ConfigPath}, nil
	}

	roots, err := fsutil.FindFilesByExtension(a.config.ConfigPath, ".cfg")
	if err != nil {
		return nil, fmt.Errorf("scanning config directory: %w", err)
	}
	if len(roots) == 0 {
		return nil, fmt.Errorf("no .cfg files found under %s", a.config.ConfigPath)
	}
	return roots, nil
}
