package source

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"github.com/codex-k8s/chartctl/internal/document"
	"github.com/codex-k8s/chartctl/internal/logging"
)

// NewFetcher constructs the default fetcher dispatching on source type.
func NewFetcher(logger *slog.Logger) Fetcher {
	return &fetcher{logger: logger}
}

type fetcher struct {
	logger *slog.Logger
}

// Fetch dispatches to the per-type retrieval and serializes the subpath tree.
func (f *fetcher) Fetch(ctx context.Context, src document.Source) (Rendered, error) {
	switch src.Type {
	case document.SourceLocal:
		return f.fetchLocal(src)
	case document.SourceGit:
		return f.fetchGit(ctx, src)
	case document.SourceTar:
		return f.fetchTar(ctx, src)
	default:
		return Rendered{}, fmt.Errorf("%w: unknown source type %q", ErrSourceUnreachable, src.Type)
	}
}

// fetchLocal serializes a chart tree from a local path.
func (f *fetcher) fetchLocal(src document.Source) (Rendered, error) {
	if _, err := os.Stat(src.Location); err != nil {
		return Rendered{}, fmt.Errorf("%w: local path %q: %v", ErrSourceUnreachable, src.Location, err)
	}
	return renderTree(src.Location, src.Subpath)
}

// fetchGit clones the repository at the requested reference into a
// temporary directory and serializes the subpath tree. The clone stays on
// disk until the returned Rendered is discarded.
func (f *fetcher) fetchGit(ctx context.Context, src document.Source) (Rendered, error) {
	tmp, err := os.MkdirTemp("", "chartctl-git-")
	if err != nil {
		return Rendered{}, fmt.Errorf("create temp dir: %w", err)
	}

	args := []string{"clone", "--depth", "1", "--branch", src.Reference, src.Location, tmp}
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Stdout = logging.NewWriter(f.logger)
	cmd.Stderr = logging.NewWriter(f.logger)
	if err := cmd.Run(); err != nil {
		_ = os.RemoveAll(tmp)
		return Rendered{}, fmt.Errorf("%w: git clone %q at %q: %v", ErrSourceUnreachable, src.Location, src.Reference, err)
	}

	rendered, err := renderTree(tmp, src.Subpath)
	if err != nil {
		_ = os.RemoveAll(tmp)
		return Rendered{}, err
	}
	rendered.cleanup = func() error { return os.RemoveAll(tmp) }
	return rendered, nil
}

// renderTree serializes all regular files under root/subpath into a single
// deterministic byte stream: relative paths in sorted order, each followed
// by its content. Equal trees always serialize to equal bytes, which the
// fingerprint contract relies on.
func renderTree(root, subpath string) (Rendered, error) {
	base := filepath.Join(root, filepath.FromSlash(subpath))
	info, err := os.Stat(base)
	if err != nil {
		return Rendered{}, fmt.Errorf("%w: subpath %q: %v", ErrSubpathNotFound, subpath, err)
	}

	if !info.IsDir() {
		content, err := os.ReadFile(base)
		if err != nil {
			return Rendered{}, fmt.Errorf("read chart file %q: %w", base, err)
		}
		return Rendered{Content: content, Path: base}, nil
	}

	var paths []string
	err = filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return Rendered{}, fmt.Errorf("walk chart tree %q: %w", base, err)
	}
	sort.Strings(paths)

	var buf bytes.Buffer
	for _, path := range paths {
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return Rendered{}, fmt.Errorf("relativize %q: %w", path, err)
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return Rendered{}, fmt.Errorf("read chart file %q: %w", path, err)
		}
		fmt.Fprintf(&buf, "--- %s\n", filepath.ToSlash(rel))
		buf.Write(content)
		buf.WriteByte('\n')
	}
	return Rendered{Content: buf.Bytes(), Path: base}, nil
}
