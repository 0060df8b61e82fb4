package source

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/codex-k8s/chartctl/internal/document"
)

// fetchTar downloads a chart archive over HTTP and serializes the subpath
// tree out of it. Both plain and gzip-compressed tarballs are accepted.
func (f *fetcher) fetchTar(ctx context.Context, src document.Source) (Rendered, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.Location, nil)
	if err != nil {
		return Rendered{}, fmt.Errorf("%w: bad archive URL %q: %v", ErrSourceUnreachable, src.Location, err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Rendered{}, fmt.Errorf("%w: fetch archive %q: %v", ErrSourceUnreachable, src.Location, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Rendered{}, fmt.Errorf("%w: fetch archive %q: status %s", ErrSourceUnreachable, src.Location, resp.Status)
	}

	tmp, err := os.MkdirTemp("", "chartctl-tar-")
	if err != nil {
		return Rendered{}, fmt.Errorf("create temp dir: %w", err)
	}

	if err := extractArchive(resp.Body, tmp); err != nil {
		_ = os.RemoveAll(tmp)
		return Rendered{}, fmt.Errorf("%w: extract archive %q: %v", ErrSourceUnreachable, src.Location, err)
	}

	rendered, err := renderTree(tmp, src.Subpath)
	if err != nil {
		_ = os.RemoveAll(tmp)
		return Rendered{}, err
	}
	rendered.cleanup = func() error { return os.RemoveAll(tmp) }
	return rendered, nil
}

// extractArchive unpacks a (possibly gzipped) tar stream into dest,
// rejecting entries that would escape the destination directory.
func extractArchive(r io.Reader, dest string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read archive: %w", err)
	}

	var tr *tar.Reader
	if len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b {
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("open gzip archive: %w", err)
		}
		defer func() { _ = gz.Close() }()
		tr = tar.NewReader(gz)
	} else {
		tr = tar.NewReader(bytes.NewReader(data))
	}

	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read archive entry: %w", err)
		}

		target := filepath.Join(dest, filepath.FromSlash(hdr.Name))
		if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry %q escapes extraction directory", hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create dir %q: %w", target, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create dir for %q: %w", target, err)
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
			if err != nil {
				return fmt.Errorf("create file %q: %w", target, err)
			}
			if _, err := io.Copy(out, tr); err != nil {
				_ = out.Close()
				return fmt.Errorf("write file %q: %w", target, err)
			}
			if err := out.Close(); err != nil {
				return fmt.Errorf("close file %q: %w", target, err)
			}
		}
	}
}
