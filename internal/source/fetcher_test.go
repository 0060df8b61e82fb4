package source_test

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codex-k8s/chartctl/internal/document"
	"github.com/codex-k8s/chartctl/internal/source"
)

func newTestFetcher() source.Fetcher {
	return source.NewFetcher(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// writeChartTree lays out a small chart directory under dir.
func writeChartTree(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "templates"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Chart.yaml"), []byte("name: blog\nversion: 0.1.0\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "values.yaml"), []byte("replicas: 1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "templates", "deploy.yaml"), []byte("kind: Deployment\n"), 0o644))
}

func TestFetchLocal(t *testing.T) {
	dir := t.TempDir()
	writeChartTree(t, dir)

	rendered, err := newTestFetcher().Fetch(t.Context(), document.Source{
		Type: document.SourceLocal, Location: dir, Subpath: ".",
	})
	require.NoError(t, err)
	defer func() { _ = rendered.Discard() }()

	got := string(rendered.Content)
	assert.Contains(t, got, "--- Chart.yaml\n")
	assert.Contains(t, got, "--- templates/deploy.yaml\n")
	assert.Contains(t, got, "kind: Deployment")
	assert.Equal(t, filepath.Clean(dir), filepath.Clean(rendered.Path))
}

func TestFetchLocalDeterministic(t *testing.T) {
	dir := t.TempDir()
	writeChartTree(t, dir)
	f := newTestFetcher()
	src := document.Source{Type: document.SourceLocal, Location: dir, Subpath: "."}

	a, err := f.Fetch(t.Context(), src)
	require.NoError(t, err)
	b, err := f.Fetch(t.Context(), src)
	require.NoError(t, err)
	assert.Equal(t, a.Content, b.Content)
}

func TestFetchLocalSubpath(t *testing.T) {
	dir := t.TempDir()
	writeChartTree(t, filepath.Join(dir, "charts", "blog"))
	f := newTestFetcher()

	rendered, err := f.Fetch(t.Context(), document.Source{
		Type: document.SourceLocal, Location: dir, Subpath: "charts/blog",
	})
	require.NoError(t, err)
	assert.Contains(t, string(rendered.Content), "--- Chart.yaml\n")

	_, err = f.Fetch(t.Context(), document.Source{
		Type: document.SourceLocal, Location: dir, Subpath: "charts/missing",
	})
	require.ErrorIs(t, err, source.ErrSubpathNotFound)
}

func TestFetchLocalMissingPath(t *testing.T) {
	_, err := newTestFetcher().Fetch(t.Context(), document.Source{
		Type: document.SourceLocal, Location: "/does/not/exist", Subpath: ".",
	})
	require.ErrorIs(t, err, source.ErrSourceUnreachable)
}

func TestFetchUnknownType(t *testing.T) {
	_, err := newTestFetcher().Fetch(t.Context(), document.Source{
		Type: "svn", Location: "svn://example.com/blog",
	})
	require.ErrorIs(t, err, source.ErrSourceUnreachable)
}

// tarball builds an in-memory tar archive, gzipped when compress is true.
func tarball(t *testing.T, compress bool, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	var w io.Writer = &buf
	var gz *gzip.Writer
	if compress {
		gz = gzip.NewWriter(&buf)
		w = gz
	}
	tw := tar.NewWriter(w)
	for name, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Typeflag: tar.TypeReg,
			Mode:     0o644,
			Size:     int64(len(content)),
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	if gz != nil {
		require.NoError(t, gz.Close())
	}
	return buf.Bytes()
}

func TestFetchTar(t *testing.T) {
	for _, compress := range []bool{false, true} {
		archive := tarball(t, compress, map[string]string{
			"blog/Chart.yaml":  "name: blog\n",
			"blog/values.yaml": "replicas: 1\n",
		})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write(archive)
		}))
		defer srv.Close()

		rendered, err := newTestFetcher().Fetch(t.Context(), document.Source{
			Type: document.SourceTar, Location: srv.URL, Subpath: "blog",
		})
		require.NoError(t, err)

		assert.Contains(t, string(rendered.Content), "--- Chart.yaml\n")
		assert.Contains(t, string(rendered.Content), "name: blog")

		// The extracted tree exists until discarded.
		_, err = os.Stat(rendered.Path)
		require.NoError(t, err)
		require.NoError(t, rendered.Discard())
		_, err = os.Stat(rendered.Path)
		assert.True(t, os.IsNotExist(err))
	}
}

func TestFetchTarHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestFetcher().Fetch(t.Context(), document.Source{
		Type: document.SourceTar, Location: srv.URL, Subpath: ".",
	})
	require.ErrorIs(t, err, source.ErrSourceUnreachable)
}

func TestFetchTarRejectsEscapingEntries(t *testing.T) {
	archive := tarball(t, false, map[string]string{
		"../escape.yaml": "oops\n",
	})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(archive)
	}))
	defer srv.Close()

	_, err := newTestFetcher().Fetch(t.Context(), document.Source{
		Type: document.SourceTar, Location: srv.URL, Subpath: ".",
	})
	require.ErrorIs(t, err, source.ErrSourceUnreachable)
}

func TestDiscardZeroRendered(t *testing.T) {
	var rendered source.Rendered
	assert.NoError(t, rendered.Discard())
}
