package toolchain

import (
	"archive/tar"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "github.com/appneta/tbonebuild/internal/foundation/errors"
)

func tarGz(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, body := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0o644,
			Size:     int64(len(body)),
			Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func serve(t *testing.T, status int, body []byte) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newBootstrapper(root, url string) *Bootstrapper {
	return &Bootstrapper{
		BuildDir: filepath.Join(root, "build"),
		ToolsDir: filepath.Join(root, "tools"),
		Artifact: "compiler.jar",
		URL:      url,
	}
}

func TestEnsure_FetchesUnpacksAndCleansUp(t *testing.T) {
	root := t.TempDir()
	archive := tarGz(t, map[string]string{"compiler.jar": "JAR", "README": "readme"})
	srv, hits := serve(t, http.StatusOK, archive)

	b := newBootstrapper(root, srv.URL+"/files/compiler-20120917.tar.gz")
	require.NoError(t, b.Ensure(context.Background()))

	data, err := os.ReadFile(filepath.Join(root, "tools", "compiler.jar"))
	require.NoError(t, err)
	assert.Equal(t, "JAR", string(data))
	assert.FileExists(t, filepath.Join(root, "tools", "README"))
	assert.NoFileExists(t, filepath.Join(root, "tools", "compiler-20120917.tar.gz"))
	assert.DirExists(t, filepath.Join(root, "build"))
	assert.EqualValues(t, 1, hits.Load())

	// Second run sees the artifact and skips the fetch.
	require.NoError(t, b.Ensure(context.Background()))
	assert.EqualValues(t, 1, hits.Load())
}

func TestEnsure_NoopWhenPresent(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "tools"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "tools", "compiler.jar"), []byte("x"), 0o644))

	b := newBootstrapper(root, "http://127.0.0.1:0/unreachable.tar.gz")
	require.NoError(t, b.Ensure(context.Background()))
	assert.DirExists(t, filepath.Join(root, "build"))
}

func TestEnsure_HTTPFailureIsFatal(t *testing.T) {
	root := t.TempDir()
	srv, _ := serve(t, http.StatusNotFound, []byte("gone"))

	err := newBootstrapper(root, srv.URL+"/compiler.tar.gz").Ensure(context.Background())
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNetwork))
	assert.NoFileExists(t, filepath.Join(root, "tools", "compiler.jar"))
	assert.NoFileExists(t, filepath.Join(root, "tools", "compiler.tar.gz"))
}

func TestEnsure_CorruptArchive(t *testing.T) {
	root := t.TempDir()
	srv, _ := serve(t, http.StatusOK, []byte("not a tarball"))

	err := newBootstrapper(root, srv.URL+"/compiler.tar.gz").Ensure(context.Background())
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryFileSystem))
	assert.NoFileExists(t, filepath.Join(root, "tools", "compiler.tar.gz"))
}

func TestEnsure_ArchiveWithoutArtifact(t *testing.T) {
	root := t.TempDir()
	srv, _ := serve(t, http.StatusOK, tarGz(t, map[string]string{"COPYING": "license"}))

	err := newBootstrapper(root, srv.URL+"/compiler.tar.gz").Ensure(context.Background())
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNotFound))
}

func TestEnsure_RejectsEscapingEntries(t *testing.T) {
	root := t.TempDir()
	srv, _ := serve(t, http.StatusOK, tarGz(t, map[string]string{"../evil.jar": "x"}))

	err := newBootstrapper(root, srv.URL+"/compiler.tar.gz").Ensure(context.Background())
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(root, "evil.jar"))
}

func TestEnsure_CanceledContext(t *testing.T) {
	root := t.TempDir()
	srv, _ := serve(t, http.StatusOK, tarGz(t, map[string]string{"compiler.jar": "JAR"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := newBootstrapper(root, srv.URL+"/compiler.tar.gz").Ensure(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestArchiveName(t *testing.T) {
	assert.Equal(t, "compiler-20120917.tar.gz", archiveName("http://closure-compiler.googlecode.com/files/compiler-20120917.tar.gz"))
	assert.Equal(t, "optimizer.tar.gz", archiveName("http://example.com/"))
}
