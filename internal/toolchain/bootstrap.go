// Package toolchain makes sure the external optimizer is available locally
// before a build starts.
package toolchain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"

	ferrors "github.com/appneta/tbonebuild/internal/foundation/errors"
	"github.com/appneta/tbonebuild/internal/logfields"
	"github.com/appneta/tbonebuild/internal/metrics"
)

// Bootstrapper creates the working directory layout and fetches the optimizer
// archive on first use.
type Bootstrapper struct {
	// BuildDir and ToolsDir are created if missing.
	BuildDir string
	ToolsDir string
	// Artifact is the file name expected in ToolsDir once bootstrapped.
	Artifact string
	// URL points at a gzip-compressed tarball containing Artifact.
	URL string

	Client *http.Client
	// Recorder counts download attempts; nil means no metrics.
	Recorder metrics.Recorder
}

// ArtifactPath is the absolute location of the optimizer artifact.
func (b *Bootstrapper) ArtifactPath() string {
	return filepath.Join(b.ToolsDir, b.Artifact)
}

// Ensure is idempotent: when the artifact is already present it only makes
// sure the directories exist. Any fetch or unpack failure is fatal.
func (b *Bootstrapper) Ensure(ctx context.Context) error {
	for _, dir := range []string{b.BuildDir, b.ToolsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return ferrors.FileSystemError("create directory").WithCause(err).
				WithContext("path", dir).
				Build()
		}
	}

	if _, err := os.Stat(b.ArtifactPath()); err == nil {
		slog.Debug("Optimizer already present", logfields.Path(b.ArtifactPath()))
		return nil
	}

	slog.Info("Fetching optimizer", logfields.URL(b.URL), logfields.Path(b.ToolsDir))
	archive, err := b.download(ctx)
	b.recorder().IncToolchainDownload(err == nil)
	if err != nil {
		return ferrors.NetworkError("fetch optimizer archive").WithCause(err).
			WithContext("url", b.URL).
			Build()
	}

	unpackErr := extractTarGz(archive, b.ToolsDir)
	if rmErr := os.Remove(archive); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		slog.Warn("Failed to remove optimizer archive", logfields.Path(archive), logfields.Error(rmErr))
	}
	if unpackErr != nil {
		return ferrors.FileSystemError("unpack optimizer archive").WithCause(unpackErr).
			WithContext("archive", archive).
			Build()
	}

	if _, err := os.Stat(b.ArtifactPath()); err != nil {
		return ferrors.NotFoundError("optimizer archive did not contain the expected artifact").
			WithContext("artifact", b.Artifact).
			WithContext("url", b.URL).
			Build()
	}
	slog.Info("Optimizer ready", logfields.Path(b.ArtifactPath()))
	return nil
}

func (b *Bootstrapper) recorder() metrics.Recorder {
	if b.Recorder == nil {
		return metrics.NoopRecorder{}
	}
	return b.Recorder
}

// download stores the archive under ToolsDir and returns its path.
func (b *Bootstrapper) download(ctx context.Context) (string, error) {
	client := b.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.URL, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected HTTP status %s", resp.Status)
	}

	dest := filepath.Join(b.ToolsDir, archiveName(b.URL))
	out, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	n, copyErr := io.Copy(out, resp.Body)
	closeErr := out.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(dest)
		return "", errors.Join(copyErr, closeErr)
	}
	slog.Debug("Downloaded optimizer archive", logfields.Path(dest), slog.Int64("bytes", n))
	return dest, nil
}

func archiveName(raw string) string {
	if u, err := url.Parse(raw); err == nil {
		if base := path.Base(u.Path); base != "" && base != "." && base != "/" {
			return base
		}
	}
	return "optimizer.tar.gz"
}
