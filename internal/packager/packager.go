// Package packager wraps optimized code into the final artifact and writes it
// to its destination.
package packager

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"

	ferrors "github.com/appneta/tbonebuild/internal/foundation/errors"
	"github.com/appneta/tbonebuild/internal/logfields"
)

// GzipSuffix is appended to the output path for the compressed companion.
const GzipSuffix = ".gz"

// Wrap returns the artifact: the source-map directive line followed by code
// inside an immediately-invoked function expression.
func Wrap(sourceMapName, code string) []byte {
	var b bytes.Buffer
	b.Grow(len(code) + len(sourceMapName) + 48)
	b.WriteString("//@ sourceMappingURL=")
	b.WriteString(sourceMapName)
	b.WriteString("\n(function(){")
	b.WriteString(code)
	b.WriteString("}());")
	return b.Bytes()
}

// Destination is where the artifact goes: a named file, or the standard
// output stream when Path is empty.
type Destination struct {
	Path   string
	Stdout io.Writer
	// Gzip also writes Path+GzipSuffix. Ignored for stdout.
	Gzip bool
}

// String names the destination for logs.
func (d Destination) String() string {
	if d.Path == "" {
		return "<stdout>"
	}
	return d.Path
}

// Write emits data. A named file is replaced atomically and closed; the
// stdout writer is never closed.
func (d Destination) Write(data []byte) error {
	if d.Path == "" {
		out := d.Stdout
		if out == nil {
			out = os.Stdout
		}
		if d.Gzip {
			slog.Warn("Ignoring gzip companion for stdout output")
		}
		if _, err := out.Write(data); err != nil {
			return ferrors.FileSystemError("write artifact to stdout").WithCause(err).Build()
		}
		return nil
	}

	if !d.Gzip {
		if err := WriteFileAtomic(d.Path, data); err != nil {
			return writeError(err, d.Path)
		}
		slog.Info("Wrote artifact", logfields.Path(d.Path), logfields.Bytes(len(data)))
		return nil
	}
	return d.writeWithCompanion(data)
}

// writeWithCompanion stages the artifact and its gzip companion as temp files
// and renames the artifact last, so a companion failure leaves the previous
// artifact in place.
func (d Destination) writeWithCompanion(data []byte) error {
	gzPath := d.Path + GzipSuffix
	gz, err := Compress(data)
	if err != nil {
		return writeError(err, gzPath)
	}

	tmpArtifact, err := writeTemp(d.Path, data)
	if err != nil {
		return writeError(err, d.Path)
	}
	tmpGz, err := writeTemp(gzPath, gz)
	if err != nil {
		_ = os.Remove(tmpArtifact)
		return writeError(err, gzPath)
	}

	if err := os.Rename(tmpGz, gzPath); err != nil {
		_ = os.Remove(tmpGz)
		_ = os.Remove(tmpArtifact)
		return writeError(fmt.Errorf("atomic rename: %w", err), gzPath)
	}
	if err := os.Rename(tmpArtifact, d.Path); err != nil {
		_ = os.Remove(tmpArtifact)
		return writeError(fmt.Errorf("atomic rename: %w", err), d.Path)
	}
	slog.Info("Wrote artifact", logfields.Path(d.Path), logfields.Bytes(len(data)))
	slog.Info("Wrote gzip companion", logfields.Path(gzPath), logfields.Bytes(len(gz)))
	return nil
}

func writeError(err error, path string) error {
	return ferrors.FileSystemError("write artifact").WithCause(err).
		WithContext("path", path).
		Build()
}

// Compress gzips data at best compression.
func Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFileAtomic writes data to a temporary file next to path and renames it
// into place, so readers never observe a partial file.
func WriteFileAtomic(path string, data []byte) error {
	tmpName, err := writeTemp(path, data)
	if err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}

// writeTemp writes data to a 0644 temp file in path's directory and returns its name.
func writeTemp(path string, data []byte) (string, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("chmod temp file: %w", err)
	}
	return tmpName, nil
}
