package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"path"
	"strings"

	ferrors "github.com/appneta/tbonebuild/internal/foundation/errors"
)

// Separator joins adjacent modules.
const Separator = "\n"

// Document is the concatenated pre-optimization source.
type Document struct {
	Modules []string
	Text    string
}

// Digest is the hex sha256 of the document text.
func (d Document) Digest() string {
	sum := sha256.Sum256([]byte(d.Text))
	return hex.EncodeToString(sum[:])
}

// ModulePath maps a module identifier to its slash-separated path under sourceDir.
func ModulePath(sourceDir, name string) string {
	return path.Join(sourceDir, name+".js")
}

// Assemble reads every module from fsys in order and joins them with exactly
// one newline. The first unreadable module aborts assembly.
func Assemble(fsys fs.FS, sourceDir string, names []string) (Document, error) {
	parts := make([]string, 0, len(names))
	for _, name := range names {
		p := ModulePath(sourceDir, name)
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return Document{}, ferrors.NotFoundError("module source unreadable").WithCause(err).
				WithContext("module", name).
				WithContext("path", p).
				Build()
		}
		parts = append(parts, string(data))
	}
	return Document{
		Modules: append([]string(nil), names...),
		Text:    strings.Join(parts, Separator),
	}, nil
}
