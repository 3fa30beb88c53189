// Package rewrite bakes the debug/release mode into the assembled document.
package rewrite

import (
	"fmt"
	"strings"

	ferrors "github.com/appneta/tbonebuild/internal/foundation/errors"
)

// DebugHook is the designated configuration point in the library source: a
// single statement initializing the debug flag from the host global.
type DebugHook struct {
	Flag string
}

// Snippet is the runtime initialization statement the library ships with.
func (h DebugHook) Snippet() string {
	return fmt.Sprintf("var %s = root['%s'] !== false;", h.Flag, h.Flag)
}

// Replacement is the hard-coded release form.
func (h DebugHook) Replacement() string {
	return fmt.Sprintf("var %s = false;", h.Flag)
}

// Apply returns text with the debug flag baked for the given mode. Debug builds
// are returned unchanged. Release builds require exactly one occurrence of the
// hook snippet; any other count is a fatal integrity error so a drifted source
// never ships with the flag silently left on.
func (h DebugHook) Apply(text string, debug bool) (string, error) {
	if debug {
		return text, nil
	}
	snippet := h.Snippet()
	if n := strings.Count(text, snippet); n != 1 {
		return "", ferrors.ValidationError("debug flag hook must occur exactly once").
			WithContext("flag", h.Flag).
			WithContext("snippet", snippet).
			WithContext("matches", n).
			Build()
	}
	return strings.Replace(text, snippet, h.Replacement(), 1), nil
}
