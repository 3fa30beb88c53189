package rewrite

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "github.com/appneta/tbonebuild/internal/foundation/errors"
)

func TestDebugHook_Strings(t *testing.T) {
	h := DebugHook{Flag: "TBONE_DEBUG"}
	assert.Equal(t, "var TBONE_DEBUG = root['TBONE_DEBUG'] !== false;", h.Snippet())
	assert.Equal(t, "var TBONE_DEBUG = false;", h.Replacement())
}

func TestApply_ReleaseReplacesSnippet(t *testing.T) {
	h := DebugHook{Flag: "DEBUG"}
	doc := "(function(root){\nvar DEBUG = root['DEBUG'] !== false;\nif (DEBUG) {}\n}(this));"

	out, err := h.Apply(doc, false)
	require.NoError(t, err)

	assert.Contains(t, out, "var DEBUG = false;")
	assert.Equal(t, 1, strings.Count(out, "var DEBUG = false;"))
	assert.NotContains(t, out, "var DEBUG = root['DEBUG'] !== false;")
	assert.Equal(t, "(function(root){\nvar DEBUG = false;\nif (DEBUG) {}\n}(this));", out)
}

func TestApply_DebugLeavesDocumentUntouched(t *testing.T) {
	h := DebugHook{Flag: "TBONE_DEBUG"}
	doc := "a\nvar TBONE_DEBUG = root['TBONE_DEBUG'] !== false;\nb"

	out, err := h.Apply(doc, true)
	require.NoError(t, err)
	assert.Equal(t, doc, out)

	// Debug mode does not check the hook at all.
	out, err = h.Apply("no hook here", true)
	require.NoError(t, err)
	assert.Equal(t, "no hook here", out)
}

func TestApply_MatchCountIntegrity(t *testing.T) {
	h := DebugHook{Flag: "TBONE_DEBUG"}
	snippet := h.Snippet()

	cases := map[string]struct {
		doc   string
		count int
	}{
		"missing":   {"var TBONE_DEBUG = !!root.TBONE_DEBUG;", 0},
		"duplicate": {snippet + "\n" + snippet, 2},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			out, err := h.Apply(tc.doc, false)
			require.Error(t, err)
			assert.Empty(t, out)
			assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))

			ce, ok := ferrors.AsClassified(err)
			require.True(t, ok)
			matches, _ := ce.Context().Get("matches")
			assert.Equal(t, tc.count, matches)
		})
	}
}
