package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appneta/tbonebuild/internal/config"
	ferrors "github.com/appneta/tbonebuild/internal/foundation/errors"
)

func sources(files map[string]string) fstest.MapFS {
	fsys := fstest.MapFS{}
	for name, body := range files {
		fsys[ModulePath("src", name)] = &fstest.MapFile{Data: []byte(body)}
	}
	return fsys
}

func TestAssemble_OrderAndSeparator(t *testing.T) {
	fsys := sources(map[string]string{"a": "X;", "b": "Y;", "c": "Z;", "opt": "OPT;"})
	m := Manifest{
		{Name: "a", When: Always},
		{Name: "b", When: Always},
		{Name: "opt", When: WhenBackbone},
		{Name: "c", When: Always},
	}

	doc, err := Assemble(fsys, "src", m.Resolve(config.Build{BackboneSupport: false}))
	require.NoError(t, err)

	assert.Equal(t, "X;\nY;\nZ;", doc.Text)
	assert.Equal(t, []string{"a", "b", "c"}, doc.Modules)
}

func TestAssemble_OptionalModulePlacement(t *testing.T) {
	fsys := sources(map[string]string{"a": "X;", "opt": "OPT;", "c": "Z;"})
	m := Manifest{
		{Name: "a", When: Always},
		{Name: "opt", When: WhenBackbone},
		{Name: "c", When: Always},
	}

	with, err := Assemble(fsys, "src", m.Resolve(config.Build{BackboneSupport: true}))
	require.NoError(t, err)
	assert.Equal(t, "X;\nOPT;\nZ;", with.Text)
	assert.Equal(t, 1, strings.Count(with.Text, "OPT;"))

	without, err := Assemble(fsys, "src", m.Resolve(config.Build{BackboneSupport: false}))
	require.NoError(t, err)
	assert.NotContains(t, without.Text, "OPT;")
}

func TestAssemble_Idempotent(t *testing.T) {
	fsys := sources(map[string]string{"a": "one\n", "b": "two"})
	names := []string{"a", "b", "a"}

	first, err := Assemble(fsys, "src", names)
	require.NoError(t, err)
	second, err := Assemble(fsys, "src", names)
	require.NoError(t, err)

	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, first.Digest(), second.Digest())
	assert.Equal(t, "one\n\ntwo\none\n", first.Text, "repeated modules are kept, not deduplicated")
}

func TestAssemble_MissingModuleAborts(t *testing.T) {
	fsys := sources(map[string]string{"a": "X;"})

	doc, err := Assemble(fsys, "src", []string{"a", "missing", "a"})
	require.Error(t, err)
	assert.Empty(t, doc.Text)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNotFound))

	ce, ok := ferrors.AsClassified(err)
	require.True(t, ok)
	module, _ := ce.Context().Get("module")
	assert.Equal(t, "missing", module)
}

func TestAssemble_EmptyManifest(t *testing.T) {
	doc, err := Assemble(fstest.MapFS{}, "src", nil)
	require.NoError(t, err)
	assert.Equal(t, "", doc.Text)
}

func TestAssemble_FromDisk(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src", "scheduler"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "init.js"), []byte("var a;"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "scheduler", "timer.js"), []byte("var b;"), 0o600))

	doc, err := Assemble(os.DirFS(root), "src", []string{"init", "scheduler/timer"})
	require.NoError(t, err)
	assert.Equal(t, "var a;\nvar b;", doc.Text)
}

func TestFromProject_DefaultManifest(t *testing.T) {
	m := FromProject(config.DefaultProject())
	require.Len(t, m, 25)

	withBackbone := m.Resolve(config.Build{BackboneSupport: true})
	withoutBackbone := m.Resolve(config.Build{BackboneSupport: false})

	assert.Len(t, withBackbone, 25)
	assert.Len(t, withoutBackbone, 24)
	assert.Equal(t, "ext/bbsupport", withBackbone[23])
	assert.Equal(t, "snippet/footer", withoutBackbone[23])
	assert.NotContains(t, withoutBackbone, "ext/bbsupport")
}

func TestResolve_NilConditionIncludes(t *testing.T) {
	m := Manifest{{Name: "a"}}
	assert.Equal(t, []string{"a"}, m.Resolve(config.Build{}))
}
