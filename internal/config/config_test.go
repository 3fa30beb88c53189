package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "github.com/appneta/tbonebuild/internal/foundation/errors"
)

func envMap(kv map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := kv[key]
		return v, ok
	}
}

func TestResolve_Defaults(t *testing.T) {
	b, err := Resolve("/proj", DefaultProject(), envMap(nil))
	require.NoError(t, err)

	assert.Equal(t, "ADVANCED_OPTIMIZATIONS", b.OptimizationLevel)
	assert.False(t, b.Debug)
	assert.True(t, b.BackboneSupport)
	assert.Equal(t, OptimizerClosure, b.Optimizer)
	assert.True(t, b.WarningsFatal)
	assert.Zero(t, b.OptimizerTimeout)
	assert.Equal(t, "java", b.JavaBin)

	assert.Equal(t, "release", b.Mode())
	assert.Equal(t, ".min", b.MinSuffix())
	assert.Equal(t, filepath.Join("build", "tbone.release.js"), b.IntermediatePath())
	assert.Equal(t, "tbone.min.js.map", b.SourceMapName())
	assert.Equal(t, filepath.Join("build", "tbone.min.js.map"), b.SourceMapPath())
	assert.Equal(t, filepath.Join("tools", "compiler.jar"), b.CompilerJarPath())
}

func TestResolve_DebugIsPresenceBased(t *testing.T) {
	cases := []struct {
		name  string
		env   map[string]string
		debug bool
	}{
		{"unset", nil, false},
		{"empty", map[string]string{EnvDebug: ""}, false},
		{"one", map[string]string{EnvDebug: "1"}, true},
		{"literal false", map[string]string{EnvDebug: "false"}, true},
		{"zero", map[string]string{EnvDebug: "0"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := Resolve("", DefaultProject(), envMap(tc.env))
			require.NoError(t, err)
			assert.Equal(t, tc.debug, b.Debug)
		})
	}
}

func TestResolve_DebugNaming(t *testing.T) {
	b, err := Resolve("", DefaultProject(), envMap(map[string]string{EnvDebug: "yes"}))
	require.NoError(t, err)

	assert.Equal(t, "debug", b.Mode())
	assert.Equal(t, "", b.MinSuffix())
	assert.Equal(t, filepath.Join("build", "tbone.debug.js"), b.IntermediatePath())
	assert.Equal(t, "tbone.js.map", b.SourceMapName())
}

func TestResolve_BackboneSupport(t *testing.T) {
	cases := map[string]bool{
		"":      false,
		"0":     false,
		"false": false,
		"1":     true,
		"true":  true,
		"on":    true,
	}
	for value, want := range cases {
		b, err := Resolve("", DefaultProject(), envMap(map[string]string{EnvBackboneSupport: value}))
		require.NoError(t, err)
		assert.Equal(t, want, b.BackboneSupport, "BACKBONE_SUPPORT=%q", value)
	}
}

func TestResolve_PassesOptimizationLevelVerbatim(t *testing.T) {
	b, err := Resolve("", DefaultProject(), envMap(map[string]string{EnvOptimizationLevel: "not-a-real-level"}))
	require.NoError(t, err)
	assert.Equal(t, "not-a-real-level", b.OptimizationLevel)
}

func TestResolve_Extended(t *testing.T) {
	b, err := Resolve("", DefaultProject(), envMap(map[string]string{
		EnvOptimizer:        "ESBuild",
		EnvOptimizerTimeout: "90s",
		EnvWarningsFatal:    "false",
		EnvJava:             "/opt/jdk/bin/java",
		EnvCompilerURL:      "https://mirror.example/compiler.tar.gz",
		EnvNATSURL:          "nats://localhost:4222",
	}))
	require.NoError(t, err)

	assert.Equal(t, OptimizerEsbuild, b.Optimizer)
	assert.Equal(t, 90*time.Second, b.OptimizerTimeout)
	assert.False(t, b.WarningsFatal)
	assert.Equal(t, "/opt/jdk/bin/java", b.JavaBin)
	assert.Equal(t, "https://mirror.example/compiler.tar.gz", b.Project.Compiler.URL)
	assert.Equal(t, "nats://localhost:4222", b.NATSURL)
}

func TestResolve_InvalidValues(t *testing.T) {
	for key, value := range map[string]string{
		EnvOptimizer:        "uglify",
		EnvOptimizerTimeout: "soon",
		EnvWarningsFatal:    "maybe",
	} {
		_, err := Resolve("", DefaultProject(), envMap(map[string]string{key: value}))
		require.Error(t, err, key)
		assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig), key)
	}
}

func TestLoad_ReadsProjectAndEnvFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ProjectFileName), []byte("name: mylib\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte("TBONE_TEST_LOAD_LEVEL=SIMPLE_OPTIMIZATIONS\n"), 0o600))
	t.Setenv("TBONE_TEST_LOAD_LEVEL", "")
	require.NoError(t, os.Unsetenv("TBONE_TEST_LOAD_LEVEL"))

	b, err := Load(root)
	require.NoError(t, err)

	assert.Equal(t, root, b.Root)
	assert.Equal(t, "mylib", b.Project.Name)
	assert.Equal(t, "SIMPLE_OPTIMIZATIONS", os.Getenv("TBONE_TEST_LOAD_LEVEL"))
	assert.Equal(t, filepath.Join(root, "build", "x.js"), b.Abs(filepath.Join("build", "x.js")))
}

func TestLoad_InvalidProjectFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ProjectFileName), []byte("modules: [{name: a, when: nightly}]\n"), 0o600))

	_, err := Load(root)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}
