package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncer_Coalesces(t *testing.T) {
	req, trigger, stop := newDebouncer(50 * time.Millisecond)
	defer stop()

	for range 5 {
		trigger()
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case <-req:
	case <-time.After(time.Second):
		t.Fatal("no rebuild request after debounce")
	}
	select {
	case <-req:
		t.Fatal("burst produced more than one request")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestDebouncer_StopCancelsPending(t *testing.T) {
	req, trigger, stop := newDebouncer(50 * time.Millisecond)
	trigger()
	stop()
	select {
	case <-req:
		t.Fatal("stopped debouncer fired")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestShouldIgnoreEvent(t *testing.T) {
	cases := map[string]bool{
		"src/init.js":       false,
		"src/.init.js.swp":  true,
		"src/init.js~":      true,
		"src/#init.js#":     true,
		"src/.DS_Store":     true,
		"src/Thumbs.db":     true,
		"src/model/core.js": false,
	}
	for name, want := range cases {
		assert.Equal(t, want, shouldIgnoreEvent(fsnotify.Event{Name: name, Op: fsnotify.Write}), name)
	}
	assert.True(t, shouldIgnoreEvent(fsnotify.Event{Name: "src/init.js", Op: fsnotify.Chmod}))
}

func TestWatcher_RebuildsOnChange(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "init.js"), []byte("a"), 0o644))

	var builds atomic.Int32
	w := &Watcher{
		Dirs:     []string{src},
		Debounce: 30 * time.Millisecond,
		Rebuild: func(context.Context) error {
			n := builds.Add(1)
			if n == 1 {
				return errors.New("first build fails; watching continues")
			}
			return nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return builds.Load() == 1 }, 2*time.Second, 10*time.Millisecond, "initial build")

	require.NoError(t, os.MkdirAll(filepath.Join(src, "model"), 0o755))
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(src, "model", "core.js"), []byte("b"), 0o644))

	require.Eventually(t, func() bool { return builds.Load() >= 2 }, 3*time.Second, 10*time.Millisecond, "rebuild after change")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestWatcher_MissingDir(t *testing.T) {
	w := &Watcher{Dirs: []string{filepath.Join(t.TempDir(), "nope")}, Rebuild: func(context.Context) error { return nil }}
	require.Error(t, w.Run(context.Background()))
}
