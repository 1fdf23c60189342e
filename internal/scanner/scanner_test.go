package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestListCurrentFilesSortedAndFiltered(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "b.txt"), "two")
	mustWrite(t, filepath.Join(root, "a.txt"), "one")
	mustWrite(t, filepath.Join(root, "sub", "c.md"), "three")
	mustWrite(t, filepath.Join(root, "node_modules", "dep.js"), "skipped")
	mustWrite(t, filepath.Join(root, ".hidden", "d.txt"), "skipped")
	mustWrite(t, filepath.Join(root, "clip.mp4"), "skipped")

	s := New(Options{})
	stats, err := s.ListCurrentFiles(context.Background(), []string{root})
	require.NoError(t, err)

	paths := make([]string, len(stats))
	for i, st := range stats {
		paths[i] = st.Path
	}
	assert.Equal(t, []string{
		filepath.Join(root, "a.txt"),
		filepath.Join(root, "b.txt"),
		filepath.Join(root, "sub", "c.md"),
	}, paths)
}

func TestListCurrentFilesMaxSize(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "small.txt"), "ok")
	mustWrite(t, filepath.Join(root, "large.txt"), string(make([]byte, 2048)))

	s := New(Options{MaxFileSize: 1024})
	stats, err := s.ListCurrentFiles(context.Background(), []string{root})
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, filepath.Join(root, "small.txt"), stats[0].Path)
}

func TestListCurrentFilesCustomExcludes(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "keep", "a.txt"), "keep")
	mustWrite(t, filepath.Join(root, "drafts", "b.txt"), "skip")

	s := New(Options{ExcludeDirs: []string{"drafts"}})
	stats, err := s.ListCurrentFiles(context.Background(), []string{root})
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Contains(t, stats[0].Path, "keep")
}

func TestListCurrentFilesDeduplicatesOverlappingRoots(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "a.txt"), "one")

	s := New(Options{})
	stats, err := s.ListCurrentFiles(context.Background(), []string{root, root})
	require.NoError(t, err)
	assert.Len(t, stats, 1)
}

func TestListCurrentFilesCancellation(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "a.txt"), "one")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(Options{})
	_, err := s.ListCurrentFiles(ctx, []string{root})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWatcherTriggersAfterDebounce(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "seed.txt"), "seed")

	s := New(Options{})
	w := NewWatcher(s, []string{root}, 50*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fired := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx, func() {
			select {
			case fired <- struct{}{}:
			default:
			}
		})
	}()

	// Give the watcher a moment to register, then touch a file.
	time.Sleep(100 * time.Millisecond)
	mustWrite(t, filepath.Join(root, "new.txt"), "content")

	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not fire after file change")
	}

	cancel()
	<-done
}
