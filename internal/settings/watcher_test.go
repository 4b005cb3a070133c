package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "thresholds.conf")
	require.NoError(t, os.WriteFile(path, []byte("elapsed_thresholds=10/20/30/30"), 0o644))

	s := New("")
	changed := make(chan string, 1)
	w := NewWatcher(path, s, func(raw string) {
		select {
		case changed <- raw:
		default:
		}
	})
	require.NoError(t, w.Start())
	defer w.Stop()

	assert.Equal(t, Defaults(), s.Load(), "the watcher never reads the file until a write event fires")

	require.NoError(t, os.WriteFile(path, []byte("elapsed_thresholds=10/20/30/30"), 0o644))

	select {
	case raw := <-changed:
		require.Equal(t, "elapsed_thresholds=10/20/30/30", raw)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for onChange callback")
	}
	require.Equal(t, uint64(10), s.Load().Elapsed[0])
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "thresholds.conf")
	require.NoError(t, os.WriteFile(path, []byte(""), 0o644))

	s := New("")
	w := NewWatcher(path, s, nil)
	require.NoError(t, w.Start())
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
}
