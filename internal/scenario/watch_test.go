package scenario

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leapstack-labs/starfleet/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	watched := filepath.Join(dir, "battle.yaml")
	other := filepath.Join(dir, "other.yaml")
	require.NoError(t, os.WriteFile(watched, []byte("name: one\n"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan string, 10)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, []string{watched}, WatchOptions{
			Debounce: 20 * time.Millisecond,
			Logger:   testutil.NewTestLogger(t),
		}, func(_ context.Context, path string) {
			changed <- path
		})
	}()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(other, []byte("ignored"), 0o600))
	for i := range 3 {
		require.NoError(t, os.WriteFile(watched, []byte("name: "+string(rune('a'+i))+"\n"), 0o600))
	}

	select {
	case got := <-changed:
		assert.Equal(t, watched, got)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestWatch_MissingDirectory(t *testing.T) {
	err := Watch(context.Background(), []string{filepath.Join(t.TempDir(), "gone", "x.yaml")}, WatchOptions{}, func(context.Context, string) {})
	assert.Error(t, err)
}
