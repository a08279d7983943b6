package restorer_test

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stupid-simple/borgrestore/restorer"
)

// Restore changes the working directory; put it back for later tests.
func preserveWorkdir(t *testing.T) {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = os.Chdir(wd)
	})
}

func TestRestore(t *testing.T) {
	preserveWorkdir(t)
	env := newTestEnv(t, &fakeSource{})

	dest := filepath.Join(t.TempDir(), "restored")
	err := env.restorer.Restore(context.Background(), "home/user/notes.txt", "host-2016-01-01", dest)
	require.NoError(t, err)

	require.Len(t, env.extractor.calls, 1)
	call := env.extractor.calls[0]
	assert.Equal(t, 2, call.stripComponents)
	assert.Equal(t, "host-2016-01-01", call.archive)
	assert.Equal(t, "home/user/notes.txt", call.path)

	// Destination was created and is the working directory while extracting.
	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, dest, wd)
}

func TestRestore_RemovesStaleTarget(t *testing.T) {
	preserveWorkdir(t)
	env := newTestEnv(t, &fakeSource{})

	dest := t.TempDir()
	stale := filepath.Join(dest, "notes.txt")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0600))

	err := env.restorer.Restore(context.Background(), "home/user/notes.txt", "host-2016-01-01", dest)
	require.NoError(t, err)

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
}

func TestRestore_TopLevelPath(t *testing.T) {
	preserveWorkdir(t)
	env := newTestEnv(t, &fakeSource{})

	err := env.restorer.Restore(context.Background(), "vmlinuz", "host-2016-01-01", t.TempDir())
	require.NoError(t, err)

	require.Len(t, env.extractor.calls, 1)
	assert.Equal(t, 0, env.extractor.calls[0].stripComponents)
}

func TestRestore_InvalidInput(t *testing.T) {
	env := newTestEnv(t, &fakeSource{})
	ctx := context.Background()

	err := env.restorer.Restore(ctx, "", "host-2016-01-01", t.TempDir())
	assert.ErrorIs(t, err, restorer.ErrInvalidPath)

	err = env.restorer.Restore(ctx, "some/path", "host-2016-01-01", "")
	assert.ErrorIs(t, err, restorer.ErrInvalidPath)

	assert.Empty(t, env.extractor.calls)
}

func TestRewritePath(t *testing.T) {
	env := newTestEnv(t, &fakeSource{}, func(p *restorer.Params) {
		p.Rules = []restorer.RewriteRule{
			{Pattern: regexp.MustCompile(`^/mnt/backup`), Replacement: "/srv/data"},
			{Pattern: regexp.MustCompile(`^/mnt`), Replacement: "/media"},
		}
	})

	// First matching rule wins.
	assert.Equal(t, "/srv/data/x", env.restorer.RewritePath("/mnt/backup/x"))
	assert.Equal(t, "/media/usb/x", env.restorer.RewritePath("/mnt/usb/x"))
	assert.Equal(t, "/home/user", env.restorer.RewritePath("/home/user"))
}
