package restorer_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stupid-simple/borgrestore/restorer"
)

func twoArchiveSource() *fakeSource {
	return &fakeSource{
		archives: []string{"host-2016-01-01", "host-2016-02-01"},
		listings: map[string][]string{
			"host-2016-01-01": {
				listingLine(5, "."),
				listingLine(10, "boot"),
				listingLine(20, "boot/grub"),
				listingLine(8, "boot/grub/grub.cfg"),
			},
			"host-2016-02-01": {
				listingLine(30, "."),
				listingLine(30, "boot"),
				listingLine(30, "boot/grub"),
				listingLine(30, "boot/grub/grub.cfg"),
			},
		},
	}
}

func TestUpdateCache(t *testing.T) {
	for _, strategy := range []restorer.Strategy{restorer.StrategyMemory, restorer.StrategyDirect} {
		t.Run(string(strategy), func(t *testing.T) {
			env := newTestEnv(t, twoArchiveSource(), func(p *restorer.Params) {
				p.Strategy = strategy
			})
			ctx := context.Background()

			require.NoError(t, env.restorer.UpdateCache(ctx))

			assert.Equal(t, []string{"host-2016-01-01", "host-2016-02-01"}, env.archiveNames(t))

			archives, err := env.restorer.FindArchives(ctx, "boot/grub/grub.cfg")
			require.NoError(t, err)
			require.Len(t, archives, 2)
			assert.Equal(t, "host-2016-01-01", archives[0].Name)
			assert.Equal(t, int64(8), archives[0].ModTime.Unix())
			assert.Equal(t, "host-2016-02-01", archives[1].Name)
			assert.Equal(t, int64(30), archives[1].ModTime.Unix())

			// Aggregated directory mtimes.
			archives, err = env.restorer.FindArchives(ctx, "boot")
			require.NoError(t, err)
			require.Len(t, archives, 2)
			assert.Equal(t, int64(20), archives[0].ModTime.Unix())
			assert.Equal(t, int64(30), archives[1].ModTime.Unix())
		})
	}
}

func TestUpdateCache_Idempotent(t *testing.T) {
	env := newTestEnv(t, twoArchiveSource())
	ctx := context.Background()

	require.NoError(t, env.restorer.UpdateCache(ctx))
	names := env.archiveNames(t)
	rows := env.rowCount(t)

	require.NoError(t, env.restorer.UpdateCache(ctx))
	assert.Equal(t, names, env.archiveNames(t))
	assert.Equal(t, rows, env.rowCount(t))
}

func TestUpdateCache_RemovesDepartedArchives(t *testing.T) {
	source := twoArchiveSource()
	env := newTestEnv(t, source)
	ctx := context.Background()

	require.NoError(t, env.restorer.UpdateCache(ctx))

	// Archive pruned from the repository between updates.
	source.archives = source.archives[1:]
	require.NoError(t, env.restorer.UpdateCache(ctx))

	assert.Equal(t, []string{"host-2016-02-01"}, env.archiveNames(t))

	archives, err := env.restorer.FindArchives(ctx, "boot/grub/grub.cfg")
	require.NoError(t, err)
	require.Len(t, archives, 1)
	assert.Equal(t, "host-2016-02-01", archives[0].Name)
}

func TestUpdateCache_RollbackOnListingFailure(t *testing.T) {
	source := twoArchiveSource()
	source.failAt = "host-2016-02-01"
	env := newTestEnv(t, source)
	ctx := context.Background()

	require.Error(t, env.restorer.UpdateCache(ctx))

	// The failed archive must not be visible; the next update retries it.
	assert.Equal(t, []string{"host-2016-01-01"}, env.archiveNames(t))

	source.failAt = ""
	require.NoError(t, env.restorer.UpdateCache(ctx))
	assert.Equal(t, []string{"host-2016-01-01", "host-2016-02-01"}, env.archiveNames(t))
}

func TestUpdateCache_SkipsUnparseableLines(t *testing.T) {
	source := &fakeSource{
		archives: []string{"host-2016-01-01"},
		listings: map[string][]string{
			"host-2016-01-01": {
				"not a listing line",
				listingLine(10, "etc/passwd"),
				"",
				listingLine(12, "etc/shadow"),
			},
		},
	}
	env := newTestEnv(t, source)
	ctx := context.Background()

	require.NoError(t, env.restorer.UpdateCache(ctx))
	assert.Equal(t, int64(3), env.rowCount(t)) // etc, etc/passwd, etc/shadow

	archives, err := env.restorer.FindArchives(ctx, "etc")
	require.NoError(t, err)
	require.Len(t, archives, 1)
	assert.Equal(t, int64(12), archives[0].ModTime.Unix())
}
