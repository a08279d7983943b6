package restorer_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/stupid-simple/borgrestore/database"
	"github.com/stupid-simple/borgrestore/restorer"
)

// fakeSource serves canned archive listings instead of running borg.
type fakeSource struct {
	archives []string
	listings map[string][]string
	// failAt aborts the named archive's listing partway through.
	failAt string
}

func (f *fakeSource) ListArchives(_ context.Context) ([]string, error) {
	return append([]string(nil), f.archives...), nil
}

func (f *fakeSource) ListArchive(_ context.Context, name string, sink func(line string) error) error {
	lines := f.listings[name]
	for i, line := range lines {
		if f.failAt == name && i == len(lines)/2 {
			return fmt.Errorf("borg died")
		}
		if err := sink(line); err != nil {
			return err
		}
	}
	return nil
}

type extractCall struct {
	stripComponents int
	archive         string
	path            string
}

type fakeExtractor struct {
	calls []extractCall
}

func (f *fakeExtractor) Extract(_ context.Context, stripComponents int, archive string, path string) error {
	f.calls = append(f.calls, extractCall{stripComponents: stripComponents, archive: archive, path: path})
	return nil
}

// listingLine renders one borg listing line for an epoch mtime, matching what
// the ingest parser expects back after the local-zone round trip.
func listingLine(epoch int64, path string) string {
	return time.Unix(epoch, 0).In(time.Local).Format("Mon, 2006-01-02 15:04:05") + " " + path
}

type testEnv struct {
	restorer  *restorer.Restorer
	db        *database.Database
	source    *fakeSource
	extractor *fakeExtractor
}

func newTestEnv(t *testing.T, source *fakeSource, opts ...func(*restorer.Params)) *testEnv {
	t.Helper()

	logger := zerolog.New(zerolog.NewTestWriter(t))
	db, err := database.Open(filepath.Join(t.TempDir(), "archives.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	require.NoError(t, db.Init(context.Background()))

	extractor := &fakeExtractor{}
	params := restorer.Params{
		Database:  db,
		Source:    source,
		Extractor: extractor,
		Logger:    logger,
	}
	for _, opt := range opts {
		opt(&params)
	}

	return &testEnv{
		restorer:  restorer.New(params),
		db:        db,
		source:    source,
		extractor: extractor,
	}
}

func (e *testEnv) archiveNames(t *testing.T) []string {
	t.Helper()

	names, err := e.db.Store().ArchiveNames(context.Background())
	require.NoError(t, err)
	return names
}

func (e *testEnv) rowCount(t *testing.T) int64 {
	t.Helper()

	count, err := e.db.Store().RowCount(context.Background())
	require.NoError(t, err)
	return count
}
