package pathtable

import (
	"context"

	"github.com/armon/go-radix"
	"github.com/rs/zerolog"
)

// MemoryTable aggregates the whole listing in a radix tree before writing
// anything, so it makes one store call per distinct path and does not care
// about the listing order. Costs O(paths) memory.
type MemoryTable struct {
	archive   string
	sink      Sink
	logger    zerolog.Logger
	tree      *radix.Tree
	rootMtime int64
	seen      int
}

func NewMemoryTable(archive string, sink Sink, logger zerolog.Logger) *MemoryTable {
	return &MemoryTable{
		archive: archive,
		sink:    sink,
		logger:  logger.With().Str("archive", archive).Logger(),
		tree:    radix.New(),
	}
}

// AddPath records one listing entry, raising the stored mtime of the path and
// every ancestor to at least mtime.
func (t *MemoryTable) AddPath(_ context.Context, path string, mtime int64) error {
	t.seen++
	if t.rootMtime < mtime {
		t.rootMtime = mtime
	}
	if path == RootPath {
		return nil
	}

	ancestors(path, func(prefix string) bool {
		if current, ok := t.tree.Get(prefix); !ok || current.(int64) < mtime {
			t.tree.Insert(prefix, mtime)
		}
		return true
	})
	return nil
}

// Flush writes every aggregated path to the sink. The radix walk visits paths
// in sorted order, which keeps the flush iterative regardless of tree depth.
func (t *MemoryTable) Flush(ctx context.Context) error {
	var err error
	t.tree.Walk(func(path string, value interface{}) bool {
		err = t.sink.UpsertPath(ctx, t.archive, path, value.(int64))
		return err != nil
	})
	if err != nil {
		return err
	}

	t.logger.Debug().
		Int("paths_seen", t.seen).
		Int("rows_written", t.tree.Len()).
		Msg("flushed path table")
	return nil
}
