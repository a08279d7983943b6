package pathtable

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
)

const directCacheSize = 4096

// DirectTable writes straight to the sink and only keeps a bounded cache of
// the mtimes already written for the ancestor chain. With a DFS-ordered
// listing (what borg produces) that suppresses almost all redundant store
// calls; with any other order it merely makes extra ones, since the sink's
// max-merge keeps results correct. Costs O(depth) memory.
type DirectTable struct {
	archive string
	sink    Sink
	logger  zerolog.Logger
	cache   *lru.Cache[string, int64]
	current string

	seen      int
	potential int
	writes    int
}

func NewDirectTable(archive string, sink Sink, logger zerolog.Logger) (*DirectTable, error) {
	cache, err := lru.New[string, int64](directCacheSize)
	if err != nil {
		return nil, err
	}
	return &DirectTable{
		archive: archive,
		sink:    sink,
		logger:  logger.With().Str("archive", archive).Logger(),
		cache:   cache,
	}, nil
}

// AddPath writes mtime for the path and every ancestor whose cached value is
// missing or older. Cached entries for the subtree being left are dropped
// first so the cache stays proportional to the current ancestor chain.
func (t *DirectTable) AddPath(ctx context.Context, path string, mtime int64) error {
	t.seen++
	if path == RootPath {
		return nil
	}

	if t.current != "" {
		ancestors(t.current, func(prefix string) bool {
			if !isAncestorPath(prefix, path) {
				t.cache.Remove(prefix)
			}
			return true
		})
	}

	var err error
	ancestors(path, func(prefix string) bool {
		t.potential++
		if cached, ok := t.cache.Get(prefix); ok && cached >= mtime {
			return true
		}
		if err = t.sink.UpsertPath(ctx, t.archive, prefix, mtime); err != nil {
			return false
		}
		t.cache.Add(prefix, mtime)
		t.writes++
		return true
	})
	if err != nil {
		return err
	}

	t.current = path
	return nil
}

// Flush only reports counters; every mutation already reached the sink.
func (t *DirectTable) Flush(_ context.Context) error {
	t.logger.Debug().
		Int("paths_seen", t.seen).
		Int("potential_store_calls", t.potential).
		Int("store_calls", t.writes).
		Msg("flushed path table")
	return nil
}
