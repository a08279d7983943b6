package restorer

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/rs/zerolog"
	"github.com/stupid-simple/borgrestore/database"
	"github.com/stupid-simple/borgrestore/pathtable"
)

// Listing lines look like "Mon, 2016-01-01 00:00:00 some/path". The leading
// four characters are the weekday abbreviation and comma. Anything else is
// skipped.
var listingPattern = regexp.MustCompile(`^.{4} ([0-9]{4}-[0-9]{2}-[0-9]{2} [0-9]{2}:[0-9]{2}:[0-9]{2}) (.+)$`)

const listingTimeLayout = "2006-01-02 15:04:05"

// parseListingLine extracts the path and mtime from one listing line. The
// timestamp carries no zone and is interpreted in the local zone at the
// moment of ingestion; re-ingesting in a different zone yields different
// mtimes. Kept for compatibility with existing index files.
func parseListingLine(line string) (string, int64, bool) {
	m := listingPattern.FindStringSubmatch(line)
	if m == nil {
		return "", 0, false
	}
	t, err := time.ParseInLocation(listingTimeLayout, m[1], time.Local)
	if err != nil {
		return "", 0, false
	}
	return m[2], t.Unix(), true
}

// UpdateCache reconciles the index with the repository's current archive set:
// departed archives are removed, new ones are ingested one transaction per
// archive. An interrupted ingestion leaves the archive unseen so the next
// update retries it.
func (r *Restorer) UpdateCache(ctx context.Context) error {
	startTime := time.Now()

	sourceArchives, err := r.source.ListArchives(ctx)
	if err != nil {
		return fmt.Errorf("could not list repository archives: %w", err)
	}

	known, err := r.db.Store().ArchiveNames(ctx)
	if err != nil {
		return err
	}

	inSource := make(map[string]struct{}, len(sourceArchives))
	for _, name := range sourceArchives {
		inSource[name] = struct{}{}
	}
	inStore := make(map[string]struct{}, len(known))
	for _, name := range known {
		inStore[name] = struct{}{}
	}

	var removed, added int
	for _, name := range known {
		if _, ok := inSource[name]; ok {
			continue
		}
		r.logger.Info().Str("archive", name).Msg("removing archive from cache")
		err := r.db.Transaction(ctx, func(tx *database.Store) error {
			return tx.RemoveArchive(ctx, name)
		})
		if err != nil {
			return fmt.Errorf("could not remove archive %q: %w", name, err)
		}
		if err := r.db.Compact(ctx); err != nil {
			return err
		}
		removed++
	}

	for _, name := range sourceArchives {
		if _, ok := inStore[name]; ok {
			continue
		}
		if err := r.ingestArchive(ctx, name); err != nil {
			return fmt.Errorf("could not add archive %q: %w", name, err)
		}
		if err := r.db.Compact(ctx); err != nil {
			return err
		}
		added++
	}

	rowCount, err := r.db.Store().RowCount(ctx)
	if err != nil {
		return err
	}
	r.logger.Info().
		Int("archives", len(sourceArchives)).
		Int("added", added).
		Int("removed", removed).
		Int64("paths", rowCount).
		Float64("seconds", time.Since(startTime).Seconds()).
		Msg("cache updated")
	return nil
}

// ingestArchive registers the archive and streams its listing into the store
// within a single transaction, so the archive is either fully indexed or not
// at all.
func (r *Restorer) ingestArchive(ctx context.Context, name string) error {
	r.logger.Info().Str("archive", name).Msg("adding archive to cache")

	throttled := r.logger.Sample(&zerolog.BurstSampler{
		Burst:  1,
		Period: 1 * time.Second,
	})

	return r.db.Transaction(ctx, func(tx *database.Store) error {
		if err := tx.AddArchive(ctx, name); err != nil {
			return err
		}

		table, err := r.newTable(name, tx)
		if err != nil {
			return err
		}

		var ingested, skipped int
		err = r.source.ListArchive(ctx, name, func(line string) error {
			path, mtime, ok := parseListingLine(line)
			if !ok {
				skipped++
				return nil
			}
			ingested++
			throttled.Info().
				Str("archive", name).
				Int("paths", ingested).
				Msg("ingesting archive listing")
			return table.AddPath(ctx, path, mtime)
		})
		if err != nil {
			return err
		}

		if err := table.Flush(ctx); err != nil {
			return err
		}

		if skipped > 0 {
			r.logger.Debug().Str("archive", name).Int("skipped", skipped).Msg("skipped unparseable listing lines")
		}
		return nil
	})
}

func (r *Restorer) newTable(archive string, tx *database.Store) (pathtable.Table, error) {
	switch r.strategy {
	case StrategyMemory:
		return pathtable.NewMemoryTable(archive, tx, r.logger), nil
	case StrategyDirect:
		return pathtable.NewDirectTable(archive, tx, r.logger)
	default:
		return nil, fmt.Errorf("unknown ingestion strategy %q", r.strategy)
	}
}
