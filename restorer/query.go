package restorer

import (
	"context"
	"sort"
	"time"

	"github.com/stupid-simple/borgrestore/timespec"
)

// Archive is one user-visible version of a path.
type Archive struct {
	Name    string
	ModTime time.Time
}

// FindArchives returns the archives containing path, one entry per distinct
// modification time, sorted ascending. Two archives holding the same mtime
// are the same version; the first archive in store enumeration order wins.
// An unknown path yields a warning and an empty list, not an error.
func (r *Restorer) FindArchives(ctx context.Context, path string) ([]Archive, error) {
	if err := untaintPath(path); err != nil {
		return nil, err
	}

	rows, err := r.db.Store().GetArchivesForPath(ctx, path)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{})
	var result []Archive
	for _, row := range rows {
		if row.Mtime == nil {
			continue
		}
		if _, ok := seen[*row.Mtime]; ok {
			continue
		}
		seen[*row.Mtime] = struct{}{}
		result = append(result, Archive{Name: row.Archive, ModTime: time.Unix(*row.Mtime, 0)})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ModTime.Before(result[j].ModTime)
	})

	if len(result) == 0 {
		r.logger.Warn().Str("path", path).Msg("path not found in any archive")
	}
	return result, nil
}

// SelectArchiveByAge returns the newest archive older than the given age, or
// nil when none qualifies. The list must be sorted ascending by modification
// time, as FindArchives returns it.
func (r *Restorer) SelectArchiveByAge(list []Archive, spec string) (*Archive, error) {
	seconds, err := timespec.Parse(spec)
	if err != nil {
		return nil, err
	}

	target := r.now().Add(-time.Duration(seconds) * time.Second)
	for i := len(list) - 1; i >= 0; i-- {
		if list[i].ModTime.Before(target) {
			return &list[i], nil
		}
	}
	return nil, nil
}
