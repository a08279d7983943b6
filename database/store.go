package database

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const timestampColumnPrefix = "timestamp-"

// ErrInvalidArchiveName is returned when an archive name fails untainting.
var ErrInvalidArchiveName = fmt.Errorf("invalid archive name")

// Archive names become SQL identifiers, so anything outside this whitelist is
// rejected before it reaches a statement.
var archiveNamePattern = regexp.MustCompile(`^[A-Za-z0-9:+.-]+$`)

// UntaintArchiveName rejects names that are not safe to interpolate as a
// quoted identifier.
func UntaintArchiveName(name string) error {
	if !archiveNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidArchiveName, name)
	}
	return nil
}

func timestampColumn(archive string) string {
	return quoteIdent(timestampColumnPrefix + archive)
}

func quoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// ArchiveMtime is one cell of a path row. A nil Mtime means the path does not
// exist in that archive.
type ArchiveMtime struct {
	Archive string
	Mtime   *int64
}

// Store runs index statements against either the database or a single
// transaction, depending on how it was obtained.
type Store struct {
	cli    *gorm.DB
	logger zerolog.Logger
}

// ArchiveNames enumerates known archives in insertion order.
func (s *Store) ArchiveNames(ctx context.Context) ([]string, error) {
	var names []string
	err := s.cli.WithContext(ctx).
		Raw(`SELECT "archive_name" FROM "archives" ORDER BY "rowid"`).
		Scan(&names).Error
	if err != nil {
		return nil, fmt.Errorf("could not list archives: %w", err)
	}
	return names, nil
}

// RowCount returns the number of indexed paths.
func (s *Store) RowCount(ctx context.Context) (int64, error) {
	var count int64
	err := s.cli.WithContext(ctx).Raw(`SELECT COUNT(*) FROM "files"`).Scan(&count).Error
	if err != nil {
		return 0, fmt.Errorf("could not count rows: %w", err)
	}
	return count, nil
}

// AddArchive registers a new archive and adds its timestamp column. Adding an
// archive that already exists is a caller error and fails.
func (s *Store) AddArchive(ctx context.Context, name string) error {
	if err := UntaintArchiveName(name); err != nil {
		return err
	}

	s.logger.Debug().Str("archive", name).Msg("adding archive")

	cli := s.cli.WithContext(ctx)
	if err := cli.Exec(`INSERT INTO "archives" ("archive_name") VALUES (?)`, name).Error; err != nil {
		return fmt.Errorf("could not register archive %q: %w", name, err)
	}

	stmt := fmt.Sprintf(`ALTER TABLE "files" ADD COLUMN %s INTEGER`, timestampColumn(name))
	if err := cli.Exec(stmt).Error; err != nil {
		return fmt.Errorf("could not add column for archive %q: %w", name, err)
	}
	return nil
}

// RemoveArchive drops an archive and its column. SQLite cannot drop columns
// cheaply, so the files table is rebuilt with only the retained columns, and
// rows left without any timestamp are deleted. Removing an unknown archive is
// a no-op.
func (s *Store) RemoveArchive(ctx context.Context, name string) error {
	if err := UntaintArchiveName(name); err != nil {
		return err
	}

	names, err := s.ArchiveNames(ctx)
	if err != nil {
		return err
	}

	retained := make([]string, 0, len(names))
	found := false
	for _, n := range names {
		if n == name {
			found = true
			continue
		}
		retained = append(retained, n)
	}
	if !found {
		s.logger.Debug().Str("archive", name).Msg("archive not in index, nothing to remove")
		return nil
	}

	s.logger.Debug().Str("archive", name).Msg("removing archive")

	cols := make([]string, len(retained))
	colDefs := make([]string, len(retained))
	nullChecks := make([]string, len(retained))
	for i, n := range retained {
		cols[i] = timestampColumn(n)
		colDefs[i] = cols[i] + " INTEGER"
		nullChecks[i] = cols[i] + " IS NULL"
	}

	cli := s.cli.WithContext(ctx)

	create := `CREATE TABLE "files_new" ("path" TEXT PRIMARY KEY NOT NULL`
	if len(colDefs) > 0 {
		create += ", " + strings.Join(colDefs, ", ")
	}
	create += `) STRICT`
	if err := cli.Exec(create).Error; err != nil {
		return fmt.Errorf("could not rebuild files table: %w", err)
	}

	if len(cols) > 0 {
		colList := `"path", ` + strings.Join(cols, ", ")
		stmt := fmt.Sprintf(`INSERT INTO "files_new" (%s) SELECT %s FROM "files"`, colList, colList)
		if err := cli.Exec(stmt).Error; err != nil {
			return fmt.Errorf("could not copy retained columns: %w", err)
		}
	}

	if err := cli.Exec(`DROP TABLE "files"`).Error; err != nil {
		return fmt.Errorf("could not drop old files table: %w", err)
	}
	if err := cli.Exec(`ALTER TABLE "files_new" RENAME TO "files"`).Error; err != nil {
		return fmt.Errorf("could not rename files table: %w", err)
	}

	if len(nullChecks) > 0 {
		stmt := `DELETE FROM "files" WHERE ` + strings.Join(nullChecks, " AND ")
		if err := cli.Exec(stmt).Error; err != nil {
			return fmt.Errorf("could not delete empty rows: %w", err)
		}
	}

	if err := cli.Exec(`DELETE FROM "archives" WHERE "archive_name" = ?`, name).Error; err != nil {
		return fmt.Errorf("could not unregister archive %q: %w", name, err)
	}
	return nil
}

// UpsertPath records mtime for path in the given archive, keeping the maximum
// of the current and the new value.
func (s *Store) UpsertPath(ctx context.Context, archive string, path string, mtime int64) error {
	if err := UntaintArchiveName(archive); err != nil {
		return err
	}

	col := timestampColumn(archive)
	stmt := fmt.Sprintf(
		`INSERT INTO "files" ("path", %s) VALUES (?, ?) `+
			`ON CONFLICT ("path") DO UPDATE SET %s = max(coalesce(%s, excluded.%s), excluded.%s)`,
		col, col, col, col, col)
	if err := s.cli.WithContext(ctx).Exec(stmt, path, mtime).Error; err != nil {
		return fmt.Errorf("could not upsert path %q: %w", path, err)
	}
	return nil
}

// GetArchivesForPath returns one entry per known archive in insertion order.
// Paths absent from the index yield all-nil mtimes.
func (s *Store) GetArchivesForPath(ctx context.Context, path string) ([]ArchiveMtime, error) {
	names, err := s.ArchiveNames(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]ArchiveMtime, len(names))
	for i, n := range names {
		result[i] = ArchiveMtime{Archive: n}
	}
	if len(names) == 0 {
		return result, nil
	}

	cols := make([]string, len(names))
	for i, n := range names {
		cols[i] = timestampColumn(n)
	}

	stmt := fmt.Sprintf(`SELECT %s FROM "files" WHERE "path" = ?`, strings.Join(cols, ", "))
	rows, err := s.cli.WithContext(ctx).Raw(stmt, path).Rows()
	if err != nil {
		return nil, fmt.Errorf("could not look up path %q: %w", path, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	if !rows.Next() {
		return result, rows.Err()
	}

	cells := make([]sql.NullInt64, len(names))
	dest := make([]interface{}, len(names))
	for i := range cells {
		dest[i] = &cells[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, fmt.Errorf("could not scan path row: %w", err)
	}

	for i, cell := range cells {
		if cell.Valid {
			mtime := cell.Int64
			result[i].Mtime = &mtime
		}
	}
	return result, rows.Err()
}
