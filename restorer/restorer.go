// Package restorer wires the archive index, the borg subprocess adapters and
// the query logic into the operations the CLI exposes: update the cache, find
// the versions of a path, pick one by age, restore it.
package restorer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/stupid-simple/borgrestore/database"
)

// ErrInvalidPath is returned when a user-supplied path fails untainting.
var ErrInvalidPath = fmt.Errorf("invalid path")

// Strategy selects how archive listings are ingested into the store.
type Strategy string

const (
	// StrategyMemory aggregates the whole listing in memory before writing.
	StrategyMemory Strategy = "memory"
	// StrategyDirect writes to the store while streaming the listing.
	StrategyDirect Strategy = "direct"
)

// ArchiveSource enumerates archives and streams their file listings.
// Implemented by the borg package.
type ArchiveSource interface {
	ListArchives(ctx context.Context) ([]string, error)
	ListArchive(ctx context.Context, name string, sink func(line string) error) error
}

// Extractor restores a path from an archive into the current working
// directory. Implemented by the borg package.
type Extractor interface {
	Extract(ctx context.Context, stripComponents int, archive string, path string) error
}

type Params struct {
	Database  *database.Database
	Source    ArchiveSource
	Extractor Extractor
	Strategy  Strategy
	Rules     []RewriteRule
	Logger    zerolog.Logger
	// Now is used for age selection. Defaults to time.Now.
	Now func() time.Time
}

type Restorer struct {
	db        *database.Database
	source    ArchiveSource
	extractor Extractor
	strategy  Strategy
	rules     []RewriteRule
	logger    zerolog.Logger
	now       func() time.Time
}

func New(params Params) *Restorer {
	r := &Restorer{
		db:        params.Database,
		source:    params.Source,
		extractor: params.Extractor,
		strategy:  params.Strategy,
		rules:     params.Rules,
		logger:    params.Logger,
		now:       params.Now,
	}
	if r.strategy == "" {
		r.strategy = StrategyDirect
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

func untaintPath(path string) error {
	if path == "" || strings.ContainsRune(path, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return nil
}

// Restore extracts path from the named archive into destination, creating the
// destination if missing and replacing whatever currently sits at the path's
// basename inside it.
func (r *Restorer) Restore(ctx context.Context, path string, archive string, destination string) error {
	if err := untaintPath(path); err != nil {
		return err
	}
	if err := untaintPath(destination); err != nil {
		return err
	}

	if err := os.MkdirAll(destination, 0755); err != nil {
		return fmt.Errorf("could not create destination directory: %w", err)
	}
	if err := os.Chdir(destination); err != nil {
		return fmt.Errorf("could not change into destination directory: %w", err)
	}

	target := filepath.Base(path)
	if err := os.RemoveAll(target); err != nil {
		return fmt.Errorf("could not remove stale %q: %w", target, err)
	}

	strip := strings.Count(path, "/")
	r.logger.Info().
		Str("path", path).
		Str("archive", archive).
		Str("destination", destination).
		Msg("restoring")
	return r.extractor.Extract(ctx, strip, archive, path)
}
