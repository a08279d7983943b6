// Package borg shells out to the borg binary for everything that touches
// repository data: enumerating archives, streaming archive listings and
// extracting files. The index never reads repository bytes itself.
package borg

import (
	"bytes"
	"fmt"
	"os/exec"
	"regexp"

	"github.com/rs/zerolog"
)

// ErrInvalidArchiveName is returned when an archive name fails untainting.
var ErrInvalidArchiveName = fmt.Errorf("invalid archive name")

// Archive names end up on a borg command line, so they are checked against a
// strict whitelist before use.
var archiveNamePattern = regexp.MustCompile(`^[A-Za-z0-9:+.-]+$`)

// UntaintArchiveName rejects names that are not safe to pass to borg.
func UntaintArchiveName(name string) error {
	if !archiveNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidArchiveName, name)
	}
	return nil
}

// Borg invokes the borg binary against one repository. An empty repository
// string leaves the location to borg's BORG_REPO environment variable.
type Borg struct {
	repository string
	logger     zerolog.Logger
}

func New(repository string, logger zerolog.Logger) *Borg {
	return &Borg{repository: repository, logger: logger}
}

// location renders "repo::archive" for a named archive, or the bare
// repository for repository-level commands.
func (b *Borg) location(archive string) string {
	if archive == "" {
		return b.repository
	}
	return b.repository + "::" + archive
}

func commandError(cmd *exec.Cmd, stderr *bytes.Buffer, err error) error {
	msg := bytes.TrimSpace(stderr.Bytes())
	if len(msg) > 0 {
		return fmt.Errorf("%s failed: %w: %s", cmd.Args[0], err, msg)
	}
	return fmt.Errorf("%s failed: %w", cmd.Args[0], err)
}
