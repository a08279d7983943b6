package borg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// Extract restores path from the named archive into the current working
// directory, stripping the first stripComponents path components.
func (b *Borg) Extract(ctx context.Context, stripComponents int, archive string, path string) error {
	if err := UntaintArchiveName(archive); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, "borg", "extract",
		"--strip-components", fmt.Sprintf("%d", stripComponents),
		b.location(archive), path)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	b.logger.Debug().Strs("args", cmd.Args).Msg("extracting")
	if err := cmd.Run(); err != nil {
		return commandError(cmd, &stderr, err)
	}
	return nil
}
