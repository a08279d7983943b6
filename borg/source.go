package borg

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Scanner buffer large enough for deeply nested paths.
const maxLineBytes = 1024 * 1024

// ListArchives returns the archive names currently in the repository, in
// borg's listing order.
func (b *Borg) ListArchives(ctx context.Context) ([]string, error) {
	args := []string{"list"}
	if b.repository != "" {
		args = append(args, b.repository)
	}
	cmd := exec.CommandContext(ctx, "borg", args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	b.logger.Debug().Strs("args", cmd.Args).Msg("listing archives")
	out, err := cmd.Output()
	if err != nil {
		return nil, commandError(cmd, &stderr, err)
	}

	var names []string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		name := fields[0]
		if err := UntaintArchiveName(name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("could not read archive list: %w", err)
	}
	return names, nil
}

// ListArchive streams the per-file listing of one archive to sink, one line
// at a time. A sink error aborts the subprocess and is returned as-is.
func (b *Borg) ListArchive(ctx context.Context, name string, sink func(line string) error) error {
	if err := UntaintArchiveName(name); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, "borg", "list", "--format", "{isomtime} {path}{NL}", b.location(name))

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("could not open borg stdout: %w", err)
	}

	b.logger.Debug().Strs("args", cmd.Args).Msg("listing archive contents")
	if err := cmd.Start(); err != nil {
		return commandError(cmd, &stderr, err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	var sinkErr error
	for scanner.Scan() {
		if sinkErr = sink(scanner.Text()); sinkErr != nil {
			break
		}
	}

	if sinkErr != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return sinkErr
	}
	if err := scanner.Err(); err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return fmt.Errorf("could not read archive listing: %w", err)
	}
	if err := cmd.Wait(); err != nil {
		return commandError(cmd, &stderr, err)
	}
	return nil
}
