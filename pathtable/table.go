// Package pathtable turns the file listing of a single archive into path rows
// with max-mtime-over-descendants semantics: every directory ends up with the
// latest mtime found anywhere in its subtree.
package pathtable

import "context"

// RootPath is the listing entry covering the whole archive. It is never
// written to the sink; only MemoryTable keeps a root mtime.
const RootPath = "."

// Sink receives the aggregated rows. Implemented by the database store.
type Sink interface {
	UpsertPath(ctx context.Context, archive string, path string, mtime int64) error
}

// Table consumes (path, mtime) records for one archive and makes sure the
// aggregated rows reach the sink by the time Flush returns.
type Table interface {
	AddPath(ctx context.Context, path string, mtime int64) error
	Flush(ctx context.Context) error
}

// ancestors calls fn for every prefix of path ending at a component boundary,
// shortest first, including path itself. fn returning false stops the walk.
func ancestors(path string, fn func(prefix string) bool) {
	for i := 0; i < len(path); i++ {
		if path[i] == '/' && i > 0 && path[i-1] != '/' {
			if !fn(path[:i]) {
				return
			}
		}
	}
	fn(path)
}

// isAncestorPath reports whether prefix equals path or is a path-component
// prefix of it.
func isAncestorPath(prefix string, path string) bool {
	if len(prefix) > len(path) || path[:len(prefix)] != prefix {
		return false
	}
	return len(prefix) == len(path) || path[len(prefix)] == '/'
}
