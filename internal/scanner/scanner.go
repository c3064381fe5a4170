// Package scanner walks a project directory tree and emits the
// root-relative paths of media files eligible for indexing.
package scanner

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"

	"media-indexer/internal/logging"
	"media-indexer/internal/mediatypes"
)

// Scanner performs a filtered recursive walk of a project root.
//
// Dot-prefixed directories are pruned, dot-prefixed files and "._"
// sidecar files are skipped, and only files whose extension falls in one
// of the configured allow-sets are emitted.
type Scanner struct {
	root string
}

// New creates a Scanner for the given project root.
func New(root string) *Scanner {
	return &Scanner{root: root}
}

// Root returns the project root the scanner walks.
func (s *Scanner) Root() string {
	return s.root
}

// Walk traverses the tree and calls fn with the root-relative path and
// file info of every eligible media file. Cancellation is checked at each
// directory and file visit and terminates the walk immediately.
// Individual visit failures are logged and do not abort the walk; an
// error returned by fn does.
func (s *Scanner) Walk(ctx context.Context, fn func(relPath string, info fs.FileInfo) error) error {
	return filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			logging.Warn("Error accessing path %s: %v", path, err)
			return nil
		}

		name := d.Name()
		if d.IsDir() {
			// Prune hidden subtrees, but never the root itself
			// (the project directory may be hidden).
			if path != s.root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "._") {
			return nil
		}

		if !mediatypes.IsMediaFile(mediatypes.Ext(name)) {
			return nil
		}

		relPath, err := filepath.Rel(s.root, path)
		if err != nil {
			logging.Warn("Error relativizing path %s: %v", path, err)
			return nil
		}

		info, err := d.Info()
		if err != nil {
			logging.Warn("Error getting info for %s: %v", path, err)
			return nil
		}

		return fn(relPath, info)
	})
}
