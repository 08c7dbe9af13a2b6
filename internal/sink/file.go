// Package sink persists successful payloads and the per-run fails record.
package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dblp-tools/faculty-harvester/internal/harvest"
)

// NameFunc maps a work item to its file name relative to the sink's base
// directory (the item's parent directory component is handled separately).
type NameFunc func(item harvest.WorkItem) string

// FileSink writes one file per successful item under a base directory,
// grouping by the item's parent when present.
type FileSink struct {
	baseDir string
	name    NameFunc
}

// NewFileSink validates baseDir (creating it if missing) and returns a sink
// that names files with name.
func NewFileSink(baseDir string, name NameFunc) (*FileSink, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	if name == nil {
		return nil, fmt.Errorf("name function is required")
	}

	info, err := os.Stat(baseDir)
	switch {
	case err == nil:
		if !info.IsDir() {
			return nil, fmt.Errorf("base directory path is not a directory")
		}
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(baseDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("create base directory: %w", mkErr)
		}
	default:
		return nil, fmt.Errorf("stat base directory: %w", err)
	}

	return &FileSink{baseDir: baseDir, name: name}, nil
}

// Put writes payload for item. Failures here are process-fatal to the run:
// continuing with an unwritable output directory would silently lose data.
func (s *FileSink) Put(_ context.Context, item harvest.WorkItem, payload []byte) error {
	name := s.name(item)
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("empty file name for item %q", item.Key)
	}

	fullPath := filepath.Join(s.baseDir, item.Parent, name)

	// Reject names that would escape the base directory.
	cleanBase := filepath.Clean(s.baseDir)
	cleanFull := filepath.Clean(fullPath)
	if !strings.HasPrefix(cleanFull, cleanBase+string(filepath.Separator)) {
		return fmt.Errorf("path traversal detected for item %q", item.Key)
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return fmt.Errorf("create parent directories: %w", err)
	}
	if err := os.WriteFile(fullPath, payload, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", fullPath, err)
	}
	return nil
}

// Path returns where item would be written; used by resume checks and tests.
func (s *FileSink) Path(item harvest.WorkItem) string {
	return filepath.Join(s.baseDir, item.Parent, s.name(item))
}
