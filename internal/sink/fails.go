package sink

import (
	"fmt"
	"os"
	"strings"
)

// WriteFails records the failed work item keys from one run, one key per
// line in input order. With appendMode false the file is rewritten, matching
// the operator workflow of inspecting and reprocessing after each run. The
// file is synced before close so the record survives a crash right after
// the run.
func WriteFails(path string, keys []string, appendMode bool) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("fails path is required")
	}

	flags := os.O_CREATE | os.O_WRONLY
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		return fmt.Errorf("open fails record: %w", err)
	}

	for _, key := range keys {
		if _, err := fmt.Fprintln(f, key); err != nil {
			_ = f.Close()
			return fmt.Errorf("write fails record: %w", err)
		}
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync fails record: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close fails record: %w", err)
	}
	return nil
}
