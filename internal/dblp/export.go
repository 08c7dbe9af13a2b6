package dblp

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/dblp-tools/faculty-harvester/internal/harvest"
)

// ExtractDirectory walks the downloaded page tree (one subdirectory per
// university) and parses every HTML file into a Faculty record. Pages that
// fail to parse are logged and skipped; the walk itself failing is an error.
func ExtractDirectory(baseDir string, logger *zap.Logger) ([]Faculty, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	universities, err := os.ReadDir(baseDir)
	if err != nil {
		return nil, fmt.Errorf("read page directory: %w", err)
	}

	var out []Faculty
	for _, univ := range universities {
		if !univ.IsDir() {
			continue
		}
		affiliation := UniversityFromDir(univ.Name())
		univDir := filepath.Join(baseDir, univ.Name())

		pages, err := os.ReadDir(univDir)
		if err != nil {
			return nil, fmt.Errorf("read university directory %s: %w", univDir, err)
		}
		for _, page := range pages {
			if page.IsDir() || !strings.HasSuffix(page.Name(), ".html") {
				continue
			}
			path := filepath.Join(univDir, page.Name())
			record, err := parseFile(path)
			if err != nil {
				var malformed *harvest.MalformedResponseError
				if errors.As(err, &malformed) {
					logger.Warn("skipping unparseable page",
						zap.String("file", path),
						zap.String("reason", malformed.Reason),
					)
					continue
				}
				return nil, err
			}
			record.Affiliation = affiliation
			out = append(out, record)
			logger.Debug("extracted faculty record",
				zap.String("file", path),
				zap.String("name", record.Name),
			)
		}
	}
	return out, nil
}

func parseFile(path string) (Faculty, error) {
	f, err := os.Open(path)
	if err != nil {
		return Faculty{}, fmt.Errorf("open page %s: %w", path, err)
	}
	defer f.Close()
	return ParseAuthorPage(f)
}

// WriteFacultyCSV writes records to path with the output format contract:
// name, affiliation, homepage, scholarid.
func WriteFacultyCSV(path string, records []Faculty) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"name", "affiliation", "homepage", "scholarid"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range records {
		if err := w.Write([]string{r.Name, r.Affiliation, r.Homepage, r.ScholarID}); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush output csv: %w", err)
	}
	return nil
}
