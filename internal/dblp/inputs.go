package dblp

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dblp-tools/faculty-harvester/internal/harvest"
)

// UniversityItems reads a newline-delimited schools file into stage-one work
// items. Blank lines are skipped; the normalized name is both key and query
// target.
func UniversityItems(path string) ([]harvest.WorkItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open schools file: %w", err)
	}
	defer f.Close()

	var items []harvest.WorkItem
	seen := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		name := Normalize(scanner.Text())
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		items = append(items, harvest.WorkItem{
			Key:    name,
			Target: name,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read schools file: %w", err)
	}
	return items, nil
}

// FacultyItems builds stage-two work items from the stage-one CSVs under
// dataDir. Each *_faculty.csv row contributes one item keyed by the author
// URL, grouped under its university's safe name.
func FacultyItems(dataDir string) ([]harvest.WorkItem, error) {
	matches, err := filepath.Glob(filepath.Join(dataDir, "*_faculty.csv"))
	if err != nil {
		return nil, fmt.Errorf("glob faculty csvs: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no faculty csv files under %s; run the query stage first", dataDir)
	}

	var items []harvest.WorkItem
	seen := make(map[string]struct{})
	for _, path := range matches {
		university := strings.TrimSuffix(filepath.Base(path), "_faculty.csv")
		urls, err := authorURLs(path)
		if err != nil {
			return nil, err
		}
		for _, u := range urls {
			if _, dup := seen[u]; dup {
				continue
			}
			seen[u] = struct{}{}
			items = append(items, harvest.WorkItem{
				Key:    u,
				Target: u,
				Parent: university,
			})
		}
	}
	return items, nil
}

// authorURLs pulls the author column out of one stage-one CSV.
func authorURLs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open faculty csv %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header %s: %w", path, err)
	}
	authorIdx := -1
	for i, col := range header {
		if strings.EqualFold(strings.TrimSpace(col), "author") {
			authorIdx = i
			break
		}
	}
	if authorIdx < 0 {
		return nil, fmt.Errorf("no author column in %s", path)
	}

	var urls []string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %s: %w", path, err)
		}
		if authorIdx >= len(row) {
			continue
		}
		u := strings.TrimSpace(row[authorIdx])
		if u == "" {
			continue
		}
		urls = append(urls, u)
	}
	return urls, nil
}
