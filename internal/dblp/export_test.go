package dblp

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writePage(t *testing.T, dir, name, html string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(html), 0o600))
}

func TestExtractDirectory(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	writePage(t, filepath.Join(base, "carnegie_mellon"), "pid_12_345.html", samplePage)
	writePage(t, filepath.Join(base, "carnegie_mellon"), "pid_99_1.html",
		`<html><body><span class="name primary">John Doe</span></body></html>`)
	// A page without a primary name is skipped, not fatal.
	writePage(t, filepath.Join(base, "stanford"), "broken.html",
		`<html><body><p>gone</p></body></html>`)
	// Non-HTML files are ignored.
	writePage(t, filepath.Join(base, "stanford"), "notes.txt", "ignore me")

	records, err := ExtractDirectory(base, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, records, 2)

	byName := make(map[string]Faculty)
	for _, r := range records {
		byName[r.Name] = r
	}
	require.Equal(t, "Carnegie Mellon University", byName["Jane Q. Researcher"].Affiliation)
	require.Equal(t, "AbC123xyz", byName["Jane Q. Researcher"].ScholarID)
	require.Equal(t, "Carnegie Mellon University", byName["John Doe"].Affiliation)
}

func TestExtractDirectoryMissingBase(t *testing.T) {
	t.Parallel()

	_, err := ExtractDirectory(filepath.Join(t.TempDir(), "nope"), nil)
	require.Error(t, err)
}

func TestWriteFacultyCSV(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out", "faculty_data.csv")
	records := []Faculty{
		{Name: "Jane Q. Researcher", Affiliation: "Carnegie Mellon University", Homepage: "https://janeq.example.edu/", ScholarID: "AbC123xyz"},
		{Name: "John Doe", Affiliation: "Stanford University"},
	}
	require.NoError(t, WriteFacultyCSV(path, records))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{"name", "affiliation", "homepage", "scholarid"},
		{"Jane Q. Researcher", "Carnegie Mellon University", "https://janeq.example.edu/", "AbC123xyz"},
		{"John Doe", "Stanford University", "", ""},
	}, rows)
}

func TestWriteFacultyCSVEmptyStillWritesHeader(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "faculty_data.csv")
	require.NoError(t, WriteFacultyCSV(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "name,affiliation,homepage,scholarid\n", string(data))
}
