package dblp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUniversityItems(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "us-schools")
	content := "Carnegie Mellon\n\n  MIT \ncarnegie mellon\nStanford\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	items, err := UniversityItems(path)
	require.NoError(t, err)
	require.Len(t, items, 3, "blank lines and duplicates are dropped")
	require.Equal(t, "carnegie mellon", items[0].Key)
	require.Equal(t, "carnegie mellon", items[0].Target)
	require.Equal(t, "mit", items[1].Key)
	require.Equal(t, "stanford", items[2].Key)
}

func TestUniversityItemsMissingFile(t *testing.T) {
	t.Parallel()

	_, err := UniversityItems(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func TestFacultyItems(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	mit := "author,affiliation\n" +
		"https://dblp.org/pid/12/345,MIT\n" +
		"https://dblp.org/pid/99/1,MIT\n"
	stanford := "Author,Affiliation\n" +
		"https://dblp.org/pid/12/345,Stanford\n" + // duplicate across files
		"https://dblp.org/pid/42/7,Stanford\n" +
		",Stanford\n"
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "mit_faculty.csv"), []byte(mit), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "stanford_faculty.csv"), []byte(stanford), 0o600))

	items, err := FacultyItems(dataDir)
	require.NoError(t, err)
	require.Len(t, items, 3)

	parents := make(map[string]string)
	for _, item := range items {
		require.Equal(t, item.Key, item.Target)
		parents[item.Key] = item.Parent
	}
	require.Equal(t, "mit", parents["https://dblp.org/pid/12/345"])
	require.Equal(t, "mit", parents["https://dblp.org/pid/99/1"])
	require.Equal(t, "stanford", parents["https://dblp.org/pid/42/7"])
}

func TestFacultyItemsRequiresCSVs(t *testing.T) {
	t.Parallel()

	_, err := FacultyItems(t.TempDir())
	require.Error(t, err)
	require.Contains(t, err.Error(), "run the query stage first")
}

func TestFacultyItemsRequiresAuthorColumn(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dataDir, "mit_faculty.csv"),
		[]byte("url,affiliation\nhttps://dblp.org/pid/1/1,MIT\n"),
		0o600,
	))

	_, err := FacultyItems(dataDir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no author column")
}
