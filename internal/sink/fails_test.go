package sink

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteFailsOverwrites(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "fails")
	require.NoError(t, WriteFails(path, []string{"harvard", "yale"}, false))
	require.NoError(t, WriteFails(path, []string{"yale"}, false))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "yale\n", string(data))
}

func TestWriteFailsAppends(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "fails")
	require.NoError(t, WriteFails(path, []string{"harvard"}, true))
	require.NoError(t, WriteFails(path, []string{"yale"}, true))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "harvard\nyale\n", string(data))
}

func TestWriteFailsEmptyRunTruncates(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "fails")
	require.NoError(t, WriteFails(path, []string{"harvard"}, false))
	require.NoError(t, WriteFails(path, nil, false))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Empty(t, string(data))
}

func TestWriteFailsRequiresPath(t *testing.T) {
	t.Parallel()

	require.Error(t, WriteFails("", []string{"a"}, false))
}
