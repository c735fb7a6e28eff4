package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestScan_ExclusionRules(t *testing.T) {
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "keep.txt"))
	writeFile(t, filepath.Join(root, ".obsidian", "x"))
	writeFile(t, filepath.Join(root, "node_modules", "y"))
	writeFile(t, filepath.Join(root, "src", "main.rs"))
	writeFile(t, filepath.Join(root, ".DS_Store"))

	got, err := Scan(root, []string{"node_modules"}, true, nil)
	require.NoError(t, err)

	names := make([]string, len(got))
	for i, d := range got {
		names[i] = d.RelativePath.String()
	}

	assert.ElementsMatch(t, []string{"keep.txt", "src/main.rs"}, names)
}

func TestScan_SyncIgnoreMarker(t *testing.T) {
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "keep.txt"))
	writeFile(t, filepath.Join(root, "secret.log"))
	require.NoError(t, os.WriteFile(filepath.Join(root, IgnoreMarkerFile), []byte("*.log\n"), 0o644))

	got, err := Scan(root, nil, false, nil)
	require.NoError(t, err)

	names := make([]string, len(got))
	for i, d := range got {
		names[i] = d.RelativePath.String()
	}

	assert.Contains(t, names, "keep.txt")
	assert.NotContains(t, names, "secret.log")
}

func TestScan_NoExclusions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"))

	got, err := Scan(root, nil, false, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(1), got[0].SizeInBytes)
}
