package labels

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(filename, content string) error {
	return os.WriteFile(filename, []byte(content), 0644)
}

func TestNormalize(t *testing.T) {
	table := &Table{
		Canonical: map[string]string{
			"chicken": "chicken",
			"hen":     "chicken",
			"rooster": "chicken",
		},
		Ambiguous: []string{"unknown bird"},
	}

	for _, raw := range []string{"chicken", "hen", "rooster"} {
		canonical, err := table.Normalize(raw)
		require.NoError(t, err)
		require.Equal(t, "chicken", canonical)
	}

	// Matching is case-sensitive and exact. "Hen" is not "hen".
	_, err := table.Normalize("Hen")
	require.ErrorIs(t, err, ErrUnmappedLabel)

	_, err = table.Normalize("ostrich")
	require.ErrorIs(t, err, ErrUnmappedLabel)

	_, err = table.Normalize("unknown bird")
	require.ErrorIs(t, err, ErrAmbiguousLabel)
	require.True(t, table.IsAmbiguous("unknown bird"))
	require.False(t, table.IsAmbiguous("hen"))
}

func TestDefaultTable(t *testing.T) {
	table := DefaultTable("chicken")
	for _, raw := range []string{"chicken", "hen", "rooster", "chick", "hens"} {
		canonical, err := table.Normalize(raw)
		require.NoError(t, err)
		require.Equal(t, "chicken", canonical)
	}
	require.True(t, table.IsAmbiguous("unknown"))

	// Non-chicken concepts get only the identity mapping.
	cow := DefaultTable("cow")
	canonical, err := cow.Normalize("cow")
	require.NoError(t, err)
	require.Equal(t, "cow", canonical)
	_, err = cow.Normalize("hen")
	require.ErrorIs(t, err, ErrUnmappedLabel)
}

func TestLoadSaveTable(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "mapping.json")
	table := DefaultTable("chicken")
	require.NoError(t, SaveTable(filename, table))

	loaded, err := LoadTable(filename)
	require.NoError(t, err)
	require.Equal(t, table.Canonical, loaded.Canonical)
	require.Equal(t, table.Ambiguous, loaded.Ambiguous)
}

func TestLoadClassList(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "classes.txt")
	require.NoError(t, writeFile(filename, "chicken\n\nhen\n"))
	classes, err := LoadClassList(filename)
	require.NoError(t, err)
	require.Equal(t, []string{"chicken", "hen"}, classes)
}
