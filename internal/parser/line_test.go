package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTextFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "words.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseLines_Basic(t *testing.T) {
	path := writeTextFile(t, "run: chạy\njump: nhảy\n")

	res, err := Parse("f1", path)
	require.NoError(t, err)

	require.Len(t, res.Records, 2)
	assert.Equal(t, 2, res.TotalLines)
	assert.Empty(t, res.Errors)
	assert.Empty(t, res.Duplicates)

	assert.Equal(t, "run", res.Records[0].Word)
	assert.Equal(t, "chạy", res.Records[0].Meaning)
	assert.Equal(t, 1, res.Records[0].Line)
	assert.Equal(t, "f1", res.Records[0].FolderID)
}

func TestParseLines_SeparatorVariants(t *testing.T) {
	path := writeTextFile(t, "run - chạy\nswim – bơi\nfly — bay\nwalk: đi bộ\n")

	res, err := Parse("f1", path)
	require.NoError(t, err)

	require.Len(t, res.Records, 4)
	for i, want := range []string{"chạy", "bơi", "bay", "đi bộ"} {
		assert.Equal(t, want, res.Records[i].Meaning)
	}
}

func TestParseLines_OrdinalPrefixes(t *testing.T) {
	path := writeTextFile(t, "1. run: chạy\n 12) jump: nhảy\n3 - swim: bơi\n")

	res, err := Parse("f1", path)
	require.NoError(t, err)

	require.Len(t, res.Records, 3)
	assert.Equal(t, "run", res.Records[0].Word)
	assert.Equal(t, "jump", res.Records[1].Word)
	assert.Equal(t, "swim", res.Records[2].Word)
}

func TestParseLines_BlankLinesNotCounted(t *testing.T) {
	path := writeTextFile(t, "run: chạy\n\n   \njump: nhảy\n")

	res, err := Parse("f1", path)
	require.NoError(t, err)

	assert.Equal(t, 2, res.TotalLines)
	assert.Len(t, res.Records, 2)
	// Line numbers refer to the file, blank lines included.
	assert.Equal(t, 4, res.Records[1].Line)
}

func TestParseLines_MalformedLines(t *testing.T) {
	path := writeTextFile(t, "run: chạy\njust a word\n: no word\nempty:\n")

	res, err := Parse("f1", path)
	require.NoError(t, err)

	assert.Len(t, res.Records, 1)
	require.Len(t, res.Errors, 3)
	assert.Equal(t, 4, res.TotalLines)
	assert.Equal(t, "line 2", res.Errors[0].Location)
	assert.Equal(t, "parse", res.Errors[0].Stage)
}

func TestParseLines_Duplicates(t *testing.T) {
	path := writeTextFile(t, "run: chạy\nRUN: chạy\njump: nhảy\n run : lại chạy\n")

	res, err := Parse("f1", path)
	require.NoError(t, err)

	require.Len(t, res.Records, 2)
	require.Len(t, res.Duplicates, 2)
	assert.Equal(t, 4, res.TotalLines)
	assert.Equal(t, "RUN", res.Duplicates[0].Word)
	assert.Equal(t, 2, res.Duplicates[0].Line)
	// First occurrence wins.
	assert.Equal(t, "chạy", res.Records[0].Meaning)
}

// Every counted line lands in exactly one bucket.
func TestParseLines_Accounting(t *testing.T) {
	path := writeTextFile(t, "run: chạy\nrun: chạy\njump : nhảy\nbroken line\n\n")

	res, err := Parse("f1", path)
	require.NoError(t, err)

	assert.Equal(t, res.TotalLines, len(res.Records)+len(res.Duplicates)+len(res.Errors))
	assert.Equal(t, 4, res.TotalLines)
}

func TestParse_UnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.csv")
	require.NoError(t, os.WriteFile(path, []byte("run,chạy\n"), 0o644))

	_, err := Parse("f1", path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestParse_MissingFile(t *testing.T) {
	_, err := Parse("f1", filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
}
