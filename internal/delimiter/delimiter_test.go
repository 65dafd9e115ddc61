package delimiter_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/datagruntio/cleanroom/internal/delimiter"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestInferByExtension(t *testing.T) {
	path := writeFile(t, "data.tsv", "a\tb\tc\n1\t2\t3\n")
	got, err := delimiter.Infer(path)
	require.NoError(t, err)
	require.Equal(t, '\t', got)
}

func TestInferByFrequency(t *testing.T) {
	path := writeFile(t, "data.csv", "name,age,city\nAlice,30,NYC\n")
	got, err := delimiter.Infer(path)
	require.NoError(t, err)
	require.Equal(t, ',', got)
}

func TestInferSemicolon(t *testing.T) {
	path := writeFile(t, "data.txt", "name;age;city\nAlice;30;NYC\n")
	got, err := delimiter.Infer(path)
	require.NoError(t, err)
	require.Equal(t, ';', got)
}

func TestInferFallsBackToComma(t *testing.T) {
	path := writeFile(t, "data.txt", "justoneword\nanotherword\n")
	got, err := delimiter.Infer(path)
	require.NoError(t, err)
	require.Equal(t, ',', got)
}

func TestReadFirstLines(t *testing.T) {
	path := writeFile(t, "data.csv", "a,b\n1,2\n3,4\n5,6\n")
	lines, err := delimiter.ReadFirstLines(path, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"a,b", "1,2"}, lines)
}

func TestCountDataLines(t *testing.T) {
	path := writeFile(t, "data.csv", "header\nrow1\nrow2\nrow3\n")
	count, err := delimiter.CountDataLines(path)
	require.NoError(t, err)
	require.Equal(t, int64(3), count)
}

func TestCountDataLinesEmptyFile(t *testing.T) {
	path := writeFile(t, "empty.csv", "")
	count, err := delimiter.CountDataLines(path)
	require.NoError(t, err)
	require.Equal(t, int64(0), count)
}
