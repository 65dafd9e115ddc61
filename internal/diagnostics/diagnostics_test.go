package diagnostics_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/datagruntio/cleanroom/internal/diagnostics"
	"github.com/datagruntio/cleanroom/internal/model"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestInspectRawFileCSV(t *testing.T) {
	path := writeFile(t, "orders.csv", "Order ID,Customer Name,Amount\n1,Alice,10.50\n2,Bob,20.00\n")
	report, err := diagnostics.InspectRawFile(path)
	require.NoError(t, err)

	require.Equal(t, model.FormatCSV, report.DetectedFormat)
	require.False(t, report.Binary)
	require.Equal(t, ',', []rune(report.Delimiter)[0])
	require.Equal(t, int64(2), report.DataLineCount)
	require.Equal(t, []string{"order_id", "customer_name", "amount"}, report.NormalizedHeaders)
	require.NotEmpty(t, report.SampleLines)
}

func TestInspectRawFileTSV(t *testing.T) {
	path := writeFile(t, "orders.tsv", "id\tname\n1\tAlice\n")
	report, err := diagnostics.InspectRawFile(path)
	require.NoError(t, err)
	require.Equal(t, "\t", report.Delimiter)
	require.Equal(t, []string{"id", "name"}, report.NormalizedHeaders)
}

func TestInspectRawFileJSONLNotesOnly(t *testing.T) {
	path := writeFile(t, "events.jsonl", `{"a":1}`+"\n"+`{"a":2}`+"\n")
	report, err := diagnostics.InspectRawFile(path)
	require.NoError(t, err)
	require.Equal(t, model.FormatJSONL, report.DetectedFormat)
	require.Empty(t, report.NormalizedHeaders)
	require.NotEmpty(t, report.Notes)
}

func TestInspectRawFileBinarySkipsTextInspection(t *testing.T) {
	path := writeFile(t, "data.parquet", "PAR1ignoredbytesPAR1")
	report, err := diagnostics.InspectRawFile(path)
	require.NoError(t, err)
	require.True(t, report.Binary)
	require.Empty(t, report.SampleLines)
	require.NotEmpty(t, report.Notes)
}

func TestInspectRawFileMissingFile(t *testing.T) {
	_, err := diagnostics.InspectRawFile(filepath.Join(t.TempDir(), "does-not-exist.csv"))
	require.Error(t, err)
}
