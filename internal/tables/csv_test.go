package tables

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vehicles_ft.txt")
	content := "vehicle_name,seated_capacity\nartic_bus,60\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	table, err := FromCSVFile(path)
	require.NoError(t, err)

	assert.Equal(t, "vehicles_ft.txt", table.Name)
	require.Equal(t, 1, table.Len())
	assert.Equal(t, "60", table.Rows[0]["seated_capacity"])
}

func TestFromCSVFile_Gzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vehicles_ft.txt.gz")

	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte("vehicle_name,number_of_doors\nstreetcar,2\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	table, err := FromCSVFile(path)
	require.NoError(t, err)

	// gzip suffix is stripped from the table name
	assert.Equal(t, "vehicles_ft.txt", table.Name)
	require.Equal(t, 1, table.Len())
	assert.Equal(t, "2", table.Rows[0]["number_of_doors"])
}

func TestFromCSVFile_Missing(t *testing.T) {
	_, err := FromCSVFile(filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
}
