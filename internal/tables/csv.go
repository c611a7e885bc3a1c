package tables

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"headway.opentransitsoftware.org/internal/logging"
)

// FromCSVFile reads a comma-separated file into a Table. Files ending in
// ".gz" are decompressed transparently. The first record is the header.
func FromCSVFile(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, fmt.Errorf("error opening table file: %w", err)
	}
	logger := slog.Default().With(slog.String("component", "table_reader"))
	defer logging.SafeCloseWithLogging(f, logger, path)

	name := filepath.Base(path)
	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return Table{}, fmt.Errorf("error opening gzip table file: %w", err)
		}
		defer logging.SafeCloseWithLogging(gz, logger, path+" (gzip)")
		r = gz
		name = strings.TrimSuffix(name, ".gz")
	}

	return FromCSV(r, name)
}

// FromCSV reads comma-separated data into a Table named name.
func FromCSV(r io.Reader, name string) (Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return Table{}, fmt.Errorf("table %s is empty: no header row", name)
	}
	if err != nil {
		return Table{}, fmt.Errorf("error reading table %s header: %w", name, err)
	}

	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = strings.TrimSpace(h)
	}

	t := Table{Name: name, Cols: cols}
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("error reading table %s: %w", name, err)
		}
		row := make(Row, len(cols))
		for i, v := range record {
			if i < len(cols) {
				row[cols[i]] = strings.TrimSpace(v)
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}
