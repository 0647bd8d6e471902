// Package fs writes collected records to local files.
package fs

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fwojciec/listwalk"
)

// Format selects the output file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatBoth Format = "both"
)

// Writer writes record batches to timestamped files in a directory.
type Writer struct {
	dir    string
	base   string
	format Format
	fields []string
}

// NewWriter creates a new Writer. Files are named base_<timestamp> with
// an extension per format. fields sets the CSV column order; when empty,
// columns fall back to the sorted union of record keys.
func NewWriter(dir, base string, format Format, fields []string) *Writer {
	return &Writer{
		dir:    dir,
		base:   base,
		format: format,
		fields: fields,
	}
}

// Write persists the records and returns the paths of the written files.
func (w *Writer) Write(records []listwalk.Record) ([]string, error) {
	switch w.format {
	case FormatJSON, FormatCSV, FormatBoth:
	default:
		return nil, listwalk.Errorf(listwalk.EINVALID, "unknown output format %q", w.format)
	}

	if records == nil {
		records = []listwalk.Record{}
	}

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return nil, err
	}

	stem := filepath.Join(w.dir, w.base+"_"+time.Now().Format("20060102_150405"))

	var paths []string
	if w.format == FormatJSON || w.format == FormatBoth {
		path := stem + ".json"
		if err := w.writeJSON(path, records); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	if w.format == FormatCSV || w.format == FormatBoth {
		path := stem + ".csv"
		if err := w.writeCSV(path, records); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}

	return paths, nil
}

func (w *Writer) writeJSON(path string, records []listwalk.Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

func (w *Writer) writeCSV(path string, records []listwalk.Record) error {
	header := w.fields
	if len(header) == 0 {
		header = fieldUnion(records)
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, record := range records {
		row := make([]string, len(header))
		for i, field := range header {
			row[i] = record[field]
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}

	return writeFileAtomic(path, buf.Bytes())
}

// fieldUnion returns every field name appearing in the records, sorted.
func fieldUnion(records []listwalk.Record) []string {
	seen := make(map[string]bool)
	for _, record := range records {
		for field := range record {
			seen[field] = true
		}
	}

	fields := make([]string, 0, len(seen))
	for field := range seen {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// writeFileAtomic writes to a temporary file and renames it into place,
// so a partially written file never appears under the final name.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
