// Package sheet reads and writes the comma-separated files exchanged with spreadsheets.
package sheet

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// Excel prefixes UTF-8 exports with a byte order mark.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ShortRowError reports a row that does not reach the requested column.
type ShortRowError struct {
	Path string
	Row  int
	Want int
}

func (e *ShortRowError) Error() string {
	return fmt.Sprintf("%s: row %d has no column %d", e.Path, e.Row, e.Want+1)
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	return cr
}

// ReadRows reads every row of path. Rows may differ in length.
func ReadRows(path string) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	rows, err := newReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

// ReadColumn returns column col (0-based) of every row in path.
func ReadColumn(path string, col int) ([]string, error) {
	if col < 0 {
		return nil, fmt.Errorf("invalid column %d", col)
	}
	rows, err := ReadRows(path)
	if err != nil {
		return nil, err
	}

	values := make([]string, 0, len(rows))
	for i, row := range rows {
		if len(row) <= col {
			return nil, &ShortRowError{Path: path, Row: i + 1, Want: col}
		}
		values = append(values, row[col])
	}
	return values, nil
}

// WriteRows writes rows to path without a header, replacing any existing file.
func WriteRows(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := Write(f, rows); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}

func Write(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}
