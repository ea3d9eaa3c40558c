package sheet

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestRoundTrip(t *testing.T) {
	rows := [][]string{
		{"SMU_0001", "chromosomal replication initiator protein DnaA", "AAN57900.1"},
		{"SMU_0002", "hypothetical protein", "No id given"},
		{"SMU_0003", `product with "quotes", and a comma`, "AAN57902.1"},
	}
	path := filepath.Join(t.TempDir(), "SMU_0004")

	if err := WriteRows(path, rows); err != nil {
		t.Fatalf("WriteRows() error = %v", err)
	}
	got, err := ReadRows(path)
	if err != nil {
		t.Fatalf("ReadRows() error = %v", err)
	}
	if !reflect.DeepEqual(got, rows) {
		t.Errorf("round trip mismatch:\n got %q\nwant %q", got, rows)
	}
}

func TestReadColumn(t *testing.T) {
	tests := []struct {
		name    string
		content string
		col     int
		want    []string
	}{
		{"first column", "SMU_0001\nSMU_0500,extra\n", 0, []string{"SMU_0001", "SMU_0500"}},
		{"excel bom", "\xEF\xBB\xBFSMU_0001\r\nSMU_0002\r\n", 0, []string{"SMU_0001", "SMU_0002"}},
		{"hit table accessions", "query1,WP_000001.1,98.5\nquery1,WP_000002.1,97.0\n", 1, []string{"WP_000001.1", "WP_000002.1"}},
		{"blank lines skipped", "a,b\n\n\nc,d\n", 1, []string{"b", "d"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "in.csv", tt.content)
			got, err := ReadColumn(path, tt.col)
			if err != nil {
				t.Fatalf("ReadColumn() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ReadColumn() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReadColumnShortRow(t *testing.T) {
	path := writeFile(t, "hits.csv", "q,WP_1\nq\n")
	_, err := ReadColumn(path, 1)

	var short *ShortRowError
	if !errors.As(err, &short) {
		t.Fatalf("expected ShortRowError, got %v", err)
	}
	if short.Row != 2 {
		t.Errorf("expected row 2, got %d", short.Row)
	}
}

func TestReadColumnMissingFile(t *testing.T) {
	_, err := ReadColumn(filepath.Join(t.TempDir(), "nope.csv"), 0)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
