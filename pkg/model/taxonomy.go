package model

import "strings"

// Lineage is a list of taxonomic names, broad to specific.
type Lineage []string

// SplitLineage splits an Entrez taxonomy string on ';'. Names keep their surrounding
// spaces, so "Bacteria; Bacillota" gives "Bacteria" and " Bacillota".
func SplitLineage(s string) Lineage {
	return strings.Split(s, ";")
}

// LineageRows splits every taxonomy string into one CSV row.
func LineageRows(taxonomies []string) [][]string {
	rows := make([][]string, 0, len(taxonomies))
	for _, t := range taxonomies {
		rows = append(rows, SplitLineage(t))
	}
	return rows
}
