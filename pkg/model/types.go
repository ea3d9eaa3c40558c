package model

// Radius used when the caller does not ask for another one.
const DefaultRadius = 10

// Written in place of the protein id of a CDS that has none.
const NoProteinID = "No id given"

// ProteinID is either a protein accession or nothing. The zero value is absent.
type ProteinID struct {
	Value string
	Valid bool
}

func SomeProteinID(v string) ProteinID {
	return ProteinID{Value: v, Valid: true}
}

// OrPlaceholder returns the id, or placeholder when there is none.
func (p ProteinID) OrPlaceholder(placeholder string) string {
	if p.Valid {
		return p.Value
	}
	return placeholder
}

// Feature is one annotated coding region. HasLocusTag and HasProduct record whether
// the qualifier was present at all, which is not the same as an empty value.
type Feature struct {
	LocusTag    string
	Product     string
	ProteinID   ProteinID
	HasLocusTag bool
	HasProduct  bool
}

// Ordered as in the source file; neighbours are defined by position here.
type FeatureSequence []Feature

type NeighbourRecord struct {
	LocusTag  string `json:"locus_tag"`
	Product   string `json:"product"`
	ProteinID string `json:"protein_id"`
}

// Row is the CSV layout: locus_tag,product,protein_id.
func (n NeighbourRecord) Row() []string {
	return []string{n.LocusTag, n.Product, n.ProteinID}
}

// Upstream neighbours first, then downstream, both in increasing position.
type Neighbourhood []NeighbourRecord

func (n Neighbourhood) Rows() [][]string {
	rows := make([][]string, 0, len(n))
	for _, r := range n {
		rows = append(rows, r.Row())
	}
	return rows
}
