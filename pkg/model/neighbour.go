// Locating a CDS by locus tag and collecting the CDS records around it

package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yumyai/gbneighbours/pkg/genbank"
)

var (
	ErrLocusTagNotFound = errors.New("locus tag not found")
	ErrIndexOutOfRange  = errors.New("index of interest out of range")
	ErrNegativeRadius   = errors.New("radius must not be negative")
	ErrMissingField     = errors.New("required qualifier missing")
)

// MissingFieldError is returned when a feature inside the window lacks a required
// qualifier.
type MissingFieldError struct {
	Index int
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("feature %d: %s: %s", e.Index, ErrMissingField, e.Field)
}

func (e *MissingFieldError) Unwrap() error {
	return ErrMissingField
}

// DuplicateLocusTagError lists every position carrying the same locus tag.
type DuplicateLocusTagError struct {
	Tag     string
	Indices []int
}

func (e *DuplicateLocusTagError) Error() string {
	idx := make([]string, len(e.Indices))
	for i, v := range e.Indices {
		idx[i] = fmt.Sprint(v)
	}
	return fmt.Sprintf("locus tag %q found %d times (positions %s)", e.Tag, len(e.Indices), strings.Join(idx, ", "))
}

type Options struct {
	Radius      int
	Placeholder string
}

// CodingSequences turns the CDS features of a record into a FeatureSequence, keeping
// the first value of each qualifier.
func CodingSequences(rec *genbank.Record) FeatureSequence {
	cds := rec.CDS()
	seq := make(FeatureSequence, 0, len(cds))
	for _, f := range cds {
		var feat Feature
		feat.LocusTag, feat.HasLocusTag = f.First("locus_tag")
		feat.Product, feat.HasProduct = f.First("product")
		if id, ok := f.First("protein_id"); ok {
			feat.ProteinID = SomeProteinID(id)
		}
		seq = append(seq, feat)
	}
	return seq
}

// FindIndex returns the position of the first feature whose locus tag equals tag.
func FindIndex(seq FeatureSequence, tag string) (int, error) {
	for i, f := range seq {
		if f.HasLocusTag && f.LocusTag == tag {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrLocusTagNotFound, tag)
}

// FindIndexStrict is FindIndex but fails when tag occurs more than once.
func FindIndexStrict(seq FeatureSequence, tag string) (int, error) {
	var found []int
	for i, f := range seq {
		if f.HasLocusTag && f.LocusTag == tag {
			found = append(found, i)
		}
	}
	switch len(found) {
	case 0:
		return -1, fmt.Errorf("%w: %q", ErrLocusTagNotFound, tag)
	case 1:
		return found[0], nil
	}
	return -1, &DuplicateLocusTagError{Tag: tag, Indices: found}
}

// ExtractNeighbours is ExtractNeighboursWith using the NoProteinID placeholder.
func ExtractNeighbours(seq FeatureSequence, index, radius int) (Neighbourhood, error) {
	return ExtractNeighboursWith(seq, index, Options{Radius: radius, Placeholder: NoProteinID})
}

// ExtractNeighboursWith returns the features within opts.Radius positions of index,
// excluding index itself. The window is clamped at both ends of the sequence. An
// empty opts.Placeholder means NoProteinID.
func ExtractNeighboursWith(seq FeatureSequence, index int, opts Options) (Neighbourhood, error) {
	if opts.Placeholder == "" {
		opts.Placeholder = NoProteinID
	}
	if index < 0 || index >= len(seq) {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, index, len(seq))
	}
	if opts.Radius < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeRadius, opts.Radius)
	}

	// Clamp before adding so a huge radius cannot overflow.
	downFirst := index + 1
	downLast := len(seq) - 1
	if opts.Radius < downLast-index {
		downLast = index + opts.Radius
	}

	// Strict >. At index == radius both forms start at 0.
	upFirst := 0
	if index > opts.Radius {
		upFirst = index - opts.Radius
	}
	upLast := index - 1

	out := make(Neighbourhood, 0, (upLast-upFirst+1)+(downLast-downFirst+1))
	for _, span := range [][2]int{{upFirst, upLast}, {downFirst, downLast}} {
		for i := span[0]; i <= span[1]; i++ {
			rec, err := neighbourRecord(seq[i], i, opts.Placeholder)
			if err != nil {
				return nil, err
			}
			out = append(out, rec)
		}
	}
	return out, nil
}

func neighbourRecord(f Feature, i int, placeholder string) (NeighbourRecord, error) {
	if !f.HasLocusTag {
		return NeighbourRecord{}, &MissingFieldError{Index: i, Field: "locus_tag"}
	}
	if !f.HasProduct {
		return NeighbourRecord{}, &MissingFieldError{Index: i, Field: "product"}
	}
	return NeighbourRecord{
		LocusTag:  f.LocusTag,
		Product:   f.Product,
		ProteinID: f.ProteinID.OrPlaceholder(placeholder),
	}, nil
}
