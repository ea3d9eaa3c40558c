// Package genbank reads GenBank flat files into records and their feature tables.
//
// Only what the rest of the module needs is kept: the header fields that identify the
// record, the organism lineage and every feature with its ordered qualifiers. The
// sequence under ORIGIN is skipped.
package genbank

import (
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

var (
	ErrNoRecord        = errors.New("no GenBank record found")
	ErrMultipleRecords = errors.New("more than one GenBank record found")
)

const (
	headerIndent  = "            "          // 12 spaces, header continuation
	featureIndent = "     "                 // 5 spaces, feature key
	qualIndent    = "                     " // 21 spaces, location and qualifiers
	maxLineSize   = 16 * 1024 * 1024
)

// Qualifier is one /name=value pair of a feature. Flag qualifiers such as /pseudo
// have an empty Value.
type Qualifier struct {
	Name  string
	Value string
}

type Feature struct {
	Key        string
	Location   string
	Qualifiers []Qualifier
}

// First returns the first value of the named qualifier. A repeated qualifier keeps
// every value in Qualifiers; only the first is returned. ok is false when the
// qualifier is absent, as opposed to present with an empty value.
func (f Feature) First(name string) (string, bool) {
	for _, q := range f.Qualifiers {
		if q.Name == name {
			return q.Value, true
		}
	}
	return "", false
}

type Record struct {
	Locus      string
	Length     int
	Definition string
	Accession  string
	Version    string
	Organism   string
	Taxonomy   string
	Features   []Feature
}

// CDS returns the coding sequence features in file order.
func (r *Record) CDS() []Feature {
	var cds []Feature
	for _, f := range r.Features {
		if f.Key == "CDS" {
			cds = append(cds, f)
		}
	}
	return cds
}

// ReadFile reads the single record held in path. Files ending in .gz are
// decompressed on the fly.
func ReadFile(path string) (*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	rec, err := Read(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rec, nil
}

// Read parses exactly one record from r.
func Read(r io.Reader) (*Record, error) {
	recs, err := readAll(r)
	if err != nil {
		return nil, err
	}
	switch len(recs) {
	case 0:
		return nil, ErrNoRecord
	case 1:
		return recs[0], nil
	}
	return nil, fmt.Errorf("%w (%d records)", ErrMultipleRecords, len(recs))
}

// readAll parses every record in r.
func readAll(r io.Reader) ([]*Record, error) {
	p := newParser(r)
	var recs []*Record
	for {
		rec, err := p.record()
		if errors.Is(err, io.EOF) {
			return recs, nil
		}
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
}

type parser struct {
	sc     *bufio.Scanner
	lineNo int
	text   string
	held   bool
}

func newParser(r io.Reader) *parser {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &parser{sc: sc}
}

// next advances to the next line, honouring a line pushed back with unread.
func (p *parser) next() bool {
	if p.held {
		p.held = false
		return true
	}
	if !p.sc.Scan() {
		return false
	}
	p.lineNo++
	p.text = strings.TrimRight(p.sc.Text(), "\r")
	return true
}

func (p *parser) unread() {
	p.held = true
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("line %d: %s", p.lineNo, fmt.Sprintf(format, args...))
}

func (p *parser) record() (*Record, error) {
	// skip anything before LOCUS (release file headers, blank lines)
	for {
		if !p.next() {
			if err := p.sc.Err(); err != nil {
				return nil, err
			}
			return nil, io.EOF
		}
		if strings.HasPrefix(p.text, "LOCUS") {
			break
		}
	}

	rec := &Record{}
	cols := strings.Fields(p.text)
	if len(cols) > 1 {
		rec.Locus = cols[1]
	}
	if len(cols) > 2 {
		rec.Length, _ = strconv.Atoi(cols[2])
	}

	for p.next() {
		line := p.text
		switch {
		case strings.TrimSpace(line) == "//":
			return rec, nil
		case strings.HasPrefix(line, "DEFINITION"):
			rec.Definition = strings.TrimSuffix(p.continued(headerValue(line)), ".")
		case strings.HasPrefix(line, "ACCESSION"):
			if fields := strings.Fields(p.continued(headerValue(line))); len(fields) > 0 {
				rec.Accession = fields[0]
			}
		case strings.HasPrefix(line, "VERSION"):
			if fields := strings.Fields(headerValue(line)); len(fields) > 0 {
				rec.Version = fields[0]
			}
		case strings.HasPrefix(line, "  ORGANISM"):
			rec.Organism = strings.TrimSpace(strings.TrimPrefix(line, "  ORGANISM"))
			rec.Taxonomy = strings.TrimSuffix(strings.TrimSpace(p.continued("")), ".")
		case strings.HasPrefix(line, "FEATURES"):
			feats, err := p.features()
			if err != nil {
				return nil, err
			}
			rec.Features = feats
		}
	}
	if err := p.sc.Err(); err != nil {
		return nil, err
	}
	return nil, p.errorf("record %q is not terminated by //", rec.Locus)
}

func headerValue(line string) string {
	if len(line) <= len(headerIndent) {
		return ""
	}
	return strings.TrimSpace(line[len(headerIndent):])
}

// continued appends header continuation lines to first.
func (p *parser) continued(first string) string {
	parts := []string{}
	if first != "" {
		parts = append(parts, first)
	}
	for p.next() {
		if !strings.HasPrefix(p.text, headerIndent) {
			p.unread()
			break
		}
		parts = append(parts, strings.TrimSpace(p.text))
	}
	return strings.Join(parts, " ")
}

func (p *parser) features() ([]Feature, error) {
	var feats []Feature
	for p.next() {
		line := p.text
		if !strings.HasPrefix(line, featureIndent) {
			p.unread()
			return feats, nil
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.HasPrefix(line, qualIndent) {
			return nil, p.errorf("qualifier line outside a feature: %q", line)
		}
		if len(line) <= len(qualIndent) {
			return nil, p.errorf("malformed feature line %q", line)
		}
		f, err := p.feature(strings.TrimSpace(line[5:21]), strings.TrimSpace(line[21:]))
		if err != nil {
			return nil, err
		}
		feats = append(feats, f)
	}
	return feats, nil
}

func (p *parser) feature(key, loc string) (Feature, error) {
	f := Feature{Key: key, Location: loc}

	var cur *Qualifier
	var raw strings.Builder
	finish := func() {
		if cur == nil {
			return
		}
		cur.Value = unquote(raw.String())
		f.Qualifiers = append(f.Qualifiers, *cur)
		cur = nil
		raw.Reset()
	}

	for p.next() {
		line := p.text
		if !strings.HasPrefix(line, qualIndent) {
			p.unread()
			break
		}
		txt := strings.TrimSpace(line[len(qualIndent):])

		// a quoted value may legitimately contain a line starting with '/'
		if cur != nil && openQuote(raw.String()) {
			if cur.Name == "translation" {
				raw.WriteString(txt)
			} else {
				raw.WriteString(" " + txt)
			}
			continue
		}

		if !strings.HasPrefix(txt, "/") {
			if cur == nil {
				f.Location += txt
				continue
			}
			raw.WriteString(" " + txt)
			continue
		}

		finish()
		name, value, _ := strings.Cut(txt[1:], "=")
		cur = &Qualifier{Name: name}
		raw.WriteString(value)
	}
	finish()
	return f, nil
}

// openQuote reports whether a qualifier value starts a quoted string that is not
// closed yet. Embedded quotes are doubled in GenBank, so an odd count means open.
func openQuote(v string) bool {
	return strings.HasPrefix(v, `"`) && strings.Count(v, `"`)%2 == 1
}

func unquote(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 2 && strings.HasPrefix(v, `"`) && strings.HasSuffix(v, `"`) {
		v = v[1 : len(v)-1]
		v = strings.ReplaceAll(v, `""`, `"`)
	}
	return v
}
