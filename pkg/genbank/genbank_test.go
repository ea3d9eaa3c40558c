package genbank

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleRecord = `LOCUS       TEST000001              1200 bp    DNA     linear   BCT 01-JAN-2020
DEFINITION  Streptococcus test strain chromosome, partial
            sequence.
ACCESSION   TEST000001 TEST000002
VERSION     TEST000001.1
KEYWORDS    .
SOURCE      Streptococcus mutans
  ORGANISM  Streptococcus mutans
            Bacteria; Bacillota; Bacilli; Lactobacillales; Streptococcaceae;
            Streptococcus.
FEATURES             Location/Qualifiers
     source          1..1200
                     /organism="Streptococcus mutans"
     gene            1..300
                     /locus_tag="SMU_0001"
     CDS             1..300
                     /locus_tag="SMU_0001"
                     /product="chromosomal replication initiator protein
                     DnaA"
                     /protein_id="AAN57900.1"
                     /translation="MTEKEKIWDKVLEIAQ
                     QQLSE"
     CDS             complement(join(400..500,
                     600..700))
                     /locus_tag="SMU_0002"
                     /product="the ""quoted"" protein"
                     /pseudo
     CDS             800..1100
                     /locus_tag="SMU_0003"
                     /note="ends in
                     /slash-leading text"
                     /product="hypothetical protein"
ORIGIN
        1 atgaccgaaa aagaaaaaat ttgggataaa
//
`

func TestRead(t *testing.T) {
	rec, err := Read(strings.NewReader(sampleRecord))
	require.NoError(t, err)

	require.Equal(t, "TEST000001", rec.Locus)
	require.Equal(t, 1200, rec.Length)
	require.Equal(t, "Streptococcus test strain chromosome, partial sequence", rec.Definition)
	require.Equal(t, "TEST000001", rec.Accession)
	require.Equal(t, "TEST000001.1", rec.Version)
	require.Equal(t, "Streptococcus mutans", rec.Organism)
	require.Equal(t, "Bacteria; Bacillota; Bacilli; Lactobacillales; Streptococcaceae; Streptococcus", rec.Taxonomy)
	require.Len(t, rec.Features, 5)

	cds := rec.CDS()
	require.Len(t, cds, 3)

	first := cds[0]
	require.Equal(t, "1..300", first.Location)
	product, ok := first.First("product")
	require.True(t, ok)
	require.Equal(t, "chromosomal replication initiator protein DnaA", product)
	translation, _ := first.First("translation")
	require.Equal(t, "MTEKEKIWDKVLEIAQQQLSE", translation)
	id, ok := first.First("protein_id")
	require.True(t, ok)
	require.Equal(t, "AAN57900.1", id)

	second := cds[1]
	require.Equal(t, "complement(join(400..500,600..700))", second.Location)
	product, _ = second.First("product")
	require.Equal(t, `the "quoted" protein`, product)
	pseudo, ok := second.First("pseudo")
	require.True(t, ok)
	require.Empty(t, pseudo)
	_, ok = second.First("protein_id")
	require.False(t, ok)

	third := cds[2]
	note, _ := third.First("note")
	require.Equal(t, "ends in /slash-leading text", note)
	product, _ = third.First("product")
	require.Equal(t, "hypothetical protein", product)
}

const repeatedQualifiers = `LOCUS       TEST000003               600 bp    DNA     linear   BCT 01-JAN-2020
FEATURES             Location/Qualifiers
     CDS             1..300
                     /locus_tag="SMU_0101"
                     /product="replication protein"
                     /product="second product"
                     /db_xref="GI:1"
                     /db_xref="GeneID:2"
                     /protein_id=""
//
`

func TestReadRepeatedQualifiers(t *testing.T) {
	rec, err := Read(strings.NewReader(repeatedQualifiers))
	require.NoError(t, err)

	cds := rec.CDS()
	require.Len(t, cds, 1)
	require.Equal(t, []Qualifier{
		{Name: "locus_tag", Value: "SMU_0101"},
		{Name: "product", Value: "replication protein"},
		{Name: "product", Value: "second product"},
		{Name: "db_xref", Value: "GI:1"},
		{Name: "db_xref", Value: "GeneID:2"},
		{Name: "protein_id", Value: ""},
	}, cds[0].Qualifiers)

	product, ok := cds[0].First("product")
	require.True(t, ok)
	require.Equal(t, "replication protein", product)

	id, ok := cds[0].First("protein_id")
	require.True(t, ok, "empty value is still present")
	require.Empty(t, id)
	_, ok = cds[0].First("gene")
	require.False(t, ok)
}

func TestReadRecordCount(t *testing.T) {
	_, err := Read(strings.NewReader(""))
	require.ErrorIs(t, err, ErrNoRecord)

	_, err = Read(strings.NewReader(sampleRecord + sampleRecord))
	require.ErrorIs(t, err, ErrMultipleRecords)

	recs, err := readAll(strings.NewReader(sampleRecord + "\n" + sampleRecord))
	require.NoError(t, err)
	require.Len(t, recs, 2)
}

func TestReadUnterminated(t *testing.T) {
	truncated := strings.TrimSuffix(sampleRecord, "//\n")
	_, err := Read(strings.NewReader(truncated))
	require.Error(t, err)
	require.Contains(t, err.Error(), "not terminated")
}

func TestReadMalformedFeature(t *testing.T) {
	bad := strings.Replace(sampleRecord, "     source          1..1200", "     source", 1)
	_, err := Read(strings.NewReader(bad))
	require.Error(t, err)
	require.Contains(t, err.Error(), "malformed feature line")
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()

	plain := filepath.Join(dir, "species_1.gb")
	require.NoError(t, os.WriteFile(plain, []byte(sampleRecord), 0o644))

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(sampleRecord))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	zipped := filepath.Join(dir, "species_2.gb.gz")
	require.NoError(t, os.WriteFile(zipped, buf.Bytes(), 0o644))

	for _, path := range []string{plain, zipped} {
		rec, err := ReadFile(path)
		require.NoError(t, err, path)
		require.Len(t, rec.CDS(), 3, path)
	}

	_, err = ReadFile(filepath.Join(dir, "missing.gb"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
