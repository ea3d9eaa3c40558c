package ncbi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

const gbsetXML = `<?xml version="1.0" encoding="UTF-8" ?>
<!DOCTYPE GBSet PUBLIC "-//NCBI//NCBI GBSeq/EN" "https://www.ncbi.nlm.nih.gov/dtd/NCBI_GBSeq.dtd">
<GBSet>
  <GBSeq>
    <GBSeq_locus>WP_000001</GBSeq_locus>
    <GBSeq_primary-accession>WP_000001</GBSeq_primary-accession>
    <GBSeq_accession-version>WP_000001.1</GBSeq_accession-version>
    <GBSeq_definition>DNA-binding protein [Streptococcus]</GBSeq_definition>
    <GBSeq_organism>Streptococcus mutans</GBSeq_organism>
    <GBSeq_taxonomy>Bacteria; Bacillota; Bacilli; Lactobacillales; Streptococcaceae; Streptococcus</GBSeq_taxonomy>
  </GBSeq>
  <GBSeq>
    <GBSeq_primary-accession>WP_000002</GBSeq_primary-accession>
    <GBSeq_accession-version>WP_000002.3</GBSeq_accession-version>
    <GBSeq_organism>Escherichia coli</GBSeq_organism>
    <GBSeq_taxonomy>Bacteria; Pseudomonadota; Gammaproteobacteria</GBSeq_taxonomy>
  </GBSeq>
</GBSet>`

func okResponse(body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func TestNewClientRequiresEmail(t *testing.T) {
	_, err := NewClient(Config{APIKey: "k"})
	require.ErrorIs(t, err, ErrNoEmail)
}

func TestFetchProteins(t *testing.T) {
	var seen *http.Request
	hc := &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		seen = r
		return okResponse(gbsetXML), nil
	})}

	c, err := NewClient(Config{Email: "me@example.org", APIKey: "secret"}, WithHTTPClient(hc))
	require.NoError(t, err)

	recs, err := c.FetchProteins(context.Background(), []string{"WP_000001.1", "WP_000002"})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, "Bacteria; Bacillota; Bacilli; Lactobacillales; Streptococcaceae; Streptococcus", recs[0].Taxonomy)
	require.True(t, recs[0].Matches("WP_000001.1"))
	require.True(t, recs[1].Matches("WP_000002"))
	require.False(t, recs[1].Matches("WP_000002.1"))

	require.Equal(t, http.MethodGet, seen.Method)
	require.True(t, strings.HasSuffix(seen.URL.Path, "/efetch.fcgi"))
	q := seen.URL.Query()
	require.Equal(t, "protein", q.Get("db"))
	require.Equal(t, "gp", q.Get("rettype"))
	require.Equal(t, "xml", q.Get("retmode"))
	require.Equal(t, "WP_000001.1,WP_000002", q.Get("id"))
	require.Equal(t, "me@example.org", q.Get("email"))
	require.Equal(t, "secret", q.Get("api_key"))
	require.Equal(t, DefaultTool, q.Get("tool"))
}

func TestFetchProteinsPostsLargeBatches(t *testing.T) {
	ids := make([]string, postThreshold+1)
	for i := range ids {
		ids[i] = "WP_X"
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "expected POST", http.StatusMethodNotAllowed)
			return
		}
		body, _ := io.ReadAll(r.Body)
		form, err := url.ParseQuery(string(body))
		if err != nil || len(strings.Split(form.Get("id"), ",")) != postThreshold+1 {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		_, _ = io.WriteString(w, gbsetXML)
	}))
	defer srv.Close()

	c, err := NewClient(Config{Email: "me@example.org", BaseURL: srv.URL})
	require.NoError(t, err)

	recs, err := c.FetchProteins(context.Background(), ids)
	require.NoError(t, err)
	require.Len(t, recs, 2)
}

func TestFetchProteinsErrors(t *testing.T) {
	c, err := NewClient(Config{Email: "me@example.org"}, WithHTTPClient(&http.Client{
		Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusTooManyRequests,
				Body:       io.NopCloser(strings.NewReader(`{"error":"API rate limit exceeded"}`)),
				Header:     make(http.Header),
			}, nil
		}),
	}))
	require.NoError(t, err)

	_, err = c.FetchProteins(context.Background(), []string{"WP_000001.1"})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusTooManyRequests, se.Code)
	require.Contains(t, se.Body, "rate limit")

	_, err = c.FetchProteins(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoAccessions)

	bad, err := NewClient(Config{Email: "me@example.org"}, WithHTTPClient(&http.Client{
		Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
			return okResponse("<html>not xml"), nil
		}),
	}))
	require.NoError(t, err)
	_, err = bad.FetchProteins(context.Background(), []string{"WP_000001.1"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "decoding GBSet")
}
