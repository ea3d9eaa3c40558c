// Package ncbi fetches protein records from the NCBI Entrez E-utilities.
package ncbi

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"
	DefaultTool    = "gbneighbours"

	// Above this many ids the request goes out as a form POST.
	postThreshold = 200
)

var (
	ErrNoEmail      = errors.New("ncbi: an email address is required")
	ErrNoAccessions = errors.New("ncbi: no accessions to fetch")
)

// Config holds the credentials and endpoint for one client. Nothing is read from
// the environment here; callers fill it in.
type Config struct {
	Email   string        `mapstructure:"email"`
	APIKey  string        `mapstructure:"api-key"`
	Tool    string        `mapstructure:"tool"`
	BaseURL string        `mapstructure:"base-url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Email) == "" {
		return ErrNoEmail
	}
	return nil
}

// StatusError is returned for any non-200 response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ncbi efetch returned status %d: %s", e.Code, e.Body)
}

// GBSeq is the subset of an Entrez GBSeq XML record used here.
type GBSeq struct {
	Locus            string `xml:"GBSeq_locus"`
	PrimaryAccession string `xml:"GBSeq_primary-accession"`
	AccessionVersion string `xml:"GBSeq_accession-version"`
	Definition       string `xml:"GBSeq_definition"`
	Organism         string `xml:"GBSeq_organism"`
	Taxonomy         string `xml:"GBSeq_taxonomy"`
}

// Matches reports whether acc names this record, with or without version.
func (s GBSeq) Matches(acc string) bool {
	return acc != "" && (acc == s.AccessionVersion || acc == s.PrimaryAccession)
}

type gbSet struct {
	XMLName xml.Name `xml:"GBSet"`
	Seqs    []GBSeq  `xml:"GBSeq"`
}

type Client struct {
	cfg        Config
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default client; tests use it to mock the transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Tool == "" {
		cfg.Tool = DefaultTool
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FetchProteins retrieves the GenPept records of accessions in a single efetch call.
// The whole response is decoded in memory.
func (c *Client) FetchProteins(ctx context.Context, accessions []string) ([]GBSeq, error) {
	if len(accessions) == 0 {
		return nil, ErrNoAccessions
	}

	req, err := c.efetchRequest(ctx, "protein", accessions)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ncbi efetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var set gbSet
	if err := xml.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("ncbi efetch: decoding GBSet: %w", err)
	}
	return set.Seqs, nil
}

func (c *Client) efetchRequest(ctx context.Context, db string, ids []string) (*http.Request, error) {
	params := url.Values{}
	params.Set("db", db)
	params.Set("id", strings.Join(ids, ","))
	params.Set("rettype", "gp")
	params.Set("retmode", "xml")
	params.Set("tool", c.cfg.Tool)
	params.Set("email", c.cfg.Email)
	if c.cfg.APIKey != "" {
		params.Set("api_key", c.cfg.APIKey)
	}

	endpoint := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/efetch.fcgi"

	var req *http.Request
	var err error
	if len(ids) > postThreshold {
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(params.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	}
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.cfg.Tool)
	return req, nil
}
