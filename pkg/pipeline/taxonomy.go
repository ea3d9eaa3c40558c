// Batch driver for the taxonomy command: accessions in, one lineage row per accession out

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yumyai/gbneighbours/logger"
	"github.com/yumyai/gbneighbours/pkg/db"
	"github.com/yumyai/gbneighbours/pkg/model"
	"github.com/yumyai/gbneighbours/pkg/ncbi"
	"github.com/yumyai/gbneighbours/pkg/sheet"
)

var (
	ErrNoAccessions     = errors.New("no accessions in input")
	ErrAccessionMissing = errors.New("accession not returned by NCBI")
)

// ProteinFetcher is satisfied by *ncbi.Client.
type ProteinFetcher interface {
	FetchProteins(ctx context.Context, accessions []string) ([]ncbi.GBSeq, error)
}

type TaxonomyOptions struct {
	Input           string
	Output          string
	AccessionColumn int

	// Cache is optional. With Refresh set it is written but not read.
	Cache   *db.CacheDB
	Refresh bool

	RunID string
}

// NewRunID returns the identifier attached to a run's log lines and cache rows.
func NewRunID() string {
	return uuid.New().String()
}

// Taxonomy writes the lineage of every accession in opts.Input to opts.Output, one
// row per input row. Rows with a blank accession are skipped. Accessions that are
// not cached are fetched in a single request.
func Taxonomy(ctx context.Context, fetcher ProteinFetcher, opts TaxonomyOptions) (int, error) {
	if opts.RunID == "" {
		opts.RunID = NewRunID()
	}

	column, err := sheet.ReadColumn(opts.Input, opts.AccessionColumn)
	if err != nil {
		return 0, err
	}

	// Spreadsheet exports often end in rows of empty cells.
	var accessions []string
	var rows []int
	for i, acc := range column {
		if strings.TrimSpace(acc) == "" {
			continue
		}
		accessions = append(accessions, acc)
		rows = append(rows, i+1)
	}
	if len(accessions) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrNoAccessions, opts.Input)
	}
	if blank := len(column) - len(accessions); blank > 0 {
		logger.Warn("Skipping rows without an accession", zap.String("file", opts.Input), zap.Int("rows", blank))
	}
	logger.Info("Read accessions", zap.String("file", opts.Input), zap.Int("accessions", len(accessions)))

	taxonomy := make(map[string]string)
	if opts.Cache != nil && !opts.Refresh {
		cached, err := opts.Cache.Lookup(ctx, accessions)
		if err != nil {
			return 0, err
		}
		for acc, r := range cached {
			taxonomy[acc] = r.Taxonomy
		}
		logger.Debug("Cache lookup", zap.Int("hits", len(cached)))
	}

	missing := uncached(accessions, taxonomy)
	if len(missing) > 0 {
		logger.Info("Fetching protein records from NCBI", zap.Int("accessions", len(missing)))
		recs, err := fetcher.FetchProteins(ctx, missing)
		if err != nil {
			return 0, err
		}

		byAccession := make(map[string]ncbi.GBSeq, 2*len(recs))
		for _, r := range recs {
			byAccession[r.PrimaryAccession] = r
			byAccession[r.AccessionVersion] = r
		}
		for _, acc := range missing {
			if r, ok := byAccession[acc]; ok && r.Matches(acc) {
				taxonomy[acc] = r.Taxonomy
			}
		}

		if opts.Cache != nil {
			if err := opts.Cache.Store(ctx, opts.RunID, recs); err != nil {
				return 0, err
			}
			total, err := opts.Cache.Count(ctx)
			if err != nil {
				return 0, err
			}
			logger.Info("Stored records in cache", zap.Int("records", len(recs)), zap.Int("cached", total))
		}
	}

	taxa := make([]string, 0, len(accessions))
	for i, acc := range accessions {
		t, ok := taxonomy[acc]
		if !ok {
			return 0, fmt.Errorf("%w: %q (row %d)", ErrAccessionMissing, acc, rows[i])
		}
		taxa = append(taxa, t)
	}

	if err := sheet.WriteRows(opts.Output, model.LineageRows(taxa)); err != nil {
		return 0, err
	}
	logger.Info("Taxonomy written", zap.String("output", opts.Output), zap.Int("rows", len(taxa)))
	return len(taxa), nil
}

// uncached returns the distinct accessions without a taxonomy, in input order.
func uncached(accessions []string, taxonomy map[string]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, acc := range accessions {
		if _, ok := taxonomy[acc]; ok || seen[acc] {
			continue
		}
		seen[acc] = true
		out = append(out, acc)
	}
	return out
}
