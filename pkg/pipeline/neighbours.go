// Batch driver for the neighbours command: GenBank file + locus tag in, one CSV out

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/yumyai/gbneighbours/internal/util"
	"github.com/yumyai/gbneighbours/logger"
	"github.com/yumyai/gbneighbours/pkg/genbank"
	"github.com/yumyai/gbneighbours/pkg/model"
	"github.com/yumyai/gbneighbours/pkg/sheet"
)

var (
	ErrTagCountMismatch = errors.New("fewer locus tags than GenBank files")
	ErrBadTag           = errors.New("locus tag cannot be used as a file name")
)

type NeighbourJob struct {
	File string
	Tag  string
}

type NeighbourOptions struct {
	Radius             int
	Placeholder        string
	OutDir             string
	AllowDuplicateTags bool
}

type NeighbourResult struct {
	Index   int
	Output  string
	Records int
}

// Neighbourhood writes the neighbours of job.Tag in job.File to a CSV file named
// after the tag inside opts.OutDir.
func Neighbourhood(ctx context.Context, job NeighbourJob, opts NeighbourOptions) (NeighbourResult, error) {
	var res NeighbourResult

	if err := checkTag(job.Tag); err != nil {
		return res, err
	}

	rec, err := genbank.ReadFile(job.File)
	if err != nil {
		return res, err
	}
	seq := model.CodingSequences(rec)
	logger.Debug("Read GenBank record", zap.String("file", job.File), zap.String("locus", rec.Locus), zap.Int("cds", len(seq)))

	find := model.FindIndexStrict
	if opts.AllowDuplicateTags {
		find = model.FindIndex
	}
	res.Index, err = find(seq, job.Tag)
	if err != nil {
		return res, err
	}

	neighbours, err := model.ExtractNeighboursWith(seq, res.Index, model.Options{
		Radius:      opts.Radius,
		Placeholder: opts.Placeholder,
	})
	if err != nil {
		return res, fmt.Errorf("locus %s: %w", job.Tag, err)
	}

	outDir := opts.OutDir
	if outDir == "" {
		outDir = "."
	}
	if !util.DirExists(outDir) {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return res, err
		}
	}

	res.Output = filepath.Join(outDir, job.Tag)
	if err := sheet.WriteRows(res.Output, neighbours.Rows()); err != nil {
		return res, err
	}
	res.Records = len(neighbours)

	logger.Info("Neighbour data written",
		zap.String("locus_tag", job.Tag),
		zap.String("file", job.File),
		zap.String("output", res.Output),
		zap.Int("index", res.Index),
		zap.Int("cds", len(seq)),
		zap.Int("records", res.Records),
	)
	return res, nil
}

// Neighbourhoods reads one locus tag per row from the first column of tagsFile and
// pairs them by position with files. The first failure stops the batch; outputs
// already written are left in place.
func Neighbourhoods(ctx context.Context, files []string, tagsFile string, opts NeighbourOptions) (*JobLedger, error) {
	tags, err := sheet.ReadColumn(tagsFile, 0)
	if err != nil {
		return nil, err
	}
	logger.Info("Read locus tags", zap.String("file", tagsFile), zap.Strings("tags", tags))

	if len(tags) < len(files) {
		return nil, fmt.Errorf("%w: %d tags in %s, %d files", ErrTagCountMismatch, len(tags), tagsFile, len(files))
	}
	if len(tags) > len(files) {
		logger.Warn("More locus tags than GenBank files, extra tags ignored",
			zap.Int("tags", len(tags)), zap.Int("files", len(files)))
	}

	ledger := NewJobLedger()
	for i, f := range files {
		ledger.Add(f, tags[i])
	}

	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return ledger, err
		}

		ledger.SetRunning(i)
		res, err := Neighbourhood(ctx, NeighbourJob{File: f, Tag: tags[i]}, opts)
		if err != nil {
			ledger.Fail(i, err)
			if job, ok := ledger.Get(i); ok {
				logger.Error("Neighbour extraction failed",
					zap.String("file", job.File),
					zap.String("locus_tag", job.Tag),
					zap.String("error", job.Error),
					zap.Duration("elapsed", job.UpdatedAt.Sub(job.CreatedAt)),
				)
			}
			logSummary(ledger)
			return ledger, fmt.Errorf("%s (locus %s): %w", f, tags[i], err)
		}
		ledger.Complete(i, res.Output, res.Records)
	}

	logSummary(ledger)
	return ledger, nil
}

func logSummary(ledger *JobLedger) {
	counts := ledger.Counts()
	logger.Info("Neighbour data extracted from GenBank files",
		zap.Int("completed", counts[JobCompleted]),
		zap.Int("failed", counts[JobFailed]),
		zap.Int("skipped", counts[JobQueued]),
	)
}

func checkTag(tag string) error {
	if tag == "" || tag == "." || tag == ".." || strings.ContainsAny(tag, `/\`) {
		return fmt.Errorf("%w: %q", ErrBadTag, tag)
	}
	return nil
}
