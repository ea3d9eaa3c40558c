package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yumyai/gbneighbours/pkg/ncbi"

	_ "modernc.org/sqlite"
)

var ErrCacheClosed = errors.New("taxonomy cache is closed")

// Rows are keyed by accession.version when NCBI reports one, so two versions of
// the same protein are kept apart.
const schema = `
CREATE TABLE IF NOT EXISTS protein_records (
	record_key        TEXT PRIMARY KEY,
	accession         TEXT NOT NULL,
	accession_version TEXT NOT NULL DEFAULT '',
	organism          TEXT NOT NULL DEFAULT '',
	taxonomy          TEXT NOT NULL,
	run_id            TEXT NOT NULL DEFAULT '',
	fetched_at        INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS protein_records_accession ON protein_records (accession);
`

// CachedRecord is one protein record fetched earlier.
type CachedRecord struct {
	Accession        string
	AccessionVersion string
	Organism         string
	Taxonomy         string
	RunID            string
	FetchedAt        time.Time
}

// CacheDB keeps fetched Entrez records in a local SQLite file so a batch can be
// re-run without asking NCBI again.
type CacheDB struct {
	sql *sql.DB
}

func Open(path string) (*CacheDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: creating schema in %s", err, path)
	}
	return &CacheDB{sql: db}, nil
}

func (c *CacheDB) Close() error {
	if c == nil || c.sql == nil {
		return nil
	}
	err := c.sql.Close()
	c.sql = nil
	return err
}

// Lookup returns the cached records for accessions, keyed by the accession as given.
// A versioned accession only matches that version. An unversioned one matches the
// most recently fetched version.
func (c *CacheDB) Lookup(ctx context.Context, accessions []string) (map[string]CachedRecord, error) {
	if c == nil || c.sql == nil {
		return nil, ErrCacheClosed
	}

	qstring := `select accession, accession_version, organism, taxonomy, run_id, fetched_at
		from protein_records where record_key == ? or accession == ?
		order by record_key == ? desc, fetched_at desc limit 1`

	stm, err := c.sql.PrepareContext(ctx, qstring)
	if err != nil {
		return nil, err
	}
	defer stm.Close()

	results := make(map[string]CachedRecord)
	for _, acc := range accessions {
		var r CachedRecord
		var fetched int64
		err := stm.QueryRowContext(ctx, acc, acc, acc).Scan(&r.Accession, &r.AccessionVersion, &r.Organism, &r.Taxonomy, &r.RunID, &fetched)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("lookup %s: %w", acc, err)
		}
		r.FetchedAt = time.Unix(fetched, 0)
		results[acc] = r
	}
	return results, nil
}

// Store upserts recs in one transaction.
func (c *CacheDB) Store(ctx context.Context, runID string, recs []ncbi.GBSeq) error {
	if c == nil || c.sql == nil {
		return ErrCacheClosed
	}

	tx, err := c.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	stm, err := tx.PrepareContext(ctx, `
		INSERT INTO protein_records (record_key, accession, accession_version, organism, taxonomy, run_id, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(record_key) DO UPDATE SET
			accession = excluded.accession,
			accession_version = excluded.accession_version,
			organism = excluded.organism,
			taxonomy = excluded.taxonomy,
			run_id = excluded.run_id,
			fetched_at = excluded.fetched_at`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stm.Close()

	now := time.Now().Unix()
	for _, r := range recs {
		acc := r.PrimaryAccession
		if acc == "" {
			acc, _, _ = strings.Cut(r.AccessionVersion, ".")
		}
		if acc == "" {
			continue
		}
		key := r.AccessionVersion
		if key == "" {
			key = acc
		}
		if _, err := stm.ExecContext(ctx, key, acc, r.AccessionVersion, r.Organism, r.Taxonomy, runID, now); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to store %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Count returns the number of cached records.
func (c *CacheDB) Count(ctx context.Context) (int, error) {
	if c == nil || c.sql == nil {
		return 0, ErrCacheClosed
	}
	var n int
	err := c.sql.QueryRowContext(ctx, `select count(*) from protein_records`).Scan(&n)
	return n, err
}
