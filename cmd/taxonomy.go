package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yumyai/gbneighbours/internal/util"
	"github.com/yumyai/gbneighbours/logger"
	"github.com/yumyai/gbneighbours/pkg/db"
	"github.com/yumyai/gbneighbours/pkg/ncbi"
	"github.com/yumyai/gbneighbours/pkg/pipeline"
)

var (
	taxonomyIn  string
	taxonomyOut string
)

// taxonomyCmd looks up the lineage of every accession in a BLAST hit table.
var taxonomyCmd = &cobra.Command{
	Use:   "taxonomy",
	Short: "Fetch the lineage of protein accessions from NCBI",
	Long: `Read protein accessions from a CSV file (a BLAST hit table, subject
accession in the second column by default), fetch their GenPept records from
NCBI Entrez in a single request, and write each lineage split on ';' as one
CSV row.

NCBI asks for a contact email (NCBI_EMAIL or --email). An API key (NCBI_API_KEY
or --api-key) raises the request limit. With --cache, fetched records are kept
in a SQLite file and later runs only request accessions not seen before.`,
	Example: `  gbneighbours taxonomy --in QC85-HitTable.csv --out QC85-taxonomy.csv
  gbneighbours taxonomy --in hits.csv --out taxonomy.csv --column 0 --cache taxonomy.db`,
	Aliases: []string{"tax", "lineage"},
	Args:    cobra.NoArgs,
	RunE:    runTaxonomy,
}

func init() {
	rootCmd.AddCommand(taxonomyCmd)

	flags := taxonomyCmd.Flags()
	flags.StringVarP(&taxonomyIn, "in", "i", "", "CSV file with protein accessions")
	flags.StringVarP(&taxonomyOut, "out", "o", "", "CSV file to write lineages to")
	flags.IntP("column", "c", 1, "0-based column holding the accessions")
	flags.String("cache", "", "SQLite file caching fetched records")
	flags.Bool("refresh", false, "fetch every accession even if cached")
	flags.String("email", "", "contact email sent to NCBI")
	flags.String("api-key", "", "NCBI API key")

	_ = taxonomyCmd.MarkFlagRequired("in")
	_ = taxonomyCmd.MarkFlagRequired("out")

	// Bind the parameters to viper
	_ = v.BindPFlag("taxonomy.column", flags.Lookup("column"))
	_ = v.BindPFlag("cache.path", flags.Lookup("cache"))
	_ = v.BindPFlag("cache.refresh", flags.Lookup("refresh"))
	_ = v.BindPFlag("ncbi.email", flags.Lookup("email"))
	_ = v.BindPFlag("ncbi.api-key", flags.Lookup("api-key"))
}

func runTaxonomy(cmd *cobra.Command, args []string) error {
	if !util.FileExists(taxonomyIn) {
		return fmt.Errorf("accession file %s does not exist", taxonomyIn)
	}

	client, err := ncbi.NewClient(conf.NCBI)
	if err != nil {
		return fmt.Errorf("%w (set NCBI_EMAIL or pass --email)", err)
	}

	opts := pipeline.TaxonomyOptions{
		Input:           taxonomyIn,
		Output:          taxonomyOut,
		AccessionColumn: conf.Taxonomy.AccessionColumn,
		Refresh:         conf.Cache.Refresh,
		RunID:           runID,
	}

	if conf.Cache.Path != "" {
		cache, err := db.Open(conf.Cache.Path)
		if err != nil {
			return err
		}
		defer cache.Close()
		opts.Cache = cache
		logger.Info("Using taxonomy cache", zap.String("path", conf.Cache.Path))
	} else {
		logger.Warn("No cache configured, every accession is requested from NCBI")
	}

	_, err = pipeline.Taxonomy(cmd.Context(), client, opts)
	return err
}
