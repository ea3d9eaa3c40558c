package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yumyai/gbneighbours/internal/util"
	"github.com/yumyai/gbneighbours/pkg/pipeline"
)

var (
	tagsFile string
	locusTag string
)

// neighboursCmd extracts the CDS records around a locus of interest.
var neighboursCmd = &cobra.Command{
	Use:   "neighbours [flags] GENBANK_FILE...",
	Short: "Write the CDS neighbours of a locus tag to a CSV file",
	Long: `Write the locus tag, product and protein id of the coding sequences
around a CDS of interest (10 upstream and 10 downstream by default) to a CSV
file named after the locus tag.

With --tags, the first column of the CSV file holds one locus tag per GenBank
file, in the same order as the files on the command line. With --locus a single
GenBank file is processed.

A CDS without a protein id is written with the placeholder "No id given".`,
	Example: `  gbneighbours neighbours --tags locus_tags.csv species_1.gb species_2.gb
  gbneighbours neighbours --locus SMU_1234 --radius 5 species_1.gb`,
	Aliases: []string{"neighbors", "nb"},
	Args:    cobra.MinimumNArgs(1),
	RunE:    runNeighbours,
}

func init() {
	rootCmd.AddCommand(neighboursCmd)

	flags := neighboursCmd.Flags()
	flags.StringVarP(&tagsFile, "tags", "t", "", "CSV file with one locus tag per GenBank file (first column)")
	flags.StringVarP(&locusTag, "locus", "l", "", "locus tag of interest, for a single GenBank file")
	flags.IntP("radius", "r", 10, "number of CDS to report on each side")
	flags.String("placeholder", "No id given", "value written when a CDS has no protein id")
	flags.StringP("out-dir", "o", ".", "directory for the per-locus CSV files")
	flags.Bool("allow-duplicate-tags", false, "use the first CDS when a locus tag occurs more than once")

	neighboursCmd.MarkFlagsMutuallyExclusive("tags", "locus")
	neighboursCmd.MarkFlagsOneRequired("tags", "locus")

	// Bind the parameters to viper
	_ = v.BindPFlag("neighbours.radius", flags.Lookup("radius"))
	_ = v.BindPFlag("neighbours.placeholder", flags.Lookup("placeholder"))
	_ = v.BindPFlag("neighbours.out-dir", flags.Lookup("out-dir"))
	_ = v.BindPFlag("neighbours.allow-duplicate-tags", flags.Lookup("allow-duplicate-tags"))
}

func runNeighbours(cmd *cobra.Command, args []string) error {
	opts := pipeline.NeighbourOptions{
		Radius:             conf.Neighbours.Radius,
		Placeholder:        conf.Neighbours.Placeholder,
		OutDir:             conf.Neighbours.OutDir,
		AllowDuplicateTags: conf.Neighbours.AllowDuplicateTags,
	}

	for _, f := range args {
		if !util.FileExists(f) {
			return fmt.Errorf("GenBank file %s does not exist", f)
		}
	}

	if locusTag != "" {
		if len(args) != 1 {
			return fmt.Errorf("--locus takes exactly one GenBank file, got %d", len(args))
		}
		_, err := pipeline.Neighbourhood(cmd.Context(), pipeline.NeighbourJob{File: args[0], Tag: locusTag}, opts)
		return err
	}

	if !util.FileExists(tagsFile) {
		return fmt.Errorf("locus tags file %s does not exist", tagsFile)
	}
	_, err := pipeline.Neighbourhoods(cmd.Context(), args, tagsFile, opts)
	return err
}
