// Package cmd is for command line interactions with gbneighbours
package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/yumyai/gbneighbours/config"
	"github.com/yumyai/gbneighbours/logger"
	"github.com/yumyai/gbneighbours/pkg/pipeline"
)

// Version is set at build time with -ldflags "-X github.com/yumyai/gbneighbours/cmd.Version=..."
var Version = "0.1.0"

var (
	cfgFile string
	v       = viper.New()

	// filled in before any subcommand runs
	conf  config.Config
	runID string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "gbneighbours",
	Short: "Bookkeeping for GenBank neighbourhoods and NCBI taxonomy",
	Long: `gbneighbours collects the coding sequences around a locus of interest
in GenBank files, and looks up the lineage of protein accessions from a
BLAST hit table through NCBI Entrez.

Credentials are read from NCBI_EMAIL and NCBI_API_KEY (a .env file in the
working directory is loaded first), a config file given with --config, or flags.`,
	Version:           Version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	config.SetDefaults(v)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a config file (yaml, toml or json)")
	rootCmd.PersistentFlags().String("log-level", "info", "debug, info, warn or error")
	_ = v.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// setup reads the config and reinitialises the logger at the requested level.
func setup(cmd *cobra.Command, args []string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return err
		}
	}

	c, err := config.New(v)
	if err != nil {
		return err
	}

	level, err := logger.ParseLevel(c.LogLevel)
	if err != nil {
		return err
	}
	if err := logger.InitLogger(level); err != nil {
		return err
	}

	runID = pipeline.NewRunID()
	logger.With(zap.String("run_id", runID))
	logger.Debug("Loaded config",
		zap.String("config_file", v.ConfigFileUsed()),
		zap.String("log_level", c.LogLevel),
		zap.Bool("ncbi_api_key", c.NCBI.APIKey != ""),
	)

	conf = c
	return nil
}
